package sqlgen

import (
	"errors"
	"fmt"

	"github.com/dbkit-go/dbkit/query/statement"
)

var (
	// ErrNoTable is returned when the statement has no target table.
	ErrNoTable = errors.New("no table specified")
	// ErrNoColumns is returned when a statement requires columns and has none.
	ErrNoColumns = errors.New("no columns specified")
	// ErrNoValues is returned when an INSERT or UPDATE carries no values.
	ErrNoValues = errors.New("no values specified")
	// ErrValueCount is returned when INSERT values do not fill whole rows.
	ErrValueCount = errors.New("values count is not a multiple of the columns count")
	// ErrInvalidOperand is returned when an operator receives a value it cannot render.
	ErrInvalidOperand = errors.New("invalid operand")
	// ErrBoundValues is returned when a statement that cannot carry parameters has some.
	ErrBoundValues = errors.New("bound values are not allowed")
	// ErrUnsupported is returned for constructs the dialect cannot express.
	ErrUnsupported = errors.New("not supported by dialect")
)

// StructuralError reports a statement that cannot be compiled. No SQL is
// produced when it is returned.
type StructuralError struct {
	Dialect   string
	Statement statement.Kind
	Detail    string
	Err       error
}

func (e *StructuralError) Error() string {
	msg := fmt.Sprintf("sqlgen: %s: %s: %v", e.Dialect, e.Statement, e.Err)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *StructuralError) Unwrap() error { return e.Err }

// IsStructural reports whether err is a StructuralError.
func IsStructural(err error) bool {
	var se *StructuralError
	return errors.As(err, &se)
}
