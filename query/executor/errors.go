package executor

import (
	"fmt"
)

// ExecutionError is returned when the driver rejects a statement. It keeps
// the SQL and bindings that were sent.
type ExecutionError struct {
	SQL      string
	Bindings []Binding
	Err      error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("executor: %v (sql: %s)", e.Err, e.SQL)
}

func (e *ExecutionError) Unwrap() error { return e.Err }
