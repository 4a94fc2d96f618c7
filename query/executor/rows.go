package executor

import (
	"database/sql"
	"fmt"
)

// Result reports the outcome of a statement that returns no rows.
type Result struct {
	RowsAffected int64
	LastInsertID int64
}

// Rows is a forward-only cursor over a result set.
type Rows struct {
	rows     *sql.Rows
	sql      string
	bindings []Binding
	columns  []string
}

// Next prepares the next row.
func (r *Rows) Next() bool { return r.rows.Next() }

// Scan copies the current row into dest.
func (r *Rows) Scan(dest ...interface{}) error { return r.wrap(r.rows.Scan(dest...)) }

// Err returns the error, if any, encountered during iteration.
func (r *Rows) Err() error { return r.wrap(r.rows.Err()) }

// Close releases the cursor. It is safe to call more than once.
func (r *Rows) Close() error { return r.rows.Close() }

// Columns returns the result column names.
func (r *Rows) Columns() ([]string, error) {
	if r.columns != nil {
		return r.columns, nil
	}
	cols, err := r.rows.Columns()
	if err != nil {
		return nil, err
	}
	r.columns = cols
	return cols, nil
}

// ScanMap reads the current row into a column keyed map. Byte slices are
// copied into strings because the driver may reuse them.
func (r *Rows) ScanMap() (map[string]interface{}, error) {
	cols, err := r.Columns()
	if err != nil {
		return nil, err
	}
	vals := make([]interface{}, len(cols))
	ptrs := make([]interface{}, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := r.rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("scan row: %w", err)
	}
	row := make(map[string]interface{}, len(cols))
	for i, c := range cols {
		if b, ok := vals[i].([]byte); ok {
			row[c] = string(b)
			continue
		}
		row[c] = vals[i]
	}
	return row, nil
}

// FetchOne returns the next row, or nil when the cursor is exhausted.
func (r *Rows) FetchOne() (map[string]interface{}, error) {
	if !r.rows.Next() {
		return nil, r.wrap(r.rows.Err())
	}
	row, err := r.ScanMap()
	return row, r.wrap(err)
}

// FetchAll reads every remaining row and closes the cursor.
func (r *Rows) FetchAll() ([]map[string]interface{}, error) {
	defer r.rows.Close()
	var out []map[string]interface{}
	for r.rows.Next() {
		row, err := r.ScanMap()
		if err != nil {
			return nil, r.wrap(err)
		}
		out = append(out, row)
	}
	return out, r.wrap(r.rows.Err())
}

func (r *Rows) wrap(err error) error {
	if err == nil {
		return nil
	}
	return &ExecutionError{SQL: r.sql, Bindings: r.bindings, Err: err}
}
