// Package history manages the table recording which migrations ran.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dbkit-go/dbkit/runtime/client"
)

// DefaultTable is the name of the history table.
const DefaultTable = "migrations"

// Record is one applied migration.
type Record struct {
	ID         int64
	FileName   string
	Batch      int
	MigratedAt time.Time
}

// Repository reads and writes the history table.
type Repository struct {
	conn  *client.Connection
	table string
}

// NewRepository creates a repository over table, DefaultTable if empty.
func NewRepository(conn *client.Connection, table string) *Repository {
	if table == "" {
		table = DefaultTable
	}
	return &Repository{conn: conn, table: table}
}

// Table returns the history table name.
func (r *Repository) Table() string { return r.table }

// Install creates the history table if it does not exist.
func (r *Repository) Install(ctx context.Context) error {
	t := r.conn.CreateTable(r.table).IfNotExists()
	t.Increments("id")
	t.String("fileName")
	t.Integer("batch")
	t.DateTime("migratedAt")
	if _, err := t.Execute(ctx); err != nil {
		return fmt.Errorf("failed to create migration table: %w", err)
	}
	return nil
}

// Applied returns every record, oldest batch first.
func (r *Repository) Applied(ctx context.Context) ([]Record, error) {
	rows, err := r.conn.Select("id", "fileName", "batch", "migratedAt").
		From(r.table).
		OrderBy("batch").
		AddOrderBy("fileName").
		Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var at sql.NullTime
		if err := rows.Scan(&rec.ID, &rec.FileName, &rec.Batch, &at); err != nil {
			return nil, fmt.Errorf("failed to scan migration: %w", err)
		}
		rec.MigratedAt = at.Time
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Log records fileName as applied in batch.
func (r *Repository) Log(ctx context.Context, fileName string, batch int) error {
	_, err := r.conn.Insert().Into(r.table).
		Columns("fileName", "batch", "migratedAt").
		Values(fileName, batch, time.Now().UTC()).
		Execute(ctx)
	if err != nil {
		return fmt.Errorf("failed to record migration %s: %w", fileName, err)
	}
	return nil
}

// Delete removes the record of fileName.
func (r *Repository) Delete(ctx context.Context, fileName string) error {
	_, err := r.conn.Delete().From(r.table).Where("fileName", "=", fileName).Execute(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete migration %s: %w", fileName, err)
	}
	return nil
}

// LastBatches returns the records of the last n batches, newest first.
func LastBatches(records []Record, n int) []Record {
	last := 0
	for _, rec := range records {
		if rec.Batch > last {
			last = rec.Batch
		}
	}
	var out []Record
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].Batch > last-n {
			out = append(out, records[i])
		}
	}
	return out
}

// NextBatch returns the batch number following records.
func NextBatch(records []Record) int {
	next := 1
	for _, rec := range records {
		if rec.Batch >= next {
			next = rec.Batch + 1
		}
	}
	return next
}
