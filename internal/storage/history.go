package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// timeLayout sorts lexically in chronological order for UTC times.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run is one recorded report generation.
type Run struct {
	ID         string
	OldVersion string
	NewVersion string
	Output     string
	Format     string
	Rows       int
	CreatedAt  time.Time
}

// History records generated reports.
type History struct {
	db *DB
}

// NewHistory creates a history over db.
func NewHistory(db *DB) *History {
	return &History{db: db}
}

// Record stores run. A missing ID is generated and a zero CreatedAt is set
// to now; the stored run is returned.
func (h *History) Record(ctx context.Context, run Run) (Run, error) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	_, err := h.db.ExecContext(ctx, `
		INSERT INTO reports (id, old_version, new_version, output, format, "rows", created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.OldVersion, run.NewVersion, run.Output, run.Format, run.Rows,
		run.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return run, fmt.Errorf("record report %s: %w", run.ID, err)
	}
	return run, nil
}

// List returns up to limit runs, newest first. A limit of zero or less
// returns all runs.
func (h *History) List(ctx context.Context, limit int) ([]Run, error) {
	query := `
		SELECT id, old_version, new_version, output, format, "rows", created_at
		FROM reports
		ORDER BY created_at DESC, id
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var run Run
		var created string
		if err := rows.Scan(&run.ID, &run.OldVersion, &run.NewVersion, &run.Output,
			&run.Format, &run.Rows, &created); err != nil {
			return nil, err
		}
		run.CreatedAt, err = time.Parse(timeLayout, created)
		if err != nil {
			return nil, fmt.Errorf("invalid created_at format: %w", err)
		}
		out = append(out, run)
	}
	return out, rows.Err()
}
