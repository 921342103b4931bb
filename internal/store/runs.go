package store

import (
	"context"
	"fmt"
	"time"
)

// Run records one init/update invocation for observability.
type Run struct {
	ID             string
	Kind           string // "init" or "update"
	StartedAt      time.Time
	FinishedAt     time.Time
	PeriodsFetched int
	PeriodsSkipped int
	RowsInserted   int64
	RowsDropped    int
}

const runTimeLayout = time.RFC3339

// RecordRun appends a sync run to the log.
func (s *Store) RecordRun(ctx context.Context, r Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_runs (id, kind, started_at, finished_at,
			periods_fetched, periods_skipped, rows_inserted, rows_dropped)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Kind,
		r.StartedAt.UTC().Format(runTimeLayout), r.FinishedAt.UTC().Format(runTimeLayout),
		r.PeriodsFetched, r.PeriodsSkipped, r.RowsInserted, r.RowsDropped)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// LastRuns returns up to n most recent sync runs, newest first.
func (s *Store) LastRuns(ctx context.Context, n int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, started_at, finished_at,
			periods_fetched, periods_skipped, rows_inserted, rows_dropped
		FROM sync_runs ORDER BY started_at DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("last runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, finished string
		if err := rows.Scan(&r.ID, &r.Kind, &started, &finished,
			&r.PeriodsFetched, &r.PeriodsSkipped, &r.RowsInserted, &r.RowsDropped); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if r.StartedAt, err = time.Parse(runTimeLayout, started); err != nil {
			return nil, fmt.Errorf("parse run time %q: %w", started, err)
		}
		if r.FinishedAt, err = time.Parse(runTimeLayout, finished); err != nil {
			return nil, fmt.Errorf("parse run time %q: %w", finished, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
