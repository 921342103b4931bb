package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/quantbr/fundsdb/internal/model"
)

// InsertBenchmarks appends benchmark observations, ignoring records
// already present for the same (series, date).
func (s *Store) InsertBenchmarks(ctx context.Context, points []model.BenchmarkPoint) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO benchmark_series (series, date, value)
		VALUES (?, ?, ?)
		ON CONFLICT (series, date) DO NOTHING`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	for _, p := range points {
		res, err := stmt.ExecContext(ctx, p.Series, dateStr(p.Date), p.Value)
		if err != nil {
			return inserted, fmt.Errorf("insert benchmark %s@%s: %w", p.Series, dateStr(p.Date), err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return inserted, fmt.Errorf("rows affected: %w", err)
		}
		inserted += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

// MaxBenchmarkDate returns the latest stored date of one series.
// Computed independently per series: quota and benchmark series may
// have been synced to different points.
func (s *Store) MaxBenchmarkDate(ctx context.Context, series string) (time.Time, bool, error) {
	var d sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(date) FROM benchmark_series WHERE series = ?`, series).Scan(&d)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("max benchmark date %s: %w", series, err)
	}
	if !d.Valid {
		return time.Time{}, false, nil
	}
	t, err := parseDate(d.String)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse stored date %q: %w", d.String, err)
	}
	return t, true, nil
}

// BenchmarkSeries returns one series' observations in [from, to],
// ordered by date. Zero from/to means unbounded on that side.
func (s *Store) BenchmarkSeries(ctx context.Context, series string, from, to time.Time) ([]model.BenchmarkPoint, error) {
	query := `SELECT series, date, value FROM benchmark_series WHERE series = ?`
	args := []any{series}
	if !from.IsZero() {
		query += ` AND date >= ?`
		args = append(args, dateStr(from))
	}
	if !to.IsZero() {
		query += ` AND date <= ?`
		args = append(args, dateStr(to))
	}
	query += ` ORDER BY date`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("benchmark series %s: %w", series, err)
	}
	defer rows.Close()

	var points []model.BenchmarkPoint
	for rows.Next() {
		var p model.BenchmarkPoint
		var d string
		if err := rows.Scan(&p.Series, &d, &p.Value); err != nil {
			return nil, fmt.Errorf("scan benchmark: %w", err)
		}
		if p.Date, err = parseDate(d); err != nil {
			return nil, fmt.Errorf("parse stored date %q: %w", d, err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}
