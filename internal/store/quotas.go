package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/quantbr/fundsdb/internal/model"
)

// InsertQuotas appends quota records inside one transaction, ignoring
// records already present for the same (cnpj, date). Returns the number
// actually inserted, so an idempotent re-run reports zero.
func (s *Store) InsertQuotas(ctx context.Context, quotas []model.Quota) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO daily_quotas (cnpj, date, quota_value, net_assets, total_assets, shareholders)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (cnpj, date) DO NOTHING`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	for _, q := range quotas {
		res, err := stmt.ExecContext(ctx,
			q.CNPJ, dateStr(q.Date), q.QuotaValue, q.NetAssets, q.TotalAssets, q.Shareholders)
		if err != nil {
			return inserted, fmt.Errorf("insert quota %s@%s: %w", q.CNPJ, dateStr(q.Date), err)
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

// MaxQuotaDate returns the latest quota date in the store. ok is false
// when no quota has ever been stored.
func (s *Store) MaxQuotaDate(ctx context.Context) (time.Time, bool, error) {
	var d sql.NullString
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(date) FROM daily_quotas`).Scan(&d); err != nil {
		return time.Time{}, false, fmt.Errorf("max quota date: %w", err)
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

// QuotaSeries returns one fund's quota records in [from, to], ordered
// by date. Zero from/to means unbounded on that side.
func (s *Store) QuotaSeries(ctx context.Context, cnpj string, from, to time.Time) ([]model.Quota, error) {
	query := `SELECT cnpj, date, quota_value, net_assets, total_assets, shareholders
		FROM daily_quotas WHERE cnpj = ?`
	args := []any{cnpj}
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
		return nil, fmt.Errorf("quota series %s: %w", cnpj, err)
	}
	defer rows.Close()

	var quotas []model.Quota
	for rows.Next() {
		var q model.Quota
		var d string
		if err := rows.Scan(&q.CNPJ, &d, &q.QuotaValue, &q.NetAssets, &q.TotalAssets, &q.Shareholders); err != nil {
			return nil, fmt.Errorf("scan quota: %w", err)
		}
		if q.Date, err = parseDate(d); err != nil {
			return nil, fmt.Errorf("parse stored date %q: %w", d, err)
		}
		quotas = append(quotas, q)
	}
	return quotas, rows.Err()
}

// CountQuotas returns the total number of quota records.
func (s *Store) CountQuotas(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM daily_quotas`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count quotas: %w", err)
	}
	return n, nil
}
