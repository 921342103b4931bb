package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/quantbr/fundsdb/internal/model"
)

// UpsertFunds replaces the registry attributes for each fund, inserting
// new CNPJs. Rows for funds that vanished from the registry are kept:
// the store is append-only and historical quota data stays queryable.
func (s *Store) UpsertFunds(ctx context.Context, funds []model.Fund) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO funds (cnpj, name, status, class, manager, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (cnpj) DO UPDATE SET
			name = excluded.name,
			status = excluded.status,
			class = excluded.class,
			manager = excluded.manager,
			updated_at = excluded.updated_at`)
	if err != nil {
		return 0, fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	now := dateStr(time.Now())
	var n int64
	for _, f := range funds {
		if _, err := stmt.ExecContext(ctx, f.CNPJ, f.Name, f.Status, f.Class, f.Manager, now); err != nil {
			return n, fmt.Errorf("upsert fund %s: %w", f.CNPJ, err)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

// GetFund returns one registry row, or false when the CNPJ is unknown.
func (s *Store) GetFund(ctx context.Context, cnpj string) (model.Fund, bool, error) {
	var f model.Fund
	err := s.db.QueryRowContext(ctx,
		`SELECT cnpj, name, status, class, manager FROM funds WHERE cnpj = ?`, cnpj).
		Scan(&f.CNPJ, &f.Name, &f.Status, &f.Class, &f.Manager)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Fund{}, false, nil
		}
		return model.Fund{}, false, fmt.Errorf("get fund %s: %w", cnpj, err)
	}
	return f, true, nil
}

// ListFunds returns all registry rows ordered by CNPJ.
func (s *Store) ListFunds(ctx context.Context) ([]model.Fund, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT cnpj, name, status, class, manager FROM funds ORDER BY cnpj`)
	if err != nil {
		return nil, fmt.Errorf("list funds: %w", err)
	}
	defer rows.Close()

	var funds []model.Fund
	for rows.Next() {
		var f model.Fund
		if err := rows.Scan(&f.CNPJ, &f.Name, &f.Status, &f.Class, &f.Manager); err != nil {
			return nil, fmt.Errorf("scan fund: %w", err)
		}
		funds = append(funds, f)
	}
	return funds, rows.Err()
}

// CountFunds returns the registry size.
func (s *Store) CountFunds(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM funds`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count funds: %w", err)
	}
	return n, nil
}
