package store

import (
	"context"
	"fmt"
)

// SaveTargetFunds persists the restriction list chosen at
// initialization so later updates honor the same scope.
func (s *Store) SaveTargetFunds(ctx context.Context, cnpjs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, cnpj := range cnpjs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO target_funds (cnpj) VALUES (?) ON CONFLICT (cnpj) DO NOTHING`, cnpj); err != nil {
			return fmt.Errorf("save target %s: %w", cnpj, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// TargetFunds returns the persisted restriction list; empty means the
// store is unrestricted.
func (s *Store) TargetFunds(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT cnpj FROM target_funds ORDER BY cnpj`)
	if err != nil {
		return nil, fmt.Errorf("target funds: %w", err)
	}
	defer rows.Close()

	var cnpjs []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan target: %w", err)
		}
		cnpjs = append(cnpjs, c)
	}
	return cnpjs, rows.Err()
}
