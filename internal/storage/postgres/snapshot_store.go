package postgres

import (
	"context"
	"fmt"

	"smart-wallet-engine/internal/domain"
	"smart-wallet-engine/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using PostgreSQL.
type SnapshotStore struct {
	pool *Pool
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(pool *Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// GetCurrent retrieves the wallet's current snapshot rows.
func (s *SnapshotStore) GetCurrent(ctx context.Context, wallet string) ([]*domain.PositionSnapshotRow, error) {
	query := `
		SELECT id, wallet, token_symbol, contract, chain, amount, value_usd, is_current, snapshot_at
		FROM position_snapshot
		WHERE wallet = $1 AND is_current = TRUE
		ORDER BY contract ASC
	`

	rows, err := s.pool.Query(ctx, query, wallet)
	if err != nil {
		return nil, fmt.Errorf("get current snapshot: %w", err)
	}
	defer rows.Close()

	var out []*domain.PositionSnapshotRow
	for rows.Next() {
		var r domain.PositionSnapshotRow
		err := rows.Scan(
			&r.ID,
			&r.Wallet,
			&r.TokenSymbol,
			&r.Contract,
			&r.Chain,
			&r.Amount,
			&r.ValueUSD,
			&r.IsCurrent,
			&r.SnapshotAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}

	return out, nil
}

// ReplaceCurrent flips the wallet's current rows to non-current and installs
// the new snapshot in one transaction. The partial unique index on
// (wallet, contract) WHERE is_current guarantees at most one current row
// per pair even if a concurrent writer sneaks in.
func (s *SnapshotStore) ReplaceCurrent(ctx context.Context, wallet string, newRows []*domain.PositionSnapshotRow) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		UPDATE position_snapshot SET is_current = FALSE
		WHERE wallet = $1 AND is_current = TRUE
	`, wallet)
	if err != nil {
		return fmt.Errorf("flip previous snapshot: %w", err)
	}

	insert := `
		INSERT INTO position_snapshot (
			wallet, token_symbol, contract, chain, amount, value_usd, is_current, snapshot_at
		) VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7)
	`
	for _, r := range newRows {
		_, err := tx.Exec(ctx, insert,
			wallet,
			r.TokenSymbol,
			r.Contract,
			r.Chain,
			r.Amount,
			r.ValueUSD,
			r.SnapshotAt,
		)
		if err != nil {
			return fmt.Errorf("insert snapshot row: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// HasHistory reports whether any snapshot row ever existed for the pair.
func (s *SnapshotStore) HasHistory(ctx context.Context, wallet, contract string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM position_snapshot WHERE wallet = $1 AND contract = $2
		)
	`

	var exists bool
	if err := s.pool.QueryRow(ctx, query, wallet, contract).Scan(&exists); err != nil {
		return false, fmt.Errorf("check snapshot history: %w", err)
	}

	return exists, nil
}
