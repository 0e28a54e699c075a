package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"smart-wallet-engine/internal/domain"
	"smart-wallet-engine/internal/storage"
)

// MigrationStore implements storage.MigrationStore using PostgreSQL.
type MigrationStore struct {
	pool *Pool
}

// NewMigrationStore creates a new MigrationStore.
func NewMigrationStore(pool *Pool) *MigrationStore {
	return &MigrationStore{pool: pool}
}

// Compile-time interface check.
var _ storage.MigrationStore = (*MigrationStore)(nil)

// Insert adds a migration. Returns ErrDuplicateKey if the old→new pair
// exists.
func (s *MigrationStore) Insert(ctx context.Context, m *domain.WalletMigration) error {
	tokens, err := json.Marshal(m.Tokens)
	if err != nil {
		return fmt.Errorf("marshal migrated tokens: %w", err)
	}

	query := `
		INSERT INTO wallet_migration (
			migration_id, old_wallet, new_wallet, migrated_at,
			tokens, total_value_usd, transfer_percent, validated, detected_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = s.pool.Exec(ctx, query,
		m.MigrationID,
		m.OldWallet,
		m.NewWallet,
		m.MigratedAt,
		tokens,
		m.TotalValueUSD,
		m.TransferPercent,
		m.Validated,
		m.DetectedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert wallet migration: %w", err)
	}

	return nil
}

// ExistsPair reports whether a migration old→new was already recorded.
func (s *MigrationStore) ExistsPair(ctx context.Context, oldWallet, newWallet string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM wallet_migration WHERE old_wallet = $1 AND new_wallet = $2
		)
	`

	var exists bool
	if err := s.pool.QueryRow(ctx, query, oldWallet, newWallet).Scan(&exists); err != nil {
		return false, fmt.Errorf("check migration pair: %w", err)
	}

	return exists, nil
}
