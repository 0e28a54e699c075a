package postgres

import (
	"context"
	"fmt"

	"smart-wallet-engine/internal/domain"
	"smart-wallet-engine/internal/storage"
)

// WalletStore implements storage.WalletStore using PostgreSQL.
type WalletStore struct {
	pool *Pool
}

// NewWalletStore creates a new WalletStore.
func NewWalletStore(pool *Pool) *WalletStore {
	return &WalletStore{pool: pool}
}

// Compile-time interface check.
var _ storage.WalletStore = (*WalletStore)(nil)

// Register adds a wallet to the watch list; an existing address is absorbed.
func (s *WalletStore) Register(ctx context.Context, w *domain.TrackedWallet) error {
	query := `
		INSERT INTO tracked_wallet (address, chain, source, status, added_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (address) DO NOTHING
	`

	_, err := s.pool.Exec(ctx, query, w.Address, w.Chain, w.Source, w.Status, w.AddedAt)
	if err != nil {
		return fmt.Errorf("register wallet: %w", err)
	}

	return nil
}

// Get retrieves a tracked wallet.
func (s *WalletStore) Get(ctx context.Context, address string) (*domain.TrackedWallet, error) {
	query := `
		SELECT address, chain, source, status, added_at
		FROM tracked_wallet
		WHERE address = $1
	`

	var w domain.TrackedWallet
	err := s.pool.QueryRow(ctx, query, address).Scan(&w.Address, &w.Chain, &w.Source, &w.Status, &w.AddedAt)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get tracked wallet: %w", err)
	}

	return &w, nil
}

// ListActive retrieves all wallets with active status.
func (s *WalletStore) ListActive(ctx context.Context) ([]*domain.TrackedWallet, error) {
	query := `
		SELECT address, chain, source, status, added_at
		FROM tracked_wallet
		WHERE status = 'active'
		ORDER BY added_at ASC, address ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list active wallets: %w", err)
	}
	defer rows.Close()

	var out []*domain.TrackedWallet
	for rows.Next() {
		var w domain.TrackedWallet
		if err := rows.Scan(&w.Address, &w.Chain, &w.Source, &w.Status, &w.AddedAt); err != nil {
			return nil, fmt.Errorf("scan wallet row: %w", err)
		}
		out = append(out, &w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wallet rows: %w", err)
	}

	return out, nil
}

// MarkMigrated sets a wallet's status to migrated.
func (s *WalletStore) MarkMigrated(ctx context.Context, address string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE tracked_wallet SET status = 'migrated' WHERE address = $1
	`, address)
	if err != nil {
		return fmt.Errorf("mark wallet migrated: %w", err)
	}

	return nil
}
