package postgres

import (
	"context"
	"fmt"

	"smart-wallet-engine/internal/domain"
	"smart-wallet-engine/internal/storage"
)

// TierProfileStore implements storage.TierProfileStore using PostgreSQL.
type TierProfileStore struct {
	pool *Pool
}

// NewTierProfileStore creates a new TierProfileStore.
func NewTierProfileStore(pool *Pool) *TierProfileStore {
	return &TierProfileStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TierProfileStore = (*TierProfileStore)(nil)

// Get retrieves a wallet's tier profile, tiers ascending.
func (s *TierProfileStore) Get(ctx context.Context, wallet string) (*domain.WalletTierProfile, error) {
	query := `
		SELECT tier, roi_percent, winrate_percent, trades, wins, losses, neutrals
		FROM wallet_tier_profile
		WHERE wallet = $1
		ORDER BY tier ASC
	`

	rows, err := s.pool.Query(ctx, query, wallet)
	if err != nil {
		return nil, fmt.Errorf("get tier profile: %w", err)
	}
	defer rows.Close()

	profile := &domain.WalletTierProfile{Wallet: wallet}
	for rows.Next() {
		var t domain.TierStats
		err := rows.Scan(
			&t.Tier,
			&t.ROIPercent,
			&t.WinRatePercent,
			&t.Trades,
			&t.Wins,
			&t.Losses,
			&t.Neutrals,
		)
		if err != nil {
			return nil, fmt.Errorf("scan tier row: %w", err)
		}
		profile.Tiers = append(profile.Tiers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tier rows: %w", err)
	}

	if len(profile.Tiers) == 0 {
		return nil, storage.ErrNotFound
	}

	return profile, nil
}

// Upsert replaces a wallet's tier rows in one transaction.
func (s *TierProfileStore) Upsert(ctx context.Context, profile *domain.WalletTierProfile) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM wallet_tier_profile WHERE wallet = $1`, profile.Wallet); err != nil {
		return fmt.Errorf("clear tier profile: %w", err)
	}

	insert := `
		INSERT INTO wallet_tier_profile (
			wallet, tier, roi_percent, winrate_percent, trades, wins, losses, neutrals
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	for _, t := range profile.Tiers {
		_, err := tx.Exec(ctx, insert,
			profile.Wallet,
			t.Tier,
			t.ROIPercent,
			t.WinRatePercent,
			t.Trades,
			t.Wins,
			t.Losses,
			t.Neutrals,
		)
		if err != nil {
			return fmt.Errorf("insert tier row: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}
