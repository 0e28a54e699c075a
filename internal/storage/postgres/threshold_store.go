package postgres

import (
	"context"
	"fmt"

	"smart-wallet-engine/internal/domain"
	"smart-wallet-engine/internal/storage"
)

// ThresholdStore implements storage.ThresholdStore using PostgreSQL.
type ThresholdStore struct {
	pool *Pool
}

// NewThresholdStore creates a new ThresholdStore.
func NewThresholdStore(pool *Pool) *ThresholdStore {
	return &ThresholdStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ThresholdStore = (*ThresholdStore)(nil)

// Upsert installs the wallet's result, replacing any previous one.
func (s *ThresholdStore) Upsert(ctx context.Context, res *domain.OptimalThresholdResult) error {
	query := `
		INSERT INTO wallet_threshold_result (
			wallet, optimal_tier, quality, status, reliable_tiers, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (wallet) DO UPDATE SET
			optimal_tier = EXCLUDED.optimal_tier,
			quality = EXCLUDED.quality,
			status = EXCLUDED.status,
			reliable_tiers = EXCLUDED.reliable_tiers,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.pool.Exec(ctx, query,
		res.Wallet,
		res.OptimalTier,
		res.Quality,
		res.Status,
		res.ReliableTiers,
		res.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert threshold result: %w", err)
	}

	return nil
}

// Get retrieves a wallet's result.
func (s *ThresholdStore) Get(ctx context.Context, wallet string) (*domain.OptimalThresholdResult, error) {
	query := `
		SELECT wallet, optimal_tier, quality, status, reliable_tiers, updated_at
		FROM wallet_threshold_result
		WHERE wallet = $1
	`

	var res domain.OptimalThresholdResult
	err := s.pool.QueryRow(ctx, query, wallet).Scan(
		&res.Wallet,
		&res.OptimalTier,
		&res.Quality,
		&res.Status,
		&res.ReliableTiers,
		&res.UpdatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get threshold result: %w", err)
	}

	return &res, nil
}

// ListQualified retrieves results with a usable tier and sufficient quality.
func (s *ThresholdStore) ListQualified(ctx context.Context, minQuality float64) ([]*domain.OptimalThresholdResult, error) {
	query := `
		SELECT wallet, optimal_tier, quality, status, reliable_tiers, updated_at
		FROM wallet_threshold_result
		WHERE optimal_tier > 0 AND quality >= $1
		ORDER BY quality DESC, wallet ASC
	`

	rows, err := s.pool.Query(ctx, query, minQuality)
	if err != nil {
		return nil, fmt.Errorf("list qualified thresholds: %w", err)
	}
	defer rows.Close()

	var out []*domain.OptimalThresholdResult
	for rows.Next() {
		var res domain.OptimalThresholdResult
		err := rows.Scan(
			&res.Wallet,
			&res.OptimalTier,
			&res.Quality,
			&res.Status,
			&res.ReliableTiers,
			&res.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan threshold row: %w", err)
		}
		out = append(out, &res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate threshold rows: %w", err)
	}

	return out, nil
}
