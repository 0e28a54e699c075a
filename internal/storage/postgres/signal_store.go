package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"smart-wallet-engine/internal/domain"
	"smart-wallet-engine/internal/storage"
)

// SignalStore implements storage.SignalStore using PostgreSQL.
// Whale details and the formation log are stored as JSONB.
type SignalStore struct {
	pool *Pool
}

// NewSignalStore creates a new SignalStore.
func NewSignalStore(pool *Pool) *SignalStore {
	return &SignalStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SignalStore = (*SignalStore)(nil)

// Insert adds a signal. Returns ErrDuplicateKey if signal_id exists.
func (s *SignalStore) Insert(ctx context.Context, sig *domain.ConsensusSignal) error {
	whales, err := json.Marshal(sig.Whales)
	if err != nil {
		return fmt.Errorf("marshal whales: %w", err)
	}
	formationLog, err := json.Marshal(sig.FormationLog)
	if err != nil {
		return fmt.Errorf("marshal formation log: %w", err)
	}

	query := `
		INSERT INTO consensus_signal (
			signal_id, token_symbol, contract, signal_type,
			whale_count, exceptional_count, normal_count,
			total_invested_usd, avg_entry_price,
			market_cap, liquidity, price_usd, volume_24h,
			formed_at, detected_at, whales, formation_log
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err = s.pool.Exec(ctx, query,
		sig.SignalID,
		sig.TokenSymbol,
		sig.Contract,
		sig.SignalType,
		sig.WhaleCount,
		sig.ExceptionalCount,
		sig.NormalCount,
		sig.TotalInvestedUSD,
		sig.AvgEntryPrice,
		sig.MarketCap,
		sig.Liquidity,
		sig.PriceUSD,
		sig.Volume24h,
		sig.FormedAt,
		sig.DetectedAt,
		whales,
		formationLog,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert consensus signal: %w", err)
	}

	return nil
}

// ExistsSince reports whether a (symbol, contract) signal was emitted at or
// after the given timestamp.
func (s *SignalStore) ExistsSince(ctx context.Context, symbol, contract string, since int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM consensus_signal
			WHERE token_symbol = $1 AND contract = $2 AND detected_at >= $3
		)
	`

	var exists bool
	if err := s.pool.QueryRow(ctx, query, symbol, contract, since).Scan(&exists); err != nil {
		return false, fmt.Errorf("check signal dedup: %w", err)
	}

	return exists, nil
}
