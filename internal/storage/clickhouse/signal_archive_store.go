package clickhouse

import (
	"context"
	"fmt"

	"smart-wallet-engine/internal/domain"
	"smart-wallet-engine/internal/storage"
)

// SignalArchiveStore implements storage.SignalArchive using ClickHouse.
// Emitted consensus signals are appended for offline analytics: one row per
// signal plus one row per formation step. ClickHouse MergeTree does not
// enforce uniqueness; dedup already happened in the relational store before
// a signal reaches the archive.
type SignalArchiveStore struct {
	conn *Conn
}

// NewSignalArchiveStore creates a new SignalArchiveStore.
func NewSignalArchiveStore(conn *Conn) *SignalArchiveStore {
	return &SignalArchiveStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SignalArchive = (*SignalArchiveStore)(nil)

// Archive appends the signal and its formation log.
func (s *SignalArchiveStore) Archive(ctx context.Context, sig *domain.ConsensusSignal) error {
	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO consensus_signal_archive (
			signal_id, token_symbol, contract, signal_type,
			whale_count, exceptional_count, total_invested_usd,
			avg_entry_price, market_cap, liquidity, formed_at, detected_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare signal batch: %w", err)
	}

	err = batch.Append(
		sig.SignalID,
		sig.TokenSymbol,
		sig.Contract,
		sig.SignalType,
		uint32(sig.WhaleCount),
		uint32(sig.ExceptionalCount),
		sig.TotalInvestedUSD,
		sig.AvgEntryPrice,
		sig.MarketCap,
		sig.Liquidity,
		uint64(sig.FormedAt),
		uint64(sig.DetectedAt),
	)
	if err != nil {
		return fmt.Errorf("append signal: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send signal batch: %w", err)
	}

	if len(sig.FormationLog) == 0 {
		return nil
	}

	steps, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO signal_formation_archive (
			signal_id, step_index, timestamp_ms, wallet, invested_usd, distinct_wallets
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare formation batch: %w", err)
	}

	for i, step := range sig.FormationLog {
		err = steps.Append(
			sig.SignalID,
			uint32(i),
			uint64(step.Timestamp),
			step.Wallet,
			step.InvestedUSD,
			uint32(step.DistinctWallets),
		)
		if err != nil {
			return fmt.Errorf("append formation step: %w", err)
		}
	}

	if err := steps.Send(); err != nil {
		return fmt.Errorf("send formation batch: %w", err)
	}

	return nil
}
