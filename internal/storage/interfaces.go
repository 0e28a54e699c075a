package storage

import (
	"context"

	"smart-wallet-engine/internal/domain"
)

// TransactionStore provides access to the append-only transactions ledger.
type TransactionStore interface {
	// InsertBatch adds transactions, silently skipping rows whose
	// (wallet, contract, tx_hash) already exists. Returns the number of
	// rows actually inserted. Replays are no-ops.
	InsertBatch(ctx context.Context, txs []*domain.Transaction) (int, error)

	// GetByWalletToken retrieves all transactions for a wallet/token pair,
	// ordered by timestamp ASC.
	GetByWalletToken(ctx context.Context, wallet, contract string) ([]*domain.Transaction, error)

	// GetBuys retrieves the wallet's "in" transactions for a token,
	// ordered by timestamp ASC.
	GetBuys(ctx context.Context, wallet, contract string) ([]*domain.Transaction, error)

	// GetBuysInWindow retrieves all "in" transactions across wallets within
	// [start, end] (ms, inclusive), ordered by timestamp ASC.
	GetBuysInWindow(ctx context.Context, start, end int64) ([]*domain.Transaction, error)

	// DistinctContracts lists the token contracts a wallet has transacted.
	DistinctContracts(ctx context.Context, wallet string) ([]string, error)

	// SetInheritedPrice writes the inherited unit price onto the wallet's
	// not-yet-priced "in" transactions for a token. Write-once: rows that
	// already carry an inherited price are never touched. Returns the
	// number of rows updated.
	SetInheritedPrice(ctx context.Context, wallet, contract string, price float64) (int, error)
}

// LedgerStore provides access to derived token_ledger state.
type LedgerStore interface {
	// Replace installs the recomputed state for (wallet, contract),
	// overwriting any previous state in one transaction.
	Replace(ctx context.Context, state *domain.TokenLedgerState) error

	// Get retrieves the state for a wallet/token pair. Returns ErrNotFound
	// if never computed.
	Get(ctx context.Context, wallet, contract string) (*domain.TokenLedgerState, error)

	// GetByWallet retrieves all states for a wallet.
	GetByWallet(ctx context.Context, wallet string) ([]*domain.TokenLedgerState, error)
}

// SnapshotStore provides access to position snapshots. The current/previous
// distinction is enforced here: exactly the rows installed by the latest
// ReplaceCurrent carry IsCurrent=true.
type SnapshotStore interface {
	// GetCurrent retrieves the wallet's current snapshot rows.
	GetCurrent(ctx context.Context, wallet string) ([]*domain.PositionSnapshotRow, error)

	// ReplaceCurrent flips the wallet's current rows to non-current and
	// installs rows as the new current snapshot, atomically.
	ReplaceCurrent(ctx context.Context, wallet string, rows []*domain.PositionSnapshotRow) error

	// HasHistory reports whether any snapshot row (current or not) ever
	// existed for (wallet, contract).
	HasHistory(ctx context.Context, wallet, contract string) (bool, error)
}

// ChangeEventStore provides access to session-scoped position change events.
type ChangeEventStore interface {
	// Insert adds an event. Returns false without error when the same
	// (session, wallet, contract, change type) was already recorded:
	// duplicate detection within a session is absorbed, not an error.
	Insert(ctx context.Context, ev *domain.PositionChangeEvent) (bool, error)

	// GetBySession retrieves a wallet's events for a session.
	GetBySession(ctx context.Context, sessionID, wallet string) ([]*domain.PositionChangeEvent, error)

	// Purge deletes a wallet's events for a session after they have been
	// consumed by the history backfill.
	Purge(ctx context.Context, sessionID, wallet string) error
}

// TierProfileStore provides access to externally produced tier profiles.
type TierProfileStore interface {
	// Get retrieves a wallet's tier profile. Returns ErrNotFound if the
	// analytics job has not produced one.
	Get(ctx context.Context, wallet string) (*domain.WalletTierProfile, error)

	// Upsert replaces a wallet's tier rows. Used by the external analytics
	// loader, not by the engine itself.
	Upsert(ctx context.Context, profile *domain.WalletTierProfile) error
}

// ThresholdStore provides access to scorer results.
type ThresholdStore interface {
	// Upsert installs the wallet's result, replacing any previous one.
	Upsert(ctx context.Context, res *domain.OptimalThresholdResult) error

	// Get retrieves a wallet's result. Returns ErrNotFound if never scored.
	Get(ctx context.Context, wallet string) (*domain.OptimalThresholdResult, error)

	// ListQualified retrieves results with a usable tier and quality at or
	// above minQuality.
	ListQualified(ctx context.Context, minQuality float64) ([]*domain.OptimalThresholdResult, error)
}

// SignalStore provides access to emitted consensus signals.
type SignalStore interface {
	// Insert adds a signal. Returns ErrDuplicateKey if signal_id exists.
	Insert(ctx context.Context, sig *domain.ConsensusSignal) error

	// ExistsSince reports whether a signal for (symbol, contract) was
	// emitted at or after the given timestamp (ms).
	ExistsSince(ctx context.Context, symbol, contract string, since int64) (bool, error)
}

// MigrationStore provides access to wallet migration records.
type MigrationStore interface {
	// Insert adds a migration. Returns ErrDuplicateKey if the
	// (old_wallet, new_wallet) pair exists.
	Insert(ctx context.Context, m *domain.WalletMigration) error

	// ExistsPair reports whether a migration old→new was already recorded.
	ExistsPair(ctx context.Context, oldWallet, newWallet string) (bool, error)
}

// WalletStore provides access to the tracked wallet registry.
type WalletStore interface {
	// Register adds a wallet to the watch list. Registering an existing
	// address is absorbed as success.
	Register(ctx context.Context, w *domain.TrackedWallet) error

	// Get retrieves a tracked wallet. Returns ErrNotFound if not tracked.
	Get(ctx context.Context, address string) (*domain.TrackedWallet, error)

	// ListActive retrieves all wallets with active status.
	ListActive(ctx context.Context) ([]*domain.TrackedWallet, error)

	// MarkMigrated sets a wallet's status to migrated.
	MarkMigrated(ctx context.Context, address string) error
}

// SignalArchive is the best-effort analytical archive for emitted signals.
// Archive failures must never block signal emission.
type SignalArchive interface {
	// Archive appends a signal and its formation log.
	Archive(ctx context.Context, sig *domain.ConsensusSignal) error
}
