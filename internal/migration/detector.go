// Package migration detects wallets moving the bulk of their holdings to a
// new address and carries cost basis across the move.
package migration

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"smart-wallet-engine/internal/backfill"
	"smart-wallet-engine/internal/domain"
	"smart-wallet-engine/internal/idhash"
	"smart-wallet-engine/internal/providers"
	"smart-wallet-engine/internal/storage"
)

// defaultChain is used when the migrating wallet was never registered and
// carries no chain of its own.
const defaultChain = "solana"

// Config holds the migration thresholds.
type Config struct {
	LookbackDays    int     // outbound transfer history window
	SubWindowDays   int     // recent slice of the window that counts
	TransferPercent float64 // share of portfolio that must have moved
}

// Detector evaluates one wallet at a time for a qualifying migration.
type Detector struct {
	wallets    providers.WalletDataProvider
	lookup     providers.AddressTypeLookup
	txs        storage.TransactionStore
	migrations storage.MigrationStore
	registry   storage.WalletStore
	backfiller *backfill.Backfiller
	cfg        Config
	log        *logrus.Logger
}

// New creates a migration Detector.
func New(
	wallets providers.WalletDataProvider,
	lookup providers.AddressTypeLookup,
	txs storage.TransactionStore,
	migrations storage.MigrationStore,
	registry storage.WalletStore,
	backfiller *backfill.Backfiller,
	cfg Config,
	log *logrus.Logger,
) *Detector {
	return &Detector{
		wallets:    wallets,
		lookup:     lookup,
		txs:        txs,
		migrations: migrations,
		registry:   registry,
		backfiller: backfiller,
		cfg:        cfg,
		log:        log,
	}
}

// destination aggregates the sub-window's outbound value toward one address.
type destination struct {
	address    string
	totalUSD   float64
	latestAt   int64
	tokens     map[string]*domain.MigratedToken // by contract
	tokenOrder []string
}

// CheckWallet evaluates one wallet. It returns the recorded migration, or
// nil when the wallet does not qualify. An already-recorded old→new pair is
// absorbed silently.
func (d *Detector) CheckWallet(ctx context.Context, wallet string) (*domain.WalletMigration, error) {
	now := time.Now().UnixMilli()
	windowStart := now - int64(d.cfg.LookbackDays)*24*int64(time.Hour/time.Millisecond)
	subWindowStart := now - int64(d.cfg.SubWindowDays)*24*int64(time.Hour/time.Millisecond)

	transfers, err := d.wallets.OutboundTransfers(ctx, wallet, windowStart)
	if err != nil {
		return nil, fmt.Errorf("outbound transfers %s: %w", wallet, err)
	}

	dest := largestDestination(transfers, subWindowStart)
	if dest == nil || dest.address == wallet {
		return nil, nil
	}

	portfolio, err := d.wallets.PortfolioValue(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("portfolio value %s: %w", wallet, err)
	}

	// A fully drained wallet reports a near-zero portfolio; everything it
	// had went out.
	pct := 1.0
	if portfolio > 0 {
		pct = dest.totalUSD / portfolio
	}
	if pct < d.cfg.TransferPercent {
		return nil, nil
	}

	exists, err := d.migrations.ExistsPair(ctx, wallet, dest.address)
	if err != nil {
		return nil, fmt.Errorf("migration pair check: %w", err)
	}
	if exists {
		return nil, nil
	}

	// Fail closed: only a positively verified wallet destination counts.
	// Verification failure or a contract result excludes the candidate.
	class, err := d.lookup.Classify(ctx, dest.address)
	if err != nil || class != domain.AddressWallet {
		d.log.WithFields(logrus.Fields{
			"wallet":      wallet,
			"destination": dest.address,
			"class":       string(class),
		}).Info("destination not verified as wallet, migration rejected")
		return nil, nil
	}

	if err := d.accept(ctx, wallet, dest); err != nil {
		return nil, err
	}

	m := &domain.WalletMigration{
		MigrationID:     idhash.ComputeMigrationID(wallet, dest.address, dest.latestAt),
		OldWallet:       wallet,
		NewWallet:       dest.address,
		MigratedAt:      dest.latestAt,
		TotalValueUSD:   dest.totalUSD,
		TransferPercent: pct,
		Validated:       true,
		DetectedAt:      now,
	}
	for _, contract := range dest.tokenOrder {
		m.Tokens = append(m.Tokens, *dest.tokens[contract])
	}

	if err := d.migrations.Insert(ctx, m); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil, nil
		}
		return nil, fmt.Errorf("store migration: %w", err)
	}

	d.log.WithFields(logrus.Fields{
		"old_wallet": wallet,
		"new_wallet": dest.address,
		"value_usd":  dest.totalUSD,
		"percent":    pct,
	}).Info("wallet migration recorded")

	return m, nil
}

// accept registers the destination, backfills the transferred tokens and
// carries the cost basis over.
func (d *Detector) accept(ctx context.Context, wallet string, dest *destination) error {
	// The destination lives on the same chain as the wallet it drained.
	chain := defaultChain
	if old, err := d.registry.Get(ctx, wallet); err == nil {
		chain = old.Chain
	}

	err := d.registry.Register(ctx, &domain.TrackedWallet{
		Address: dest.address,
		Chain:   chain,
		Source:  domain.WalletSourceMigration,
		Status:  domain.WalletStatusActive,
		AddedAt: time.Now().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("register destination %s: %w", dest.address, err)
	}
	if err := d.registry.MarkMigrated(ctx, wallet); err != nil {
		return fmt.Errorf("mark migrated %s: %w", wallet, err)
	}

	for _, contract := range dest.tokenOrder {
		token := dest.tokens[contract]
		if _, err := d.backfiller.BackfillToken(ctx, dest.address, token.TokenSymbol, contract); err != nil {
			d.log.WithFields(logrus.Fields{
				"wallet": dest.address,
				"token":  token.TokenSymbol,
				"error":  err.Error(),
			}).Warn("destination backfill failed, skipping token")
			continue
		}
		inherited, err := InheritCostBasis(ctx, d.txs, wallet, dest.address, contract)
		if err != nil {
			d.log.WithFields(logrus.Fields{
				"wallet": dest.address,
				"token":  token.TokenSymbol,
				"error":  err.Error(),
			}).Warn("cost-basis inheritance failed, skipping token")
			continue
		}
		if inherited > 0 {
			d.log.WithFields(logrus.Fields{
				"old_wallet": wallet,
				"new_wallet": dest.address,
				"token":      token.TokenSymbol,
				"rows":       inherited,
			}).Debug("cost basis inherited")
		}
	}
	return nil
}

// largestDestination aggregates sub-window transfers by counterparty and
// returns the one that received the most value, nil when nothing qualifies.
func largestDestination(transfers []domain.TransferRecord, subWindowStart int64) *destination {
	byAddress := make(map[string]*destination)
	for _, rec := range transfers {
		if rec.Timestamp < subWindowStart || rec.Counterparty == "" {
			continue
		}
		if rec.Kind != domain.KindSend {
			continue
		}

		dest, ok := byAddress[rec.Counterparty]
		if !ok {
			dest = &destination{
				address: rec.Counterparty,
				tokens:  make(map[string]*domain.MigratedToken),
			}
			byAddress[rec.Counterparty] = dest
		}

		value := math.Abs(rec.ValueUSD)
		dest.totalUSD += value
		if rec.Timestamp > dest.latestAt {
			dest.latestAt = rec.Timestamp
		}

		token, ok := dest.tokens[rec.Contract]
		if !ok {
			token = &domain.MigratedToken{
				TokenSymbol: rec.TokenSymbol,
				Contract:    rec.Contract,
			}
			dest.tokens[rec.Contract] = token
			dest.tokenOrder = append(dest.tokenOrder, rec.Contract)
		}
		token.Quantity += math.Abs(rec.Quantity)
		token.ValueUSD += value
	}

	var best *destination
	for _, dest := range byAddress {
		if best == nil || dest.totalUSD > best.totalUSD ||
			(dest.totalUSD == best.totalUSD && dest.address < best.address) {
			best = dest
		}
	}
	return best
}
