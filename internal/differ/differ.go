// Package differ compares freshly fetched wallet snapshots to the persisted
// current snapshot and emits classified position change events.
package differ

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"smart-wallet-engine/internal/domain"
	"smart-wallet-engine/internal/providers"
	"smart-wallet-engine/internal/storage"
)

// epsilon guards the ratio denominator against a zero previous amount.
const epsilon = 1e-9

// Config holds the dust and significance thresholds.
type Config struct {
	MinQuantity    float64 // minimum per-token quantity to be considered held
	MinUSD         float64 // minimum per-token USD value to be considered held
	RatioThreshold float64 // relative amount change required for ACC/RED
	USDFloor       float64 // absolute USD change required for ACC/RED
}

// Differ derives position change events for one wallet per session.
type Differ struct {
	wallets   providers.WalletDataProvider
	snapshots storage.SnapshotStore
	events    storage.ChangeEventStore
	cfg       Config
	log       *logrus.Logger
}

// New creates a Differ.
func New(wallets providers.WalletDataProvider, snapshots storage.SnapshotStore, events storage.ChangeEventStore, cfg Config, log *logrus.Logger) *Differ {
	return &Differ{
		wallets:   wallets,
		snapshots: snapshots,
		events:    events,
		cfg:       cfg,
		log:       log,
	}
}

// Run fetches the wallet's holdings, diffs them against the persisted
// current snapshot, records the change events and flips the snapshot.
// Returned events are exactly those newly recorded in this session;
// re-detections absorbed by the store are not returned again.
func (d *Differ) Run(ctx context.Context, sessionID, wallet string) ([]*domain.PositionChangeEvent, error) {
	holdings, err := d.wallets.Holdings(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("fetch holdings %s: %w", wallet, err)
	}

	fresh := make(map[string]domain.WalletHolding)
	for _, h := range holdings {
		if h.Amount < d.cfg.MinQuantity || h.ValueUSD < d.cfg.MinUSD {
			continue
		}
		fresh[h.Contract] = h
	}

	prevRows, err := d.snapshots.GetCurrent(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("load current snapshot %s: %w", wallet, err)
	}
	prev := make(map[string]*domain.PositionSnapshotRow, len(prevRows))
	for _, row := range prevRows {
		prev[row.Contract] = row
	}

	now := time.Now().UnixMilli()
	var candidates []*domain.PositionChangeEvent

	// Added and common tokens.
	for contract, h := range fresh {
		old, held := prev[contract]
		if !held {
			changeType := domain.ChangeNew
			hasHistory, err := d.snapshots.HasHistory(ctx, wallet, contract)
			if err != nil {
				return nil, fmt.Errorf("check history %s/%s: %w", wallet, contract, err)
			}
			if hasHistory {
				changeType = domain.ChangeRetour
			}
			candidates = append(candidates, &domain.PositionChangeEvent{
				SessionID:   sessionID,
				Wallet:      wallet,
				TokenSymbol: h.TokenSymbol,
				Contract:    contract,
				ChangeType:  changeType,
				NewAmount:   h.Amount,
				NewValueUSD: h.ValueUSD,
				DetectedAt:  now,
			})
			continue
		}

		deltaAmount := h.Amount - old.Amount
		deltaUSD := h.ValueUSD - old.ValueUSD
		ratio := math.Abs(deltaAmount) / math.Max(old.Amount, epsilon)

		// Both gates must hold: a ratio spike on a dust position or a
		// price-only USD drift alone never emits.
		if ratio <= d.cfg.RatioThreshold || math.Abs(deltaUSD) <= d.cfg.USDFloor {
			continue
		}

		changeType := domain.ChangeAccumulation
		if deltaAmount < 0 {
			changeType = domain.ChangeReduction
		}
		candidates = append(candidates, &domain.PositionChangeEvent{
			SessionID:   sessionID,
			Wallet:      wallet,
			TokenSymbol: h.TokenSymbol,
			Contract:    contract,
			ChangeType:  changeType,
			OldAmount:   old.Amount,
			NewAmount:   h.Amount,
			OldValueUSD: old.ValueUSD,
			NewValueUSD: h.ValueUSD,
			DetectedAt:  now,
		})
	}

	// Removed tokens.
	for contract, old := range prev {
		if _, stillHeld := fresh[contract]; stillHeld {
			continue
		}
		candidates = append(candidates, &domain.PositionChangeEvent{
			SessionID:   sessionID,
			Wallet:      wallet,
			TokenSymbol: old.TokenSymbol,
			Contract:    contract,
			ChangeType:  domain.ChangeExit,
			OldAmount:   old.Amount,
			OldValueUSD: old.ValueUSD,
			DetectedAt:  now,
		})
	}

	var emitted []*domain.PositionChangeEvent
	for _, ev := range candidates {
		inserted, err := d.events.Insert(ctx, ev)
		if err != nil {
			return nil, fmt.Errorf("record change event %s/%s: %w", wallet, ev.TokenSymbol, err)
		}
		if inserted {
			emitted = append(emitted, ev)
		}
	}

	// Flip only after events are durably recorded: a crash between insert
	// and flip re-detects the same events next run and the store absorbs
	// them.
	newRows := make([]*domain.PositionSnapshotRow, 0, len(fresh))
	for _, h := range fresh {
		newRows = append(newRows, &domain.PositionSnapshotRow{
			Wallet:      wallet,
			TokenSymbol: h.TokenSymbol,
			Contract:    h.Contract,
			Chain:       h.Chain,
			Amount:      h.Amount,
			ValueUSD:    h.ValueUSD,
			SnapshotAt:  now,
		})
	}
	if err := d.snapshots.ReplaceCurrent(ctx, wallet, newRows); err != nil {
		return nil, fmt.Errorf("flip snapshot %s: %w", wallet, err)
	}

	d.log.WithFields(logrus.Fields{
		"wallet":  wallet,
		"session": sessionID,
		"events":  len(emitted),
		"tokens":  len(fresh),
	}).Info("position diff complete")

	return emitted, nil
}
