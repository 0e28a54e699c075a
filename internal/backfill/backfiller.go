// Package backfill pulls full token transaction histories from the
// wallet-data provider into the append-only transactions store.
package backfill

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"smart-wallet-engine/internal/domain"
	"smart-wallet-engine/internal/providers"
	"smart-wallet-engine/internal/storage"
)

// maxPages caps pagination per wallet/token so a provider bug cannot spin a
// pass forever.
const maxPages = 200

// Backfiller ingests token histories page by page. Inserts are idempotent;
// re-backfilling an already ingested token is a no-op.
type Backfiller struct {
	wallets   providers.WalletDataProvider
	txs       storage.TransactionStore
	callPause time.Duration
	log       *logrus.Logger
}

// New creates a Backfiller. callPause is the fixed pause between provider
// calls.
func New(wallets providers.WalletDataProvider, txs storage.TransactionStore, callPause time.Duration, log *logrus.Logger) *Backfiller {
	return &Backfiller{
		wallets:   wallets,
		txs:       txs,
		callPause: callPause,
		log:       log,
	}
}

// BackfillToken ingests the full history for one wallet/token. Returns the
// number of transactions actually inserted (replayed rows are skipped by the
// store).
func (b *Backfiller) BackfillToken(ctx context.Context, wallet, symbol, contract string) (int, error) {
	inserted := 0
	cursor := ""

	for page := 0; page < maxPages; page++ {
		resp, err := b.wallets.TokenTransactions(ctx, wallet, contract, cursor)
		if err != nil {
			return inserted, fmt.Errorf("fetch history %s/%s: %w", wallet, symbol, err)
		}

		if len(resp.Records) > 0 {
			batch := make([]*domain.Transaction, 0, len(resp.Records))
			for _, rec := range resp.Records {
				batch = append(batch, recordToTransaction(wallet, symbol, contract, rec))
			}
			n, err := b.txs.InsertBatch(ctx, batch)
			if err != nil {
				return inserted, fmt.Errorf("insert history %s/%s: %w", wallet, symbol, err)
			}
			inserted += n
		}

		if resp.NextCursor == "" {
			break
		}
		cursor = resp.NextCursor

		select {
		case <-ctx.Done():
			return inserted, ctx.Err()
		case <-time.After(b.callPause):
		}
	}

	b.log.WithFields(logrus.Fields{
		"wallet":   wallet,
		"token":    symbol,
		"inserted": inserted,
	}).Debug("token history backfilled")

	return inserted, nil
}

// BackfillEvents ingests history for every token named by the change events.
// Each event names one wallet/token whose balance moved; a failed token is
// skipped, not fatal.
func (b *Backfiller) BackfillEvents(ctx context.Context, events []*domain.PositionChangeEvent) (int, error) {
	total := 0
	for _, ev := range events {
		n, err := b.BackfillToken(ctx, ev.Wallet, ev.TokenSymbol, ev.Contract)
		total += n
		if err != nil {
			b.log.WithFields(logrus.Fields{
				"wallet": ev.Wallet,
				"token":  ev.TokenSymbol,
				"error":  err.Error(),
			}).Warn("event backfill failed, skipping token")
			continue
		}
	}
	return total, nil
}

// recordToTransaction normalizes a provider record: quantity and value are
// signed by direction regardless of how the provider reports them.
func recordToTransaction(wallet, symbol, contract string, rec domain.TransferRecord) *domain.Transaction {
	qty := rec.Quantity
	val := rec.ValueUSD
	if rec.Direction == domain.DirectionOut {
		if qty > 0 {
			qty = -qty
		}
		if val > 0 {
			val = -val
		}
	} else {
		if qty < 0 {
			qty = -qty
		}
		if val < 0 {
			val = -val
		}
	}

	return &domain.Transaction{
		Wallet:       wallet,
		TokenSymbol:  symbol,
		Contract:     contract,
		TxHash:       rec.TxHash,
		Timestamp:    rec.Timestamp,
		Direction:    rec.Direction,
		Quantity:     qty,
		UnitPrice:    rec.UnitPrice,
		ValueUSD:     val,
		Kind:         rec.Kind,
		Counterparty: rec.Counterparty,
		CreatedAt:    time.Now().UnixMilli(),
	}
}
