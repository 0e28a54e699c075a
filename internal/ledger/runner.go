package ledger

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"smart-wallet-engine/internal/storage"
)

// PriceSource resolves a token's current USD price.
type PriceSource interface {
	Price(ctx context.Context, symbol, contract string) (float64, error)
}

// Runner recomputes and persists ledger state. Each recompute replaces the
// stored state wholesale; on failure the prior state is retained.
type Runner struct {
	txs    storage.TransactionStore
	ledger storage.LedgerStore
	prices PriceSource
	guards Guards
	log    *logrus.Logger
}

// NewRunner creates a ledger Runner.
func NewRunner(txs storage.TransactionStore, ledger storage.LedgerStore, prices PriceSource, guards Guards, log *logrus.Logger) *Runner {
	return &Runner{
		txs:    txs,
		ledger: ledger,
		prices: prices,
		guards: guards,
		log:    log,
	}
}

// RecomputeToken re-derives and stores the state for one wallet/token.
// A token with no transactions is skipped.
func (r *Runner) RecomputeToken(ctx context.Context, wallet, contract string) error {
	txs, err := r.txs.GetByWalletToken(ctx, wallet, contract)
	if err != nil {
		return fmt.Errorf("load transactions %s/%s: %w", wallet, contract, err)
	}
	if len(txs) == 0 {
		return nil
	}
	symbol := txs[0].TokenSymbol

	price, err := r.prices.Price(ctx, symbol, contract)
	if err != nil {
		return fmt.Errorf("resolve price %s: %w", symbol, err)
	}

	state := Compute(wallet, symbol, contract, txs, price, r.guards, r.log)

	if err := r.ledger.Replace(ctx, state); err != nil {
		return fmt.Errorf("replace ledger %s/%s: %w", wallet, symbol, err)
	}
	return nil
}

// RecomputeWallet re-derives state for every token the wallet has
// transacted. Per-token failures are logged and skipped; the returned count
// is the number of tokens successfully recomputed.
func (r *Runner) RecomputeWallet(ctx context.Context, wallet string) (int, error) {
	contracts, err := r.txs.DistinctContracts(ctx, wallet)
	if err != nil {
		return 0, fmt.Errorf("list contracts %s: %w", wallet, err)
	}

	done := 0
	for _, contract := range contracts {
		if err := r.RecomputeToken(ctx, wallet, contract); err != nil {
			r.log.WithFields(logrus.Fields{
				"wallet":   wallet,
				"contract": contract,
				"error":    err.Error(),
			}).Warn("ledger recompute failed, skipping token")
			continue
		}
		done++
	}
	return done, nil
}
