package migration

import (
	"context"
	"fmt"

	"smart-wallet-engine/internal/domain"
	"smart-wallet-engine/internal/storage"
)

// InheritCostBasis writes the old wallet's weighted-average buy price onto
// the destination's not-yet-priced "in" transactions for one token. The
// store enforces write-once: rows that already carry an inherited price are
// untouched, so re-running inheritance is a no-op. Returns the number of
// rows priced.
func InheritCostBasis(ctx context.Context, txs storage.TransactionStore, oldWallet, newWallet, contract string) (int, error) {
	buys, err := txs.GetBuys(ctx, oldWallet, contract)
	if err != nil {
		return 0, fmt.Errorf("load source buys %s/%s: %w", oldWallet, contract, err)
	}

	avg := weightedAvgBuyPrice(buys)
	if avg <= 0 {
		return 0, nil
	}

	updated, err := txs.SetInheritedPrice(ctx, newWallet, contract, avg)
	if err != nil {
		return 0, fmt.Errorf("inherit price %s/%s: %w", newWallet, contract, err)
	}
	return updated, nil
}

// weightedAvgBuyPrice is total invested over total quantity bought.
func weightedAvgBuyPrice(buys []*domain.Transaction) float64 {
	totalValue := 0.0
	totalQty := 0.0
	for _, tx := range buys {
		totalValue += tx.EffectiveValue()
		totalQty += tx.Quantity
	}
	if totalQty <= 0 {
		return 0
	}
	return totalValue / totalQty
}
