// Package ledger derives per wallet/token cost-basis state from the
// append-only transaction history.
package ledger

import (
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"smart-wallet-engine/internal/domain"
)

// Guards bound the values a transaction may contribute to the aggregates.
// Out-of-bound rows are oracle or provider glitches: dropped and logged,
// never propagated into P&L.
type Guards struct {
	PriceCeiling   float64
	ValueCeiling   float64
	AirdropEpsilon float64
}

// Compute derives the ledger state for one wallet/token from its full
// transaction list. Only sums are used, so input order does not affect the
// result and replayed transactions (deduplicated at insert) cannot skew it.
func Compute(wallet, symbol, contract string, txs []*domain.Transaction, currentPrice float64, g Guards, log *logrus.Logger) *domain.TokenLedgerState {
	state := &domain.TokenLedgerState{
		Wallet:      wallet,
		TokenSymbol: symbol,
		Contract:    contract,
		UpdatedAt:   time.Now().UnixMilli(),
	}

	for _, tx := range txs {
		price := tx.EffectivePrice()
		value := tx.EffectiveValue()

		if price > g.PriceCeiling || math.Abs(value) > g.ValueCeiling {
			log.WithFields(logrus.Fields{
				"wallet": wallet,
				"token":  symbol,
				"tx":     tx.TxHash,
				"price":  price,
				"value":  value,
			}).Warn("transaction exceeds sanity ceiling, excluded from ledger")
			continue
		}

		switch tx.Direction {
		case domain.DirectionIn:
			state.TotalBought += tx.Quantity
			state.TotalInvested += value
			state.EntryCount++
		case domain.DirectionOut:
			state.TotalSold += math.Abs(tx.Quantity)
			state.TotalRealized += math.Abs(value)
			state.ExitCount++
		}
	}

	state.Remaining = state.TotalBought - state.TotalSold

	if state.TotalBought > 0 {
		state.AvgBuyPrice = state.TotalInvested / state.TotalBought
	}
	if state.TotalSold > 0 {
		state.AvgSellPrice = state.TotalRealized / state.TotalSold
	}

	if currentPrice >= g.PriceCeiling {
		currentPrice = 0
	}
	state.CurrentPrice = currentPrice
	if state.Remaining > 0 {
		state.CurrentValue = state.Remaining * currentPrice
	}

	state.TotalGain = state.TotalRealized + state.CurrentValue
	if state.TotalInvested > 0 {
		state.ROIPercent = (state.TotalGain - state.TotalInvested) / state.TotalInvested * 100
	}
	state.IsAirdrop = state.TotalInvested <= g.AirdropEpsilon

	return state
}
