package consensus

import (
	"context"
	"fmt"
	"time"

	"smart-wallet-engine/internal/domain"
	"smart-wallet-engine/internal/providers"
)

// Performance bucket boundaries (percent change since formation).
const (
	moonshotMin = 100.0
	profitMin   = 20.0
	drawdownMax = -20.0
)

// LivePerformance recomputes a signal's performance for presentation from
// the current market price.
func LivePerformance(ctx context.Context, market providers.MarketDataProvider, sig *domain.ConsensusSignal) (*domain.SignalPerformance, error) {
	data, err := market.TokenMarketData(ctx, sig.Contract)
	if err != nil {
		return nil, fmt.Errorf("market data %s: %w", sig.TokenSymbol, err)
	}
	if data == nil {
		return nil, fmt.Errorf("no market data for %s", sig.TokenSymbol)
	}
	return ComputePerformance(sig, data.PriceUSD, time.Now().UnixMilli()), nil
}

// ComputePerformance derives the qualitative performance of a signal at the
// given price and instant.
func ComputePerformance(sig *domain.ConsensusSignal, currentPrice float64, now int64) *domain.SignalPerformance {
	perf := &domain.SignalPerformance{
		EntryPrice:   sig.AvgEntryPrice,
		CurrentPrice: currentPrice,
		DaysHeld:     float64(now-sig.FormedAt) / float64(24*time.Hour/time.Millisecond),
	}

	if sig.AvgEntryPrice > 0 {
		perf.ChangePercent = (currentPrice - sig.AvgEntryPrice) / sig.AvgEntryPrice * 100
	}

	switch {
	case perf.ChangePercent >= moonshotMin:
		perf.Status = domain.PerfMoonshot
	case perf.ChangePercent >= profitMin:
		perf.Status = domain.PerfProfit
	case perf.ChangePercent <= drawdownMax:
		perf.Status = domain.PerfDrawdown
	default:
		perf.Status = domain.PerfFlat
	}
	return perf
}
