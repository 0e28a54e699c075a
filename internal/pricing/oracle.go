package pricing

import (
	"context"

	"github.com/sirupsen/logrus"

	"smart-wallet-engine/internal/providers"
)

// WrappedNativeMint is the contract the market provider quotes the native
// asset under.
const WrappedNativeMint = "So11111111111111111111111111111111111111112"

// stablecoins are pinned to 1.0 without a provider call.
var stablecoins = map[string]bool{
	"USDC":  true,
	"USDT":  true,
	"DAI":   true,
	"USDH":  true,
	"PYUSD": true,
}

// nativeSymbols resolve through the wrapped native mint instead of their own
// contract; holdings report them under synthetic contracts the market
// provider does not know.
var nativeSymbols = map[string]bool{
	"SOL":  true,
	"WSOL": true,
}

// Oracle resolves current token prices for ledger recomputation.
type Oracle struct {
	market         providers.MarketDataProvider
	cache          Cache
	ceiling        float64
	nativeFallback float64
	log            *logrus.Logger
}

// NewOracle creates a price oracle. A price at or above ceiling is treated
// as an oracle glitch and clamped to 0.
func NewOracle(market providers.MarketDataProvider, cache Cache, ceiling, nativeFallback float64, log *logrus.Logger) *Oracle {
	return &Oracle{
		market:         market,
		cache:          cache,
		ceiling:        ceiling,
		nativeFallback: nativeFallback,
		log:            log,
	}
}

// Price resolves the current USD price for a token. Stablecoins are pinned
// to 1.0; the native asset resolves through the wrapped mint with a fixed
// fallback when the provider has no quote; unknown tokens resolve to 0.
func (o *Oracle) Price(ctx context.Context, symbol, contract string) (float64, error) {
	if stablecoins[symbol] {
		return 1.0, nil
	}

	lookup := contract
	if nativeSymbols[symbol] {
		lookup = WrappedNativeMint
	}

	if price, ok := o.cache.Get(ctx, lookup); ok {
		return price, nil
	}

	data, err := o.market.TokenMarketData(ctx, lookup)
	if err != nil {
		if nativeSymbols[symbol] {
			o.log.WithFields(logrus.Fields{
				"symbol": symbol,
				"error":  err.Error(),
			}).Warn("native price lookup failed, using fallback")
			return o.nativeFallback, nil
		}
		return 0, err
	}
	if data == nil {
		if nativeSymbols[symbol] {
			return o.nativeFallback, nil
		}
		return 0, nil
	}

	price := data.PriceUSD
	if price >= o.ceiling {
		o.log.WithFields(logrus.Fields{
			"symbol":   symbol,
			"contract": contract,
			"price":    price,
		}).Warn("price above sanity ceiling, clamped to 0")
		price = 0
	}

	o.cache.Set(ctx, lookup, price)
	return price, nil
}
