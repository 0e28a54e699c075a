package providers

import (
	"context"
	"fmt"
	"net/url"

	"smart-wallet-engine/internal/domain"
)

// MarketClient implements MarketDataProvider over the market-data HTTP API.
type MarketClient struct {
	http *httpClient
}

// NewMarketClient creates a new market-data client.
func NewMarketClient(baseURL string, keys *KeyRing, opts ...ClientOption) *MarketClient {
	return &MarketClient{http: newHTTPClient("market_data", baseURL, keys, opts...)}
}

var _ MarketDataProvider = (*MarketClient)(nil)

type tokenOverviewResponse struct {
	Success bool `json:"success"`
	Data    *struct {
		Price     float64 `json:"price"`
		MarketCap float64 `json:"mc"`
		Liquidity float64 `json:"liquidity"`
		Volume24h float64 `json:"v24hUSD"`
		Buys24h   int     `json:"buy24h"`
		Sells24h  int     `json:"sell24h"`
	} `json:"data"`
}

// TokenMarketData returns the market snapshot for a contract. A successful
// response with no data means the provider does not know the token; that is
// reported as (nil, nil), not an error.
func (c *MarketClient) TokenMarketData(ctx context.Context, contract string) (*domain.MarketData, error) {
	query := url.Values{"address": {contract}}

	var resp tokenOverviewResponse
	if err := c.http.getJSON(ctx, "/defi/token_overview", query, &resp); err != nil {
		return nil, fmt.Errorf("token overview %s: %w", contract, err)
	}

	if !resp.Success || resp.Data == nil {
		return nil, nil
	}

	return &domain.MarketData{
		Contract:  contract,
		PriceUSD:  resp.Data.Price,
		MarketCap: resp.Data.MarketCap,
		Liquidity: resp.Data.Liquidity,
		Volume24h: resp.Data.Volume24h,
		Buys24h:   resp.Data.Buys24h,
		Sells24h:  resp.Data.Sells24h,
	}, nil
}
