package providers

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"smart-wallet-engine/internal/domain"
)

// WalletClient implements WalletDataProvider and AddressTypeLookup over the
// wallet-data HTTP API.
type WalletClient struct {
	http *httpClient
}

// NewWalletClient creates a new wallet-data client.
func NewWalletClient(baseURL string, keys *KeyRing, opts ...ClientOption) *WalletClient {
	return &WalletClient{http: newHTTPClient("wallet_data", baseURL, keys, opts...)}
}

// Compile-time interface checks.
var (
	_ WalletDataProvider = (*WalletClient)(nil)
	_ AddressTypeLookup  = (*WalletClient)(nil)
)

type holdingsResponse struct {
	Data []struct {
		TokenSymbol  string  `json:"tokenSymbol"`
		TokenAddress string  `json:"tokenAddress"`
		Chain        string  `json:"chain"`
		Amount       float64 `json:"amount"`
		ValueUSD     float64 `json:"valueUsd"`
	} `json:"data"`
}

// Holdings returns the wallet's current portfolio.
func (c *WalletClient) Holdings(ctx context.Context, address string) ([]domain.WalletHolding, error) {
	if err := ValidateAddress(address); err != nil {
		return nil, err
	}

	query := url.Values{"address": {address}}
	var resp holdingsResponse
	if err := c.http.getJSON(ctx, "/account/tokens", query, &resp); err != nil {
		return nil, fmt.Errorf("holdings %s: %w", address, err)
	}

	holdings := make([]domain.WalletHolding, 0, len(resp.Data))
	for _, row := range resp.Data {
		holdings = append(holdings, domain.WalletHolding{
			TokenSymbol: row.TokenSymbol,
			Contract:    row.TokenAddress,
			Chain:       row.Chain,
			Amount:      row.Amount,
			ValueUSD:    row.ValueUSD,
		})
	}
	return holdings, nil
}

type transactionsResponse struct {
	Data []struct {
		TxHash       string  `json:"txHash"`
		TokenSymbol  string  `json:"tokenSymbol"`
		TokenAddress string  `json:"tokenAddress"`
		BlockTime    int64   `json:"blockTime"` // ms
		Direction    string  `json:"direction"`
		Amount       float64 `json:"amount"`
		PriceUSD     float64 `json:"priceUsd"`
		ValueUSD     float64 `json:"valueUsd"`
		Kind         string  `json:"activityType"`
		Counterparty string  `json:"counterparty"`
	} `json:"data"`
	NextCursor string `json:"nextCursor"`
}

// TokenTransactions returns one page of the wallet's token history.
func (c *WalletClient) TokenTransactions(ctx context.Context, address, contract, cursor string) (*TransactionPage, error) {
	if err := ValidateAddress(address); err != nil {
		return nil, err
	}

	query := url.Values{
		"address": {address},
		"token":   {contract},
	}
	if cursor != "" {
		query.Set("cursor", cursor)
	}

	var resp transactionsResponse
	if err := c.http.getJSON(ctx, "/account/token-txs", query, &resp); err != nil {
		return nil, fmt.Errorf("token transactions %s/%s: %w", address, contract, err)
	}

	page := &TransactionPage{NextCursor: resp.NextCursor}
	for _, row := range resp.Data {
		page.Records = append(page.Records, domain.TransferRecord{
			TxHash:       row.TxHash,
			TokenSymbol:  row.TokenSymbol,
			Contract:     row.TokenAddress,
			Timestamp:    row.BlockTime,
			Direction:    row.Direction,
			Quantity:     row.Amount,
			UnitPrice:    row.PriceUSD,
			ValueUSD:     row.ValueUSD,
			Kind:         row.Kind,
			Counterparty: row.Counterparty,
		})
	}
	return page, nil
}

// OutboundTransfers returns the wallet's outbound transfers since the given
// timestamp (ms).
func (c *WalletClient) OutboundTransfers(ctx context.Context, address string, since int64) ([]domain.TransferRecord, error) {
	if err := ValidateAddress(address); err != nil {
		return nil, err
	}

	query := url.Values{
		"address":   {address},
		"direction": {"out"},
		"fromTime":  {strconv.FormatInt(since, 10)},
	}

	var resp transactionsResponse
	if err := c.http.getJSON(ctx, "/account/transfers", query, &resp); err != nil {
		return nil, fmt.Errorf("outbound transfers %s: %w", address, err)
	}

	records := make([]domain.TransferRecord, 0, len(resp.Data))
	for _, row := range resp.Data {
		records = append(records, domain.TransferRecord{
			TxHash:       row.TxHash,
			TokenSymbol:  row.TokenSymbol,
			Contract:     row.TokenAddress,
			Timestamp:    row.BlockTime,
			Direction:    row.Direction,
			Quantity:     row.Amount,
			UnitPrice:    row.PriceUSD,
			ValueUSD:     row.ValueUSD,
			Kind:         row.Kind,
			Counterparty: row.Counterparty,
		})
	}
	return records, nil
}

type portfolioResponse struct {
	Data struct {
		TotalValueUSD float64 `json:"totalValueUsd"`
	} `json:"data"`
}

// PortfolioValue returns the wallet's total portfolio value in USD.
func (c *WalletClient) PortfolioValue(ctx context.Context, address string) (float64, error) {
	if err := ValidateAddress(address); err != nil {
		return 0, err
	}

	query := url.Values{"address": {address}}
	var resp portfolioResponse
	if err := c.http.getJSON(ctx, "/account/portfolio", query, &resp); err != nil {
		return 0, fmt.Errorf("portfolio value %s: %w", address, err)
	}
	return resp.Data.TotalValueUSD, nil
}

type accountDetailResponse struct {
	Data struct {
		Type       string `json:"type"`
		Executable bool   `json:"executable"`
	} `json:"data"`
}

// Classify reports whether an address is a wallet or a contract. Any
// failure, including an unrecognized type string, yields AddressUnknown so
// callers can fail closed.
func (c *WalletClient) Classify(ctx context.Context, address string) (domain.AddressClass, error) {
	if err := ValidateAddress(address); err != nil {
		return domain.AddressUnknown, err
	}

	query := url.Values{"address": {address}}
	var resp accountDetailResponse
	if err := c.http.getJSON(ctx, "/account/detail", query, &resp); err != nil {
		return domain.AddressUnknown, fmt.Errorf("classify %s: %w", address, err)
	}

	if resp.Data.Executable {
		return domain.AddressContract, nil
	}
	switch resp.Data.Type {
	case "account", "wallet", "system_account":
		return domain.AddressWallet, nil
	case "program", "contract", "token_account":
		return domain.AddressContract, nil
	default:
		return domain.AddressUnknown, nil
	}
}
