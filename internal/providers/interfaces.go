package providers

import (
	"context"

	"smart-wallet-engine/internal/domain"
)

// TransactionPage is one page of a wallet's token transaction history.
// An empty NextCursor means the history is exhausted.
type TransactionPage struct {
	Records    []domain.TransferRecord
	NextCursor string
}

// WalletDataProvider exposes wallet holdings and transaction history.
type WalletDataProvider interface {
	// Holdings returns the wallet's current portfolio.
	Holdings(ctx context.Context, address string) ([]domain.WalletHolding, error)

	// TokenTransactions returns one page of the wallet's history for a
	// token. Pass an empty cursor for the first page.
	TokenTransactions(ctx context.Context, address, contract, cursor string) (*TransactionPage, error)

	// OutboundTransfers returns the wallet's outbound transfers since the
	// given timestamp (ms).
	OutboundTransfers(ctx context.Context, address string, since int64) ([]domain.TransferRecord, error)

	// PortfolioValue returns the wallet's total portfolio value in USD.
	PortfolioValue(ctx context.Context, address string) (float64, error)
}

// MarketDataProvider exposes token market snapshots.
type MarketDataProvider interface {
	// TokenMarketData returns the market snapshot for a contract, or
	// (nil, nil) when the provider has no data for it.
	TokenMarketData(ctx context.Context, contract string) (*domain.MarketData, error)
}

// AddressTypeLookup classifies an address as wallet or contract.
// Implementations return AddressUnknown, never an arbitrary guess, when
// classification fails.
type AddressTypeLookup interface {
	Classify(ctx context.Context, address string) (domain.AddressClass, error)
}
