// Package stub provides in-memory provider implementations for tests.
package stub

import (
	"context"
	"errors"

	"smart-wallet-engine/internal/domain"
	"smart-wallet-engine/internal/providers"
)

// ErrUnavailable simulates a provider outage.
var ErrUnavailable = errors.New("provider unavailable")

// WalletData implements providers.WalletDataProvider for testing.
type WalletData struct {
	HoldingsByWallet  map[string][]domain.WalletHolding
	HistoryByKey      map[string][]domain.TransferRecord // wallet|contract
	OutboundByWallet  map[string][]domain.TransferRecord
	PortfolioByWallet map[string]float64
	PageSize          int
	Fail              bool
}

// NewWalletData creates an empty stub wallet-data provider.
func NewWalletData() *WalletData {
	return &WalletData{
		HoldingsByWallet:  make(map[string][]domain.WalletHolding),
		HistoryByKey:      make(map[string][]domain.TransferRecord),
		OutboundByWallet:  make(map[string][]domain.TransferRecord),
		PortfolioByWallet: make(map[string]float64),
		PageSize:          100,
	}
}

func historyKey(wallet, contract string) string {
	return wallet + "|" + contract
}

// SetHistory installs a wallet/token transaction history.
func (p *WalletData) SetHistory(wallet, contract string, records []domain.TransferRecord) {
	p.HistoryByKey[historyKey(wallet, contract)] = records
}

// Holdings returns the stubbed portfolio.
func (p *WalletData) Holdings(_ context.Context, address string) ([]domain.WalletHolding, error) {
	if p.Fail {
		return nil, ErrUnavailable
	}
	return p.HoldingsByWallet[address], nil
}

// TokenTransactions pages through the stubbed history. The cursor is the
// numeric offset of the next page.
func (p *WalletData) TokenTransactions(_ context.Context, address, contract, cursor string) (*providers.TransactionPage, error) {
	if p.Fail {
		return nil, ErrUnavailable
	}

	records := p.HistoryByKey[historyKey(address, contract)]
	offset := 0
	if cursor != "" {
		for _, ch := range cursor {
			offset = offset*10 + int(ch-'0')
		}
	}
	if offset >= len(records) {
		return &providers.TransactionPage{}, nil
	}

	end := offset + p.PageSize
	if end > len(records) {
		end = len(records)
	}

	page := &providers.TransactionPage{Records: records[offset:end]}
	if end < len(records) {
		page.NextCursor = itoa(end)
	}
	return page, nil
}

// OutboundTransfers returns the stubbed outbound transfers at or after since.
func (p *WalletData) OutboundTransfers(_ context.Context, address string, since int64) ([]domain.TransferRecord, error) {
	if p.Fail {
		return nil, ErrUnavailable
	}
	var out []domain.TransferRecord
	for _, rec := range p.OutboundByWallet[address] {
		if rec.Timestamp >= since {
			out = append(out, rec)
		}
	}
	return out, nil
}

// PortfolioValue returns the stubbed portfolio value.
func (p *WalletData) PortfolioValue(_ context.Context, address string) (float64, error) {
	if p.Fail {
		return 0, ErrUnavailable
	}
	return p.PortfolioByWallet[address], nil
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// MarketData implements providers.MarketDataProvider for testing.
type MarketData struct {
	ByContract map[string]*domain.MarketData
	Fail       bool
}

// NewMarketData creates an empty stub market-data provider.
func NewMarketData() *MarketData {
	return &MarketData{ByContract: make(map[string]*domain.MarketData)}
}

// TokenMarketData returns the stubbed snapshot, or (nil, nil) when absent.
func (p *MarketData) TokenMarketData(_ context.Context, contract string) (*domain.MarketData, error) {
	if p.Fail {
		return nil, ErrUnavailable
	}
	return p.ByContract[contract], nil
}

// AddressLookup implements providers.AddressTypeLookup for testing.
type AddressLookup struct {
	ByAddress map[string]domain.AddressClass
	Fail      bool
}

// NewAddressLookup creates an empty stub address classifier.
func NewAddressLookup() *AddressLookup {
	return &AddressLookup{ByAddress: make(map[string]domain.AddressClass)}
}

// Classify returns the stubbed class, AddressUnknown when unset or failing.
func (p *AddressLookup) Classify(_ context.Context, address string) (domain.AddressClass, error) {
	if p.Fail {
		return domain.AddressUnknown, ErrUnavailable
	}
	class, ok := p.ByAddress[address]
	if !ok {
		return domain.AddressUnknown, nil
	}
	return class, nil
}
