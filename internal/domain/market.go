package domain

// WalletHolding is one token line of a wallet's current portfolio as
// reported by the wallet-data provider.
type WalletHolding struct {
	TokenSymbol string
	Contract    string
	Chain       string
	Amount      float64
	ValueUSD    float64
}

// TransferRecord is one historical transaction as reported by the
// wallet-data provider's paginated history endpoint.
type TransferRecord struct {
	TxHash       string
	TokenSymbol  string
	Contract     string
	Timestamp    int64 // ms
	Direction    string
	Quantity     float64
	UnitPrice    float64
	ValueUSD     float64
	Kind         string
	Counterparty string
}

// MarketData is a token's market snapshot from the market-data provider.
// A nil MarketData means the provider had no data for the contract.
type MarketData struct {
	Contract  string
	PriceUSD  float64
	MarketCap float64
	Liquidity float64
	Volume24h float64
	Buys24h   int
	Sells24h  int
}

// AddressClass is the outcome of an address-type lookup.
type AddressClass string

// Address classes. Unknown is an explicit outcome: verification that fails
// must never be mistaken for either of the other two.
const (
	AddressWallet   AddressClass = "wallet"
	AddressContract AddressClass = "contract"
	AddressUnknown  AddressClass = "unknown"
)
