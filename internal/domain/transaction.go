package domain

// Transaction represents one wallet/token transfer or trade.
// Corresponds to transactions table in PostgreSQL. Rows are append-only and
// immutable once written, with one exception: migration inheritance may set
// InheritedPrice on a not-yet-priced "in" row exactly once.
type Transaction struct {
	ID           int64   // BIGSERIAL primary key
	Wallet       string  // wallet address
	TokenSymbol  string  // token ticker symbol
	Contract     string  // token contract (mint) address
	TxHash       string  // on-chain transaction hash
	Timestamp    int64   // Unix timestamp in milliseconds
	Direction    string  // "in" | "out"
	Quantity     float64 // signed by direction: positive for in, negative for out
	UnitPrice    float64 // execution price in USD, 0 when unknown
	ValueUSD     float64 // total USD value, signed like Quantity
	Kind         string  // operation kind reported by the provider
	Counterparty string  // destination for sends, source for receives, "" for swaps

	// Cost-basis inheritance, set only by the migration detector.
	InheritedPrice *float64 // unit price carried over from the previous wallet
	Inherited      bool     // true once InheritedPrice has been written

	CreatedAt int64 // record creation timestamp (ms)
}

// Direction constants
const (
	DirectionIn  = "in"
	DirectionOut = "out"
)

// Operation kind constants. Providers may report more kinds; these are the
// ones the engine acts on.
const (
	KindBuy     = "buy"
	KindSell    = "sell"
	KindSend    = "send"
	KindReceive = "receive"
	KindAirdrop = "airdrop"
)

// EffectivePrice returns the unit price used for cost-basis math:
// the inherited price when one has been written, the reported price
// otherwise.
func (t *Transaction) EffectivePrice() float64 {
	if t.Inherited && t.InheritedPrice != nil {
		return *t.InheritedPrice
	}
	return t.UnitPrice
}

// EffectiveValue returns the USD value used for cost-basis math. When the
// provider reported no value (migrated transfers arrive unpriced) it is
// reconstructed from quantity and the effective unit price.
func (t *Transaction) EffectiveValue() float64 {
	if t.ValueUSD != 0 {
		return t.ValueUSD
	}
	return t.Quantity * t.EffectivePrice()
}
