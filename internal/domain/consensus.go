package domain

// SignalWhale is one contributing wallet of a consensus signal, with its
// individual stake in the token.
type SignalWhale struct {
	Wallet       string  `json:"wallet"`
	Status       string  `json:"status"`
	InvestedUSD  float64 `json:"invested_usd"`
	ThresholdUSD float64 `json:"threshold_usd"` // the wallet's own qualifying threshold
	FirstBuyAt   int64   `json:"first_buy_at"`  // ms
}

// FormationStep is one entry of the chronological formation log: a
// qualifying wallet's first transaction in the window and the distinct
// wallet count after it.
type FormationStep struct {
	Timestamp       int64   `json:"timestamp"` // ms
	Wallet          string  `json:"wallet"`
	InvestedUSD     float64 `json:"invested_usd"`
	DistinctWallets int     `json:"distinct_wallets"`
}

// ConsensusSignal is a qualified cross-wallet accumulation signal.
// Corresponds to consensus_signal table. Dedup key is (symbol, contract)
// within the rolling lookback window.
type ConsensusSignal struct {
	SignalID    string
	TokenSymbol string
	Contract    string
	SignalType  string

	WhaleCount       int
	ExceptionalCount int // whales with EXCEPTIONAL/EXCELLENT status
	NormalCount      int

	TotalInvestedUSD float64
	AvgEntryPrice    float64 // volume-weighted across qualifying buys

	MarketCap   float64
	Liquidity   float64
	PriceUSD    float64
	Volume24h   float64

	FormedAt   int64 // instant the N-th distinct qualifying wallet first bought (ms)
	DetectedAt int64 // when the detector ran (ms)

	Whales       []SignalWhale   // exceptional-first, then investment descending
	FormationLog []FormationStep // chronological
}

// Signal type constants
const (
	SignalMixedConsensus       = "MIXED_CONSENSUS"       // exceptional + normal wallets
	SignalExceptionalConsensus = "EXCEPTIONAL_CONSENSUS" // exceptional-quality wallets only
)

// SignalPerformance is the live performance of a signal recomputed for
// presentation: entry versus current price since formation.
type SignalPerformance struct {
	EntryPrice    float64
	CurrentPrice  float64
	ChangePercent float64
	DaysHeld      float64
	Status        string // qualitative bucket
}

// Performance status buckets
const (
	PerfMoonshot = "MOONSHOT" // >= +100%
	PerfProfit   = "PROFIT"   // >= +20%
	PerfFlat     = "FLAT"     // within +-20%
	PerfDrawdown = "DRAWDOWN" // <= -20%
)
