package domain

// TokenLedgerState is the derived P&L state for one wallet/token pair.
// Corresponds to token_ledger table in PostgreSQL. It is fully recomputable
// from the wallet's transactions and is always replaced wholesale, never
// partially updated.
type TokenLedgerState struct {
	Wallet      string
	TokenSymbol string
	Contract    string

	TotalBought float64 // sum of "in" quantities
	TotalSold   float64 // sum of |"out"| quantities
	Remaining   float64 // bought - sold

	TotalInvested float64 // sum of "in" USD values
	TotalRealized float64 // sum of |"out"| USD values

	AvgBuyPrice  float64 // invested / bought, 0 when bought is 0
	AvgSellPrice float64 // realized / sold, 0 when sold is 0

	CurrentPrice float64 // oracle price at recompute time
	CurrentValue float64 // remaining * current price, 0 when remaining <= 0

	TotalGain  float64 // realized + current value
	ROIPercent float64 // (gain - invested) / invested * 100, 0 when invested is 0

	IsAirdrop  bool // invested below the dust epsilon
	EntryCount int  // number of "in" transactions
	ExitCount  int  // number of "out" transactions

	UpdatedAt int64 // recompute timestamp (ms)
}
