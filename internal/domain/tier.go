package domain

// TierStats is one investment-size bucket of a wallet's performance profile.
// Tier is expressed in thousands of USD: tier 3 covers positions around
// $3,000. The dollar threshold a wallet must clear for that tier is
// Tier * 1000.
type TierStats struct {
	Tier           int     // tier size in thousands of USD (1..12)
	ROIPercent     float64 // realized ROI at this tier
	WinRatePercent float64 // share of winning trades at this tier
	Trades         int     // total trades at this tier
	Wins           int
	Losses         int
	Neutrals       int
}

// ThresholdUSD returns the qualifying dollar threshold for the tier.
func (t TierStats) ThresholdUSD() float64 {
	return float64(t.Tier) * 1000
}

// WalletTierProfile is a wallet's bucketed performance across the fixed tier
// ladder. Produced by batch analytics outside this engine; read-only input
// to the scorer. Corresponds to wallet_tier_profile table.
type WalletTierProfile struct {
	Wallet string
	Tiers  []TierStats // ascending by Tier
}

// OptimalThresholdResult is the scorer's output for one wallet.
// Corresponds to wallet_threshold_result table; last write wins, no history.
type OptimalThresholdResult struct {
	Wallet        string
	OptimalTier   int     // chosen tier in thousands of USD, 0 when none
	Quality       float64 // quality score in [0.1, 1.0], 0 when no reliable tiers
	Status        string
	ReliableTiers int   // count of tiers passing the reliability filter
	UpdatedAt     int64 // Unix timestamp in milliseconds
}

// ThresholdUSD returns the wallet's own qualifying dollar threshold.
func (r *OptimalThresholdResult) ThresholdUSD() float64 {
	return float64(r.OptimalTier) * 1000
}

// Wallet status constants, ordered best to worst.
const (
	StatusExceptional     = "EXCEPTIONAL"
	StatusExcellent       = "EXCELLENT"
	StatusGood            = "GOOD"
	StatusAverage         = "AVERAGE"
	StatusNeutral         = "NEUTRAL"
	StatusPoor            = "POOR"
	StatusNoReliableTiers = "NO_RELIABLE_TIERS"
)

// IsExceptionalClass reports whether a status counts as exceptional-quality
// for consensus formation (EXCEPTIONAL or EXCELLENT).
func IsExceptionalClass(status string) bool {
	return status == StatusExceptional || status == StatusExcellent
}
