package domain

// MigratedToken is one token line of a wallet migration.
type MigratedToken struct {
	TokenSymbol string  `json:"token_symbol"`
	Contract    string  `json:"contract"`
	Quantity    float64 `json:"quantity"`
	ValueUSD    float64 `json:"value_usd"`
}

// WalletMigration records a wallet moving the bulk of its holdings to a new
// address. Corresponds to wallet_migration table; (old_wallet, new_wallet)
// is unique. Chains of migrations (A→B→C) are recorded hop by hop and not
// reconciled transitively.
type WalletMigration struct {
	MigrationID     string
	OldWallet       string
	NewWallet       string
	MigratedAt      int64 // timestamp of the latest qualifying transfer (ms)
	Tokens          []MigratedToken
	TotalValueUSD   float64
	TransferPercent float64 // aggregate transferred value / portfolio value
	Validated       bool    // destination verified as a wallet, not a contract
	DetectedAt      int64   // ms
}
