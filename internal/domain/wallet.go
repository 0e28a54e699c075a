package domain

// TrackedWallet is an address the engine monitors.
// Corresponds to tracked_wallet table; address is unique.
type TrackedWallet struct {
	Address string
	Chain   string
	Source  string // how the wallet entered the watch list
	Status  string
	AddedAt int64 // ms
}

// Wallet source constants
const (
	WalletSourceCurated   = "curated"   // hand-picked smart wallet
	WalletSourceMigration = "migration" // destination of a detected migration
)

// Wallet status constants
const (
	WalletStatusActive   = "active"
	WalletStatusMigrated = "migrated" // holdings moved away, kept for history
)
