package domain

// PositionSnapshotRow is one token line of a wallet portfolio snapshot.
// Corresponds to position_snapshot table in PostgreSQL. At most one row per
// (wallet, contract) carries IsCurrent=true at any time; the previous current
// row is flipped to false in the same update that installs the new one.
type PositionSnapshotRow struct {
	ID          int64
	Wallet      string
	TokenSymbol string
	Contract    string
	Chain       string
	Amount      float64
	ValueUSD    float64
	IsCurrent   bool
	SnapshotAt  int64 // Unix timestamp in milliseconds
}

// PositionChangeEvent is a classified difference between two successive
// snapshots of one wallet. Corresponds to position_change_event table.
// Unique per (session, wallet, contract, change type): a session may
// re-detect the same logical change only once. Events are consumed by the
// history backfill exactly once and then purged.
type PositionChangeEvent struct {
	ID          int64
	SessionID   string
	Wallet      string
	TokenSymbol string
	Contract    string
	ChangeType  string
	OldAmount   float64
	NewAmount   float64
	OldValueUSD float64
	NewValueUSD float64
	DetectedAt  int64 // Unix timestamp in milliseconds
}

// Change type constants
const (
	ChangeNew          = "NEW"          // token never held before
	ChangeRetour       = "RETOUR"       // token held in the past, re-entered
	ChangeAccumulation = "ACCUMULATION" // position grew significantly
	ChangeReduction    = "REDUCTION"    // position shrank significantly
	ChangeExit         = "EXIT"         // position fully closed
)
