package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeSignalID computes a deterministic signal_id using SHA256.
// Formula: SHA256(token_symbol|contract|signal_type|formed_at)
// Returns hex-encoded hash (64 characters).
func ComputeSignalID(
	tokenSymbol string,
	contract string,
	signalType string,
	formedAt int64,
) string {
	data := fmt.Sprintf("%s|%s|%s|%d",
		tokenSymbol,
		contract,
		signalType,
		formedAt,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
