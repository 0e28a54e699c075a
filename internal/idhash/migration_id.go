package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeMigrationID computes a deterministic migration_id using SHA256.
// Formula: SHA256(old_wallet|new_wallet|migrated_at)
// Returns hex-encoded hash (64 characters).
func ComputeMigrationID(
	oldWallet string,
	newWallet string,
	migratedAt int64,
) string {
	data := fmt.Sprintf("%s|%s|%d",
		oldWallet,
		newWallet,
		migratedAt,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
