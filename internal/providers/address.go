package providers

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// ValidateAddress checks that an address is plausible base58-encoded 32-byte
// key material before it is spent on a provider call.
func ValidateAddress(address string) error {
	if len(address) < 32 || len(address) > 44 {
		return fmt.Errorf("address %q: invalid length %d", address, len(address))
	}

	decoded, err := base58.Decode(address)
	if err != nil {
		return fmt.Errorf("address %q: invalid base58: %w", address, err)
	}
	if len(decoded) != 32 {
		return fmt.Errorf("address %q: decoded to %d bytes, want 32", address, len(decoded))
	}
	return nil
}
