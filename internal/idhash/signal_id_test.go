package idhash

import "testing"

func TestComputeSignalID(t *testing.T) {
	tests := []struct {
		name        string
		tokenSymbol string
		contract    string
		signalType  string
		formedAt    int64
		wantLen     int
	}{
		{
			name:        "mixed consensus",
			tokenSymbol: "WIF",
			contract:    "EKpQGSJtjMFqKZ9KQanSqYXRcF8fBopzLHYxdM65zcjm",
			signalType:  "MIXED_CONSENSUS",
			formedAt:    1720000000000,
			wantLen:     64,
		},
		{
			name:        "exceptional consensus",
			tokenSymbol: "BONK",
			contract:    "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263",
			signalType:  "EXCEPTIONAL_CONSENSUS",
			formedAt:    1720000123456,
			wantLen:     64,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeSignalID(tt.tokenSymbol, tt.contract, tt.signalType, tt.formedAt)

			if len(got) != tt.wantLen {
				t.Errorf("ComputeSignalID() length = %d, want %d", len(got), tt.wantLen)
			}

			// Verify determinism: same inputs should produce same output
			got2 := ComputeSignalID(tt.tokenSymbol, tt.contract, tt.signalType, tt.formedAt)
			if got != got2 {
				t.Errorf("ComputeSignalID() not deterministic: %s != %s", got, got2)
			}
		})
	}
}

func TestComputeSignalID_Uniqueness(t *testing.T) {
	base := ComputeSignalID("WIF", "ContractA", "MIXED_CONSENSUS", 1720000000000)

	variants := []string{
		ComputeSignalID("BONK", "ContractA", "MIXED_CONSENSUS", 1720000000000),
		ComputeSignalID("WIF", "ContractB", "MIXED_CONSENSUS", 1720000000000),
		ComputeSignalID("WIF", "ContractA", "EXCEPTIONAL_CONSENSUS", 1720000000000),
		ComputeSignalID("WIF", "ContractA", "MIXED_CONSENSUS", 1720000000001),
	}

	for i, v := range variants {
		if v == base {
			t.Errorf("variant %d collided with base signal ID", i)
		}
	}
}

func TestComputeMigrationID(t *testing.T) {
	got := ComputeMigrationID("OldWallet111", "NewWallet222", 1720000000000)
	if len(got) != 64 {
		t.Errorf("ComputeMigrationID() length = %d, want 64", len(got))
	}

	got2 := ComputeMigrationID("OldWallet111", "NewWallet222", 1720000000000)
	if got != got2 {
		t.Errorf("ComputeMigrationID() not deterministic: %s != %s", got, got2)
	}

	// Swapping wallets must change the ID.
	swapped := ComputeMigrationID("NewWallet222", "OldWallet111", 1720000000000)
	if swapped == got {
		t.Error("swapped wallets produced identical migration ID")
	}
}
