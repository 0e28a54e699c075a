package ledger

import (
	"context"
	"math"
	"testing"

	"github.com/sirupsen/logrus"

	"smart-wallet-engine/internal/domain"
	"smart-wallet-engine/internal/storage/memory"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func testGuards() Guards {
	return Guards{
		PriceCeiling:   1_000_000,
		ValueCeiling:   50_000_000,
		AirdropEpsilon: 0.01,
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// Three buys totaling $10,000, then half the position sold at $3.
func scenarioTxs() []*domain.Transaction {
	return []*domain.Transaction{
		{Wallet: "W", TokenSymbol: "TOK", Contract: "MintT", TxHash: "b1", Timestamp: 1000,
			Direction: "in", Quantity: 4000, UnitPrice: 1.0, ValueUSD: 4000, Kind: "buy"},
		{Wallet: "W", TokenSymbol: "TOK", Contract: "MintT", TxHash: "b2", Timestamp: 2000,
			Direction: "in", Quantity: 2000, UnitPrice: 2.0, ValueUSD: 4000, Kind: "buy"},
		{Wallet: "W", TokenSymbol: "TOK", Contract: "MintT", TxHash: "b3", Timestamp: 3000,
			Direction: "in", Quantity: 4000, UnitPrice: 0.5, ValueUSD: 2000, Kind: "buy"},
		{Wallet: "W", TokenSymbol: "TOK", Contract: "MintT", TxHash: "s1", Timestamp: 4000,
			Direction: "out", Quantity: -5000, UnitPrice: 3.0, ValueUSD: -15000, Kind: "sell"},
	}
}

func TestCompute_EndToEnd(t *testing.T) {
	state := Compute("W", "TOK", "MintT", scenarioTxs(), 2.0, testGuards(), testLogger())

	if !almostEqual(state.TotalBought, 10000) {
		t.Errorf("TotalBought = %v, want 10000", state.TotalBought)
	}
	if !almostEqual(state.TotalSold, 5000) {
		t.Errorf("TotalSold = %v, want 5000", state.TotalSold)
	}
	if !almostEqual(state.Remaining, 5000) {
		t.Errorf("Remaining = %v, want 5000", state.Remaining)
	}
	if !almostEqual(state.TotalInvested, 10000) {
		t.Errorf("TotalInvested = %v, want 10000", state.TotalInvested)
	}
	if !almostEqual(state.TotalRealized, 15000) {
		t.Errorf("TotalRealized = %v, want 15000", state.TotalRealized)
	}
	if !almostEqual(state.AvgBuyPrice, 1.0) {
		t.Errorf("AvgBuyPrice = %v, want 1.0", state.AvgBuyPrice)
	}
	if !almostEqual(state.AvgSellPrice, 3.0) {
		t.Errorf("AvgSellPrice = %v, want 3.0", state.AvgSellPrice)
	}
	if !almostEqual(state.CurrentValue, 10000) {
		t.Errorf("CurrentValue = %v, want 10000", state.CurrentValue)
	}
	if !almostEqual(state.TotalGain, 25000) {
		t.Errorf("TotalGain = %v, want 25000", state.TotalGain)
	}
	// roi = (25000 - 10000) / 10000 * 100
	if !almostEqual(state.ROIPercent, 150) {
		t.Errorf("ROIPercent = %v, want 150", state.ROIPercent)
	}
	if state.IsAirdrop {
		t.Error("IsAirdrop = true, want false")
	}
	if state.EntryCount != 3 || state.ExitCount != 1 {
		t.Errorf("entry/exit = %d/%d, want 3/1", state.EntryCount, state.ExitCount)
	}
}

func TestCompute_ReplayIdempotent(t *testing.T) {
	store := memory.NewTransactionStore()
	ctx := context.Background()

	if _, err := store.InsertBatch(ctx, scenarioTxs()); err != nil {
		t.Fatalf("first insert error = %v", err)
	}
	// Replaying the same hashes must be absorbed.
	if n, err := store.InsertBatch(ctx, scenarioTxs()); err != nil || n != 0 {
		t.Fatalf("replay insert = (%d, %v), want (0, nil)", n, err)
	}

	txs, err := store.GetByWalletToken(ctx, "W", "MintT")
	if err != nil {
		t.Fatalf("GetByWalletToken() error = %v", err)
	}

	replayed := Compute("W", "TOK", "MintT", txs, 2.0, testGuards(), testLogger())
	direct := Compute("W", "TOK", "MintT", scenarioTxs(), 2.0, testGuards(), testLogger())

	if !almostEqual(replayed.TotalInvested, direct.TotalInvested) ||
		!almostEqual(replayed.Remaining, direct.Remaining) ||
		!almostEqual(replayed.ROIPercent, direct.ROIPercent) {
		t.Errorf("replayed state diverged: %+v vs %+v", replayed, direct)
	}
}

func TestCompute_SanityCeilingExcludesRow(t *testing.T) {
	txs := []*domain.Transaction{
		{Wallet: "W", TokenSymbol: "TOK", Contract: "MintT", TxHash: "ok", Timestamp: 1000,
			Direction: "in", Quantity: 100, UnitPrice: 1.0, ValueUSD: 100, Kind: "buy"},
		{Wallet: "W", TokenSymbol: "TOK", Contract: "MintT", TxHash: "glitch", Timestamp: 2000,
			Direction: "in", Quantity: 100, UnitPrice: 2_000_000, ValueUSD: 200_000_000, Kind: "buy"},
	}

	state := Compute("W", "TOK", "MintT", txs, 1.0, testGuards(), testLogger())

	if !almostEqual(state.TotalBought, 100) {
		t.Errorf("TotalBought = %v, want 100 (glitch row excluded)", state.TotalBought)
	}
	if !almostEqual(state.TotalInvested, 100) {
		t.Errorf("TotalInvested = %v, want 100", state.TotalInvested)
	}
}

func TestCompute_OverCeilingCurrentPriceClamped(t *testing.T) {
	txs := []*domain.Transaction{
		{Wallet: "W", TokenSymbol: "TOK", Contract: "MintT", TxHash: "b1", Timestamp: 1000,
			Direction: "in", Quantity: 100, UnitPrice: 1.0, ValueUSD: 100, Kind: "buy"},
	}

	state := Compute("W", "TOK", "MintT", txs, 2_000_000, testGuards(), testLogger())

	if state.CurrentPrice != 0 {
		t.Errorf("CurrentPrice = %v, want 0", state.CurrentPrice)
	}
	if state.CurrentValue != 0 {
		t.Errorf("CurrentValue = %v, want 0", state.CurrentValue)
	}
}

func TestCompute_AirdropFlag(t *testing.T) {
	txs := []*domain.Transaction{
		{Wallet: "W", TokenSymbol: "DROP", Contract: "MintD", TxHash: "a1", Timestamp: 1000,
			Direction: "in", Quantity: 1_000_000, UnitPrice: 0, ValueUSD: 0, Kind: "airdrop"},
	}

	state := Compute("W", "DROP", "MintD", txs, 0.001, testGuards(), testLogger())

	if !state.IsAirdrop {
		t.Error("IsAirdrop = false, want true")
	}
	if state.ROIPercent != 0 {
		t.Errorf("ROIPercent with zero invested = %v, want 0", state.ROIPercent)
	}
}

func TestCompute_InheritedPriceUsed(t *testing.T) {
	inherited := 0.5
	txs := []*domain.Transaction{
		{Wallet: "W2", TokenSymbol: "TOK", Contract: "MintT", TxHash: "r1", Timestamp: 1000,
			Direction: "in", Quantity: 1000, UnitPrice: 0, ValueUSD: 0, Kind: "receive",
			InheritedPrice: &inherited, Inherited: true},
	}

	state := Compute("W2", "TOK", "MintT", txs, 1.0, testGuards(), testLogger())

	// invested reconstructed as quantity * inherited price
	if !almostEqual(state.TotalInvested, 500) {
		t.Errorf("TotalInvested = %v, want 500", state.TotalInvested)
	}
	if state.IsAirdrop {
		t.Error("inherited position flagged as airdrop")
	}
}
