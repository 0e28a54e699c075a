package migration

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"smart-wallet-engine/internal/backfill"
	"smart-wallet-engine/internal/domain"
	"smart-wallet-engine/internal/providers/stub"
	"smart-wallet-engine/internal/storage/memory"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func testConfig() Config {
	return Config{
		LookbackDays:    7,
		SubWindowDays:   2,
		TransferPercent: 0.70,
	}
}

type fixture struct {
	wallets    *stub.WalletData
	lookup     *stub.AddressLookup
	txs        *memory.TransactionStore
	migrations *memory.MigrationStore
	registry   *memory.WalletStore
	detector   *Detector
}

func newFixture() *fixture {
	f := &fixture{
		wallets:    stub.NewWalletData(),
		lookup:     stub.NewAddressLookup(),
		txs:        memory.NewTransactionStore(),
		migrations: memory.NewMigrationStore(),
		registry:   memory.NewWalletStore(),
	}
	backfiller := backfill.New(f.wallets, f.txs, time.Millisecond, testLogger())
	f.detector = New(f.wallets, f.lookup, f.txs, f.migrations, f.registry, backfiller, testConfig(), testLogger())
	return f
}

func hoursAgo(h int) int64 {
	return time.Now().Add(-time.Duration(h) * time.Hour).UnixMilli()
}

// seedQualifyingTransfer wires OldWallet sending 80% of a $10k portfolio to
// NewWallet within the sub-window.
func (f *fixture) seedQualifyingTransfer() {
	f.wallets.OutboundByWallet["OldWallet"] = []domain.TransferRecord{
		{TxHash: "t1", TokenSymbol: "TOK", Contract: "MintT", Timestamp: hoursAgo(10),
			Direction: "out", Quantity: -8000, ValueUSD: -8000, Kind: "send", Counterparty: "NewWallet"},
	}
	f.wallets.PortfolioByWallet["OldWallet"] = 10000
	f.lookup.ByAddress["NewWallet"] = domain.AddressWallet
}

func TestCheckWallet_QualifyingMigration(t *testing.T) {
	f := newFixture()
	f.seedQualifyingTransfer()
	ctx := context.Background()

	m, err := f.detector.CheckWallet(ctx, "OldWallet")
	if err != nil {
		t.Fatalf("CheckWallet() error = %v", err)
	}
	if m == nil {
		t.Fatal("migration = nil, want a recorded migration")
	}
	if m.NewWallet != "NewWallet" {
		t.Errorf("NewWallet = %s, want NewWallet", m.NewWallet)
	}
	if m.TransferPercent < 0.79 || m.TransferPercent > 0.81 {
		t.Errorf("TransferPercent = %v, want 0.8", m.TransferPercent)
	}
	if !m.Validated {
		t.Error("Validated = false, want true")
	}
	if len(m.Tokens) != 1 || m.Tokens[0].Contract != "MintT" {
		t.Errorf("Tokens = %+v, want one MintT entry", m.Tokens)
	}

	// Destination registered as migration-sourced, old wallet marked.
	dest, err := f.registry.Get(ctx, "NewWallet")
	if err != nil {
		t.Fatalf("registry Get() error = %v", err)
	}
	if dest.Source != domain.WalletSourceMigration {
		t.Errorf("destination source = %s, want migration", dest.Source)
	}
	old, err := f.registry.Get(ctx, "OldWallet")
	if err == nil && old.Status != domain.WalletStatusMigrated {
		t.Errorf("old wallet status = %s, want migrated", old.Status)
	}
}

func TestCheckWallet_DestinationInheritsChain(t *testing.T) {
	f := newFixture()
	f.seedQualifyingTransfer()
	ctx := context.Background()

	err := f.registry.Register(ctx, &domain.TrackedWallet{
		Address: "OldWallet",
		Chain:   "eclipse",
		Source:  domain.WalletSourceCurated,
		Status:  domain.WalletStatusActive,
		AddedAt: hoursAgo(100),
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.detector.CheckWallet(ctx, "OldWallet"); err != nil {
		t.Fatalf("CheckWallet() error = %v", err)
	}

	dest, err := f.registry.Get(ctx, "NewWallet")
	if err != nil {
		t.Fatalf("registry Get() error = %v", err)
	}
	if dest.Chain != "eclipse" {
		t.Errorf("destination chain = %s, want the old wallet's chain", dest.Chain)
	}
}

func TestCheckWallet_BelowThresholdNoMigration(t *testing.T) {
	f := newFixture()
	f.wallets.OutboundByWallet["OldWallet"] = []domain.TransferRecord{
		{TxHash: "t1", TokenSymbol: "TOK", Contract: "MintT", Timestamp: hoursAgo(10),
			Direction: "out", Quantity: -3000, ValueUSD: -3000, Kind: "send", Counterparty: "NewWallet"},
	}
	f.wallets.PortfolioByWallet["OldWallet"] = 10000
	f.lookup.ByAddress["NewWallet"] = domain.AddressWallet

	m, err := f.detector.CheckWallet(context.Background(), "OldWallet")
	if err != nil {
		t.Fatalf("CheckWallet() error = %v", err)
	}
	if m != nil {
		t.Errorf("migration = %+v, want nil (30%% moved)", m)
	}
}

func TestCheckWallet_FailClosedOnUnknown(t *testing.T) {
	f := newFixture()
	f.seedQualifyingTransfer()
	// Lookup has no answer for the destination.
	delete(f.lookup.ByAddress, "NewWallet")

	m, err := f.detector.CheckWallet(context.Background(), "OldWallet")
	if err != nil {
		t.Fatalf("CheckWallet() error = %v", err)
	}
	if m != nil {
		t.Error("migration recorded despite unknown destination class")
	}
}

func TestCheckWallet_FailClosedOnContract(t *testing.T) {
	f := newFixture()
	f.seedQualifyingTransfer()
	// 80% sent to a DEX program is not a migration.
	f.lookup.ByAddress["NewWallet"] = domain.AddressContract

	m, err := f.detector.CheckWallet(context.Background(), "OldWallet")
	if err != nil {
		t.Fatalf("CheckWallet() error = %v", err)
	}
	if m != nil {
		t.Error("migration recorded despite contract destination")
	}
}

func TestCheckWallet_FailClosedOnLookupError(t *testing.T) {
	f := newFixture()
	f.seedQualifyingTransfer()
	f.lookup.Fail = true

	m, err := f.detector.CheckWallet(context.Background(), "OldWallet")
	if err != nil {
		t.Fatalf("CheckWallet() error = %v", err)
	}
	if m != nil {
		t.Error("migration recorded despite lookup failure")
	}
}

func TestCheckWallet_DuplicatePairAbsorbed(t *testing.T) {
	f := newFixture()
	f.seedQualifyingTransfer()
	ctx := context.Background()

	first, err := f.detector.CheckWallet(ctx, "OldWallet")
	if err != nil || first == nil {
		t.Fatalf("first check = (%v, %v), want migration", first, err)
	}

	second, err := f.detector.CheckWallet(ctx, "OldWallet")
	if err != nil {
		t.Fatalf("second check error = %v", err)
	}
	if second != nil {
		t.Error("second check recorded the pair again")
	}
}

func TestCheckWallet_SubWindowExcludesOldTransfers(t *testing.T) {
	f := newFixture()
	// The big transfer is inside the 7-day lookback but outside the 2-day
	// sub-window.
	f.wallets.OutboundByWallet["OldWallet"] = []domain.TransferRecord{
		{TxHash: "t1", TokenSymbol: "TOK", Contract: "MintT", Timestamp: hoursAgo(120),
			Direction: "out", Quantity: -9000, ValueUSD: -9000, Kind: "send", Counterparty: "NewWallet"},
	}
	f.wallets.PortfolioByWallet["OldWallet"] = 10000
	f.lookup.ByAddress["NewWallet"] = domain.AddressWallet

	m, err := f.detector.CheckWallet(context.Background(), "OldWallet")
	if err != nil {
		t.Fatalf("CheckWallet() error = %v", err)
	}
	if m != nil {
		t.Error("stale transfer produced a migration")
	}
}

func TestInheritCostBasis_WriteOnce(t *testing.T) {
	txs := memory.NewTransactionStore()
	ctx := context.Background()

	// Old wallet bought 1000 TOK for $500 total.
	_, err := txs.InsertBatch(ctx, []*domain.Transaction{
		{Wallet: "OldWallet", TokenSymbol: "TOK", Contract: "MintT", TxHash: "b1",
			Timestamp: 1000, Direction: "in", Quantity: 600, UnitPrice: 0.5, ValueUSD: 300, Kind: "buy"},
		{Wallet: "OldWallet", TokenSymbol: "TOK", Contract: "MintT", TxHash: "b2",
			Timestamp: 2000, Direction: "in", Quantity: 400, UnitPrice: 0.5, ValueUSD: 200, Kind: "buy"},
	})
	if err != nil {
		t.Fatalf("seed old wallet error = %v", err)
	}

	// New wallet received the tokens unpriced.
	_, err = txs.InsertBatch(ctx, []*domain.Transaction{
		{Wallet: "NewWallet", TokenSymbol: "TOK", Contract: "MintT", TxHash: "r1",
			Timestamp: 3000, Direction: "in", Quantity: 1000, UnitPrice: 0, ValueUSD: 0, Kind: "receive"},
	})
	if err != nil {
		t.Fatalf("seed new wallet error = %v", err)
	}

	updated, err := InheritCostBasis(ctx, txs, "OldWallet", "NewWallet", "MintT")
	if err != nil {
		t.Fatalf("InheritCostBasis() error = %v", err)
	}
	if updated != 1 {
		t.Fatalf("updated = %d, want 1", updated)
	}

	rows, err := txs.GetByWalletToken(ctx, "NewWallet", "MintT")
	if err != nil {
		t.Fatalf("GetByWalletToken() error = %v", err)
	}
	if !rows[0].Inherited || rows[0].InheritedPrice == nil || *rows[0].InheritedPrice != 0.5 {
		t.Fatalf("inherited price = %+v, want 0.5", rows[0].InheritedPrice)
	}

	// Running inheritance again must never overwrite.
	updated, err = InheritCostBasis(ctx, txs, "OldWallet", "NewWallet", "MintT")
	if err != nil {
		t.Fatalf("second InheritCostBasis() error = %v", err)
	}
	if updated != 0 {
		t.Errorf("second run updated = %d, want 0 (write-once)", updated)
	}
}
