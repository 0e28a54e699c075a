package differ

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"

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
		MinQuantity:    0.000001,
		MinUSD:         1,
		RatioThreshold: 0.05,
		USDFloor:       100,
	}
}

type fixture struct {
	wallets   *stub.WalletData
	snapshots *memory.SnapshotStore
	events    *memory.ChangeEventStore
	differ    *Differ
}

func newFixture() *fixture {
	f := &fixture{
		wallets:   stub.NewWalletData(),
		snapshots: memory.NewSnapshotStore(),
		events:    memory.NewChangeEventStore(),
	}
	f.differ = New(f.wallets, f.snapshots, f.events, testConfig(), testLogger())
	return f
}

func (f *fixture) setHoldings(wallet string, holdings ...domain.WalletHolding) {
	f.wallets.HoldingsByWallet[wallet] = holdings
}

func eventTypes(events []*domain.PositionChangeEvent) map[string]string {
	types := make(map[string]string)
	for _, ev := range events {
		types[ev.Contract] = ev.ChangeType
	}
	return types
}

func TestRun_FirstSnapshotEmitsNew(t *testing.T) {
	f := newFixture()
	f.setHoldings("W",
		domain.WalletHolding{TokenSymbol: "TOK", Contract: "MintA", Amount: 1000, ValueUSD: 5000},
	)

	events, err := f.differ.Run(context.Background(), "s1", "W")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	if events[0].ChangeType != domain.ChangeNew {
		t.Errorf("type = %s, want NEW", events[0].ChangeType)
	}
	if events[0].NewAmount != 1000 {
		t.Errorf("NewAmount = %v, want 1000", events[0].NewAmount)
	}
}

func TestRun_DiffPartition(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.setHoldings("W",
		domain.WalletHolding{TokenSymbol: "KEEP", Contract: "MintKeep", Amount: 100, ValueUSD: 1000},
		domain.WalletHolding{TokenSymbol: "GROW", Contract: "MintGrow", Amount: 100, ValueUSD: 1000},
		domain.WalletHolding{TokenSymbol: "GONE", Contract: "MintGone", Amount: 100, ValueUSD: 1000},
	)
	if _, err := f.differ.Run(ctx, "s1", "W"); err != nil {
		t.Fatalf("seed run error = %v", err)
	}

	// Next snapshot: KEEP unchanged, GROW doubled, GONE removed, FRESH added.
	f.setHoldings("W",
		domain.WalletHolding{TokenSymbol: "KEEP", Contract: "MintKeep", Amount: 100, ValueUSD: 1000},
		domain.WalletHolding{TokenSymbol: "GROW", Contract: "MintGrow", Amount: 200, ValueUSD: 2000},
		domain.WalletHolding{TokenSymbol: "FRESH", Contract: "MintFresh", Amount: 50, ValueUSD: 500},
	)

	events, err := f.differ.Run(ctx, "s2", "W")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	types := eventTypes(events)
	if len(types) != 3 {
		t.Fatalf("events = %d, want 3 (got %v)", len(events), types)
	}
	if types["MintGrow"] != domain.ChangeAccumulation {
		t.Errorf("MintGrow = %s, want ACCUMULATION", types["MintGrow"])
	}
	if types["MintGone"] != domain.ChangeExit {
		t.Errorf("MintGone = %s, want EXIT", types["MintGone"])
	}
	if types["MintFresh"] != domain.ChangeNew {
		t.Errorf("MintFresh = %s, want NEW", types["MintFresh"])
	}
	if _, ok := types["MintKeep"]; ok {
		t.Error("unchanged token emitted an event")
	}
}

func TestRun_RetourAfterExit(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.setHoldings("W",
		domain.WalletHolding{TokenSymbol: "TOK", Contract: "MintA", Amount: 100, ValueUSD: 1000},
	)
	if _, err := f.differ.Run(ctx, "s1", "W"); err != nil {
		t.Fatalf("seed run error = %v", err)
	}

	// Position fully closed.
	f.setHoldings("W")
	if _, err := f.differ.Run(ctx, "s2", "W"); err != nil {
		t.Fatalf("exit run error = %v", err)
	}

	// Re-entered: must be RETOUR, not NEW.
	f.setHoldings("W",
		domain.WalletHolding{TokenSymbol: "TOK", Contract: "MintA", Amount: 50, ValueUSD: 600},
	)
	events, err := f.differ.Run(ctx, "s3", "W")
	if err != nil {
		t.Fatalf("retour run error = %v", err)
	}
	if len(events) != 1 || events[0].ChangeType != domain.ChangeRetour {
		t.Fatalf("events = %+v, want one RETOUR", events)
	}
}

func TestRun_DualGateBothMustHold(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.setHoldings("W",
		domain.WalletHolding{TokenSymbol: "BIG", Contract: "MintBig", Amount: 10000, ValueUSD: 100000},
		domain.WalletHolding{TokenSymbol: "DUST", Contract: "MintDust", Amount: 10, ValueUSD: 50},
	)
	if _, err := f.differ.Run(ctx, "s1", "W"); err != nil {
		t.Fatalf("seed run error = %v", err)
	}

	// BIG: USD moved past the floor but amount ratio below threshold (price
	// drift). DUST: ratio huge but USD change below floor.
	f.setHoldings("W",
		domain.WalletHolding{TokenSymbol: "BIG", Contract: "MintBig", Amount: 10100, ValueUSD: 110000},
		domain.WalletHolding{TokenSymbol: "DUST", Contract: "MintDust", Amount: 20, ValueUSD: 90},
	)

	events, err := f.differ.Run(ctx, "s2", "W")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(events) != 0 {
		t.Errorf("events = %+v, want none (both gates must hold)", events)
	}
}

func TestRun_SameSessionRedetectionAbsorbed(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.setHoldings("W",
		domain.WalletHolding{TokenSymbol: "TOK", Contract: "MintA", Amount: 100, ValueUSD: 1000},
	)
	first, err := f.differ.Run(ctx, "s1", "W")
	if err != nil {
		t.Fatalf("first run error = %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("first run events = %d, want 1", len(first))
	}

	// Same session, snapshot unchanged since the flip: nothing new.
	second, err := f.differ.Run(ctx, "s1", "W")
	if err != nil {
		t.Fatalf("second run error = %v", err)
	}
	if len(second) != 0 {
		t.Errorf("second run events = %d, want 0", len(second))
	}
}

func TestRun_SnapshotFlipKeepsOneCurrent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.setHoldings("W",
		domain.WalletHolding{TokenSymbol: "TOK", Contract: "MintA", Amount: 100, ValueUSD: 1000},
	)
	if _, err := f.differ.Run(ctx, "s1", "W"); err != nil {
		t.Fatalf("first run error = %v", err)
	}

	f.setHoldings("W",
		domain.WalletHolding{TokenSymbol: "TOK", Contract: "MintA", Amount: 300, ValueUSD: 3000},
	)
	if _, err := f.differ.Run(ctx, "s2", "W"); err != nil {
		t.Fatalf("second run error = %v", err)
	}

	current, err := f.snapshots.GetCurrent(ctx, "W")
	if err != nil {
		t.Fatalf("GetCurrent() error = %v", err)
	}
	if len(current) != 1 {
		t.Fatalf("current rows = %d, want 1", len(current))
	}
	if current[0].Amount != 300 {
		t.Errorf("current amount = %v, want 300", current[0].Amount)
	}
}

func TestRun_DustHoldingsFiltered(t *testing.T) {
	f := newFixture()
	f.setHoldings("W",
		domain.WalletHolding{TokenSymbol: "DUST", Contract: "MintDust", Amount: 5, ValueUSD: 0.5},
	)

	events, err := f.differ.Run(context.Background(), "s1", "W")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(events) != 0 {
		t.Errorf("dust holding emitted events: %+v", events)
	}
}
