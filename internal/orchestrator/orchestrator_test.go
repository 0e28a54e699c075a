package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"smart-wallet-engine/internal/backfill"
	"smart-wallet-engine/internal/consensus"
	"smart-wallet-engine/internal/differ"
	"smart-wallet-engine/internal/domain"
	"smart-wallet-engine/internal/ledger"
	"smart-wallet-engine/internal/migration"
	"smart-wallet-engine/internal/pricing"
	"smart-wallet-engine/internal/providers"
	"smart-wallet-engine/internal/providers/stub"
	"smart-wallet-engine/internal/scorer"
	"smart-wallet-engine/internal/storage/memory"
)

const (
	walletOne   = "Wallet1Wallet1Wallet1Wallet1Wallet1"
	walletTwo   = "Wallet2Wallet2Wallet2Wallet2Wallet2"
	mintAlpha   = "MintAlphaMintAlphaMintAlphaMintAlpha"
	symbolAlpha = "ALPHA"
)

// captureChannel records sent alerts.
type captureChannel struct {
	messages []string
	fail     bool
}

func (c *captureChannel) Send(_ context.Context, msg string) error {
	if c.fail {
		return errors.New("delivery refused")
	}
	c.messages = append(c.messages, msg)
	return nil
}

// failingWalletData wraps a provider and fails for one address.
type failingWalletData struct {
	providers.WalletDataProvider
	failFor string
}

func (f *failingWalletData) Holdings(ctx context.Context, address string) ([]domain.WalletHolding, error) {
	if address == f.failFor {
		return nil, errors.New("provider down")
	}
	return f.WalletDataProvider.Holdings(ctx, address)
}

type fixture struct {
	orch *Orchestrator

	walletData *stub.WalletData
	marketData *stub.MarketData
	alerts     *captureChannel

	txs        *memory.TransactionStore
	ledgers    *memory.LedgerStore
	snapshots  *memory.SnapshotStore
	events     *memory.ChangeEventStore
	profiles   *memory.TierProfileStore
	thresholds *memory.ThresholdStore
	signals    *memory.SignalStore
	migrations *memory.MigrationStore
	wallets    *memory.WalletStore
}

func newFixture(t *testing.T, walletData providers.WalletDataProvider) *fixture {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	f := &fixture{
		marketData: stub.NewMarketData(),
		alerts:     &captureChannel{},
		txs:        memory.NewTransactionStore(),
		ledgers:    memory.NewLedgerStore(),
		snapshots:  memory.NewSnapshotStore(),
		events:     memory.NewChangeEventStore(),
		profiles:   memory.NewTierProfileStore(),
		thresholds: memory.NewThresholdStore(),
		signals:    memory.NewSignalStore(),
		migrations: memory.NewMigrationStore(),
		wallets:    memory.NewWalletStore(),
	}
	if sd, ok := walletData.(*stub.WalletData); ok {
		f.walletData = sd
	}

	oracle := pricing.NewOracle(f.marketData, pricing.NewMemoryCache(time.Minute), 1_000_000, 150, log)
	backfiller := backfill.New(walletData, f.txs, 0, log)

	f.orch = New(Options{
		WalletStore:      f.wallets,
		ChangeEventStore: f.events,
		Differ: differ.New(walletData, f.snapshots, f.events, differ.Config{
			MinQuantity:    1e-6,
			MinUSD:         1,
			RatioThreshold: 0.05,
			USDFloor:       100,
		}, log),
		Backfiller: backfiller,
		Ledger: ledger.NewRunner(f.txs, f.ledgers, oracle, ledger.Guards{
			PriceCeiling:   1_000_000,
			ValueCeiling:   50_000_000,
			AirdropEpsilon: 0.01,
		}, log),
		Scorer: scorer.NewRunner(f.profiles, f.thresholds, scorer.Config{
			WinrateFloor:    40,
			TradeFloor:      5,
			WeightROI:       0.5,
			WeightWinrate:   0.3,
			WeightTrades:    0.2,
			SmoothingAlpha:  30,
			Percentile:      0.6,
			PlateauFraction: 0.15,
			TierPenalty:     0.05,
			BaseTier:        1,
		}, log),
		Consensus: consensus.New(f.txs, f.thresholds, f.signals, nil, f.marketData, consensus.Config{
			LookbackDays: 5,
			MinWhales:    2,
			MinQuality:   0.3,
			MarketCapMin: 100_000,
			MarketCapMax: 500_000_000,
		}, log),
		Migration: migration.New(walletData, stub.NewAddressLookup(), f.txs, f.migrations, f.wallets, backfiller, migration.Config{
			LookbackDays:    7,
			SubWindowDays:   2,
			TransferPercent: 0.70,
		}, log),
		Market: f.marketData,
		Alerts: f.alerts,
		Log:    log,
	})
	return f
}

func (f *fixture) track(t *testing.T, addresses ...string) {
	t.Helper()
	ctx := context.Background()
	for _, addr := range addresses {
		err := f.wallets.Register(ctx, &domain.TrackedWallet{
			Address: addr,
			Chain:   "solana",
			Source:  domain.WalletSourceCurated,
			Status:  domain.WalletStatusActive,
			AddedAt: time.Now().UnixMilli(),
		})
		if err != nil {
			t.Fatalf("register %s: %v", addr, err)
		}
	}
}

func buyRecord(hash string, qty, price float64, at int64) domain.TransferRecord {
	return domain.TransferRecord{
		TxHash:      hash,
		TokenSymbol: symbolAlpha,
		Contract:    mintAlpha,
		Timestamp:   at,
		Direction:   domain.DirectionIn,
		Quantity:    qty,
		UnitPrice:   price,
		ValueUSD:    qty * price,
		Kind:        domain.KindBuy,
	}
}

// seedConsensusScenario sets up two tracked wallets holding the same fresh
// token with qualifying buys: one scores exceptional, one merely good.
func seedConsensusScenario(t *testing.T, f *fixture) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UnixMilli()

	f.track(t, walletOne, walletTwo)

	f.walletData.HoldingsByWallet[walletOne] = []domain.WalletHolding{
		{TokenSymbol: symbolAlpha, Contract: mintAlpha, Chain: "solana", Amount: 2000, ValueUSD: 4000},
	}
	f.walletData.HoldingsByWallet[walletTwo] = []domain.WalletHolding{
		{TokenSymbol: symbolAlpha, Contract: mintAlpha, Chain: "solana", Amount: 1500, ValueUSD: 3000},
	}
	f.walletData.SetHistory(walletOne, mintAlpha, []domain.TransferRecord{
		buyRecord("tx-w1-1", 2000, 1.5, now-2*3600_000),
	})
	f.walletData.SetHistory(walletTwo, mintAlpha, []domain.TransferRecord{
		buyRecord("tx-w2-1", 1500, 1.0, now-3600_000),
	})

	f.marketData.ByContract[mintAlpha] = &domain.MarketData{
		Contract:  mintAlpha,
		PriceUSD:  2.0,
		MarketCap: 10_000_000,
		Liquidity: 2_000_000,
	}

	// Wallet one maxes every quality cap, wallet two lands mid-table.
	if err := f.profiles.Upsert(ctx, &domain.WalletTierProfile{
		Wallet: walletOne,
		Tiers:  []domain.TierStats{{Tier: 1, ROIPercent: 200, WinRatePercent: 80, Trades: 50, Wins: 40, Losses: 10}},
	}); err != nil {
		t.Fatal(err)
	}
	if err := f.profiles.Upsert(ctx, &domain.WalletTierProfile{
		Wallet: walletTwo,
		Tiers:  []domain.TierStats{{Tier: 1, ROIPercent: 40, WinRatePercent: 55, Trades: 20, Wins: 11, Losses: 9}},
	}); err != nil {
		t.Fatal(err)
	}
}

func TestRunAll_EndToEnd(t *testing.T) {
	walletData := stub.NewWalletData()
	f := newFixture(t, walletData)
	seedConsensusScenario(t, f)

	res, err := f.orch.RunAll(context.Background())
	if err != nil {
		t.Fatalf("RunAll() error = %v", err)
	}
	if len(res.Errors) != 0 {
		t.Fatalf("RunAll() errors = %v", res.Errors)
	}

	if res.EventsEmitted != 2 {
		t.Errorf("EventsEmitted = %d, want 2", res.EventsEmitted)
	}
	if res.TransactionsSaved != 2 {
		t.Errorf("TransactionsSaved = %d, want 2", res.TransactionsSaved)
	}
	if res.LedgersRecomputed != 2 {
		t.Errorf("LedgersRecomputed = %d, want 2", res.LedgersRecomputed)
	}
	if res.WalletsScored != 2 {
		t.Errorf("WalletsScored = %d, want 2", res.WalletsScored)
	}
	if res.SignalsEmitted != 1 {
		t.Errorf("SignalsEmitted = %d, want 1", res.SignalsEmitted)
	}
	if res.MigrationsDetected != 0 {
		t.Errorf("MigrationsDetected = %d, want 0", res.MigrationsDetected)
	}

	// The snapshot flip happened.
	rows, err := f.snapshots.GetCurrent(context.Background(), walletOne)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Contract != mintAlpha {
		t.Errorf("current snapshot = %+v, want one row for %s", rows, mintAlpha)
	}

	// The scorer qualified wallet one as exceptional class.
	thr, err := f.thresholds.Get(context.Background(), walletOne)
	if err != nil {
		t.Fatal(err)
	}
	if thr.Status != domain.StatusExceptional || thr.OptimalTier != 1 {
		t.Errorf("wallet one threshold = %+v, want EXCEPTIONAL tier 1", thr)
	}

	// The ledger was rebuilt from backfilled history at the live price.
	state, err := f.ledgers.Get(context.Background(), walletOne, mintAlpha)
	if err != nil {
		t.Fatal(err)
	}
	if state.Remaining != 2000 || state.CurrentPrice != 2.0 {
		t.Errorf("ledger state = %+v, want remaining 2000 at price 2.0", state)
	}

	// One alert went out carrying the token symbol.
	if len(f.alerts.messages) != 1 {
		t.Fatalf("alerts sent = %d, want 1", len(f.alerts.messages))
	}
	if !strings.Contains(f.alerts.messages[0], symbolAlpha) {
		t.Errorf("alert missing token symbol:\n%s", f.alerts.messages[0])
	}
}

func TestRunAll_SecondCycleIsQuiet(t *testing.T) {
	walletData := stub.NewWalletData()
	f := newFixture(t, walletData)
	seedConsensusScenario(t, f)

	ctx := context.Background()
	if _, err := f.orch.RunAll(ctx); err != nil {
		t.Fatalf("first RunAll() error = %v", err)
	}

	res, err := f.orch.RunAll(ctx)
	if err != nil {
		t.Fatalf("second RunAll() error = %v", err)
	}
	if res.EventsEmitted != 0 {
		t.Errorf("second cycle EventsEmitted = %d, want 0 for unchanged holdings", res.EventsEmitted)
	}
	if res.SignalsEmitted != 0 {
		t.Errorf("second cycle SignalsEmitted = %d, want 0 after window dedup", res.SignalsEmitted)
	}
	if len(f.alerts.messages) != 1 {
		t.Errorf("alerts sent = %d, want 1 across both cycles", len(f.alerts.messages))
	}
}

func TestRunDiffer_PurgesConsumedEvents(t *testing.T) {
	walletData := stub.NewWalletData()
	f := newFixture(t, walletData)
	seedConsensusScenario(t, f)

	ctx := context.Background()
	sessionID := "session-test-purge"

	res, err := f.orch.RunDiffer(ctx, sessionID)
	if err != nil {
		t.Fatalf("RunDiffer() error = %v", err)
	}
	if res.EventsEmitted != 2 {
		t.Fatalf("EventsEmitted = %d, want 2", res.EventsEmitted)
	}

	for _, wallet := range []string{walletOne, walletTwo} {
		left, err := f.events.GetBySession(ctx, sessionID, wallet)
		if err != nil {
			t.Fatal(err)
		}
		if len(left) != 0 {
			t.Errorf("events left for %s after purge: %d", wallet, len(left))
		}
	}
}

func TestRunDiffer_FailedWalletSkipped(t *testing.T) {
	walletData := stub.NewWalletData()
	f := newFixture(t, &failingWalletData{WalletDataProvider: walletData, failFor: walletOne})
	f.walletData = walletData
	seedConsensusScenario(t, f)

	res, err := f.orch.RunDiffer(context.Background(), "session-test-fail")
	if err != nil {
		t.Fatalf("RunDiffer() error = %v, want nil despite wallet failure", err)
	}
	if res.WalletsFailed != 1 {
		t.Errorf("WalletsFailed = %d, want 1", res.WalletsFailed)
	}
	if res.WalletsProcessed != 1 {
		t.Errorf("WalletsProcessed = %d, want 1", res.WalletsProcessed)
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], walletOne) {
		t.Errorf("Errors = %v, want one entry naming the failed wallet", res.Errors)
	}
}

func TestRunConsensus_AlertFailureTolerated(t *testing.T) {
	walletData := stub.NewWalletData()
	f := newFixture(t, walletData)
	seedConsensusScenario(t, f)
	f.alerts.fail = true

	ctx := context.Background()
	sessionID := NewSessionID()
	if _, err := f.orch.RunDiffer(ctx, sessionID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.orch.RunScorer(ctx); err != nil {
		t.Fatal(err)
	}

	res, err := f.orch.RunConsensus(ctx)
	if err != nil {
		t.Fatalf("RunConsensus() error = %v, want nil despite alert failure", err)
	}
	if res.SignalsEmitted != 1 {
		t.Errorf("SignalsEmitted = %d, want 1", res.SignalsEmitted)
	}
}

func TestRunMigration_NoTransfersNoDetections(t *testing.T) {
	walletData := stub.NewWalletData()
	f := newFixture(t, walletData)
	f.track(t, walletOne, walletTwo)

	res, err := f.orch.RunMigration(context.Background())
	if err != nil {
		t.Fatalf("RunMigration() error = %v", err)
	}
	if res.MigrationsDetected != 0 {
		t.Errorf("MigrationsDetected = %d, want 0", res.MigrationsDetected)
	}
	if res.WalletsProcessed != 2 {
		t.Errorf("WalletsProcessed = %d, want 2", res.WalletsProcessed)
	}
}
