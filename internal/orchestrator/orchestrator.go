// Package orchestrator coordinates the detection passes over the tracked
// wallet set: differ → backfill → ledger → scorer → consensus, plus the
// independent migration pass.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"smart-wallet-engine/internal/alert"
	"smart-wallet-engine/internal/backfill"
	"smart-wallet-engine/internal/consensus"
	"smart-wallet-engine/internal/differ"
	"smart-wallet-engine/internal/domain"
	"smart-wallet-engine/internal/ledger"
	"smart-wallet-engine/internal/migration"
	"smart-wallet-engine/internal/observability"
	"smart-wallet-engine/internal/providers"
	"smart-wallet-engine/internal/scorer"
	"smart-wallet-engine/internal/storage"
)

// Orchestrator sequences the engine passes. Wallets are processed in small
// batches with pauses between them so the providers are never hammered.
type Orchestrator struct {
	wallets storage.WalletStore
	events  storage.ChangeEventStore

	differ     *differ.Differ
	backfiller *backfill.Backfiller
	ledger     *ledger.Runner
	scorer     *scorer.Runner
	consensus  *consensus.Detector
	migration  *migration.Detector

	market providers.MarketDataProvider
	alerts alert.Channel

	batchSize  int
	batchPause time.Duration
	callPause  time.Duration

	log *logrus.Logger
}

// Options for creating an Orchestrator.
type Options struct {
	// Required stores
	WalletStore      storage.WalletStore
	ChangeEventStore storage.ChangeEventStore

	// Pass engines
	Differ     *differ.Differ
	Backfiller *backfill.Backfiller
	Ledger     *ledger.Runner
	Scorer     *scorer.Runner
	Consensus  *consensus.Detector
	Migration  *migration.Detector

	// Optional: live performance enrichment for alerts
	Market providers.MarketDataProvider
	// Optional: alert delivery; nil disables alerting
	Alerts alert.Channel

	// Pacing
	BatchSize  int
	BatchPause time.Duration
	CallPause  time.Duration

	Log *logrus.Logger
}

// New creates an Orchestrator.
func New(opts Options) *Orchestrator {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 5
	}
	if opts.Log == nil {
		opts.Log = logrus.New()
	}
	return &Orchestrator{
		wallets:    opts.WalletStore,
		events:     opts.ChangeEventStore,
		differ:     opts.Differ,
		backfiller: opts.Backfiller,
		ledger:     opts.Ledger,
		scorer:     opts.Scorer,
		consensus:  opts.Consensus,
		migration:  opts.Migration,
		market:     opts.Market,
		alerts:     opts.Alerts,
		batchSize:  opts.BatchSize,
		batchPause: opts.BatchPause,
		callPause:  opts.CallPause,
		log:        opts.Log,
	}
}

// RunResult contains counts from one orchestrator run. Per-wallet failures
// are collected in Errors and never abort the run.
type RunResult struct {
	WalletsProcessed   int
	WalletsFailed      int
	EventsEmitted      int
	TransactionsSaved  int
	LedgersRecomputed  int
	WalletsScored      int
	SignalsEmitted     int
	MigrationsDetected int
	Errors             []string
}

func (r *RunResult) merge(other *RunResult) {
	r.WalletsProcessed += other.WalletsProcessed
	r.WalletsFailed += other.WalletsFailed
	r.EventsEmitted += other.EventsEmitted
	r.TransactionsSaved += other.TransactionsSaved
	r.LedgersRecomputed += other.LedgersRecomputed
	r.WalletsScored += other.WalletsScored
	r.SignalsEmitted += other.SignalsEmitted
	r.MigrationsDetected += other.MigrationsDetected
	r.Errors = append(r.Errors, other.Errors...)
}

// NewSessionID derives a session identifier for one differ run.
func NewSessionID() string {
	return fmt.Sprintf("session-%d", time.Now().UnixMilli())
}

// RunAll executes the full detection cycle: differ (with backfill and
// ledger recompute per wallet), then scorer, then consensus, then the
// migration sweep. The consensus pass tolerates thresholds scored on an
// earlier cycle, so a scorer failure downgrades rather than aborts.
func (o *Orchestrator) RunAll(ctx context.Context) (*RunResult, error) {
	result := &RunResult{}

	sessionID := NewSessionID()
	o.log.WithField("session_id", sessionID).Info("starting full detection cycle")

	differRes, err := o.RunDiffer(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("differ pass: %w", err)
	}
	result.merge(differRes)

	scorerRes, err := o.RunScorer(ctx)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("scorer pass: %v", err))
	} else {
		result.merge(scorerRes)
	}

	consensusRes, err := o.RunConsensus(ctx)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("consensus pass: %v", err))
	} else {
		result.merge(consensusRes)
	}

	migrationRes, err := o.RunMigration(ctx)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("migration pass: %v", err))
	} else {
		result.merge(migrationRes)
	}

	o.log.WithFields(logrus.Fields{
		"wallets":    result.WalletsProcessed,
		"events":     result.EventsEmitted,
		"signals":    result.SignalsEmitted,
		"migrations": result.MigrationsDetected,
		"errors":     len(result.Errors),
	}).Info("detection cycle finished")

	return result, nil
}

// RunDiffer diffs every active wallet against its stored snapshot, backfills
// transaction history for changed tokens, recomputes the affected ledgers
// and purges the consumed change events.
func (o *Orchestrator) RunDiffer(ctx context.Context, sessionID string) (*RunResult, error) {
	start := time.Now()
	result := &RunResult{}

	err := o.forEachActiveWallet(ctx, "differ", func(ctx context.Context, wallet string) error {
		events, err := o.differ.Run(ctx, sessionID, wallet)
		if err != nil {
			return err
		}
		for _, ev := range events {
			observability.RecordChangeEvent(ev.ChangeType)
		}
		result.EventsEmitted += len(events)

		if len(events) == 0 {
			return nil
		}

		saved, err := o.backfiller.BackfillEvents(ctx, events)
		if err != nil {
			return fmt.Errorf("backfill: %w", err)
		}
		result.TransactionsSaved += saved

		recomputed := o.recomputeChangedTokens(ctx, wallet, events)
		result.LedgersRecomputed += recomputed

		if err := o.events.Purge(ctx, sessionID, wallet); err != nil {
			return fmt.Errorf("purge events: %w", err)
		}
		return nil
	}, result)

	o.finishPass("differ", start, err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// recomputeChangedTokens refreshes the ledger for each distinct token that
// produced a change event. A failed token is logged and skipped; the rest
// of the wallet still recomputes.
func (o *Orchestrator) recomputeChangedTokens(ctx context.Context, wallet string, events []*domain.PositionChangeEvent) int {
	seen := make(map[string]bool, len(events))
	recomputed := 0
	for _, ev := range events {
		if seen[ev.Contract] {
			continue
		}
		seen[ev.Contract] = true
		if err := o.ledger.RecomputeToken(ctx, wallet, ev.Contract); err != nil {
			o.log.WithError(err).WithFields(logrus.Fields{
				"wallet":   wallet,
				"contract": ev.Contract,
			}).Warn("ledger recompute failed, skipping token")
			continue
		}
		recomputed++
	}
	return recomputed
}

// RunLedger recomputes every token ledger for every active wallet. Used for
// full refreshes; the differ pass already recomputes changed tokens.
func (o *Orchestrator) RunLedger(ctx context.Context) (*RunResult, error) {
	start := time.Now()
	result := &RunResult{}

	err := o.forEachActiveWallet(ctx, "ledger", func(ctx context.Context, wallet string) error {
		n, err := o.ledger.RecomputeWallet(ctx, wallet)
		if err != nil {
			return err
		}
		result.LedgersRecomputed += n
		return nil
	}, result)

	o.finishPass("ledger", start, err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RunScorer rescores the optimal tier threshold for every active wallet.
// Wallets without a tier profile are skipped inside the scorer.
func (o *Orchestrator) RunScorer(ctx context.Context) (*RunResult, error) {
	start := time.Now()
	result := &RunResult{}

	err := o.forEachActiveWallet(ctx, "scorer", func(ctx context.Context, wallet string) error {
		if err := o.scorer.ScoreWallet(ctx, wallet); err != nil {
			return err
		}
		result.WalletsScored++
		return nil
	}, result)

	o.finishPass("scorer", start, err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RunConsensus runs one cross-wallet detection sweep and delivers an alert
// for every emitted signal. Alert failures are logged, never fatal.
func (o *Orchestrator) RunConsensus(ctx context.Context) (*RunResult, error) {
	start := time.Now()
	result := &RunResult{}

	signals, err := o.consensus.Run(ctx)
	o.finishPass("consensus", start, err)
	if err != nil {
		return nil, err
	}

	result.SignalsEmitted = len(signals)
	for _, sig := range signals {
		observability.RecordSignal(sig.SignalType)
		o.deliverAlert(ctx, sig)
	}
	return result, nil
}

func (o *Orchestrator) deliverAlert(ctx context.Context, sig *domain.ConsensusSignal) {
	if o.alerts == nil {
		return
	}

	var perf *domain.SignalPerformance
	if o.market != nil {
		p, err := consensus.LivePerformance(ctx, o.market, sig)
		if err != nil {
			o.log.WithError(err).WithField("signal_id", sig.SignalID).
				Warn("live performance lookup failed, alerting without it")
		} else {
			perf = p
		}
	}

	msg := alert.RenderSignal(sig, perf)
	if err := o.alerts.Send(ctx, msg); err != nil {
		o.log.WithError(err).WithField("signal_id", sig.SignalID).Error("alert delivery failed")
	}
}

// RunMigration sweeps every active wallet for an outbound migration. A
// detected migration registers the destination wallet and inherits cost
// basis inside the detector.
func (o *Orchestrator) RunMigration(ctx context.Context) (*RunResult, error) {
	start := time.Now()
	result := &RunResult{}

	err := o.forEachActiveWallet(ctx, "migration", func(ctx context.Context, wallet string) error {
		m, err := o.migration.CheckWallet(ctx, wallet)
		if err != nil {
			return err
		}
		if m != nil {
			observability.RecordMigration()
			result.MigrationsDetected++
			o.log.WithFields(logrus.Fields{
				"old_wallet": m.OldWallet,
				"new_wallet": m.NewWallet,
			}).Info("wallet migration recorded")
		}
		return nil
	}, result)

	o.finishPass("migration", start, err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// forEachActiveWallet applies fn to every active wallet in batches. A wallet
// failure is recorded and skipped; only a store or context error aborts.
func (o *Orchestrator) forEachActiveWallet(ctx context.Context, pass string, fn func(ctx context.Context, wallet string) error, result *RunResult) error {
	tracked, err := o.wallets.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active wallets: %w", err)
	}
	o.log.WithFields(logrus.Fields{"pass": pass, "wallets": len(tracked)}).Info("pass started")

	for i, w := range tracked {
		if err := ctx.Err(); err != nil {
			return err
		}
		if i > 0 {
			pause := o.callPause
			if i%o.batchSize == 0 {
				pause = o.batchPause
			}
			if pause > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(pause):
				}
			}
		}

		if err := fn(ctx, w.Address); err != nil {
			result.WalletsFailed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s %s: %v", pass, w.Address, err))
			observability.RecordUnit(pass, "failed")
			o.log.WithError(err).WithFields(logrus.Fields{
				"pass":   pass,
				"wallet": w.Address,
			}).Error("wallet failed, skipping")
			continue
		}
		result.WalletsProcessed++
		observability.RecordUnit(pass, "processed")
	}
	return nil
}

func (o *Orchestrator) finishPass(pass string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	} else {
		observability.MarkPassSuccess(pass, float64(time.Now().Unix()))
	}
	observability.RecordPassRun(pass, status, time.Since(start).Seconds())
	o.log.WithFields(logrus.Fields{
		"pass":     pass,
		"status":   status,
		"duration": time.Since(start).Round(time.Millisecond).String(),
	}).Info("pass finished")
}
