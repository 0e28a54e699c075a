// Package consensus detects several smart wallets independently accumulating
// the same token within a rolling window.
package consensus

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"smart-wallet-engine/internal/domain"
	"smart-wallet-engine/internal/idhash"
	"smart-wallet-engine/internal/providers"
	"smart-wallet-engine/internal/storage"
)

// Config holds the consensus thresholds.
type Config struct {
	LookbackDays int     // rolling window size
	MinWhales    int     // distinct qualifying wallets required
	MinQuality   float64 // minimum scorer quality for a wallet to count
	MarketCapMin float64 // signals outside the band are rejected
	MarketCapMax float64
}

// Detector scans recent qualifying buys and emits consensus signals.
type Detector struct {
	txs        storage.TransactionStore
	thresholds storage.ThresholdStore
	signals    storage.SignalStore
	archive    storage.SignalArchive // nil disables archiving
	market     providers.MarketDataProvider
	cfg        Config
	log        *logrus.Logger
}

// New creates a Detector. archive may be nil.
func New(
	txs storage.TransactionStore,
	thresholds storage.ThresholdStore,
	signals storage.SignalStore,
	archive storage.SignalArchive,
	market providers.MarketDataProvider,
	cfg Config,
	log *logrus.Logger,
) *Detector {
	return &Detector{
		txs:        txs,
		thresholds: thresholds,
		signals:    signals,
		archive:    archive,
		market:     market,
		cfg:        cfg,
		log:        log,
	}
}

// tokenGroup accumulates the window's qualifying buys for one token.
type tokenGroup struct {
	symbol   string
	contract string
	txs      []*domain.Transaction
	invested map[string]float64 // per wallet
}

// Run scans the lookback window and returns the signals emitted this pass.
func (d *Detector) Run(ctx context.Context) ([]*domain.ConsensusSignal, error) {
	now := time.Now().UnixMilli()
	windowStart := now - int64(d.cfg.LookbackDays)*24*int64(time.Hour/time.Millisecond)

	qualified, err := d.qualifiedWallets(ctx)
	if err != nil {
		return nil, err
	}
	if len(qualified) == 0 {
		return nil, nil
	}

	buys, err := d.txs.GetBuysInWindow(ctx, windowStart, now)
	if err != nil {
		return nil, fmt.Errorf("load window buys: %w", err)
	}

	groups := groupByToken(buys, qualified)

	var emitted []*domain.ConsensusSignal
	for _, group := range groups {
		sig, err := d.evaluate(ctx, group, qualified, windowStart, now)
		if err != nil {
			d.log.WithFields(logrus.Fields{
				"token": group.symbol,
				"error": err.Error(),
			}).Warn("consensus evaluation failed, skipping token")
			continue
		}
		if sig == nil {
			continue
		}
		emitted = append(emitted, sig)
	}
	return emitted, nil
}

// qualifiedWallets loads scorer results above the quality floor.
func (d *Detector) qualifiedWallets(ctx context.Context) (map[string]*domain.OptimalThresholdResult, error) {
	results, err := d.thresholds.ListQualified(ctx, d.cfg.MinQuality)
	if err != nil {
		return nil, fmt.Errorf("load qualified wallets: %w", err)
	}
	out := make(map[string]*domain.OptimalThresholdResult, len(results))
	for _, res := range results {
		out[res.Wallet] = res
	}
	return out, nil
}

// groupByToken buckets the window's buys of qualified wallets per token.
func groupByToken(buys []*domain.Transaction, qualified map[string]*domain.OptimalThresholdResult) map[string]*tokenGroup {
	groups := make(map[string]*tokenGroup)
	for _, tx := range buys {
		if _, ok := qualified[tx.Wallet]; !ok {
			continue
		}
		group, ok := groups[tx.Contract]
		if !ok {
			group = &tokenGroup{
				symbol:   tx.TokenSymbol,
				contract: tx.Contract,
				invested: make(map[string]float64),
			}
			groups[tx.Contract] = group
		}
		group.txs = append(group.txs, tx)
		group.invested[tx.Wallet] += tx.EffectiveValue()
	}
	return groups
}

// evaluate decides whether one token group forms a signal.
func (d *Detector) evaluate(
	ctx context.Context,
	group *tokenGroup,
	qualified map[string]*domain.OptimalThresholdResult,
	windowStart, now int64,
) (*domain.ConsensusSignal, error) {
	// A wallet counts only when its aggregate stake in this token clears
	// its own optimal-tier threshold.
	whales := make(map[string]*domain.OptimalThresholdResult)
	for wallet, invested := range group.invested {
		res := qualified[wallet]
		if invested >= res.ThresholdUSD() {
			whales[wallet] = res
		}
	}
	if len(whales) < d.cfg.MinWhales {
		return nil, nil
	}

	exceptional := 0
	for _, res := range whales {
		if domain.IsExceptionalClass(res.Status) {
			exceptional++
		}
	}
	// A consensus cannot form from ordinary-quality wallets alone.
	if exceptional == 0 {
		return nil, nil
	}

	// Dedup before spending a market-data call on the token.
	exists, err := d.signals.ExistsSince(ctx, group.symbol, group.contract, windowStart)
	if err != nil {
		return nil, fmt.Errorf("signal dedup check: %w", err)
	}
	if exists {
		return nil, nil
	}

	data, err := d.market.TokenMarketData(ctx, group.contract)
	if err != nil {
		return nil, fmt.Errorf("market data: %w", err)
	}
	if data == nil {
		d.log.WithField("token", group.symbol).Debug("no market data, signal rejected")
		return nil, nil
	}
	if data.MarketCap < d.cfg.MarketCapMin || data.MarketCap > d.cfg.MarketCapMax {
		d.log.WithFields(logrus.Fields{
			"token":      group.symbol,
			"market_cap": data.MarketCap,
		}).Debug("market cap outside band, signal rejected")
		return nil, nil
	}

	formedAt, formationLog, firstBuyAt := d.formation(group, whales)

	signalType := domain.SignalMixedConsensus
	if exceptional == len(whales) {
		signalType = domain.SignalExceptionalConsensus
	}

	totalInvested := 0.0
	totalQuantity := 0.0
	for wallet := range whales {
		totalInvested += group.invested[wallet]
	}
	for _, tx := range group.txs {
		if _, ok := whales[tx.Wallet]; ok {
			totalQuantity += tx.Quantity
		}
	}
	avgEntry := 0.0
	if totalQuantity > 0 {
		avgEntry = totalInvested / totalQuantity
	}

	sig := &domain.ConsensusSignal{
		SignalID:         idhash.ComputeSignalID(group.symbol, group.contract, signalType, formedAt),
		TokenSymbol:      group.symbol,
		Contract:         group.contract,
		SignalType:       signalType,
		WhaleCount:       len(whales),
		ExceptionalCount: exceptional,
		NormalCount:      len(whales) - exceptional,
		TotalInvestedUSD: totalInvested,
		AvgEntryPrice:    avgEntry,
		MarketCap:        data.MarketCap,
		Liquidity:        data.Liquidity,
		PriceUSD:         data.PriceUSD,
		Volume24h:        data.Volume24h,
		FormedAt:         formedAt,
		DetectedAt:       now,
		Whales:           buildWhaleList(group, whales, firstBuyAt),
		FormationLog:     formationLog,
	}

	if err := d.signals.Insert(ctx, sig); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil, nil
		}
		return nil, fmt.Errorf("store signal: %w", err)
	}

	if d.archive != nil {
		// Best-effort analytics copy; never blocks emission.
		if err := d.archive.Archive(ctx, sig); err != nil {
			d.log.WithFields(logrus.Fields{
				"signal": sig.SignalID,
				"error":  err.Error(),
			}).Warn("signal archive failed")
		}
	}

	d.log.WithFields(logrus.Fields{
		"token":    sig.TokenSymbol,
		"type":     sig.SignalType,
		"whales":   sig.WhaleCount,
		"invested": sig.TotalInvestedUSD,
	}).Info("consensus signal emitted")

	return sig, nil
}

// formation walks the qualifying transactions chronologically and returns
// the instant the N-th distinct whale first bought, the full walk as the
// formation log and each whale's first-buy time. Equal timestamps are broken
// by wallet address ascending so the walk is deterministic.
func (d *Detector) formation(group *tokenGroup, whales map[string]*domain.OptimalThresholdResult) (int64, []domain.FormationStep, map[string]int64) {
	txs := make([]*domain.Transaction, 0, len(group.txs))
	for _, tx := range group.txs {
		if _, ok := whales[tx.Wallet]; ok {
			txs = append(txs, tx)
		}
	}
	sort.Slice(txs, func(i, j int) bool {
		if txs[i].Timestamp != txs[j].Timestamp {
			return txs[i].Timestamp < txs[j].Timestamp
		}
		return txs[i].Wallet < txs[j].Wallet
	})

	firstBuyAt := make(map[string]int64, len(whales))
	var formationLog []domain.FormationStep
	var formedAt int64

	for _, tx := range txs {
		if _, seen := firstBuyAt[tx.Wallet]; seen {
			continue
		}
		firstBuyAt[tx.Wallet] = tx.Timestamp
		formationLog = append(formationLog, domain.FormationStep{
			Timestamp:       tx.Timestamp,
			Wallet:          tx.Wallet,
			InvestedUSD:     group.invested[tx.Wallet],
			DistinctWallets: len(firstBuyAt),
		})
		if len(firstBuyAt) == d.cfg.MinWhales {
			formedAt = tx.Timestamp
		}
	}
	return formedAt, formationLog, firstBuyAt
}

// buildWhaleList orders contributing wallets exceptional-first, then by
// investment descending.
func buildWhaleList(group *tokenGroup, whales map[string]*domain.OptimalThresholdResult, firstBuyAt map[string]int64) []domain.SignalWhale {
	list := make([]domain.SignalWhale, 0, len(whales))
	for wallet, res := range whales {
		list = append(list, domain.SignalWhale{
			Wallet:       wallet,
			Status:       res.Status,
			InvestedUSD:  group.invested[wallet],
			ThresholdUSD: res.ThresholdUSD(),
			FirstBuyAt:   firstBuyAt[wallet],
		})
	}
	sort.Slice(list, func(i, j int) bool {
		ei := domain.IsExceptionalClass(list[i].Status)
		ej := domain.IsExceptionalClass(list[j].Status)
		if ei != ej {
			return ei
		}
		return list[i].InvestedUSD > list[j].InvestedUSD
	})
	return list
}
