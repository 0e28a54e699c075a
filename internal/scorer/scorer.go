// Package scorer turns a wallet's tiered performance profile into an optimal
// investment threshold and a single quality score.
package scorer

import (
	"math"
	"sort"
	"time"

	"smart-wallet-engine/internal/domain"
)

// Config holds the scoring thresholds and weights.
type Config struct {
	ROIFloor     float64 // tier reliability: roi must exceed this
	WinrateFloor float64 // tier reliability: winrate must reach this
	TradeFloor   int     // tier reliability: trades must reach this

	WeightROI      float64 // J-score weight of normalized roi
	WeightWinrate  float64 // J-score weight of smoothed winrate
	WeightTrades   float64 // J-score weight of trade volume
	SmoothingAlpha float64 // Bayesian winrate shrinkage strength

	Percentile      float64 // J percentile the optimal tier must reach
	PlateauFraction float64 // max J drop into the next tier
	TierPenalty     float64 // fallback penalty per ln(tier/base)
	BaseTier        int     // reference tier for the penalty
}

// Quality sub-score caps. A tier at or above a cap earns the full sub-score.
const (
	roiCap     = 200.0 // roi% for a full roi sub-score
	winrateCap = 80.0  // winrate% for a full winrate sub-score
	tradeCap   = 50.0  // trades for a full volume sub-score
	neutralCap = 0.5   // neutral-rate at which the neutral sub-score is 0
)

// Quality sub-score weights.
const (
	qROIWeight     = 0.35
	qWinrateWeight = 0.30
	qTradeWeight   = 0.20
	qNeutralWeight = 0.15
)

// Status bucket thresholds on the final quality score.
const (
	exceptionalMin = 0.85
	excellentMin   = 0.70
	goodMin        = 0.55
	averageMin     = 0.40
	neutralMin     = 0.25
)

// Score derives the optimal threshold result for one wallet profile.
func Score(profile *domain.WalletTierProfile, cfg Config) *domain.OptimalThresholdResult {
	result := &domain.OptimalThresholdResult{
		Wallet:    profile.Wallet,
		UpdatedAt: time.Now().UnixMilli(),
	}

	reliable := reliableTiers(profile.Tiers, cfg)
	result.ReliableTiers = len(reliable)
	if len(reliable) == 0 {
		result.Status = domain.StatusNoReliableTiers
		return result
	}

	scores := jScores(reliable, cfg)
	optimal := selectOptimalTier(reliable, scores, cfg)

	result.OptimalTier = optimal.Tier
	result.Quality = qualityScore(optimal)
	result.Status = statusFor(result.Quality)
	return result
}

// reliableTiers filters the ladder to tiers with trustworthy statistics.
func reliableTiers(tiers []domain.TierStats, cfg Config) []domain.TierStats {
	var out []domain.TierStats
	for _, t := range tiers {
		if t.ROIPercent > cfg.ROIFloor &&
			t.WinRatePercent >= cfg.WinrateFloor &&
			t.Trades >= cfg.TradeFloor {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tier < out[j].Tier })
	return out
}

// jScores computes the per-tier J score, parallel to the reliable slice.
func jScores(reliable []domain.TierStats, cfg Config) []float64 {
	minROI, maxROI := reliable[0].ROIPercent, reliable[0].ROIPercent
	for _, t := range reliable[1:] {
		if t.ROIPercent < minROI {
			minROI = t.ROIPercent
		}
		if t.ROIPercent > maxROI {
			maxROI = t.ROIPercent
		}
	}

	scores := make([]float64, len(reliable))
	for i, t := range reliable {
		// Min-max normalization across the wallet's own reliable tiers;
		// 0.5 everywhere when roi is constant.
		normROI := 0.5
		if maxROI > minROI {
			normROI = (t.ROIPercent - minROI) / (maxROI - minROI)
		}

		smoothed := smoothedWinrate(t.WinRatePercent, t.Trades, cfg.SmoothingAlpha)

		scores[i] = cfg.WeightROI*normROI +
			cfg.WeightWinrate*smoothed/100 +
			cfg.WeightTrades*math.Log(1+float64(t.Trades))
	}
	return scores
}

// smoothedWinrate shrinks a tier's winrate toward 50% in proportion to how
// few trades back it.
func smoothedWinrate(winrate float64, trades int, alpha float64) float64 {
	n := float64(trades)
	return (winrate/100*n + alpha*0.5) / (n + alpha) * 100
}

// selectOptimalTier picks the first ascending tier whose J reaches the
// percentile and holds into the next tier; falls back to the penalized
// maximum when no plateau exists.
func selectOptimalTier(reliable []domain.TierStats, scores []float64, cfg Config) domain.TierStats {
	cutoff := percentileNearestRank(scores, cfg.Percentile)

	for i, t := range reliable {
		if scores[i] < cutoff {
			continue
		}
		if i+1 < len(reliable) {
			// Plateau check: J must not fall off a cliff one tier up.
			if scores[i+1] < scores[i]*(1-cfg.PlateauFraction) {
				continue
			}
		}
		return t
	}

	// Fallback: maximize J minus a size penalty that discourages
	// over-fitting to the thinnest, highest tier.
	base := float64(cfg.BaseTier)
	if base <= 0 {
		base = 1
	}
	bestIdx := 0
	bestScore := math.Inf(-1)
	for i, t := range reliable {
		penalized := scores[i] - cfg.TierPenalty*math.Log(float64(t.Tier)/base)
		if penalized > bestScore {
			bestScore = penalized
			bestIdx = i
		}
	}
	return reliable[bestIdx]
}

// percentileNearestRank returns the nearest-rank percentile of values.
func percentileNearestRank(values []float64, p float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	rank := int(math.Ceil(p * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}

// qualityScore combines the optimal tier's own statistics into [0.1, 1.0].
func qualityScore(t domain.TierStats) float64 {
	roiScore := clip01(t.ROIPercent / roiCap)
	wrScore := clip01(t.WinRatePercent / winrateCap)
	tradeScore := clip01(float64(t.Trades) / tradeCap)

	neutralRate := 0.0
	if t.Trades > 0 {
		neutralRate = float64(t.Neutrals) / float64(t.Trades)
	}
	neutralScore := 1 - clip01(neutralRate/neutralCap)

	combined := qROIWeight*roiScore +
		qWinrateWeight*wrScore +
		qTradeWeight*tradeScore +
		qNeutralWeight*neutralScore

	return 0.1 + 0.9*combined
}

func clip01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// statusFor buckets the quality score.
func statusFor(quality float64) string {
	switch {
	case quality >= exceptionalMin:
		return domain.StatusExceptional
	case quality >= excellentMin:
		return domain.StatusExcellent
	case quality >= goodMin:
		return domain.StatusGood
	case quality >= averageMin:
		return domain.StatusAverage
	case quality >= neutralMin:
		return domain.StatusNeutral
	default:
		return domain.StatusPoor
	}
}
