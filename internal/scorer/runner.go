package scorer

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"smart-wallet-engine/internal/storage"
)

// Runner scores wallets from their stored tier profiles and persists the
// results, replacing any previous result per wallet.
type Runner struct {
	profiles   storage.TierProfileStore
	thresholds storage.ThresholdStore
	cfg        Config
	log        *logrus.Logger
}

// NewRunner creates a scorer Runner.
func NewRunner(profiles storage.TierProfileStore, thresholds storage.ThresholdStore, cfg Config, log *logrus.Logger) *Runner {
	return &Runner{
		profiles:   profiles,
		thresholds: thresholds,
		cfg:        cfg,
		log:        log,
	}
}

// ScoreWallet scores one wallet. A wallet without a tier profile is skipped
// silently: the external analytics job has not covered it yet.
func (r *Runner) ScoreWallet(ctx context.Context, wallet string) error {
	profile, err := r.profiles.Get(ctx, wallet)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load tier profile %s: %w", wallet, err)
	}

	result := Score(profile, r.cfg)
	if err := r.thresholds.Upsert(ctx, result); err != nil {
		return fmt.Errorf("store threshold result %s: %w", wallet, err)
	}

	r.log.WithFields(logrus.Fields{
		"wallet":  wallet,
		"tier":    result.OptimalTier,
		"quality": result.Quality,
		"status":  result.Status,
	}).Debug("wallet scored")
	return nil
}
