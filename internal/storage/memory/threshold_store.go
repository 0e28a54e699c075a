package memory

import (
	"context"
	"sort"
	"sync"

	"smart-wallet-engine/internal/domain"
	"smart-wallet-engine/internal/storage"
)

// ThresholdStore is an in-memory implementation of storage.ThresholdStore.
type ThresholdStore struct {
	mu   sync.RWMutex
	data map[string]*domain.OptimalThresholdResult // keyed by wallet
}

// NewThresholdStore creates a new in-memory threshold store.
func NewThresholdStore() *ThresholdStore {
	return &ThresholdStore{data: make(map[string]*domain.OptimalThresholdResult)}
}

// Compile-time interface check.
var _ storage.ThresholdStore = (*ThresholdStore)(nil)

// Upsert installs the wallet's result, replacing any previous one.
func (s *ThresholdStore) Upsert(_ context.Context, res *domain.OptimalThresholdResult) error {
	if res == nil || res.Wallet == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *res
	s.data[res.Wallet] = &cp

	return nil
}

// Get retrieves a wallet's result.
func (s *ThresholdStore) Get(_ context.Context, wallet string) (*domain.OptimalThresholdResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res, ok := s.data[wallet]
	if !ok {
		return nil, storage.ErrNotFound
	}

	cp := *res
	return &cp, nil
}

// ListQualified retrieves results with a usable tier and sufficient quality,
// quality descending.
func (s *ThresholdStore) ListQualified(_ context.Context, minQuality float64) ([]*domain.OptimalThresholdResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.OptimalThresholdResult
	for _, res := range s.data {
		if res.OptimalTier > 0 && res.Quality >= minQuality {
			cp := *res
			out = append(out, &cp)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Quality != out[j].Quality {
			return out[i].Quality > out[j].Quality
		}
		return out[i].Wallet < out[j].Wallet
	})

	return out, nil
}
