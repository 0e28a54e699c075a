package memory

import (
	"context"
	"sync"

	"smart-wallet-engine/internal/domain"
	"smart-wallet-engine/internal/storage"
)

// SignalStore is an in-memory implementation of storage.SignalStore.
type SignalStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ConsensusSignal // keyed by signal id
}

// NewSignalStore creates a new in-memory signal store.
func NewSignalStore() *SignalStore {
	return &SignalStore{data: make(map[string]*domain.ConsensusSignal)}
}

// Compile-time interface check.
var _ storage.SignalStore = (*SignalStore)(nil)

// Insert adds a signal. Returns ErrDuplicateKey if signal_id exists.
func (s *SignalStore) Insert(_ context.Context, sig *domain.ConsensusSignal) error {
	if sig == nil || sig.SignalID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[sig.SignalID]; exists {
		return storage.ErrDuplicateKey
	}

	cp := *sig
	cp.Whales = append([]domain.SignalWhale(nil), sig.Whales...)
	cp.FormationLog = append([]domain.FormationStep(nil), sig.FormationLog...)
	s.data[sig.SignalID] = &cp

	return nil
}

// ExistsSince reports whether a (symbol, contract) signal was emitted at or
// after the given timestamp.
func (s *SignalStore) ExistsSince(_ context.Context, symbol, contract string, since int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sig := range s.data {
		if sig.TokenSymbol == symbol && sig.Contract == contract && sig.DetectedAt >= since {
			return true, nil
		}
	}

	return false, nil
}
