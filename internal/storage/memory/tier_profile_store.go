package memory

import (
	"context"
	"sync"

	"smart-wallet-engine/internal/domain"
	"smart-wallet-engine/internal/storage"
)

// TierProfileStore is an in-memory implementation of
// storage.TierProfileStore.
type TierProfileStore struct {
	mu   sync.RWMutex
	data map[string]*domain.WalletTierProfile // keyed by wallet
}

// NewTierProfileStore creates a new in-memory tier profile store.
func NewTierProfileStore() *TierProfileStore {
	return &TierProfileStore{data: make(map[string]*domain.WalletTierProfile)}
}

// Compile-time interface check.
var _ storage.TierProfileStore = (*TierProfileStore)(nil)

// Get retrieves a wallet's tier profile.
func (s *TierProfileStore) Get(_ context.Context, wallet string) (*domain.WalletTierProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.data[wallet]
	if !ok {
		return nil, storage.ErrNotFound
	}

	cp := domain.WalletTierProfile{Wallet: p.Wallet, Tiers: append([]domain.TierStats(nil), p.Tiers...)}
	return &cp, nil
}

// Upsert replaces a wallet's tier rows.
func (s *TierProfileStore) Upsert(_ context.Context, profile *domain.WalletTierProfile) error {
	if profile == nil || profile.Wallet == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := domain.WalletTierProfile{Wallet: profile.Wallet, Tiers: append([]domain.TierStats(nil), profile.Tiers...)}
	s.data[profile.Wallet] = &cp

	return nil
}
