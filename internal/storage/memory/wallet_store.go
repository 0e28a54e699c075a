package memory

import (
	"context"
	"sort"
	"sync"

	"smart-wallet-engine/internal/domain"
	"smart-wallet-engine/internal/storage"
)

// WalletStore is an in-memory implementation of storage.WalletStore.
type WalletStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TrackedWallet // keyed by address
}

// NewWalletStore creates a new in-memory wallet store.
func NewWalletStore() *WalletStore {
	return &WalletStore{data: make(map[string]*domain.TrackedWallet)}
}

// Compile-time interface check.
var _ storage.WalletStore = (*WalletStore)(nil)

// Register adds a wallet; an existing address is absorbed as success.
func (s *WalletStore) Register(_ context.Context, w *domain.TrackedWallet) error {
	if w == nil || w.Address == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[w.Address]; exists {
		return nil
	}

	cp := *w
	s.data[w.Address] = &cp

	return nil
}

// Get retrieves a tracked wallet.
func (s *WalletStore) Get(_ context.Context, address string) (*domain.TrackedWallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.data[address]
	if !ok {
		return nil, storage.ErrNotFound
	}

	cp := *w
	return &cp, nil
}

// ListActive retrieves all wallets with active status.
func (s *WalletStore) ListActive(_ context.Context) ([]*domain.TrackedWallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.TrackedWallet
	for _, w := range s.data {
		if w.Status == domain.WalletStatusActive {
			cp := *w
			out = append(out, &cp)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].AddedAt != out[j].AddedAt {
			return out[i].AddedAt < out[j].AddedAt
		}
		return out[i].Address < out[j].Address
	})

	return out, nil
}

// MarkMigrated sets a wallet's status to migrated.
func (s *WalletStore) MarkMigrated(_ context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if w, ok := s.data[address]; ok {
		w.Status = domain.WalletStatusMigrated
	}

	return nil
}
