package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"smart-wallet-engine/internal/domain"
	"smart-wallet-engine/internal/storage"
)

// LedgerStore is an in-memory implementation of storage.LedgerStore.
type LedgerStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TokenLedgerState // keyed by wallet|contract
}

// NewLedgerStore creates a new in-memory ledger store.
func NewLedgerStore() *LedgerStore {
	return &LedgerStore{data: make(map[string]*domain.TokenLedgerState)}
}

// Compile-time interface check.
var _ storage.LedgerStore = (*LedgerStore)(nil)

func ledgerKey(wallet, contract string) string {
	return fmt.Sprintf("%s|%s", wallet, contract)
}

// Replace installs the recomputed state, overwriting any previous one.
func (s *LedgerStore) Replace(_ context.Context, state *domain.TokenLedgerState) error {
	if state == nil || state.Wallet == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *state
	s.data[ledgerKey(state.Wallet, state.Contract)] = &cp
	return nil
}

// Get retrieves the state for a wallet/token pair.
func (s *LedgerStore) Get(_ context.Context, wallet, contract string) (*domain.TokenLedgerState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.data[ledgerKey(wallet, contract)]
	if !ok {
		return nil, storage.ErrNotFound
	}

	cp := *st
	return &cp, nil
}

// GetByWallet retrieves all states for a wallet, sorted by contract.
func (s *LedgerStore) GetByWallet(_ context.Context, wallet string) ([]*domain.TokenLedgerState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.TokenLedgerState
	for _, st := range s.data {
		if st.Wallet == wallet {
			cp := *st
			out = append(out, &cp)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Contract < out[j].Contract })

	return out, nil
}
