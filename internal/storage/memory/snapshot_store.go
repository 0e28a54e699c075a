package memory

import (
	"context"
	"sort"
	"sync"

	"smart-wallet-engine/internal/domain"
	"smart-wallet-engine/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu     sync.RWMutex
	rows   []*domain.PositionSnapshotRow
	nextID int64
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{nextID: 1}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// GetCurrent retrieves the wallet's current snapshot rows.
func (s *SnapshotStore) GetCurrent(_ context.Context, wallet string) ([]*domain.PositionSnapshotRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.PositionSnapshotRow
	for _, r := range s.rows {
		if r.Wallet == wallet && r.IsCurrent {
			cp := *r
			out = append(out, &cp)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Contract < out[j].Contract })

	return out, nil
}

// ReplaceCurrent flips previous current rows and installs the new snapshot
// under one lock, mirroring the single-transaction postgres behavior.
func (s *SnapshotStore) ReplaceCurrent(_ context.Context, wallet string, newRows []*domain.PositionSnapshotRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.rows {
		if r.Wallet == wallet && r.IsCurrent {
			r.IsCurrent = false
		}
	}

	for _, r := range newRows {
		if r == nil || r.Contract == "" {
			return storage.ErrInvalidInput
		}
		cp := *r
		cp.ID = s.nextID
		s.nextID++
		cp.Wallet = wallet
		cp.IsCurrent = true
		s.rows = append(s.rows, &cp)
	}

	return nil
}

// HasHistory reports whether any snapshot row ever existed for the pair.
func (s *SnapshotStore) HasHistory(_ context.Context, wallet, contract string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.rows {
		if r.Wallet == wallet && r.Contract == contract {
			return true, nil
		}
	}

	return false, nil
}
