package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"smart-wallet-engine/internal/domain"
	"smart-wallet-engine/internal/storage"
)

// ChangeEventStore is an in-memory implementation of
// storage.ChangeEventStore.
type ChangeEventStore struct {
	mu     sync.RWMutex
	data   map[string]*domain.PositionChangeEvent // keyed by composite key
	nextID int64
}

// NewChangeEventStore creates a new in-memory change event store.
func NewChangeEventStore() *ChangeEventStore {
	return &ChangeEventStore{
		data:   make(map[string]*domain.PositionChangeEvent),
		nextID: 1,
	}
}

// Compile-time interface check.
var _ storage.ChangeEventStore = (*ChangeEventStore)(nil)

func eventKey(sessionID, wallet, contract, changeType string) string {
	return fmt.Sprintf("%s|%s|%s|%s", sessionID, wallet, contract, changeType)
}

// Insert adds an event; a duplicate key is absorbed and reported as false.
func (s *ChangeEventStore) Insert(_ context.Context, ev *domain.PositionChangeEvent) (bool, error) {
	if ev == nil || ev.SessionID == "" || ev.Wallet == "" {
		return false, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := eventKey(ev.SessionID, ev.Wallet, ev.Contract, ev.ChangeType)
	if _, exists := s.data[key]; exists {
		return false, nil
	}

	cp := *ev
	cp.ID = s.nextID
	s.nextID++
	s.data[key] = &cp

	return true, nil
}

// GetBySession retrieves a wallet's events for a session, insertion order.
func (s *ChangeEventStore) GetBySession(_ context.Context, sessionID, wallet string) ([]*domain.PositionChangeEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.PositionChangeEvent
	for _, ev := range s.data {
		if ev.SessionID == sessionID && ev.Wallet == wallet {
			cp := *ev
			out = append(out, &cp)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

// Purge deletes a wallet's events for a session.
func (s *ChangeEventStore) Purge(_ context.Context, sessionID, wallet string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, ev := range s.data {
		if ev.SessionID == sessionID && ev.Wallet == wallet {
			delete(s.data, key)
		}
	}

	return nil
}
