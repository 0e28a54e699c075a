package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"smart-wallet-engine/internal/domain"
	"smart-wallet-engine/internal/storage"
)

// TransactionStore is an in-memory implementation of
// storage.TransactionStore.
type TransactionStore struct {
	mu     sync.RWMutex
	data   map[string]*domain.Transaction // keyed by composite key
	nextID int64
}

// NewTransactionStore creates a new in-memory transaction store.
func NewTransactionStore() *TransactionStore {
	return &TransactionStore{
		data:   make(map[string]*domain.Transaction),
		nextID: 1,
	}
}

// Compile-time interface check.
var _ storage.TransactionStore = (*TransactionStore)(nil)

// txKey generates the uniqueness key for a transaction.
func txKey(wallet, contract, txHash string) string {
	return fmt.Sprintf("%s|%s|%s", wallet, contract, txHash)
}

// InsertBatch adds transactions, skipping existing keys. Replays are no-ops.
func (s *TransactionStore) InsertBatch(_ context.Context, txs []*domain.Transaction) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inserted := 0
	for _, t := range txs {
		if t == nil || t.Wallet == "" || t.TxHash == "" {
			return inserted, storage.ErrInvalidInput
		}
		key := txKey(t.Wallet, t.Contract, t.TxHash)
		if _, exists := s.data[key]; exists {
			continue
		}
		cp := *t
		cp.ID = s.nextID
		s.nextID++
		s.data[key] = &cp
		inserted++
	}

	return inserted, nil
}

// GetByWalletToken retrieves all transactions for a pair, timestamp ASC.
func (s *TransactionStore) GetByWalletToken(_ context.Context, wallet, contract string) ([]*domain.Transaction, error) {
	return s.filter(func(t *domain.Transaction) bool {
		return t.Wallet == wallet && t.Contract == contract
	}), nil
}

// GetBuys retrieves the wallet's "in" transactions for a token.
func (s *TransactionStore) GetBuys(_ context.Context, wallet, contract string) ([]*domain.Transaction, error) {
	return s.filter(func(t *domain.Transaction) bool {
		return t.Wallet == wallet && t.Contract == contract && t.Direction == domain.DirectionIn
	}), nil
}

// GetBuysInWindow retrieves all "in" transactions within [start, end].
func (s *TransactionStore) GetBuysInWindow(_ context.Context, start, end int64) ([]*domain.Transaction, error) {
	return s.filter(func(t *domain.Transaction) bool {
		return t.Direction == domain.DirectionIn && t.Timestamp >= start && t.Timestamp <= end
	}), nil
}

// DistinctContracts lists the token contracts a wallet has transacted.
func (s *TransactionStore) DistinctContracts(_ context.Context, wallet string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, t := range s.data {
		if t.Wallet == wallet {
			seen[t.Contract] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)

	return out, nil
}

// SetInheritedPrice writes the inherited price onto unpriced "in" rows,
// once only.
func (s *TransactionStore) SetInheritedPrice(_ context.Context, wallet, contract string, price float64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := 0
	for _, t := range s.data {
		if t.Wallet != wallet || t.Contract != contract {
			continue
		}
		if t.Direction != domain.DirectionIn || t.UnitPrice != 0 || t.Inherited {
			continue
		}
		p := price
		t.InheritedPrice = &p
		t.Inherited = true
		updated++
	}

	return updated, nil
}

// filter returns copies of matching transactions sorted by (timestamp, id).
func (s *TransactionStore) filter(match func(*domain.Transaction) bool) []*domain.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Transaction
	for _, t := range s.data {
		if match(t) {
			cp := *t
			if t.InheritedPrice != nil {
				p := *t.InheritedPrice
				cp.InheritedPrice = &p
			}
			out = append(out, &cp)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp < out[j].Timestamp
		}
		return out[i].ID < out[j].ID
	})

	return out
}
