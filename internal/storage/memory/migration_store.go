package memory

import (
	"context"
	"fmt"
	"sync"

	"smart-wallet-engine/internal/domain"
	"smart-wallet-engine/internal/storage"
)

// MigrationStore is an in-memory implementation of storage.MigrationStore.
type MigrationStore struct {
	mu   sync.RWMutex
	data map[string]*domain.WalletMigration // keyed by old|new pair
}

// NewMigrationStore creates a new in-memory migration store.
func NewMigrationStore() *MigrationStore {
	return &MigrationStore{data: make(map[string]*domain.WalletMigration)}
}

// Compile-time interface check.
var _ storage.MigrationStore = (*MigrationStore)(nil)

func migrationKey(oldWallet, newWallet string) string {
	return fmt.Sprintf("%s|%s", oldWallet, newWallet)
}

// Insert adds a migration. Returns ErrDuplicateKey if the pair exists.
func (s *MigrationStore) Insert(_ context.Context, m *domain.WalletMigration) error {
	if m == nil || m.OldWallet == "" || m.NewWallet == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := migrationKey(m.OldWallet, m.NewWallet)
	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	cp := *m
	cp.Tokens = append([]domain.MigratedToken(nil), m.Tokens...)
	s.data[key] = &cp

	return nil
}

// ExistsPair reports whether a migration old→new was already recorded.
func (s *MigrationStore) ExistsPair(_ context.Context, oldWallet, newWallet string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.data[migrationKey(oldWallet, newWallet)]
	return exists, nil
}
