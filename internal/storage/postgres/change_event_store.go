package postgres

import (
	"context"
	"fmt"

	"smart-wallet-engine/internal/domain"
	"smart-wallet-engine/internal/storage"
)

// ChangeEventStore implements storage.ChangeEventStore using PostgreSQL.
type ChangeEventStore struct {
	pool *Pool
}

// NewChangeEventStore creates a new ChangeEventStore.
func NewChangeEventStore(pool *Pool) *ChangeEventStore {
	return &ChangeEventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ChangeEventStore = (*ChangeEventStore)(nil)

// Insert adds an event. A duplicate (session, wallet, contract, change type)
// is absorbed: the insert reports false and no error.
func (s *ChangeEventStore) Insert(ctx context.Context, ev *domain.PositionChangeEvent) (bool, error) {
	query := `
		INSERT INTO position_change_event (
			session_id, wallet, token_symbol, contract, change_type,
			old_amount, new_amount, old_value_usd, new_value_usd, detected_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (session_id, wallet, contract, change_type) DO NOTHING
	`

	tag, err := s.pool.Exec(ctx, query,
		ev.SessionID,
		ev.Wallet,
		ev.TokenSymbol,
		ev.Contract,
		ev.ChangeType,
		ev.OldAmount,
		ev.NewAmount,
		ev.OldValueUSD,
		ev.NewValueUSD,
		ev.DetectedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert change event: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// GetBySession retrieves a wallet's events for a session.
func (s *ChangeEventStore) GetBySession(ctx context.Context, sessionID, wallet string) ([]*domain.PositionChangeEvent, error) {
	query := `
		SELECT id, session_id, wallet, token_symbol, contract, change_type,
		       old_amount, new_amount, old_value_usd, new_value_usd, detected_at
		FROM position_change_event
		WHERE session_id = $1 AND wallet = $2
		ORDER BY id ASC
	`

	rows, err := s.pool.Query(ctx, query, sessionID, wallet)
	if err != nil {
		return nil, fmt.Errorf("get change events: %w", err)
	}
	defer rows.Close()

	var out []*domain.PositionChangeEvent
	for rows.Next() {
		var ev domain.PositionChangeEvent
		err := rows.Scan(
			&ev.ID,
			&ev.SessionID,
			&ev.Wallet,
			&ev.TokenSymbol,
			&ev.Contract,
			&ev.ChangeType,
			&ev.OldAmount,
			&ev.NewAmount,
			&ev.OldValueUSD,
			&ev.NewValueUSD,
			&ev.DetectedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan change event row: %w", err)
		}
		out = append(out, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate change event rows: %w", err)
	}

	return out, nil
}

// Purge deletes a wallet's events for a session once consumed.
func (s *ChangeEventStore) Purge(ctx context.Context, sessionID, wallet string) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM position_change_event WHERE session_id = $1 AND wallet = $2
	`, sessionID, wallet)
	if err != nil {
		return fmt.Errorf("purge change events: %w", err)
	}

	return nil
}
