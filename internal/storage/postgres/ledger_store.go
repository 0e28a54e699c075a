package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"smart-wallet-engine/internal/domain"
	"smart-wallet-engine/internal/storage"
)

// LedgerStore implements storage.LedgerStore using PostgreSQL.
type LedgerStore struct {
	pool *Pool
}

// NewLedgerStore creates a new LedgerStore.
func NewLedgerStore(pool *Pool) *LedgerStore {
	return &LedgerStore{pool: pool}
}

// Compile-time interface check.
var _ storage.LedgerStore = (*LedgerStore)(nil)

const ledgerColumns = `
	wallet, token_symbol, contract, total_bought, total_sold, remaining,
	total_invested, total_realized, avg_buy_price, avg_sell_price,
	current_price, current_value, total_gain, roi_percent,
	is_airdrop, entry_count, exit_count, updated_at
`

// Replace installs the recomputed state for (wallet, contract). The upsert
// runs in a single statement so the prior state survives any failure.
func (s *LedgerStore) Replace(ctx context.Context, state *domain.TokenLedgerState) error {
	query := `
		INSERT INTO token_ledger (
			wallet, token_symbol, contract, total_bought, total_sold, remaining,
			total_invested, total_realized, avg_buy_price, avg_sell_price,
			current_price, current_value, total_gain, roi_percent,
			is_airdrop, entry_count, exit_count, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (wallet, contract) DO UPDATE SET
			token_symbol = EXCLUDED.token_symbol,
			total_bought = EXCLUDED.total_bought,
			total_sold = EXCLUDED.total_sold,
			remaining = EXCLUDED.remaining,
			total_invested = EXCLUDED.total_invested,
			total_realized = EXCLUDED.total_realized,
			avg_buy_price = EXCLUDED.avg_buy_price,
			avg_sell_price = EXCLUDED.avg_sell_price,
			current_price = EXCLUDED.current_price,
			current_value = EXCLUDED.current_value,
			total_gain = EXCLUDED.total_gain,
			roi_percent = EXCLUDED.roi_percent,
			is_airdrop = EXCLUDED.is_airdrop,
			entry_count = EXCLUDED.entry_count,
			exit_count = EXCLUDED.exit_count,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.pool.Exec(ctx, query,
		state.Wallet,
		state.TokenSymbol,
		state.Contract,
		state.TotalBought,
		state.TotalSold,
		state.Remaining,
		state.TotalInvested,
		state.TotalRealized,
		state.AvgBuyPrice,
		state.AvgSellPrice,
		state.CurrentPrice,
		state.CurrentValue,
		state.TotalGain,
		state.ROIPercent,
		state.IsAirdrop,
		state.EntryCount,
		state.ExitCount,
		state.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("replace token ledger state: %w", err)
	}

	return nil
}

// Get retrieves the state for a wallet/token pair.
func (s *LedgerStore) Get(ctx context.Context, wallet, contract string) (*domain.TokenLedgerState, error) {
	query := `
		SELECT ` + ledgerColumns + `
		FROM token_ledger
		WHERE wallet = $1 AND contract = $2
	`

	row := s.pool.QueryRow(ctx, query, wallet, contract)
	state, err := scanLedgerState(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token ledger state: %w", err)
	}

	return state, nil
}

// GetByWallet retrieves all states for a wallet.
func (s *LedgerStore) GetByWallet(ctx context.Context, wallet string) ([]*domain.TokenLedgerState, error) {
	query := `
		SELECT ` + ledgerColumns + `
		FROM token_ledger
		WHERE wallet = $1
		ORDER BY contract ASC
	`

	rows, err := s.pool.Query(ctx, query, wallet)
	if err != nil {
		return nil, fmt.Errorf("get ledger states by wallet: %w", err)
	}
	defer rows.Close()

	var states []*domain.TokenLedgerState
	for rows.Next() {
		state, err := scanLedgerState(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger state row: %w", err)
		}
		states = append(states, state)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger state rows: %w", err)
	}

	return states, nil
}

// scanLedgerState scans one row into a TokenLedgerState.
func scanLedgerState(row pgx.Row) (*domain.TokenLedgerState, error) {
	var st domain.TokenLedgerState

	err := row.Scan(
		&st.Wallet,
		&st.TokenSymbol,
		&st.Contract,
		&st.TotalBought,
		&st.TotalSold,
		&st.Remaining,
		&st.TotalInvested,
		&st.TotalRealized,
		&st.AvgBuyPrice,
		&st.AvgSellPrice,
		&st.CurrentPrice,
		&st.CurrentValue,
		&st.TotalGain,
		&st.ROIPercent,
		&st.IsAirdrop,
		&st.EntryCount,
		&st.ExitCount,
		&st.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &st, nil
}
