package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"smart-wallet-engine/internal/domain"
	"smart-wallet-engine/internal/storage"
)

// TransactionStore implements storage.TransactionStore using PostgreSQL.
type TransactionStore struct {
	pool *Pool
}

// NewTransactionStore creates a new TransactionStore.
func NewTransactionStore(pool *Pool) *TransactionStore {
	return &TransactionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TransactionStore = (*TransactionStore)(nil)

const txColumns = `
	id, wallet, token_symbol, contract, tx_hash, timestamp, direction,
	quantity, unit_price, value_usd, kind, counterparty,
	inherited_price, inherited, created_at
`

// InsertBatch adds transactions, skipping rows whose (wallet, contract,
// tx_hash) already exists. ON CONFLICT DO NOTHING makes replays no-ops.
func (s *TransactionStore) InsertBatch(ctx context.Context, txs []*domain.Transaction) (int, error) {
	if len(txs) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO transactions (
			wallet, token_symbol, contract, tx_hash, timestamp, direction,
			quantity, unit_price, value_usd, kind, counterparty
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (wallet, contract, tx_hash) DO NOTHING
	`

	inserted := 0
	for _, t := range txs {
		tag, err := tx.Exec(ctx, query,
			t.Wallet,
			t.TokenSymbol,
			t.Contract,
			t.TxHash,
			t.Timestamp,
			t.Direction,
			t.Quantity,
			t.UnitPrice,
			t.ValueUSD,
			t.Kind,
			t.Counterparty,
		)
		if err != nil {
			return 0, fmt.Errorf("insert transaction: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}

	return inserted, nil
}

// GetByWalletToken retrieves all transactions for a wallet/token pair,
// ordered by timestamp ASC.
func (s *TransactionStore) GetByWalletToken(ctx context.Context, wallet, contract string) ([]*domain.Transaction, error) {
	query := `
		SELECT ` + txColumns + `
		FROM transactions
		WHERE wallet = $1 AND contract = $2
		ORDER BY timestamp ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, wallet, contract)
	if err != nil {
		return nil, fmt.Errorf("get transactions by wallet token: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// GetBuys retrieves the wallet's "in" transactions for a token.
func (s *TransactionStore) GetBuys(ctx context.Context, wallet, contract string) ([]*domain.Transaction, error) {
	query := `
		SELECT ` + txColumns + `
		FROM transactions
		WHERE wallet = $1 AND contract = $2 AND direction = 'in'
		ORDER BY timestamp ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, wallet, contract)
	if err != nil {
		return nil, fmt.Errorf("get buy transactions: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// GetBuysInWindow retrieves all "in" transactions within [start, end].
func (s *TransactionStore) GetBuysInWindow(ctx context.Context, start, end int64) ([]*domain.Transaction, error) {
	query := `
		SELECT ` + txColumns + `
		FROM transactions
		WHERE direction = 'in' AND timestamp >= $1 AND timestamp <= $2
		ORDER BY timestamp ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("get buys in window: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// DistinctContracts lists the token contracts a wallet has transacted.
func (s *TransactionStore) DistinctContracts(ctx context.Context, wallet string) ([]string, error) {
	query := `
		SELECT DISTINCT contract
		FROM transactions
		WHERE wallet = $1
		ORDER BY contract ASC
	`

	rows, err := s.pool.Query(ctx, query, wallet)
	if err != nil {
		return nil, fmt.Errorf("get distinct contracts: %w", err)
	}
	defer rows.Close()

	var contracts []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan contract: %w", err)
		}
		contracts = append(contracts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contracts: %w", err)
	}

	return contracts, nil
}

// SetInheritedPrice writes the inherited unit price onto the wallet's
// unpriced "in" rows for a token. The inherited=false guard makes the write
// once-only at the SQL level.
func (s *TransactionStore) SetInheritedPrice(ctx context.Context, wallet, contract string, price float64) (int, error) {
	query := `
		UPDATE transactions
		SET inherited_price = $1, inherited = TRUE
		WHERE wallet = $2 AND contract = $3
		  AND direction = 'in' AND unit_price = 0 AND inherited = FALSE
	`

	tag, err := s.pool.Exec(ctx, query, price, wallet, contract)
	if err != nil {
		return 0, fmt.Errorf("set inherited price: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

// scanTransactions scans multiple rows into a slice of Transaction.
func scanTransactions(rows pgx.Rows) ([]*domain.Transaction, error) {
	var txs []*domain.Transaction

	for rows.Next() {
		var t domain.Transaction

		err := rows.Scan(
			&t.ID,
			&t.Wallet,
			&t.TokenSymbol,
			&t.Contract,
			&t.TxHash,
			&t.Timestamp,
			&t.Direction,
			&t.Quantity,
			&t.UnitPrice,
			&t.ValueUSD,
			&t.Kind,
			&t.Counterparty,
			&t.InheritedPrice,
			&t.Inherited,
			&t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}

		txs = append(txs, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction rows: %w", err)
	}

	return txs, nil
}
