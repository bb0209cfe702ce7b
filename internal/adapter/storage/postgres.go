package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"marketsync/internal/domain/model"
)

// PostgresTransactions reads the transaction history from Postgres.
type PostgresTransactions struct {
	db *sql.DB
}

func NewPostgresTransactions(connStr string) (*PostgresTransactions, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresTransactions{db: db}, nil
}

func (a *PostgresTransactions) InitSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS transactions (
		id SERIAL PRIMARY KEY,
		account VARCHAR(64) NOT NULL,
		tx_type VARCHAR(4) NOT NULL CHECK (tx_type IN ('BUY', 'SELL')),
		symbol VARCHAR(20) NOT NULL,
		quantity DOUBLE PRECISION NOT NULL,
		price_per_share DOUBLE PRECISION NOT NULL,
		executed_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_transactions_account_executed ON transactions(account, executed_at);
	`
	_, err := a.db.ExecContext(ctx, query)
	return err
}

func (a *PostgresTransactions) ListTransactions(ctx context.Context, account string) ([]model.Transaction, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT tx_type, symbol, quantity, price_per_share, executed_at
		FROM transactions
		WHERE account = $1
		ORDER BY executed_at, id`, account)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []model.Transaction
	for rows.Next() {
		var (
			tx     model.Transaction
			txType string
		)
		if err := rows.Scan(&txType, &tx.Symbol, &tx.Quantity, &tx.PricePerShare, &tx.ExecutedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		tx.Type = model.TxType(strings.ToUpper(txType))
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (a *PostgresTransactions) AddTransaction(ctx context.Context, account string, tx model.Transaction) error {
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO transactions (account, tx_type, symbol, quantity, price_per_share, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		account, string(tx.Type), strings.ToUpper(tx.Symbol), tx.Quantity, tx.PricePerShare, tx.ExecutedAt)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (a *PostgresTransactions) Ping(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

func (a *PostgresTransactions) Close() error {
	return a.db.Close()
}
