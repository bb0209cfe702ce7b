package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"marketsync/internal/domain/model"
)

// SQLiteStore is the local backend: transaction history, portfolio snapshots
// and a fallback copy of the last known quotes, all in one file.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *zap.Logger
}

// OpenSQLite opens (or creates) the database and runs migrations.
func OpenSQLite(path string, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer; readers go through the same handle
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("sqlite store opened", zap.String("path", path))
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS transactions (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			account         TEXT NOT NULL,
			tx_type         TEXT NOT NULL,
			symbol          TEXT NOT NULL,
			quantity        REAL NOT NULL,
			price_per_share REAL NOT NULL,
			executed_at     INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tx_account ON transactions(account, executed_at)`,

		`CREATE TABLE IF NOT EXISTS portfolio_snapshots (
			id                   INTEGER PRIMARY KEY AUTOINCREMENT,
			account              TEXT NOT NULL,
			timestamp            INTEGER NOT NULL,
			total_value          REAL,
			total_cost           REAL,
			total_pnl            REAL,
			total_pnl_percent    REAL,
			total_change         REAL,
			today_change_percent REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_ts ON portfolio_snapshots(account, timestamp)`,

		`CREATE TABLE IF NOT EXISTS holding_snapshots (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			snapshot_id     INTEGER NOT NULL REFERENCES portfolio_snapshots(id),
			symbol          TEXT NOT NULL,
			quantity        REAL,
			avg_cost_basis  REAL,
			last_price      REAL,
			market_value    REAL,
			pnl             REAL,
			today_change    REAL,
			has_quote       INTEGER
		)`,

		`CREATE TABLE IF NOT EXISTS quotes (
			symbol         TEXT PRIMARY KEY,
			last           REAL NOT NULL,
			percent_change REAL NOT NULL,
			observed_at    INTEGER NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

func (s *SQLiteStore) ListTransactions(ctx context.Context, account string) ([]model.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT tx_type, symbol, quantity, price_per_share, executed_at
		FROM transactions WHERE account = ? ORDER BY executed_at, id`, account)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []model.Transaction
	for rows.Next() {
		var (
			tx       model.Transaction
			txType   string
			executed int64
		)
		if err := rows.Scan(&txType, &tx.Symbol, &tx.Quantity, &tx.PricePerShare, &executed); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		tx.Type = model.TxType(strings.ToUpper(txType))
		tx.ExecutedAt = time.UnixMilli(executed).UTC()
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) AddTransaction(ctx context.Context, account string, tx model.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `INSERT INTO transactions
		(account, tx_type, symbol, quantity, price_per_share, executed_at)
		VALUES (?,?,?,?,?,?)`,
		account, string(tx.Type), strings.ToUpper(tx.Symbol), tx.Quantity, tx.PricePerShare, tx.ExecutedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// RecordSnapshot stores the summary and its holdings in one transaction.
func (s *SQLiteStore) RecordSnapshot(ctx context.Context, account string, summary model.PortfolioSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := summary.ComputedAt
	if ts.IsZero() {
		ts = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `INSERT INTO portfolio_snapshots
		(account, timestamp, total_value, total_cost, total_pnl, total_pnl_percent, total_change, today_change_percent)
		VALUES (?,?,?,?,?,?,?,?)`,
		account, ts.Unix(), summary.TotalValue, summary.TotalCost, summary.TotalPnL,
		summary.TotalPnLPercent, summary.TotalChange, summary.TodayChangePercent,
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("snapshot id: %w", err)
	}

	for _, h := range summary.Holdings {
		_, err := tx.ExecContext(ctx, `INSERT INTO holding_snapshots
			(snapshot_id, symbol, quantity, avg_cost_basis, last_price, market_value, pnl, today_change, has_quote)
			VALUES (?,?,?,?,?,?,?,?,?)`,
			id, h.Symbol, h.TotalQuantity, h.AvgCostBasis, h.LastPrice, h.MarketValue, h.PnL,
			h.TodaysChangeContribution, h.HasQuote,
		)
		if err != nil {
			return fmt.Errorf("insert holding %s: %w", h.Symbol, err)
		}
	}
	return tx.Commit()
}

// SnapshotCount returns how many snapshots exist for account.
func (s *SQLiteStore) SnapshotCount(ctx context.Context, account string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM portfolio_snapshots WHERE account = ?`, account).Scan(&n)
	return n, err
}

func (s *SQLiteStore) SaveQuote(ctx context.Context, q model.Quote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `INSERT INTO quotes (symbol, last, percent_change, observed_at)
		VALUES (?,?,?,?)
		ON CONFLICT(symbol) DO UPDATE SET
			last = excluded.last,
			percent_change = excluded.percent_change,
			observed_at = excluded.observed_at
		WHERE excluded.observed_at >= quotes.observed_at`,
		q.Symbol, q.Last, q.PercentChange, q.ObservedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upsert quote: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LoadQuotes(ctx context.Context, symbols []string) ([]model.Quote, error) {
	if len(symbols) == 0 {
		return nil, nil
	}
	args := make([]any, len(symbols))
	for i, sym := range symbols {
		args[i] = sym
	}
	query := `SELECT symbol, last, percent_change, observed_at FROM quotes WHERE symbol IN (?` +
		strings.Repeat(",?", len(symbols)-1) + `) ORDER BY symbol`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query quotes: %w", err)
	}
	defer rows.Close()

	var out []model.Quote
	for rows.Next() {
		var (
			q        model.Quote
			observed int64
		)
		if err := rows.Scan(&q.Symbol, &q.Last, &q.PercentChange, &observed); err != nil {
			return nil, fmt.Errorf("scan quote: %w", err)
		}
		q.ObservedAt = time.UnixMilli(observed).UTC()
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	s.logger.Info("closing sqlite store")
	return s.db.Close()
}
