package port

import (
	"context"

	"marketsync/internal/domain/model"
)

// TransactionSource supplies the raw transaction history of an account.
type TransactionSource interface {
	ListTransactions(ctx context.Context, account string) ([]model.Transaction, error)
	Ping(ctx context.Context) error
	Close() error
}

// Recorder persists portfolio snapshots.
type Recorder interface {
	RecordSnapshot(ctx context.Context, account string, summary model.PortfolioSummary) error
	Close() error
}
