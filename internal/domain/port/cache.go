package port

import (
	"context"

	"marketsync/internal/domain/model"
)

// QuoteStore keeps the last known quote per symbol outside the process so a
// restarted or disconnected client can still show prices.
type QuoteStore interface {
	SaveQuote(ctx context.Context, quote model.Quote) error
	LoadQuotes(ctx context.Context, symbols []string) ([]model.Quote, error)
	Ping(ctx context.Context) error
	Close() error
}
