package storage

import (
	"context"

	"marketsync/internal/domain/model"
)

// NoopRecorder discards snapshots. Used when no SQLite path is configured.
type NoopRecorder struct{}

func (NoopRecorder) RecordSnapshot(context.Context, string, model.PortfolioSummary) error {
	return nil
}

func (NoopRecorder) Close() error { return nil }
