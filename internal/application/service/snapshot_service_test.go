package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"marketsync/internal/domain/model"
	"marketsync/internal/testutils"
)

type stubPortfolio struct {
	summary   model.PortfolioSummary
	reloadErr error
	reloads   int
}

func (p *stubPortfolio) Account() string                 { return "acct" }
func (p *stubPortfolio) Summary() model.PortfolioSummary { return p.summary }
func (p *stubPortfolio) ReloadLots(context.Context) error {
	p.reloads++
	return p.reloadErr
}

func TestSnapshotService_RecordNow(t *testing.T) {
	rec := &testutils.MockRecorder{}
	p := &stubPortfolio{}
	svc := NewSnapshotService(context.Background(), p, rec, time.UTC, nil, nil)

	require.NoError(t, svc.RecordNow(context.Background()))
	require.Zero(t, rec.Count(), "empty portfolio is skipped")

	p.summary = model.PortfolioSummary{
		Holdings:   []model.HoldingSummary{{Symbol: "AAPL", TotalQuantity: 1}},
		TotalValue: 10,
	}
	require.NoError(t, svc.RecordNow(context.Background()))
	require.Equal(t, 1, rec.Count())
	require.Equal(t, []string{"acct"}, rec.Accounts)

	rec.Err = errors.New("disk full")
	require.Error(t, svc.RecordNow(context.Background()))
}

func TestSnapshotService_RefreshNow(t *testing.T) {
	p := &stubPortfolio{}
	called := 0
	svc := NewSnapshotService(context.Background(), p, &testutils.MockRecorder{}, time.UTC, func(context.Context) error {
		called++
		return nil
	}, nil)

	require.NoError(t, svc.RefreshNow(context.Background()))
	require.Equal(t, 1, p.reloads)
	require.Equal(t, 1, called)

	p.reloadErr = errors.New("db down")
	require.Error(t, svc.RefreshNow(context.Background()))
	require.Equal(t, 1, called)
}

func TestSnapshotService_Schedule(t *testing.T) {
	rec := &testutils.MockRecorder{}
	p := &stubPortfolio{summary: model.PortfolioSummary{Holdings: []model.HoldingSummary{{Symbol: "AAPL", TotalQuantity: 1}}}}
	svc := NewSnapshotService(context.Background(), p, rec, time.UTC, nil, nil)

	require.Error(t, svc.RegisterAll("not a cron", ""))

	svc = NewSnapshotService(context.Background(), p, rec, time.UTC, nil, nil)
	require.NoError(t, svc.RegisterAll("* * * * * *", "@every 1h"))
	svc.Start()
	require.Eventually(t, func() bool { return rec.Count() >= 1 }, 3*time.Second, 20*time.Millisecond)
	svc.Stop()
}
