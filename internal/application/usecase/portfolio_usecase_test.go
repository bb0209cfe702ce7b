package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"marketsync/internal/application/service"
	"marketsync/internal/domain/calendar"
	"marketsync/internal/domain/model"
	"marketsync/internal/testutils"
)

func newUseCase(t *testing.T, txs []model.Transaction) (*PortfolioUseCase, *service.PriceCache, *testutils.MockTransactionSource) {
	t.Helper()
	src := &testutils.MockTransactionSource{Transactions: txs}
	cache := service.NewPriceCache()
	uc := NewPortfolioUseCase("acct-1", src, service.NewLotLedger(calendar.Default(), model.BuyOnly), cache, service.NewChangeAnimator(time.Minute, nil))
	uc.clock = func() time.Time { return time.Date(2024, 3, 6, 16, 0, 0, 0, time.UTC) }
	return uc, cache, src
}

func TestPortfolioUseCase_Summary(t *testing.T) {
	yesterday := time.Date(2024, 3, 5, 15, 0, 0, 0, time.UTC)
	uc, cache, src := newUseCase(t, []model.Transaction{
		{Type: model.Buy, Symbol: "AAPL", Quantity: 10, PricePerShare: 100, ExecutedAt: yesterday},
		{Type: model.Buy, Symbol: "MSFT", Quantity: 1, PricePerShare: 400, ExecutedAt: yesterday},
		{Type: model.Sell, Symbol: "MSFT", Quantity: 1, PricePerShare: 410, ExecutedAt: yesterday},
	})
	require.NoError(t, uc.ReloadLots(context.Background()))
	require.Equal(t, 1, src.Calls)
	require.Equal(t, []string{"AAPL", "MSFT"}, uc.HeldSymbols())

	cache.Update("AAPL", 105, 2, yesterday)
	s := uc.Summary()
	require.Len(t, s.Holdings, 2)
	require.Equal(t, 1050.0, s.TotalValue)
	require.Equal(t, 21.0, s.TotalChange)

	h, ok := uc.Holding("AAPL")
	require.True(t, ok)
	require.Equal(t, 50.0, h.PnL)

	_, ok = uc.Holding("TSLA")
	require.False(t, ok)

	require.Len(t, uc.Quotes(), 1)
	_, ok = uc.Quote("AAPL")
	require.True(t, ok)
	require.Empty(t, uc.Changed())
	require.Equal(t, "acct-1", uc.Account())
}

func TestPortfolioUseCase_ReloadError(t *testing.T) {
	uc, _, src := newUseCase(t, nil)
	src.Err = errors.New("db down")
	require.Error(t, uc.ReloadLots(context.Background()))
	require.Empty(t, uc.Lots())
}

func TestPortfolioUseCase_SessionFlagEvaluatedAtReadTime(t *testing.T) {
	// Tuesday after the close, New York time
	afterClose := time.Date(2024, 3, 5, 21, 0, 0, 0, time.UTC)
	uc, cache, _ := newUseCase(t, []model.Transaction{
		{Type: model.Buy, Symbol: "AAPL", Quantity: 10, PricePerShare: 100, ExecutedAt: afterClose},
	})

	now := time.Date(2024, 3, 6, 13, 0, 0, 0, time.UTC) // 08:00 ET
	uc.clock = func() time.Time { return now }
	require.NoError(t, uc.ReloadLots(context.Background()))
	cache.Update("AAPL", 105, 2, now)

	h, ok := uc.Holding("AAPL")
	require.True(t, ok)
	require.Zero(t, h.TodaysChangeContribution)
	require.Zero(t, uc.Summary().TotalChange)
	require.False(t, uc.Lots()["AAPL"][0].MarketHasOpenedSince)

	// past the open without a reload
	now = time.Date(2024, 3, 6, 15, 0, 0, 0, time.UTC) // 10:00 ET
	h, ok = uc.Holding("AAPL")
	require.True(t, ok)
	require.NotZero(t, h.TodaysChangeContribution)
	require.NotZero(t, uc.Summary().TotalChange)
	require.True(t, uc.Lots()["AAPL"][0].MarketHasOpenedSince)
}
