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

func price(sym string, p float64, at time.Time) model.PriceEvent {
	return model.PriceEvent{Symbol: sym, Price: p, PercentChange: 1, ObservedAt: at}
}

func TestFeedService_SubscribeAndPrices(t *testing.T) {
	src := &testutils.MockSource{}
	cache := NewPriceCache()
	animator := NewChangeAnimator(time.Minute, nil)
	sink := &testutils.MockSink{}
	svc := NewFeedService(src, cache, animator, nil, WithQuoteSink(sink))

	require.NoError(t, svc.Subscribe(context.Background(), []string{"aapl", "MSFT", "AAPL"}))
	require.Equal(t, 1, src.OpenCount())
	open := src.Last()
	require.Equal(t, []string{"AAPL", "MSFT"}, open.Symbols)

	open.Handlers.OnOpen()
	open.Handlers.OnPrice(price("AAPL", 100, t0))
	require.Empty(t, animator.Active(), "first quote is not a change")

	open.Handlers.OnPrice(price("AAPL", 101, t0.Add(time.Second)))
	require.Equal(t, []string{"AAPL"}, animator.Active())

	open.Handlers.OnPrice(price("AAPL", 99, t0.Add(-time.Second)))
	q, ok := cache.Get("AAPL")
	require.True(t, ok)
	require.Equal(t, 101.0, q.Last)
	require.Equal(t, 2, sink.Count(), "stale quote is not persisted")

	st := svc.Status()
	require.Equal(t, "mock", st.Source)
	require.Equal(t, []string{"AAPL", "MSFT"}, st.Symbols)
	require.NotNil(t, st.OpenedAt)
	require.Empty(t, st.LastError)
}

func TestFeedService_GenerationGuard(t *testing.T) {
	src := &testutils.MockSource{}
	cache := NewPriceCache()
	svc := NewFeedService(src, cache, NewChangeAnimator(time.Minute, nil), nil)
	ctx := context.Background()

	require.NoError(t, svc.Subscribe(ctx, []string{"AAPL"}))
	first := src.Last()
	require.NoError(t, svc.Subscribe(ctx, []string{"MSFT"}))
	second := src.Last()

	require.True(t, first.Controller.Closed())
	require.False(t, second.Controller.Closed())

	first.Handlers.OnPrice(price("AAPL", 1, t0))
	first.Handlers.OnError(errors.New("late"))
	_, ok := cache.Get("AAPL")
	require.False(t, ok, "callbacks of a superseded connection are dropped")
	require.Empty(t, svc.Status().LastError)

	second.Handlers.OnPrice(price("MSFT", 2, t0))
	_, ok = cache.Get("MSFT")
	require.True(t, ok)
	require.Equal(t, uint64(2), svc.Status().Generation)
}

func TestFeedService_SeedsFromStoreAndKeepsRetained(t *testing.T) {
	store := testutils.NewMockQuoteStore(
		model.Quote{Symbol: "AAPL", Last: 90, ObservedAt: t0.Add(-time.Hour)},
		model.Quote{Symbol: "TSLA", Last: 200, ObservedAt: t0.Add(-time.Hour)},
	)
	src := &testutils.MockSource{}
	cache := NewPriceCache()
	svc := NewFeedService(src, cache, nil, nil, WithQuoteStore(store))
	ctx := context.Background()

	require.NoError(t, svc.Subscribe(ctx, []string{"AAPL", "MSFT"}))
	q, ok := cache.Get("AAPL")
	require.True(t, ok)
	require.Equal(t, 90.0, q.Last)

	src.Last().Handlers.OnPrice(price("MSFT", 300, t0))
	require.NoError(t, svc.Subscribe(ctx, []string{"MSFT", "TSLA"}))

	_, ok = cache.Get("AAPL")
	require.False(t, ok)
	q, _ = cache.Get("MSFT")
	require.Equal(t, 300.0, q.Last, "retained symbol keeps its live quote")
	q, _ = cache.Get("TSLA")
	require.Equal(t, 200.0, q.Last)
}

func TestFeedService_StoreFailureDegrades(t *testing.T) {
	store := testutils.NewMockQuoteStore()
	store.LoadErr = errors.New("redis down")
	src := &testutils.MockSource{}
	svc := NewFeedService(src, NewPriceCache(), nil, nil, WithQuoteStore(store))

	require.NoError(t, svc.Subscribe(context.Background(), []string{"AAPL"}))
	require.Equal(t, 1, src.OpenCount())
}

func TestFeedService_EmptySymbols(t *testing.T) {
	src := &testutils.MockSource{}
	svc := NewFeedService(src, NewPriceCache(), nil, nil)
	ctx := context.Background()

	require.NoError(t, svc.Subscribe(ctx, []string{"AAPL"}))
	require.NoError(t, svc.Subscribe(ctx, nil))
	require.Equal(t, 1, src.OpenCount())
	require.True(t, src.Last().Controller.Closed())
	require.Equal(t, "CLOSED", svc.Status().State)
	require.Empty(t, svc.Symbols())
}

func TestFeedService_WaitsForPreviousClose(t *testing.T) {
	src := &testutils.MockSource{HoldDone: true}
	svc := NewFeedService(src, NewPriceCache(), nil, nil)

	require.NoError(t, svc.Subscribe(context.Background(), []string{"AAPL"}))
	first := src.Last()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := svc.Subscribe(ctx, []string{"MSFT"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, 1, src.OpenCount(), "no new connection before the old one stopped")

	first.Controller.Release()
	require.NoError(t, svc.Subscribe(context.Background(), []string{"MSFT"}))
	require.Equal(t, 2, src.OpenCount())
}

func TestFeedService_SetSourceAndClose(t *testing.T) {
	a := &testutils.MockSource{NameVal: "sse"}
	b := &testutils.MockSource{NameVal: "poll"}
	animator := NewChangeAnimator(time.Minute, nil)
	svc := NewFeedService(a, NewPriceCache(), animator, nil)
	ctx := context.Background()

	require.NoError(t, svc.Subscribe(ctx, []string{"AAPL"}))
	require.NoError(t, svc.SetSource(ctx, b))
	require.True(t, a.Last().Controller.Closed())
	require.Equal(t, []string{"AAPL"}, b.Last().Symbols)
	require.Equal(t, "poll", svc.Status().Source)

	b.Last().Handlers.OnError(errors.New("dial poll: refused"))
	require.Equal(t, "dial poll: refused", svc.Status().LastError)

	require.NoError(t, svc.Resubscribe(ctx))
	require.Equal(t, 2, b.OpenCount())

	animator.Trigger("AAPL")
	require.NoError(t, svc.Close(ctx))
	require.True(t, b.Last().Controller.Closed())
	require.Empty(t, animator.Active())
}
