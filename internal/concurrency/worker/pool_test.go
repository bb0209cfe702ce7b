package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"marketsync/internal/domain/model"
	"marketsync/internal/testutils"
)

func drain(ch <-chan model.Quote) int {
	n := 0
	for range ch {
		n++
	}
	return n
}

func TestPool_SavesEverything(t *testing.T) {
	store := testutils.NewMockQuoteStore()
	p := NewPool(3, 64, store, nil, nil)
	processed := p.Start(context.Background())

	for i := 0; i < 30; i++ {
		require.True(t, p.Submit(model.Quote{Symbol: fmt.Sprintf("S%d", i%6), Last: float64(i)}))
	}
	p.Close()

	require.Equal(t, 30, drain(processed))
	require.Equal(t, 30, store.SavedCount())

	// last write per symbol wins because shards keep order
	for i := 24; i < 30; i++ {
		require.Equal(t, float64(i), store.Quotes[fmt.Sprintf("S%d", i%6)].Last)
	}

	st := p.Stats()
	require.Equal(t, int64(30), st.Submitted)
	require.Equal(t, int64(30), st.Saved)
	require.Zero(t, st.Dropped)
}

func TestPool_Fallback(t *testing.T) {
	primary := testutils.NewMockQuoteStore()
	primary.SaveErr = errors.New("redis down")
	fallback := testutils.NewMockQuoteStore()

	p := NewPool(2, 8, primary, fallback, nil)
	processed := p.Start(context.Background())
	require.True(t, p.Submit(model.Quote{Symbol: "AAPL", Last: 1}))
	require.True(t, p.Submit(model.Quote{Symbol: "MSFT", Last: 2}))
	p.Close()
	drain(processed)

	require.Equal(t, 2, fallback.SavedCount())
	require.Equal(t, int64(2), p.Stats().Fallback)
}

func TestPool_FailureWithoutFallback(t *testing.T) {
	primary := testutils.NewMockQuoteStore()
	primary.SaveErr = errors.New("redis down")

	p := NewPool(1, 8, primary, nil, nil)
	processed := p.Start(context.Background())
	p.Submit(model.Quote{Symbol: "AAPL", Last: 1})
	p.Close()
	drain(processed)

	require.Equal(t, int64(1), p.Stats().Failed)
}

func TestPool_SubmitFullOrClosed(t *testing.T) {
	p := NewPool(1, 1, testutils.NewMockQuoteStore(), nil, nil)

	// not started: the queue fills up
	require.True(t, p.Submit(model.Quote{Symbol: "AAPL"}))
	require.False(t, p.Submit(model.Quote{Symbol: "AAPL"}))

	p.Close()
	p.Close()
	require.False(t, p.Submit(model.Quote{Symbol: "AAPL"}))
	require.Equal(t, int64(2), p.Stats().Dropped)
}
