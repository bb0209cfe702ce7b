package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"marketsync/internal/domain/model"
)

func newStore(t *testing.T) (*RedisQuoteStore, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisQuoteStoreFromClient(rdb, time.Minute), mr, rdb
}

func TestRedisQuoteStore_SaveAndLoad(t *testing.T) {
	store, mr, _ := newStore(t)
	ctx := context.Background()
	at := time.Date(2024, 3, 5, 15, 0, 0, 0, time.UTC)

	require.NoError(t, store.Ping(ctx))
	require.NoError(t, store.SaveQuote(ctx, model.Quote{Symbol: "AAPL", Last: 101.5, PercentChange: 1.2, ObservedAt: at}))
	require.NoError(t, store.SaveQuote(ctx, model.Quote{Symbol: "MSFT", Last: 400, ObservedAt: at}))

	require.True(t, mr.Exists("quote:AAPL"))
	require.Equal(t, time.Minute, mr.TTL("quote:AAPL"))

	quotes, err := store.LoadQuotes(ctx, []string{"AAPL", "GOOG", "MSFT"})
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	require.Equal(t, "AAPL", quotes[0].Symbol)
	require.Equal(t, 101.5, quotes[0].Last)
	require.True(t, at.Equal(quotes[0].ObservedAt))
	require.Equal(t, "MSFT", quotes[1].Symbol)

	none, err := store.LoadQuotes(ctx, nil)
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestRedisQuoteStore_Publishes(t *testing.T) {
	store, _, rdb := newStore(t)
	ctx := context.Background()

	sub := rdb.Subscribe(ctx, Channel("AAPL"))
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, store.SaveQuote(ctx, model.Quote{Symbol: "AAPL", Last: 1}))

	select {
	case msg := <-sub.Channel():
		require.Equal(t, "quotes.AAPL", msg.Channel)
		require.Contains(t, msg.Payload, `"symbol":"AAPL"`)
	case <-time.After(2 * time.Second):
		t.Fatal("no message published")
	}
}

func TestRedisQuoteStore_CorruptValue(t *testing.T) {
	store, mr, _ := newStore(t)
	require.NoError(t, mr.Set("quote:AAPL", "not json"))

	_, err := store.LoadQuotes(context.Background(), []string{"AAPL"})
	require.Error(t, err)
}
