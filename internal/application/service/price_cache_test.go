package service

import (
	"math"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"marketsync/internal/domain/model"
)

var t0 = time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC)

func TestPriceCache_UpdateAndChanged(t *testing.T) {
	c := NewPriceCache()

	require.False(t, c.Update("AAPL", 100, 1, t0), "first quote is not a change")
	q, ok := c.Get("AAPL")
	require.True(t, ok)
	require.Equal(t, 100.0, q.Last)

	require.False(t, c.Update("AAPL", 100, 1.1, t0.Add(time.Second)), "same price")
	require.True(t, c.Update("AAPL", 101, 2, t0.Add(2*time.Second)))

	q, _ = c.Get("AAPL")
	require.Equal(t, 2.0, q.PercentChange)

	_, ok = c.Get("MSFT")
	require.False(t, ok)
}

func TestPriceCache_RejectsStaleAndInvalid(t *testing.T) {
	c := NewPriceCache()
	c.Update("AAPL", 100, 0, t0)

	require.False(t, c.Update("AAPL", 90, 0, t0.Add(-time.Millisecond)))
	q, _ := c.Get("AAPL")
	require.Equal(t, 100.0, q.Last)

	// equal timestamps are accepted
	require.True(t, c.Update("AAPL", 95, 0, t0))

	require.False(t, c.Update("AAPL", -1, 0, t0.Add(time.Hour)))
	require.False(t, c.Update("AAPL", math.NaN(), 0, t0.Add(time.Hour)))
	require.False(t, c.Update("", 1, 0, t0))
	q, _ = c.Get("AAPL")
	require.Equal(t, 95.0, q.Last)
}

func TestPriceCache_OutOfOrderConverges(t *testing.T) {
	type upd struct {
		price float64
		at    time.Time
	}
	updates := make([]upd, 50)
	for i := range updates {
		updates[i] = upd{price: float64(i + 1), at: t0.Add(time.Duration(i) * time.Second)}
	}

	r := rand.New(rand.NewSource(1))
	for round := 0; round < 20; round++ {
		r.Shuffle(len(updates), func(i, j int) { updates[i], updates[j] = updates[j], updates[i] })
		c := NewPriceCache()
		for _, u := range updates {
			c.Update("AAPL", u.price, 0, u.at)
		}
		q, _ := c.Get("AAPL")
		require.Equal(t, 50.0, q.Last)
		require.Equal(t, t0.Add(49*time.Second), q.ObservedAt)
	}
}

func TestPriceCache_Reset(t *testing.T) {
	c := NewPriceCache()
	c.Update("AAPL", 1, 0, t0)
	c.Update("MSFT", 2, 0, t0)

	c.Reset([]string{"MSFT", "TSLA"})

	_, ok := c.Get("AAPL")
	require.False(t, ok)
	q, ok := c.Get("MSFT")
	require.True(t, ok)
	require.Equal(t, 2.0, q.Last)
	_, ok = c.Get("TSLA")
	require.False(t, ok)

	require.Equal(t, []string{"MSFT", "TSLA"}, c.Symbols())
	require.Len(t, c.Snapshot(), 1)
}

func TestPriceCache_Subscribe(t *testing.T) {
	c := NewPriceCache()
	ch, cancel := c.Subscribe(1)

	c.Update("AAPL", 1, 0, t0)
	c.Update("AAPL", 2, 0, t0.Add(time.Second)) // dropped, buffer full

	q := <-ch
	require.Equal(t, 1.0, q.Last)

	cancel()
	cancel()
	_, open := <-ch
	require.False(t, open)
	c.Update("AAPL", 3, 0, t0.Add(2*time.Second))
}

func TestPriceCache_ConcurrentAccess(t *testing.T) {
	c := NewPriceCache()
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(2)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				c.Update("AAPL", float64(i), 0, t0.Add(time.Duration(i)*time.Millisecond))
			}
		}(w)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				c.Get("AAPL")
				c.Snapshot()
			}
		}()
	}
	wg.Wait()
	q, _ := c.Get("AAPL")
	require.Equal(t, 199.0, q.Last)
}

func TestPriceCache_FutureFeedTimestampDoesNotFreezeSymbol(t *testing.T) {
	c := NewPriceCache()

	bad := model.NewPriceMessage("AAPL", 100, 0, time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC))
	accepted, _ := c.Apply(bad.Event(t0))
	require.True(t, accepted)

	for i := 1; i <= 3; i++ {
		at := t0.Add(time.Duration(i) * time.Hour)
		msg := model.NewPriceMessage("AAPL", 100+float64(i), 0, at)
		accepted, changed := c.Apply(msg.Event(at))
		require.True(t, accepted, "tick %d", i)
		require.True(t, changed, "tick %d", i)
	}

	q, ok := c.Get("AAPL")
	require.True(t, ok)
	require.Equal(t, 103.0, q.Last)
	require.True(t, q.ObservedAt.Equal(t0.Add(3*time.Hour)))
}
