package service

import (
	"math"
	"sort"
	"sync"
	"time"

	"marketsync/internal/domain/model"
)

// PriceCache is the single source of truth for the current price of every
// subscribed symbol. Writes are serialized; any number of readers may call
// Get and Snapshot concurrently.
type PriceCache struct {
	mu       sync.RWMutex
	quotes   map[string]model.Quote
	universe map[string]struct{}

	subMu sync.Mutex
	subs  map[chan model.Quote]struct{}
}

func NewPriceCache() *PriceCache {
	return &PriceCache{
		quotes:   make(map[string]model.Quote),
		universe: make(map[string]struct{}),
		subs:     make(map[chan model.Quote]struct{}),
	}
}

// Update stores the quote unless a newer one is already cached. It reports
// whether the cached price moved. The first quote for a symbol does not
// count as a change.
func (c *PriceCache) Update(symbol string, price, percentChange float64, observedAt time.Time) bool {
	_, changed := c.store(model.Quote{Symbol: symbol, Last: price, PercentChange: percentChange, ObservedAt: observedAt})
	return changed
}

// Apply is Update for a feed event that also reports whether the event was
// accepted at all.
func (c *PriceCache) Apply(ev model.PriceEvent) (accepted, changed bool) {
	return c.store(ev.Quote())
}

func (c *PriceCache) store(q model.Quote) (accepted, changed bool) {
	if q.Symbol == "" || q.Last < 0 || math.IsNaN(q.Last) || math.IsInf(q.Last, 0) {
		return false, false
	}

	c.mu.Lock()
	prev, had := c.quotes[q.Symbol]
	if had && q.ObservedAt.Before(prev.ObservedAt) {
		c.mu.Unlock()
		return false, false
	}
	c.quotes[q.Symbol] = q
	c.universe[q.Symbol] = struct{}{}
	c.mu.Unlock()

	c.publish(q)
	return true, had && prev.Last != q.Last
}

func (c *PriceCache) Get(symbol string) (model.Quote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	q, ok := c.quotes[symbol]
	return q, ok
}

// Reset switches the cache to a new symbol universe. Quotes of symbols that
// stay are kept, new symbols start unknown and the rest are discarded.
func (c *PriceCache) Reset(symbols []string) {
	next := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		next[s] = struct{}{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for s := range c.quotes {
		if _, keep := next[s]; !keep {
			delete(c.quotes, s)
		}
	}
	c.universe = next
}

// Symbols returns the current universe, sorted.
func (c *PriceCache) Symbols() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.universe))
	for s := range c.universe {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Snapshot copies all known quotes.
func (c *PriceCache) Snapshot() map[string]model.Quote {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]model.Quote, len(c.quotes))
	for s, q := range c.quotes {
		out[s] = q
	}
	return out
}

// Subscribe returns a channel receiving every accepted quote. Slow
// subscribers lose quotes rather than block the writer. The returned func
// unsubscribes and closes the channel.
func (c *PriceCache) Subscribe(buffer int) (<-chan model.Quote, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan model.Quote, buffer)

	c.subMu.Lock()
	c.subs[ch] = struct{}{}
	c.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.subMu.Lock()
			delete(c.subs, ch)
			close(ch)
			c.subMu.Unlock()
		})
	}
}

func (c *PriceCache) publish(q model.Quote) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for ch := range c.subs {
		select {
		case ch <- q:
		default:
		}
	}
}
