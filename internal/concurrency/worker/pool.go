// Package worker persists accepted quotes off the feed's hot path.
package worker

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"marketsync/internal/concurrency/fanin"
	"marketsync/internal/concurrency/fanout"
	"marketsync/internal/domain/model"
	"marketsync/internal/domain/port"
)

// Stats counts what the pool did with submitted quotes.
type Stats struct {
	Submitted int64 `json:"submitted"`
	Dropped   int64 `json:"dropped"`
	Saved     int64 `json:"saved"`
	Fallback  int64 `json:"fallback"`
	Failed    int64 `json:"failed"`
}

// Pool writes quotes to a QuoteStore with a fixed number of workers. Quotes
// are sharded by symbol so writes for one symbol stay ordered. When the
// primary store fails the quote goes to the fallback store, if any.
type Pool struct {
	workers  int
	store    port.QuoteStore
	fallback port.QuoteStore
	logger   *zap.Logger

	mu     sync.RWMutex
	in     chan model.Quote
	closed bool

	submitted atomic.Int64
	dropped   atomic.Int64
	saved     atomic.Int64
	fellBack  atomic.Int64
	failed    atomic.Int64
}

// NewPool creates a pool. fallback may be nil.
func NewPool(workers, buffer int, store, fallback port.QuoteStore, logger *zap.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if buffer <= 0 {
		buffer = 256
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		workers:  workers,
		store:    store,
		fallback: fallback,
		logger:   logger,
		in:       make(chan model.Quote, buffer),
	}
}

// Submit queues a quote without blocking. It reports false when the queue is
// full or the pool is closed.
func (p *Pool) Submit(q model.Quote) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.dropped.Add(1)
		return false
	}
	select {
	case p.in <- q:
		p.submitted.Add(1)
		return true
	default:
		p.dropped.Add(1)
		return false
	}
}

// Start runs the workers and returns a channel of processed quotes. The
// channel is closed after Close once the queue is drained, or when ctx ends.
// The caller must drain it.
func (p *Pool) Start(ctx context.Context) <-chan model.Quote {
	shards := fanout.BySymbol(p.in, p.workers, 16)
	outs := make([]<-chan model.Quote, 0, p.workers)
	for i, shard := range shards {
		out := make(chan model.Quote)
		outs = append(outs, out)
		go func(id int, in <-chan model.Quote, out chan<- model.Quote) {
			defer close(out)
			p.workerLoop(ctx, id, in, out)
		}(i, shard, out)
	}
	return fanin.Merge(outs...)
}

// Close stops accepting quotes. Already queued quotes are still written.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.in)
}

func (p *Pool) Stats() Stats {
	return Stats{
		Submitted: p.submitted.Load(),
		Dropped:   p.dropped.Load(),
		Saved:     p.saved.Load(),
		Fallback:  p.fellBack.Load(),
		Failed:    p.failed.Load(),
	}
}

func (p *Pool) workerLoop(ctx context.Context, id int, in <-chan model.Quote, out chan<- model.Quote) {
	for q := range in {
		if ctx.Err() != nil {
			// keep draining so the fan-out goroutine can finish
			continue
		}
		p.processOne(ctx, id, q)
		select {
		case <-ctx.Done():
		case out <- q:
		}
	}
}

func (p *Pool) processOne(ctx context.Context, id int, q model.Quote) {
	err := p.store.SaveQuote(ctx, q)
	if err == nil {
		p.saved.Add(1)
		p.logger.Debug("quote saved", zap.Int("worker", id), zap.String("symbol", q.Symbol), zap.Float64("price", q.Last))
		return
	}
	if p.fallback == nil {
		p.failed.Add(1)
		p.logger.Error("save quote failed", zap.Int("worker", id), zap.String("symbol", q.Symbol), zap.Error(err))
		return
	}

	p.logger.Warn("save quote failed, using fallback store", zap.Int("worker", id), zap.String("symbol", q.Symbol), zap.Error(err))
	if ferr := p.fallback.SaveQuote(ctx, q); ferr != nil {
		p.failed.Add(1)
		p.logger.Error("fallback save failed", zap.String("symbol", q.Symbol), zap.Error(ferr))
		return
	}
	p.fellBack.Add(1)
}
