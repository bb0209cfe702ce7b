package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"marketsync/internal/domain/model"
	"marketsync/internal/domain/port"
)

// QuoteSink receives accepted quotes for persistence. Submit must not block.
type QuoteSink interface {
	Submit(q model.Quote) bool
}

// FeedStatus is what the status endpoints report about the subscription.
type FeedStatus struct {
	Source     string          `json:"source"`
	Symbols    []string        `json:"symbols"`
	State      string          `json:"state"`
	Generation uint64          `json:"generation"`
	Stats      model.FeedStats `json:"stats"`
	LastError  string          `json:"last_error,omitempty"`
	OpenedAt   *time.Time      `json:"opened_at,omitempty"`
}

// FeedService owns the single live subscription. Changing the symbol set or
// the source closes the old connection, waits for it to stop and only then
// opens the new one. Callbacks carry the generation they were opened with
// and are dropped once a newer generation exists.
type FeedService struct {
	cache    *PriceCache
	animator *ChangeAnimator
	store    port.QuoteStore
	sink     QuoteSink
	log      *zap.Logger

	closeTimeout time.Duration

	mu      sync.Mutex
	source  port.PriceSource
	ctrl    port.Controller
	symbols []string

	generation atomic.Uint64

	statusMu  sync.RWMutex
	lastError string
	openedAt  time.Time
}

type FeedServiceOption func(*FeedService)

// WithQuoteStore seeds the cache with last known quotes on every
// subscription.
func WithQuoteStore(store port.QuoteStore) FeedServiceOption {
	return func(s *FeedService) { s.store = store }
}

func WithQuoteSink(sink QuoteSink) FeedServiceOption {
	return func(s *FeedService) { s.sink = sink }
}

// WithCloseTimeout bounds how long a resubscription waits for the old
// connection to stop.
func WithCloseTimeout(d time.Duration) FeedServiceOption {
	return func(s *FeedService) { s.closeTimeout = d }
}

func NewFeedService(source port.PriceSource, cache *PriceCache, animator *ChangeAnimator, log *zap.Logger, opts ...FeedServiceOption) *FeedService {
	if log == nil {
		log = zap.NewNop()
	}
	s := &FeedService{
		source:       source,
		cache:        cache,
		animator:     animator,
		log:          log,
		closeTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe replaces the current subscription with symbols. An empty set
// leaves no connection open.
func (s *FeedService) Subscribe(ctx context.Context, symbols []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resubscribe(ctx, model.NormalizeSymbols(symbols))
}

// SetSource swaps the price source and resubscribes the current symbols.
func (s *FeedService) SetSource(ctx context.Context, source port.PriceSource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.source = source
	return s.resubscribe(ctx, s.symbols)
}

// Resubscribe reopens the current subscription, e.g. after a credential
// change.
func (s *FeedService) Resubscribe(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resubscribe(ctx, s.symbols)
}

func (s *FeedService) resubscribe(ctx context.Context, symbols []string) error {
	gen := s.generation.Add(1)
	if err := s.closeCurrent(ctx); err != nil {
		return err
	}

	s.cache.Reset(symbols)
	s.seed(ctx, symbols)
	s.symbols = symbols
	s.setStatus("", time.Time{})

	if len(symbols) == 0 {
		s.log.Info("feed unsubscribed")
		return nil
	}
	s.ctrl = s.source.Open(symbols, s.handlers(gen))
	s.log.Info("feed subscribed",
		zap.String("source", s.source.Name()),
		zap.Strings("symbols", symbols),
		zap.Uint64("generation", gen),
	)
	return nil
}

// closeCurrent must be called with mu held.
func (s *FeedService) closeCurrent(ctx context.Context) error {
	if s.ctrl == nil {
		return nil
	}
	ctrl := s.ctrl
	s.ctrl = nil
	ctrl.Close()

	timer := time.NewTimer(s.closeTimeout)
	defer timer.Stop()
	select {
	case <-ctrl.Done():
		return nil
	case <-timer.C:
		s.log.Warn("previous feed connection did not stop in time", zap.Duration("timeout", s.closeTimeout))
		return nil
	case <-ctx.Done():
		return fmt.Errorf("await feed close: %w", ctx.Err())
	}
}

func (s *FeedService) seed(ctx context.Context, symbols []string) {
	if s.store == nil || len(symbols) == 0 {
		return
	}
	quotes, err := s.store.LoadQuotes(ctx, symbols)
	if err != nil {
		s.log.Warn("failed to load last known quotes", zap.Error(err))
		return
	}
	for _, q := range quotes {
		s.cache.Update(q.Symbol, q.Last, q.PercentChange, q.ObservedAt)
	}
	s.log.Debug("cache seeded from quote store", zap.Int("quotes", len(quotes)))
}

func (s *FeedService) handlers(gen uint64) port.FeedHandlers {
	current := func() bool { return s.generation.Load() == gen }
	return port.FeedHandlers{
		OnPrice: func(ev model.PriceEvent) {
			if !current() {
				return
			}
			s.onPrice(ev)
		},
		OnOpen: func() {
			if !current() {
				return
			}
			s.setStatus("", time.Now())
		},
		OnError: func(err error) {
			if !current() {
				return
			}
			s.log.Warn("feed error, reconnecting", zap.Error(err), zap.Uint64("generation", gen))
			s.setStatus(err.Error(), time.Time{})
		},
		OnClose: func() {
			s.log.Debug("feed connection stopped", zap.Uint64("generation", gen))
		},
	}
}

func (s *FeedService) onPrice(ev model.PriceEvent) {
	accepted, changed := s.cache.Apply(ev)
	if changed && s.animator != nil {
		s.animator.Trigger(ev.Symbol)
	}
	if !accepted || s.sink == nil {
		return
	}
	if !s.sink.Submit(ev.Quote()) {
		s.log.Debug("quote sink full, dropping", zap.String("symbol", ev.Symbol))
	}
}

func (s *FeedService) setStatus(lastErr string, openedAt time.Time) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	s.lastError = lastErr
	s.openedAt = openedAt
}

func (s *FeedService) Symbols() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.symbols...)
}

func (s *FeedService) Status() FeedStatus {
	s.mu.Lock()
	st := FeedStatus{
		Symbols:    append([]string(nil), s.symbols...),
		State:      model.Closed.String(),
		Generation: s.generation.Load(),
	}
	if s.source != nil {
		st.Source = s.source.Name()
	}
	if s.ctrl != nil {
		st.State = s.ctrl.ReadyState().String()
		st.Stats = s.ctrl.Stats()
	}
	s.mu.Unlock()

	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	st.LastError = s.lastError
	if !s.openedAt.IsZero() {
		at := s.openedAt
		st.OpenedAt = &at
	}
	return st
}

// Close stops the subscription and every pending animation timer.
func (s *FeedService) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation.Add(1)
	err := s.closeCurrent(ctx)
	if s.animator != nil {
		s.animator.ClearAll()
	}
	s.log.Info("feed service closed")
	return err
}
