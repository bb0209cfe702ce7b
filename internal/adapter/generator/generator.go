// Package generator is a synthetic price transport for demo and test mode.
// It needs no network and produces a random walk per subscribed symbol.
package generator

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"marketsync/internal/domain/model"
	"marketsync/internal/domain/port"
)

const DefaultInterval = 500 * time.Millisecond

type Transport struct {
	interval time.Duration
	seed     int64
	log      *zap.Logger

	mu   sync.Mutex
	base map[string]float64
}

// NewTransport ticks every interval. A zero seed seeds from the clock.
func NewTransport(interval time.Duration, seed int64, log *zap.Logger) *Transport {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Transport{interval: interval, seed: seed, log: log, base: make(map[string]float64)}
}

func (t *Transport) Name() string { return "generator" }

func (t *Transport) Dial(ctx context.Context, target port.Target) (port.FrameStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r := rand.New(rand.NewSource(t.seed))

	s := &stream{
		transport: t,
		rand:      r,
		symbols:   append([]string(nil), target.Symbols...),
		last:      make(map[string]float64, len(target.Symbols)),
		ticker:    time.NewTicker(t.interval),
	}
	for _, sym := range s.symbols {
		s.last[sym] = t.sessionBase(sym, r)
	}
	t.log.Debug("generator started", zap.Strings("symbols", s.symbols))
	return s, nil
}

// sessionBase is the reference price percent changes are measured against.
// It survives reconnects so the change figure stays continuous.
func (t *Transport) sessionBase(symbol string, r *rand.Rand) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if b, ok := t.base[symbol]; ok {
		return b
	}
	b := math.Round((r.Float64()*490+10)*100) / 100
	t.base[symbol] = b
	return b
}

type stream struct {
	transport *Transport
	rand      *rand.Rand
	symbols   []string
	last      map[string]float64
	ticker    *time.Ticker
	pending   [][]byte
	ticks     int
}

func (s *stream) Next(ctx context.Context) ([]byte, error) {
	for len(s.pending) == 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case now := <-s.ticker.C:
			s.tick(now)
		}
	}
	f := s.pending[0]
	s.pending = s.pending[1:]
	return f, nil
}

func (s *stream) tick(now time.Time) {
	s.ticks++
	for _, sym := range s.symbols {
		// moves of at most 0.5% per tick, some ticks unchanged
		step := (s.rand.Float64() - 0.5) / 100
		if s.rand.Intn(4) == 0 {
			step = 0
		}
		price := math.Max(0.01, math.Round(s.last[sym]*(1+step)*100)/100)
		s.last[sym] = price

		base := s.transport.sessionBase(sym, s.rand)
		pct := math.Round((price-base)/base*10000) / 100

		data, err := model.NewPriceMessage(sym, price, pct, now).MarshalJSON()
		if err != nil {
			continue
		}
		s.pending = append(s.pending, data)
	}
	if s.ticks%10 == 0 {
		hb, _ := model.NewHeartbeatMessage().MarshalJSON()
		s.pending = append(s.pending, hb)
	}
}

func (s *stream) Close() error {
	s.ticker.Stop()
	return nil
}
