// Package poller implements the polling fallback of the price feed: a REST
// quotes endpoint fetched on an interval and replayed as feed frames.
package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"go.uber.org/zap"

	"marketsync/internal/domain/model"
	"marketsync/internal/domain/port"
)

const (
	DefaultInterval = 5 * time.Second
	DefaultPath     = "$[*]"
)

// Transport polls target.URL. Path is a JSONPath selecting the list of quote
// objects in the response; each object needs a symbol and a price (or last)
// and may carry percentChange and a unix millisecond timestamp.
type Transport struct {
	client   *http.Client
	interval time.Duration
	path     string
	log      *zap.Logger
}

func NewTransport(client *http.Client, interval time.Duration, path string, log *zap.Logger) *Transport {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	if path == "" {
		path = DefaultPath
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Transport{client: client, interval: interval, path: path, log: log}
}

func (t *Transport) Name() string { return "poll" }

// Dial performs the first poll so that an unreachable endpoint fails the
// attempt instead of producing an open but empty stream.
func (t *Transport) Dial(ctx context.Context, target port.Target) (port.FrameStream, error) {
	frames, err := t.poll(ctx, target)
	if err != nil {
		return nil, err
	}
	return &stream{
		transport: t,
		target:    target,
		pending:   frames,
		nextPoll:  time.Now().Add(t.interval),
	}, nil
}

// poll fetches one snapshot and renders it as price frames followed by a
// heartbeat frame.
func (t *Transport) poll(ctx context.Context, target port.Target) ([][]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", model.ErrUnexpectedStatus, resp.StatusCode)
	}

	var doc any
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode quotes: %w", err)
	}
	quotes, err := t.extract(doc, target.Symbols)
	if err != nil {
		return nil, err
	}

	frames := make([][]byte, 0, len(quotes)+1)
	for _, q := range quotes {
		data, err := q.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("encode quote %s: %w", q.Symbol, err)
		}
		frames = append(frames, data)
	}
	hb, _ := model.NewHeartbeatMessage().MarshalJSON()
	frames = append(frames, hb)

	t.log.Debug("poll completed", zap.Int("quotes", len(quotes)))
	return frames, nil
}

func (t *Transport) extract(doc any, symbols []string) ([]model.FeedMessage, error) {
	v, err := jsonpath.Get(t.path, doc)
	if err != nil {
		return nil, fmt.Errorf("select quotes with %q: %w", t.path, err)
	}
	items, ok := v.([]any)
	if !ok {
		items = []any{v}
	}

	wanted := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		wanted[s] = struct{}{}
	}

	out := make([]model.FeedMessage, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		msg, ok := quoteFromObject(obj)
		if !ok {
			t.log.Debug("skipping unusable quote object", zap.Any("quote", obj))
			continue
		}
		if len(wanted) > 0 {
			if _, ok := wanted[msg.Symbol]; !ok {
				continue
			}
		}
		out = append(out, msg)
	}
	return out, nil
}

func quoteFromObject(obj map[string]any) (model.FeedMessage, bool) {
	symbol, _ := obj["symbol"].(string)
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return model.FeedMessage{}, false
	}

	price, ok := number(obj["price"])
	if !ok {
		if price, ok = number(obj["last"]); !ok {
			return model.FeedMessage{}, false
		}
	}
	pct, ok := number(obj["percentChange"])
	if !ok {
		pct, _ = number(obj["changePercent"])
	}

	var at time.Time
	if ts, ok := number(obj["timestamp"]); ok && ts > 0 {
		at = time.UnixMilli(int64(ts))
	}
	return model.NewPriceMessage(symbol, price, pct, at), true
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

type stream struct {
	transport *Transport
	target    port.Target
	pending   [][]byte
	nextPoll  time.Time
}

func (s *stream) Next(ctx context.Context) ([]byte, error) {
	for len(s.pending) == 0 {
		wait := time.Until(s.nextPoll)
		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			}
		}
		frames, err := s.transport.poll(ctx, s.target)
		if err != nil {
			return nil, err
		}
		s.pending = frames
		s.nextPoll = time.Now().Add(s.transport.interval)
	}

	f := s.pending[0]
	s.pending = s.pending[1:]
	return f, nil
}

func (s *stream) Close() error { return nil }
