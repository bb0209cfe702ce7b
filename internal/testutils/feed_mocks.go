package testutils

import (
	"context"
	"errors"
	"io"
	"sync"

	"marketsync/internal/domain/model"
	"marketsync/internal/domain/port"
)

// ErrDialRefused is what MockTransport returns once its script is used up.
var ErrDialRefused = errors.New("mock: connection refused")

// DialResult scripts one MockTransport.Dial call.
type DialResult struct {
	Stream *MockStream
	Err    error
}

// MockTransport replays scripted dial results in order and records every
// target it was asked to dial.
type MockTransport struct {
	NameVal string
	Script  []DialResult
	Targets []port.Target
	Mu      sync.Mutex
}

func NewMockTransport(script ...DialResult) *MockTransport {
	return &MockTransport{NameVal: "mock", Script: script}
}

func (m *MockTransport) Name() string { return m.NameVal }

func (m *MockTransport) Dial(ctx context.Context, target port.Target) (port.FrameStream, error) {
	m.Mu.Lock()
	m.Targets = append(m.Targets, target)
	var next DialResult
	if len(m.Script) > 0 {
		next = m.Script[0]
		m.Script = m.Script[1:]
	} else {
		next = DialResult{Err: ErrDialRefused}
	}
	m.Mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if next.Err != nil {
		return nil, next.Err
	}
	return next.Stream, nil
}

func (m *MockTransport) DialCount() int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return len(m.Targets)
}

func (m *MockTransport) DialedTargets() []port.Target {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return append([]port.Target(nil), m.Targets...)
}

type streamItem struct {
	frame []byte
	err   error
}

// MockStream is an in-memory FrameStream. Frames and failures are delivered
// in the order they were pushed.
type MockStream struct {
	items  chan streamItem
	closed chan struct{}
	once   sync.Once
}

func NewMockStream(frames ...string) *MockStream {
	s := &MockStream{
		items:  make(chan streamItem, 128),
		closed: make(chan struct{}),
	}
	for _, f := range frames {
		s.Push(f)
	}
	return s
}

func (s *MockStream) Push(frame string) {
	s.items <- streamItem{frame: []byte(frame)}
}

// Fail makes the stream report err after the frames already pushed.
func (s *MockStream) Fail(err error) {
	s.items <- streamItem{err: err}
}

func (s *MockStream) Next(ctx context.Context) ([]byte, error) {
	select {
	case it := <-s.items:
		return it.frame, it.err
	case <-s.closed:
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *MockStream) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

func (s *MockStream) IsClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

// FeedRecorder collects FeedHandlers callbacks.
type FeedRecorder struct {
	Prices     []model.PriceEvent
	Errors     []error
	Opens      int
	Heartbeats int
	Closes     int
	Mu         sync.Mutex
}

func (r *FeedRecorder) Handlers() port.FeedHandlers {
	return port.FeedHandlers{
		OnPrice: func(e model.PriceEvent) {
			r.Mu.Lock()
			defer r.Mu.Unlock()
			r.Prices = append(r.Prices, e)
		},
		OnHeartbeat: func() {
			r.Mu.Lock()
			defer r.Mu.Unlock()
			r.Heartbeats++
		},
		OnOpen: func() {
			r.Mu.Lock()
			defer r.Mu.Unlock()
			r.Opens++
		},
		OnError: func(err error) {
			r.Mu.Lock()
			defer r.Mu.Unlock()
			r.Errors = append(r.Errors, err)
		},
		OnClose: func() {
			r.Mu.Lock()
			defer r.Mu.Unlock()
			r.Closes++
		},
	}
}

func (r *FeedRecorder) PriceCount() int {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return len(r.Prices)
}

func (r *FeedRecorder) ErrorCount() int {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return len(r.Errors)
}

func (r *FeedRecorder) OpenCount() int {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.Opens
}

func (r *FeedRecorder) LastError() error {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	if len(r.Errors) == 0 {
		return nil
	}
	return r.Errors[len(r.Errors)-1]
}
