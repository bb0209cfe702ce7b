package feed

import (
	"context"
	"sync"
)

// PumpStream turns a blocking read function into a FrameStream whose Next
// honors context cancellation. read runs on its own goroutine; closer must
// unblock it.
type PumpStream struct {
	closer func() error
	frames chan []byte
	errc   chan error
	done   chan struct{}
	once   sync.Once
	err    error
}

func NewPumpStream(read func() ([]byte, error), closer func() error) *PumpStream {
	s := &PumpStream{
		closer: closer,
		frames: make(chan []byte),
		errc:   make(chan error, 1),
		done:   make(chan struct{}),
	}
	go s.pump(read)
	return s
}

func (s *PumpStream) pump(read func() ([]byte, error)) {
	for {
		frame, err := read()
		if err != nil {
			s.errc <- err
			return
		}
		select {
		case s.frames <- frame:
		case <-s.done:
			return
		}
	}
}

func (s *PumpStream) Next(ctx context.Context) ([]byte, error) {
	select {
	case f := <-s.frames:
		return f, nil
	case err := <-s.errc:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *PumpStream) Close() error {
	s.once.Do(func() {
		close(s.done)
		if s.closer != nil {
			s.err = s.closer()
		}
	})
	return s.err
}
