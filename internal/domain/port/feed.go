package port

import (
	"context"

	"marketsync/internal/domain/model"
)

// FeedHandlers are the callbacks a price source reports to. Every field is
// optional. Handlers run on the source goroutine and must not block.
type FeedHandlers struct {
	OnPrice     func(model.PriceEvent)
	OnHeartbeat func()
	OnOpen      func()
	OnError     func(error)
	OnClose     func()
}

// Controller is the handle returned by PriceSource.Open.
type Controller interface {
	// Close is idempotent and terminal. A handler already in progress may
	// still complete until Done is closed.
	Close()
	ReadyState() model.ReadyState
	// Done is closed once the source goroutine has exited after Close. No
	// handler runs after that.
	Done() <-chan struct{}
	Stats() model.FeedStats
}

// PriceSource opens live price subscriptions for a set of symbols.
type PriceSource interface {
	Open(symbols []string, handlers FeedHandlers) Controller
	Name() string
}

// Target is what a transport dials for one connection attempt.
type Target struct {
	URL     string
	Symbols []string
}

// Transport establishes one connection attempt. Reconnection is not the
// transport's business.
type Transport interface {
	Dial(ctx context.Context, target Target) (FrameStream, error)
	Name() string
}

// FrameStream yields raw message payloads of an open connection in delivery
// order. Next blocks until a frame arrives, the stream fails or ctx is done.
type FrameStream interface {
	Next(ctx context.Context) ([]byte, error)
	Close() error
}

// TokenProvider returns the credential appended to the subscription URL.
// It is called on every connection attempt.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}
