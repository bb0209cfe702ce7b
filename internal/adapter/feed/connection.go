// Package feed implements the reconnecting price stream shared by every
// transport. A Connection owns one subscription and drives the state machine
// IDLE -> CONNECTING -> OPEN -> RECONNECT_WAIT -> CONNECTING ... until Close.
package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"marketsync/internal/concurrency/retry"
	"marketsync/internal/domain/model"
	"marketsync/internal/domain/port"
)

// Options tune a Connection. Zero values fall back to defaults.
type Options struct {
	InitialBackoff    time.Duration
	BackoffMultiplier float64
	MaxBackoff        time.Duration
	// HeartbeatTimeout is the longest silence tolerated on an open stream.
	// Zero disables the check.
	HeartbeatTimeout time.Duration
	Logger           *zap.Logger
	Clock            func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}

type Connection struct {
	transport port.Transport
	endpoint  *Endpoint
	symbols   []string
	handlers  port.FeedHandlers
	backoff   *retry.Backoff
	heartbeat time.Duration
	clock     func() time.Time
	log       *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu    sync.Mutex
	state model.ConnState
	timer *time.Timer
	stats model.FeedStats
}

func newConnection(transport port.Transport, endpoint *Endpoint, symbols []string, h port.FeedHandlers, opts Options) *Connection {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	sessionID := uuid.NewString()
	return &Connection{
		transport: transport,
		endpoint:  endpoint,
		symbols:   symbols,
		handlers:  h,
		backoff:   retry.NewBackoff(opts.InitialBackoff, opts.BackoffMultiplier, opts.MaxBackoff),
		heartbeat: opts.HeartbeatTimeout,
		clock:     opts.Clock,
		log: opts.Logger.With(
			zap.String("transport", transport.Name()),
			zap.String("session", sessionID),
		),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		state:  model.StateIdle,
		stats:  model.FeedStats{SessionID: sessionID},
	}
}

// closedConnection is what Open returns for an empty symbol set.
func closedConnection() *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	done := make(chan struct{})
	close(done)
	return &Connection{
		ctx:    ctx,
		cancel: cancel,
		done:   done,
		state:  model.StateClosed,
		log:    zap.NewNop(),
	}
}

// Close stops the connection permanently. A pending reconnect timer is
// stopped before Close returns. A handler that is already running may still
// finish after Close returns; no handler runs once Done is closed, so
// callers that need a quiet source wait on Done.
func (c *Connection) Close() {
	c.mu.Lock()
	if c.state == model.StateClosed {
		c.mu.Unlock()
		return
	}
	c.state = model.StateClosed
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()

	c.cancel()
	c.log.Debug("feed connection closed by caller")
}

func (c *Connection) ReadyState() model.ReadyState {
	return c.State().ReadyState()
}

func (c *Connection) State() model.ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Connection) Done() <-chan struct{} { return c.done }

func (c *Connection) Stats() model.FeedStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *Connection) run() {
	defer close(c.done)
	defer func() {
		if c.handlers.OnClose != nil {
			c.handlers.OnClose()
		}
	}()

	for {
		if !c.transition(model.StateConnecting) {
			return
		}
		err := c.session()
		if c.ctx.Err() != nil {
			return
		}
		c.fail(err)

		delay := c.backoff.Next()
		if !c.transition(model.StateReconnectWait) {
			return
		}
		c.log.Debug("feed reconnect scheduled", zap.Duration("delay", delay))
		if !c.wait(delay) {
			return
		}
	}
}

// session runs one connection attempt until the stream fails.
func (c *Connection) session() error {
	target, err := c.endpoint.Target(c.ctx, c.symbols)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.stats.Attempts++
	attempt := c.stats.Attempts
	c.mu.Unlock()

	c.log.Debug("dialing feed", zap.Int("attempt", attempt), zap.Strings("symbols", c.symbols))
	stream, err := c.transport.Dial(c.ctx, target)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.transport.Name(), err)
	}
	defer stream.Close()

	c.backoff.Reset()
	if !c.transition(model.StateOpen) {
		return model.ErrClosed
	}
	c.log.Info("feed open", zap.Int("attempt", attempt), zap.Int("symbols", len(c.symbols)))
	if c.handlers.OnOpen != nil {
		c.handlers.OnOpen()
	}

	for {
		frame, err := c.next(stream)
		if err != nil {
			return err
		}
		c.dispatch(frame)
	}
}

func (c *Connection) next(stream port.FrameStream) ([]byte, error) {
	if c.heartbeat <= 0 {
		return stream.Next(c.ctx)
	}
	ctx, cancel := context.WithTimeout(c.ctx, c.heartbeat)
	defer cancel()

	frame, err := stream.Next(ctx)
	if err != nil && c.ctx.Err() == nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, model.ErrHeartbeatTimeout
	}
	return frame, err
}

func (c *Connection) dispatch(frame []byte) {
	msg, err := model.ParseFeedMessage(frame)

	c.mu.Lock()
	if err != nil {
		c.stats.Malformed++
	} else {
		c.stats.Messages++
	}
	c.mu.Unlock()

	if err != nil {
		c.log.Debug("dropping malformed frame", zap.Error(err), zap.String("frame", truncate(string(frame), 64)))
		return
	}
	if c.ctx.Err() != nil {
		return
	}

	if msg.IsHeartbeat() {
		if c.handlers.OnHeartbeat != nil {
			c.handlers.OnHeartbeat()
		}
		return
	}
	if c.handlers.OnPrice != nil {
		c.handlers.OnPrice(msg.Event(c.clock()))
	}
}

func (c *Connection) fail(err error) {
	c.mu.Lock()
	c.stats.LastError = err.Error()
	c.mu.Unlock()

	c.log.Debug("feed attempt failed", zap.Error(err))
	if c.handlers.OnError != nil {
		c.handlers.OnError(err)
	}
}

func (c *Connection) transition(to model.ConnState) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == model.StateClosed {
		return false
	}
	c.state = to
	return true
}

// wait blocks for the reconnect delay. It returns false if the connection
// was closed in the meantime.
func (c *Connection) wait(d time.Duration) bool {
	t := time.NewTimer(d)

	c.mu.Lock()
	if c.state == model.StateClosed {
		c.mu.Unlock()
		t.Stop()
		return false
	}
	c.timer = t
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		if c.timer == t {
			c.timer = nil
		}
		c.mu.Unlock()
	}()

	select {
	case <-t.C:
		return c.ctx.Err() == nil
	case <-c.ctx.Done():
		return false
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
