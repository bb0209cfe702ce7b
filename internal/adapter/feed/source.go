package feed

import (
	"go.uber.org/zap"

	"marketsync/internal/domain/model"
	"marketsync/internal/domain/port"
)

// Source is a PriceSource backed by one transport. Every Open gets its own
// Connection and therefore its own backoff and session.
type Source struct {
	transport port.Transport
	endpoint  *Endpoint
	opts      Options
}

func NewSource(transport port.Transport, endpoint *Endpoint, opts Options) *Source {
	return &Source{transport: transport, endpoint: endpoint, opts: opts.withDefaults()}
}

func (s *Source) Name() string { return s.transport.Name() }

// Open starts streaming for symbols. An empty symbol set yields a controller
// that is already CLOSED and never dials.
func (s *Source) Open(symbols []string, handlers port.FeedHandlers) port.Controller {
	symbols = model.NormalizeSymbols(symbols)
	if len(symbols) == 0 {
		s.opts.Logger.Debug("feed open skipped, no symbols", zap.String("transport", s.transport.Name()))
		return closedConnection()
	}
	c := newConnection(s.transport, s.endpoint, symbols, handlers, s.opts)
	go c.run()
	return c
}
