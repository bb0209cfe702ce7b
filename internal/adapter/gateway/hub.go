package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"marketsync/internal/domain/model"
)

// QuoteFeed is the part of the price cache the hub reads.
type QuoteFeed interface {
	Subscribe(buffer int) (<-chan model.Quote, func())
	Get(symbol string) (model.Quote, bool)
}

type ClientInterface interface {
	ID() string
	SendJSON(v any)
	SendBytes(b []byte)
	Close()
}

// Hub fans quote updates from the cache out to WebSocket clients by symbol.
type Hub struct {
	subscribers map[string]map[ClientInterface]bool
	clientSubs  map[ClientInterface]map[string]bool

	feed   QuoteFeed
	logger *zap.Logger
	mu     sync.RWMutex
}

func NewHub(feed QuoteFeed, logger *zap.Logger) *Hub {
	return &Hub{
		subscribers: make(map[string]map[ClientInterface]bool),
		clientSubs:  make(map[ClientInterface]map[string]bool),
		feed:        feed,
		logger:      logger,
	}
}

// Run broadcasts cache updates until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	updates, cancel := h.feed.Subscribe(256)
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case q, ok := <-updates:
			if !ok {
				return
			}
			h.Broadcast(q)
		}
	}
}

func (h *Hub) HandleCommand(client ClientInterface, req Request) {
	switch req.Action {
	case ActionSubscribe:
		h.handleSubscribe(client, req)
	case ActionUnsubscribe:
		h.handleUnsubscribe(client, req)
	case ActionUnsubscribeAll:
		h.handleUnsubscribeAll(client, req)
	default:
		h.sendError(client, req.ID, "Unknown action: "+req.Action)
	}
}

func (h *Hub) handleSubscribe(client ClientInterface, req Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var added []string
	for _, s := range req.Payload.Symbols {
		if s == "" {
			continue
		}
		if h.clientSubs[client] != nil && h.clientSubs[client][s] {
			continue
		}
		added = append(added, s)
	}
	if len(added) == 0 {
		h.sendError(client, req.ID, "No valid/new symbols provided")
		return
	}

	if h.clientSubs[client] == nil {
		h.clientSubs[client] = make(map[string]bool)
	}
	for _, sym := range added {
		h.clientSubs[client][sym] = true
		if h.subscribers[sym] == nil {
			h.subscribers[sym] = make(map[ClientInterface]bool)
		}
		h.subscribers[sym][client] = true
	}

	h.sendAck(client, req.ID, fmt.Sprintf("Subscribed to %v", added))

	// current quotes so the client does not wait for the next tick
	for _, sym := range added {
		if q, ok := h.feed.Get(sym); ok {
			client.SendJSON(tickerMessage(q))
		}
	}
}

func (h *Hub) handleUnsubscribe(client ClientInterface, req Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var removed []string
	if subs, ok := h.clientSubs[client]; ok {
		for _, sym := range req.Payload.Symbols {
			if subs[sym] {
				delete(subs, sym)
				h.dropSubscriber(sym, client)
				removed = append(removed, sym)
			}
		}
	}

	if len(removed) > 0 {
		h.sendAck(client, req.ID, fmt.Sprintf("Unsubscribed from %v", removed))
	} else {
		h.sendError(client, req.ID, fmt.Sprintf("Not subscribed to: %v", req.Payload.Symbols))
	}
}

func (h *Hub) handleUnsubscribeAll(client ClientInterface, req Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sym := range h.clientSubs[client] {
		h.dropSubscriber(sym, client)
	}
	h.clientSubs[client] = make(map[string]bool)
	h.sendAck(client, req.ID, "Unsubscribed from all symbols")
}

func (h *Hub) Unregister(client ClientInterface) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subs, ok := h.clientSubs[client]; ok {
		for sym := range subs {
			h.dropSubscriber(sym, client)
		}
		delete(h.clientSubs, client)
	}
	client.Close()
}

// Broadcast sends q to every client subscribed to its symbol or to all.
func (h *Hub) Broadcast(q model.Quote) {
	payload, err := json.Marshal(tickerMessage(q))
	if err != nil {
		h.logger.Error("failed to marshal quote", zap.String("symbol", q.Symbol), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.subscribers[q.Symbol] {
		client.SendBytes(payload)
	}
	for client := range h.subscribers[AllSymbols] {
		if !h.subscribers[q.Symbol][client] {
			client.SendBytes(payload)
		}
	}
}

// ClientCount is the number of connected clients with at least one
// subscription.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clientSubs)
}

func (h *Hub) dropSubscriber(symbol string, client ClientInterface) {
	delete(h.subscribers[symbol], client)
	if len(h.subscribers[symbol]) == 0 {
		delete(h.subscribers, symbol)
	}
}

func tickerMessage(q model.Quote) Response {
	return Response{Type: "ticker", Data: q}
}

func (h *Hub) sendAck(c ClientInterface, id, msg string) {
	c.SendJSON(Response{Type: "ack", ID: id, Status: "success", Message: msg})
}

func (h *Hub) sendError(c ClientInterface, id, msg string) {
	c.SendJSON(Response{Type: "error", ID: id, Message: msg})
}
