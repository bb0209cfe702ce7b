package model

//go:generate easyjson -all feed_message.go

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/mailru/easyjson"
)

const (
	MessageTypePrice     = "price"
	MessageTypeHeartbeat = "heartbeat"
)

// timestamps before this are treated as absent and replaced by receive time.
var minEventTime = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// MaxEventSkew bounds how far a publisher timestamp may run ahead of the
// receive time before it is ignored.
const MaxEventSkew = 5 * time.Second

// FeedMessage is the JSON payload carried by every frame of the price feed.
// Price and PercentChange are pointers so that a missing field can be told
// apart from a zero value.
type FeedMessage struct {
	Type          string   `json:"type"`
	Symbol        string   `json:"symbol,omitempty"`
	Price         *float64 `json:"price,omitempty"`
	PercentChange *float64 `json:"percentChange,omitempty"`
	// Timestamp is an optional unix millisecond time set by the publisher.
	Timestamp int64 `json:"timestamp,omitempty"`
}

// ParseFeedMessage decodes and validates a single frame payload. Any payload
// that is not a well-formed price or heartbeat message yields an error
// wrapping ErrMalformedMessage.
func ParseFeedMessage(data []byte) (FeedMessage, error) {
	var msg FeedMessage
	if err := easyjson.Unmarshal(data, &msg); err != nil {
		return FeedMessage{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if err := msg.Validate(); err != nil {
		return FeedMessage{}, err
	}
	msg.Symbol = strings.ToUpper(strings.TrimSpace(msg.Symbol))
	return msg, nil
}

func (m FeedMessage) Validate() error {
	switch m.Type {
	case MessageTypeHeartbeat:
		return nil
	case MessageTypePrice:
		if strings.TrimSpace(m.Symbol) == "" {
			return fmt.Errorf("%w: price message without symbol", ErrMalformedMessage)
		}
		if m.Price == nil || !finite(*m.Price) || *m.Price < 0 {
			return fmt.Errorf("%w: invalid price for %s", ErrMalformedMessage, m.Symbol)
		}
		if m.PercentChange == nil || !finite(*m.PercentChange) {
			return fmt.Errorf("%w: invalid percentChange for %s", ErrMalformedMessage, m.Symbol)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown type %q", ErrMalformedMessage, m.Type)
	}
}

func (m FeedMessage) IsHeartbeat() bool { return m.Type == MessageTypeHeartbeat }

// Event converts a validated price message. receivedAt is used as the
// observation time unless the message carries a plausible timestamp: not
// before 2020 and not more than MaxEventSkew ahead of receivedAt. A future
// timestamp would otherwise block every later tick of the symbol.
func (m FeedMessage) Event(receivedAt time.Time) PriceEvent {
	observed := receivedAt
	if m.Timestamp != 0 {
		ts := time.UnixMilli(m.Timestamp)
		if !ts.Before(minEventTime) && !ts.After(receivedAt.Add(MaxEventSkew)) {
			observed = ts
		}
	}
	ev := PriceEvent{Symbol: m.Symbol, ObservedAt: observed}
	if m.Price != nil {
		ev.Price = *m.Price
	}
	if m.PercentChange != nil {
		ev.PercentChange = *m.PercentChange
	}
	return ev
}

func NewPriceMessage(symbol string, price, percentChange float64, at time.Time) FeedMessage {
	msg := FeedMessage{
		Type:          MessageTypePrice,
		Symbol:        symbol,
		Price:         &price,
		PercentChange: &percentChange,
	}
	if !at.IsZero() {
		msg.Timestamp = at.UnixMilli()
	}
	return msg
}

func NewHeartbeatMessage() FeedMessage {
	return FeedMessage{Type: MessageTypeHeartbeat}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
