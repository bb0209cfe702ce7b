package model

import (
	"fmt"
	"strings"
)

// FeedMode selects which transport backs the price source.
type FeedMode int

const (
	SSEMode FeedMode = iota
	WebSocketMode
	PollMode
	KafkaMode
	GeneratorMode
	TCPMode
)

func (m FeedMode) String() string {
	switch m {
	case SSEMode:
		return "sse"
	case WebSocketMode:
		return "websocket"
	case PollMode:
		return "poll"
	case KafkaMode:
		return "kafka"
	case GeneratorMode:
		return "generator"
	case TCPMode:
		return "tcp"
	default:
		return "unknown"
	}
}

// IsStreaming reports whether the mode is a server-push channel.
func (m FeedMode) IsStreaming() bool {
	return m != PollMode
}

func ParseFeedMode(s string) (FeedMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sse", "":
		return SSEMode, nil
	case "websocket", "ws":
		return WebSocketMode, nil
	case "poll", "polling":
		return PollMode, nil
	case "kafka":
		return KafkaMode, nil
	case "generator", "test":
		return GeneratorMode, nil
	case "tcp":
		return TCPMode, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownSource, s)
	}
}
