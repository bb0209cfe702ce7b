// Package kafkafeed reads price feed messages from a Kafka topic. Messages are
// keyed by symbol and carry the same JSON payload as the push feed.
package kafkafeed

import (
	"context"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"marketsync/internal/domain/port"
)

// MessageReader is the subset of *kafka.Reader the transport needs.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// ReaderFactory opens a reader for one connection attempt.
type ReaderFactory func() MessageReader

type Config struct {
	Brokers []string
	Topic   string
	// GroupID is optional. Without it every attempt starts at the newest
	// offset, which is what a live ticker wants.
	GroupID string
}

type Transport struct {
	newReader ReaderFactory
	log       *zap.Logger
}

func NewTransport(cfg Config, log *zap.Logger) *Transport {
	return NewTransportWithFactory(func() MessageReader {
		rc := kafka.ReaderConfig{
			Brokers:  cfg.Brokers,
			Topic:    cfg.Topic,
			GroupID:  cfg.GroupID,
			MinBytes: 1,
			MaxBytes: 10e6,
			MaxWait:  200 * time.Millisecond,
		}
		if cfg.GroupID == "" {
			rc.StartOffset = kafka.LastOffset
		}
		return kafka.NewReader(rc)
	}, log)
}

func NewTransportWithFactory(f ReaderFactory, log *zap.Logger) *Transport {
	if log == nil {
		log = zap.NewNop()
	}
	return &Transport{newReader: f, log: log}
}

func (t *Transport) Name() string { return "kafka" }

func (t *Transport) Dial(ctx context.Context, target port.Target) (port.FrameStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	wanted := make(map[string]struct{}, len(target.Symbols))
	for _, s := range target.Symbols {
		wanted[s] = struct{}{}
	}
	t.log.Debug("kafka reader opened", zap.Int("symbols", len(wanted)))
	return &stream{reader: t.newReader(), wanted: wanted}, nil
}

type stream struct {
	reader MessageReader
	wanted map[string]struct{}
}

// Next skips messages keyed by symbols outside the subscription. Unkeyed
// messages (heartbeats) always pass.
func (s *stream) Next(ctx context.Context) ([]byte, error) {
	for {
		m, err := s.reader.ReadMessage(ctx)
		if err != nil {
			return nil, err
		}
		if len(m.Key) > 0 {
			key := strings.ToUpper(string(m.Key))
			if _, ok := s.wanted[key]; !ok {
				continue
			}
		}
		return m.Value, nil
	}
}

func (s *stream) Close() error { return s.reader.Close() }
