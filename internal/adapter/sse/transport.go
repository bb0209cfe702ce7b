// Package sse is the text/event-stream transport of the price feed.
package sse

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/launchdarkly/eventsource"
	"go.uber.org/zap"

	"marketsync/internal/adapter/feed"
	"marketsync/internal/domain/model"
	"marketsync/internal/domain/port"
)

type Transport struct {
	client *http.Client
	log    *zap.Logger
}

// NewTransport uses client for every attempt. The client must not carry an
// overall Timeout or long streams would be cut.
func NewTransport(client *http.Client, log *zap.Logger) *Transport {
	if client == nil {
		client = &http.Client{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Transport{client: client, log: log}
}

func (t *Transport) Name() string { return "sse" }

func (t *Transport) Dial(ctx context.Context, target port.Target) (port.FrameStream, error) {
	streamCtx, cancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, target.URL, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := t.client.Do(req)
	if err != nil {
		cancel()
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("%w: %d", model.ErrUnexpectedStatus, resp.StatusCode)
	}
	if mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mt != "text/event-stream" {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("%w: content type %q", model.ErrUnexpectedStatus, mt)
	}

	events := newEventReader(resp.Body)
	s := feed.NewPumpStream(func() ([]byte, error) {
		data, err := events.Next()
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		if err != nil {
			return nil, fmt.Errorf("read event stream: %w", err)
		}
		return data, nil
	}, func() error {
		cancel()
		return resp.Body.Close()
	})
	t.log.Debug("sse stream established", zap.Int("symbols", len(target.Symbols)))
	return s, nil
}

// eventReader yields the data of each event from a text/event-stream body.
// Events without data are skipped; reconnect timing belongs to the caller.
type eventReader struct {
	dec *eventsource.Decoder
}

func newEventReader(r io.Reader) *eventReader {
	return &eventReader{dec: eventsource.NewDecoder(r)}
}

func (e *eventReader) Next() ([]byte, error) {
	for {
		ev, err := e.dec.Decode()
		if err != nil {
			return nil, err
		}
		if data := ev.Data(); data != "" {
			return []byte(data), nil
		}
	}
}
