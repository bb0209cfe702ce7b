// Package wsfeed is the WebSocket transport of the price feed. The
// subscription travels in the handshake URL; the client never writes.
package wsfeed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"marketsync/internal/adapter/feed"
	"marketsync/internal/domain/model"
	"marketsync/internal/domain/port"
)

type Transport struct {
	dialer *websocket.Dialer
	header http.Header
	log    *zap.Logger
}

func NewTransport(header http.Header, log *zap.Logger) *Transport {
	if log == nil {
		log = zap.NewNop()
	}
	return &Transport{
		dialer: &websocket.Dialer{
			Proxy:             http.ProxyFromEnvironment,
			HandshakeTimeout:  10 * time.Second,
			EnableCompression: true,
		},
		header: header,
		log:    log,
	}
}

func (t *Transport) Name() string { return "websocket" }

func (t *Transport) Dial(ctx context.Context, target port.Target) (port.FrameStream, error) {
	addr, err := wsURL(target.URL)
	if err != nil {
		return nil, err
	}

	conn, resp, err := t.dialer.DialContext(ctx, addr, t.header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("%w: %d", model.ErrUnexpectedStatus, resp.StatusCode)
		}
		return nil, err
	}
	t.log.Debug("websocket feed connected", zap.Int("symbols", len(target.Symbols)))

	return feed.NewPumpStream(func() ([]byte, error) {
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return nil, err
			}
			if mt == websocket.TextMessage || mt == websocket.BinaryMessage {
				return data, nil
			}
		}
	}, func() error {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		return conn.Close()
	}), nil
}

// wsURL maps http(s) feed URLs onto ws(s) so one feed URL serves both
// the SSE and WebSocket transports.
func wsURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse websocket target: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported websocket scheme %q", u.Scheme)
	}
	return u.String(), nil
}
