package wsfeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"marketsync/internal/domain/model"
	"marketsync/internal/domain/port"
)

func TestWSURL(t *testing.T) {
	got, err := wsURL("https://feed.example.com/stream?symbols=AAPL")
	require.NoError(t, err)
	require.Equal(t, "wss://feed.example.com/stream?symbols=AAPL", got)

	got, err = wsURL("ws://localhost:1/x")
	require.NoError(t, err)
	require.Equal(t, "ws://localhost:1/x", got)

	_, err = wsURL("ftp://example.com")
	require.Error(t, err)
}

func TestTransport_Stream(t *testing.T) {
	upgrader := websocket.Upgrader{}
	symbols := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		symbols <- r.URL.Query().Get("symbols")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"heartbeat"}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"price","symbol":"MSFT","price":2,"percentChange":1}`))
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	s, err := NewTransport(nil, nil).Dial(ctx, port.Target{URL: srv.URL + "/feed?symbols=MSFT"})
	require.NoError(t, err)

	f, err := s.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, `{"type":"heartbeat"}`, string(f))

	f, err = s.Next(ctx)
	require.NoError(t, err)
	msg, err := model.ParseFeedMessage(f)
	require.NoError(t, err)
	require.Equal(t, "MSFT", msg.Symbol)

	require.Equal(t, "MSFT", <-symbols)
	require.NoError(t, s.Close())
}

func TestTransport_HandshakeRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewTransport(nil, nil).Dial(context.Background(), port.Target{URL: srv.URL})
	require.ErrorIs(t, err, model.ErrUnexpectedStatus)
}
