package gateway

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"marketsync/internal/application/service"
)

func TestHandler_EndToEnd(t *testing.T) {
	cache := service.NewPriceCache()
	hub := NewHub(cache, zap.NewNop())

	srv := httptest.NewServer(Handler(hub, zap.NewNop()))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	// already cached, so the snapshot follows the ack
	cache.Update("AAPL", 123.5, 0.5, time.Now())
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"action":"subscribe","id":"s1","payload":{"symbols":[" aapl "]}}`)))

	var ack Response
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&ack))
	require.Equal(t, "ack", ack.Type)
	require.Equal(t, "s1", ack.ID)

	var tick struct {
		Type string `json:"type"`
		Data struct {
			Symbol string  `json:"symbol"`
			Last   float64 `json:"last"`
		} `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&tick))
	require.Equal(t, "ticker", tick.Type)
	require.Equal(t, "AAPL", tick.Data.Symbol)
	require.Equal(t, 123.5, tick.Data.Last)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	var bad Response
	require.NoError(t, conn.ReadJSON(&bad))
	require.Equal(t, "error", bad.Type)
}
