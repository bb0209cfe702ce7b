package server

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestServer_StartShutdown(t *testing.T) {
	srv := NewServer(0, http.NotFoundHandler(), 0, 0, zap.NewNop())
	require.Equal(t, ":0", srv.Addr())
	require.Equal(t, 10*time.Second, srv.httpServer.ReadTimeout)

	done := make(chan error, 1)
	go func() { done <- srv.Start() }()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}
