package sse

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"marketsync/internal/domain/model"
	"marketsync/internal/domain/port"
)

func TestEventReader(t *testing.T) {
	body := ": keepalive\n" +
		"event: price\n" +
		"data: {\"type\":\"heartbeat\"}\n" +
		"\n" +
		"data: line1\n" +
		"data: line2\n" +
		"id: 7\n" +
		"\n" +
		"id: 8\n" +
		"\n" +
		"data: tail"

	r := newEventReader(strings.NewReader(body))

	got, err := r.Next()
	require.NoError(t, err)
	require.Equal(t, `{"type":"heartbeat"}`, string(got))

	got, err = r.Next()
	require.NoError(t, err)
	require.Equal(t, "line1\nline2", string(got))

	// the data-less event is skipped and the unterminated one never completes
	_, err = r.Next()
	require.Error(t, err)
}

func TestTransport_Stream(t *testing.T) {
	var gotQuery, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("symbols")
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "data: {\"type\":\"price\",\"symbol\":\"AAPL\",\"price\":1,\"percentChange\":0}\n\n")
		fmt.Fprint(w, "data: {\"type\":\"heartbeat\"}\n\n")
		w.(http.Flusher).Flush()
	}))
	defer srv.Close()

	tr := NewTransport(nil, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	s, err := tr.Dial(ctx, port.Target{URL: srv.URL + "?symbols=AAPL", Symbols: []string{"AAPL"}})
	require.NoError(t, err)
	defer s.Close()

	f, err := s.Next(ctx)
	require.NoError(t, err)
	require.Contains(t, string(f), `"symbol":"AAPL"`)

	f, err = s.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, `{"type":"heartbeat"}`, string(f))

	// Handler returned, so the body ends.
	_, err = s.Next(ctx)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	require.Equal(t, "AAPL", gotQuery)
	require.Equal(t, "text/event-stream", gotAccept)
}

func TestTransport_RejectsBadResponses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/down" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	tr := NewTransport(srv.Client(), nil)
	_, err := tr.Dial(context.Background(), port.Target{URL: srv.URL + "/down"})
	require.ErrorIs(t, err, model.ErrUnexpectedStatus)

	_, err = tr.Dial(context.Background(), port.Target{URL: srv.URL + "/json"})
	require.ErrorIs(t, err, model.ErrUnexpectedStatus)
}

func TestTransport_NextHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	s, err := NewTransport(nil, nil).Dial(context.Background(), port.Target{URL: srv.URL})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = s.Next(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.NoError(t, s.Close())
}
