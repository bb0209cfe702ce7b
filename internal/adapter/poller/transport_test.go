package poller

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"marketsync/internal/domain/model"
	"marketsync/internal/domain/port"
)

func TestTransport_PollsAndReplays(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"data":{"quotes":[
			{"symbol":"aapl","price":%d,"percentChange":1.5,"timestamp":1709564400000},
			{"symbol":"MSFT","last":"300.10","changePercent":-0.2},
			{"symbol":"IBM","price":1},
			{"price":5}
		]}}`, 100+n)
	}))
	defer srv.Close()

	tr := NewTransport(srv.Client(), 20*time.Millisecond, "$.data.quotes[*]", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	s, err := tr.Dial(ctx, port.Target{URL: srv.URL, Symbols: []string{"AAPL", "MSFT"}})
	require.NoError(t, err)
	defer s.Close()

	var msgs []model.FeedMessage
	for i := 0; i < 6; i++ {
		f, err := s.Next(ctx)
		require.NoError(t, err)
		msg, err := model.ParseFeedMessage(f)
		require.NoError(t, err)
		msgs = append(msgs, msg)
	}

	require.Equal(t, "AAPL", msgs[0].Symbol)
	require.Equal(t, 101.0, *msgs[0].Price)
	require.Equal(t, int64(1709564400000), msgs[0].Timestamp)
	require.Equal(t, "MSFT", msgs[1].Symbol)
	require.Equal(t, 300.10, *msgs[1].Price)
	require.Equal(t, -0.2, *msgs[1].PercentChange)
	require.True(t, msgs[2].IsHeartbeat())

	require.Equal(t, 102.0, *msgs[3].Price)
	require.True(t, msgs[5].IsHeartbeat())
	require.Equal(t, int32(2), hits.Load())
}

func TestTransport_DialFailsOnBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewTransport(srv.Client(), time.Second, "", nil).
		Dial(context.Background(), port.Target{URL: srv.URL})
	require.ErrorIs(t, err, model.ErrUnexpectedStatus)
}

func TestTransport_NextHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	s, err := NewTransport(srv.Client(), time.Hour, "", nil).
		Dial(context.Background(), port.Target{URL: srv.URL})
	require.NoError(t, err)

	f, err := s.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, `{"type":"heartbeat"}`, string(f))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = s.Next(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
