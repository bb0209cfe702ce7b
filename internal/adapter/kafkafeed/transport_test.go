package kafkafeed

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"marketsync/internal/domain/port"
)

type mockReader struct {
	Messages []kafka.Message
	Index    int
	Closed   bool
	Mu       sync.Mutex
}

func (m *mockReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.Closed || m.Index >= len(m.Messages) {
		return kafka.Message{}, io.EOF
	}
	msg := m.Messages[m.Index]
	m.Index++
	return msg, nil
}

func (m *mockReader) Close() error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Closed = true
	return nil
}

func TestTransport_FiltersBySymbol(t *testing.T) {
	reader := &mockReader{Messages: []kafka.Message{
		{Key: []byte("TSLA"), Value: []byte(`{"type":"price","symbol":"TSLA","price":1,"percentChange":0}`)},
		{Key: []byte("aapl"), Value: []byte(`{"type":"price","symbol":"AAPL","price":2,"percentChange":0}`)},
		{Value: []byte(`{"type":"heartbeat"}`)},
	}}
	tr := NewTransportWithFactory(func() MessageReader { return reader }, nil)

	s, err := tr.Dial(context.Background(), port.Target{Symbols: []string{"AAPL"}})
	require.NoError(t, err)

	f, err := s.Next(context.Background())
	require.NoError(t, err)
	require.Contains(t, string(f), `"AAPL"`)

	f, err = s.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, `{"type":"heartbeat"}`, string(f))

	_, err = s.Next(context.Background())
	require.ErrorIs(t, err, io.EOF)

	require.NoError(t, s.Close())
	require.True(t, reader.Closed)
}

func TestTransport_DialCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tr := NewTransportWithFactory(func() MessageReader { return &mockReader{} }, nil)
	_, err := tr.Dial(ctx, port.Target{Symbols: []string{"AAPL"}})
	require.ErrorIs(t, err, context.Canceled)
}
