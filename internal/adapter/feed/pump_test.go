package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPumpStream(t *testing.T) {
	frames := [][]byte{[]byte("a"), []byte("b")}
	boom := errors.New("boom")
	i := 0
	s := NewPumpStream(func() ([]byte, error) {
		if i < len(frames) {
			i++
			return frames[i-1], nil
		}
		return nil, boom
	}, nil)

	ctx := context.Background()
	f, err := s.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, "a", string(f))
	f, err = s.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, "b", string(f))
	_, err = s.Next(ctx)
	require.ErrorIs(t, err, boom)
	require.NoError(t, s.Close())
}

func TestPumpStream_CloseUnblocksReader(t *testing.T) {
	unblock := make(chan struct{})
	closed := 0
	s := NewPumpStream(func() ([]byte, error) {
		<-unblock
		return nil, errors.New("closed")
	}, func() error {
		closed++
		close(unblock)
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := s.Next(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	require.Equal(t, 1, closed)
}
