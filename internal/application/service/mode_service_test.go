package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"marketsync/internal/domain/model"
	"marketsync/internal/domain/port"
	"marketsync/internal/testutils"
)

func TestModeService_SwitchMode(t *testing.T) {
	stream := &testutils.MockSource{NameVal: "sse"}
	poll := &testutils.MockSource{NameVal: "poll"}
	feedSvc := NewFeedService(stream, NewPriceCache(), NewChangeAnimator(time.Minute, nil), nil)
	ctx := context.Background()
	require.NoError(t, feedSvc.Subscribe(ctx, []string{"AAPL"}))

	ms := NewModeService(model.SSEMode, map[model.FeedMode]port.PriceSource{
		model.SSEMode:  stream,
		model.PollMode: poll,
	}, feedSvc, nil)
	require.Equal(t, []model.FeedMode{model.SSEMode, model.PollMode}, ms.Available())

	require.NoError(t, ms.SwitchMode(ctx, model.SSEMode))
	require.Equal(t, 1, stream.OpenCount(), "same mode is a no-op")

	require.NoError(t, ms.SwitchMode(ctx, model.PollMode))
	require.Equal(t, model.PollMode, ms.GetCurrentMode())
	require.Equal(t, 1, poll.OpenCount())
	require.Equal(t, []string{"AAPL"}, poll.Last().Symbols)

	err := ms.SwitchMode(ctx, model.KafkaMode)
	require.ErrorIs(t, err, model.ErrUnknownSource)
	require.Equal(t, model.PollMode, ms.GetCurrentMode())
}
