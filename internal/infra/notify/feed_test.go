package notify

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/animuse/animuse/internal/domain/recommend"
)

func newTestFeed(capacity int) *Feed {
	return NewFeed(capacity, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestFeed_DrainReturnsQueuedInOrder(t *testing.T) {
	feed := newTestFeed(10)
	ctx := context.Background()

	feed.Notify(ctx, "u1", recommend.Notification{Level: recommend.LevelSuccess, Message: "first"})
	feed.Notify(ctx, "u1", recommend.Notification{Level: recommend.LevelError, Message: "second"})
	feed.Notify(ctx, "u2", recommend.Notification{Level: recommend.LevelInfo, Message: "other"})

	got := feed.Drain("u1")
	require.Len(t, got, 2)
	require.Equal(t, "first", got[0].Message)
	require.Equal(t, "second", got[1].Message)
	require.NotEmpty(t, got[0].ID)
	require.NotEqual(t, got[0].ID, got[1].ID)

	require.Empty(t, feed.Drain("u1"))
	require.Len(t, feed.Drain("u2"), 1)
}

func TestFeed_CapacityDropsOldest(t *testing.T) {
	feed := newTestFeed(2)
	ctx := context.Background()
	for _, msg := range []string{"a", "b", "c"} {
		feed.Notify(ctx, "u1", recommend.Notification{Message: msg})
	}

	got := feed.Drain("u1")
	require.Len(t, got, 2)
	require.Equal(t, "b", got[0].Message)
	require.Equal(t, "c", got[1].Message)
}

func TestFeed_SubscribeReceivesBacklogThenLive(t *testing.T) {
	feed := newTestFeed(10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed.Notify(ctx, "u1", recommend.Notification{Message: "queued"})
	ch := feed.Subscribe(ctx, "u1")
	feed.Notify(ctx, "u1", recommend.Notification{Message: "live"})

	require.Equal(t, "queued", (<-ch).Message)
	require.Equal(t, "live", (<-ch).Message)
	require.Empty(t, feed.Drain("u1"))

	cancel()
	require.Eventually(t, func() bool {
		_, open := <-ch
		return !open
	}, time.Second, 5*time.Millisecond)

	// with no subscriber left, notifications queue again
	require.Eventually(t, func() bool {
		feed.Notify(context.Background(), "u1", recommend.Notification{Message: "later"})
		return len(feed.Drain("u1")) == 1
	}, time.Second, 5*time.Millisecond)
}
