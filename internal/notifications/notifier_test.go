package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_NilRedisIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	assert.NoError(t, n.Publish(context.Background(), EventPostPublished, nil))
	assert.NoError(t, n.StartSubscriber(context.Background(), func(string) {}))

	var nilNotifier *Notifier
	assert.NoError(t, nilNotifier.Publish(context.Background(), EventPostPublished, nil))
}

type failingPublisher struct{ calls int }

func (f *failingPublisher) Publish(context.Context, string, any) error {
	f.calls++
	return errors.New("redis down")
}

func TestPublishBestEffort_SwallowsErrors(t *testing.T) {
	p := &failingPublisher{}
	assert.NotPanics(t, func() { PublishBestEffort(context.Background(), p, EventMediaUploaded, nil) })
	assert.Equal(t, 1, p.calls)
	assert.NotPanics(t, func() { PublishBestEffort(context.Background(), nil, EventMediaUploaded, nil) })
}

func TestNotifier_EventEnvelope(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	n := NewNotifier(rdb)
	fixed := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return fixed }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	payloads := make(chan string, 1)
	require.NoError(t, n.StartSubscriber(ctx, func(p string) { payloads <- p }))
	require.NoError(t, n.Publish(ctx, EventFeedSynced, map[string]int{"syncedCount": 2}))

	select {
	case raw := <-payloads:
		var ev struct {
			Type    string         `json:"type"`
			Payload map[string]int `json:"payload"`
			At      time.Time      `json:"at"`
		}
		require.NoError(t, json.Unmarshal([]byte(raw), &ev))
		assert.Equal(t, EventFeedSynced, ev.Type)
		assert.Equal(t, 2, ev.Payload["syncedCount"])
		assert.True(t, fixed.Equal(ev.At))
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestNotifier_SubscriberStopsOnCancelAndSurvivesPanics(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	n := NewNotifier(rdb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var received int32
	require.NoError(t, n.StartSubscriber(ctx, func(string) {
		if atomic.AddInt32(&received, 1) == 1 {
			panic("boom")
		}
	}))

	require.NoError(t, n.Publish(context.Background(), EventCommentDeleted, nil))
	require.NoError(t, n.Publish(context.Background(), EventCommentDeleted, nil))
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&received) == 2
	}, time.Second, 10*time.Millisecond)

	cancel()
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, n.Publish(context.Background(), EventCommentDeleted, nil))
	assert.Never(t, func() bool {
		return atomic.LoadInt32(&received) > 2
	}, 200*time.Millisecond, 10*time.Millisecond)
}
