// Package notifications fans admin events out over Redis pub/sub and websockets.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"blogcms/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// AdminChannel is the Redis channel every admin event is published on.
const AdminChannel = "blog:admin:events"

// Event types published by the services.
const (
	EventCommentSubmitted = "comment_submitted"
	EventCommentModerated = "comment_moderated"
	EventCommentDeleted   = "comment_deleted"
	EventPostPublished    = "post_published"
	EventMediaUploaded    = "media_uploaded"
	EventFeedSynced       = "feed_synced"
)

// Event is the envelope delivered to admin dashboards.
type Event struct {
	Type    string    `json:"type"`
	Payload any       `json:"payload,omitempty"`
	At      time.Time `json:"at"`
}

// Publisher is implemented by anything that can emit admin events.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload any) error
}

// Notifier publishes admin events into Redis.
type Notifier struct {
	rdb *redis.Client
	now func() time.Time
}

// NewNotifier creates a Notifier. A nil client turns every publish into a no-op.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb, now: time.Now}
}

// Publish encodes an Event and sends it to AdminChannel.
func (n *Notifier) Publish(ctx context.Context, eventType string, payload any) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	data, err := json.Marshal(Event{Type: eventType, Payload: payload, At: n.now().UTC()})
	if err != nil {
		return fmt.Errorf("encode %s event: %w", eventType, err)
	}
	return n.rdb.Publish(ctx, AdminChannel, data).Err()
}

// PublishBestEffort publishes and only logs failures. Request paths use it so
// a Redis outage never fails a write that already committed.
func PublishBestEffort(ctx context.Context, p Publisher, eventType string, payload any) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, eventType, payload); err != nil {
		middleware.Logger.WarnContext(ctx, "admin event publish failed",
			"event", eventType, "error", err)
	}
}

// StartSubscriber subscribes to AdminChannel and calls onMessage for every
// payload until ctx is cancelled.
func (n *Notifier) StartSubscriber(ctx context.Context, onMessage func(payload string)) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.Subscribe(ctx, AdminChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", AdminChannel, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in admin event subscriber",
								"panic", r, "stack", string(debug.Stack()))
						}
					}()
					onMessage(msg.Payload)
				}()
			}
		}
	}()

	return nil
}
