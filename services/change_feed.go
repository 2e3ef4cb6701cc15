package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Change event types delivered by the feed
const (
	EventInsert = "INSERT"
	EventUpdate = "UPDATE"
	EventDelete = "DELETE"
)

// OrdersTable is the feed table name for order changes
const OrdersTable = "orders"

// ChangeEvent signals that a row in the named table changed. It is a wake-up
// signal only: consumers re-fetch full state rather than trusting any payload.
type ChangeEvent struct {
	Table string `json:"table"`
	Type  string `json:"type"`
}

// FeedSubscription is a handle to an open change feed subscription
type FeedSubscription struct {
	events    chan ChangeEvent
	closeOnce sync.Once
	closeFn   func()
}

// Events returns the channel delivering change events. The channel is closed
// when the subscription is closed.
func (s *FeedSubscription) Events() <-chan ChangeEvent {
	return s.events
}

// Close tears down the subscription. Safe to call more than once.
func (s *FeedSubscription) Close() {
	s.closeOnce.Do(s.closeFn)
}

// ChangeFeed is the pub/sub bus delivering row-level change notifications
type ChangeFeed interface {
	// Publish broadcasts a change event to all current subscribers
	Publish(ctx context.Context, event ChangeEvent) error

	// Subscribe opens a subscription for changes to the named table
	Subscribe(ctx context.Context, table string) (*FeedSubscription, error)
}

// RedisChangeFeed implements ChangeFeed on Redis pub/sub, one channel per table
type RedisChangeFeed struct {
	client *redis.Client
}

var changeFeedInstance ChangeFeed

// InitChangeFeed initializes the change feed backed by the given Redis client
func InitChangeFeed(client *redis.Client) ChangeFeed {
	changeFeedInstance = &RedisChangeFeed{client: client}
	return changeFeedInstance
}

// GetChangeFeed returns the initialized change feed instance
func GetChangeFeed() ChangeFeed {
	return changeFeedInstance
}

// SetChangeFeed sets the change feed instance (primarily for testing)
func SetChangeFeed(feed ChangeFeed) {
	changeFeedInstance = feed
}

func feedChannel(table string) string {
	return "changes:" + table
}

// Publish sends the event to the table's Redis channel
func (f *RedisChangeFeed) Publish(ctx context.Context, event ChangeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode change event: %w", err)
	}
	if err := f.client.Publish(ctx, feedChannel(event.Table), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish change event: %w", err)
	}
	return nil
}

// Subscribe opens a Redis subscription on the table's channel and decodes
// incoming messages into change events
func (f *RedisChangeFeed) Subscribe(ctx context.Context, table string) (*FeedSubscription, error) {
	pubsub := f.client.Subscribe(ctx, feedChannel(table))

	// Force the subscription to be established before returning, so callers
	// do not miss events published right after Subscribe
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s changes: %w", table, err)
	}

	events := make(chan ChangeEvent, 16)
	sub := &FeedSubscription{
		events: events,
		closeFn: func() {
			_ = pubsub.Close()
		},
	}

	go func() {
		defer close(events)
		for msg := range pubsub.Channel() {
			var event ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Printf("Dropping malformed change event: %v", err)
				continue
			}
			select {
			case events <- event:
			default:
				// Subscriber is behind; dropping is fine because the
				// consumer re-fetches full state on every event anyway
			}
		}
	}()

	return sub, nil
}
