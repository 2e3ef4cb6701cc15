package services

import (
	"context"
	"sync"
)

// InMemoryChangeFeed is a process-local ChangeFeed implementation. It backs
// tests and single-process deployments where no Redis server is configured.
type InMemoryChangeFeed struct {
	mu          sync.Mutex
	subscribers map[string]map[chan ChangeEvent]struct{}

	// PublishErr, when set, is returned from Publish (for testing failure paths)
	PublishErr error
}

// NewInMemoryChangeFeed creates an empty in-memory change feed
func NewInMemoryChangeFeed() *InMemoryChangeFeed {
	return &InMemoryChangeFeed{
		subscribers: make(map[string]map[chan ChangeEvent]struct{}),
	}
}

// Publish delivers the event to every open subscription on the event's table
func (f *InMemoryChangeFeed) Publish(ctx context.Context, event ChangeEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.PublishErr != nil {
		return f.PublishErr
	}

	for ch := range f.subscribers[event.Table] {
		select {
		case ch <- event:
		default:
			// Subscriber is behind; consumers do a full re-fetch per event,
			// so a dropped wake-up is recovered by the next one
		}
	}
	return nil
}

// Subscribe opens a subscription for changes to the named table
func (f *InMemoryChangeFeed) Subscribe(ctx context.Context, table string) (*FeedSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan ChangeEvent, 16)
	if f.subscribers[table] == nil {
		f.subscribers[table] = make(map[chan ChangeEvent]struct{})
	}
	f.subscribers[table][ch] = struct{}{}

	return &FeedSubscription{
		events: ch,
		closeFn: func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			delete(f.subscribers[table], ch)
			close(ch)
		},
	}, nil
}

// SubscriberCount reports how many subscriptions are open on a table (for testing)
func (f *InMemoryChangeFeed) SubscriberCount(table string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers[table])
}
