// Package notify buffers per-user toasts until the client drains or streams
// them.
package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/animuse/animuse/internal/domain/recommend"
)

const (
	defaultCapacity   = 20
	subscriberBacklog = 8
)

// Feed is an in-memory notification inbox with live subscribers.
type Feed struct {
	capacity int
	logger   *slog.Logger

	mu          sync.Mutex
	pending     map[string][]recommend.Notification
	subscribers map[string]map[chan recommend.Notification]struct{}
}

// NewFeed builds a Feed keeping at most capacity undelivered notifications
// per user; older ones are dropped first.
func NewFeed(capacity int, logger *slog.Logger) *Feed {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Feed{
		capacity:    capacity,
		logger:      logger.With("component", "notify.feed"),
		pending:     make(map[string][]recommend.Notification),
		subscribers: make(map[string]map[chan recommend.Notification]struct{}),
	}
}

// Notify delivers n to live subscribers, or queues it when nobody listens.
func (f *Feed) Notify(_ context.Context, userID string, n recommend.Notification) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if subs := f.subscribers[userID]; len(subs) > 0 {
		for ch := range subs {
			select {
			case ch <- n:
			default:
				f.logger.Warn("subscriber backlog full, dropping notification", "user_id", userID, "id", n.ID)
			}
		}
		return
	}

	queue := append(f.pending[userID], n)
	if len(queue) > f.capacity {
		queue = queue[len(queue)-f.capacity:]
	}
	f.pending[userID] = queue
}

// Drain returns and clears the queued notifications, oldest first.
func (f *Feed) Drain(userID string) []recommend.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	queue := f.pending[userID]
	delete(f.pending, userID)
	if queue == nil {
		return []recommend.Notification{}
	}
	return queue
}

// Subscribe streams notifications for userID until ctx is done. Queued
// notifications are delivered first.
func (f *Feed) Subscribe(ctx context.Context, userID string) <-chan recommend.Notification {
	f.mu.Lock()
	backlog := f.pending[userID]
	delete(f.pending, userID)
	size := subscriberBacklog
	if len(backlog) > size {
		size = len(backlog)
	}
	ch := make(chan recommend.Notification, size)
	for _, n := range backlog {
		ch <- n
	}
	if f.subscribers[userID] == nil {
		f.subscribers[userID] = make(map[chan recommend.Notification]struct{})
	}
	f.subscribers[userID][ch] = struct{}{}
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		delete(f.subscribers[userID], ch)
		if len(f.subscribers[userID]) == 0 {
			delete(f.subscribers, userID)
		}
		f.mu.Unlock()
		close(ch)
	}()
	return ch
}

var _ recommend.Notifier = (*Feed)(nil)
