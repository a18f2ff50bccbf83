package services

import (
	"sync"

	"github.com/okrboard/backend/internal/core/ports"
	"github.com/okrboard/backend/internal/domain"
	"github.com/okrboard/backend/internal/infrastructure/logger"
)

const subscriberBuffer = 64

type subscription struct {
	filter domain.ChangeFilter
	ch     chan domain.TaskChange
}

// ChangeBroker fans task changes out to live subscribers. Every write goes
// through the services, so the stores need no notification support of their own.
type ChangeBroker struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]*subscription
	logger *logger.Logger
}

func NewChangeBroker(log *logger.Logger) *ChangeBroker {
	return &ChangeBroker{subs: make(map[uint64]*subscription), logger: log}
}

var _ ports.ChangeFeed = (*ChangeBroker)(nil)

// Publish never blocks; a subscriber whose buffer is full misses the change.
func (b *ChangeBroker) Publish(change domain.TaskChange) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, sub := range b.subs {
		if !sub.filter.Matches(change.Task) {
			continue
		}
		c := change
		c.Task = change.Task.Clone()
		select {
		case sub.ch <- c:
		default:
			b.logger.Warnw("change_feed_subscriber_lagging", "subscriber", id, "task_id", change.Task.ID)
		}
	}
}

func (b *ChangeBroker) Subscribe(filter domain.ChangeFilter) (<-chan domain.TaskChange, func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	sub := &subscription{filter: filter, ch: make(chan domain.TaskChange, subscriberBuffer)}
	b.subs[id] = sub
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(sub.ch)
		})
	}
	return sub.ch, cancel
}

// Subscribers returns the number of active subscriptions.
func (b *ChangeBroker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
