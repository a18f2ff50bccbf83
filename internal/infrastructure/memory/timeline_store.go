package memory

import (
	"context"
	"sync"
	"time"

	"github.com/okrboard/backend/internal/core/ports"
	"github.com/okrboard/backend/internal/domain"
)

type TimelineStore struct {
	events []domain.TimelineEvent
	nextID uint
	mu     sync.RWMutex
}

func NewTimelineStore() *TimelineStore {
	return &TimelineStore{}
}

var _ ports.TimelineRepository = (*TimelineStore)(nil)

func (s *TimelineStore) Create(ctx context.Context, event *domain.TimelineEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	event.ID = s.nextID
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	s.events = append(s.events, *event)
	return nil
}

// GetByResource returns the resource's events in insertion order.
func (s *TimelineStore) GetByResource(ctx context.Context, resourceType string, resourceID string) ([]domain.TimelineEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.TimelineEvent, 0)
	for _, e := range s.events {
		if e.ResourceType == resourceType && e.ResourceID == resourceID {
			out = append(out, e)
		}
	}
	return out, nil
}

// GetAll returns the newest events first.
func (s *TimelineStore) GetAll(ctx context.Context, limit int) ([]domain.TimelineEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.TimelineEvent, 0, len(s.events))
	for i := len(s.events) - 1; i >= 0; i-- {
		out = append(out, s.events[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
