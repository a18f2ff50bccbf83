package services

import (
	"context"

	"github.com/okrboard/backend/internal/core/ports"
	"github.com/okrboard/backend/internal/domain"
	"github.com/okrboard/backend/internal/infrastructure/logger"
)

// activity writes timeline events. A failed write is logged and never fails
// the operation being recorded.
type activity struct {
	repo   ports.TimelineRepository
	logger *logger.Logger
}

func (a *activity) record(ctx context.Context, eventType string, status domain.EventStatus, resourceType, resourceID, message string, meta map[string]interface{}) {
	if a == nil || a.repo == nil {
		return
	}
	event := &domain.TimelineEvent{
		Type:         eventType,
		Status:       status,
		Message:      message,
		Meta:         domain.JSONB(meta),
		ResourceID:   resourceID,
		ResourceType: resourceType,
	}
	if err := a.repo.Create(ctx, event); err != nil {
		a.logger.Warnw("timeline_record_failed", "type", eventType, "resource_id", resourceID, "error", err)
	}
}

func (a *activity) task(ctx context.Context, eventType string, status domain.EventStatus, taskID, message string, meta map[string]interface{}) {
	a.record(ctx, eventType, status, domain.ResourceTypeTask, taskID, message, meta)
}

func publish(feed ports.ChangeFeed, changeType domain.ChangeType, task *domain.Task) {
	if feed == nil || task == nil {
		return
	}
	feed.Publish(domain.TaskChange{Type: changeType, Task: task})
}
