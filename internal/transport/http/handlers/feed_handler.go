package handlers

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/okrboard/backend/internal/core/ports"
	"github.com/okrboard/backend/internal/domain"
	"github.com/okrboard/backend/internal/infrastructure/logger"
)

// FeedHandler streams task changes to a websocket client as JSON messages.
// Query parameters task_id, parent_id, organization_id and department_id
// narrow the stream.
type FeedHandler struct {
	feed   ports.ChangeFeed
	logger *logger.Logger
}

func NewFeedHandler(feed ports.ChangeFeed, logger *logger.Logger) *FeedHandler {
	return &FeedHandler{feed: feed, logger: logger}
}

func (h *FeedHandler) Handle(c *websocket.Conn) {
	filter := domain.ChangeFilter{
		TaskID:         c.Query("task_id"),
		ParentID:       c.Query("parent_id"),
		OrganizationID: c.Query("organization_id"),
		DepartmentID:   c.Query("department_id"),
	}
	changes, cancel := h.feed.Subscribe(filter)
	defer cancel()
	defer c.Close()

	h.logger.Infow("feed_subscribe", "task_id", filter.TaskID, "parent_id", filter.ParentID)

	// The client never sends data; reading only detects the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			h.logger.Infow("feed_client_closed", "task_id", filter.TaskID)
			return
		case change, ok := <-changes:
			if !ok {
				return
			}
			if err := c.WriteJSON(change); err != nil {
				h.logger.Warnw("feed_write_failed", "error", err)
				return
			}
		}
	}
}
