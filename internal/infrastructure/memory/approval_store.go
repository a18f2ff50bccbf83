package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okrboard/backend/internal/core/ports"
	"github.com/okrboard/backend/internal/domain"
)

type ApprovalStore struct {
	requests map[string]domain.ApprovalRequest
	mu       sync.RWMutex
}

func NewApprovalStore() *ApprovalStore {
	return &ApprovalStore{requests: make(map[string]domain.ApprovalRequest)}
}

var _ ports.ApprovalRepository = (*ApprovalStore)(nil)

func (s *ApprovalStore) Create(ctx context.Context, req *domain.ApprovalRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	now := time.Now()
	req.CreatedAt = now
	req.UpdatedAt = now
	s.requests[req.ID] = *req
	return nil
}

func (s *ApprovalStore) GetByID(ctx context.Context, id string) (*domain.ApprovalRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.requests[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return &req, nil
}

func (s *ApprovalStore) Update(ctx context.Context, req *domain.ApprovalRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.requests[req.ID]
	if !ok {
		return ports.ErrNotFound
	}
	req.CreatedAt = stored.CreatedAt
	req.UpdatedAt = time.Now()
	s.requests[req.ID] = *req
	return nil
}

// List returns requests newest first. An empty status matches every request.
func (s *ApprovalStore) List(ctx context.Context, status domain.ApprovalStatus) ([]domain.ApprovalRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.ApprovalRequest, 0, len(s.requests))
	for _, req := range s.requests {
		if status != "" && req.Status != status {
			continue
		}
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
