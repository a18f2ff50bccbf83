package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/okrboard/backend/internal/core/ports"
	"github.com/okrboard/backend/internal/domain"
	"github.com/okrboard/backend/internal/infrastructure/logger"
	"gorm.io/gorm"
)

type approvalRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewApprovalRepository(db *gorm.DB, log *logger.Logger) ports.ApprovalRepository {
	return &approvalRepository{db: db, log: log}
}

func (r *approvalRepository) Create(ctx context.Context, req *domain.ApprovalRequest) error {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(req).Error; err != nil {
		r.log.Errorw("approval_repo_create_failed", "requested_by", req.RequestedBy, "error", err)
		return err
	}
	r.log.Infow("approval_repo_create_ok", "id", req.ID, "level", req.ApprovalLevel)
	return nil
}

func (r *approvalRepository) GetByID(ctx context.Context, id string) (*domain.ApprovalRequest, error) {
	var req domain.ApprovalRequest
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&req).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		r.log.Errorw("approval_repo_get_failed", "id", id, "error", err)
		return nil, err
	}
	return &req, nil
}

func (r *approvalRepository) Update(ctx context.Context, req *domain.ApprovalRequest) error {
	res := r.db.WithContext(ctx).Save(req)
	if res.Error != nil {
		r.log.Errorw("approval_repo_update_failed", "id", req.ID, "error", res.Error)
		return res.Error
	}
	r.log.Infow("approval_repo_update_ok", "id", req.ID, "status", req.Status)
	return nil
}

func (r *approvalRepository) List(ctx context.Context, status domain.ApprovalStatus) ([]domain.ApprovalRequest, error) {
	q := r.db.WithContext(ctx).Order("created_at desc")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var reqs []domain.ApprovalRequest
	if err := q.Find(&reqs).Error; err != nil {
		r.log.Errorw("approval_repo_list_failed", "status", status, "error", err)
		return nil, err
	}
	r.log.Infow("approval_repo_list_ok", "status", status, "count", len(reqs))
	return reqs, nil
}
