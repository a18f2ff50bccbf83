package db

import (
	"github.com/okrboard/backend/internal/domain"
	"gorm.io/gorm"
)

func RunMigrations(db *gorm.DB) error {
	err := db.AutoMigrate(
		&domain.Task{},
		&domain.ApprovalRequest{},
		&domain.TimelineEvent{},
	)
	if err != nil {
		return err
	}

	if err := createCustomIndexes(db); err != nil {
		return err
	}

	return nil
}

func createCustomIndexes(db *gorm.DB) error {
	// Children are always discovered by parent, newest last
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_tasks_parent_created
		ON tasks (parent_task_id, created_at)
		WHERE parent_task_id IS NOT NULL
	`).Error; err != nil {
		return err
	}

	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_tasks_org_status
		ON tasks (organization_id, status)
	`).Error; err != nil {
		return err
	}

	// One department copy per umbrella task
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_tasks_parent_department_copy
		ON tasks (parent_task_id, department_id)
		WHERE parent_task_id IS NOT NULL AND scope = 'department'
	`).Error; err != nil {
		return err
	}

	// One copy per member set
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_tasks_parent_member_copy
		ON tasks (parent_task_id, member_key)
		WHERE parent_task_id IS NOT NULL AND member_key IS NOT NULL
	`).Error; err != nil {
		return err
	}

	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_timeline_events_resource
		ON timeline_events (resource_type, resource_id)
	`).Error; err != nil {
		return err
	}

	return nil
}
