package services

import (
	"time"

	"github.com/okrboard/backend/internal/core/ports"
	"github.com/okrboard/backend/internal/infrastructure/logger"
)

type EngineConfig struct {
	TaskRepo     ports.TaskRepository
	ApprovalRepo ports.ApprovalRepository
	TimelineRepo ports.TimelineRepository
	Feed         ports.ChangeFeed
	Logger       *logger.Logger
	Retry        RetryConfig
	// CascadeConcurrency bounds parallel child writes during a status push.
	CascadeConcurrency int
	// ReconcileRate caps sweeper reconciles per second.
	ReconcileRate float64
	SweepInterval time.Duration
	EnableLocks   bool
	Clock         func() time.Time
}

// Engine groups the services that share one key locker.
type Engine struct {
	Tasks   ports.TaskService
	Cascade ports.CascadeService
	Factory ports.SubtaskFactory
	Gate    ports.ApprovalGate
	Sweeper *ReconcileSweeper
}

func NewEngine(cfg EngineConfig) *Engine {
	locks := newKeyLocker(cfg.EnableLocks)

	cascade := NewCascadeService(CascadeServiceConfig{
		TaskRepo:     cfg.TaskRepo,
		TimelineRepo: cfg.TimelineRepo,
		Feed:         cfg.Feed,
		Logger:       cfg.Logger,
		Retry:        cfg.Retry,
		Concurrency:  cfg.CascadeConcurrency,
		Clock:        cfg.Clock,
		locks:        locks,
	})
	tasks := NewTaskService(TaskServiceConfig{
		TaskRepo:     cfg.TaskRepo,
		TimelineRepo: cfg.TimelineRepo,
		Cascade:      cascade,
		Feed:         cfg.Feed,
		Logger:       cfg.Logger,
		Retry:        cfg.Retry,
		Clock:        cfg.Clock,
		locks:        locks,
	})
	factory := NewSubtaskFactory(SubtaskFactoryConfig{
		TaskRepo:     cfg.TaskRepo,
		TimelineRepo: cfg.TimelineRepo,
		Cascade:      cascade,
		Feed:         cfg.Feed,
		Logger:       cfg.Logger,
		Retry:        cfg.Retry,
		locks:        locks,
	})
	gate := NewApprovalGate(ApprovalGateConfig{
		ApprovalRepo: cfg.ApprovalRepo,
		TimelineRepo: cfg.TimelineRepo,
		Tasks:        tasks,
		Factory:      factory,
		Logger:       cfg.Logger,
		Retry:        cfg.Retry,
		Clock:        cfg.Clock,
		locks:        locks,
	})

	sweeper := NewReconcileSweeper(ReconcileSweeperConfig{
		TaskRepo:  cfg.TaskRepo,
		Cascade:   cascade,
		Logger:    cfg.Logger,
		PerSecond: cfg.ReconcileRate,
		Interval:  cfg.SweepInterval,
	})

	return &Engine{Tasks: tasks, Cascade: cascade, Factory: factory, Gate: gate, Sweeper: sweeper}
}
