package services

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/okrboard/backend/internal/core/ports"
	"github.com/okrboard/backend/internal/infrastructure/logger"
)

// ReconcileSweeper periodically re-aggregates every umbrella task so that
// cascades which were only partially applied converge without an operator.
type ReconcileSweeper struct {
	repo     ports.TaskRepository
	cascade  ports.CascadeService
	limiter  *rate.Limiter
	interval time.Duration
	logger   *logger.Logger
}

type ReconcileSweeperConfig struct {
	TaskRepo ports.TaskRepository
	Cascade  ports.CascadeService
	Logger   *logger.Logger
	// PerSecond caps ReconcileParent calls. Zero or less means no limit.
	PerSecond float64
	Interval  time.Duration
}

type SweepReport struct {
	Total     int
	Changed   int
	Unchanged int
	Failed    int
}

// SweepObserver is told the outcome of each parent as it is reconciled.
type SweepObserver func(parentID string, res *ports.ReconcileResult, err error)

func NewReconcileSweeper(cfg ReconcileSweeperConfig) *ReconcileSweeper {
	limit := rate.Inf
	if cfg.PerSecond > 0 {
		limit = rate.Limit(cfg.PerSecond)
	}
	return &ReconcileSweeper{
		repo:     cfg.TaskRepo,
		cascade:  cfg.Cascade,
		limiter:  rate.NewLimiter(limit, 1),
		interval: cfg.Interval,
		logger:   cfg.Logger,
	}
}

// Sweep reconciles the given parents at the configured pace. One failing
// parent does not stop the walk; a cancelled context does.
func (s *ReconcileSweeper) Sweep(ctx context.Context, parents []string, observe SweepObserver) (SweepReport, error) {
	report := SweepReport{Total: len(parents)}
	for _, id := range parents {
		if err := s.limiter.Wait(ctx); err != nil {
			return report, err
		}

		res, err := s.cascade.ReconcileParent(ctx, id)
		switch {
		case err != nil:
			report.Failed++
			s.logger.Warnw("sweep_reconcile_failed", "parent_id", id, "error", err)
		case res.Changed:
			report.Changed++
		default:
			report.Unchanged++
		}
		if observe != nil {
			observe(id, res, err)
		}
	}
	return report, nil
}

// SweepAll reconciles every task that has at least one child.
func (s *ReconcileSweeper) SweepAll(ctx context.Context, observe SweepObserver) (SweepReport, error) {
	parents, err := s.repo.ListParentIDs(ctx)
	if err != nil {
		s.logger.Errorw("sweep_list_parents_failed", "error", err)
		return SweepReport{}, err
	}
	return s.Sweep(ctx, parents, observe)
}

// Run sweeps on every tick until ctx is done. It returns immediately when
// the interval is not positive.
func (s *ReconcileSweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Infow("sweep_loop_started", "interval", s.interval)
	for {
		select {
		case <-ticker.C:
			start := time.Now()
			report, err := s.SweepAll(ctx, nil)
			if err != nil && ctx.Err() == nil {
				s.logger.Warnw("sweep_failed", "error", err)
				continue
			}
			s.logger.Infow("sweep_ok",
				"total", report.Total,
				"changed", report.Changed,
				"failed", report.Failed,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		case <-ctx.Done():
			s.logger.Infow("sweep_loop_stopped")
			return
		}
	}
}
