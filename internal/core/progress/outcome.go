package progress

import (
	"time"

	"github.com/okrboard/backend/internal/domain"
)

type EffectKind string

const (
	// EffectRecomputeParent asks for the umbrella TaskID to be re-aggregated.
	EffectRecomputeParent EffectKind = "recompute_parent"
	// EffectPushToChildren asks for Status to be written onto every child of TaskID.
	EffectPushToChildren EffectKind = "push_to_children"
	// EffectReconcileUmbrella asks for TaskID itself to be re-aggregated if it has children.
	EffectReconcileUmbrella EffectKind = "reconcile_umbrella"
)

type Effect struct {
	Kind   EffectKind        `json:"kind"`
	TaskID string            `json:"task_id"`
	Status domain.TaskStatus `json:"status,omitempty"`
}

// Outcome is the next state of a task plus the side effects to run after it is stored.
type Outcome struct {
	Task            *domain.Task
	StatusChanged   bool
	ProgressChanged bool
	MilestonesSet   bool
	Effects         []Effect
}

// Changed reports whether the task needs to be written.
func (o Outcome) Changed() bool {
	return o.StatusChanged || o.ProgressChanged || o.MilestonesSet
}

// CommitMilestones validates and installs a milestone set, then derives
// progress and status from it.
func CommitMilestones(task *domain.Task, ms []domain.Milestone, now time.Time) (Outcome, error) {
	if err := ValidateWeights(ms); err != nil {
		return Outcome{}, err
	}
	next := task.Clone()
	next.Milestones = Committed(ms)
	next.Progress = ComputeProgress(next.Milestones)
	next.Status = Resolve(task.Status, next.Milestones, nil)
	stampCompletion(next, task.Status, now)

	out := Outcome{
		Task:            next,
		StatusChanged:   next.Status != task.Status,
		ProgressChanged: next.Progress != task.Progress,
		MilestonesSet:   true,
	}
	if next.HasParent() {
		out.Effects = append(out.Effects, Effect{Kind: EffectRecomputeParent, TaskID: *next.ParentTaskID})
	}
	out.Effects = append(out.Effects, Effect{Kind: EffectReconcileUmbrella, TaskID: next.ID})
	return out, nil
}

// ApplyStatus performs an explicit transition. Any valid status may be
// requested; an unchanged status produces no write and no effects.
func ApplyStatus(task *domain.Task, status domain.TaskStatus, now time.Time) (Outcome, error) {
	if err := ValidateStatus(status); err != nil {
		return Outcome{}, err
	}
	next := task.Clone()
	next.Status = Resolve(task.Status, next.Milestones, &status)
	if next.Status == domain.TaskStatusCompleted && len(Active(next.Milestones)) == 0 {
		next.Progress = 100
	}
	stampCompletion(next, task.Status, now)

	out := Outcome{
		Task:            next,
		StatusChanged:   next.Status != task.Status,
		ProgressChanged: next.Progress != task.Progress,
	}
	if !out.StatusChanged {
		return out, nil
	}
	out.Effects = append(out.Effects, Effect{Kind: EffectPushToChildren, TaskID: next.ID, Status: next.Status})
	if next.HasParent() {
		out.Effects = append(out.Effects, Effect{Kind: EffectRecomputeParent, TaskID: *next.ParentTaskID})
	}
	return out, nil
}

// PushedStatus writes a status handed down from the umbrella task. Derivation
// is bypassed and no further effects are produced.
func PushedStatus(child *domain.Task, status domain.TaskStatus, now time.Time) Outcome {
	next := child.Clone()
	next.Status = status
	stampCompletion(next, child.Status, now)
	return Outcome{Task: next, StatusChanged: next.Status != child.Status}
}

func stampCompletion(next *domain.Task, previous domain.TaskStatus, now time.Time) {
	switch {
	case next.Status == domain.TaskStatusCompleted && previous != domain.TaskStatusCompleted:
		t := now
		next.CompletedAt = &t
	case next.Status != domain.TaskStatusCompleted:
		next.CompletedAt = nil
	}
}
