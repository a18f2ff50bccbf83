package progress

import (
	"fmt"
	"time"

	"github.com/okrboard/backend/internal/domain"
)

// Reopen moves a completed or cancelled task back to pending.
//
// With reset every milestone is marked incomplete; weights and descriptions
// are kept. Without reset the milestones keep their flags, so a task can be
// pending while its milestones add up to 100%. That state is intentional: the
// next milestone commit derives the status again.
func Reopen(task *domain.Task, reset bool, now time.Time) (Outcome, error) {
	if !task.Status.Terminal() {
		return Outcome{}, fmt.Errorf("%w: status is %s", ErrNotTerminal, task.Status)
	}
	next := task.Clone()
	if reset {
		for i := range next.Milestones {
			next.Milestones[i].Completed = false
		}
	}
	next.Status = domain.TaskStatusPending
	next.Progress = ComputeProgress(next.Milestones)
	stampCompletion(next, task.Status, now)

	out := Outcome{
		Task:            next,
		StatusChanged:   true,
		ProgressChanged: next.Progress != task.Progress,
		MilestonesSet:   reset && len(next.Milestones) > 0,
	}
	if next.HasParent() {
		out.Effects = append(out.Effects, Effect{Kind: EffectRecomputeParent, TaskID: *next.ParentTaskID})
	}
	out.Effects = append(out.Effects, Effect{Kind: EffectReconcileUmbrella, TaskID: next.ID})
	return out, nil
}
