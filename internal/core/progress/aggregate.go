package progress

import (
	"math"
	"time"

	"github.com/okrboard/backend/internal/domain"
)

// Aggregate treats every child as an equal-weight milestone of the umbrella:
// progress is the rounded mean of the children's progress and the status
// follows the completion thresholds. ok is false when there are no children,
// in which case the umbrella is an ordinary task.
func Aggregate(current domain.TaskStatus, childProgress []int) (pct int, status domain.TaskStatus, ok bool) {
	if len(childProgress) == 0 {
		return 0, current, false
	}
	sum := 0
	for _, p := range childProgress {
		sum += p
	}
	pct = int(math.Round(float64(sum) / float64(len(childProgress))))
	return pct, byThreshold(current, pct), true
}

// AggregateTasks applies Aggregate to a stored umbrella task. Only one hop is
// aggregated, so the outcome carries no effects.
func AggregateTasks(parent *domain.Task, children []*domain.Task, now time.Time) (Outcome, bool) {
	values := make([]int, 0, len(children))
	for _, c := range children {
		values = append(values, c.Progress)
	}
	pct, status, ok := Aggregate(parent.Status, values)
	if !ok {
		return Outcome{Task: parent.Clone()}, false
	}
	next := parent.Clone()
	next.Progress = pct
	next.Status = status
	stampCompletion(next, parent.Status, now)
	return Outcome{
		Task:            next,
		StatusChanged:   next.Status != parent.Status,
		ProgressChanged: next.Progress != parent.Progress,
	}, true
}
