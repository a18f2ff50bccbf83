// Package progress holds the pure derivation rules of the task engine:
// weighted milestone progress, status resolution, umbrella aggregation,
// reopen semantics and template copying.
//
// Nothing here performs I/O. Each mutating rule returns an Outcome carrying
// the next task state and the follow-up Effects the caller must execute.
package progress

import (
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/okrboard/backend/internal/domain"
)

const FullWeight = 100

// IsDraft reports whether a milestone is still being written and must be
// ignored by validation and progress.
func IsDraft(m domain.Milestone) bool {
	return strings.TrimSpace(m.Description) == ""
}

// Active returns the non-draft milestones in their original order.
func Active(ms []domain.Milestone) []domain.Milestone {
	out := make([]domain.Milestone, 0, len(ms))
	for _, m := range ms {
		if !IsDraft(m) {
			out = append(out, m)
		}
	}
	return out
}

// WeightSum sums the weights of non-draft milestones.
func WeightSum(ms []domain.Milestone) int {
	sum := 0
	for _, m := range ms {
		if IsDraft(m) {
			continue
		}
		sum += m.Weight
	}
	return sum
}

// ComputeProgress returns the weighted completion percentage, 0..100.
// The result does not depend on milestone order.
func ComputeProgress(ms []domain.Milestone) int {
	total, done := 0, 0
	for _, m := range ms {
		if IsDraft(m) {
			continue
		}
		total += m.Weight
		if m.Completed {
			done += m.Weight
		}
	}
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(done) / float64(total)))
}

// ValidateWeights enforces that non-draft weights are each within 0..100 and
// sum to exactly 100. An empty (or all-draft) set is valid.
func ValidateWeights(ms []domain.Milestone) error {
	active := Active(ms)
	if len(active) == 0 {
		return nil
	}
	sum := WeightSum(active)
	for _, m := range active {
		if m.Weight < 0 || m.Weight > FullWeight {
			weight := m.Weight
			return &WeightError{Kind: ErrWeightOutOfRange, Sum: sum, Weight: &weight}
		}
	}
	if sum != FullWeight {
		return &WeightError{Kind: ErrWeightMismatch, Sum: sum}
	}
	return nil
}

// Committed prepares a milestone set for persistence: drafts are dropped,
// descriptions trimmed and missing ids assigned.
func Committed(ms []domain.Milestone) []domain.Milestone {
	if len(ms) == 0 {
		return nil
	}
	out := domain.CloneMilestones(Active(ms))
	for i := range out {
		out[i].Description = strings.TrimSpace(out[i].Description)
		if out[i].ID == "" {
			out[i].ID = uuid.NewString()
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func anyCompleted(ms []domain.Milestone) bool {
	for _, m := range ms {
		if !IsDraft(m) && m.Completed {
			return true
		}
	}
	return false
}
