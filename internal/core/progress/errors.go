package progress

import (
	"errors"
	"fmt"
)

var (
	ErrWeightMismatch   = errors.New("milestones: weights must sum to 100")
	ErrWeightOutOfRange = errors.New("milestones: weight must be between 0 and 100")
	ErrInvalidStatus    = errors.New("task: invalid status")
	ErrNotTerminal      = errors.New("task: only completed or cancelled tasks can be reopened")
)

// WeightError reports an invalid milestone set. Sum is the weight total of
// the set; Weight is the first out-of-range weight, when there is one.
type WeightError struct {
	Kind   error
	Sum    int
	Weight *int
}

func (e *WeightError) Error() string {
	if e == nil {
		return ""
	}
	if e.Weight != nil {
		return fmt.Sprintf("%s (got %d)", e.Kind.Error(), *e.Weight)
	}
	return fmt.Sprintf("%s (got %d)", e.Kind.Error(), e.Sum)
}

func (e *WeightError) Unwrap() error { return e.Kind }
