package progress

import (
	"errors"
	"testing"

	"github.com/okrboard/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ms(specs ...domain.Milestone) []domain.Milestone { return specs }

func m(desc string, weight int, done bool) domain.Milestone {
	return domain.Milestone{Description: desc, Weight: weight, Completed: done}
}

func TestComputeProgress(t *testing.T) {
	tests := []struct {
		name       string
		milestones []domain.Milestone
		expected   int
	}{
		{name: "nil set", milestones: nil, expected: 0},
		{name: "all zero weights", milestones: ms(m("a", 0, true), m("b", 0, false)), expected: 0},
		{name: "design build ship", milestones: ms(m("design", 30, true), m("build", 50, true), m("ship", 20, false)), expected: 80},
		{name: "all done", milestones: ms(m("design", 30, true), m("build", 50, true), m("ship", 20, true)), expected: 100},
		{name: "none done", milestones: ms(m("a", 60, false), m("b", 40, false)), expected: 0},
		{name: "rounds half up", milestones: ms(m("a", 1, true), m("b", 7, false)), expected: 13},
		{name: "rounds thirds", milestones: ms(m("a", 1, true), m("b", 1, false), m("c", 1, false)), expected: 33},
		{name: "two thirds", milestones: ms(m("a", 1, true), m("b", 1, true), m("c", 1, false)), expected: 67},
		{name: "drafts ignored", milestones: ms(m("a", 50, true), m("  ", 50, false), m("b", 50, false)), expected: 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ComputeProgress(tt.milestones))
		})
	}
}

func TestComputeProgressOrderIndependent(t *testing.T) {
	set := ms(m("a", 10, true), m("b", 25, false), m("c", 40, true), m("d", 25, true))
	want := ComputeProgress(set)

	reversed := make([]domain.Milestone, len(set))
	for i := range set {
		reversed[len(set)-1-i] = set[i]
	}
	rotated := append(append([]domain.Milestone{}, set[2:]...), set[:2]...)

	assert.Equal(t, want, ComputeProgress(reversed))
	assert.Equal(t, want, ComputeProgress(rotated))
	assert.Equal(t, want, ComputeProgress(set), "repeated calls must agree")
}

func TestValidateWeights(t *testing.T) {
	tests := []struct {
		name       string
		set        []domain.Milestone
		wantErr    error
		wantSum    int
		wantWeight *int
	}{
		{name: "empty set is valid", set: nil},
		{name: "only drafts is valid", set: ms(m("", 30, false), m("   ", 10, false))},
		{name: "exact 100", set: ms(m("a", 70, false), m("b", 30, false))},
		{name: "drafts excluded from sum", set: ms(m("a", 70, false), m("b", 30, false), m("", 40, false))},
		{name: "under 100", set: ms(m("a", 70, false), m("b", 20, false)), wantErr: ErrWeightMismatch, wantSum: 90},
		{name: "over 100", set: ms(m("a", 70, false), m("b", 40, false)), wantErr: ErrWeightMismatch, wantSum: 110},
		{name: "weight above range", set: ms(m("a", 110, false), m("b", -10, false)), wantErr: ErrWeightOutOfRange, wantSum: 100, wantWeight: intPtr(110)},
		{name: "negative weight", set: ms(m("a", 90, false), m("b", -5, false)), wantErr: ErrWeightOutOfRange, wantSum: 85, wantWeight: intPtr(-5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateWeights(tt.set)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr))
			var werr *WeightError
			require.True(t, errors.As(err, &werr))
			assert.Equal(t, tt.wantSum, werr.Sum)
			assert.Equal(t, tt.wantWeight, werr.Weight)
		})
	}
}

func intPtr(v int) *int { return &v }

func TestCommittedDropsDraftsAndAssignsIDs(t *testing.T) {
	in := ms(
		domain.Milestone{ID: "keep", Description: " design ", Weight: 40},
		domain.Milestone{Description: "build", Weight: 60},
		domain.Milestone{Description: "", Weight: 10},
	)

	out := Committed(in)

	require.Len(t, out, 2)
	assert.Equal(t, "keep", out[0].ID)
	assert.Equal(t, "design", out[0].Description)
	assert.NotEmpty(t, out[1].ID)
	assert.Equal(t, " design ", in[0].Description, "input must not be mutated")
	assert.Nil(t, Committed(ms(m("", 100, false))))
}
