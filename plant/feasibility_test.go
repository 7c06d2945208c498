package plant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capacitySet(t *testing.T, capacities ...int) Set {
	t.Helper()
	machines := make([]Machine, len(capacities))
	for i, c := range capacities {
		machines[i] = Machine{
			Name:         "M" + string(rune('A'+i)),
			Capacity:     c,
			VariableCost: float64(i + 1),
			FixedCost:    100,
		}
	}
	s, err := NewSet(machines...)
	require.NoError(t, err)
	return s
}

func TestClassifyFeasibility(t *testing.T) {
	tests := []struct {
		name       string
		capacities []int
		demand     int
		want       Feasibility
	}{
		{"infeasible", []int{1000, 1000, 900}, 3000, Infeasible},
		{"trivial", []int{1000, 1000, 1000}, 3000, Trivial},
		{"solvable", []int{1500, 1500, 800}, 3000, Solvable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := ClassifyFeasibility(capacitySet(t, tt.capacities...), tt.demand)
			assert.Equal(t, tt.want, check.Class)
			assert.Equal(t, tt.demand, check.Demand)
		})
	}
}

func TestClassifyFeasibility_TrivialForcesFullCapacity(t *testing.T) {
	machines := capacitySet(t, 1200, 1800)
	check := ClassifyFeasibility(machines, 3000)

	require.Equal(t, Trivial, check.Class)
	assert.Equal(t, Allocation{"MA": 1200, "MB": 1800}, check.ForcedAllocation)

	// Forced cost matches the evaluator on the same allocation.
	want, err := Evaluate(machines, 3000, check.ForcedAllocation)
	require.NoError(t, err)
	assert.Equal(t, want, check.ForcedCost)
}

func TestClassifyFeasibility_SolvableHasNoForcedAllocation(t *testing.T) {
	check := ClassifyFeasibility(capacitySet(t, 2000, 1800), 3000)
	assert.Equal(t, Solvable, check.Class)
	assert.Nil(t, check.ForcedAllocation)
}

func TestFeasibilityString(t *testing.T) {
	assert.Equal(t, "infeasible", Infeasible.String())
	assert.Equal(t, "trivial", Trivial.String())
	assert.Equal(t, "solvable", Solvable.String())
}
