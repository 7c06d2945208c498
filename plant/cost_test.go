package plant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// referenceMachines is the canonical four-machine scenario used across the
// package tests.
func referenceMachines(t *testing.T) Set {
	t.Helper()
	s, err := NewSet(
		Machine{Name: "Tool_2", Capacity: 800, VariableCost: 3, FixedCost: 3000},
		Machine{Name: "Tool_6", Capacity: 1600, VariableCost: 3, FixedCost: 3000},
		Machine{Name: "Tool_13", Capacity: 2000, VariableCost: 5, FixedCost: 4500},
		Machine{Name: "Tool_25", Capacity: 600, VariableCost: 7, FixedCost: 2500},
	)
	require.NoError(t, err)
	return s
}

func TestEvaluate_ReferenceScenario(t *testing.T) {
	machines := referenceMachines(t)

	// Best known allocation for demand 3000: two active machines.
	alloc := Allocation{"Tool_6": 1600, "Tool_13": 1400}

	b, err := Evaluate(machines, 3000, alloc)
	require.NoError(t, err)
	assert.Equal(t, float64(1600*3+1400*5), b.Variable)
	assert.Equal(t, float64(3000+4500), b.Fixed)
	assert.Equal(t, 19300.0, b.Total)
}

func TestEvaluate_Deterministic(t *testing.T) {
	machines := referenceMachines(t)
	alloc := Allocation{"Tool_2": 800, "Tool_6": 1600, "Tool_13": 600}

	first, err := Evaluate(machines, 3000, alloc)
	require.NoError(t, err)
	second, err := Evaluate(machines, 3000, alloc)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestEvaluate_IdleMachineCostsNothing(t *testing.T) {
	machines := referenceMachines(t)
	alloc := Allocation{"Tool_6": 1600, "Tool_13": 1400, "Tool_25": 0}

	b, err := Evaluate(machines, 3000, alloc)
	require.NoError(t, err)
	// Tool_25 is allocated zero units so its fixed cost is not incurred.
	assert.Equal(t, 19300.0, b.Total)
}

func TestEvaluate_MonotoneInUnits(t *testing.T) {
	machines := referenceMachines(t)

	// Shifting units from a cheap machine to a more expensive one, holding
	// the total fixed, never lowers cost below the all-cheap baseline.
	base, err := Evaluate(machines, 3000, Allocation{"Tool_6": 1600, "Tool_13": 1400})
	require.NoError(t, err)
	shifted, err := Evaluate(machines, 3000, Allocation{"Tool_6": 1600, "Tool_13": 800, "Tool_25": 600})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, shifted.Total, base.Total)
}

func TestEvaluate_Invalid(t *testing.T) {
	machines := referenceMachines(t)

	tests := []struct {
		name   string
		demand int
		alloc  Allocation
	}{
		{"capacity exceeded", 3000, Allocation{"Tool_6": 1700, "Tool_13": 1300}},
		{"sum below demand", 3000, Allocation{"Tool_6": 1600, "Tool_13": 1000}},
		{"sum above demand", 3000, Allocation{"Tool_6": 1600, "Tool_13": 1500}},
		{"negative units", 3000, Allocation{"Tool_6": -100, "Tool_13": 2000, "Tool_2": 800, "Tool_25": 300}},
		{"unknown machine", 3000, Allocation{"Tool_99": 3000}},
		{"zero demand", 0, Allocation{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Evaluate(machines, tt.demand, tt.alloc)
			assert.ErrorIs(t, err, ErrInvalidAllocation)
		})
	}
}
