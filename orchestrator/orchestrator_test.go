package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/allocmesh/agent"
	"github.com/hupe1980/allocmesh/model"
	"github.com/hupe1980/allocmesh/plant"
)

func testMachines(t *testing.T) plant.Set {
	t.Helper()
	set, err := plant.NewSet(
		plant.Machine{Name: "Tool_2", Capacity: 800, VariableCost: 3, FixedCost: 3000},
		plant.Machine{Name: "Tool_6", Capacity: 1600, VariableCost: 3, FixedCost: 3000},
		plant.Machine{Name: "Tool_13", Capacity: 2000, VariableCost: 5, FixedCost: 4500},
		plant.Machine{Name: "Tool_25", Capacity: 600, VariableCost: 7, FixedCost: 2500},
	)
	require.NoError(t, err)
	return set
}

func testTeam(experts int) Team {
	team := Team{
		Allocator: agent.Config{
			Name:         "allocator",
			Role:         "a production planner",
			Goal:         "minimize total manufacturing cost",
			Instructions: "Machines:\n{{.machines}}\nDemand: {{.demand}} units.\nPrevious: {{.previous}}",
			Task:         "Propose an allocation for iteration {{.iteration}}.",
		},
	}
	names := []string{"cost_expert", "efficiency_expert", "variable_cost_expert", "fixed_cost_expert", "batch_expert"}
	for i := 0; i < experts; i++ {
		team.Experts = append(team.Experts, agent.Config{
			Name:         names[i],
			Role:         "a manufacturing expert",
			Goal:         "assess allocations",
			Instructions: "Allocation {{.allocation}} costs ${{.total_cost}} for {{.demand}} units.",
			Task:         "Give your rating for iteration {{.iteration}}.",
		})
	}
	return team
}

func TestOrchestrator_Run_Infeasible(t *testing.T) {
	set, err := plant.NewSet(plant.Machine{Name: "Tool_1", Capacity: 2900, VariableCost: 1, FixedCost: 100})
	require.NoError(t, err)

	o := New(set, 3000, model.NewMockModel("mock"), testTeam(0))
	_, err = o.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, plant.ErrInfeasible)
}

func TestOrchestrator_Run_TrivialForcedAllocation(t *testing.T) {
	set, err := plant.NewSet(
		plant.Machine{Name: "Tool_1", Capacity: 1800, VariableCost: 2, FixedCost: 1000},
		plant.Machine{Name: "Tool_2", Capacity: 1200, VariableCost: 4, FixedCost: 2000},
	)
	require.NoError(t, err)

	llm := model.NewMockModel("mock")
	o := New(set, 3000, llm, testTeam(0))
	result, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, ReasonForcedAllocation, result.ConvergenceReason)
	require.Len(t, result.Iterations, 1)
	assert.Equal(t, plant.Allocation{"Tool_1": 1800, "Tool_2": 1200}, result.Best().Allocation)
	assert.Empty(t, llm.Requests(), "no model call for a forced allocation")
}

func TestOrchestrator_Run_GreedyFallbackConverges(t *testing.T) {
	// An empty mock answers every call with prose, so the allocator fails
	// schema validation and every iteration takes the greedy path. Equal
	// costs converge right after the minimum iteration count.
	llm := model.NewMockModel("mock")
	o := New(testMachines(t), 3000, llm, testTeam(0))

	result, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, ReasonCostBelowThreshold, result.ConvergenceReason)
	require.Len(t, result.Iterations, 2)
	for _, it := range result.Iterations {
		assert.False(t, it.ModelVerified)
		assert.Equal(t, result.Benchmark.Total, it.Cost.Total)
	}
	assert.Zero(t, result.ImprovementPercent)
	assert.NotEmpty(t, result.RunID)
}

func TestOrchestrator_Run_ModelProposal(t *testing.T) {
	llm := model.NewMockModel("mock").
		EnqueueText(`{"allocation": {"Tool_6": 1600, "Tool_13": 1400}, "reasoning": "cheapest pair covering demand"}`).
		EnqueueText(`{"allocation": {"Tool_6": 1600, "Tool_13": 1400}, "reasoning": "no better option found"}`)
	o := New(testMachines(t), 3000, llm, testTeam(0))

	result, err := o.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Iterations, 2)
	best := result.Best()
	assert.True(t, best.ModelVerified)
	assert.Equal(t, plant.Allocation{"Tool_6": 1600, "Tool_13": 1400}, best.Allocation)
	assert.InDelta(t, 19300, best.Cost.Total, 1e-9)
	assert.Equal(t, "cheapest pair covering demand", result.Iterations[0].Reasoning)
	assert.Less(t, best.Cost.Total, result.Benchmark.Total, "greedy is a benchmark, not the optimum here")
}

func TestOrchestrator_Run_RepairsInvalidProposal(t *testing.T) {
	// Tool_6 over capacity and an unknown machine; repair must produce a
	// valid allocation instead of failing the iteration.
	llm := model.NewMockModel("mock").
		EnqueueText(`{"allocation": {"Tool_6": 5000, "Tool_99": 10}, "reasoning": "overloaded"}`).
		EnqueueText(`{"allocation": {"Tool_6": 1600, "Tool_13": 1400}, "reasoning": "fixed"}`)
	o := New(testMachines(t), 3000, llm, testTeam(0))

	result, err := o.Run(context.Background())
	require.NoError(t, err)

	first := result.Iterations[0]
	assert.True(t, first.ModelVerified)
	assert.NotEmpty(t, first.Adjustments)
	assert.Equal(t, 3000, first.Allocation.Total())
	_, evalErr := plant.Evaluate(testMachines(t), 3000, first.Allocation)
	assert.NoError(t, evalErr)
}

func TestOrchestrator_Run_ExpertConsensusStops(t *testing.T) {
	// Allocator reply first, then three identical expert replies. Identical
	// panel replies keep the shared mock deterministic under fan-out.
	llm := model.NewMockModel("mock").
		EnqueueText(`{"allocation": {"Tool_6": 1600, "Tool_13": 1400}, "reasoning": "optimal pair"}`)
	for i := 0; i < 3; i++ {
		llm.EnqueueText(`{"rating": "optimal", "recommendations": []}`)
	}
	o := New(testMachines(t), 3000, llm, testTeam(3), func(o *Options) {
		o.Convergence = ConvergenceManager{
			MinIterations:      1,
			MaxIterations:      5,
			CostThreshold:      0.02,
			ConsensusThreshold: 3,
		}
	})

	result, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, ReasonExpertConsensus, result.ConvergenceReason)
	require.Len(t, result.Iterations, 1)
	assert.Equal(t, 3, result.Iterations[0].Approvals)
	require.Len(t, result.Iterations[0].Feedback, 3)
	for _, f := range result.Iterations[0].Feedback {
		assert.Equal(t, RatingOptimal, f.Rating)
	}
}

func TestOrchestrator_Run_MaxIterations(t *testing.T) {
	// Strictly improving costs above the threshold keep the loop running
	// until the iteration cap.
	llm := model.NewMockModel("mock").
		EnqueueText(`{"allocation": {"Tool_13": 2000, "Tool_25": 600, "Tool_2": 400}, "reasoning": "a"}`).
		EnqueueText(`{"allocation": {"Tool_13": 2000, "Tool_2": 800, "Tool_25": 200}, "reasoning": "b"}`).
		EnqueueText(`{"allocation": {"Tool_6": 1600, "Tool_13": 800, "Tool_25": 600}, "reasoning": "c"}`).
		EnqueueText(`{"allocation": {"Tool_6": 1600, "Tool_13": 1000, "Tool_2": 400}, "reasoning": "d"}`).
		EnqueueText(`{"allocation": {"Tool_6": 1600, "Tool_13": 1400}, "reasoning": "e"}`)
	o := New(testMachines(t), 3000, llm, testTeam(0))

	result, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, ReasonMaxIterations, result.ConvergenceReason)
	require.Len(t, result.Iterations, 5)
	assert.Equal(t, 4, result.BestIndex)
	assert.InDelta(t, 19300, result.Best().Cost.Total, 1e-9)
	assert.Greater(t, result.ImprovementPercent, 0.0)
}

func TestOrchestrator_Run_AllocatorSeesFeedback(t *testing.T) {
	llm := model.NewMockModel("mock").
		EnqueueText(`{"allocation": {"Tool_6": 1600, "Tool_13": 1400}, "reasoning": "first"}`)
	o := New(testMachines(t), 3000, llm, testTeam(0))

	_, err := o.Run(context.Background())
	require.NoError(t, err)

	reqs := llm.Requests()
	require.GreaterOrEqual(t, len(reqs), 2)
	second := reqs[1].Instructions
	assert.Contains(t, second, "iteration 1 allocated Tool_13=1400, Tool_6=1600")
	assert.Contains(t, second, "19300")
}
