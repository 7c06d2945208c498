package tool

import (
	"context"
	"fmt"

	"github.com/hupe1980/allocmesh/plant"
)

// Tool names exposed to models.
const (
	CostCalculatorName   = "manufacturing_cost_calculator"
	AllocationOracleName = "allocation_oracle"
)

// CostResult is the structured payload returned by the cost calculator tool.
type CostResult struct {
	MachineAllocations plant.Allocation `json:"machine_allocations"`
	TotalVariableCost  float64          `json:"total_variable_cost"`
	TotalFixedCost     float64          `json:"total_fixed_cost"`
	TotalCost          float64          `json:"total_cost"`
}

// OracleResult is the structured payload returned by the allocation oracle.
type OracleResult struct {
	OptimalAllocation plant.Allocation `json:"optimal_allocation"`
	OptimalCost       float64          `json:"optimal_cost"`
	VariableCost      float64          `json:"optimal_variable_cost"`
	FixedCost         float64          `json:"optimal_fixed_cost"`
	Reasoning         string           `json:"reasoning"`
}

// NewCostCalculator builds the calculator tool for a fixed problem instance.
// The machine set and demand are bound at construction so the model only
// supplies the allocation; the cost always comes from plant.Evaluate.
func NewCostCalculator(machines plant.Set, demand int) *FunctionTool {
	params := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"allocation": map[string]any{
				"type":        "object",
				"description": "Units allocated per machine name, summing exactly to the demand",
			},
		},
		"required": []string{"allocation"},
	}
	return NewFunctionTool(
		CostCalculatorName,
		"Calculate total manufacturing cost for a machine allocation. Use this for all cost calculations instead of computing by hand.",
		params,
		func(_ context.Context, args map[string]any) (any, error) {
			alloc, err := decodeAllocation(args["allocation"])
			if err != nil {
				return nil, err
			}
			breakdown, err := plant.Evaluate(machines, demand, alloc)
			if err != nil {
				return nil, err
			}
			return CostResult{
				MachineAllocations: alloc,
				TotalVariableCost:  breakdown.Variable,
				TotalFixedCost:     breakdown.Fixed,
				TotalCost:          breakdown.Total,
			}, nil
		},
	)
}

// NewAllocationOracle builds the benchmark tool the evaluator side uses to
// compare a proposal against the best allocation an exhaustive subset search
// can find. The result is a benchmark, not a proof: callers must not present
// "no worse than the oracle" as verified global optimality when the search is
// skipped or fails.
func NewAllocationOracle(machines plant.Set, demand int) *FunctionTool {
	params := map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
	return NewFunctionTool(
		AllocationOracleName,
		"Find the cheapest valid allocation for the current problem by exhaustive subset search. Use this to benchmark a proposed allocation.",
		params,
		func(_ context.Context, _ map[string]any) (any, error) {
			alloc, cost, err := plant.Optimal(machines, demand)
			if err != nil {
				return nil, err
			}
			return OracleResult{
				OptimalAllocation: alloc,
				OptimalCost:       cost.Total,
				VariableCost:      cost.Variable,
				FixedCost:         cost.Fixed,
				Reasoning:         "exhaustive search over machine subsets, cheapest variable cost filled first within each subset",
			}, nil
		},
	)
}

// decodeAllocation converts the JSON-decoded allocation object (names to
// numbers) into a plant.Allocation, rejecting fractional units.
func decodeAllocation(raw any) (plant.Allocation, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("allocation must be an object of machine name to units")
	}
	alloc := make(plant.Allocation, len(obj))
	for name, v := range obj {
		f, ok := v.(float64)
		if !ok {
			if i, isInt := v.(int); isInt {
				alloc[name] = i
				continue
			}
			return nil, fmt.Errorf("allocation for %s must be a number, got %T", name, v)
		}
		if f != float64(int(f)) {
			return nil, fmt.Errorf("allocation for %s must be whole units, got %v", name, f)
		}
		alloc[name] = int(f)
	}
	return alloc, nil
}
