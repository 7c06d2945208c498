package plant

import (
	"errors"
	"fmt"
)

// ErrInvalidAllocation marks allocations that violate capacity or demand
// constraints. Callers match it with errors.Is and take the repair path.
var ErrInvalidAllocation = errors.New("invalid allocation")

// Breakdown is the cost of an allocation split into its components.
// Total = Variable + Fixed. Derived, never stored apart from its allocation.
type Breakdown struct {
	Variable float64 `json:"total_variable_cost"`
	Fixed    float64 `json:"total_fixed_cost"`
	Total    float64 `json:"total_cost"`
}

// Evaluate computes the total cost of an allocation against a machine set:
// the sum over machines with units > 0 of variable_cost*units + fixed_cost.
//
// It fails with ErrInvalidAllocation when any machine's units exceed its
// capacity, when units are negative, when the allocation names an unknown
// machine, or when the allocated total does not equal demand exactly.
// Deterministic, side-effect free, O(len(machines)).
func Evaluate(machines Set, demand int, alloc Allocation) (Breakdown, error) {
	if demand <= 0 {
		return Breakdown{}, fmt.Errorf("%w: demand must be positive, got %d", ErrInvalidAllocation, demand)
	}
	total := 0
	for name, units := range alloc {
		m, ok := machines[name]
		if !ok {
			return Breakdown{}, fmt.Errorf("%w: unknown machine %s", ErrInvalidAllocation, name)
		}
		if units < 0 {
			return Breakdown{}, fmt.Errorf("%w: machine %s allocated %d units", ErrInvalidAllocation, name, units)
		}
		if units > m.Capacity {
			return Breakdown{}, fmt.Errorf("%w: machine %s allocated %d units, capacity is %d",
				ErrInvalidAllocation, name, units, m.Capacity)
		}
		total += units
	}
	if total != demand {
		return Breakdown{}, fmt.Errorf("%w: allocation supplies %d units, demand is %d",
			ErrInvalidAllocation, total, demand)
	}

	var b Breakdown
	for name, units := range alloc {
		if units == 0 {
			continue
		}
		m := machines[name]
		b.Variable += m.VariableCost * float64(units)
		b.Fixed += m.FixedCost
	}
	b.Total = b.Variable + b.Fixed
	return b, nil
}
