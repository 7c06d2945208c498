package plant

import "fmt"

// Greedy builds an allocation by filling machines cheapest-first, ranked by
// cost per unit at full capacity. It is the deterministic fallback whenever a
// model reply is unusable, and a benchmark that proposals are compared to.
//
// Greedy is a heuristic: with fixed activation costs it can be beaten by a
// different machine subset, so a proposal matching (or beating) the greedy
// cost is "no worse than greedy", not proven optimal.
func Greedy(machines Set, demand int) (Allocation, error) {
	if machines.TotalCapacity() < demand {
		return nil, fmt.Errorf("%w: capacity %d, demand %d", ErrInfeasible, machines.TotalCapacity(), demand)
	}
	alloc := make(Allocation, len(machines))
	for _, name := range machines.Names() {
		alloc[name] = 0
	}
	remaining := demand
	for _, name := range machines.RankedByUnitCost() {
		if remaining <= 0 {
			break
		}
		units := min(remaining, machines[name].Capacity)
		alloc[name] = units
		remaining -= units
	}
	return alloc, nil
}

// maxExhaustiveMachines bounds the 2^n subset enumeration in Optimal.
const maxExhaustiveMachines = 20

// Optimal finds the cheapest valid allocation by enumerating machine subsets.
// For a fixed set of active machines the fixed costs are sunk, so the best
// fill within the subset orders machines by variable cost alone; the search
// therefore only has to try each subset once. Exponential in the machine
// count and guarded accordingly; the panel's oracle tool runs on a handful of
// machines where this is instant.
func Optimal(machines Set, demand int) (Allocation, Breakdown, error) {
	if len(machines) > maxExhaustiveMachines {
		return nil, Breakdown{}, fmt.Errorf("exhaustive search limited to %d machines, got %d",
			maxExhaustiveMachines, len(machines))
	}
	if machines.TotalCapacity() < demand {
		return nil, Breakdown{}, fmt.Errorf("%w: capacity %d, demand %d",
			ErrInfeasible, machines.TotalCapacity(), demand)
	}

	names := machines.Names()
	var (
		best     Allocation
		bestCost Breakdown
		found    bool
	)
	for mask := 1; mask < 1<<len(names); mask++ {
		subset := make(Set, len(names))
		for i, name := range names {
			if mask&(1<<i) != 0 {
				subset[name] = machines[name]
			}
		}
		if subset.TotalCapacity() < demand {
			continue
		}
		alloc := fillByVariableCost(subset, demand)
		// Skip subsets where some member ends up idle; a smaller mask
		// covers that allocation without the idle machine's fixed cost.
		if len(alloc.ActiveMachines()) != len(subset) {
			continue
		}
		full := make(Allocation, len(names))
		for _, name := range names {
			full[name] = alloc[name]
		}
		cost, err := Evaluate(machines, demand, full)
		if err != nil {
			continue
		}
		if !found || cost.Total < bestCost.Total {
			best, bestCost, found = full, cost, true
		}
	}
	if !found {
		return nil, Breakdown{}, fmt.Errorf("%w: no valid allocation exists", ErrInfeasible)
	}
	return best, bestCost, nil
}

// fillByVariableCost assigns demand to subset members cheapest variable cost
// first. With the active set fixed this is the exact optimum for the subset.
func fillByVariableCost(subset Set, demand int) Allocation {
	alloc := make(Allocation, len(subset))
	remaining := demand
	for _, name := range subset.RankedByVariableCost() {
		if remaining <= 0 {
			break
		}
		units := min(remaining, subset[name].Capacity)
		alloc[name] = units
		remaining -= units
	}
	return alloc
}
