package plant

import (
	"errors"
	"fmt"
)

// ErrInfeasible is returned when total capacity cannot meet demand. This is
// the only failure that terminates a run before optimization starts.
var ErrInfeasible = errors.New("insufficient capacity for demand")

// Feasibility classifies a problem before the optimization loop runs.
type Feasibility int

const (
	// Infeasible: total capacity is below demand; the run must stop.
	Infeasible Feasibility = iota
	// Trivial: total capacity equals demand; every machine must run at full
	// capacity, so there is nothing to optimize.
	Trivial
	// Solvable: excess capacity exists and optimization is meaningful.
	Solvable
)

// String returns the label used in logs and reports.
func (f Feasibility) String() string {
	switch f {
	case Infeasible:
		return "infeasible"
	case Trivial:
		return "trivial"
	case Solvable:
		return "solvable"
	default:
		return fmt.Sprintf("feasibility(%d)", int(f))
	}
}

// FeasibilityCheck is the result of the pre-check gating the iteration loop.
// For Trivial problems it carries the forced full-capacity allocation and its
// cost so callers can report a direct solution without running any agent.
type FeasibilityCheck struct {
	Class            Feasibility
	TotalCapacity    int
	Demand           int
	ForcedAllocation Allocation // non-nil only when Class == Trivial
	ForcedCost       Breakdown
}

// ClassifyFeasibility compares total machine capacity against demand.
func ClassifyFeasibility(machines Set, demand int) FeasibilityCheck {
	check := FeasibilityCheck{
		TotalCapacity: machines.TotalCapacity(),
		Demand:        demand,
	}
	switch {
	case check.TotalCapacity < demand:
		check.Class = Infeasible
	case check.TotalCapacity == demand:
		check.Class = Trivial
		forced := make(Allocation, len(machines))
		for name, m := range machines {
			forced[name] = m.Capacity
		}
		check.ForcedAllocation = forced
		// Full capacity everywhere is valid by construction.
		check.ForcedCost, _ = Evaluate(machines, demand, forced)
	default:
		check.Class = Solvable
	}
	return check
}
