package plant

import "fmt"

// Adjustment records one correction made while repairing a proposed
// allocation. Adjustments are surfaced to the caller (and logged), never
// treated as errors.
type Adjustment struct {
	Machine string
	Reason  string
	Before  int
	After   int
}

func (a Adjustment) String() string {
	return fmt.Sprintf("%s: %d -> %d (%s)", a.Machine, a.Before, a.After, a.Reason)
}

// Repair turns a proposed allocation into a valid one: units are clamped to
// capacities, machines unknown to the set are dropped, any shortfall is
// filled cheapest-first by unit cost and any surplus is trimmed from the most
// expensive machines. Returns the repaired allocation and the list of
// corrections applied; the list is empty when the proposal was already valid.
//
// Fails only when total capacity cannot meet demand.
func Repair(machines Set, demand int, proposed Allocation) (Allocation, []Adjustment, error) {
	if machines.TotalCapacity() < demand {
		return nil, nil, fmt.Errorf("%w: capacity %d, demand %d",
			ErrInfeasible, machines.TotalCapacity(), demand)
	}

	var adjustments []Adjustment
	repaired := make(Allocation, len(machines))
	for _, name := range machines.Names() {
		repaired[name] = 0
	}

	for name, units := range proposed {
		m, ok := machines[name]
		if !ok {
			adjustments = append(adjustments, Adjustment{
				Machine: name, Reason: "unknown machine dropped", Before: units, After: 0,
			})
			continue
		}
		clamped := units
		if clamped < 0 {
			clamped = 0
		}
		if clamped > m.Capacity {
			clamped = m.Capacity
		}
		if clamped != units {
			adjustments = append(adjustments, Adjustment{
				Machine: name, Reason: "clamped to capacity", Before: units, After: clamped,
			})
		}
		repaired[name] = clamped
	}

	// Fill shortfall on the cheapest machines with spare capacity.
	if shortfall := demand - repaired.Total(); shortfall > 0 {
		for _, name := range machines.RankedByUnitCost() {
			if shortfall <= 0 {
				break
			}
			spare := machines[name].Capacity - repaired[name]
			if spare <= 0 {
				continue
			}
			added := min(shortfall, spare)
			adjustments = append(adjustments, Adjustment{
				Machine: name, Reason: "shortfall filled", Before: repaired[name], After: repaired[name] + added,
			})
			repaired[name] += added
			shortfall -= added
		}
	}

	// Trim surplus from the most expensive machines first.
	if surplus := repaired.Total() - demand; surplus > 0 {
		ranked := machines.RankedByUnitCost()
		for i := len(ranked) - 1; i >= 0 && surplus > 0; i-- {
			name := ranked[i]
			if repaired[name] <= 0 {
				continue
			}
			removed := min(surplus, repaired[name])
			adjustments = append(adjustments, Adjustment{
				Machine: name, Reason: "surplus trimmed", Before: repaired[name], After: repaired[name] - removed,
			})
			repaired[name] -= removed
			surplus -= removed
		}
	}

	return repaired, adjustments, nil
}
