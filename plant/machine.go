package plant

import (
	"fmt"
	"sort"
)

// Machine describes a single production machine. Capacity is the maximum
// number of units the machine can produce in a run; VariableCost is incurred
// per unit; FixedCost is incurred once if the machine produces anything.
type Machine struct {
	Name         string  `json:"name" yaml:"name"`
	Capacity     int     `json:"capacity" yaml:"capacity"`
	VariableCost float64 `json:"variable_cost" yaml:"variable_cost"`
	FixedCost    float64 `json:"fixed_cost" yaml:"fixed_cost"`
}

// Validate checks the machine invariants (non-negative capacity and costs).
func (m Machine) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("machine has no name")
	}
	if m.Capacity < 0 {
		return fmt.Errorf("machine %s: negative capacity %d", m.Name, m.Capacity)
	}
	if m.VariableCost < 0 {
		return fmt.Errorf("machine %s: negative variable cost %g", m.Name, m.VariableCost)
	}
	if m.FixedCost < 0 {
		return fmt.Errorf("machine %s: negative fixed cost %g", m.Name, m.FixedCost)
	}
	return nil
}

// UnitCost is the approximate cost per unit when the machine runs at full
// capacity (variable cost plus amortized fixed cost). Used to rank machines
// for greedy allocation and shortfall repair. A machine with zero capacity
// ranks last.
func (m Machine) UnitCost() float64 {
	if m.Capacity <= 0 {
		return inf
	}
	return m.VariableCost + m.FixedCost/float64(m.Capacity)
}

// Set is an immutable collection of machines keyed by name.
type Set map[string]Machine

// NewSet builds a Set from machines, rejecting duplicates and invalid entries.
func NewSet(machines ...Machine) (Set, error) {
	s := make(Set, len(machines))
	for _, m := range machines {
		if err := m.Validate(); err != nil {
			return nil, err
		}
		if _, ok := s[m.Name]; ok {
			return nil, fmt.Errorf("duplicate machine %s", m.Name)
		}
		s[m.Name] = m
	}
	return s, nil
}

// TotalCapacity returns the summed capacity of all machines.
func (s Set) TotalCapacity() int {
	total := 0
	for _, m := range s {
		total += m.Capacity
	}
	return total
}

// Names returns machine names in lexical order. Map iteration order is not
// deterministic; every ranking or report in this package goes through here.
func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RankedByUnitCost returns machine names ordered cheapest-first by UnitCost,
// ties broken by name for stable output.
func (s Set) RankedByUnitCost() []string {
	names := s.Names()
	sort.SliceStable(names, func(i, j int) bool {
		return s[names[i]].UnitCost() < s[names[j]].UnitCost()
	})
	return names
}

// RankedByVariableCost returns machine names ordered cheapest-first by the
// per-unit variable cost alone, ties broken by name.
func (s Set) RankedByVariableCost() []string {
	names := s.Names()
	sort.SliceStable(names, func(i, j int) bool {
		return s[names[i]].VariableCost < s[names[j]].VariableCost
	})
	return names
}

// Allocation assigns production units to machines by name. A valid allocation
// sums exactly to the demand and never exceeds a machine's capacity.
type Allocation map[string]int

// Total returns the summed units of the allocation.
func (a Allocation) Total() int {
	total := 0
	for _, units := range a {
		total += units
	}
	return total
}

// Clone returns an independent copy. Allocations are superseded between
// iterations, never mutated in place.
func (a Allocation) Clone() Allocation {
	c := make(Allocation, len(a))
	for name, units := range a {
		c[name] = units
	}
	return c
}

// ActiveMachines returns the names of machines with a positive allocation,
// in lexical order.
func (a Allocation) ActiveMachines() []string {
	names := make([]string, 0, len(a))
	for name, units := range a {
		if units > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

const inf = 1e308
