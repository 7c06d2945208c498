// Package plant contains the deterministic manufacturing domain model:
// machines, allocations, the cost formula, feasibility classification and the
// local allocation heuristics used as fallbacks and benchmarks.
//
// Everything in this package is a pure function of its inputs. Agents propose
// allocations; this package is the authority on whether they are valid and
// what they cost.
package plant
