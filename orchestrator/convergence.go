package orchestrator

// Stop reasons emitted by the convergence check. They appear verbatim in logs
// and reports.
const (
	ReasonMinimumIterations    = "minimum_iterations"
	ReasonMaxIterations        = "max_iterations_reached"
	ReasonCostBelowThreshold   = "cost_improvement_below_threshold"
	ReasonExpertConsensus      = "expert_consensus_achieved"
	ReasonContinueOptimization = "continue_optimization"
)

// Decision is the outcome of one convergence check.
type Decision struct {
	Stop   bool
	Reason string
}

// ConvergenceManager decides when the iteration loop has done enough work.
// All checks are pure functions of the inputs; the manager holds only the
// configured thresholds.
type ConvergenceManager struct {
	MinIterations      int
	MaxIterations      int
	CostThreshold      float64 // relative improvement below which the loop stops
	ConsensusThreshold int     // expert approvals required to stop early
}

// DefaultConvergence returns the standard convergence policy: at least 2
// iterations, at most 5, stop when cost improves by less than 2% or at least
// 3 experts approve.
func DefaultConvergence() ConvergenceManager {
	return ConvergenceManager{
		MinIterations:      2,
		MaxIterations:      5,
		CostThreshold:      0.02,
		ConsensusThreshold: 3,
	}
}

// Check evaluates the stop conditions after the given 1-based iteration.
// history holds every completed iteration including the current one;
// approvals is the number of experts that rated the current allocation good
// or optimal.
//
// Order of precedence: minimum iterations, maximum iterations, relative cost
// improvement, expert consensus.
func (c ConvergenceManager) Check(iteration int, history []Iteration, approvals int) Decision {
	if iteration < c.MinIterations {
		return Decision{Stop: false, Reason: ReasonMinimumIterations}
	}
	if iteration >= c.MaxIterations {
		return Decision{Stop: true, Reason: ReasonMaxIterations}
	}
	if n := len(history); n >= 2 {
		prev := history[n-2].Cost.Total
		curr := history[n-1].Cost.Total
		if prev > 0 && (prev-curr)/prev < c.CostThreshold {
			return Decision{Stop: true, Reason: ReasonCostBelowThreshold}
		}
	}
	if approvals >= c.ConsensusThreshold {
		return Decision{Stop: true, Reason: ReasonExpertConsensus}
	}
	return Decision{Stop: false, Reason: ReasonContinueOptimization}
}
