// Package orchestrator drives the optimization run: propose an allocation,
// cost it, put it in front of the expert panel, and repeat until the
// convergence policy says stop. Model output is advisory; every number that
// survives into the run history comes from the plant package's own evaluator.
package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/allocmesh/agent"
	"github.com/hupe1980/allocmesh/internal/schema"
	"github.com/hupe1980/allocmesh/logging"
	"github.com/hupe1980/allocmesh/model"
	"github.com/hupe1980/allocmesh/plant"
	"github.com/hupe1980/allocmesh/tool"
)

// ReasonForcedAllocation marks runs where capacity equals demand exactly, so
// the only valid allocation is every machine at full capacity and no
// iteration happens.
const ReasonForcedAllocation = "forced_allocation"

// Iteration is one completed pass of the optimization loop. Records are
// append-only; the history is never rewritten.
type Iteration struct {
	Number        int                `json:"iteration"`
	Allocation    plant.Allocation   `json:"allocation"`
	Cost          plant.Breakdown    `json:"cost"`
	Reasoning     string             `json:"reasoning"`
	Feedback      []ExpertFeedback   `json:"feedback,omitempty"`
	Approvals     int                `json:"approvals"`
	ModelVerified bool               `json:"model_verified"`
	Adjustments   []plant.Adjustment `json:"adjustments,omitempty"`
	Timestamp     time.Time          `json:"timestamp"`
}

// RunResult is the complete outcome of one optimization run.
type RunResult struct {
	RunID              string                 `json:"run_id"`
	Demand             int                    `json:"demand"`
	Machines           plant.Set              `json:"machines"`
	Feasibility        plant.FeasibilityCheck `json:"-"`
	Iterations         []Iteration            `json:"iterations"`
	BestIndex          int                    `json:"best_iteration"`
	ConvergenceReason  string                 `json:"convergence_reason"`
	ImprovementPercent float64                `json:"improvement_percent"`
	Benchmark          plant.Breakdown        `json:"greedy_benchmark"`
}

// Best returns the lowest-cost iteration of the run.
func (r *RunResult) Best() Iteration { return r.Iterations[r.BestIndex] }

// Final returns the last iteration of the run.
func (r *RunResult) Final() Iteration { return r.Iterations[len(r.Iterations)-1] }

// proposalReply is the schema the allocator must answer with.
type proposalReply struct {
	Allocation map[string]int `json:"allocation" description:"Units assigned to each machine, keyed by machine name"`
	Reasoning  string         `json:"reasoning" description:"Why this allocation was chosen"`
}

// Team holds the agent definitions for a run. Output schemas and domain tools
// are attached by the orchestrator; definitions only carry prompts.
type Team struct {
	Allocator agent.Config
	Experts   []agent.Config
}

// Options configure an Orchestrator.
type Options struct {
	RunID       string
	Convergence ConvergenceManager
	Logger      logging.Logger
	Now         func() time.Time
}

// Orchestrator owns one optimization problem: a fixed machine set and demand,
// an allocator agent, and an expert panel. Safe to run once; build a new one
// per run.
type Orchestrator struct {
	machines    plant.Set
	demand      int
	allocator   *agent.Agent
	panel       *Panel
	convergence ConvergenceManager
	logger      *logging.RunLogger
	now         func() time.Time
}

// New wires a run from its problem, model and team. The allocator gets the
// cost calculator and the allocation oracle as tools; experts get the cost
// calculator so they can verify figures independently.
func New(machines plant.Set, demand int, llm model.Model, team Team, optFns ...func(o *Options)) *Orchestrator {
	opts := Options{
		RunID:       uuid.NewString(),
		Convergence: DefaultConvergence(),
		Logger:      logging.NoOpLogger{},
		Now:         time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	runLogger := logging.ForRun(opts.Logger, opts.RunID)

	calculator := tool.NewCostCalculator(machines, demand)
	oracle := tool.NewAllocationOracle(machines, demand)

	allocatorCfg := team.Allocator
	allocatorCfg.OutputSchema = schema.FromStruct(proposalReply{})
	allocatorCfg.Tools = []tool.Tool{calculator, oracle}

	experts := make([]*agent.Agent, 0, len(team.Experts))
	for _, cfg := range team.Experts {
		cfg.OutputSchema = schema.FromStruct(expertReply{})
		cfg.Tools = []tool.Tool{calculator}
		experts = append(experts, agent.New(cfg, llm, func(o *agent.Options) { o.Logger = runLogger }))
	}

	return &Orchestrator{
		machines:    machines,
		demand:      demand,
		allocator:   agent.New(allocatorCfg, llm, func(o *agent.Options) { o.Logger = runLogger }),
		panel:       NewPanel(experts, runLogger),
		convergence: opts.Convergence,
		logger:      runLogger,
		now:         opts.Now,
	}
}

// RunID returns the identifier attached to every log entry of this run.
func (o *Orchestrator) RunID() string { return o.logger.RunID() }

// Run executes the optimization loop. Infeasible demand is the only fatal
// outcome: it returns plant.ErrInfeasible before any model call. Model and
// expert failures degrade to deterministic fallbacks and the run completes.
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	check := plant.ClassifyFeasibility(o.machines, o.demand)
	result := &RunResult{
		RunID:       o.logger.RunID(),
		Demand:      o.demand,
		Machines:    o.machines,
		Feasibility: check,
	}

	switch check.Class {
	case plant.Infeasible:
		o.logger.Error("demand exceeds total capacity",
			"run_id", result.RunID, "demand", o.demand, "total_capacity", check.TotalCapacity)
		return nil, fmt.Errorf("demand %d exceeds total capacity %d: %w",
			o.demand, check.TotalCapacity, plant.ErrInfeasible)
	case plant.Trivial:
		o.logger.Info("capacity equals demand, allocation is forced",
			"run_id", result.RunID, "total_cost", check.ForcedCost.Total)
		result.Iterations = []Iteration{{
			Number:     1,
			Allocation: check.ForcedAllocation,
			Cost:       check.ForcedCost,
			Reasoning:  "total capacity equals demand; every machine runs at full capacity",
			Timestamp:  o.now(),
		}}
		result.ConvergenceReason = ReasonForcedAllocation
		result.Benchmark = check.ForcedCost
		return result, nil
	}

	// The greedy benchmark is a heuristic yardstick, not a proof of
	// optimality. Feasibility was established above, so it cannot fail.
	benchAlloc, err := plant.Greedy(o.machines, o.demand)
	if err != nil {
		return nil, err
	}
	result.Benchmark, err = plant.Evaluate(o.machines, o.demand, benchAlloc)
	if err != nil {
		return nil, err
	}

	var history []Iteration
	for it := 1; ; it++ {
		rec := o.iterate(ctx, it, history)
		history = append(history, rec)
		o.logger.LogIteration(it, rec.Cost.Total, rec.Approvals)

		decision := o.convergence.Check(it, history, rec.Approvals)
		if decision.Stop {
			result.ConvergenceReason = decision.Reason
			break
		}
	}

	result.Iterations = history
	for i, rec := range history {
		if rec.Cost.Total < history[result.BestIndex].Cost.Total {
			result.BestIndex = i
		}
	}
	if first := history[0].Cost.Total; first > 0 {
		result.ImprovementPercent = (first - result.Best().Cost.Total) / first * 100
	}
	o.logger.Info("run completed", "run_id", result.RunID,
		"iterations", len(history), "reason", result.ConvergenceReason,
		"best_cost", result.Best().Cost.Total,
		"improvement_percent", result.ImprovementPercent)
	return result, nil
}

// iterate produces one iteration record: a proposal (model-driven or greedy
// fallback), its locally computed cost, and the panel's verdict.
func (o *Orchestrator) iterate(ctx context.Context, it int, history []Iteration) Iteration {
	alloc, reasoning, verified, adjustments := o.propose(ctx, it, history)

	cost, err := plant.Evaluate(o.machines, o.demand, alloc)
	if err != nil {
		// Repair guarantees validity for feasible problems, so this only
		// fires on a broken fallback path. Recover with greedy.
		o.logger.Error("proposed allocation failed evaluation", "iteration", it, "error", err.Error())
		alloc, _ = plant.Greedy(o.machines, o.demand)
		cost, _ = plant.Evaluate(o.machines, o.demand, alloc)
		reasoning = "deterministic greedy fallback after an invalid proposal"
		verified = false
	}

	feedback, approvals := o.panel.Evaluate(ctx, o.reviewContext(it, alloc, cost))
	return Iteration{
		Number:        it,
		Allocation:    alloc,
		Cost:          cost,
		Reasoning:     reasoning,
		Feedback:      feedback,
		Approvals:     approvals,
		ModelVerified: verified,
		Adjustments:   adjustments,
		Timestamp:     o.now(),
	}
}

// propose asks the allocator for an allocation and repairs it into validity.
// Any model failure, schema violation or undecodable reply degrades to the
// greedy allocation; the iteration is then marked as not model-verified.
func (o *Orchestrator) propose(ctx context.Context, it int, history []Iteration) (plant.Allocation, string, bool, []plant.Adjustment) {
	res, err := o.allocator.Execute(ctx, o.proposalContext(it, history))
	if err != nil {
		o.logger.Warn("allocator failed, using greedy fallback", "iteration", it, "error", err.Error())
		return o.greedyFallback()
	}

	var reply proposalReply
	if err := res.Decode(&reply); err != nil || len(reply.Allocation) == 0 {
		o.logger.Warn("allocator reply undecodable, using greedy fallback", "iteration", it)
		return o.greedyFallback()
	}

	if !res.UsedTool(tool.CostCalculatorName) {
		o.logger.Info("proposal arrived without a calculator call, cost recomputed locally", "iteration", it)
	}

	repaired, adjustments, err := plant.Repair(o.machines, o.demand, plant.Allocation(reply.Allocation))
	if err != nil {
		o.logger.Warn("proposal unrepairable, using greedy fallback", "iteration", it, "error", err.Error())
		return o.greedyFallback()
	}
	for _, adj := range adjustments {
		o.logger.Warn("allocation adjusted", "iteration", it, "adjustment", adj.String())
	}
	return repaired, reply.Reasoning, true, adjustments
}

func (o *Orchestrator) greedyFallback() (plant.Allocation, string, bool, []plant.Adjustment) {
	alloc, _ := plant.Greedy(o.machines, o.demand)
	return alloc, "deterministic greedy fallback after model failure", false, nil
}

// proposalContext builds the template data for the allocator. The previous
// iteration's cost and expert feedback are folded in so the model can improve
// on them.
func (o *Orchestrator) proposalContext(it int, history []Iteration) map[string]any {
	return map[string]any{
		"demand":    o.demand,
		"machines":  formatMachines(o.machines),
		"iteration": it,
		"previous":  formatPrevious(history),
	}
}

// reviewContext builds the template data for panel experts.
func (o *Orchestrator) reviewContext(it int, alloc plant.Allocation, cost plant.Breakdown) map[string]any {
	return map[string]any{
		"demand":        o.demand,
		"machines":      formatMachines(o.machines),
		"iteration":     it,
		"allocation":    formatAllocation(alloc),
		"total_cost":    fmt.Sprintf("%.2f", cost.Total),
		"variable_cost": fmt.Sprintf("%.2f", cost.Variable),
		"fixed_cost":    fmt.Sprintf("%.2f", cost.Fixed),
	}
}

func formatMachines(machines plant.Set) string {
	var b strings.Builder
	for _, name := range machines.Names() {
		m := machines[name]
		fmt.Fprintf(&b, "- %s: capacity %d units, variable cost $%.2f/unit, fixed cost $%.2f\n",
			name, m.Capacity, m.VariableCost, m.FixedCost)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatAllocation(alloc plant.Allocation) string {
	names := make([]string, 0, len(alloc))
	for name := range alloc {
		if alloc[name] > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%d", name, alloc[name]))
	}
	return strings.Join(parts, ", ")
}

func formatPrevious(history []Iteration) string {
	if len(history) == 0 {
		return "none (first iteration)"
	}
	last := history[len(history)-1]
	var b strings.Builder
	fmt.Fprintf(&b, "iteration %d allocated %s at total cost $%.2f",
		last.Number, formatAllocation(last.Allocation), last.Cost.Total)
	for _, f := range last.Feedback {
		if f.Degraded {
			continue
		}
		fmt.Fprintf(&b, "\n%s rated it %q", f.Expert, f.Rating)
		if len(f.Recommendations) > 0 {
			fmt.Fprintf(&b, "; recommends: %s", strings.Join(f.Recommendations, "; "))
		}
	}
	return b.String()
}
