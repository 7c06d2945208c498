// Package allocmesh provides a high-level façade over the allocation
// optimizer. Most applications interact with this package by:
//  1. Creating an AllocMesh via New() from a run config (optionally
//     overriding the model, team or logger)
//  2. Calling Optimize to run the full loop: feasibility check, iterative
//     allocation with expert review, convergence, report files on disk
//
// The façade delegates the loop to orchestrator.Orchestrator while keeping
// setup concise. Defaults are safe for local use; tests typically supply a
// model.MockModel and a NoOp logger.
package allocmesh

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/allocmesh/agent"
	"github.com/hupe1980/allocmesh/config"
	"github.com/hupe1980/allocmesh/logging"
	"github.com/hupe1980/allocmesh/model"
	"github.com/hupe1980/allocmesh/model/anthropic"
	"github.com/hupe1980/allocmesh/model/openai"
	"github.com/hupe1980/allocmesh/orchestrator"
	"github.com/hupe1980/allocmesh/plant"
	"github.com/hupe1980/allocmesh/report"
)

// Options configures the AllocMesh instance.
type Options struct {
	// Model overrides the provider chosen in the config. Tests use this to
	// inject a model.MockModel.
	Model model.Model

	// Team overrides the agent definitions (defaults to the embedded set, or
	// the config's agents_file when given).
	Team *config.Team

	// Machines overrides catalog loading with an explicit machine set.
	Machines plant.Set

	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger

	// Convergence overrides the stop policy derived from the config.
	Convergence *orchestrator.ConvergenceManager
}

// Outcome bundles everything a run produces.
type Outcome struct {
	Result  *orchestrator.RunResult
	Reports report.Files
}

// AllocMesh is the high-level façade aggregating problem, model and agents.
type AllocMesh struct {
	cfg      *config.Config
	machines plant.Set
	llm      model.Model
	team     config.Team
	logger   logging.Logger
	policy   orchestrator.ConvergenceManager
}

// New wires an AllocMesh from a validated run config. It loads the machine
// catalog, applies the selection, resolves the model backend and the agent
// definitions. The returned instance is ready for Optimize.
func New(cfg *config.Config, optFns ...func(o *Options)) (*AllocMesh, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	machines := opts.Machines
	if machines == nil {
		var err error
		machines, err = selectMachines(cfg)
		if err != nil {
			return nil, err
		}
	}

	llm := opts.Model
	if llm == nil {
		var err error
		llm, err = buildModel(cfg.Provider)
		if err != nil {
			return nil, err
		}
	}

	team, err := resolveTeam(cfg, opts.Team)
	if err != nil {
		return nil, err
	}

	policy := convergencePolicy(cfg)
	if opts.Convergence != nil {
		policy = *opts.Convergence
	}

	return &AllocMesh{
		cfg:      cfg,
		machines: machines,
		llm:      llm,
		team:     team,
		logger:   opts.Logger,
		policy:   policy,
	}, nil
}

// Machines returns the machine set selected for this run.
func (m *AllocMesh) Machines() plant.Set { return m.machines }

// Optimize runs the full loop and writes the report files. The optimization
// result is returned even when the detailed report could not be produced.
func (m *AllocMesh) Optimize(ctx context.Context) (*Outcome, error) {
	o := orchestrator.New(m.machines, m.cfg.Demand, m.llm, m.orchestratorTeam(), func(opt *orchestrator.Options) {
		opt.Logger = m.logger
		opt.Convergence = m.policy
	})

	result, err := o.Run(ctx)
	if err != nil {
		return nil, err
	}

	reporter := agent.New(agentConfig(m.team.Reporter), m.llm, func(opt *agent.Options) {
		opt.Logger = m.logger
	})
	gen := report.New(m.cfg.ReportsDir, reporter, func(opt *report.Options) {
		opt.Logger = m.logger
	})
	files, err := gen.Generate(ctx, result)
	if err != nil {
		return nil, fmt.Errorf("write reports: %w", err)
	}
	return &Outcome{Result: result, Reports: files}, nil
}

// orchestratorTeam maps the declarative agent definitions to the
// orchestrator's team, honoring the configured panel mode.
func (m *AllocMesh) orchestratorTeam() orchestrator.Team {
	team := orchestrator.Team{Allocator: agentConfig(m.team.Allocator)}
	if m.cfg.Panel == config.PanelStrategist {
		team.Experts = []agent.Config{agentConfig(m.team.Strategist)}
		return team
	}
	for _, def := range m.team.Experts {
		team.Experts = append(team.Experts, agentConfig(def))
	}
	return team
}

func agentConfig(def config.AgentDef) agent.Config {
	return agent.Config{
		Name:         def.Name,
		Role:         def.Role,
		Goal:         def.Goal,
		Instructions: def.Instructions,
		Task:         def.Task,
	}
}

func selectMachines(cfg *config.Config) (plant.Set, error) {
	catalog, err := plant.LoadCatalog(cfg.Catalog)
	if err != nil {
		return nil, err
	}
	if len(cfg.Selection.IDs) > 0 {
		return catalog.SelectByID(cfg.Selection.IDs...)
	}
	seed := cfg.Selection.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return catalog.SelectRandom(cfg.Selection.Random, rand.New(rand.NewSource(seed)))
}

func buildModel(p config.Provider) (model.Model, error) {
	switch p.Name {
	case config.ProviderOpenAI:
		return openai.NewModel(func(o *openai.Options) {
			if p.Model != "" {
				o.Model = p.Model
			}
		}), nil
	case config.ProviderAnthropic:
		return anthropic.NewModel(func(o *anthropic.Options) {
			if p.Model != "" {
				o.Model = anthropicsdk.Model(p.Model)
			}
		}), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", p.Name)
	}
}

func resolveTeam(cfg *config.Config, override *config.Team) (config.Team, error) {
	if override != nil {
		return *override, nil
	}
	if cfg.AgentsFile != "" {
		return config.LoadTeam(cfg.AgentsFile)
	}
	return config.DefaultTeam()
}

// convergencePolicy maps config overrides onto the default stop policy.
func convergencePolicy(cfg *config.Config) orchestrator.ConvergenceManager {
	policy := orchestrator.DefaultConvergence()
	if cfg.Panel == config.PanelStrategist {
		policy.ConsensusThreshold = 1
	}
	if v := cfg.Convergence.MinIterations; v > 0 {
		policy.MinIterations = v
	}
	if v := cfg.Convergence.MaxIterations; v > 0 {
		policy.MaxIterations = v
	}
	if v := cfg.Convergence.CostThreshold; v > 0 {
		policy.CostThreshold = v
	}
	if v := cfg.Convergence.ConsensusThreshold; v > 0 {
		policy.ConsensusThreshold = v
	}
	return policy
}
