// Package config loads run configuration and agent definitions from YAML.
// Demand, machine selection and thresholds are data, not code: a run is fully
// described by a config file instead of edits to the source.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Panel modes.
const (
	PanelExperts    = "experts"    // five specialist experts, fan-out
	PanelStrategist = "strategist" // single strategist reviewer
)

// Providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Selection describes which machines from the catalog take part in the run.
// Exactly one of IDs or Random must be set.
type Selection struct {
	IDs    []string `yaml:"ids,omitempty"`    // explicit catalog IDs, e.g. ["2", "6", "13", "25"]
	Random int      `yaml:"random,omitempty"` // pick this many machines at random (must be > 2)
	Seed   int64    `yaml:"seed,omitempty"`   // random seed, 0 means time-based
}

// Provider selects the hosted model backend.
type Provider struct {
	Name  string `yaml:"name"`            // "openai" or "anthropic"
	Model string `yaml:"model,omitempty"` // provider-specific model name, empty for the default
}

// Convergence overrides the default stop policy. Zero values keep defaults.
type Convergence struct {
	MinIterations      int     `yaml:"min_iterations,omitempty"`
	MaxIterations      int     `yaml:"max_iterations,omitempty"`
	CostThreshold      float64 `yaml:"cost_threshold,omitempty"`
	ConsensusThreshold int     `yaml:"consensus_threshold,omitempty"`
}

// Logging configures the run logger.
type Logging struct {
	Level  string `yaml:"level,omitempty"`  // debug, info, warn, error
	Format string `yaml:"format,omitempty"` // text or json
}

// Config is the full description of one optimization run.
type Config struct {
	Demand      int         `yaml:"demand"`
	Catalog     string      `yaml:"catalog"` // path to the machine catalog CSV
	Selection   Selection   `yaml:"selection"`
	Provider    Provider    `yaml:"provider"`
	Panel       string      `yaml:"panel,omitempty"` // "experts" (default) or "strategist"
	ReportsDir  string      `yaml:"reports_dir,omitempty"`
	AgentsFile  string      `yaml:"agents_file,omitempty"` // overrides the embedded agent definitions
	Convergence Convergence `yaml:"convergence,omitempty"`
	Logging     Logging     `yaml:"logging,omitempty"`
}

// Default returns a config with every optional field at its default.
func Default() *Config {
	return &Config{
		Demand:     3000,
		Catalog:    "machines.csv",
		Selection:  Selection{IDs: []string{"2", "6", "13", "25"}},
		Provider:   Provider{Name: ProviderOpenAI},
		Panel:      PanelExperts,
		ReportsDir: "reports",
		Logging:    Logging{Level: "info", Format: "text"},
	}
}

// Load reads and validates a YAML config file. Omitted optional fields take
// their defaults.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(raw)
}

// Parse decodes YAML bytes into a validated Config.
func Parse(raw []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints that YAML decoding cannot express.
func (c *Config) Validate() error {
	if c.Demand <= 0 {
		return fmt.Errorf("config: demand must be positive, got %d", c.Demand)
	}
	if c.Catalog == "" {
		return fmt.Errorf("config: catalog path is required")
	}
	if len(c.Selection.IDs) > 0 && c.Selection.Random > 0 {
		return fmt.Errorf("config: selection ids and random are mutually exclusive")
	}
	if len(c.Selection.IDs) == 0 && c.Selection.Random == 0 {
		return fmt.Errorf("config: selection needs either ids or random")
	}
	if c.Selection.Random != 0 && c.Selection.Random <= 2 {
		return fmt.Errorf("config: random selection needs more than 2 machines, got %d", c.Selection.Random)
	}
	switch c.Provider.Name {
	case ProviderOpenAI, ProviderAnthropic:
	default:
		return fmt.Errorf("config: unknown provider %q", c.Provider.Name)
	}
	switch c.Panel {
	case PanelExperts, PanelStrategist:
	default:
		return fmt.Errorf("config: unknown panel mode %q", c.Panel)
	}
	if t := c.Convergence.CostThreshold; t < 0 || t >= 1 {
		return fmt.Errorf("config: cost threshold must be in [0, 1), got %v", t)
	}
	if c.Convergence.MinIterations < 0 || c.Convergence.MaxIterations < 0 {
		return fmt.Errorf("config: iteration bounds must not be negative")
	}
	if min, max := c.Convergence.MinIterations, c.Convergence.MaxIterations; min > 0 && max > 0 && min > max {
		return fmt.Errorf("config: min_iterations %d exceeds max_iterations %d", min, max)
	}
	return nil
}
