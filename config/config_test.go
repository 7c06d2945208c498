package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_FillsDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
demand: 3000
catalog: data/machines.csv
selection:
  ids: ["2", "6", "13", "25"]
provider:
  name: openai
`))
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Demand)
	assert.Equal(t, "data/machines.csv", cfg.Catalog)
	assert.Equal(t, []string{"2", "6", "13", "25"}, cfg.Selection.IDs)
	assert.Equal(t, PanelExperts, cfg.Panel)
	assert.Equal(t, "reports", cfg.ReportsDir)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestParse_FullConfig(t *testing.T) {
	cfg, err := Parse([]byte(`
demand: 5000
catalog: machines.csv
selection:
  random: 6
  seed: 42
provider:
  name: anthropic
  model: claude-sonnet-4-20250514
panel: strategist
reports_dir: out/reports
convergence:
  min_iterations: 3
  max_iterations: 8
  cost_threshold: 0.05
  consensus_threshold: 1
logging:
  level: debug
  format: json
`))
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Demand)
	assert.Equal(t, 6, cfg.Selection.Random)
	assert.Equal(t, int64(42), cfg.Selection.Seed)
	assert.Equal(t, ProviderAnthropic, cfg.Provider.Name)
	assert.Equal(t, PanelStrategist, cfg.Panel)
	assert.Equal(t, 8, cfg.Convergence.MaxIterations)
	assert.InDelta(t, 0.05, cfg.Convergence.CostThreshold, 1e-9)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"zero demand", "demand: 0\ncatalog: m.csv\nselection: {ids: [\"1\"]}\nprovider: {name: openai}"},
		{"negative demand", "demand: -10\ncatalog: m.csv\nselection: {ids: [\"1\"]}\nprovider: {name: openai}"},
		{"no selection", "demand: 100\ncatalog: m.csv\nselection: {}\nprovider: {name: openai}"},
		{"both selections", "demand: 100\ncatalog: m.csv\nselection: {ids: [\"1\"], random: 4}\nprovider: {name: openai}"},
		{"random too small", "demand: 100\ncatalog: m.csv\nselection: {random: 2}\nprovider: {name: openai}"},
		{"unknown provider", "demand: 100\ncatalog: m.csv\nselection: {ids: [\"1\"]}\nprovider: {name: cohere}"},
		{"unknown panel", "demand: 100\ncatalog: m.csv\nselection: {ids: [\"1\"]}\nprovider: {name: openai}\npanel: jury"},
		{"threshold out of range", "demand: 100\ncatalog: m.csv\nselection: {ids: [\"1\"]}\nprovider: {name: openai}\nconvergence: {cost_threshold: 1.5}"},
		{"min above max", "demand: 100\ncatalog: m.csv\nselection: {ids: [\"1\"]}\nprovider: {name: openai}\nconvergence: {min_iterations: 6, max_iterations: 3}"},
		{"malformed yaml", "demand: [unclosed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"demand: 3000\ncatalog: m.csv\nselection: {ids: [\"2\"]}\nprovider: {name: openai}\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Demand)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDefaultTeam(t *testing.T) {
	team, err := DefaultTeam()
	require.NoError(t, err)

	assert.Equal(t, "allocator", team.Allocator.Name)
	require.Len(t, team.Experts, 5)
	names := make([]string, 0, 5)
	for _, e := range team.Experts {
		names = append(names, e.Name)
		assert.NoError(t, e.Validate())
	}
	assert.Equal(t, []string{
		"cost_expert", "efficiency_expert", "variable_cost_expert", "fixed_cost_expert", "batch_expert",
	}, names)
	assert.Equal(t, "strategist", team.Strategist.Name)
	assert.Equal(t, "reporter", team.Reporter.Name)
	assert.Contains(t, team.Allocator.Instructions, "manufacturing_cost_calculator")
	assert.Contains(t, team.Strategist.Instructions, "Knowledge base")
}

func TestLoadTeam_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agents.yaml")
	require.NoError(t, os.WriteFile(path, []byte("allocator: {name: a}\n"), 0o644))

	_, err := LoadTeam(path)
	assert.Error(t, err)
}
