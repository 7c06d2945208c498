package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed agents.yaml
var defaultAgents []byte

// AgentDef is the declarative part of an agent: its prompts. Output schemas
// and tools are attached in code, so a definition file cannot change what an
// agent is allowed to answer or call.
type AgentDef struct {
	Name         string `yaml:"name"`
	Role         string `yaml:"role"`
	Goal         string `yaml:"goal"`
	Instructions string `yaml:"instructions"`
	Task         string `yaml:"task"`
}

// Validate checks that every prompt field is present.
func (d AgentDef) Validate() error {
	if d.Name == "" || d.Role == "" || d.Goal == "" || d.Instructions == "" || d.Task == "" {
		return fmt.Errorf("agent definition %q: name, role, goal, instructions and task are all required", d.Name)
	}
	return nil
}

// Team bundles the agent definitions of one run.
type Team struct {
	Allocator  AgentDef   `yaml:"allocator"`
	Experts    []AgentDef `yaml:"experts"`
	Strategist AgentDef   `yaml:"strategist"`
	Reporter   AgentDef   `yaml:"reporter"`
}

// DefaultTeam returns the built-in agent definitions.
func DefaultTeam() (Team, error) {
	return parseTeam(defaultAgents)
}

// LoadTeam reads agent definitions from a YAML file, replacing the built-in
// set.
func LoadTeam(path string) (Team, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Team{}, fmt.Errorf("read agent definitions: %w", err)
	}
	return parseTeam(raw)
}

func parseTeam(raw []byte) (Team, error) {
	var team Team
	if err := yaml.Unmarshal(raw, &team); err != nil {
		return Team{}, fmt.Errorf("parse agent definitions: %w", err)
	}
	if err := team.Allocator.Validate(); err != nil {
		return Team{}, err
	}
	if len(team.Experts) == 0 {
		return Team{}, fmt.Errorf("agent definitions: at least one expert is required")
	}
	for _, e := range team.Experts {
		if err := e.Validate(); err != nil {
			return Team{}, err
		}
	}
	if err := team.Strategist.Validate(); err != nil {
		return Team{}, err
	}
	if err := team.Reporter.Validate(); err != nil {
		return Team{}, err
	}
	return team, nil
}
