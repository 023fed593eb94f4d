package process

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// AgentConfig describes an allow-listed command that acts as a step source.
type AgentConfig struct {
	Name        string            `yaml:"name" json:"name"`
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"`
	Environment map[string]string `yaml:"env" json:"env"`
	Description string            `yaml:"description" json:"description"`
}

// ConfigFile represents the structure of agents.yaml.
type ConfigFile struct {
	Agents []AgentConfig `yaml:"agents" json:"agents"`
}

// LoadAgents reads a configuration file (YAML or JSON) and returns the agents by name.
// A missing file means no agents are configured.
func LoadAgents(path string) (map[string]AgentConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]AgentConfig{}, nil
		}
		return nil, fmt.Errorf("failed to read agents config: %w", err)
	}

	var cfg ConfigFile
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	agents := make(map[string]AgentConfig, len(cfg.Agents))
	for _, a := range cfg.Agents {
		if a.Name == "" || a.Command == "" {
			continue
		}
		agents[a.Name] = a
	}
	return agents, nil
}
