package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pocketomega/fsmagent/internal/engine"
)

// LoadAgentConfig reads a YAML file into an engine.AgentConfig, starting
// from DefaultAgentConfig so an omitted field keeps its default rather than
// zeroing out.
func LoadAgentConfig(path string) (engine.AgentConfig, error) {
	cfg := engine.DefaultAgentConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}
