package config

import (
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig                 `yaml:"app"`
	Providers  map[string]ProviderConfig `yaml:"providers"`
	Agent      AgentConfig               `yaml:"agent"`
	Memory     MemoryConfig              `yaml:"memory"`
	Governance GovernanceConfig          `yaml:"governance"`
}

type AppConfig struct {
	Name       string `yaml:"name"`
	PromptsDir string `yaml:"prompts_dir"`
}

type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url,omitempty"`
	Enabled bool   `yaml:"enabled"`
}

type AgentConfig struct {
	MaxCycles         int `yaml:"max_cycles"`
	MaxLoopIterations int `yaml:"max_loop_iterations"`
	SnapshotLimit     int `yaml:"snapshot_limit"`
}

type MemoryConfig struct {
	Path string `yaml:"path"`
}

type GovernanceConfig struct {
	DenyPrompts []string `yaml:"deny_prompts"`
}

func LoadConfig(path string) *Config {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("failed to open config file: %v", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		log.Fatalf("failed to decode config file: %v", err)
	}
	cfg.applyDefaults()

	return &cfg
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "yojana"
	}
	if c.Agent.MaxCycles <= 0 {
		c.Agent.MaxCycles = 4
	}
	if c.Agent.MaxLoopIterations <= 0 {
		c.Agent.MaxLoopIterations = 3
	}
	if c.Agent.SnapshotLimit <= 0 {
		c.Agent.SnapshotLimit = 1500
	}
	if c.Memory.Path == "" {
		c.Memory.Path = "yojana.db"
	}
}

// GetDefaultProvider returns the first enabled provider
func (c *Config) GetDefaultProvider() (string, ProviderConfig) {
	for name, p := range c.Providers {
		if p.Enabled {
			return name, p
		}
	}
	return "", ProviderConfig{}
}
