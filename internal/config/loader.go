package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML server config and applies defaults.
func Load(path string) (*ServerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a YAML server config and applies defaults.
func Parse(data []byte) (*ServerConfig, error) {
	var cfg ServerConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(&cfg)
	return &cfg, nil
}

// Default returns a config with every default applied.
func Default() *ServerConfig {
	cfg := &ServerConfig{Version: "v1"}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero values.
func ApplyDefaults(cfg *ServerConfig) {
	if cfg.Engine.SchedulerWorkers == 0 {
		cfg.Engine.SchedulerWorkers = 4
	}
	if cfg.Engine.QueueDepth == 0 {
		cfg.Engine.QueueDepth = 1024
	}
	if cfg.Engine.MaxParallelNodes == 0 {
		cfg.Engine.MaxParallelNodes = 64
	}
	if cfg.Engine.WaitTimeoutMs == 0 {
		cfg.Engine.WaitTimeoutMs = 30000
	}
	if cfg.Recipes.Dir == "" {
		cfg.Recipes.Dir = "recipes"
	}
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = "memory"
	}
	if cfg.Store.SQLitePath == "" {
		cfg.Store.SQLitePath = "jobs.db"
	}
	if cfg.Store.RedisPrefix == "" {
		cfg.Store.RedisPrefix = "reciperunner:"
	}
}
