package config

import (
	"fmt"
	"strings"
)

// Validate checks the config for required fields and out-of-range values.
func Validate(cfg *ServerConfig) error {
	if cfg.Version == "" {
		return fmt.Errorf("config: version is required")
	}
	var errs []string

	e := cfg.Engine
	if e.SchedulerWorkers < 1 {
		errs = append(errs, fmt.Sprintf("engine.scheduler_workers must be >= 1, got %d", e.SchedulerWorkers))
	}
	if e.QueueDepth < 1 {
		errs = append(errs, fmt.Sprintf("engine.queue_depth must be >= 1, got %d", e.QueueDepth))
	}
	if e.MaxParallelNodes < 1 {
		errs = append(errs, fmt.Sprintf("engine.max_parallel_nodes must be >= 1, got %d", e.MaxParallelNodes))
	}
	if e.NodeTimeoutMs < 0 {
		errs = append(errs, fmt.Sprintf("engine.node_timeout_ms must be >= 0, got %d", e.NodeTimeoutMs))
	}
	if e.RetainFinishedMs < 0 {
		errs = append(errs, fmt.Sprintf("engine.retain_finished_ms must be >= 0, got %d", e.RetainFinishedMs))
	}
	if e.WaitTimeoutMs < 1 {
		errs = append(errs, fmt.Sprintf("engine.wait_timeout_ms must be >= 1, got %d", e.WaitTimeoutMs))
	}

	if cfg.Recipes.Dir == "" {
		errs = append(errs, "recipes.dir is required")
	}

	switch cfg.Store.Driver {
	case "memory":
	case "sqlite":
		if cfg.Store.SQLitePath == "" {
			errs = append(errs, "store.sqlite_path is required for driver sqlite")
		}
	case "redis":
		if cfg.Store.RedisAddr == "" {
			errs = append(errs, "store.redis_addr is required for driver redis")
		}
	default:
		errs = append(errs, fmt.Sprintf("store.driver must be memory, sqlite or redis, got %q", cfg.Store.Driver))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
