package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/reciperunner/internal/config"
)

func TestLoad_AppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: v1\nengine:\n  scheduler_workers: 2\nrecipes:\n  watch: false\n"), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.NoError(t, config.Validate(cfg))

	require.Equal(t, 2, cfg.Engine.SchedulerWorkers)
	require.Equal(t, 1024, cfg.Engine.QueueDepth)
	require.Equal(t, 64, cfg.Engine.MaxParallelNodes)
	require.Equal(t, 30000, cfg.Engine.WaitTimeoutMs)
	require.Equal(t, "recipes", cfg.Recipes.Dir)
	require.False(t, cfg.Recipes.WatchEnabled())
	require.Equal(t, "memory", cfg.Store.Driver)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.ServerConfig)
		want   string
	}{
		{name: "defaults ok", mutate: func(*config.ServerConfig) {}},
		{name: "no version", mutate: func(c *config.ServerConfig) { c.Version = "" }, want: "version is required"},
		{name: "bad workers", mutate: func(c *config.ServerConfig) { c.Engine.SchedulerWorkers = -1 }, want: "scheduler_workers"},
		{name: "bad timeout", mutate: func(c *config.ServerConfig) { c.Engine.NodeTimeoutMs = -5 }, want: "node_timeout_ms"},
		{name: "bad driver", mutate: func(c *config.ServerConfig) { c.Store.Driver = "etcd" }, want: "store.driver"},
		{name: "redis without addr", mutate: func(c *config.ServerConfig) { c.Store.Driver = "redis" }, want: "redis_addr"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			require.True(t, cfg.Recipes.WatchEnabled())
			tc.mutate(cfg)
			err := config.Validate(cfg)
			if tc.want == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tc.want)
		})
	}
}
