package config

// ServerConfig is the top-level YAML structure.
type ServerConfig struct {
	Version string     `yaml:"version"`
	Engine  EngineConf `yaml:"engine"`
	Recipes RecipeConf `yaml:"recipes"`
	Store   StoreConf  `yaml:"store"`
}

// EngineConf holds tunable concurrency settings.
type EngineConf struct {
	SchedulerWorkers int `yaml:"scheduler_workers"`
	QueueDepth       int `yaml:"queue_depth"`
	MaxParallelNodes int `yaml:"max_parallel_nodes"`
	NodeTimeoutMs    int `yaml:"node_timeout_ms"`    // 0 = no deadline
	RetainFinishedMs int `yaml:"retain_finished_ms"` // how long finished jobs stay live
	WaitTimeoutMs    int `yaml:"wait_timeout_ms"`
}

// RecipeConf locates the recipe directory.
type RecipeConf struct {
	Dir   string `yaml:"dir"`
	Watch *bool  `yaml:"watch"`
}

// WatchEnabled reports whether recipe hot-reload is on (default true).
func (r RecipeConf) WatchEnabled() bool {
	return r.Watch == nil || *r.Watch
}

// StoreConf selects the job history backend.
type StoreConf struct {
	Driver      string `yaml:"driver"` // memory | sqlite | redis
	SQLitePath  string `yaml:"sqlite_path"`
	RedisAddr   string `yaml:"redis_addr"`
	RedisPrefix string `yaml:"redis_prefix"`
}
