package config

import "time"

// ApplyDefaults fills zero-valued fields with working defaults. It is
// idempotent and never overwrites explicit settings.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 120 * time.Second
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 120 * time.Second
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = 1 << 20
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15 * time.Second
	}
	if cfg.Server.MaxInputBytes == 0 {
		cfg.Server.MaxInputBytes = 64 << 10
	}

	if cfg.Policy.Mode == "" {
		cfg.Policy.Mode = "builtin"
	}
	if cfg.Policy.Git.Branch == "" {
		cfg.Policy.Git.Branch = "main"
	}
	if cfg.Policy.Git.PollInterval == 0 {
		cfg.Policy.Git.PollInterval = 5 * time.Minute
	}
	if cfg.Policy.Git.CloneTimeout == 0 {
		cfg.Policy.Git.CloneTimeout = 60 * time.Second
	}

	if cfg.Analysis.DefaultLevel == "" {
		cfg.Analysis.DefaultLevel = "standard"
	}
	if cfg.Analysis.Workers == 0 {
		cfg.Analysis.Workers = 1
	}

	cfg.Generation.Provider.ApplyDefaults()

	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "memory"
	}
	if cfg.Store.SQLite.Path == "" {
		cfg.Store.SQLite.Path = "data/conversations.db"
	}
	if cfg.Store.SQLite.Driver == "" {
		cfg.Store.SQLite.Driver = "modernc"
	}

	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "kyosan"
	}
	if cfg.Metrics.Subsystem == "" {
		cfg.Metrics.Subsystem = "engine"
	}

	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = "kyosan-engine"
	}

	if cfg.Retention.Schedule == "" {
		cfg.Retention.Schedule = "0 3 * * *"
	}
}
