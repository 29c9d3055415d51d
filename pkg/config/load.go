package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML file at path, applies defaults and environment
// overrides, and validates the result. An empty path loads defaults
// plus environment only.
//
// Environment variables use the KYOSAN_SECTION_FIELD convention and
// always win over the file. Secrets (the generation API key, the policy
// git token) are only ever read from the environment.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading configuration file %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing configuration file %q: %w", path, err)
		}
	}

	ApplyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setString(&cfg.Server.ListenAddress, "KYOSAN_SERVER_LISTEN_ADDRESS")
	setDuration(&cfg.Server.ReadTimeout, "KYOSAN_SERVER_READ_TIMEOUT")
	setDuration(&cfg.Server.WriteTimeout, "KYOSAN_SERVER_WRITE_TIMEOUT")
	setInt(&cfg.Server.MaxInputBytes, "KYOSAN_SERVER_MAX_INPUT_BYTES")

	setString(&cfg.Policy.Mode, "KYOSAN_POLICY_MODE")
	setString(&cfg.Policy.Path, "KYOSAN_POLICY_PATH")
	setBool(&cfg.Policy.Watch, "KYOSAN_POLICY_WATCH")
	setString(&cfg.Policy.Git.Repository, "KYOSAN_POLICY_GIT_REPOSITORY")
	setString(&cfg.Policy.Git.Branch, "KYOSAN_POLICY_GIT_BRANCH")
	setString(&cfg.Policy.Git.Path, "KYOSAN_POLICY_GIT_PATH")
	setString(&cfg.Policy.Git.Token, "KYOSAN_POLICY_GIT_TOKEN")
	setDuration(&cfg.Policy.Git.PollInterval, "KYOSAN_POLICY_GIT_POLL_INTERVAL")

	setString(&cfg.Analysis.DefaultLevel, "KYOSAN_ANALYSIS_DEFAULT_LEVEL")
	setInt(&cfg.Analysis.Workers, "KYOSAN_ANALYSIS_WORKERS")

	setBool(&cfg.Generation.Enabled, "KYOSAN_GENERATION_ENABLED")
	setString(&cfg.Generation.Provider.BaseURL, "KYOSAN_GENERATION_BASE_URL")
	setString(&cfg.Generation.Provider.Model, "KYOSAN_GENERATION_MODEL")
	setInt(&cfg.Generation.Provider.MaxTokens, "KYOSAN_GENERATION_MAX_TOKENS")
	setString(&cfg.Generation.Provider.SiteURL, "KYOSAN_GENERATION_SITE_URL")
	setString(&cfg.Generation.Provider.SiteName, "KYOSAN_GENERATION_SITE_NAME")
	setDuration(&cfg.Generation.Provider.Timeout, "KYOSAN_GENERATION_TIMEOUT")

	// API key: engine-specific variable first, then the conventional
	// OpenRouter one.
	setString(&cfg.Generation.Provider.APIKey, "KYOSAN_GENERATION_API_KEY")
	if cfg.Generation.Provider.APIKey == "" {
		setString(&cfg.Generation.Provider.APIKey, "OPENROUTER_API_KEY")
	}
	if cfg.Generation.Provider.Model == "" {
		setString(&cfg.Generation.Provider.Model, "OPENROUTER_MODEL")
	}

	setString(&cfg.Store.Backend, "KYOSAN_STORE_BACKEND")
	setString(&cfg.Store.SQLite.Path, "KYOSAN_STORE_SQLITE_PATH")
	setString(&cfg.Store.SQLite.Driver, "KYOSAN_STORE_SQLITE_DRIVER")

	setString(&cfg.Logging.Level, "KYOSAN_LOG_LEVEL")
	setString(&cfg.Logging.Format, "KYOSAN_LOG_FORMAT")

	setBool(&cfg.Metrics.Enabled, "KYOSAN_METRICS_ENABLED")

	setBool(&cfg.Tracing.Enabled, "KYOSAN_TRACING_ENABLED")
	setString(&cfg.Tracing.Endpoint, "KYOSAN_TRACING_ENDPOINT")
	setBool(&cfg.Tracing.Insecure, "KYOSAN_TRACING_INSECURE")

	setInt(&cfg.Retention.RetentionDays, "KYOSAN_RETENTION_DAYS")
	setString(&cfg.Retention.Schedule, "KYOSAN_RETENTION_SCHEDULE")
}

func setString(dst *string, key string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func setInt(dst *int, key string) {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func setBool(dst *bool, key string) {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}
