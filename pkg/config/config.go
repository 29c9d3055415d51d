// Package config defines the engine's configuration tree and its YAML
// loading, defaulting, environment override, and validation passes.
package config

import (
	"time"

	"github.com/sanjivakyosan/Kyosan-Ethics-Engine/pkg/generation"
	"github.com/sanjivakyosan/Kyosan-Ethics-Engine/pkg/store"
	"github.com/sanjivakyosan/Kyosan-Ethics-Engine/pkg/telemetry/logging"
	"github.com/sanjivakyosan/Kyosan-Ethics-Engine/pkg/telemetry/metrics"
	"github.com/sanjivakyosan/Kyosan-Ethics-Engine/pkg/telemetry/tracing"
)

// Config is the full engine configuration.
type Config struct {
	Server     ServerConfig          `yaml:"server"`
	Policy     PolicyConfig          `yaml:"policy"`
	Analysis   AnalysisConfig        `yaml:"analysis"`
	Generation GenerationConfig      `yaml:"generation"`
	Store      StoreConfig           `yaml:"store"`
	Logging    logging.Config        `yaml:"logging"`
	Metrics    metrics.Config        `yaml:"metrics"`
	Tracing    tracing.Config        `yaml:"tracing"`
	Retention  store.RetentionConfig `yaml:"retention"`
}

// ServerConfig controls the HTTP front end.
type ServerConfig struct {
	ListenAddress   string        `yaml:"listen_address"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxInputBytes caps the accepted input text size.
	MaxInputBytes int `yaml:"max_input_bytes"`
}

// PolicyConfig selects where rule packs come from.
//
// Mode "builtin" runs the gate on its built-in rules only. Mode "file"
// loads packs from Path (file or directory), optionally watching for
// changes. Mode "git" clones packs from a repository and polls it.
type PolicyConfig struct {
	Mode  string    `yaml:"mode"`
	Path  string    `yaml:"path"`
	Watch bool      `yaml:"watch"`
	Git   GitConfig `yaml:"git"`
}

// GitConfig describes the rule-pack repository for policy mode "git".
// The auth token is taken from KYOSAN_POLICY_GIT_TOKEN, never from the
// file.
type GitConfig struct {
	Repository   string        `yaml:"repository"`
	Branch       string        `yaml:"branch"`
	Path         string        `yaml:"path"`
	LocalPath    string        `yaml:"local_path"`
	PollInterval time.Duration `yaml:"poll_interval"`
	CloneTimeout time.Duration `yaml:"clone_timeout"`
	Token        string        `yaml:"-"`
}

// AnalysisConfig controls the analyzer orchestrator.
type AnalysisConfig struct {
	// DefaultLevel applies when a request does not name a level.
	DefaultLevel string `yaml:"default_level"`

	// Workers bounds concurrent analyzer invocations per request; 1 runs
	// them sequentially.
	Workers int `yaml:"workers"`
}

// GenerationConfig controls the upstream provider.
type GenerationConfig struct {
	// Enabled turns the external generation call on. When false the
	// pipeline synthesizes responses locally.
	Enabled bool `yaml:"enabled"`

	// Provider holds the transport settings. The API key is taken from
	// KYOSAN_GENERATION_API_KEY (or OPENROUTER_API_KEY), never from the
	// file.
	Provider generation.Config `yaml:"provider"`
}

// StoreConfig selects the conversation persistence backend.
type StoreConfig struct {
	// Backend is "memory" or "sqlite".
	Backend string `yaml:"backend"`

	SQLite store.SQLiteConfig `yaml:"sqlite"`
}
