package generation

import (
	"context"
	"time"
)

// Provider is the contract every generation backend satisfies.
type Provider interface {
	// Name returns the provider's configured name, for logs and errors.
	Name() string

	// Complete sends the transcript upstream and returns the assistant
	// reply. Errors use the taxonomy in errors.go.
	Complete(ctx context.Context, req *Request) (*Result, error)

	// HealthCheck verifies the upstream is reachable and authenticated.
	HealthCheck(ctx context.Context) error

	// Close releases idle connections. The provider is unusable after.
	Close() error
}

// Config holds the transport settings shared by HTTP-backed providers.
type Config struct {
	// Name identifies the provider in logs and error messages.
	Name string `yaml:"name"`

	// BaseURL is the API root, without a trailing slash.
	BaseURL string `yaml:"base_url"`

	// APIKey authenticates requests. Loaded from the environment in
	// production; never logged.
	APIKey string `yaml:"-"`

	// Model is the default model id for requests that don't override it.
	Model string `yaml:"model"`

	// MaxTokens is the default completion cap.
	MaxTokens int `yaml:"max_tokens"`

	// SiteURL and SiteName populate the OpenRouter attribution headers.
	SiteURL  string `yaml:"site_url"`
	SiteName string `yaml:"site_name"`

	// Timeout bounds one HTTP request, including retries' individual
	// attempts.
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries is the number of retries after the first attempt for
	// transient failures.
	MaxRetries int `yaml:"max_retries"`

	// Connection pool tuning.
	MaxIdleConns        int           `yaml:"max_idle_conns"`
	MaxIdleConnsPerHost int           `yaml:"max_idle_conns_per_host"`
	IdleConnTimeout     time.Duration `yaml:"idle_conn_timeout"`
}

// ApplyDefaults fills zero fields with working defaults.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "openrouter"
	}
	if c.BaseURL == "" {
		c.BaseURL = "https://openrouter.ai/api/v1"
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 4096
	}
	if c.SiteURL == "" {
		c.SiteURL = "https://kyosan-ethics-engine.local"
	}
	if c.SiteName == "" {
		c.SiteName = "Kyosan Ethics Engine"
	}
	if c.Timeout == 0 {
		c.Timeout = 60 * time.Second
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 2
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 20
	}
	if c.MaxIdleConnsPerHost == 0 {
		c.MaxIdleConnsPerHost = 10
	}
	if c.IdleConnTimeout == 0 {
		c.IdleConnTimeout = 90 * time.Second
	}
}

// Validate checks the fields a provider cannot run without.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return &ConfigError{Provider: c.Name, Field: "api_key", Message: "API key is required"}
	}
	if c.Model == "" {
		return &ConfigError{Provider: c.Name, Field: "model", Message: "model id is required"}
	}
	return nil
}
