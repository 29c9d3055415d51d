package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.ListenAddress != ":8080" {
		t.Errorf("ListenAddress = %q", cfg.Server.ListenAddress)
	}
	if cfg.Policy.Mode != "builtin" {
		t.Errorf("Policy.Mode = %q", cfg.Policy.Mode)
	}
	if cfg.Analysis.DefaultLevel != "standard" || cfg.Analysis.Workers != 1 {
		t.Errorf("Analysis = %+v", cfg.Analysis)
	}
	if cfg.Store.Backend != "memory" {
		t.Errorf("Store.Backend = %q", cfg.Store.Backend)
	}
	if cfg.Generation.Enabled {
		t.Error("generation enabled by default")
	}
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfig(t, `
server:
  listen_address: ":9090"
  read_timeout: 10s
policy:
  mode: file
  path: /etc/kyosan/packs
analysis:
  default_level: detailed
  workers: 4
store:
  backend: sqlite
  sqlite:
    path: /var/lib/kyosan/conv.db
    driver: mattn
retention:
  retention_days: 30
  schedule: "0 3 * * *"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.ListenAddress != ":9090" || cfg.Server.ReadTimeout != 10*time.Second {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Policy.Mode != "file" || cfg.Policy.Path != "/etc/kyosan/packs" {
		t.Errorf("Policy = %+v", cfg.Policy)
	}
	if cfg.Analysis.DefaultLevel != "detailed" || cfg.Analysis.Workers != 4 {
		t.Errorf("Analysis = %+v", cfg.Analysis)
	}
	if cfg.Store.SQLite.Driver != "mattn" {
		t.Errorf("SQLite driver = %q", cfg.Store.SQLite.Driver)
	}
	if cfg.Retention.RetentionDays != 30 {
		t.Errorf("RetentionDays = %d", cfg.Retention.RetentionDays)
	}
	// Defaults still fill what the file omits.
	if cfg.Server.WriteTimeout == 0 {
		t.Error("defaults not applied on top of file")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  listen_address: ":9090"
`)

	t.Setenv("KYOSAN_SERVER_LISTEN_ADDRESS", ":7070")
	t.Setenv("KYOSAN_ANALYSIS_DEFAULT_LEVEL", "basic")
	t.Setenv("KYOSAN_GENERATION_API_KEY", "env-key")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.ListenAddress != ":7070" {
		t.Errorf("env override lost: ListenAddress = %q", cfg.Server.ListenAddress)
	}
	if cfg.Analysis.DefaultLevel != "basic" {
		t.Errorf("Analysis.DefaultLevel = %q", cfg.Analysis.DefaultLevel)
	}
	if cfg.Generation.Provider.APIKey != "env-key" {
		t.Error("API key not read from environment")
	}
}

func TestLoad_OpenRouterFallbackEnv(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "or-key")
	t.Setenv("OPENROUTER_MODEL", "some/model")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Generation.Provider.APIKey != "or-key" {
		t.Error("OPENROUTER_API_KEY fallback not applied")
	}
	if cfg.Generation.Provider.Model != "some/model" {
		t.Error("OPENROUTER_MODEL fallback not applied")
	}
}

func TestLoad_ValidationFailures(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantMsg string
	}{
		{
			name:    "file mode without path",
			yaml:    "policy:\n  mode: file\n",
			wantMsg: "policy.path",
		},
		{
			name:    "git mode without repository",
			yaml:    "policy:\n  mode: git\n",
			wantMsg: "policy.git.repository",
		},
		{
			name:    "unknown backend",
			yaml:    "store:\n  backend: redis\n",
			wantMsg: "store.backend",
		},
		{
			name:    "generation enabled without key",
			yaml:    "generation:\n  enabled: true\n",
			wantMsg: "api_key",
		},
		{
			name:    "tracing without endpoint",
			yaml:    "tracing:\n  enabled: true\n",
			wantMsg: "tracing.endpoint",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Keep ambient credentials out of the validation paths.
			t.Setenv("KYOSAN_GENERATION_API_KEY", "")
			t.Setenv("OPENROUTER_API_KEY", "")
			_, err := Load(writeConfig(t, tt.yaml))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %v, want it to mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/does/not/exist.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}
