package config

import (
	"errors"
	"fmt"
)

// Validate checks cross-field consistency after defaults and overrides
// have been applied.
func Validate(cfg *Config) error {
	var errs []error

	switch cfg.Policy.Mode {
	case "builtin":
	case "file":
		if cfg.Policy.Path == "" {
			errs = append(errs, errors.New("policy.path is required in file mode"))
		}
	case "git":
		if cfg.Policy.Git.Repository == "" {
			errs = append(errs, errors.New("policy.git.repository is required in git mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown policy.mode %q (want builtin, file, or git)", cfg.Policy.Mode))
	}

	switch cfg.Analysis.DefaultLevel {
	case "basic", "standard", "detailed":
	default:
		errs = append(errs, fmt.Errorf("unknown analysis.default_level %q", cfg.Analysis.DefaultLevel))
	}
	if cfg.Analysis.Workers < 1 {
		errs = append(errs, errors.New("analysis.workers must be at least 1"))
	}

	if cfg.Generation.Enabled {
		if err := cfg.Generation.Provider.Validate(); err != nil {
			errs = append(errs, err)
		}
	}

	switch cfg.Store.Backend {
	case "memory", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unknown store.backend %q (want memory or sqlite)", cfg.Store.Backend))
	}

	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, errors.New("tracing.endpoint is required when tracing is enabled"))
	}

	if cfg.Retention.RetentionDays < 0 {
		errs = append(errs, errors.New("retention.retention_days must not be negative"))
	}

	return errors.Join(errs...)
}
