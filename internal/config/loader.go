package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Load loads configuration from environment variables only: there is
// no YAML file support, matching spec.md §6's env-only config table.
//
// # Environment Variable Mapping
//
// Environment variables use underscore separators and are uppercased.
// The transformer maps them to dotted koanf keys by splitting on the
// first underscore only (section.field_name pattern), the same
// convention the teacher's daemon config uses:
//
//	EXTRACTION_API_KEY         -> extraction.api_key
//	EMBEDDING_VOYAGE_API_KEY   -> embedding.voyage_api_key
//	SOLVER_TIME_LIMIT_SECONDS  -> solver.time_limit_seconds
//
// # Example
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(env.Provider("", ".", func(s string) string {
		lower := strings.ToLower(s)
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return nil, fmt.Errorf("config: failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
