package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "WRES_"

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) at path, or at WRES_CONFIG when path is empty
//  3. env (prefix WRES_); a double underscore separates nested keys,
//     e.g. WRES_EVALUATION__FEATURE
//
// Declaration defaults are then filled and the whole config validated.
func Load(ctx context.Context, path string) (*Config, error) {
	base := New(ctx)
	k := koanf.New(".")

	if path == "" {
		path = os.Getenv(EnvPrefix + "CONFIG")
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	if err := defaults.Set(&cfg.Evaluation); err != nil {
		return nil, fmt.Errorf("%w: defaults: %w", ErrLoadConfig, err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the struct tags of the config and its declaration.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	for i, t := range cfg.Evaluation.Thresholds {
		if (t.Operator == "BETWEEN") != (len(t.Values) == 2) {
			return fmt.Errorf("%w: threshold %d: BETWEEN takes two values, other operators one", ErrInvalidConfig, i)
		}
	}
	e := cfg.Evaluation
	declared := 0
	for _, on := range []bool{e.Baseline != "", e.Climatology.Enabled, e.Persistence.Enabled} {
		if on {
			declared++
		}
	}
	if declared > 1 {
		return fmt.Errorf("%w: declare at most one of a baseline source, a climatological baseline or a persistence baseline", ErrInvalidConfig)
	}
	c := cfg.Evaluation.Climatology
	if c.Bounded() && !c.End.After(c.Start) {
		return fmt.Errorf("%w: climatology end must be after start", ErrInvalidConfig)
	}
	return nil
}
