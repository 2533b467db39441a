// Package config loads settings for the siftz command line tool.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix marks environment variables read by Load. SIFTZ_MIN_LENGTH sets
// min_length; a double underscore separates nested keys.
const EnvPrefix = "SIFTZ_"

// Output formats.
const (
	OutputJSON = "json"
	OutputYAML = "yaml"
)

// ErrInvalid reports a setting outside its allowed range.
var ErrInvalid = errors.New("invalid config")

// Config holds the CLI settings after defaults, the optional file and the
// environment have been merged.
type Config struct {
	MinLength int           `koanf:"min_length"`
	Timeout   time.Duration `koanf:"timeout"`
	Catalog   string        `koanf:"catalog"` // path to a secrets catalog; empty uses the built-in one
	Output    string        `koanf:"output"`
	Verbose   bool          `koanf:"verbose"`
}

var defaults = map[string]any{
	"min_length": 4,
	"timeout":    "30s",
	"catalog":    "",
	"output":     OutputJSON,
	"verbose":    false,
}

// Load reads defaults, then the YAML file at path when it exists, then the
// environment. An empty path skips the file.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	for key, val := range defaults {
		if err := k.Set(key, val); err != nil {
			return nil, err
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("load %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	switch c.Output {
	case OutputJSON, OutputYAML:
	default:
		return fmt.Errorf("%w: output must be %s or %s, got %q", ErrInvalid, OutputJSON, OutputYAML, c.Output)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: timeout must not be negative, got %v", ErrInvalid, c.Timeout)
	}
	if c.MinLength < 1 {
		return fmt.Errorf("%w: min_length must be at least 1, got %d", ErrInvalid, c.MinLength)
	}
	return nil
}
