// Package config provides runtime configuration management for ttt.
// Settings are layered with koanf: built-in defaults, then the global and
// local config files, then TTT_* environment variables, then command-line
// flags the user explicitly set.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"ttt/internal/errors"
	"ttt/internal/validate"
)

// OutputFormat represents the supported output formats for reports.
// The same value selects how command errors are printed, so a JSON consumer
// receives structured errors as well as structured reports.
type OutputFormat string

// Supported output formats.
const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
	FormatYAML OutputFormat = "yaml"
)

// EnvPrefix is the prefix of environment variables read into the config.
const EnvPrefix = "TTT_"

// LocalFileName is the per-project config file looked up in the working directory.
const LocalFileName = ".ttt.json"

// Config holds all runtime configuration options for ttt commands.
// It is the merged result of every configuration layer and is passed to the
// logger and command implementations after Validate has normalized it.
type Config struct {
	Manifest string       `koanf:"manifest"`
	Format   OutputFormat `koanf:"format" validate:"required,oneof=text json yaml"`
	Output   string       `koanf:"output"`
	Verbose  bool         `koanf:"verbose"`
	Debug    bool         `koanf:"debug"`
	Quiet    bool         `koanf:"quiet"`
	NoColor  bool         `koanf:"no_color"`
	Strict   bool         `koanf:"strict"`
}

// Defaults returns the built-in configuration values.
// They form the lowest layer, so every key is present even when no file,
// environment variable or flag sets it.
func Defaults() map[string]any {
	return map[string]any{
		"manifest": "",
		"format":   string(FormatText),
		"output":   "",
		"verbose":  false,
		"debug":    false,
		"quiet":    false,
		"no_color": false,
		"strict":   false,
	}
}

// LoadOptions controls where Load reads configuration from. Empty paths are
// skipped; Overrides holds flag values keyed like the koanf tags.
type LoadOptions struct {
	GlobalPath string
	LocalPath  string
	Overrides  map[string]any
}

// DefaultLoadOptions returns the standard global and local config locations.
func DefaultLoadOptions() LoadOptions {
	opts := LoadOptions{LocalPath: LocalFileName}
	if dir, err := os.UserConfigDir(); err == nil {
		opts.GlobalPath = filepath.Join(dir, "ttt", "config.json")
	}
	return opts
}

// Load builds the runtime configuration.
// Priority: flags > environment > local config > global config > defaults.
func Load(opts LoadOptions) (*Config, error) {
	k := koanf.New(".")

	for key, value := range Defaults() {
		if err := k.Set(key, value); err != nil {
			return nil, errors.NewConfigError("failed to apply defaults", err)
		}
	}

	for _, path := range []string{opts.GlobalPath, opts.LocalPath} {
		if err := loadFile(k, path); err != nil {
			return nil, err
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, errors.NewConfigError("failed to read environment", err)
	}

	for key, value := range opts.Overrides {
		if err := k.Set(key, value); err != nil {
			return nil, errors.NewConfigError("failed to apply flag "+key, err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.NewConfigError("failed to decode configuration", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(k *koanf.Koanf, path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.WrapFileError(path, err)
	}
	if err := k.Load(file.Provider(path), json.Parser()); err != nil {
		return errors.NewConfigErrorWithPath(path, "failed to load config file", err)
	}
	return nil
}

// envTransform converts environment variable names to config keys.
// Example: TTT_NO_COLOR -> no_color
func envTransform(s string) string {
	return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
}

// Validate checks the configuration and normalizes paths.
// The format is lowercased and defaults to text, and the manifest path is
// made absolute. Rule violations are returned as a config error wrapping the
// validation error, so both categories match with errors.Is.
func (c *Config) Validate() error {
	c.Format = OutputFormat(strings.ToLower(strings.TrimSpace(string(c.Format))))
	if c.Format == "" {
		c.Format = FormatText
	}

	if err := validate.Struct("configuration", c); err != nil {
		return errors.NewConfigError("invalid configuration", err)
	}

	if c.Manifest != "" {
		abs, err := filepath.Abs(c.Manifest)
		if err != nil {
			return errors.NewConfigErrorWithPath(c.Manifest, "invalid manifest path", err)
		}
		c.Manifest = abs
	}
	return nil
}

// IsVerbose determines if verbose logging is enabled.
// Debug implies verbose, and Quiet overrides both.
func (c *Config) IsVerbose() bool {
	return (c.Verbose || c.Debug) && !c.Quiet
}

// IsDebug determines if debug logging is enabled. Quiet overrides it.
func (c *Config) IsDebug() bool {
	return c.Debug && !c.Quiet
}

// ShouldLog determines if diagnostics should be written at all.
func (c *Config) ShouldLog() bool {
	return !c.Quiet
}
