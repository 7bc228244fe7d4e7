// Package config loads hashrarity's TOML configuration file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/odvcencio/hashrarity/pkg/rarity"
)

// FileName is the per-repository config file looked up in the work tree root.
const FileName = ".hashrarity.toml"

// Config is the tool configuration. Keys absent from the file keep their
// defaults. A Parallelism of 0 means one worker per CPU.
type Config struct {
	CommonBits   int    `toml:"common_bits"`
	UncommonBits int    `toml:"uncommon_bits"`
	Top          int    `toml:"top"`
	Parallelism  int    `toml:"parallelism"`
	LogLevel     string `toml:"log_level"`
}

// Default returns the built-in configuration.
func Default() Config {
	th := rarity.DefaultThresholds()
	return Config{
		CommonBits:   th.CommonBits,
		UncommonBits: th.UncommonBits,
		Top:          10,
		Parallelism:  0,
		LogLevel:     "warn",
	}
}

// Load decodes the TOML file at path over the defaults. A missing file is not
// an error. Unknown keys are rejected so a typo does not silently fall back
// to a default threshold.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("load config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// Locate returns the first existing config file among the repository's
// FileName and $XDG_CONFIG_HOME/hashrarity/config.toml, or "" if neither
// exists.
func Locate(repoRoot string) string {
	candidates := []string{}
	if repoRoot != "" {
		candidates = append(candidates, filepath.Join(repoRoot, FileName))
	}
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "hashrarity", "config.toml"))
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c
		}
	}
	return ""
}

// Validate checks thresholds, counts and the log level.
func (c Config) Validate() error {
	var errs []error
	if err := c.Thresholds().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Top < 0 {
		errs = append(errs, fmt.Errorf("top must be >= 0, got %d", c.Top))
	}
	if c.Parallelism < 0 {
		errs = append(errs, fmt.Errorf("parallelism must be >= 0, got %d", c.Parallelism))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Thresholds returns the configured tier boundaries.
func (c Config) Thresholds() rarity.Thresholds {
	return rarity.Thresholds{CommonBits: c.CommonBits, UncommonBits: c.UncommonBits}
}

// Workers resolves Parallelism, where 0 means one worker per CPU.
func (c Config) Workers() int {
	if c.Parallelism > 0 {
		return c.Parallelism
	}
	return runtime.NumCPU()
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if c.LogLevel == "" {
		return slog.LevelWarn, nil
	}
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}
