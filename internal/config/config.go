// Package config loads bkt configuration from TOML, falling back to
// sensible defaults for anything a file leaves unset.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/templetwo/breakthrough/internal/adaptive"
)

// Config is the full bkt configuration.
type Config struct {
	// Engine configures the refinement loop.
	Engine EngineConfig `toml:"engine"`

	// Constraints is the adaptive controller's starting envelope.
	Constraints adaptive.Constraints `toml:"constraints"`

	// Stuck overrides the stuck-detector thresholds. Zero values take
	// detector defaults.
	Stuck StuckConfig `toml:"stuck"`

	// TriggerCap bounds self-improvement rounds before the dashboard
	// reports a degraded state.
	TriggerCap int `toml:"trigger_cap"`

	// RosterFile optionally points at a YAML or TOML roster override.
	RosterFile string `toml:"roster_file"`

	// ArchivePath is the sqlite database location. Empty selects the
	// default under the user data directory.
	ArchivePath string `toml:"archive_path"`

	// Serve configures the HTTP API.
	Serve ServeConfig `toml:"serve"`
}

// EngineConfig holds pursuit defaults.
type EngineConfig struct {
	// MaxCycles is the refinement cycle budget.
	MaxCycles int `toml:"max_cycles"`

	// Threshold is the breakthrough potential target in (0, 1].
	Threshold float64 `toml:"threshold"`

	// Seed seeds the scoring random source; zero means time-based.
	Seed int64 `toml:"seed"`
}

// StuckConfig mirrors the detector thresholds in file-friendly units.
type StuckConfig struct {
	MaxConsecutiveFailures int     `toml:"max_consecutive_failures"`
	SuccessDroughtSeconds  int     `toml:"success_drought_seconds"`
	MinRecentSuccessMean   float64 `toml:"min_recent_success_mean"`
	RecentWindow           int     `toml:"recent_window"`
}

// Detector converts the file shape into adaptive.StuckConfig.
func (s StuckConfig) Detector() adaptive.StuckConfig {
	return adaptive.StuckConfig{
		MaxConsecutiveFailures: s.MaxConsecutiveFailures,
		SuccessDrought:         time.Duration(s.SuccessDroughtSeconds) * time.Second,
		MinRecentSuccessMean:   s.MinRecentSuccessMean,
		RecentWindow:           s.RecentWindow,
	}
}

// ServeConfig holds the HTTP API settings.
type ServeConfig struct {
	// Addr is the listen address.
	Addr string `toml:"addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			MaxCycles: 10,
			Threshold: 0.85,
		},
		Constraints: adaptive.DefaultConstraints(),
		TriggerCap:  adaptive.DefaultTriggerCap,
		ArchivePath: DefaultArchivePath(),
		Serve: ServeConfig{
			Addr: "127.0.0.1:8787",
		},
	}
}

// Load reads a TOML config file, filling defaults for missing fields.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(ExpandTilde(path))
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads the config at path, or at DefaultPath() when path
// is empty. A missing default file is not an error.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}
	def := DefaultPath()
	if _, err := os.Stat(def); err != nil {
		return Default(), nil
	}
	return Load(def)
}

// Validate checks the loaded values.
func (c *Config) Validate() error {
	if c.Engine.MaxCycles < 1 {
		return fmt.Errorf("config: engine.max_cycles must be >= 1")
	}
	if c.Engine.Threshold <= 0 || c.Engine.Threshold > 1 {
		return fmt.Errorf("config: engine.threshold must be in (0, 1]")
	}
	if c.TriggerCap < 1 {
		return fmt.Errorf("config: trigger_cap must be >= 1")
	}
	if err := c.Constraints.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// DefaultPath returns the standard config location, honoring
// XDG_CONFIG_HOME.
func DefaultPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "bkt", "config.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "bkt.toml")
	}
	return filepath.Join(home, ".config", "bkt", "config.toml")
}

// DefaultArchivePath returns the standard sqlite archive location,
// honoring XDG_DATA_HOME.
func DefaultArchivePath() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "bkt", "bkt.db")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "bkt.db")
	}
	return filepath.Join(home, ".local", "share", "bkt", "bkt.db")
}

// ExpandTilde expands a leading ~/ to the user's home directory.
func ExpandTilde(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		if path == "~" {
			return home
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
