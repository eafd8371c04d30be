// Package config loads the flightnn configuration file.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/viant/spatial-search/index"
	"github.com/viant/spatial-search/index/kd"
	"github.com/viant/spatial-search/logging"
	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by all commands.
type Config struct {
	Input        string    `yaml:"input"`
	Database     string    `yaml:"database,omitempty"`
	Snapshot     string    `yaml:"snapshot,omitempty"`
	Index        string    `yaml:"index"`
	LeafCapacity int       `yaml:"leaf_capacity"`
	Parallelism  int       `yaml:"parallelism"`
	Log          LogConfig `yaml:"log"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Input:        "data/flights.csv",
		Snapshot:     "default",
		Index:        string(index.KindKD),
		LeafCapacity: kd.DefaultLeafCapacity,
		Parallelism:  runtime.GOMAXPROCS(0),
		Log:          LogConfig{Level: "info", Format: logging.FormatText},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field ranges and names.
func (c *Config) Validate() error {
	kind, err := index.ParseKind(c.Index)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if kind.Stored() && c.Database == "" {
		return fmt.Errorf("config: index %q requires database", kind)
	}
	if c.LeafCapacity < 1 {
		return fmt.Errorf("config: leaf_capacity must be positive, got %d", c.LeafCapacity)
	}
	if c.Parallelism < 0 {
		return fmt.Errorf("config: parallelism must not be negative, got %d", c.Parallelism)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	format := strings.ToLower(strings.TrimSpace(c.Log.Format))
	switch format {
	case "", logging.FormatText, logging.FormatJSON:
		c.Log.Format = format
	default:
		return fmt.Errorf("config: unknown log format %q", c.Log.Format)
	}
	return nil
}
