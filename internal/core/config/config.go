// Package config handles configuration loading and validation for tally.
package config

import (
	"fmt"
	"os"

	"github.com/hay-kot/criterio"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	// OutputDir is where sessions and reports are written.
	OutputDir string       `yaml:"output_dir"`
	Cache     CacheConfig  `yaml:"cache"`
	Report    ReportConfig `yaml:"report"`
}

// CacheConfig controls the on-disk checklist/expansion cache.
type CacheConfig struct {
	Disabled bool `yaml:"disabled"`
	// Dir overrides the default cache location.
	Dir string `yaml:"dir"`
	// MaxAgeDays bounds entry age for `tally cache prune`.
	MaxAgeDays int `yaml:"max_age_days"`
}

// ReportConfig sets report generation defaults.
type ReportConfig struct {
	// Format is the default report format: json, markdown, or html.
	Format string `yaml:"format"`
}

// DefaultConfig returns a Config with sensible defaults. OutputDir is left
// empty; the caller supplies it from flags or the data dir default.
func DefaultConfig() Config {
	return Config{
		Cache:  CacheConfig{MaxAgeDays: 30},
		Report: ReportConfig{Format: "markdown"},
	}
}

// Load reads configuration from the given path. If configPath is empty or
// the file doesn't exist, defaults apply. outputDir (from flags) wins over
// the config file value; fallbackOutputDir applies when neither sets one.
func Load(configPath, outputDir, fallbackOutputDir string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	if outputDir != "" {
		cfg.OutputDir = outputDir
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = fallbackOutputDir
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Cache.MaxAgeDays == 0 {
		c.Cache.MaxAgeDays = defaults.Cache.MaxAgeDays
	}
	if c.Report.Format == "" {
		c.Report.Format = defaults.Report.Format
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	return criterio.ValidateStruct(
		criterio.Run("output_dir", c.OutputDir, nonEmpty),
		criterio.Run("report.format", c.Report.Format, knownFormat),
		validateMaxAge(c.Cache.MaxAgeDays),
	)
}

func validateMaxAge(days int) error {
	if days < 1 {
		return criterio.NewFieldErrors("cache.max_age_days", fmt.Errorf("must be at least 1"))
	}
	return nil
}

func nonEmpty(value string) error {
	if value == "" {
		return fmt.Errorf("cannot be empty")
	}
	return nil
}

func knownFormat(format string) error {
	switch format {
	case "json", "markdown", "html":
		return nil
	default:
		return fmt.Errorf("unknown format %q (expected json, markdown, or html)", format)
	}
}
