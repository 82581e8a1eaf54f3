// Package config handles layered YAML configuration with environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all caseview configuration.
type Config struct {
	Source    Source    `yaml:"source"`
	Selection Selection `yaml:"selection"`
	Display   Display   `yaml:"display"`
	Log       Log       `yaml:"log"`
}

// Source holds where test cases come from.
type Source struct {
	Location string        `yaml:"location"` // "demo:", a path, file:..., or http(s)://...
	Timeout  time.Duration `yaml:"timeout"`  // Per List/Load call
}

// Selection holds selection behavior settings.
type Selection struct {
	Recall string `yaml:"recall"` // "carry" | "per-case"
}

// Display holds terminal rendering settings.
type Display struct {
	Style string `yaml:"style"` // "auto" | "dark" | "light" | "notty"
	Watch bool   `yaml:"watch"` // Reload file sources when they change
}

// Log holds log file settings.
type Log struct {
	File  string `yaml:"file"`
	Level string `yaml:"level"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Source: Source{
			Location: "demo:",
			Timeout:  10 * time.Second,
		},
		Selection: Selection{
			Recall: "carry",
		},
		Display: Display{
			Style: "auto",
			Watch: true,
		},
		Log: Log{
			File:  ".caseview/caseview.log",
			Level: "info",
		},
	}
}

// DefaultPaths returns the config files LoadLayered reads, lowest
// priority first: the user config, then the project config.
func DefaultPaths() []string {
	var paths []string
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "caseview", "config.yaml"))
	}
	return append(paths, filepath.Join(".caseview", "config.yaml"))
}

// Load reads a single YAML config file at path and returns a Config.
// For merging multiple config sources, use LoadLayered instead.
// If the file does not exist, defaults are returned without error.
// If the file contains invalid YAML or unknown fields, an error is returned.
func Load(path string) (*Config, error) {
	return LoadLayered(path)
}

// LoadLayered loads config from multiple paths with increasing priority.
// Later paths override earlier ones. Missing files are skipped.
func LoadLayered(paths ...string) (*Config, error) {
	cfg := DefaultConfig()

	for _, path := range paths {
		layer, err := loadLayer(path)
		if err != nil {
			return nil, err
		}
		if layer == nil {
			continue
		}
		cfg.merge(layer)
	}

	return &cfg, nil
}

// Validate checks that config values are usable.
func (c *Config) Validate() error {
	if c.Source.Location == "" {
		return errors.New("config: source.location cannot be empty")
	}
	if c.Source.Timeout <= 0 {
		return fmt.Errorf("config: source.timeout must be positive, got %v", c.Source.Timeout)
	}
	switch c.Selection.Recall {
	case "carry", "per-case":
	default:
		return fmt.Errorf("config: selection.recall must be \"carry\" or \"per-case\", got %q", c.Selection.Recall)
	}
	switch c.Display.Style {
	case "auto", "dark", "light", "notty":
	default:
		return fmt.Errorf("config: display.style must be one of auto, dark, light, notty, got %q", c.Display.Style)
	}
	switch c.Log.Level {
	case "trace", "debug", "info", "warn", "error", "disabled":
	default:
		return fmt.Errorf("config: log.level must be one of trace, debug, info, warn, error, disabled, got %q", c.Log.Level)
	}
	return nil
}

// ApplyEnv applies environment variable overrides to the config.
// Supported variables: CASEVIEW_SOURCE, CASEVIEW_TIMEOUT, CASEVIEW_RECALL,
// CASEVIEW_STYLE, CASEVIEW_WATCH, CASEVIEW_LOG_FILE, CASEVIEW_LOG_LEVEL.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("CASEVIEW_SOURCE"); v != "" {
		c.Source.Location = v
	}
	if v := os.Getenv("CASEVIEW_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: invalid CASEVIEW_TIMEOUT %q: %w", v, err)
		}
		c.Source.Timeout = d
	}
	if v := os.Getenv("CASEVIEW_RECALL"); v != "" {
		c.Selection.Recall = v
	}
	if v := os.Getenv("CASEVIEW_STYLE"); v != "" {
		c.Display.Style = v
	}
	if v := os.Getenv("CASEVIEW_WATCH"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: invalid CASEVIEW_WATCH %q: %w", v, err)
		}
		c.Display.Watch = b
	}
	if v := os.Getenv("CASEVIEW_LOG_FILE"); v != "" {
		c.Log.File = v
	}
	if v := os.Getenv("CASEVIEW_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	return nil
}

// rawConfig mirrors Config but uses pointers to distinguish set vs unset fields.
type rawConfig struct {
	Source    *rawSource    `yaml:"source"`
	Selection *rawSelection `yaml:"selection"`
	Display   *rawDisplay   `yaml:"display"`
	Log       *rawLog       `yaml:"log"`
}

type rawSource struct {
	Location *string        `yaml:"location"`
	Timeout  *time.Duration `yaml:"timeout"`
}

type rawSelection struct {
	Recall *string `yaml:"recall"`
}

type rawDisplay struct {
	Style *string `yaml:"style"`
	Watch *bool   `yaml:"watch"`
}

type rawLog struct {
	File  *string `yaml:"file"`
	Level *string `yaml:"level"`
}

// loadLayer reads a single config file into a rawConfig for selective merging.
// Returns nil if the file does not exist. Rejects unknown fields.
func loadLayer(path string) (*rawConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if len(data) == 0 {
		return nil, nil
	}

	var raw rawConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		// Comment-only YAML files produce EOF with no decoded content.
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return &raw, nil
}

// merge applies non-nil fields from a rawConfig layer onto this Config.
func (c *Config) merge(layer *rawConfig) {
	if s := layer.Source; s != nil {
		setIf(&c.Source.Location, s.Location)
		setIf(&c.Source.Timeout, s.Timeout)
	}
	if s := layer.Selection; s != nil {
		setIf(&c.Selection.Recall, s.Recall)
	}
	if d := layer.Display; d != nil {
		setIf(&c.Display.Style, d.Style)
		setIf(&c.Display.Watch, d.Watch)
	}
	if l := layer.Log; l != nil {
		setIf(&c.Log.File, l.File)
		setIf(&c.Log.Level, l.Level)
	}
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
