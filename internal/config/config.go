// Package config loads the formflow CLI configuration: a YAML file with
// FORMFLOW_* environment overrides, falling back to defaults when no file is
// present.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up when no --config flag is given.
const DefaultPath = ".formflow.yaml"

// Config is the root configuration structure.
type Config struct {
	Logging LoggingConfig  `yaml:"logging"`
	Output  OutputConfig   `yaml:"output"`
	Forms   FormsConfig    `yaml:"forms"`
	Extras  map[string]any `yaml:"extras"` // exposed to rules as `extras.*`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "console" or "json"
}

// OutputConfig configures how submitted values are written.
type OutputConfig struct {
	Format string `yaml:"format"` // "json", "form" or "pretty"
}

// FormsConfig locates form definitions.
type FormsConfig struct {
	Dir string `yaml:"dir"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return finish(&cfg)
}

// LoadWithFallback loads path when it exists and otherwise builds the
// configuration from defaults and the environment.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat config: %w", err)
		}
	}
	return finish(&Config{})
}

func finish(cfg *Config) (*Config, error) {
	applyEnvOverrides(cfg)
	setDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides applies FORMFLOW_* environment variables to the config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FORMFLOW_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("FORMFLOW_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("FORMFLOW_OUTPUT_FORMAT"); v != "" {
		cfg.Output.Format = v
	}
	if v := os.Getenv("FORMFLOW_FORMS_DIR"); v != "" {
		cfg.Forms.Dir = v
	}
}

func setDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "warn"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
	if cfg.Output.Format == "" {
		cfg.Output.Format = "json"
	}
	if cfg.Forms.Dir == "" {
		cfg.Forms.Dir = "."
	}
	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)
	cfg.Logging.Format = strings.ToLower(cfg.Logging.Format)
	cfg.Output.Format = strings.ToLower(cfg.Output.Format)
}

func validate(cfg *Config) error {
	if _, err := zerolog.ParseLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	switch cfg.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", cfg.Logging.Format)
	}
	switch cfg.Output.Format {
	case "json", "form", "pretty":
	default:
		return fmt.Errorf("output.format must be json, form or pretty, got %q", cfg.Output.Format)
	}
	return nil
}

// Logger builds the CLI logger described by the logging section.
func (c *Config) Logger(w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(c.Logging.Level)
	if err != nil {
		level = zerolog.WarnLevel
	}

	var out io.Writer = w
	if c.Logging.Format == "console" {
		out = zerolog.ConsoleWriter{Out: w, NoColor: true}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
