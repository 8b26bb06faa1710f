// Package config provides centralized configuration management using Viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration values for mystlin.
type Config struct {
	CLIPaths          map[string]string `mapstructure:"cli_paths" yaml:"cli_paths"`
	DefaultProvider   string            `mapstructure:"default_provider" yaml:"default_provider"`
	Model             string            `mapstructure:"model" yaml:"model"`
	Persona           string            `mapstructure:"persona" yaml:"persona"`
	LogLevel          string            `mapstructure:"log_level" yaml:"log_level"`
	PermissionTimeout string            `mapstructure:"permission_timeout" yaml:"permission_timeout"`
	OnTimeout         string            `mapstructure:"on_timeout" yaml:"on_timeout"`
	CritiqueTemplate  string            `mapstructure:"critique_template" yaml:"critique_template"`
	Skills            []string          `mapstructure:"skills" yaml:"skills"`
	HardTimeoutSec    int               `mapstructure:"hard_timeout_sec" yaml:"hard_timeout_sec"`
	GracePeriodSec    int               `mapstructure:"grace_period_sec" yaml:"grace_period_sec"`
	HistoryWindow     int               `mapstructure:"history_window" yaml:"history_window"`
}

// Load loads configuration with full precedence:
// ENV vars > project config > XDG global config > defaults
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigName("mystlin")

	v.SetDefault("default_provider", "claude")
	v.SetDefault("model", "")
	v.SetDefault("persona", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("permission_timeout", "60s")
	v.SetDefault("on_timeout", "deny")
	v.SetDefault("critique_template", "")
	v.SetDefault("hard_timeout_sec", 120)
	v.SetDefault("grace_period_sec", 5)
	v.SetDefault("history_window", 10)

	v.SetEnvPrefix("MYSTLIN")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for _, key := range []string{
		"default_provider", "model", "persona", "log_level",
		"permission_timeout", "on_timeout", "critique_template",
		"hard_timeout_sec", "grace_period_sec", "history_window",
	} {
		if err := v.BindEnv(key, "MYSTLIN_"+strings.ToUpper(key)); err != nil {
			return nil, fmt.Errorf("binding %s env: %w", key, err)
		}
	}

	globalPath := GlobalPath()
	if fileExists(globalPath) {
		v.SetConfigFile(globalPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading global config: %w", err)
		}
	}

	projectPath := ProjectPath()
	if fileExists(projectPath) {
		v.SetConfigFile(projectPath)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("merging project config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.OnTimeout {
	case "deny", "approve", "wait":
	default:
		return fmt.Errorf("invalid on_timeout %q: must be deny, approve, or wait", c.OnTimeout)
	}
	if _, err := time.ParseDuration(c.PermissionTimeout); err != nil {
		return fmt.Errorf("invalid permission_timeout %q: %w", c.PermissionTimeout, err)
	}
	if c.HistoryWindow < 0 {
		return fmt.Errorf("history_window must be >= 0, got %d", c.HistoryWindow)
	}
	return nil
}

// PermissionTimeoutDuration parses the configured permission timeout.
// Validation at load time guarantees this succeeds.
func (c *Config) PermissionTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.PermissionTimeout)
	return d
}

// HardTimeout returns the process hard timeout as a duration.
func (c *Config) HardTimeout() time.Duration {
	return time.Duration(c.HardTimeoutSec) * time.Second
}

// GracePeriod returns the SIGTERM grace period as a duration.
func (c *Config) GracePeriod() time.Duration {
	return time.Duration(c.GracePeriodSec) * time.Second
}

// CLIPath returns the configured binary override for a provider, or "".
func (c *Config) CLIPath(providerID string) string {
	return c.CLIPaths[providerID]
}

// Exists returns true if any config file exists (global or project).
func Exists() bool {
	return fileExists(GlobalPath()) || fileExists(ProjectPath())
}

// GlobalPath returns the XDG global config path.
// Returns ~/.config/mystlin/mystlin.yml or $XDG_CONFIG_HOME/mystlin/mystlin.yml.
func GlobalPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "mystlin", "mystlin.yml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "mystlin", "mystlin.yml")
}

// ProjectPath returns the project-local config path.
func ProjectPath() string {
	return "mystlin.yml"
}

// WriteGlobal writes the config to the XDG global location.
func WriteGlobal(cfg *Config) error {
	path := GlobalPath()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
