// Package config handles configuration loading and management for iterguard.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for iterguard.
type Config struct {
	Defaults  DefaultsConfig  `mapstructure:"defaults"`
	Guards    GuardsConfig    `mapstructure:"guards"`
	Timeouts  TimeoutsConfig  `mapstructure:"timeouts"`
	Patterns  PatternsConfig  `mapstructure:"patterns"`
	Retention RetentionConfig `mapstructure:"retention"`
}

// DefaultsConfig holds default values for new sessions.
type DefaultsConfig struct {
	MaxIterations int `mapstructure:"max_iterations"`
}

// GuardsConfig holds default safety-guard settings.
type GuardsConfig struct {
	CircuitBreakerThreshold int     `mapstructure:"circuit_breaker_threshold"`
	RegressionWindow        int     `mapstructure:"regression_window"`
	RegressionDrop          float64 `mapstructure:"regression_drop"`
}

// TimeoutsConfig holds timeout settings.
type TimeoutsConfig struct {
	// Command is the default hard kill deadline for command rules that
	// don't configure their own.
	Command time.Duration `mapstructure:"command"`
}

// PatternsConfig holds default completion/blocked markers applied when a
// session configures none.
type PatternsConfig struct {
	Completion []string `mapstructure:"completion"`
	Blocked    []string `mapstructure:"blocked"`
}

// RetentionConfig holds checkpoint pruning settings.
type RetentionConfig struct {
	// PurgeAfter is how long closed chains are kept before cleanup removes
	// them.
	PurgeAfter time.Duration `mapstructure:"purge_after"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ITERGUARD_*)
// 2. Project config (.iterguard.yaml in current directory or parent)
// 3. User config (~/.config/iterguard/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("ITERGUARD")
	v.AutomaticEnv()
	v.BindEnv("defaults.max_iterations", "ITERGUARD_MAX_ITERATIONS")
	v.BindEnv("timeouts.command", "ITERGUARD_COMMAND_TIMEOUT")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("defaults.max_iterations", 10)

	v.SetDefault("guards.circuit_breaker_threshold", 3)
	v.SetDefault("guards.regression_window", 3)
	v.SetDefault("guards.regression_drop", 10.0)

	v.SetDefault("timeouts.command", "2m")

	// Markers the surrounding system teaches agents to emit.
	v.SetDefault("patterns.completion", []string{`(?i)^\s*TASK[ _]COMPLETE\b`, `<!-- COMPLETE -->`})
	v.SetDefault("patterns.blocked", []string{`(?i)^\s*TASK[ _]BLOCKED\b`, `<!-- BLOCKED -->`})

	v.SetDefault("retention.purge_after", "720h")
}

// getUserConfigDir returns the XDG config directory for iterguard.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "iterguard")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "iterguard")
	}
	return filepath.Join(home, ".config", "iterguard")
}

// findProjectConfig searches for .iterguard.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".iterguard.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Defaults: DefaultsConfig{
			MaxIterations: 10,
		},
		Guards: GuardsConfig{
			CircuitBreakerThreshold: 3,
			RegressionWindow:        3,
			RegressionDrop:          10.0,
		},
		Timeouts: TimeoutsConfig{
			Command: 2 * time.Minute,
		},
		Patterns: PatternsConfig{
			Completion: []string{`(?i)^\s*TASK[ _]COMPLETE\b`, `<!-- COMPLETE -->`},
			Blocked:    []string{`(?i)^\s*TASK[ _]BLOCKED\b`, `<!-- BLOCKED -->`},
		},
		Retention: RetentionConfig{
			PurgeAfter: 720 * time.Hour,
		},
	}
}
