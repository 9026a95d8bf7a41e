// Package config handles configuration loading and management for autonomica.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for autonomica.
type Config struct {
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator"`
	Resources    ResourcesConfig    `mapstructure:"resources"`
	Negotiation  NegotiationConfig  `mapstructure:"negotiation"`
	Provider     ProviderConfig     `mapstructure:"provider"`
	WorkersFile  string             `mapstructure:"workers_file"`
}

// OrchestratorConfig holds execution policy knobs.
type OrchestratorConfig struct {
	// MaxParallelTasks bounds per-level fan-out in parallel mode.
	MaxParallelTasks int `mapstructure:"max_parallel_tasks"`
	// TaskTimeout bounds a single task execution.
	TaskTimeout time.Duration `mapstructure:"task_timeout"`
	// TickInterval is the cadence of the orchestration loop.
	TickInterval time.Duration `mapstructure:"tick_interval"`
	// MaxTaskRetries is how many alternate-worker retries a failed task gets.
	MaxTaskRetries int `mapstructure:"max_task_retries"`
	// WorkflowRetention is how long terminal workflows are kept in memory.
	WorkflowRetention time.Duration `mapstructure:"workflow_retention"`
	// UtilizationWarning is the resource utilization fraction that logs a warning.
	UtilizationWarning float64 `mapstructure:"utilization_warning"`
	// Adaptive tunes the adaptive mode decision.
	Adaptive AdaptiveConfig `mapstructure:"adaptive"`
}

// AdaptiveConfig tunes when adaptive mode chooses parallel execution.
type AdaptiveConfig struct {
	// WorkerRatio is the minimum workers-to-tasks ratio for parallel execution.
	WorkerRatio float64 `mapstructure:"worker_ratio"`
	// MinIndependent is the minimum count of independent tasks for parallel execution.
	MinIndependent int `mapstructure:"min_independent"`
}

// ResourcesConfig holds the capacities registered with the resource ledger.
type ResourcesConfig struct {
	// WorkerSlots is how many tasks may hold a worker slot at once.
	WorkerSlots int `mapstructure:"worker_slots"`
	// TokenBudget is the shared token pool for a run.
	TokenBudget int64 `mapstructure:"token_budget"`
	// MemoryMB is the shared memory pool in megabytes.
	MemoryMB float64 `mapstructure:"memory_mb"`
}

// NegotiationConfig holds the negotiation timing policy.
type NegotiationConfig struct {
	// ResolveTimeout bounds how long a negotiation may stay open.
	ResolveTimeout time.Duration `mapstructure:"resolve_timeout"`
	// Retention is how long terminal negotiations are kept.
	Retention time.Duration `mapstructure:"retention"`
	// SweepInterval is how often the negotiation sweep runs.
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// ProviderConfig holds model provider settings.
type ProviderConfig struct {
	// Model is the default model when a worker does not name one.
	Model string `mapstructure:"model"`
	// APIKey is the Anthropic API key. If empty, uses ANTHROPIC_API_KEY env var.
	APIKey string `mapstructure:"api_key"`
	// UseAWSBedrock routes invocations through AWS Bedrock.
	UseAWSBedrock bool `mapstructure:"use_aws_bedrock"`
	// AWSRegion is the AWS region for Bedrock (e.g., "us-west-2").
	AWSRegion string `mapstructure:"aws_region"`
	// AWSProfile is the optional AWS profile name to use.
	AWSProfile string `mapstructure:"aws_profile"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (AUTONOMICA_*, ANTHROPIC_API_KEY)
// 2. Project config (.autonomica.yaml in current directory or parent)
// 3. User config (~/.config/autonomica/config.yaml)
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

	// Project config takes precedence over the user config.
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

	v.SetEnvPrefix("AUTONOMICA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("provider.api_key", "ANTHROPIC_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Provider.APIKey = expandEnv(cfg.Provider.APIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific file.
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	v.BindEnv("provider.api_key", "ANTHROPIC_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Provider.APIKey = expandEnv(cfg.Provider.APIKey)

	return cfg, nil
}

// Save writes the configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("orchestrator.max_parallel_tasks", cfg.Orchestrator.MaxParallelTasks)
	v.Set("orchestrator.task_timeout", cfg.Orchestrator.TaskTimeout.String())
	v.Set("orchestrator.tick_interval", cfg.Orchestrator.TickInterval.String())
	v.Set("orchestrator.max_task_retries", cfg.Orchestrator.MaxTaskRetries)
	v.Set("orchestrator.workflow_retention", cfg.Orchestrator.WorkflowRetention.String())
	v.Set("orchestrator.utilization_warning", cfg.Orchestrator.UtilizationWarning)
	v.Set("orchestrator.adaptive.worker_ratio", cfg.Orchestrator.Adaptive.WorkerRatio)
	v.Set("orchestrator.adaptive.min_independent", cfg.Orchestrator.Adaptive.MinIndependent)
	v.Set("resources.worker_slots", cfg.Resources.WorkerSlots)
	v.Set("resources.token_budget", cfg.Resources.TokenBudget)
	v.Set("resources.memory_mb", cfg.Resources.MemoryMB)
	v.Set("negotiation.resolve_timeout", cfg.Negotiation.ResolveTimeout.String())
	v.Set("negotiation.retention", cfg.Negotiation.Retention.String())
	v.Set("negotiation.sweep_interval", cfg.Negotiation.SweepInterval.String())
	v.Set("provider.model", cfg.Provider.Model)
	v.Set("provider.api_key", cfg.Provider.APIKey)
	v.Set("provider.use_aws_bedrock", cfg.Provider.UseAWSBedrock)
	v.Set("provider.aws_region", cfg.Provider.AWSRegion)
	v.Set("provider.aws_profile", cfg.Provider.AWSProfile)
	v.Set("workers_file", cfg.WorkersFile)

	return v.WriteConfig()
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
	// Orchestrator defaults
	v.SetDefault("orchestrator.max_parallel_tasks", 4)
	v.SetDefault("orchestrator.task_timeout", "5m")
	v.SetDefault("orchestrator.tick_interval", "2s")
	v.SetDefault("orchestrator.max_task_retries", 1)
	v.SetDefault("orchestrator.workflow_retention", "1h")
	v.SetDefault("orchestrator.utilization_warning", 0.9)
	v.SetDefault("orchestrator.adaptive.worker_ratio", 0.5)
	v.SetDefault("orchestrator.adaptive.min_independent", 2)

	// Resource pool defaults
	v.SetDefault("resources.worker_slots", 4)
	v.SetDefault("resources.token_budget", 500000)
	v.SetDefault("resources.memory_mb", 8192)

	// Negotiation defaults
	v.SetDefault("negotiation.resolve_timeout", "5m")
	v.SetDefault("negotiation.retention", "1h")
	v.SetDefault("negotiation.sweep_interval", "30s")

	// Provider defaults
	v.SetDefault("provider.model", "claude-sonnet-4-20250514")
	v.SetDefault("provider.api_key", "")
	v.SetDefault("provider.use_aws_bedrock", false)
	v.SetDefault("provider.aws_region", "")
	v.SetDefault("provider.aws_profile", "")

	v.SetDefault("workers_file", "workers.yaml")
}

// getUserConfigDir returns the XDG config directory for autonomica.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "autonomica")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "autonomica")
	}
	return filepath.Join(home, ".config", "autonomica")
}

// findProjectConfig searches for .autonomica.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".autonomica.yaml")
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

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Orchestrator: OrchestratorConfig{
			MaxParallelTasks:   4,
			TaskTimeout:        5 * time.Minute,
			TickInterval:       2 * time.Second,
			MaxTaskRetries:     1,
			WorkflowRetention:  time.Hour,
			UtilizationWarning: 0.9,
			Adaptive: AdaptiveConfig{
				WorkerRatio:    0.5,
				MinIndependent: 2,
			},
		},
		Resources: ResourcesConfig{
			WorkerSlots: 4,
			TokenBudget: 500000,
			MemoryMB:    8192,
		},
		Negotiation: NegotiationConfig{
			ResolveTimeout: 5 * time.Minute,
			Retention:      time.Hour,
			SweepInterval:  30 * time.Second,
		},
		Provider: ProviderConfig{
			Model: "claude-sonnet-4-20250514",
		},
		WorkersFile: "workers.yaml",
	}
}
