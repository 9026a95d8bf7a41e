package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jairodriguez/autonomica/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify autonomica configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/autonomica/config.yaml
Project-specific overrides can be placed in .autonomica.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
		case 1:
			displayConfigKey(cfg, args[0])
		default:
			setConfigKey(cfg, args[0], args[1])
		}
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	fmt.Printf("provider.model: %s\n", cfg.Provider.Model)
	fmt.Printf("provider.api_key: %s (%s)\n", config.MaskAPIKey(cfg.Provider.APIKey), config.GetAPIKeySource(cfg))
	fmt.Printf("provider.use_aws_bedrock: %t\n", cfg.Provider.UseAWSBedrock)
	fmt.Printf("provider.aws_region: %s\n", cfg.Provider.AWSRegion)
	fmt.Printf("provider.aws_profile: %s\n", cfg.Provider.AWSProfile)
	fmt.Printf("orchestrator.max_parallel_tasks: %d\n", cfg.Orchestrator.MaxParallelTasks)
	fmt.Printf("orchestrator.task_timeout: %s\n", cfg.Orchestrator.TaskTimeout)
	fmt.Printf("orchestrator.tick_interval: %s\n", cfg.Orchestrator.TickInterval)
	fmt.Printf("orchestrator.max_task_retries: %d\n", cfg.Orchestrator.MaxTaskRetries)
	fmt.Printf("orchestrator.workflow_retention: %s\n", cfg.Orchestrator.WorkflowRetention)
	fmt.Printf("orchestrator.utilization_warning: %s\n", formatFloat(cfg.Orchestrator.UtilizationWarning))
	fmt.Printf("orchestrator.adaptive.worker_ratio: %s\n", formatFloat(cfg.Orchestrator.Adaptive.WorkerRatio))
	fmt.Printf("orchestrator.adaptive.min_independent: %d\n", cfg.Orchestrator.Adaptive.MinIndependent)
	fmt.Printf("resources.worker_slots: %d\n", cfg.Resources.WorkerSlots)
	fmt.Printf("resources.token_budget: %d\n", cfg.Resources.TokenBudget)
	fmt.Printf("resources.memory_mb: %s\n", formatFloat(cfg.Resources.MemoryMB))
	fmt.Printf("negotiation.resolve_timeout: %s\n", cfg.Negotiation.ResolveTimeout)
	fmt.Printf("negotiation.retention: %s\n", cfg.Negotiation.Retention)
	fmt.Printf("negotiation.sweep_interval: %s\n", cfg.Negotiation.SweepInterval)
	fmt.Printf("workers_file: %s\n", cfg.WorkersFile)
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(cfg *config.Config, key string) {
	value, err := getConfigValue(cfg, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(value)
}

// setConfigKey sets a configuration value and saves the config.
func setConfigKey(cfg *config.Config, key, value string) {
	if err := setConfigValue(cfg, key, value); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Set %s = %s\n", key, value)
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "provider.model":
		return cfg.Provider.Model, nil
	case "provider.api_key":
		return config.MaskAPIKey(cfg.Provider.APIKey), nil
	case "provider.use_aws_bedrock":
		return strconv.FormatBool(cfg.Provider.UseAWSBedrock), nil
	case "provider.aws_region":
		return cfg.Provider.AWSRegion, nil
	case "provider.aws_profile":
		return cfg.Provider.AWSProfile, nil
	case "orchestrator.max_parallel_tasks":
		return strconv.Itoa(cfg.Orchestrator.MaxParallelTasks), nil
	case "orchestrator.task_timeout":
		return cfg.Orchestrator.TaskTimeout.String(), nil
	case "orchestrator.tick_interval":
		return cfg.Orchestrator.TickInterval.String(), nil
	case "orchestrator.max_task_retries":
		return strconv.Itoa(cfg.Orchestrator.MaxTaskRetries), nil
	case "orchestrator.workflow_retention":
		return cfg.Orchestrator.WorkflowRetention.String(), nil
	case "orchestrator.utilization_warning":
		return formatFloat(cfg.Orchestrator.UtilizationWarning), nil
	case "orchestrator.adaptive.worker_ratio":
		return formatFloat(cfg.Orchestrator.Adaptive.WorkerRatio), nil
	case "orchestrator.adaptive.min_independent":
		return strconv.Itoa(cfg.Orchestrator.Adaptive.MinIndependent), nil
	case "resources.worker_slots":
		return strconv.Itoa(cfg.Resources.WorkerSlots), nil
	case "resources.token_budget":
		return strconv.FormatInt(cfg.Resources.TokenBudget, 10), nil
	case "resources.memory_mb":
		return formatFloat(cfg.Resources.MemoryMB), nil
	case "negotiation.resolve_timeout":
		return cfg.Negotiation.ResolveTimeout.String(), nil
	case "negotiation.retention":
		return cfg.Negotiation.Retention.String(), nil
	case "negotiation.sweep_interval":
		return cfg.Negotiation.SweepInterval.String(), nil
	case "workers_file":
		return cfg.WorkersFile, nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch strings.ToLower(key) {
	case "provider.model":
		cfg.Provider.Model = value
	case "provider.api_key":
		// Env references (${VAR}) expand at load time, not here.
		if !strings.Contains(value, "${") {
			if err := config.ValidateAPIKey(value); err != nil {
				return err
			}
		}
		cfg.Provider.APIKey = value
	case "provider.use_aws_bedrock":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for use_aws_bedrock: %w", err)
		}
		cfg.Provider.UseAWSBedrock = b
	case "provider.aws_region":
		cfg.Provider.AWSRegion = value
	case "provider.aws_profile":
		cfg.Provider.AWSProfile = value
	case "orchestrator.max_parallel_tasks":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for max_parallel_tasks: %w", err)
		}
		cfg.Orchestrator.MaxParallelTasks = n
	case "orchestrator.task_timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for task_timeout: %w", err)
		}
		cfg.Orchestrator.TaskTimeout = d
	case "orchestrator.tick_interval":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for tick_interval: %w", err)
		}
		cfg.Orchestrator.TickInterval = d
	case "orchestrator.max_task_retries":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for max_task_retries: %w", err)
		}
		cfg.Orchestrator.MaxTaskRetries = n
	case "orchestrator.workflow_retention":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for workflow_retention: %w", err)
		}
		cfg.Orchestrator.WorkflowRetention = d
	case "orchestrator.utilization_warning":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid value for utilization_warning: %w", err)
		}
		cfg.Orchestrator.UtilizationWarning = f
	case "orchestrator.adaptive.worker_ratio":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid value for worker_ratio: %w", err)
		}
		cfg.Orchestrator.Adaptive.WorkerRatio = f
	case "orchestrator.adaptive.min_independent":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for min_independent: %w", err)
		}
		cfg.Orchestrator.Adaptive.MinIndependent = n
	case "resources.worker_slots":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for worker_slots: %w", err)
		}
		cfg.Resources.WorkerSlots = n
	case "resources.token_budget":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid value for token_budget: %w", err)
		}
		cfg.Resources.TokenBudget = n
	case "resources.memory_mb":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid value for memory_mb: %w", err)
		}
		cfg.Resources.MemoryMB = f
	case "negotiation.resolve_timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for resolve_timeout: %w", err)
		}
		cfg.Negotiation.ResolveTimeout = d
	case "negotiation.retention":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for retention: %w", err)
		}
		cfg.Negotiation.Retention = d
	case "negotiation.sweep_interval":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for sweep_interval: %w", err)
		}
		cfg.Negotiation.SweepInterval = d
	case "workers_file":
		cfg.WorkersFile = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write starter config and worker files",
	Long: `Create .autonomica.yaml and workers.yaml templates in the current
directory, plus the .autonomica directory for local state and logs.
Existing files are left untouched.`,
	RunE: runConfigInit,
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	fmt.Println("Initializing autonomica...")
	fmt.Println()

	if os.Getenv("ANTHROPIC_API_KEY") == "" {
		printStatus("⚠", "ANTHROPIC_API_KEY not set (you can set it later, or use --dry-run)", color.FgYellow)
	} else {
		printStatus("✓", "ANTHROPIC_API_KEY is set", color.FgGreen)
	}

	if err := os.MkdirAll(".autonomica/logs", 0755); err != nil {
		return fmt.Errorf("creating .autonomica directory: %w", err)
	}
	printStatus("✓", "Created .autonomica directory structure", color.FgGreen)

	if err := writeTemplate(".autonomica.yaml", projectConfigTemplate); err != nil {
		return err
	}
	if err := writeTemplate("workers.yaml", workersTemplate); err != nil {
		return err
	}

	fmt.Printf("\n%s Autonomica initialization complete!\n\n", color.GreenString("✓"))
	fmt.Println("Next steps:")
	fmt.Println("  1. Edit workers.yaml to describe your worker crew")
	fmt.Println("  2. Write a workflow file (see 'autonomica run --help' for the format)")
	fmt.Println("  3. autonomica run workflow.yaml --dry-run")
	return nil
}

// writeTemplate writes a starter file unless it already exists.
func writeTemplate(path, content string) error {
	if _, err := os.Stat(path); err == nil {
		printStatus("⚠", fmt.Sprintf("%s already exists, leaving it alone", path), color.FgYellow)
		return nil
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	printStatus("✓", fmt.Sprintf("Created %s", path), color.FgGreen)
	return nil
}

// printStatus prints a status line with color
func printStatus(symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Printf("%s %s\n", c.Sprint(symbol), message)
}

const projectConfigTemplate = `# .autonomica.yaml - project configuration.
# Values here override ~/.config/autonomica/config.yaml.

orchestrator:
  max_parallel_tasks: 4
  task_timeout: 5m
  max_task_retries: 1

resources:
  worker_slots: 4
  token_budget: 500000
  memory_mb: 8192

provider:
  model: claude-sonnet-4-20250514
  # api_key: ${ANTHROPIC_API_KEY}
  # use_aws_bedrock: true
  # aws_region: us-west-2

workers_file: workers.yaml
`

const workersTemplate = `# workers.yaml - the worker crew available for task assignment.
# Edits are picked up live while a run is in progress.

workers:
  - id: worker-planner
    name: Planner
    role: planning and decomposition
    description: Breaks goals into ordered tasks and tracks dependencies between them.
    tools: [search, notes]
    model: claude-opus-4-5-20251101

  - id: worker-builder
    name: Builder
    role: implementation
    description: Implements tasks end to end and reports concrete results.
    tools: [editor, shell, git]
    model: claude-sonnet-4-5-20250929

  - id: worker-reviewer
    name: Reviewer
    role: review and verification
    description: Checks completed work against the task description and flags gaps.
    tools: [editor, test-runner]
    model: claude-haiku-4-5-20251001
`
