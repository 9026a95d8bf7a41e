package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Orchestrator.MaxParallelTasks != 4 {
		t.Errorf("expected default max_parallel_tasks 4, got %d", cfg.Orchestrator.MaxParallelTasks)
	}

	if cfg.Orchestrator.TaskTimeout != 5*time.Minute {
		t.Errorf("expected task timeout 5m, got %v", cfg.Orchestrator.TaskTimeout)
	}

	if cfg.Orchestrator.TickInterval != 2*time.Second {
		t.Errorf("expected tick interval 2s, got %v", cfg.Orchestrator.TickInterval)
	}

	if cfg.Orchestrator.MaxTaskRetries != 1 {
		t.Errorf("expected max task retries 1, got %d", cfg.Orchestrator.MaxTaskRetries)
	}

	if cfg.Orchestrator.Adaptive.WorkerRatio != 0.5 {
		t.Errorf("expected adaptive worker ratio 0.5, got %v", cfg.Orchestrator.Adaptive.WorkerRatio)
	}

	if cfg.Resources.WorkerSlots != 4 {
		t.Errorf("expected worker slots 4, got %d", cfg.Resources.WorkerSlots)
	}

	if cfg.Resources.TokenBudget != 500000 {
		t.Errorf("expected token budget 500000, got %d", cfg.Resources.TokenBudget)
	}

	if cfg.Negotiation.ResolveTimeout != 5*time.Minute {
		t.Errorf("expected negotiation resolve timeout 5m, got %v", cfg.Negotiation.ResolveTimeout)
	}

	if cfg.Provider.Model != "claude-sonnet-4-20250514" {
		t.Errorf("expected default model claude-sonnet-4-20250514, got %q", cfg.Provider.Model)
	}

	if cfg.WorkersFile != "workers.yaml" {
		t.Errorf("expected workers file workers.yaml, got %q", cfg.WorkersFile)
	}
}

func TestLoadFromPath(t *testing.T) {
	// Create a temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
orchestrator:
  max_parallel_tasks: 8
  task_timeout: 10m
  tick_interval: 1s
  max_task_retries: 2
  utilization_warning: 0.8
  adaptive:
    worker_ratio: 0.75
    min_independent: 3
resources:
  worker_slots: 6
  token_budget: 250000
  memory_mb: 4096
negotiation:
  resolve_timeout: 2m
  retention: 30m
provider:
  model: claude-opus-4-5-20251101
  use_aws_bedrock: true
  aws_region: us-west-2
workers_file: crew.yaml
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Orchestrator.MaxParallelTasks != 8 {
		t.Errorf("expected max_parallel_tasks 8, got %d", cfg.Orchestrator.MaxParallelTasks)
	}

	if cfg.Orchestrator.TaskTimeout != 10*time.Minute {
		t.Errorf("expected task timeout 10m, got %v", cfg.Orchestrator.TaskTimeout)
	}

	if cfg.Orchestrator.TickInterval != time.Second {
		t.Errorf("expected tick interval 1s, got %v", cfg.Orchestrator.TickInterval)
	}

	if cfg.Orchestrator.MaxTaskRetries != 2 {
		t.Errorf("expected max task retries 2, got %d", cfg.Orchestrator.MaxTaskRetries)
	}

	if cfg.Orchestrator.Adaptive.WorkerRatio != 0.75 {
		t.Errorf("expected adaptive worker ratio 0.75, got %v", cfg.Orchestrator.Adaptive.WorkerRatio)
	}

	if cfg.Orchestrator.Adaptive.MinIndependent != 3 {
		t.Errorf("expected adaptive min independent 3, got %d", cfg.Orchestrator.Adaptive.MinIndependent)
	}

	if cfg.Resources.WorkerSlots != 6 {
		t.Errorf("expected worker slots 6, got %d", cfg.Resources.WorkerSlots)
	}

	if cfg.Negotiation.ResolveTimeout != 2*time.Minute {
		t.Errorf("expected negotiation resolve timeout 2m, got %v", cfg.Negotiation.ResolveTimeout)
	}

	if cfg.Provider.Model != "claude-opus-4-5-20251101" {
		t.Errorf("expected model claude-opus-4-5-20251101, got %q", cfg.Provider.Model)
	}

	if !cfg.Provider.UseAWSBedrock {
		t.Error("expected use_aws_bedrock true")
	}

	if cfg.WorkersFile != "crew.yaml" {
		t.Errorf("expected workers file crew.yaml, got %q", cfg.WorkersFile)
	}

	// Unset keys keep their defaults.
	if cfg.Orchestrator.WorkflowRetention != time.Hour {
		t.Errorf("expected default workflow retention 1h, got %v", cfg.Orchestrator.WorkflowRetention)
	}

	if cfg.Negotiation.SweepInterval != 30*time.Second {
		t.Errorf("expected default sweep interval 30s, got %v", cfg.Negotiation.SweepInterval)
	}
}

func TestExpandEnv(t *testing.T) {
	// Set environment variable
	os.Setenv("TEST_VAR", "expanded-value")
	defer os.Unsetenv("TEST_VAR")

	result := expandEnv("${TEST_VAR}")
	if result != "expanded-value" {
		t.Errorf("expected 'expanded-value', got %q", result)
	}

	result = expandEnv("prefix-${TEST_VAR}-suffix")
	if result != "prefix-expanded-value-suffix" {
		t.Errorf("expected 'prefix-expanded-value-suffix', got %q", result)
	}
}

func TestGetUserConfigDir(t *testing.T) {
	// Test with XDG_CONFIG_HOME set
	os.Setenv("XDG_CONFIG_HOME", "/custom/config")
	defer os.Unsetenv("XDG_CONFIG_HOME")

	dir := getUserConfigDir()
	expected := "/custom/config/autonomica"
	if dir != expected {
		t.Errorf("expected %q, got %q", expected, dir)
	}
}
