package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jairodriguez/autonomica/pkg/models"
)

// workersFile is the on-disk shape of workers.yaml.
type workersFile struct {
	Workers []workerSpec `yaml:"workers"`
}

type workerSpec struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Role        string   `yaml:"role"`
	Description string   `yaml:"description"`
	Tools       []string `yaml:"tools"`
	Model       string   `yaml:"model"`
	Status      string   `yaml:"status"`
}

// LoadWorkers reads worker definitions from a workers.yaml file. IDs must
// be present and unique; status defaults to idle when omitted.
func LoadWorkers(path string) ([]*models.Worker, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading workers file: %w", err)
	}

	var file workersFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	workers := make([]*models.Worker, 0, len(file.Workers))
	seen := make(map[string]bool)
	for i, spec := range file.Workers {
		if spec.ID == "" {
			return nil, fmt.Errorf("worker %d in %s: missing id", i, path)
		}
		if seen[spec.ID] {
			return nil, fmt.Errorf("worker %d in %s: duplicate id %q", i, path, spec.ID)
		}
		seen[spec.ID] = true

		status := models.WorkerStatus(spec.Status)
		if spec.Status == "" {
			status = models.WorkerStatusIdle
		}
		if !status.Valid() {
			return nil, fmt.Errorf("worker %q in %s: invalid status %q", spec.ID, path, spec.Status)
		}

		name := spec.Name
		if name == "" {
			name = spec.ID
		}

		workers = append(workers, &models.Worker{
			ID:          spec.ID,
			Name:        name,
			Role:        spec.Role,
			Description: spec.Description,
			Status:      status,
			Tools:       spec.Tools,
			Model:       spec.Model,
		})
	}

	return workers, nil
}

// LoadWorkersOrDefault loads workers from path, falling back to the
// built-in crew when the file does not exist. Parse errors still fail.
func LoadWorkersOrDefault(path string) ([]*models.Worker, error) {
	workers, err := LoadWorkers(path)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultWorkers(), nil
	}
	return workers, err
}

// DefaultWorkers returns the built-in worker crew used when no
// workers.yaml is present.
func DefaultWorkers() []*models.Worker {
	return []*models.Worker{
		{
			ID:          "worker-planner",
			Name:        "Planner",
			Role:        "planning and decomposition",
			Description: "Breaks goals into ordered tasks and tracks dependencies between them.",
			Status:      models.WorkerStatusIdle,
			Tools:       []string{"search", "notes"},
			Model:       "claude-opus-4-5-20251101",
		},
		{
			ID:          "worker-builder",
			Name:        "Builder",
			Role:        "implementation",
			Description: "Implements tasks end to end and reports concrete results.",
			Status:      models.WorkerStatusIdle,
			Tools:       []string{"editor", "shell", "git"},
			Model:       "claude-sonnet-4-5-20250929",
		},
		{
			ID:          "worker-reviewer",
			Name:        "Reviewer",
			Role:        "review and verification",
			Description: "Checks completed work against the task description and flags gaps.",
			Status:      models.WorkerStatusIdle,
			Tools:       []string{"editor", "test-runner"},
			Model:       "claude-haiku-4-5-20251001",
		},
	}
}
