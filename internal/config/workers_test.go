package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jairodriguez/autonomica/pkg/models"
)

func TestLoadWorkers(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "workers.yaml")

	content := `
workers:
  - id: w1
    name: Ada
    role: backend engineer
    description: Owns service internals.
    tools: [git, docker]
    model: claude-sonnet-4-5-20250929
  - id: w2
    role: reviewer
    status: offline
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write workers file: %v", err)
	}

	workers, err := LoadWorkers(path)
	if err != nil {
		t.Fatalf("LoadWorkers failed: %v", err)
	}

	if len(workers) != 2 {
		t.Fatalf("expected 2 workers, got %d", len(workers))
	}

	if workers[0].ID != "w1" || workers[0].Name != "Ada" {
		t.Errorf("worker 0 = %s/%s, want w1/Ada", workers[0].ID, workers[0].Name)
	}
	if workers[0].Status != models.WorkerStatusIdle {
		t.Errorf("worker 0 status = %q, want idle default", workers[0].Status)
	}
	if !workers[0].HasTool("docker") {
		t.Error("worker 0 should declare docker")
	}

	// Name falls back to the ID when omitted.
	if workers[1].Name != "w2" {
		t.Errorf("worker 1 name = %q, want id fallback", workers[1].Name)
	}
	if workers[1].Status != models.WorkerStatusOffline {
		t.Errorf("worker 1 status = %q, want offline", workers[1].Status)
	}
}

func TestLoadWorkersRejectsBadEntries(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing id", "workers:\n  - name: Ada\n    role: engineer\n"},
		{"duplicate id", "workers:\n  - id: w1\n  - id: w1\n"},
		{"invalid status", "workers:\n  - id: w1\n    status: sleeping\n"},
		{"malformed yaml", "workers: [:::\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "workers.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatalf("failed to write workers file: %v", err)
			}

			if _, err := LoadWorkers(path); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestLoadWorkersOrDefault(t *testing.T) {
	t.Run("missing file falls back", func(t *testing.T) {
		workers, err := LoadWorkersOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(workers) == 0 {
			t.Fatal("expected the built-in crew")
		}
	})

	t.Run("broken file still fails", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "workers.yaml")
		if err := os.WriteFile(path, []byte("workers: [:::\n"), 0644); err != nil {
			t.Fatalf("failed to write workers file: %v", err)
		}

		if _, err := LoadWorkersOrDefault(path); err == nil {
			t.Error("expected parse error to surface")
		}
	})
}

func TestDefaultWorkers(t *testing.T) {
	workers := DefaultWorkers()

	if len(workers) != 3 {
		t.Fatalf("expected 3 default workers, got %d", len(workers))
	}

	seen := make(map[string]bool)
	for _, w := range workers {
		if w.ID == "" || w.Role == "" {
			t.Errorf("default worker %+v missing id or role", w)
		}
		if seen[w.ID] {
			t.Errorf("duplicate default worker id %q", w.ID)
		}
		seen[w.ID] = true
		if w.Status != models.WorkerStatusIdle {
			t.Errorf("default worker %s status = %q, want idle", w.ID, w.Status)
		}
		if w.Model == "" {
			t.Errorf("default worker %s has no model", w.ID)
		}
	}
}
