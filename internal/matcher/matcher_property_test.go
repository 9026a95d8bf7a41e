package matcher

import (
	"fmt"
	"testing"

	"pgregory.net/rapid"

	"github.com/jairodriguez/autonomica/pkg/models"
)

// Allocate is deterministic: the same worker set and task always yield the
// same worker, and an offline worker is never returned.
func TestAllocateDeterminismProperty(t *testing.T) {
	statuses := []models.WorkerStatus{
		models.WorkerStatusIdle, models.WorkerStatusBusy, models.WorkerStatusOffline,
	}
	toolNames := []string{"search", "browser", "filesystem", "code", "math"}

	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 8).Draw(t, "workerCount")
		workers := make([]*models.Worker, n)
		for i := 0; i < n; i++ {
			var tools []string
			for _, name := range toolNames {
				if rapid.Bool().Draw(t, "hasTool") {
					tools = append(tools, name)
				}
			}
			workers[i] = &models.Worker{
				ID:     fmt.Sprintf("w%d", i),
				Role:   rapid.SampledFrom([]string{"research analyst", "builder", "reviewer", ""}).Draw(t, "role"),
				Status: statuses[rapid.IntRange(0, 2).Draw(t, "status")],
				Tools:  tools,
				Model:  rapid.SampledFrom([]string{"claude-opus-4-5", "claude-sonnet-4", "claude-3-5-haiku", ""}).Draw(t, "model"),
			}
		}

		task := &models.Task{
			Title:         rapid.SampledFrom([]string{"research the market", "build the index", "review output"}).Draw(t, "title"),
			RequiredTools: []string{toolNames[rapid.IntRange(0, 4).Draw(t, "reqTool")]},
		}

		m := New(nil)
		first := m.Allocate(workers, task)
		for i := 0; i < 5; i++ {
			again := m.Allocate(workers, task)
			if first != again {
				t.Fatalf("Allocate not deterministic: %v then %v", first, again)
			}
		}

		if first != nil && first.Status == models.WorkerStatusOffline {
			t.Fatalf("Allocate returned offline worker %s", first.ID)
		}
	})
}
