package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jairodriguez/autonomica/internal/orchestrator"
	"github.com/jairodriguez/autonomica/pkg/models"
)

func TestWatchAppEventLogKeepsTail(t *testing.T) {
	app := NewWatchApp("demo")

	for i := 0; i < maxEventLines+4; i++ {
		app.Update(EventMsg{Event: orchestrator.Event{
			Type:      orchestrator.EventTaskStarted,
			Message:   "event " + string(rune('a'+i)),
			Timestamp: time.Now(),
		}})
	}

	if len(app.events) != maxEventLines {
		t.Fatalf("event log holds %d entries, want %d", len(app.events), maxEventLines)
	}
	if app.events[len(app.events)-1].message != "event "+string(rune('a'+maxEventLines+3)) {
		t.Errorf("newest event lost: %q", app.events[len(app.events)-1].message)
	}

	view := app.View()
	if !strings.Contains(view, "Events:") {
		t.Error("view missing the events section")
	}
}

func TestWatchAppQuitKeys(t *testing.T) {
	keys := map[string]tea.KeyMsg{
		"q":      {Type: tea.KeyRunes, Runes: []rune("q")},
		"ctrl+c": {Type: tea.KeyCtrlC},
	}
	for name, msg := range keys {
		app := NewWatchApp("demo")
		model, cmd := app.Update(msg)
		if !model.(*WatchApp).quitting {
			t.Errorf("key %q did not quit", name)
		}
		if cmd == nil {
			t.Fatalf("key %q returned no command", name)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("key %q command is not Quit", name)
		}
	}
}

func TestWatchAppRendersSnapshot(t *testing.T) {
	app := NewWatchApp("demo")

	app.Update(StatusMsg{Snapshot: &orchestrator.WorkflowStatusSnapshot{
		Name:      "report-pipeline",
		Status:    models.WorkflowStatusInProgress,
		Progress:  0.5,
		Total:     2,
		Completed: 1,
		TotalCost: 0.0123,
		Tasks: []orchestrator.TaskStatusSnapshot{
			{Title: "fetch", Status: models.TaskStatusCompleted, AssignedWorker: "w-1", Cost: 0.0123, Tokens: 640},
			{Title: "report", Status: models.TaskStatusPending},
		},
	}})
	app.Update(WorkersMsg{Workers: []*models.Worker{
		{Name: "Scout", Role: "research", Status: models.WorkerStatusBusy},
	}})

	view := app.View()
	for _, want := range []string{"report-pipeline", "1/2 tasks", "fetch", "Scout", "640 tokens", "$0.0123"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestWatchAppDoneStates(t *testing.T) {
	app := NewWatchApp("demo")
	app.Update(DoneMsg{Err: nil})
	if !strings.Contains(app.View(), "Workflow complete") {
		t.Error("view missing the success footer")
	}

	failed := NewWatchApp("demo")
	failed.Update(DoneMsg{Err: errors.New("2 of 3 tasks failed")})
	if !strings.Contains(failed.View(), "2 of 3 tasks failed") {
		t.Error("view missing the failure detail")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 28); got != "short" {
		t.Errorf("truncate(short) = %q", got)
	}
	long := strings.Repeat("x", 40)
	got := truncate(long, 28)
	if len([]rune(got)) != 28 || !strings.HasSuffix(got, "...") {
		t.Errorf("truncate(long) = %q", got)
	}
}
