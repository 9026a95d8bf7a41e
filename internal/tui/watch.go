package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jairodriguez/autonomica/internal/orchestrator"
	"github.com/jairodriguez/autonomica/pkg/models"
)

// maxEventLines is how many trailing events the activity log shows.
const maxEventLines = 8

// StatusMsg carries a fresh workflow status snapshot.
type StatusMsg struct {
	Snapshot *orchestrator.WorkflowStatusSnapshot
}

// WorkersMsg carries the current worker registry contents.
type WorkersMsg struct {
	Workers []*models.Worker
}

// EventMsg carries one orchestrator event into the log.
type EventMsg struct {
	Event orchestrator.Event
}

// DoneMsg is sent when the watched workflow reaches a terminal state.
type DoneMsg struct {
	Err error
}

// eventLine is one rendered entry in the activity log.
type eventLine struct {
	at      time.Time
	kind    orchestrator.EventType
	message string
}

// WatchApp is the bubbletea model for the watch dashboard.
type WatchApp struct {
	title    string
	spinner  spinner.Model
	snapshot *orchestrator.WorkflowStatusSnapshot
	workers  []*models.Worker
	events   []eventLine
	width    int
	quitting bool
	done     bool
	err      error

	// Styles
	headerStyle   lipgloss.Style
	labelStyle    lipgloss.Style
	valueStyle    lipgloss.Style
	dimStyle      lipgloss.Style
	runningStyle  lipgloss.Style
	doneStyle     lipgloss.Style
	failStyle     lipgloss.Style
	warnStyle     lipgloss.Style
	progressFull  lipgloss.Style
	progressEmpty lipgloss.Style
}

// NewWatchApp creates a watch dashboard for the named workflow.
func NewWatchApp(title string) *WatchApp {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return &WatchApp{
		title:   title,
		spinner: sp,

		headerStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")),

		labelStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(10),

		valueStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true),

		dimStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),

		runningStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")),

		doneStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("34")),

		failStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")),

		warnStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true),

		progressFull: lipgloss.NewStyle().
			Foreground(lipgloss.Color("34")),

		progressEmpty: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),
	}
}

// Init implements tea.Model.
func (a *WatchApp) Init() tea.Cmd {
	return a.spinner.Tick
}

// Update implements tea.Model.
func (a *WatchApp) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			a.quitting = true
			return a, tea.Quit
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case StatusMsg:
		a.snapshot = msg.Snapshot

	case WorkersMsg:
		a.workers = msg.Workers

	case EventMsg:
		a.events = append(a.events, eventLine{
			at:      msg.Event.Timestamp,
			kind:    msg.Event.Type,
			message: msg.Event.Message,
		})
		if len(a.events) > maxEventLines {
			a.events = a.events[len(a.events)-maxEventLines:]
		}

	case DoneMsg:
		a.done = true
		a.err = msg.Err
		// Keep the final state on screen until the user quits.
	}

	return a, nil
}

// View implements tea.Model.
func (a *WatchApp) View() string {
	if a.quitting {
		return "Watch closed.\n"
	}

	var b strings.Builder

	b.WriteString(a.headerStyle.Render("=== Autonomica ==="))
	b.WriteString("\n\n")

	b.WriteString(a.renderWorkflow())
	b.WriteString(a.renderTasks())
	b.WriteString(a.renderWorkers())
	b.WriteString(a.renderEvents())
	b.WriteString(a.renderFooter())

	return b.String()
}

// renderWorkflow renders the workflow headline and progress bar.
func (a *WatchApp) renderWorkflow() string {
	var b strings.Builder

	name := a.title
	status := "starting"
	if a.snapshot != nil {
		name = a.snapshot.Name
		status = string(a.snapshot.Status)
	}

	marker := a.spinner.View()
	statusStyle := a.runningStyle
	switch {
	case a.done && a.err == nil:
		marker = a.doneStyle.Render("✓")
		statusStyle = a.doneStyle
	case a.done:
		marker = a.failStyle.Render("✗")
		statusStyle = a.failStyle
	}

	b.WriteString(fmt.Sprintf("%s %s  %s\n", marker, a.valueStyle.Render(name), statusStyle.Render(status)))

	if a.snapshot != nil {
		pct := a.snapshot.Progress * 100
		b.WriteString(fmt.Sprintf("  %s  %d/%d tasks (%.0f%%)\n",
			a.renderProgressBar(pct, 24), a.snapshot.Completed, a.snapshot.Total, pct))
	}
	b.WriteString("\n")
	return b.String()
}

// renderTasks renders one line per task with a status glyph.
func (a *WatchApp) renderTasks() string {
	if a.snapshot == nil || len(a.snapshot.Tasks) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(a.labelStyle.Render("Tasks:"))
	b.WriteString("\n")
	for _, task := range a.snapshot.Tasks {
		glyph, style := a.taskGlyph(task.Status)
		line := fmt.Sprintf("  %s %-28s", style.Render(glyph), truncate(task.Title, 28))
		if task.AssignedWorker != "" {
			line += "  " + a.dimStyle.Render(task.AssignedWorker)
		}
		if task.Cost > 0 {
			line += "  " + a.dimStyle.Render(fmt.Sprintf("$%.4f", task.Cost))
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return b.String()
}

// renderWorkers renders the worker strip with colored status dots.
func (a *WatchApp) renderWorkers() string {
	if len(a.workers) == 0 {
		return ""
	}

	var parts []string
	for _, w := range a.workers {
		dot := a.doneStyle.Render("●")
		switch w.Status {
		case models.WorkerStatusBusy:
			dot = a.runningStyle.Render("●")
		case models.WorkerStatusOffline:
			dot = a.failStyle.Render("●")
		}
		parts = append(parts, fmt.Sprintf("%s %s (%s)", dot, w.Name, w.Role))
	}

	var b strings.Builder
	b.WriteString(a.labelStyle.Render("Workers:"))
	b.WriteString("\n  ")
	b.WriteString(strings.Join(parts, "   "))
	b.WriteString("\n\n")
	return b.String()
}

// renderEvents renders the trailing activity log.
func (a *WatchApp) renderEvents() string {
	if len(a.events) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(a.labelStyle.Render("Events:"))
	b.WriteString("\n")
	for _, ev := range a.events {
		ts := a.dimStyle.Render(ev.at.Format("15:04:05"))
		kind := lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Width(20).
			Render(string(ev.kind))
		b.WriteString(fmt.Sprintf("  %s %s %s\n", ts, kind, truncate(ev.message, 60)))
	}
	b.WriteString("\n")
	return b.String()
}

// renderFooter renders the totals line and the quit hint or final outcome.
func (a *WatchApp) renderFooter() string {
	var b strings.Builder

	if a.snapshot != nil {
		var tokens int64
		for _, task := range a.snapshot.Tasks {
			tokens += task.Tokens
		}
		b.WriteString(a.dimStyle.Render(fmt.Sprintf("%d/%d tasks · %d tokens · $%.4f",
			a.snapshot.Completed, a.snapshot.Total, tokens, a.snapshot.TotalCost)))
		b.WriteString("\n")
	}

	switch {
	case a.done && a.err != nil:
		b.WriteString(a.failStyle.Render(fmt.Sprintf("Failed: %v", a.err)))
		b.WriteString(a.dimStyle.Render("  press q to exit"))
	case a.done:
		b.WriteString(a.doneStyle.Render("Workflow complete."))
		b.WriteString(a.dimStyle.Render("  press q to exit"))
	default:
		b.WriteString(a.dimStyle.Render("press q to quit"))
	}
	b.WriteString("\n")
	return b.String()
}

// taskGlyph maps a task status to its display glyph and style.
func (a *WatchApp) taskGlyph(status models.TaskStatus) (string, lipgloss.Style) {
	switch status {
	case models.TaskStatusCompleted:
		return "✓", a.doneStyle
	case models.TaskStatusFailed:
		return "✗", a.failStyle
	case models.TaskStatusInProgress:
		return "▸", a.runningStyle
	case models.TaskStatusCancelled:
		return "⊘", a.dimStyle
	default:
		return "·", a.dimStyle
	}
}

// renderProgressBar renders a fixed-width progress bar.
func (a *WatchApp) renderProgressBar(pct float64, width int) string {
	if pct > 100 {
		pct = 100
	}
	if pct < 0 {
		pct = 0
	}

	filled := int(pct / 100 * float64(width))
	empty := width - filled

	return a.progressFull.Render(strings.Repeat("█", filled)) +
		a.progressEmpty.Render(strings.Repeat("░", empty))
}

// truncate shortens a string to at most n runes, with an ellipsis.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

// NewWatchProgram creates a Bubbletea program for the watch dashboard.
func NewWatchProgram(title string) (*tea.Program, *WatchApp) {
	app := NewWatchApp(title)
	p := tea.NewProgram(app, tea.WithAltScreen())
	return p, app
}
