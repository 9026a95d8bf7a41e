package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/jairodriguez/autonomica/internal/capability"
	"github.com/jairodriguez/autonomica/internal/config"
	"github.com/jairodriguez/autonomica/internal/orchestrator"
	"github.com/jairodriguez/autonomica/internal/state"
	"github.com/jairodriguez/autonomica/internal/tui"
	"github.com/jairodriguez/autonomica/pkg/models"
)

var (
	runMode        string
	runMaxParallel int
	runDryRun      bool
	runWatch       bool
	runTimeout     time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run <workflow.yaml>",
	Short: "Execute a workflow file",
	Long: `Execute a workflow file. The file declares tasks with dependencies;
autonomica validates the dependency graph, matches each task to the
best-scoring worker from workers.yaml, and drives execution in the
declared mode (sequential, parallel, or adaptive).

Workflow file format:
  name: report-pipeline
  mode: adaptive
  tasks:
    - title: fetch sources
      description: Collect source material for the report
      agent_type: research
      required_tools: [search]
    - title: write report
      description: Draft the report from the collected sources
      depends_on: [fetch sources]

Examples:
  autonomica run workflow.yaml                  # execute with live workers
  autonomica run workflow.yaml --watch          # full-screen dashboard
  autonomica run workflow.yaml --dry-run        # simulate, no API calls
  autonomica run workflow.yaml --mode parallel --max-parallel 6`,
	Args: cobra.ExactArgs(1),
	RunE: runWorkflow,
}

func init() {
	runCmd.Flags().StringVar(&runMode, "mode", "", "Execution mode: sequential, parallel, or adaptive (overrides the file)")
	runCmd.Flags().IntVar(&runMaxParallel, "max-parallel", 0, "Concurrent task limit in parallel mode (overrides the file)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Simulate task execution instead of calling the model provider")
	runCmd.Flags().BoolVar(&runWatch, "watch", false, "Show a full-screen dashboard while the workflow runs")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "Cancel the run after this duration (0 = no limit)")
}

// workflowFile is the on-disk shape of a workflow file.
type workflowFile struct {
	Name        string            `yaml:"name"`
	Mode        string            `yaml:"mode"`
	MaxParallel int               `yaml:"max_parallel"`
	Metadata    map[string]string `yaml:"metadata"`
	Tasks       []workflowTask    `yaml:"tasks"`
}

type workflowTask struct {
	Title             string   `yaml:"title"`
	Description       string   `yaml:"description"`
	AgentType         string   `yaml:"agent_type"`
	DependsOn         []string `yaml:"depends_on"`
	Priority          int      `yaml:"priority"`
	EstimatedDuration string   `yaml:"estimated_duration"`
	RequiredTools     []string `yaml:"required_tools"`
	SubTasks          []string `yaml:"subtasks"`
}

func runWorkflow(cmd *cobra.Command, args []string) error {
	path := args[0]
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("workflow not found: %s", path)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	req, err := loadWorkflowFile(path)
	if err != nil {
		return err
	}
	if runMode != "" {
		req.Mode = models.ExecutionMode(runMode)
	}
	if runMaxParallel > 0 {
		req.MaxParallel = runMaxParallel
	}

	invoker, err := buildInvoker(cfg)
	if err != nil {
		return err
	}

	opts := []orchestrator.Option{orchestrator.WithConfig(cfg)}
	if db := openHistory(); db != nil {
		defer db.Close()
		opts = append(opts, orchestrator.WithStore(db))
	}
	if debugMode {
		opts = append(opts, orchestrator.WithLogger(orchestrator.NewDebugLoggerForDir(".")))
	}

	orch := orchestrator.New(orchestrator.RequiredConfig{Invoker: invoker}, opts...)

	workers, err := config.LoadWorkersOrDefault(cfg.WorkersFile)
	if err != nil {
		return fmt.Errorf("loading workers: %w", err)
	}
	for _, w := range workers {
		if err := orch.RegisterWorker(w); err != nil {
			return fmt.Errorf("registering worker %s: %w", w.ID, err)
		}
	}
	watcher := config.WatchWorkers(cfg.WorkersFile, orch.ApplyWorkerFile)
	defer watcher.Close()

	wf, est, err := orch.SubmitWorkflow(req)
	if err != nil {
		return fmt.Errorf("submitting workflow: %w", err)
	}

	fmt.Println("=== Autonomica Run ===")
	fmt.Println()
	fmt.Printf("Workflow:   %s (%d tasks)\n", wf.Name, len(wf.TaskIDs))
	fmt.Printf("Mode:       %s\n", wf.Mode)
	fmt.Printf("Workers:    %d\n", orch.Workers().Count())
	fmt.Printf("Backend:    %s\n", backendName(cfg))
	fmt.Printf("Estimate:   ~%d tokens, $%.2f, %s\n", est.Tokens, est.Cost, est.Duration.Round(time.Second))
	fmt.Println()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if runTimeout > 0 {
		var tcancel context.CancelFunc
		ctx, tcancel = context.WithTimeout(ctx, runTimeout)
		defer tcancel()
	}

	// A cancelled context (signal or timeout) cancels the workflow so
	// in-flight tasks stop and the run settles as cancelled rather than
	// failed. Terminal workflows ignore the cancel.
	go func() {
		<-ctx.Done()
		_ = orch.CancelWorkflow(wf.ID)
	}()

	if runWatch {
		return runWithDashboard(ctx, orch, wf.ID, wf.Name)
	}
	return runPlain(ctx, orch, wf.ID)
}

// loadWorkflowFile parses a workflow file into a submission request. The
// workflow name defaults to the file name without its extension.
func loadWorkflowFile(path string) (orchestrator.WorkflowRequest, error) {
	var req orchestrator.WorkflowRequest

	data, err := os.ReadFile(path)
	if err != nil {
		return req, fmt.Errorf("reading workflow file: %w", err)
	}

	var file workflowFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return req, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(file.Tasks) == 0 {
		return req, fmt.Errorf("%s declares no tasks", path)
	}

	name := file.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	req = orchestrator.WorkflowRequest{
		Name:        name,
		Mode:        models.ExecutionMode(file.Mode),
		MaxParallel: file.MaxParallel,
		Metadata:    file.Metadata,
	}
	for i, t := range file.Tasks {
		spec := orchestrator.TaskSpec{
			Title:         t.Title,
			Description:   t.Description,
			AgentType:     t.AgentType,
			Dependencies:  t.DependsOn,
			Priority:      t.Priority,
			RequiredTools: t.RequiredTools,
			SubTasks:      t.SubTasks,
		}
		if t.EstimatedDuration != "" {
			d, err := time.ParseDuration(t.EstimatedDuration)
			if err != nil {
				return req, fmt.Errorf("task %d (%s): bad estimated_duration %q: %w", i, t.Title, t.EstimatedDuration, err)
			}
			spec.EstimatedDuration = d
		}
		req.Tasks = append(req.Tasks, spec)
	}
	return req, nil
}

// buildInvoker selects the task execution backend. Dry runs use the
// deterministic simulator; otherwise tasks go to the Anthropic API, which
// needs a key unless Bedrock carries the credentials.
func buildInvoker(cfg *config.Config) (capability.Invoker, error) {
	if runDryRun {
		return capability.NewSimulator(), nil
	}

	clientCfg := capability.ClientConfig{
		Model:         anthropic.Model(cfg.Provider.Model),
		UseAWSBedrock: cfg.Provider.UseAWSBedrock,
		AWSRegion:     cfg.Provider.AWSRegion,
		AWSProfile:    cfg.Provider.AWSProfile,
	}
	if !cfg.Provider.UseAWSBedrock {
		key, err := config.GetAPIKey(cfg)
		if err != nil {
			return nil, fmt.Errorf("%w\n\nSet ANTHROPIC_API_KEY, run 'autonomica config provider.api_key <key>',\nor pass --dry-run to simulate without a provider", err)
		}
		clientCfg.APIKey = key
	}
	return capability.NewAnthropic(clientCfg)
}

// openHistory opens the project-local run history database. History is
// best-effort: a failure disables persistence instead of blocking the run.
func openHistory() *state.DB {
	db, err := state.OpenProject(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: run history disabled: %v\n", err)
		return nil
	}
	if err := db.Migrate(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: run history disabled: %v\n", err)
		db.Close()
		return nil
	}
	return db
}

func backendName(cfg *config.Config) string {
	if runDryRun {
		return "simulator (dry run)"
	}
	if cfg.Provider.UseAWSBedrock {
		return "anthropic (aws bedrock)"
	}
	return "anthropic"
}

// runPlain executes the workflow while printing the event stream line by
// line, then prints a summary.
func runPlain(ctx context.Context, orch *orchestrator.Orchestrator, workflowID string) error {
	var printer sync.WaitGroup
	printer.Add(1)
	go func() {
		defer printer.Done()
		for ev := range orch.Events() {
			printEvent(ev)
		}
	}()

	execErr := orch.ExecuteWorkflow(ctx, workflowID)

	orch.Stop()
	printer.Wait()

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		fmt.Println()
		printStatus("⚠", fmt.Sprintf("run timed out after %s", runTimeout), color.FgYellow)
	case ctx.Err() != nil:
		fmt.Println()
		printStatus("⚠", "run interrupted", color.FgYellow)
	}

	printSummary(orch, workflowID)
	return execErr
}

// runWithDashboard executes the workflow behind the full-screen dashboard.
// Events are forwarded as they arrive; status and worker snapshots are
// polled. Quitting the dashboard before the workflow finishes cancels it.
func runWithDashboard(ctx context.Context, orch *orchestrator.Orchestrator, workflowID, title string) error {
	program, _ := tui.NewWatchProgram(title)

	var forward sync.WaitGroup
	forward.Add(1)
	go func() {
		defer forward.Done()
		for ev := range orch.Events() {
			program.Send(tui.EventMsg{Event: ev})
		}
	}()

	stopPoll := make(chan struct{})
	go func() {
		ticker := time.NewTicker(150 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stopPoll:
				return
			case <-ticker.C:
				if snapshot, err := orch.Status(workflowID); err == nil {
					program.Send(tui.StatusMsg{Snapshot: snapshot})
				}
				program.Send(tui.WorkersMsg{Workers: orch.Workers().List()})
			}
		}
	}()

	execDone := make(chan error, 1)
	go func() {
		err := orch.ExecuteWorkflow(ctx, workflowID)
		if snapshot, serr := orch.Status(workflowID); serr == nil {
			program.Send(tui.StatusMsg{Snapshot: snapshot})
		}
		program.Send(tui.DoneMsg{Err: err})
		execDone <- err
	}()

	_, runErr := program.Run()
	close(stopPoll)

	_ = orch.CancelWorkflow(workflowID)
	execErr := <-execDone

	orch.Stop()
	forward.Wait()

	printSummary(orch, workflowID)
	if runErr != nil {
		return fmt.Errorf("dashboard: %w", runErr)
	}
	return execErr
}

// printEvent renders one orchestrator event as a log line.
func printEvent(ev orchestrator.Event) {
	ts := ev.Timestamp.Format("15:04:05")
	switch ev.Type {
	case orchestrator.EventTaskCompleted, orchestrator.EventWorkflowCompleted:
		fmt.Printf("%s %s %s\n", ts, color.GreenString("✓"), ev.Message)
	case orchestrator.EventTaskFailed, orchestrator.EventWorkflowFailed:
		fmt.Printf("%s %s %s\n", ts, color.RedString("✗"), ev.Message)
	case orchestrator.EventTaskDeferred, orchestrator.EventConflictDetected, orchestrator.EventBudgetWarning:
		fmt.Printf("%s %s %s\n", ts, color.YellowString("⚠"), ev.Message)
	default:
		fmt.Printf("%s · %s\n", ts, ev.Message)
	}
}

// printSummary prints the final workflow accounting.
func printSummary(orch *orchestrator.Orchestrator, workflowID string) {
	snapshot, err := orch.Status(workflowID)
	if err != nil {
		return
	}

	var tokens int64
	for _, t := range snapshot.Tasks {
		tokens += t.Tokens
	}

	fmt.Println()
	fmt.Printf("Workflow: %s (%s)\n", snapshot.Name, statusLabel(snapshot.Status))
	fmt.Printf("  Tasks:  %d/%d completed", snapshot.Completed, snapshot.Total)
	if snapshot.Failed > 0 {
		fmt.Printf(", %d failed", snapshot.Failed)
	}
	if snapshot.Pending > 0 {
		fmt.Printf(", %d unscheduled", snapshot.Pending)
	}
	fmt.Println()
	fmt.Printf("  Tokens: %d\n", tokens)
	fmt.Printf("  Cost:   $%.4f\n", snapshot.TotalCost)
	if snapshot.StartedAt != nil && snapshot.CompletedAt != nil {
		fmt.Printf("  Time:   %s\n", snapshot.CompletedAt.Sub(*snapshot.StartedAt).Round(time.Second))
	}

	for _, t := range snapshot.Tasks {
		if t.Status == models.TaskStatusFailed {
			printStatus("✗", fmt.Sprintf("%s: %s", t.Title, t.Error), color.FgRed)
		}
	}
}

func statusLabel(status models.WorkflowStatus) string {
	switch status {
	case models.WorkflowStatusCompleted:
		return color.GreenString(string(status))
	case models.WorkflowStatusFailed:
		return color.RedString(string(status))
	case models.WorkflowStatusCancelled:
		return color.YellowString(string(status))
	default:
		return string(status)
	}
}
