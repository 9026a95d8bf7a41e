package capability

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aws/aws-sdk-go-v2/config"

	"github.com/jairodriguez/autonomica/pkg/models"
)

const defaultMaxTokens = 8192

// ClientConfig contains configuration for creating an Anthropic invoker.
type ClientConfig struct {
	// Model is the default model when a worker does not name one.
	Model anthropic.Model
	// APIKey is the Anthropic API key. If empty, uses ANTHROPIC_API_KEY env var.
	APIKey string
	// UseAWSBedrock indicates whether to use AWS Bedrock instead of direct API.
	UseAWSBedrock bool
	// AWSRegion is the AWS region for Bedrock (e.g., "us-west-2").
	AWSRegion string
	// AWSProfile is the optional AWS profile name to use.
	AWSProfile string
	// MaxTokens caps the response size per invocation; 0 uses the default.
	MaxTokens int64
}

var _ Invoker = (*Anthropic)(nil)

// Anthropic invokes tasks against the Anthropic API with token tracking.
type Anthropic struct {
	inner     anthropic.Client
	model     anthropic.Model
	bedrock   bool
	maxTokens int64
	tracker   *TokenTracker
}

// NewAnthropic creates an Anthropic-backed invoker.
func NewAnthropic(cfg ClientConfig) (*Anthropic, error) {
	var opts []option.RequestOption

	if cfg.UseAWSBedrock {
		ctx := context.Background()

		var loadOpts []func(*config.LoadOptions) error
		if cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, config.WithRegion(cfg.AWSRegion))
		}
		if cfg.AWSProfile != "" {
			loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.AWSProfile))
		}

		opts = append(opts, bedrock.WithLoadDefaultConfig(ctx, loadOpts...))
	} else {
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
		}
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	inner := anthropic.NewClient(opts...)

	model := cfg.Model
	if model == "" {
		model = anthropic.ModelClaudeSonnet4_20250514
	}
	if cfg.UseAWSBedrock {
		model = translateModelForBedrock(model)
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &Anthropic{
		inner:     inner,
		model:     model,
		bedrock:   cfg.UseAWSBedrock,
		maxTokens: maxTokens,
		tracker:   NewTokenTracker(),
	}, nil
}

// Invoke sends the task to the model as a single message exchange and
// returns the text response with usage.
func (a *Anthropic) Invoke(ctx context.Context, req Request) (*Result, error) {
	if req.Task == nil {
		return nil, fmt.Errorf("invoke: nil task")
	}

	model := a.modelFor(req.Worker)
	system := req.System
	if system == "" {
		system = personaPrompt(req.Worker)
	}

	resp, err := a.inner.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     model,
		MaxTokens: a.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(taskPrompt(req.Task))),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("invoke task %s: %w", req.Task.ID, err)
	}

	a.tracker.Add(resp.Usage.InputTokens, resp.Usage.OutputTokens)

	var output strings.Builder
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			output.WriteString(variant.Text)
		}
	}

	return &Result{
		Output:       output.String(),
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
		Model:        string(model),
	}, nil
}

// Tracker returns the cumulative token tracker for this invoker.
func (a *Anthropic) Tracker() *TokenTracker {
	return a.tracker
}

// modelFor picks the worker's model when set, translated for Bedrock if
// this invoker routes through it.
func (a *Anthropic) modelFor(worker *models.Worker) anthropic.Model {
	if worker == nil || worker.Model == "" {
		return a.model
	}
	model := anthropic.Model(worker.Model)
	if a.bedrock {
		model = translateModelForBedrock(model)
	}
	return model
}

// personaPrompt builds the system prompt from the worker definition.
func personaPrompt(worker *models.Worker) string {
	if worker == nil {
		return "You are a worker completing assigned tasks."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, a %s.", worker.Name, worker.Role)
	if worker.Description != "" {
		fmt.Fprintf(&b, " %s", worker.Description)
	}
	if len(worker.Tools) > 0 {
		fmt.Fprintf(&b, "\nAvailable tools: %s.", strings.Join(worker.Tools, ", "))
	}
	b.WriteString("\nComplete the assigned task and report the outcome concisely.")
	return b.String()
}

// taskPrompt renders the task as the user message.
func taskPrompt(task *models.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s", task.Title)
	if task.Description != "" {
		fmt.Fprintf(&b, "\n\n%s", task.Description)
	}
	if len(task.RequiredTools) > 0 {
		fmt.Fprintf(&b, "\n\nRequired tools: %s", strings.Join(task.RequiredTools, ", "))
	}
	if len(task.SubTasks) > 0 {
		b.WriteString("\n\nSubtasks:")
		for _, sub := range task.SubTasks {
			fmt.Fprintf(&b, "\n- %s", sub.Title)
			if sub.Description != "" {
				fmt.Fprintf(&b, ": %s", sub.Description)
			}
		}
	}
	return b.String()
}

// translateModelForBedrock converts standard Anthropic model names to Bedrock inference profile format.
// Bedrock uses cross-region inference profiles: us.anthropic.{model}-v1:0
func translateModelForBedrock(model anthropic.Model) anthropic.Model {
	bedrockModels := map[anthropic.Model]string{
		anthropic.ModelClaudeSonnet4_20250514:   "us.anthropic.claude-sonnet-4-20250514-v1:0",
		anthropic.ModelClaudeSonnet4_5_20250929: "us.anthropic.claude-sonnet-4-5-20250929-v1:0",
		anthropic.ModelClaudeHaiku4_5_20251001:  "us.anthropic.claude-haiku-4-5-20251001-v1:0",
		anthropic.ModelClaudeOpus4_1_20250805:   "us.anthropic.claude-opus-4-1-20250805-v1:0",
		anthropic.ModelClaudeOpus4_5_20251101:   "us.anthropic.claude-opus-4-5-20251101-v1:0",
		anthropic.ModelClaude3_7Sonnet20250219:  "us.anthropic.claude-3-7-sonnet-20250219-v1:0",
		anthropic.ModelClaude3_5Haiku20241022:   "us.anthropic.claude-3-5-haiku-20241022-v1:0",
	}

	if bedrockModel, ok := bedrockModels[model]; ok {
		return anthropic.Model(bedrockModel)
	}

	// Not in the map: may already be Bedrock format or a custom model.
	return model
}

// TokenTracker tracks token usage across invocations.
type TokenTracker struct {
	mu        sync.Mutex
	inputTok  int64
	outputTok int64
	calls     int
}

// NewTokenTracker creates a new token tracker.
func NewTokenTracker() *TokenTracker {
	return &TokenTracker{}
}

// Add records token usage from an invocation.
func (t *TokenTracker) Add(input, output int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inputTok += input
	t.outputTok += output
	t.calls++
}

// Total returns the total input and output tokens tracked.
func (t *TokenTracker) Total() (input, output int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inputTok, t.outputTok
}

// Calls returns the number of invocations made.
func (t *TokenTracker) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

// Reset clears all tracked token usage.
func (t *TokenTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inputTok = 0
	t.outputTok = 0
	t.calls = 0
}
