// Package matcher scores workers against tasks and selects the best
// eligible worker. Scoring is pure: the same worker set and task always
// produce the same result.
package matcher

import (
	"strings"
	"unicode"

	"github.com/jairodriguez/autonomica/pkg/models"
)

// Scoring weights. These are policy constants, kept in one place so tuning
// stays centralized.
const (
	// capabilityWeight multiplies the task/worker keyword overlap count.
	capabilityWeight = 1.5
	// toolSupersetBonus applies when the worker declares every required tool.
	toolSupersetBonus = 10.0
	// toolMatchBonus applies per required tool the worker declares.
	toolMatchBonus = 2.0
	// busyPenalty applies when the worker is currently busy.
	busyPenalty = 5.0
)

// TierTable maps model identifier fragments to quality bonuses. The highest
// bonus among matching fragments wins.
type TierTable map[string]float64

// DefaultTierTable returns the built-in model-quality bonuses.
func DefaultTierTable() TierTable {
	return TierTable{
		"opus":   3.5,
		"sonnet": 3.2,
		"haiku":  3.0,
	}
}

// Bonus returns the quality bonus for a model identifier, or 0 if no
// fragment matches.
func (tt TierTable) Bonus(model string) float64 {
	m := strings.ToLower(model)
	best := 0.0
	for fragment, bonus := range tt {
		if strings.Contains(m, fragment) && bonus > best {
			best = bonus
		}
	}
	return best
}

// Matcher scores workers against tasks using a configurable tier table.
type Matcher struct {
	tiers TierTable
}

// New creates a matcher. A nil table falls back to DefaultTierTable.
func New(tiers TierTable) *Matcher {
	if tiers == nil {
		tiers = DefaultTierTable()
	}
	return &Matcher{tiers: tiers}
}

// Score rates how well a worker fits a task. Higher is better. The score
// combines keyword overlap between the task text and the worker's declared
// role and description, tool coverage, current availability, and the
// worker's model tier.
func (m *Matcher) Score(worker *models.Worker, task *models.Task) float64 {
	score := 0.0

	taskTokens := tokenize(task.Title + " " + task.Description)
	workerTokens := tokenize(worker.Role + " " + worker.Description)
	overlap := 0
	for token := range taskTokens {
		if workerTokens[token] {
			overlap++
		}
	}
	score += float64(overlap) * capabilityWeight

	if len(task.RequiredTools) > 0 {
		matched := 0
		for _, tool := range task.RequiredTools {
			if worker.HasTool(tool) {
				matched++
			}
		}
		if matched == len(task.RequiredTools) {
			score += toolSupersetBonus
		}
		score += float64(matched) * toolMatchBonus
	}

	if worker.Status == models.WorkerStatusBusy {
		score -= busyPenalty
	}

	score += m.tiers.Bonus(worker.Model)

	return score
}

// Allocate returns the highest-scoring eligible worker for the task, or nil
// when none exists. Offline workers are never considered, and a task that
// declares required tools only matches workers declaring at least one of
// them. Ties are broken by first-seen order, so the result is stable for a
// given worker slice.
func (m *Matcher) Allocate(workers []*models.Worker, task *models.Task) *models.Worker {
	return m.AllocateExcluding(workers, task, "")
}

// AllocateExcluding is Allocate with one worker ID removed from
// consideration. Used to pick an alternate after a failed attempt.
func (m *Matcher) AllocateExcluding(workers []*models.Worker, task *models.Task, excludeID string) *models.Worker {
	var best *models.Worker
	bestScore := 0.0

	for _, worker := range workers {
		if worker.Status == models.WorkerStatusOffline {
			continue
		}
		if excludeID != "" && worker.ID == excludeID {
			continue
		}
		if !eligible(worker, task) {
			continue
		}
		score := m.Score(worker, task)
		if best == nil || score > bestScore {
			best = worker
			bestScore = score
		}
	}

	return best
}

// eligible reports whether a worker can be considered for the task at all.
// A task with required tools needs a worker matching at least one of them;
// full coverage is rewarded by Score, not demanded here.
func eligible(worker *models.Worker, task *models.Task) bool {
	if len(task.RequiredTools) == 0 {
		return true
	}
	for _, tool := range task.RequiredTools {
		if worker.HasTool(tool) {
			return true
		}
	}
	return false
}

// tokenize splits text into a set of lower-cased alphanumeric tokens.
func tokenize(text string) map[string]bool {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	tokens := make(map[string]bool, len(fields))
	for _, f := range fields {
		tokens[f] = true
	}
	return tokens
}
