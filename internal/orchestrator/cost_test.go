package orchestrator

import (
	"math"
	"testing"
	"time"
)

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestTokenCostPerModel(t *testing.T) {
	c := NewCostModel(nil, 0)

	cases := []struct {
		model string
		want  float64
	}{
		{"claude-opus-4-5-20251101", 15.0 + 75.0},
		{"claude-sonnet-4-20250514", 3.0 + 15.0},
		{"claude-3-5-haiku-20241022", 0.8 + 4.0},
		{"mystery-model", 3.0 + 15.0},
	}
	for _, tc := range cases {
		got := c.TokenCost(tc.model, 1_000_000, 1_000_000)
		if !approxEqual(got, tc.want) {
			t.Errorf("TokenCost(%s) = %v, want %v", tc.model, got, tc.want)
		}
	}
}

func TestTimeCostBillsStartedMinutes(t *testing.T) {
	c := NewCostModel(nil, 0.001)

	cases := []struct {
		elapsed time.Duration
		want    float64
	}{
		{0, 0},
		{10 * time.Second, 0.001},
		{time.Minute, 0.001},
		{61 * time.Second, 0.002},
		{5 * time.Minute, 0.005},
	}
	for _, tc := range cases {
		if got := c.TimeCost(tc.elapsed); !approxEqual(got, tc.want) {
			t.Errorf("TimeCost(%s) = %v, want %v", tc.elapsed, got, tc.want)
		}
	}
}

func TestTaskCostCombinesTokensAndTime(t *testing.T) {
	c := NewCostModel(nil, 0.001)

	got := c.TaskCost("claude-sonnet-4-20250514", 1_000_000, 0, 90*time.Second)
	want := 3.0 + 0.002
	if !approxEqual(got, want) {
		t.Errorf("TaskCost = %v, want %v", got, want)
	}
}

func TestCustomPricingTable(t *testing.T) {
	c := NewCostModel(map[string]Pricing{
		"local": {InputPerMillion: 0, OutputPerMillion: 0},
	}, 0.001)

	if got := c.TokenCost("local-llm-7b", 5_000_000, 5_000_000); got != 0 {
		t.Errorf("TokenCost for free model = %v, want 0", got)
	}
}
