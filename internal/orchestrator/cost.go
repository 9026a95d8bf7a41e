package orchestrator

import (
	"strings"
	"time"
)

// defaultUtilizationRate is the dollar charge per started minute of worker
// time, on top of token cost.
const defaultUtilizationRate = 0.001

// Pricing is the dollar rate per million tokens for one model family.
type Pricing struct {
	// InputPerMillion is the dollar cost per million input tokens.
	InputPerMillion float64
	// OutputPerMillion is the dollar cost per million output tokens.
	OutputPerMillion float64
}

// DefaultModelPricing returns the built-in rate table. Keys are matched as
// substrings of the model ID, so "claude-sonnet-4-20250514" hits "sonnet".
func DefaultModelPricing() map[string]Pricing {
	return map[string]Pricing{
		"opus":   {InputPerMillion: 15.0, OutputPerMillion: 75.0},
		"sonnet": {InputPerMillion: 3.0, OutputPerMillion: 15.0},
		"haiku":  {InputPerMillion: 0.8, OutputPerMillion: 4.0},
	}
}

// CostModel computes dollar costs from token usage and elapsed time.
// The pricing table and utilization rate are injectable so deployments can
// track provider price changes without a rebuild.
type CostModel struct {
	pricing         map[string]Pricing
	utilizationRate float64
}

// NewCostModel creates a cost model. A nil pricing table uses the default;
// a non-positive rate uses the default utilization rate.
func NewCostModel(pricing map[string]Pricing, utilizationRate float64) *CostModel {
	if pricing == nil {
		pricing = DefaultModelPricing()
	}
	if utilizationRate <= 0 {
		utilizationRate = defaultUtilizationRate
	}
	return &CostModel{pricing: pricing, utilizationRate: utilizationRate}
}

// pricingFor finds the rate for a model ID by substring match.
// Unknown models are billed at the sonnet-class rate.
func (c *CostModel) pricingFor(model string) Pricing {
	lower := strings.ToLower(model)
	for key, p := range c.pricing {
		if strings.Contains(lower, key) {
			return p
		}
	}
	return Pricing{InputPerMillion: 3.0, OutputPerMillion: 15.0}
}

// TokenCost returns the dollar cost of the given token usage.
func (c *CostModel) TokenCost(model string, inputTokens, outputTokens int64) float64 {
	p := c.pricingFor(model)
	return float64(inputTokens)/1_000_000*p.InputPerMillion +
		float64(outputTokens)/1_000_000*p.OutputPerMillion
}

// TimeCost returns the utilization charge for holding a worker, billed per
// started minute.
func (c *CostModel) TimeCost(elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	minutes := int64(elapsed / time.Minute)
	if elapsed%time.Minute > 0 {
		minutes++
	}
	return float64(minutes) * c.utilizationRate
}

// TaskCost returns the full dollar cost of one task execution.
func (c *CostModel) TaskCost(model string, inputTokens, outputTokens int64, elapsed time.Duration) float64 {
	return c.TokenCost(model, inputTokens, outputTokens) + c.TimeCost(elapsed)
}
