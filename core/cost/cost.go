package cost

import (
	"fmt"
)

const tokensPerMillion = 1_000_000.0

// ModelCost represents the pricing structure for a language model.
// Costs are expressed in USD per million tokens.
//
// Example usage:
//
//	modelCost := cost.ModelCost{
//	    InputCostPerMillion:       0.30,
//	    OutputCostPerMillion:      2.50,
//	    CachedInputCostPerMillion: 0.075,
//	    ThinkingCostPerMillion:    2.50,
//	}
type ModelCost struct {
	// InputCostPerMillion is the cost in USD per 1 million uncached input tokens
	InputCostPerMillion float64 `json:"input_cost_per_million" yaml:"input_cost_per_million"`

	// OutputCostPerMillion is the cost in USD per 1 million output tokens
	OutputCostPerMillion float64 `json:"output_cost_per_million" yaml:"output_cost_per_million"`

	// CachedInputCostPerMillion is the discounted rate for input tokens served
	// from the context cache (optional)
	CachedInputCostPerMillion float64 `json:"cached_input_cost_per_million,omitempty" yaml:"cached_input_cost_per_million,omitempty"`

	// ThinkingCostPerMillion is the rate for thinking tokens (optional)
	ThinkingCostPerMillion float64 `json:"thinking_cost_per_million,omitempty" yaml:"thinking_cost_per_million,omitempty"`
}

func perMillion(tokens int, rate float64) float64 {
	if tokens <= 0 {
		return 0
	}
	return (float64(tokens) / tokensPerMillion) * rate
}

// CalculateInputCost calculates the cost for the given number of input tokens.
func (mc ModelCost) CalculateInputCost(tokens int) float64 {
	return perMillion(tokens, mc.InputCostPerMillion)
}

// CalculateOutputCost calculates the cost for the given number of output tokens.
func (mc ModelCost) CalculateOutputCost(tokens int) float64 {
	return perMillion(tokens, mc.OutputCostPerMillion)
}

// CalculateCachedCost calculates the cost for the given number of cached tokens.
func (mc ModelCost) CalculateCachedCost(tokens int) float64 {
	return perMillion(tokens, mc.CachedInputCostPerMillion)
}

// CalculateThinkingCost calculates the cost for the given number of thinking
// tokens.
func (mc ModelCost) CalculateThinkingCost(tokens int) float64 {
	return perMillion(tokens, mc.ThinkingCostPerMillion)
}

// CalculateTotalCost calculates the total cost for all token types.
func (mc ModelCost) CalculateTotalCost(inputTokens, outputTokens, cachedTokens, thinkingTokens int) float64 {
	return mc.Breakdown(inputTokens, outputTokens, cachedTokens, thinkingTokens).Total
}

// Breakdown prices each token class separately.
func (mc ModelCost) Breakdown(inputTokens, outputTokens, cachedTokens, thinkingTokens int) Breakdown {
	b := Breakdown{
		Input:    mc.CalculateInputCost(inputTokens),
		Output:   mc.CalculateOutputCost(outputTokens),
		Cached:   mc.CalculateCachedCost(cachedTokens),
		Thinking: mc.CalculateThinkingCost(thinkingTokens),
	}
	b.Total = b.Input + b.Output + b.Cached + b.Thinking
	return b
}

// IsZero reports whether no rate is set.
func (mc ModelCost) IsZero() bool {
	return mc == ModelCost{}
}

// String returns a formatted string representation of the model costs.
func (mc ModelCost) String() string {
	return fmt.Sprintf("Input: $%.6f/M, Output: $%.6f/M",
		mc.InputCostPerMillion, mc.OutputCostPerMillion)
}

// Breakdown is a USD estimate split by token class.
type Breakdown struct {
	Input    float64 `json:"input"`
	Output   float64 `json:"output"`
	Cached   float64 `json:"cached"`
	Thinking float64 `json:"thinking"`
	Total    float64 `json:"total"`
}

// Add returns the sum of b and other.
func (b Breakdown) Add(other Breakdown) Breakdown {
	return Breakdown{
		Input:    b.Input + other.Input,
		Output:   b.Output + other.Output,
		Cached:   b.Cached + other.Cached,
		Thinking: b.Thinking + other.Thinking,
		Total:    b.Total + other.Total,
	}
}

// String formats the total in USD.
func (b Breakdown) String() string {
	return fmt.Sprintf("$%.6f", b.Total)
}
