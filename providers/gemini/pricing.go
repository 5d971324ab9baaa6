package gemini

import (
	"regexp"
	"strings"

	"github.com/leofalp/gemkit/core/cost"
)

// ModelPricing holds list prices in USD per million tokens for the standard
// context tier (prompts up to 200k tokens).
// Source: https://ai.google.dev/gemini-api/docs/pricing
var ModelPricing = map[string]cost.ModelCost{
	Model25Pro: {
		InputCostPerMillion:       1.25,
		OutputCostPerMillion:      10.00,
		CachedInputCostPerMillion: 0.31,
		ThinkingCostPerMillion:    10.00,
	},
	Model25Flash: {
		InputCostPerMillion:       0.30,
		OutputCostPerMillion:      2.50,
		CachedInputCostPerMillion: 0.075,
		ThinkingCostPerMillion:    2.50,
	},
	Model25FlashLite: {
		InputCostPerMillion:       0.10,
		OutputCostPerMillion:      0.40,
		CachedInputCostPerMillion: 0.025,
		ThinkingCostPerMillion:    0.40,
	},
	Model20Flash: {
		InputCostPerMillion:       0.10,
		OutputCostPerMillion:      0.40,
		CachedInputCostPerMillion: 0.025,
	},
	Model20FlashLite: {
		InputCostPerMillion:  0.075,
		OutputCostPerMillion: 0.30,
	},
}

// versionSuffix matches the revision and preview tags appended to model ids,
// e.g. "-001", "-latest" or "-preview-05-20".
var versionSuffix = regexp.MustCompile(`-(\d{3}|latest|exp(-\d{4})?|preview(-\d{2}-\d{2})?)$`)

// LookupPricing returns the pricing of model. Resource prefixes and version
// suffixes are ignored, so "models/gemini-2.0-flash-001" resolves to
// gemini-2.0-flash. ok is false for unknown models.
func LookupPricing(model string) (mc cost.ModelCost, ok bool) {
	name := strings.TrimPrefix(strings.TrimSpace(model), "models/")
	if mc, ok = ModelPricing[name]; ok {
		return mc, true
	}
	mc, ok = ModelPricing[versionSuffix.ReplaceAllString(name, "")]
	return mc, ok
}

// EstimateCost prices one reply. Cached tokens are part of the prompt count
// and are billed at the cached rate instead of the input rate.
func EstimateCost(model string, usage Usage) (cost.Breakdown, bool) {
	mc, ok := LookupPricing(model)
	if !ok {
		return cost.Breakdown{}, false
	}
	uncached := max(usage.PromptTokens-usage.CachedTokens, 0)
	return mc.Breakdown(uncached, usage.CandidatesTokens, usage.CachedTokens, usage.ThoughtsTokens), true
}

// Cost estimates the price of this reply from its usage metadata. The
// request's model is used, falling back to the reported modelVersion.
func (r *Response) Cost() (cost.Breakdown, bool) {
	model := r.ModelVersion()
	if r.request != nil && r.request.model != "" {
		model = r.request.model
	}
	return EstimateCost(model, r.Usage())
}
