package cli

import (
	"sync"

	"github.com/leofalp/gemkit/core/cost"
	"github.com/leofalp/gemkit/providers/gemini"
)

// costTracker sums usage and estimated cost over every turn of a run.
type costTracker struct {
	mu        sync.Mutex
	overrides map[string]cost.ModelCost
	usage     gemini.Usage
	total     cost.Breakdown
	turns     int
	unpriced  int
}

func newCostTracker(overrides map[string]cost.ModelCost) *costTracker {
	return &costTracker{overrides: overrides}
}

func (t *costTracker) pricing(model string) (cost.ModelCost, bool) {
	if mc, ok := t.overrides[model]; ok {
		return mc, true
	}
	return gemini.LookupPricing(model)
}

// record is installed as a CaptureOnSuccess hook.
func (t *costTracker) record(resp *gemini.Response) {
	usage := resp.Usage()
	model := resp.ModelVersion()
	if req := resp.Request(); req != nil {
		model = req.Model()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.turns++
	t.usage.PromptTokens += usage.PromptTokens
	t.usage.CandidatesTokens += usage.CandidatesTokens
	t.usage.ThoughtsTokens += usage.ThoughtsTokens
	t.usage.CachedTokens += usage.CachedTokens
	t.usage.TotalTokens += usage.TotalTokens

	mc, ok := t.pricing(model)
	if !ok {
		t.unpriced++
		return
	}
	uncached := max(usage.PromptTokens-usage.CachedTokens, 0)
	t.total = t.total.Add(mc.Breakdown(uncached, usage.CandidatesTokens, usage.CachedTokens, usage.ThoughtsTokens))
}

type costSummary struct {
	Turns    int            `json:"turns"`
	Usage    gemini.Usage   `json:"usage"`
	Cost     cost.Breakdown `json:"cost"`
	Unpriced int            `json:"unpriced_turns,omitempty"`
}

func (t *costTracker) summary() costSummary {
	t.mu.Lock()
	defer t.mu.Unlock()
	return costSummary{Turns: t.turns, Usage: t.usage, Cost: t.total, Unpriced: t.unpriced}
}
