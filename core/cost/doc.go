// Package cost holds per-token model pricing and the arithmetic that turns
// token counts into a USD estimate.
//
// [ModelCost] stores rates in USD per million tokens. [ModelCost.Breakdown]
// splits an estimate by token class so callers can report where the money
// went.
package cost
