// Package parse turns model text into Go values. Gemini replies that were
// requested with a response schema are usually valid JSON, but models still
// emit trailing commas, single quotes or markdown fences now and then. [Into]
// decodes strictly first and only then retries through jsonrepair.
//
// [ParseStringAs] is the generic front door: primitives go through strconv,
// everything else through [Into].
package parse
