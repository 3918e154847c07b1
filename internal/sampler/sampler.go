// Package sampler implements the token-selection pipeline applied to a
// single decode step's logits: language-mask suppression, repetition
// penalty, a greedy shortcut at near-zero temperature, and otherwise
// deterministic nucleus (top-p) sampling.
package sampler

import (
	"math"
	"sort"
)

// Defaults mirror the reference values used throughout: a nucleus mass of
// 0.75, a low decode temperature of 0.29 (favors determinism over
// diversity, appropriate for a report-generation model), and a repetition
// penalty of 1.30.
const (
	DefaultTopP              = 0.75
	DefaultTemperature       = 0.29
	DefaultRepetitionPenalty = 1.30

	// GreedyTemperatureFloor is the threshold below which Sample shortcuts
	// straight to argmax instead of dividing by a near-zero temperature.
	GreedyTemperatureFloor = 0.01
)

// Params bundles the knobs Sample consumes. A zero Params has no sensible
// meaning on its own; callers should start from Defaults().
type Params struct {
	TopP              float32
	Temperature       float32
	RepetitionPenalty float32
	ForeignMask       []bool
	Generated         []int32
}

// Defaults returns the reference Params.
func Defaults() Params {
	return Params{
		TopP:              DefaultTopP,
		Temperature:       DefaultTemperature,
		RepetitionPenalty: DefaultRepetitionPenalty,
	}
}

// foreignPenalty replaces (is not added to or multiplied into) a masked
// logit, matching
// the "make effectively impossible" constant from the classifier this
// mirrors: large enough that no legitimate logit value recovers from it,
// but finite so the slice stays well-formed for downstream math.
const foreignPenalty = -1e9

// Sample selects the next token id from logits according to p. logits is
// read, not mutated; the function operates on an internal scratch copy so
// callers may reuse the same backing array across decode steps.
//
// Pipeline: language mask -> repetition penalty -> greedy shortcut (if
// Temperature < GreedyTemperatureFloor, return argmax) -> softmax at
// Temperature -> pick the highest-probability id, then the next, in
// descending order, until cumulative mass reaches TopP; return the last id
// added. If the cumulative mass never reaches TopP (e.g. TopP above the
// rounded total), the highest-probability id is returned.
func Sample(logits []float32, p Params) int32 {
	penalized := make([]float32, len(logits))
	copy(penalized, logits)

	if p.ForeignMask != nil {
		for i := range penalized {
			if i < len(p.ForeignMask) && p.ForeignMask[i] {
				penalized[i] = foreignPenalty
			}
		}
	}

	if p.RepetitionPenalty > 1.0 {
		for _, tok := range p.Generated {
			if tok < 0 || int(tok) >= len(penalized) {
				continue
			}
			if penalized[tok] > 0 {
				penalized[tok] /= p.RepetitionPenalty
			} else {
				penalized[tok] *= p.RepetitionPenalty
			}
		}
	}

	if p.Temperature < GreedyTemperatureFloor {
		return argmax(penalized)
	}

	return topP(penalized, p.Temperature, p.TopP)
}

func argmax(logits []float32) int32 {
	best := int32(0)
	bestVal := logits[0]

	for i := 1; i < len(logits); i++ {
		if logits[i] > bestVal {
			bestVal = logits[i]
			best = int32(i)
		}
	}

	return best
}

type idProb struct {
	id   int32
	prob float32
}

func topP(logits []float32, temp, p float32) int32 {
	probs := softmax(logits, temp)

	ranked := make([]idProb, len(probs))
	for i, pr := range probs {
		ranked[i] = idProb{id: int32(i), prob: pr}
	}

	sortDescending(ranked)

	var cumulative float32
	for _, r := range ranked {
		cumulative += r.prob
		if cumulative >= p {
			return r.id
		}
	}

	return ranked[0].id
}

func softmax(logits []float32, temp float32) []float32 {
	exps := make([]float32, len(logits))

	var sum float32
	for i, v := range logits {
		e := float32(math.Exp(float64(v / temp)))
		exps[i] = e
		sum += e
	}

	for i := range exps {
		exps[i] /= sum
	}

	return exps
}

// sortDescending orders ranked by probability, highest first, breaking ties
// by ascending id so the nucleus walk is deterministic for equal-probability
// logits (e.g. an all-zero logits vector).
func sortDescending(ranked []idProb) {
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].prob != ranked[j].prob {
			return ranked[i].prob > ranked[j].prob
		}
		return ranked[i].id < ranked[j].id
	})
}
