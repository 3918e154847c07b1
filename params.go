package medgemma

import "github.com/kintamed/medgemma-runtime/internal/sampler"

const defMaxTokens = 512

// GenerateParams represents the per-call options for a single inference
// request. The defaults are used when these values are left at their zero
// value.
//
// Prompt is the text prompt. Image, if non-nil, is the raw bytes of a
// JPEG or PNG to ground the response in; the prompt should contain the
// literal "<image>" placeholder token where the image should be
// referenced.
//
// MaxTokens caps the number of tokens generated, not counting the prompt.
// When set to 0, the default value is 512.
//
// TopP, Temperature, and RepetitionPenalty override the engine's sampler
// defaults for this call only; leave at 0 to use the engine's configured
// value.
//
// StopStrings overrides the default stop-string set; leave nil to use the
// default set.
type GenerateParams struct {
	Prompt            string
	Image             []byte
	MaxTokens         int
	TopP              float32
	Temperature       float32
	RepetitionPenalty float32
	StopStrings       []string
}

func adjustParams(p GenerateParams, defaults sampler.Params) (GenerateParams, sampler.Params) {
	if p.MaxTokens <= 0 {
		p.MaxTokens = defMaxTokens
	}

	sp := defaults

	if p.TopP > 0 {
		sp.TopP = p.TopP
	}
	if p.Temperature > 0 {
		sp.Temperature = p.Temperature
	}
	if p.RepetitionPenalty > 0 {
		sp.RepetitionPenalty = p.RepetitionPenalty
	}

	return p, sp
}
