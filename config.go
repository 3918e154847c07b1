package medgemma

import "github.com/kintamed/medgemma-runtime/internal/sampler"

// RAM thresholds, in kilobytes, matching the reference Android low-memory
// guard values: abort vision encoding before it starts if less than
// defPreflightRAMKB is available, and stop generation mid-decode if
// available memory drops below defLowRAMKB.
const (
	defPreflightRAMKB = 600 * 1024
	defLowRAMKB       = 200 * 1024
	defRAMCheckEvery  = 20
)

// RAMThresholds configures the memory guards the orchestrator checks
// before vision encoding and periodically during decode. Zero values fall
// back to the defaults above.
type RAMThresholds struct {
	// PreflightKB is the minimum available RAM, in kilobytes, required to
	// start vision encoding. Below this, image input is dropped and
	// generation continues text-only.
	PreflightKB int64

	// LowKB is the minimum available RAM, in kilobytes, required to
	// continue decoding. Below this, generation stops early.
	LowKB int64

	// CheckEvery is how many decode steps pass between RAM checks.
	CheckEvery int
}

func adjustRAMThresholds(t RAMThresholds) RAMThresholds {
	if t.PreflightKB <= 0 {
		t.PreflightKB = defPreflightRAMKB
	}
	if t.LowKB <= 0 {
		t.LowKB = defLowRAMKB
	}
	if t.CheckEvery <= 0 {
		t.CheckEvery = defRAMCheckEvery
	}
	return t
}

// EngineConfig represents engine-level configuration. The defaults are
// used when these values are left at their zero value.
//
// RAM configures the low-memory guards checked before vision encoding and
// periodically during decode.
//
// Sampler configures the default sampling parameters used whenever a
// GenerateParams value doesn't override them.
//
// ImagePlaceholder overrides the token text the loader tokenizes to
// discover the image-slot id. When empty, "<image>" is used, falling back
// to the fixed id 255999 if tokenizing it doesn't yield a usable id.
type EngineConfig struct {
	RAM              RAMThresholds
	Sampler          sampler.Params
	ImagePlaceholder string
}

func adjustEngineConfig(cfg EngineConfig) EngineConfig {
	cfg.RAM = adjustRAMThresholds(cfg.RAM)

	if cfg.Sampler.TopP <= 0 {
		cfg.Sampler.TopP = sampler.DefaultTopP
	}
	if cfg.Sampler.Temperature <= 0 {
		cfg.Sampler.Temperature = sampler.DefaultTemperature
	}
	if cfg.Sampler.RepetitionPenalty <= 0 {
		cfg.Sampler.RepetitionPenalty = sampler.DefaultRepetitionPenalty
	}

	if cfg.ImagePlaceholder == "" {
		cfg.ImagePlaceholder = "<image>"
	}

	return cfg
}
