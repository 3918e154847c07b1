package medgemma

import (
	"testing"

	"github.com/kintamed/medgemma-runtime/internal/sampler"
)

func TestAdjustEngineConfigFillsDefaults(t *testing.T) {
	cfg := adjustEngineConfig(EngineConfig{})

	if cfg.RAM.PreflightKB != defPreflightRAMKB {
		t.Fatalf("PreflightKB = %d, want %d", cfg.RAM.PreflightKB, defPreflightRAMKB)
	}
	if cfg.RAM.LowKB != defLowRAMKB {
		t.Fatalf("LowKB = %d, want %d", cfg.RAM.LowKB, defLowRAMKB)
	}
	if cfg.RAM.CheckEvery != defRAMCheckEvery {
		t.Fatalf("CheckEvery = %d, want %d", cfg.RAM.CheckEvery, defRAMCheckEvery)
	}
	if cfg.Sampler.TopP != sampler.DefaultTopP {
		t.Fatalf("TopP = %v, want %v", cfg.Sampler.TopP, sampler.DefaultTopP)
	}
	if cfg.ImagePlaceholder != "<image>" {
		t.Fatalf("ImagePlaceholder = %q, want <image>", cfg.ImagePlaceholder)
	}
}

func TestAdjustEngineConfigPreservesOverrides(t *testing.T) {
	cfg := adjustEngineConfig(EngineConfig{
		RAM:              RAMThresholds{PreflightKB: 1234},
		ImagePlaceholder: "<img>",
	})

	if cfg.RAM.PreflightKB != 1234 {
		t.Fatalf("PreflightKB = %d, want 1234", cfg.RAM.PreflightKB)
	}
	if cfg.ImagePlaceholder != "<img>" {
		t.Fatalf("ImagePlaceholder = %q, want <img>", cfg.ImagePlaceholder)
	}
	// Untouched RAM fields still get defaulted.
	if cfg.RAM.LowKB != defLowRAMKB {
		t.Fatalf("LowKB = %d, want %d", cfg.RAM.LowKB, defLowRAMKB)
	}
}

func TestAdjustParamsFillsMaxTokens(t *testing.T) {
	p, sp := adjustParams(GenerateParams{}, sampler.Defaults())

	if p.MaxTokens != defMaxTokens {
		t.Fatalf("MaxTokens = %d, want %d", p.MaxTokens, defMaxTokens)
	}
	if sp.TopP != sampler.DefaultTopP {
		t.Fatalf("TopP = %v, want default", sp.TopP)
	}
}

func TestAdjustParamsOverridesSamplerPerCall(t *testing.T) {
	_, sp := adjustParams(GenerateParams{Temperature: 0.9}, sampler.Defaults())

	if sp.Temperature != 0.9 {
		t.Fatalf("Temperature = %v, want 0.9", sp.Temperature)
	}
	if sp.TopP != sampler.DefaultTopP {
		t.Fatalf("TopP = %v, want default (untouched)", sp.TopP)
	}
}
