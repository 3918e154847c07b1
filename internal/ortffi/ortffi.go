// Package ortffi is the purego-based FFI surface onto the ONNX Runtime and
// ONNX Runtime GenAI shared libraries. It owns the single dlopen of each
// library and exposes just the handful of C entry points the orchestrator
// needs, wrapped in small Go types with a uniform Session.Run signature —
// mirroring the shape of a high-level llama.cpp binding without sharing any
// code with one, since this runtime's wire format is ONNX Runtime's, not
// llama.cpp's.
package ortffi

import (
	"fmt"
	"sync"

	"github.com/ebitengine/purego"
)

var (
	loadOnce sync.Once
	loadErr  error

	ortHandle   uintptr
	genaiHandle uintptr

	api *ortAPI
)

// Load dynamically loads the ONNX Runtime (ortLibPath) and ONNX Runtime
// GenAI (genaiLibPath) shared libraries and resolves every function this
// package needs. Load is idempotent and safe to call from multiple
// goroutines; only the first call's paths take effect.
func Load(ortLibPath, genaiLibPath string) error {
	loadOnce.Do(func() {
		h, err := purego.Dlopen(ortLibPath, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err != nil {
			loadErr = fmt.Errorf("ortffi: dlopen %s: %w", ortLibPath, err)
			return
		}
		ortHandle = h

		gh, err := purego.Dlopen(genaiLibPath, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err != nil {
			loadErr = fmt.Errorf("ortffi: dlopen %s: %w", genaiLibPath, err)
			return
		}
		genaiHandle = gh

		if err := bindGenai(genaiHandle); err != nil {
			loadErr = fmt.Errorf("ortffi: bind genai symbols: %w", err)
			return
		}

		a, err := bindOrtAPI(ortHandle)
		if err != nil {
			loadErr = fmt.Errorf("ortffi: bind ort api: %w", err)
			return
		}
		api = a
	})

	return loadErr
}

// Loaded reports whether Load has completed successfully.
func Loaded() bool {
	return api != nil && loadErr == nil
}
