package medgemma

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	getter "github.com/hashicorp/go-getter/v2"
)

const (
	ortVersionFile = "ort_version.txt"
)

// InstallRuntime downloads the ONNX Runtime and ONNX Runtime GenAI shared
// libraries for the current platform from releaseURL (a go-getter source —
// an archive URL, a local path, a git ref, anything go-getter understands)
// into libDir, skipping the download if libDir already has both libraries
// for the running version. It mirrors the teacher's InstallLlama in shape:
// a single idempotent entry point a host calls once at startup.
func InstallRuntime(ctx context.Context, releaseURL, version, libDir string) error {
	if err := os.MkdirAll(libDir, 0o755); err != nil {
		return fmt.Errorf("medgemma: create lib dir: %w", err)
	}

	if installedVersion(libDir) == version {
		_, ortErr := os.Stat(ortLibraryPath(libDir))
		_, genaiErr := os.Stat(genaiLibraryPath(libDir))
		if ortErr == nil && genaiErr == nil {
			return nil
		}
	}

	req := &getter.Request{
		Src:     releaseURL,
		Dst:     libDir,
		GetMode: getter.ModeAny,
	}

	client := &getter.Client{}
	if _, err := client.Get(ctx, req); err != nil {
		return fmt.Errorf("medgemma: download runtime from %s: %w", releaseURL, err)
	}

	if err := os.WriteFile(filepath.Join(libDir, ortVersionFile), []byte(version), 0o644); err != nil {
		return fmt.Errorf("medgemma: write version marker: %w", err)
	}

	return nil
}

// InstallModel downloads the model directory from modelURL into modelDir
// using go-getter, skipping the download if the decoder file already
// exists there.
func InstallModel(ctx context.Context, modelURL, modelDir string) error {
	if _, err := os.Stat(filepath.Join(modelDir, decoderFile)); err == nil {
		return nil
	}

	req := &getter.Request{
		Src:     modelURL,
		Dst:     modelDir,
		GetMode: getter.ModeAny,
	}

	client := &getter.Client{}
	if _, err := client.Get(ctx, req); err != nil {
		return fmt.Errorf("medgemma: download model from %s: %w", modelURL, err)
	}

	return nil
}

func installedVersion(libDir string) string {
	data, err := os.ReadFile(filepath.Join(libDir, ortVersionFile))
	if err != nil {
		return ""
	}
	return string(data)
}

// DefaultLibDir returns the platform-appropriate directory this process
// should install native libraries into when the caller has no preference,
// mirroring the candidate-directory convention other consumers of this
// corpus's FFI libraries use (next to the executable, not a hardcoded
// absolute path that would be wrong on every platform but one).
func DefaultLibDir() string {
	exe, err := os.Executable()
	if err != nil {
		return filepath.Join(".", "lib", runtime.GOOS)
	}
	return filepath.Join(filepath.Dir(exe), "lib", runtime.GOOS)
}
