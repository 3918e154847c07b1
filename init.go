package medgemma

import (
	"fmt"
	"sync"

	"github.com/kintamed/medgemma-runtime/internal/ortffi"
	"github.com/kintamed/medgemma-runtime/logsink"
)

// LogLevel represents the logging verbosity Init configures.
type LogLevel int

// Set of logging levels supported by the runtime.
const (
	LogSilent LogLevel = iota + 1
	LogNormal
)

var (
	ortLibPath   string
	genaiLibPath string
	initOnce     sync.Once
	initErr      error
)

// Init loads the ONNX Runtime and ONNX Runtime GenAI shared libraries found
// under libDir. With LogSilent it detaches any log file set earlier; with
// any other level it logs one line announcing the load. It does not change
// which levels the log sink passes on. It
// must be called exactly once before NewEngine; later calls are no-ops and
// return the result of the first call, mirroring the one-shot native
// library load the underlying runtime requires.
func Init(libDir string, logLevel LogLevel) error {
	initOnce.Do(func() {
		ort := ortLibraryPath(libDir)
		genai := genaiLibraryPath(libDir)

		if err := ortffi.Load(ort, genai); err != nil {
			initErr = fmt.Errorf("medgemma: unable to load native runtime: %w", err)
			return
		}

		ortLibPath = ort
		genaiLibPath = genai

		switch logLevel {
		case LogSilent:
			logsink.SetPath("")
		default:
			logsink.Info("medgemma runtime initialized (lib=%s)", libDir)
		}
	})

	return initErr
}

// Loaded reports whether Init has completed successfully.
func Loaded() bool {
	return initErr == nil && ortLibPath != ""
}
