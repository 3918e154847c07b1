package medgemma

import (
	"path/filepath"
	"runtime"
)

// ortLibraryPath and genaiLibraryPath resolve the expected shared library
// filename for the current platform within libDir. InstallRuntime checks
// for libraries under exactly these names; it does not rename what it
// downloads.
func ortLibraryPath(libDir string) string {
	return filepath.Join(libDir, libraryFilename("onnxruntime"))
}

func genaiLibraryPath(libDir string) string {
	return filepath.Join(libDir, libraryFilename("onnxruntime-genai"))
}

func libraryFilename(base string) string {
	switch runtime.GOOS {
	case "windows":
		return base + ".dll"
	case "darwin":
		return "lib" + base + ".dylib"
	default:
		return "lib" + base + ".so"
	}
}
