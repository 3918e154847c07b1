package medgemma

import (
	"runtime"
	"strings"
	"testing"
)

func TestLibraryFilenameMatchesPlatformConvention(t *testing.T) {
	got := libraryFilename("onnxruntime")

	switch runtime.GOOS {
	case "windows":
		if got != "onnxruntime.dll" {
			t.Fatalf("got %q, want onnxruntime.dll", got)
		}
	case "darwin":
		if got != "libonnxruntime.dylib" {
			t.Fatalf("got %q, want libonnxruntime.dylib", got)
		}
	default:
		if got != "libonnxruntime.so" {
			t.Fatalf("got %q, want libonnxruntime.so", got)
		}
	}
}

func TestOrtAndGenaiLibraryPathsDiffer(t *testing.T) {
	ort := ortLibraryPath("/lib")
	genai := genaiLibraryPath("/lib")

	if ort == genai {
		t.Fatalf("ortLibraryPath and genaiLibraryPath returned the same path: %q", ort)
	}
	if !strings.Contains(ort, "onnxruntime") {
		t.Fatalf("ortLibraryPath = %q, want it to contain onnxruntime", ort)
	}
	if !strings.Contains(genai, "onnxruntime-genai") {
		t.Fatalf("genaiLibraryPath = %q, want it to contain onnxruntime-genai", genai)
	}
}
