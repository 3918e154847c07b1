package ortffi

import (
	"fmt"
	"unsafe"

	"github.com/ebitengine/purego"
)

// apiVersion is the ORT_API_VERSION this package's vtable ordinals were
// taken from. OrtApi is a struct of function pointers, not a set of
// exported symbols, so unlike the Oga* bindings in genai.go these are
// reached by indexing into that struct rather than by name; the ordinals
// below only hold for this exact API version.
const apiVersion = 21

// ordinal gives the zero-based slot of each OrtApi function this package
// calls, in struct-field order as declared by onnxruntime_c_api.h for
// apiVersion. Every pointer is 8 bytes on every platform this runtime ships
// for.
const (
	ordCreateEnv                        = 3
	ordCreateSessionOptions             = 9
	ordSetSessionExecutionMode          = 12
	ordDisableMemPattern                = 15
	ordDisableCpuMemArena               = 17
	ordSetSessionGraphOptimizationLevel = 34
	ordCreateSession                    = 7
	ordRun                              = 8
	ordSetIntraOpNumThreads             = 24
	ordCreateTensorWithDataAsOrtValue   = 41
	ordGetTensorMutableData             = 46
	ordAddSessionConfigEntry            = 113
	ordReleaseEnv                       = 72
	ordReleaseSessionOptions            = 75
	ordReleaseSession                   = 77
	ordReleaseValue                     = 73
	ordCreateCpuMemoryInfo              = 57
	ordReleaseMemoryInfo                = 74
)

type ortAPI struct {
	base uintptr // *OrtApi, the vtable
}

var ortGetApiBase func() uintptr

func bindOrtAPI(handle uintptr) (*ortAPI, error) {
	if err := registerSafe(&ortGetApiBase, handle, "OrtGetApiBase"); err != nil {
		return nil, err
	}

	apiBasePtr := ortGetApiBase()
	if apiBasePtr == 0 {
		return nil, fmt.Errorf("OrtGetApiBase returned nil")
	}

	// OrtApiBase is {GetApi func(uint32) *OrtApi; GetVersionString func() *char}.
	getApiFn := *(*uintptr)(unsafe.Pointer(apiBasePtr))

	r1, _, errno := purego.SyscallN(getApiFn, uintptr(apiVersion))
	if r1 == 0 {
		return nil, fmt.Errorf("GetApi(%d) returned nil (errno=%v)", apiVersion, errno)
	}

	return &ortAPI{base: r1}, nil
}

// call invokes the function pointer at ordinal ord in the OrtApi vtable
// with args, returning the raw return value (an OrtStatus* for most calls,
// 0 meaning success).
func (a *ortAPI) call(ord int, args ...uintptr) uintptr {
	fn := *(*uintptr)(unsafe.Pointer(a.base + uintptr(ord)*unsafe.Sizeof(uintptr(0))))
	r1, _, _ := purego.SyscallN(fn, args...)
	return r1
}

func (a *ortAPI) ok(status uintptr) error {
	if status == 0 {
		return nil
	}
	// The OrtStatus* leaks here; this runtime only calls ok() on the
	// fixed, small set of setup calls where a failure is fatal to loading
	// and the process is about to report an error and tear the engine
	// down anyway.
	return fmt.Errorf("ort call failed (status=0x%x)", status)
}
