package ortffi

import (
	"fmt"
	"unsafe"
)

// SessionOptionsProfile captures one of the two memory-conservative option
// profiles the engine loader builds: one for the LLM sessions (embeddings +
// decoder), one for the vision sessions (encoder + projection).
type SessionOptionsProfile struct {
	IntraOpThreads  int
	InterOpThreads  int
	Sequential      bool
	BasicGraphOpt   bool
	UseMmap         bool
	DisableMemPat   bool
	DisableCPUArena bool
}

// LLMProfile and VisionProfile are the two fixed profiles the loader uses:
// the LLM profile trades parallelism for a lower peak RSS since a
// quantized model dequantizes weights to fp32 during compute, and running
// single-threaded avoids many layers doing that simultaneously; the vision
// profile allows a little more parallelism since it only runs once per
// inference.
var (
	LLMProfile = SessionOptionsProfile{
		IntraOpThreads:  1,
		InterOpThreads:  1,
		Sequential:      true,
		BasicGraphOpt:   true,
		UseMmap:         true,
		DisableMemPat:   true,
		DisableCPUArena: true,
	}
	VisionProfile = SessionOptionsProfile{
		IntraOpThreads:  2,
		InterOpThreads:  1,
		Sequential:      true,
		BasicGraphOpt:   true,
		UseMmap:         true,
		DisableMemPat:   true,
		DisableCPUArena: true,
	}
)

// Env wraps a process-wide OrtEnv. An engine creates exactly one.
type Env struct {
	handle uintptr
}

// NewEnv creates an OrtEnv at warning log severity, named logID.
func NewEnv(logID string) (*Env, error) {
	var out uintptr
	cLogID := cBytes(logID)

	status := api.call(ordCreateEnv, uintptr(ortLoggingLevelWarning), uintptr(unsafe.Pointer(&cLogID[0])), uintptr(unsafe.Pointer(&out)))
	if err := api.ok(status); err != nil {
		return nil, fmt.Errorf("CreateEnv: %w", err)
	}

	return &Env{handle: out}, nil
}

// Release destroys the environment. Must only be called after every
// session created from it has been released.
func (e *Env) Release() {
	if e.handle != 0 {
		api.call(ordReleaseEnv, e.handle)
		e.handle = 0
	}
}

const ortLoggingLevelWarning = 2

// newSessionOptions builds an OrtSessionOptions handle from profile. The
// profile's InterOpThreads is not passed to the runtime; every other field
// is.
func newSessionOptions(profile SessionOptionsProfile) (uintptr, error) {
	var opts uintptr
	if err := api.ok(api.call(ordCreateSessionOptions, uintptr(unsafe.Pointer(&opts)))); err != nil {
		return 0, fmt.Errorf("CreateSessionOptions: %w", err)
	}

	api.call(ordSetIntraOpNumThreads, opts, uintptr(profile.IntraOpThreads))

	if profile.Sequential {
		api.call(ordSetSessionExecutionMode, opts, 0) // ORT_SEQUENTIAL = 0
	} else {
		api.call(ordSetSessionExecutionMode, opts, 1) // ORT_PARALLEL = 1
	}

	if profile.BasicGraphOpt {
		api.call(ordSetSessionGraphOptimizationLevel, opts, 1) // ORT_ENABLE_BASIC
	}

	if profile.UseMmap {
		key, val := cBytes("session.use_mmap"), cBytes("1")
		api.call(ordAddSessionConfigEntry, opts, uintptr(unsafe.Pointer(&key[0])), uintptr(unsafe.Pointer(&val[0])))
	}

	if profile.DisableMemPat {
		api.call(ordDisableMemPattern, opts)
	}

	if profile.DisableCPUArena {
		api.call(ordDisableCpuMemArena, opts)
	}

	return opts, nil
}

// Session wraps a loaded OrtSession with the fixed input/output name lists
// it was created with, and exposes a uniform Run over named tensors — the
// same shape regardless of whether the underlying graph is the vision
// encoder, the projection head, the token embedding lookup, or the decoder.
type Session struct {
	env        *Env
	handle     uintptr
	inputs     []string
	outputs    []string
	memoryInfo uintptr
}

// NewSession loads the model at modelPath into env using profile, declaring
// the fixed input/output tensor names the caller will use in every Run.
func NewSession(env *Env, modelPath string, profile SessionOptionsProfile, inputs, outputs []string) (*Session, error) {
	opts, err := newSessionOptions(profile)
	if err != nil {
		return nil, err
	}
	defer api.call(ordReleaseSessionOptions, opts)

	var handle uintptr
	cPath := cBytes(modelPath)
	if err := api.ok(api.call(ordCreateSession, env.handle, uintptr(unsafe.Pointer(&cPath[0])), opts, uintptr(unsafe.Pointer(&handle)))); err != nil {
		return nil, fmt.Errorf("CreateSession(%s): %w", modelPath, err)
	}

	var memInfo uintptr
	const allocatorArena, memTypeDefault = 0, 0
	if err := api.ok(api.call(ordCreateCpuMemoryInfo, uintptr(allocatorArena), uintptr(memTypeDefault), uintptr(unsafe.Pointer(&memInfo)))); err != nil {
		api.call(ordReleaseSession, handle)
		return nil, fmt.Errorf("CreateCpuMemoryInfo: %w", err)
	}

	return &Session{env: env, handle: handle, inputs: inputs, outputs: outputs, memoryInfo: memInfo}, nil
}

// Release frees the session and its associated memory-info handle.
func (s *Session) Release() {
	if s.memoryInfo != 0 {
		api.call(ordReleaseMemoryInfo, s.memoryInfo)
		s.memoryInfo = 0
	}
	if s.handle != 0 {
		api.call(ordReleaseSession, s.handle)
		s.handle = 0
	}
}

// Run feeds ordered input tensors (matching the names the Session was
// created with) and returns the runtime-owned output tensors, in the order
// the Session was created with. Callers must call Release on every
// returned Tensor once its data has been consumed or copied out.
func (s *Session) Run(inputValues []*Tensor) ([]*Tensor, error) {
	if len(inputValues) != len(s.inputs) {
		return nil, fmt.Errorf("ortffi: Run got %d inputs, session expects %d", len(inputValues), len(s.inputs))
	}

	inNames := make([]uintptr, len(s.inputs))
	inCStrs := make([][]byte, len(s.inputs))
	for i, n := range s.inputs {
		inCStrs[i] = cBytes(n)
		inNames[i] = uintptr(unsafe.Pointer(&inCStrs[i][0]))
	}

	outNames := make([]uintptr, len(s.outputs))
	outCStrs := make([][]byte, len(s.outputs))
	for i, n := range s.outputs {
		outCStrs[i] = cBytes(n)
		outNames[i] = uintptr(unsafe.Pointer(&outCStrs[i][0]))
	}

	inValues := make([]uintptr, len(inputValues))
	for i, t := range inputValues {
		inValues[i] = t.handle
	}

	outValues := make([]uintptr, len(s.outputs))

	status := api.call(
		ordRun,
		s.handle,
		0, // RunOptions*, nil = defaults
		uintptr(unsafe.Pointer(&inNames[0])),
		uintptr(unsafe.Pointer(&inValues[0])),
		uintptr(len(inValues)),
		uintptr(unsafe.Pointer(&outNames[0])),
		uintptr(len(outNames)),
		uintptr(unsafe.Pointer(&outValues[0])),
	)
	if err := api.ok(status); err != nil {
		return nil, fmt.Errorf("Run: %w", err)
	}

	out := make([]*Tensor, len(outValues))
	for i, v := range outValues {
		out[i] = &Tensor{handle: v, owned: true}
	}

	return out, nil
}

// NewInputTensor wraps a caller-owned float32 buffer as an OrtValue without
// copying it; data must stay alive and unmodified for the duration of the
// Run call it is passed to.
func (s *Session) NewInputTensor(data []float32, shape []int64) (*Tensor, error) {
	return newFloatTensor(s.memoryInfo, data, shape)
}

// NewInputTensorInt64 is the int64 analogue of NewInputTensor, used for
// token ids and attention masks.
func (s *Session) NewInputTensorInt64(data []int64, shape []int64) (*Tensor, error) {
	return newInt64Tensor(s.memoryInfo, data, shape)
}

// cBytes returns a NUL-terminated byte slice for s, suitable for passing as
// a C string to the ORT API. The caller must keep the returned slice
// reachable for the duration of the call it backs.
func cBytes(s string) []byte {
	b := make([]byte, len(s)+1)
	copy(b, s)
	return b
}
