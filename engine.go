package medgemma

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/kintamed/medgemma-runtime/internal/langfilter"
	"github.com/kintamed/medgemma-runtime/internal/ortffi"
)

// Engine is a loaded model directory ready to run inference. Unlike a pool
// of concurrently usable model instances, an Engine holds exactly one
// loaded model and allows at most one inference at a time, enforced by its
// single-slot slot channel.
type Engine struct {
	cfg      EngineConfig
	modelDir string

	env        *ortffi.Env
	embedSess  *ortffi.Session
	decodeSess *ortffi.Session

	// visionSess and projSess are released after the first image-bearing
	// inference to reclaim their weights' memory; ResetInferenceState
	// reloads them. A later image-bearing call made without it gets a
	// warning and runs text-only.
	visionSess *ortffi.Session
	projSess   *ortffi.Session

	model        *ortffi.Model
	tokenizer    *ortffi.Tokenizer
	imageTokenID int32
	info         ModelInfo

	slot   chan struct{}
	closed uint32
}

// NewEngine loads the four ONNX Runtime sessions and tokenizer found under
// modelDir. Init must have been called first. NewEngine is grounded on the
// same staged load as the reference implementation: LLM sessions get a
// low-parallelism, mmap'd, mem-pattern-disabled profile to minimize peak
// RSS during int4 dequantization; vision sessions get a little more
// intra-op parallelism since they only run once per inference.
func NewEngine(modelDir string, cfg EngineConfig) (*Engine, error) {
	if !Loaded() {
		return nil, fmt.Errorf("medgemma: Init() has not been called")
	}

	cfg = adjustEngineConfig(cfg)

	e := &Engine{
		cfg:      cfg,
		modelDir: modelDir,
		slot:     make(chan struct{}, 1),
	}

	if err := loadEngine(e); err != nil {
		return nil, err
	}

	return e, nil
}

// ModelInfo describes the loaded model directory.
func (e *Engine) ModelInfo() ModelInfo {
	return e.info
}

// Config returns a copy of the configuration in effect, including any
// defaults the engine filled in.
func (e *Engine) Config() EngineConfig {
	return e.cfg
}

// Tokenize returns the token ids the tokenizer produces for text, without
// prepending BOS — Generate does that itself.
func (e *Engine) Tokenize(text string) ([]int32, error) {
	if atomic.LoadUint32(&e.closed) == 1 {
		return nil, fmt.Errorf("medgemma: engine has been unloaded")
	}

	return e.tokenizer.Encode(text)
}

// Generate runs the staged inference pipeline and blocks until generation
// completes or ctx is done, returning the concatenation of every EventToken
// the stream emitted. Non-fatal diagnostics (EventImageError, EventWarning)
// are discarded; call GenerateStreaming directly to observe them.
func (e *Engine) Generate(ctx context.Context, p GenerateParams) (string, error) {
	ch, err := e.GenerateStreaming(ctx, p)
	if err != nil {
		return "", err
	}

	var out string
	var finalErr error

	for ev := range ch {
		switch ev.Kind {
		case EventToken:
			out += ev.Text
		case EventError, EventException:
			finalErr = ev.Err
		}
	}

	return out, finalErr
}

// GenerateStreaming runs the staged inference pipeline in a goroutine and
// streams Events back as they're produced. It fails at once if the engine
// has already been unloaded; otherwise it blocks until the engine's single
// inference slot is free or ctx is done.
func (e *Engine) GenerateStreaming(ctx context.Context, p GenerateParams) (<-chan Event, error) {
	f := func() <-chan Event {
		return runInference(ctx, e, p)
	}

	ef := func(err error) Event {
		return errorEvent(err)
	}

	return runStreaming(ctx, e, f, ef)
}

// Unload releases every native resource the engine holds. Safe to call
// more than once; later calls are no-ops. It is the caller's responsibility
// not to call Unload while a GenerateStreaming call is still draining.
func (e *Engine) Unload() {
	if !atomic.CompareAndSwapUint32(&e.closed, 0, 1) {
		return
	}

	langfilter.Forget(e.tokenizer)

	if e.model != nil {
		e.model.Close()
	}

	for _, sess := range []*ortffi.Session{e.visionSess, e.projSess, e.embedSess, e.decodeSess} {
		if sess != nil {
			sess.Release()
		}
	}

	if e.env != nil {
		e.env.Release()
	}
}
