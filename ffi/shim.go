// Command shim builds as a C shared library (-buildmode=c-shared) exposing
// the same extern "C" surface the original native engine exposed to its
// Dart host: set_log_path, load_medgemma_4bit, unload_medgemma,
// medgemma_tokenize, run_medgemma_inference, reset_inference_state. It is
// a thin adapter — all inference logic lives in the medgemma package; this
// file's job is marshaling C strings/callbacks at the boundary and handing
// out opaque handles a C caller can hold without seeing a Go pointer.
package main

/*
#include <stdint.h>
#include <stdlib.h>

typedef void (*TokenCallback)(const char *text);

static inline void invoke_token_callback(TokenCallback cb, const char *text) {
	if (cb) {
		cb(text);
	}
}
*/
import "C"

import (
	"context"
	"sync"
	"unsafe"

	medgemma "github.com/kintamed/medgemma-runtime"
	"github.com/kintamed/medgemma-runtime/logsink"
)

var (
	handlesMu sync.Mutex
	handles   = map[C.int64_t]*medgemma.Engine{}
	nextHandl C.int64_t
)

func registerHandle(e *medgemma.Engine) C.int64_t {
	handlesMu.Lock()
	defer handlesMu.Unlock()

	nextHandl++
	h := nextHandl
	handles[h] = e
	return h
}

func lookupHandle(h C.int64_t) *medgemma.Engine {
	handlesMu.Lock()
	defer handlesMu.Unlock()
	return handles[h]
}

func forgetHandle(h C.int64_t) {
	handlesMu.Lock()
	defer handlesMu.Unlock()
	delete(handles, h)
}

//export set_log_path
func set_log_path(path *C.char) {
	if path == nil {
		logsink.SetPath("")
		return
	}
	logsink.SetPath(C.GoString(path))
}

//export load_medgemma_4bit
func load_medgemma_4bit(modelDir *C.char) C.int64_t {
	dir := C.GoString(modelDir)

	libDir := medgemma.DefaultLibDir()
	if err := medgemma.Init(libDir, medgemma.LogNormal); err != nil {
		logsink.Error("load_medgemma_4bit: Init failed: %v", err)
		return 0
	}

	engine, err := medgemma.NewEngine(dir, medgemma.EngineConfig{})
	if err != nil {
		logsink.Error("load_medgemma_4bit EXCEPTION: %v", err)
		return 0
	}

	h := registerHandle(engine)
	logsink.Info("Engine ready, handle=%d", int64(h))
	return h
}

//export unload_medgemma
func unload_medgemma(handle C.int64_t) {
	logsink.Info("unload_medgemma")

	engine := lookupHandle(handle)
	if engine == nil {
		return
	}

	engine.Unload()
	forgetHandle(handle)
}

//export medgemma_tokenize
func medgemma_tokenize(handle C.int64_t, text *C.char, outTokens *C.int64_t, maxTokens C.int) C.int {
	engine := lookupHandle(handle)
	if engine == nil {
		return 0
	}

	ids, err := engine.Tokenize(C.GoString(text))
	if err != nil {
		logsink.Error("medgemma_tokenize: %v", err)
		return 0
	}

	actual := len(ids)
	if actual > int(maxTokens) {
		actual = int(maxTokens)
	}

	out := unsafe.Slice(outTokens, actual)
	for i := 0; i < actual; i++ {
		out[i] = C.int64_t(ids[i])
	}

	return C.int(actual)
}

//export run_medgemma_inference
func run_medgemma_inference(handle C.int64_t, imageBytes *C.uint8_t, imageLen C.int, prompt *C.char, maxTokens C.int, callback C.TokenCallback) {
	engine := lookupHandle(handle)
	if engine == nil {
		C.invoke_token_callback(callback, C.CString("[ERR] Engine handle is null"))
		return
	}

	var image []byte
	if imageBytes != nil && imageLen > 0 {
		image = unsafe.Slice((*byte)(unsafe.Pointer(imageBytes)), int(imageLen))
	}

	params := medgemma.GenerateParams{
		Prompt:    C.GoString(prompt),
		Image:     image,
		MaxTokens: int(maxTokens),
	}

	ch, err := engine.GenerateStreaming(context.Background(), params)
	if err != nil {
		C.invoke_token_callback(callback, C.CString("[ERR] "+err.Error()))
		return
	}

	for ev := range ch {
		switch ev.Kind {
		case medgemma.EventToken:
			cstr := C.CString(ev.Text)
			C.invoke_token_callback(callback, cstr)
			C.free(unsafe.Pointer(cstr))
		case medgemma.EventImageError, medgemma.EventWarning:
			cstr := C.CString(ev.Text)
			C.invoke_token_callback(callback, cstr)
			C.free(unsafe.Pointer(cstr))
		case medgemma.EventError:
			cstr := C.CString("[ERR] " + ev.Err.Error())
			C.invoke_token_callback(callback, cstr)
			C.free(unsafe.Pointer(cstr))
		case medgemma.EventException:
			cstr := C.CString("[EXCEPTION] " + ev.Err.Error())
			C.invoke_token_callback(callback, cstr)
			C.free(unsafe.Pointer(cstr))
		}
	}
}

//export reset_inference_state
func reset_inference_state(handle C.int64_t) {
	engine := lookupHandle(handle)
	if engine == nil {
		return
	}

	if err := engine.ResetInferenceState(); err != nil {
		logsink.Error("reset_inference_state: %v", err)
	}
}

func main() {}
