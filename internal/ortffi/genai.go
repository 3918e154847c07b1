package ortffi

import (
	"fmt"
	"unsafe"

	"github.com/ebitengine/purego"
)

// The OgaXxx entry points are plain exported C symbols (unlike the core
// OrtApi, which is reached through a vtable — see ortapi.go), so they bind
// the same way purego.RegisterLibFunc binds any flat C export.
var (
	ogaCreateConfig          func(path string, out *uintptr) int32
	ogaDestroyConfig         func(cfg uintptr)
	ogaCreateModelFromConfig func(cfg uintptr, out *uintptr) int32
	ogaDestroyModel          func(model uintptr)
	ogaCreateTokenizer       func(model uintptr, out *uintptr) int32
	ogaDestroyTokenizer      func(tok uintptr)
	ogaCreateSequences       func(out *uintptr) int32
	ogaDestroySequences      func(seq uintptr)
	ogaTokenizerEncode       func(tok uintptr, text string, seq uintptr) int32
	ogaTokenizerDecode       func(tok uintptr, tokens *int32, count uintptr, out **byte) int32
	ogaSequencesCount        func(seq uintptr, index uintptr) uintptr
	ogaSequencesData         func(seq uintptr, index uintptr) *int32
)

func bindGenai(handle uintptr) error {
	binds := []struct {
		fptr interface{}
		name string
	}{
		{&ogaCreateConfig, "OgaCreateConfig"},
		{&ogaDestroyConfig, "OgaDestroyConfig"},
		{&ogaCreateModelFromConfig, "OgaCreateModelFromConfig"},
		{&ogaDestroyModel, "OgaDestroyModel"},
		{&ogaCreateTokenizer, "OgaCreateTokenizer"},
		{&ogaDestroyTokenizer, "OgaDestroyTokenizer"},
		{&ogaCreateSequences, "OgaCreateSequences"},
		{&ogaDestroySequences, "OgaDestroySequences"},
		{&ogaTokenizerEncode, "OgaTokenizerEncode"},
		{&ogaTokenizerDecode, "OgaTokenizerDecode"},
		{&ogaSequencesCount, "OgaSequencesGetSequenceCount"},
		{&ogaSequencesData, "OgaSequencesGetSequenceData"},
	}

	for _, b := range binds {
		if err := registerSafe(b.fptr, handle, b.name); err != nil {
			return err
		}
	}

	return nil
}

// registerSafe wraps purego.RegisterLibFunc, which panics on an unresolved
// symbol, converting that into a normal error so a missing function in an
// older runtime build surfaces as a load failure instead of a crash.
func registerSafe(fptr interface{}, handle uintptr, name string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("symbol %s: %v", name, r)
		}
	}()

	purego.RegisterLibFunc(fptr, handle, name)

	return nil
}

// Model is a loaded OgaModel handle together with the tokenizer created
// from it.
type Model struct {
	handle    uintptr
	Tokenizer *Tokenizer
}

// LoadModel calls OgaCreateConfig/OgaCreateModelFromConfig/OgaCreateTokenizer
// against the model directory at path, in that order, releasing the config
// handle (which is only needed during construction) before returning.
func LoadModel(path string) (*Model, error) {
	var cfg uintptr
	if rc := ogaCreateConfig(path, &cfg); rc != 0 {
		return nil, fmt.Errorf("OgaCreateConfig(%s) failed: rc=%d", path, rc)
	}
	defer ogaDestroyConfig(cfg)

	var mdl uintptr
	if rc := ogaCreateModelFromConfig(cfg, &mdl); rc != 0 {
		return nil, fmt.Errorf("OgaCreateModelFromConfig failed: rc=%d", rc)
	}

	var tok uintptr
	if rc := ogaCreateTokenizer(mdl, &tok); rc != 0 {
		ogaDestroyModel(mdl)
		return nil, fmt.Errorf("OgaCreateTokenizer failed: rc=%d", rc)
	}

	return &Model{handle: mdl, Tokenizer: &Tokenizer{handle: tok}}, nil
}

// Close releases the tokenizer and model handles.
func (m *Model) Close() {
	if m.Tokenizer != nil {
		ogaDestroyTokenizer(m.Tokenizer.handle)
		m.Tokenizer = nil
	}
	if m.handle != 0 {
		ogaDestroyModel(m.handle)
		m.handle = 0
	}
}

// Tokenizer wraps an OgaTokenizer handle. Its pointer identity is what
// langfilter.Mask keys its per-tokenizer cache on.
type Tokenizer struct {
	handle uintptr
}

// Encode tokenizes text and returns the resulting token ids.
func (t *Tokenizer) Encode(text string) ([]int32, error) {
	var seq uintptr
	if rc := ogaCreateSequences(&seq); rc != 0 {
		return nil, fmt.Errorf("OgaCreateSequences failed: rc=%d", rc)
	}
	defer ogaDestroySequences(seq)

	if rc := ogaTokenizerEncode(t.handle, text, seq); rc != 0 {
		return nil, fmt.Errorf("OgaTokenizerEncode failed: rc=%d", rc)
	}

	count := ogaSequencesCount(seq, 0)
	data := ogaSequencesData(seq, 0)

	ids := make([]int32, count)
	src := unsafe.Slice(data, count)
	copy(ids, src)

	return ids, nil
}

// DecodeToken decodes a single token id to text, satisfying
// langfilter.TokenDecoder. It reports ok=false if the runtime failed to
// decode the id (e.g. an id outside the tokenizer's valid range).
func (t *Tokenizer) DecodeToken(id int32) (string, bool) {
	var out *byte

	tokens := [1]int32{id}
	if rc := ogaTokenizerDecode(t.handle, &tokens[0], 1, &out); rc != 0 || out == nil {
		return "", false
	}

	return cString(out), true
}

func cString(p *byte) string {
	if p == nil {
		return ""
	}

	n := 0
	for {
		b := *(*byte)(unsafe.Add(unsafe.Pointer(p), n))
		if b == 0 {
			break
		}
		n++
	}

	return string(unsafe.Slice(p, n))
}
