package medgemma

// EventKind identifies what an Event carries.
type EventKind int

const (
	// EventToken carries one decoded piece of generated text.
	EventToken EventKind = iota
	// EventImageError reports that the supplied image could not be used;
	// generation continues text-only.
	EventImageError
	// EventWarning reports a non-fatal condition, such as an image whose
	// placeholder token never appeared in the prompt.
	EventWarning
	// EventError reports an expected, named failure condition — e.g.
	// prefill producing no token — that ended generation early.
	EventError
	// EventException reports an unexpected failure from the native
	// runtime or codec layer (an ONNX Runtime call, a tensor allocation,
	// a tokenizer call) that ended generation early. It mirrors the
	// distinction the reference implementation's top-level try/catch
	// draws between a named "[ERR] ..." condition and a caught
	// std::exception surfaced as "[EXCEPTION] <message>".
	EventException
	// EventDone marks the end of the stream; no further events follow.
	EventDone
)

// Event is one message on an Engine's generation stream. The FFI shim
// flattens Kind + Text into the bracketed-tag strings ("[IMG_ERR] ...",
// "[WARN] ...", "[ERR] ...") the C boundary exposes; in-process Go callers
// get this as structured data instead.
type Event struct {
	Kind EventKind
	Text string
	Err  error
}

func tokenEvent(text string) Event      { return Event{Kind: EventToken, Text: text} }
func imageErrorEvent(text string) Event { return Event{Kind: EventImageError, Text: text} }
func warningEvent(text string) Event    { return Event{Kind: EventWarning, Text: text} }
func errorEvent(err error) Event        { return Event{Kind: EventError, Err: err} }
func exceptionEvent(err error) Event    { return Event{Kind: EventException, Err: err} }
func doneEvent() Event                  { return Event{Kind: EventDone} }

// ModelInfo describes a loaded engine's model directory.
type ModelInfo struct {
	ModelDir        string
	EmbedDim        int
	NumLayers       int
	NumHeads        int
	HeadDim         int
	VocabSize       int
	ImageTokenID    int32
	NumImagePatches int
}
