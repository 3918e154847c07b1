package medgemma

import (
	"fmt"
	"testing"
)

func TestDecoderInputOutputNamesMatchLayerCount(t *testing.T) {
	in := decoderInputNames()
	out := decoderOutputNames()

	wantIn := 2 + 2*numLayers
	if len(in) != wantIn {
		t.Fatalf("len(decoderInputNames()) = %d, want %d", len(in), wantIn)
	}

	wantOut := 1 + 2*numLayers
	if len(out) != wantOut {
		t.Fatalf("len(decoderOutputNames()) = %d, want %d", len(out), wantOut)
	}

	if in[0] != "inputs_embeds" || in[1] != "attention_mask" {
		t.Fatalf("unexpected leading decoder input names: %v", in[:2])
	}
	if out[0] != "logits" {
		t.Fatalf("decoderOutputNames()[0] = %q, want logits", out[0])
	}

	if got := in[2]; got != fmt.Sprintf("past_key_values.%d.key", 0) {
		t.Fatalf("in[2] = %q, want past_key_values.0.key", got)
	}
	if got := out[len(out)-1]; got != fmt.Sprintf("present.%d.value", numLayers-1) {
		t.Fatalf("last output name = %q, want present.%d.value", got, numLayers-1)
	}
}
