package sampler

import "testing"

func TestSampleGreedyShortcut(t *testing.T) {
	logits := []float32{0.1, 5.0, 0.2, -1.0}

	p := Defaults()
	p.Temperature = 0

	got := Sample(logits, p)
	if got != 1 {
		t.Fatalf("got %d, want 1 (argmax)", got)
	}
}

func TestSampleForeignMaskSuppressesBestLogit(t *testing.T) {
	logits := []float32{0.1, 5.0, 0.2, -1.0}

	p := Defaults()
	p.Temperature = 0
	p.ForeignMask = []bool{false, true, false, false}

	got := Sample(logits, p)
	if got == 1 {
		t.Fatalf("masked id 1 should never be selected, got %d", got)
	}
}

func TestSampleRepetitionPenaltyDiscouragesRepeat(t *testing.T) {
	// Two near-tied logits; penalizing the first should make the second
	// win under the greedy shortcut.
	logits := []float32{5.0, 4.99}

	p := Defaults()
	p.Temperature = 0
	p.RepetitionPenalty = 1.3
	p.Generated = []int32{0}

	got := Sample(logits, p)
	if got != 1 {
		t.Fatalf("got %d, want 1 after penalizing id 0", got)
	}
}

func TestSampleTopPIsDeterministic(t *testing.T) {
	logits := []float32{1, 2, 3, 4, 5}

	p := Defaults()

	first := Sample(logits, p)
	second := Sample(logits, p)

	if first != second {
		t.Fatalf("non-deterministic result: %d != %d", first, second)
	}
}

func TestSampleTopPNarrowMassPicksArgmax(t *testing.T) {
	// A very small TopP should pick (close to) the single highest-mass id
	// once temperature sharpens the distribution.
	logits := []float32{0, 0, 0, 0, 10}

	p := Params{TopP: 0.5, Temperature: 0.29}

	got := Sample(logits, p)
	if got != 4 {
		t.Fatalf("got %d, want 4", got)
	}
}

func TestSampleDoesNotMutateInput(t *testing.T) {
	logits := []float32{1, 2, 3}
	snapshot := append([]float32{}, logits...)

	p := Defaults()
	p.Generated = []int32{0, 1}

	Sample(logits, p)

	for i := range logits {
		if logits[i] != snapshot[i] {
			t.Fatalf("Sample mutated input logits at %d", i)
		}
	}
}
