package stopmatch

import "testing"

func TestFeedLiteralMatch(t *testing.T) {
	m := New(nil)

	triggered, matched := m.Feed("The findings are normal.<end_of_turn>")
	if !triggered {
		t.Fatal("expected trigger on <end_of_turn>")
	}
	if matched != "<end_of_turn>" {
		t.Fatalf("matched = %q, want <end_of_turn>", matched)
	}
}

func TestFeedNormalizedEndOfReport(t *testing.T) {
	m := New(nil)

	triggered, matched := m.Feed("-- End Of-Report --")
	if !triggered {
		t.Fatal("expected normalized trigger")
	}
	if matched != "endofreport" {
		t.Fatalf("matched = %q, want endofreport", matched)
	}
}

func TestFeedNoMatch(t *testing.T) {
	m := New(nil)

	triggered, _ := m.Feed("Findings: mild cardiomegaly without acute disease.")
	if triggered {
		t.Fatal("unexpected trigger")
	}
}

func TestFeedAcrossChunkBoundary(t *testing.T) {
	m := New(nil)

	m.Feed("The report concludes. Disclai")
	triggered, matched := m.Feed("mer: this is AI generated.")
	if !triggered {
		t.Fatal("expected trigger split across two Feed calls")
	}
	if matched != "Disclaimer:" {
		t.Fatalf("matched = %q, want Disclaimer:", matched)
	}
}

func TestFeedWindowStaysBounded(t *testing.T) {
	m := New(nil)

	for i := 0; i < 1000; i++ {
		m.Feed("x")
	}

	if m.buf.Len() > trimAt {
		t.Fatalf("buffer grew unbounded: len=%d", m.buf.Len())
	}
}

func TestFeedEmptyTextNoOp(t *testing.T) {
	m := New(nil)

	triggered, _ := m.Feed("")
	if triggered {
		t.Fatal("empty text must never trigger")
	}
}

func TestFeedCustomStopStrings(t *testing.T) {
	m := New([]string{"STOP_HERE"})

	triggered, matched := m.Feed("go go STOP_HERE now")
	if !triggered || matched != "STOP_HERE" {
		t.Fatalf("triggered=%v matched=%q, want custom stop string", triggered, matched)
	}
}
