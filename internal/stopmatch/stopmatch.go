// Package stopmatch detects configured stop strings in a streaming decode
// output without ever buffering the full generated text: it keeps a bounded
// rolling window of recently emitted characters and checks that window
// against a literal stop-string list plus a normalized variant for a couple
// of phrases that show up with inconsistent case, spacing, or punctuation.
package stopmatch

import "strings"

// BufSize is the number of trailing characters retained in the rolling
// window, sized to comfortably hold the longest configured stop string.
const BufSize = 64

// trimAt is how large the buffer is allowed to grow before being trimmed
// back down to BufSize; keeping headroom avoids rebuilding the string on
// every single append.
const trimAt = BufSize * 2

// Default is the stop-string set a report-generation decode loop matches
// against: model control tokens plus the trailing boilerplate the model
// tends to emit once the substantive report is complete.
var Default = []string{
	"<end_of_turn>",
	"<eos>",
	"---END OF REPORT---",
	"--- END OF REPORT ---",
	"End of Report",
	"end of report",
	"Generated by KintaMed",
	"Disclaimer:",
	"DISCLAIMER:",
	"Note: This AI",
	"Note: This report",
	"NOTE: This",
	"*This report is",
	"This is not medical advice",
	"Confidentiality Notice",
}

// Matcher accumulates emitted text in a bounded rolling window and reports
// whether a stop condition has been reached. A Matcher is not safe for
// concurrent use; each decode loop owns its own instance.
type Matcher struct {
	stopStrings []string
	buf         strings.Builder
}

// New returns a Matcher checking against stopStrings. A nil or empty slice
// uses Default.
func New(stopStrings []string) *Matcher {
	if len(stopStrings) == 0 {
		stopStrings = Default
	}
	return &Matcher{stopStrings: stopStrings}
}

// Feed appends text to the rolling window and reports whether a stop
// condition triggered, along with what matched: the literal stop string, or
// "endofreport" / "generatedbykintamed" for a normalized-only match.
func (m *Matcher) Feed(text string) (triggered bool, matched string) {
	if text == "" {
		return false, ""
	}

	m.buf.WriteString(text)
	m.trim()

	window := m.buf.String()

	for _, ss := range m.stopStrings {
		if len(window) >= len(ss) && strings.Contains(window, ss) {
			return true, ss
		}
	}

	normalized := normalize(window)
	if strings.Contains(normalized, "endofreport") {
		return true, "endofreport"
	}
	if strings.Contains(normalized, "generatedbykintamed") {
		return true, "generatedbykintamed"
	}

	return false, ""
}

func (m *Matcher) trim() {
	if m.buf.Len() <= trimAt {
		return
	}

	kept := m.buf.String()
	kept = kept[len(kept)-BufSize:]

	m.buf.Reset()
	m.buf.WriteString(kept)
}

// normalize lowercases and strips every non-alphanumeric rune, so stop
// phrases survive across case, spacing, and punctuation variation.
func normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r - 'A' + 'a')
		}
	}

	return b.String()
}
