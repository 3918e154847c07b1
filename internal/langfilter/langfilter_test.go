package langfilter

import "testing"

func TestIsEnglishASCII(t *testing.T) {
	if !IsEnglish("the patient presents with mild edema") {
		t.Fatal("plain ASCII should pass")
	}
}

func TestIsEnglishLatinExtended(t *testing.T) {
	// café, naïve — Latin-1 Supplement, within U+0080-U+024F.
	if !IsEnglish("café") {
		t.Fatal("Latin-1 supplement should pass")
	}
}

func TestIsEnglishBlocksCyrillic(t *testing.T) {
	if IsEnglish("пациент") {
		t.Fatal("Cyrillic (2-byte, > U+024F) should be blocked")
	}
}

func TestIsEnglishBlocksCJK(t *testing.T) {
	if IsEnglish("患者") {
		t.Fatal("CJK (3-byte) should be blocked")
	}
}

func TestIsEnglishBlocksEmoji(t *testing.T) {
	if IsEnglish("👍") {
		t.Fatal("emoji (4-byte) should be blocked")
	}
}

// fakeTokenizer is used through a pointer so that, like the real tokenizer,
// it is a comparable value Mask can key its cache on.
type fakeTokenizer struct {
	text map[int32]string
}

func (f *fakeTokenizer) DecodeToken(id int32) (string, bool) {
	s, ok := f.text[id]
	return s, ok
}

func TestMaskBuildsAndCaches(t *testing.T) {
	tok := &fakeTokenizer{text: map[int32]string{0: "hello", 1: "患者", 2: "world"}}

	mask := Mask(tok, 3)
	if mask[0] || mask[2] || !mask[1] {
		t.Fatalf("mask = %v, want [false true false]", mask)
	}

	// Mutate the backing tokenizer; a second call must return the cached
	// mask rather than rebuilding.
	tok.text[0] = "患者"
	again := Mask(tok, 3)
	if again[0] {
		t.Fatal("expected cached mask, got rebuilt mask")
	}

	Forget(tok)
}

func TestMaskUndecodableIDsStayAllowed(t *testing.T) {
	tok := &fakeTokenizer{text: map[int32]string{0: "hello"}}

	mask := Mask(tok, 2)
	if mask[0] || mask[1] {
		t.Fatalf("mask = %v, want [false false]", mask)
	}

	Forget(tok)
}
