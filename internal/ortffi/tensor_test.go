package ortffi

import "testing"

func TestCBytesNulTerminated(t *testing.T) {
	b := cBytes("hello")
	if len(b) != 6 || b[5] != 0 {
		t.Fatalf("cBytes(hello) = %v, want 6 bytes ending in NUL", b)
	}
	if string(b[:5]) != "hello" {
		t.Fatalf("cBytes(hello) content = %q", b[:5])
	}
}

func TestTensorShapePtrEmptyShape(t *testing.T) {
	if got := tensorShapePtr(nil); got != 0 {
		t.Fatalf("tensorShapePtr(nil) = %#x, want 0", got)
	}
}
