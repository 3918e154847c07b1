package imagepreproc

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, w, h int, fill color.RGBA) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, fill)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture png: %v", err)
	}

	return buf.Bytes()
}

func TestProcessEmptyInput(t *testing.T) {
	if _, err := Process(nil); err != ErrEmpty {
		t.Fatalf("got %v, want ErrEmpty", err)
	}

	if _, err := Process([]byte{}); err != ErrEmpty {
		t.Fatalf("got %v, want ErrEmpty", err)
	}
}

func TestProcessMalformedInput(t *testing.T) {
	_, err := Process([]byte("not an image"))
	if err == nil {
		t.Fatal("expected decode error, got nil")
	}
}

func TestProcessShape(t *testing.T) {
	data := encodePNG(t, 64, 32, color.RGBA{R: 255, G: 0, B: 0, A: 255})

	tensor, err := Process(data)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	wantShape := [4]int64{1, 3, Size, Size}
	if tensor.Shape != wantShape {
		t.Fatalf("shape = %v, want %v", tensor.Shape, wantShape)
	}

	wantLen := 3 * Size * Size
	if len(tensor.Data) != wantLen {
		t.Fatalf("len(Data) = %d, want %d", len(tensor.Data), wantLen)
	}
}

func TestProcessNormalization(t *testing.T) {
	// Pure red fills every pixel after resize, so every red-channel value
	// should normalize to (1-0.5)/0.5 = 1 and every green/blue value to
	// (0-0.5)/0.5 = -1.
	data := encodePNG(t, 8, 8, color.RGBA{R: 255, G: 0, B: 0, A: 255})

	tensor, err := Process(data)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	area := Size * Size
	const eps = 1e-3

	if got := tensor.Data[0]; abs(got-1) > eps {
		t.Errorf("red plane[0] = %v, want ~1", got)
	}
	if got := tensor.Data[area]; abs(got+1) > eps {
		t.Errorf("green plane[0] = %v, want ~-1", got)
	}
	if got := tensor.Data[2*area]; abs(got+1) > eps {
		t.Errorf("blue plane[0] = %v, want ~-1", got)
	}
}

func abs(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}
