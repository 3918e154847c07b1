// Package imagepreproc turns arbitrary JPEG/PNG bytes into the planar,
// normalized float tensor the vision encoder expects. It is grounded on the
// same decode->resize->convert->normalize pipeline the corpus's own vision
// preprocessing component uses, restructured so the decoded image and the
// final float tensor are never simultaneously the largest live allocation.
package imagepreproc

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
)

// Size is the fixed square side length the vision encoder expects.
const Size = 896

// Mean and Std are SigLIP-style per-channel normalization constants:
// (value/255 - Mean) / Std.
const (
	Mean = 0.5
	Std  = 0.5
)

// Error reasons surfaced to callers as the human-readable suffix of an
// "[IMG_ERR] ..." diagnostic.
var (
	ErrEmpty  = errors.New("input is null or empty")
	ErrDecode = errors.New("decode failed")
	ErrResize = errors.New("resize failed")
)

// Tensor is the planar (channel-major) float buffer of shape 1x3xSizexSize
// that feeds the vision encoder session. Values are laid out channel by
// channel (all red, then all green, then all blue) to match the encoder's
// expected input layout.
type Tensor struct {
	Data  []float32
	Shape [4]int64
}

// Process decodes data, resizes to Size x Size, and returns the planar
// normalized tensor. A nil/empty input returns ErrEmpty, a resize failure
// ErrResize, and a decode failure ErrDecode wrapped with the codec's
// message; the
// caller is expected to continue text-only rather than abort.
//
// Images with an alpha channel are flattened to RGB; for formats exposing
// multiple frames (e.g. animated GIF), only the first frame is used because
// image.Decode always returns a single frame.
func Process(data []byte) (Tensor, error) {
	if len(data) == 0 {
		return Tensor{}, ErrEmpty
	}

	decoded, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Tensor{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	resized, err := resize(decoded)
	// decoded is not referenced again past this point and becomes
	// GC-eligible here, before the float tensor below is allocated.
	decoded = nil
	if err != nil {
		return Tensor{}, err
	}

	return normalize(resized), nil
}

// resize scales img to Size x Size using bilinear interpolation, matching a
// linear resize over any source aspect ratio (no letterboxing — the model
// was trained on a direct square resize).
func resize(img image.Image) (*image.RGBA, error) {
	dst := image.NewRGBA(image.Rect(0, 0, Size, Size))

	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)

	if dst.Bounds().Dx() != Size || dst.Bounds().Dy() != Size {
		return nil, ErrResize
	}

	return dst, nil
}

// normalize converts the interleaved HWC uint8 RGBA image into a planar CHW
// float32 tensor, dropping alpha and applying (v/255 - Mean) / Std per
// channel. rgb is not retained by the caller past this call.
func normalize(rgb *image.RGBA) Tensor {
	area := Size * Size

	t := Tensor{
		Data:  make([]float32, 3*area),
		Shape: [4]int64{1, 3, Size, Size},
	}

	i := 0
	for y := 0; y < Size; y++ {
		row := rgb.PixOffset(0, y)
		for x := 0; x < Size; x++ {
			o := row + x*4
			r, g, b := rgb.Pix[o], rgb.Pix[o+1], rgb.Pix[o+2]

			t.Data[i] = (float32(r)/255 - Mean) / Std
			t.Data[area+i] = (float32(g)/255 - Mean) / Std
			t.Data[2*area+i] = (float32(b)/255 - Mean) / Std
			i++
		}
	}

	return t
}
