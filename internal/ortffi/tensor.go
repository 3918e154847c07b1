package ortffi

import (
	"fmt"
	"unsafe"
)

// onnxTensorElementFloat and onnxTensorElementInt64 are ONNXTensorElementDataType
// enum values for float32 and int64 tensors, the only two element types this
// runtime's graphs use.
const (
	onnxTensorElementFloat = 1
	onnxTensorElementInt64 = 7
)

// Tensor is an OrtValue handle. owned tracks whether Release must call
// ReleaseValue (true for every tensor the runtime allocated, e.g. Run
// outputs) or whether the Go side only leased memory into a
// caller-allocated buffer that outlives the Tensor (inputs built from a Go
// slice the caller keeps a reference to).
type Tensor struct {
	handle uintptr
	owned  bool

	// keepAlive pins the backing Go buffer for the lifetime of an
	// unowned Tensor so the garbage collector cannot reclaim it while
	// the runtime still holds a raw pointer into it.
	keepAlive interface{}
}

// Release frees the underlying OrtValue if this Tensor owns it.
func (t *Tensor) Release() {
	if t.owned && t.handle != 0 {
		api.call(ordReleaseValue, t.handle)
		t.handle = 0
	}
}

// Float32Data copies the tensor's contents out as a []float32. count must
// be the number of elements, which the caller derives from the tensor's
// known output shape (the runtime doesn't expose shape introspection
// through this package's narrow vtable slice, so callers that need it
// already know it from the graph's documented output shape).
func (t *Tensor) Float32Data(count int) ([]float32, error) {
	var ptr uintptr
	if err := api.ok(api.call(ordGetTensorMutableData, t.handle, uintptr(unsafe.Pointer(&ptr)))); err != nil {
		return nil, fmt.Errorf("GetTensorMutableData: %w", err)
	}

	src := unsafe.Slice((*float32)(unsafe.Pointer(ptr)), count)
	out := make([]float32, count)
	copy(out, src)

	return out, nil
}

func newFloatTensor(memInfo uintptr, data []float32, shape []int64) (*Tensor, error) {
	var handle uintptr

	var dataPtr unsafe.Pointer
	if len(data) > 0 {
		dataPtr = unsafe.Pointer(&data[0])
	}

	status := api.call(
		ordCreateTensorWithDataAsOrtValue,
		memInfo,
		uintptr(dataPtr),
		uintptr(len(data)*4),
		tensorShapePtr(shape),
		uintptr(len(shape)),
		uintptr(onnxTensorElementFloat),
		uintptr(unsafe.Pointer(&handle)),
	)
	if err := api.ok(status); err != nil {
		return nil, fmt.Errorf("CreateTensorWithDataAsOrtValue(float32): %w", err)
	}

	return &Tensor{handle: handle, owned: false, keepAlive: data}, nil
}

func newInt64Tensor(memInfo uintptr, data []int64, shape []int64) (*Tensor, error) {
	var handle uintptr

	var dataPtr unsafe.Pointer
	if len(data) > 0 {
		dataPtr = unsafe.Pointer(&data[0])
	}

	status := api.call(
		ordCreateTensorWithDataAsOrtValue,
		memInfo,
		uintptr(dataPtr),
		uintptr(len(data)*8),
		tensorShapePtr(shape),
		uintptr(len(shape)),
		uintptr(onnxTensorElementInt64),
		uintptr(unsafe.Pointer(&handle)),
	)
	if err := api.ok(status); err != nil {
		return nil, fmt.Errorf("CreateTensorWithDataAsOrtValue(int64): %w", err)
	}

	return &Tensor{handle: handle, owned: false, keepAlive: data}, nil
}

func tensorShapePtr(shape []int64) uintptr {
	if len(shape) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&shape[0]))
}
