package tensor

import (
	"fmt"
	"math/rand"
)

// Array is a dense row-major float64 tensor. It is the numeric substrate for
// bound envelopes and for decoded payload values; every operation allocates a
// fresh Array so callers can treat values as immutable snapshots.
type Array struct {
	data  []float64
	shape Shape
}

// NewArray allocates a zero-filled array with the given shape.
func NewArray(shape Shape) (*Array, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	return &Array{
		data:  make([]float64, shape.NumElements()),
		shape: shape.Clone(),
	}, nil
}

// FromSlice wraps a copy of data with the given shape.
func FromSlice(data []float64, shape Shape) (*Array, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	if len(data) != shape.NumElements() {
		return nil, fmt.Errorf("data length %d does not match shape %v (%d elements)",
			len(data), shape, shape.NumElements())
	}
	return &Array{
		data:  append([]float64(nil), data...),
		shape: shape.Clone(),
	}, nil
}

// Scalar returns a rank-0 array holding a single value.
func Scalar(v float64) *Array {
	return &Array{data: []float64{v}, shape: Shape{}}
}

// Full returns an array with every element set to v.
func Full(shape Shape, v float64) (*Array, error) {
	arr, err := NewArray(shape)
	if err != nil {
		return nil, err
	}
	for i := range arr.data {
		arr.data[i] = v
	}
	return arr, nil
}

// Uniform returns an array of samples drawn uniformly from [lo, hi).
// Used for bounds-derived synthetic data on remote handles.
func Uniform(shape Shape, lo, hi float64) (*Array, error) {
	arr, err := NewArray(shape)
	if err != nil {
		return nil, err
	}
	for i := range arr.data {
		arr.data[i] = lo + rand.Float64()*(hi-lo)
	}
	return arr, nil
}

// Shape returns the array's shape.
func (a *Array) Shape() Shape {
	return a.shape
}

// Data returns the underlying storage. Callers must not mutate it.
func (a *Array) Data() []float64 {
	return a.data
}

// NumElements returns the total element count.
func (a *Array) NumElements() int {
	return len(a.data)
}

// IsScalar reports whether the array is rank 0.
func (a *Array) IsScalar() bool {
	return a.shape.IsScalar()
}

// Item returns the single element of a scalar array.
func (a *Array) Item() float64 {
	if len(a.data) != 1 {
		panic(fmt.Sprintf("Item on array with %d elements", len(a.data)))
	}
	return a.data[0]
}

// Clone returns a deep copy.
func (a *Array) Clone() *Array {
	return &Array{
		data:  append([]float64(nil), a.data...),
		shape: a.shape.Clone(),
	}
}

// Equal reports exact element-wise and shape equality.
func (a *Array) Equal(other *Array) bool {
	if !a.shape.Equal(other.shape) {
		return false
	}
	for i := range a.data {
		if a.data[i] != other.data[i] {
			return false
		}
	}
	return true
}

// BroadcastTo materializes the array at the target shape following the
// standard broadcasting rules.
func (a *Array) BroadcastTo(target Shape) (*Array, error) {
	if a.shape.Equal(target) {
		return a.Clone(), nil
	}
	bcast, _, err := BroadcastShapes(a.shape, target)
	if err != nil {
		return nil, err
	}
	if !bcast.Equal(target) {
		return nil, fmt.Errorf("cannot broadcast %v to %v", a.shape, target)
	}

	out, err := NewArray(target)
	if err != nil {
		return nil, err
	}
	srcStrides := a.shape.ComputeStrides()
	dstStrides := target.ComputeStrides()
	offset := len(target) - len(a.shape)
	for i := range out.data {
		srcIdx := 0
		for d, stride := range dstStrides {
			coord := (i / stride) % target[d]
			sd := d - offset
			if sd < 0 {
				continue
			}
			if a.shape[sd] == 1 {
				continue
			}
			srcIdx += coord * srcStrides[sd]
		}
		out.data[i] = a.data[srcIdx]
	}
	return out, nil
}

// Reshape returns a view-copy with a new shape holding the same elements.
func (a *Array) Reshape(shape Shape) (*Array, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if shape.NumElements() != len(a.data) {
		return nil, fmt.Errorf("cannot reshape %v (%d elements) to %v (%d elements)",
			a.shape, len(a.data), shape, shape.NumElements())
	}
	return &Array{
		data:  append([]float64(nil), a.data...),
		shape: shape.Clone(),
	}, nil
}

// String renders a compact representation for diagnostics.
func (a *Array) String() string {
	if len(a.data) <= 8 {
		return fmt.Sprintf("Array(shape=%v, data=%v)", a.shape, a.data)
	}
	return fmt.Sprintf("Array(shape=%v, data=[%v %v %v ...])", a.shape, a.data[0], a.data[1], a.data[2])
}
