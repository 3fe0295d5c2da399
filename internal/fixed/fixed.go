// Package fixed implements the fixed-point payload tensor that carries the
// actual private data inside a PrivateTensor. Values are stored as int64
// scaled by 2^fracBits; all arithmetic stays in the scaled domain.
package fixed

import (
	"fmt"

	"github.com/veil-ml/veil/internal/tensor"
)

// DefaultFracBits is the default fractional precision of the encoding.
const DefaultFracBits = 16

// Tensor is a fixed-point encoded payload tensor.
type Tensor struct {
	data     []int64
	shape    tensor.Shape
	fracBits uint
	dtype    tensor.DataType // declared logical element type
}

// Encode converts a float64 array into a fixed-point tensor.
func Encode(arr *tensor.Array, dtype tensor.DataType, fracBits uint) *Tensor {
	src := arr.Data()
	data := make([]int64, len(src))
	scale := float64(int64(1) << fracBits)
	for i, v := range src {
		data[i] = int64(v * scale)
	}
	return &Tensor{
		data:     data,
		shape:    arr.Shape().Clone(),
		fracBits: fracBits,
		dtype:    dtype,
	}
}

// FromScaled wraps already-scaled int64 data. Used by the decoder.
func FromScaled(data []int64, shape tensor.Shape, dtype tensor.DataType, fracBits uint) (*Tensor, error) {
	if len(data) != shape.NumElements() {
		return nil, fmt.Errorf("scaled data length %d does not match shape %v", len(data), shape)
	}
	return &Tensor{
		data:     append([]int64(nil), data...),
		shape:    shape.Clone(),
		fracBits: fracBits,
		dtype:    dtype,
	}, nil
}

// Decode converts the payload back to a float64 array.
func (t *Tensor) Decode() *tensor.Array {
	scale := float64(int64(1) << t.fracBits)
	out := make([]float64, len(t.data))
	for i, v := range t.data {
		out[i] = float64(v) / scale
	}
	arr, err := tensor.FromSlice(out, t.shape)
	if err != nil {
		// shape invariant is maintained by every constructor
		panic(fmt.Sprintf("fixed: corrupt tensor: %v", err))
	}
	return arr
}

// Shape returns the payload shape.
func (t *Tensor) Shape() tensor.Shape { return t.shape }

// DType returns the declared logical element type.
func (t *Tensor) DType() tensor.DataType { return t.dtype }

// FracBits returns the fractional precision of the encoding.
func (t *Tensor) FracBits() uint { return t.fracBits }

// NumElements returns the total element count.
func (t *Tensor) NumElements() int { return len(t.data) }

// Scaled returns the raw scaled storage. Callers must not mutate it.
func (t *Tensor) Scaled() []int64 { return t.data }

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	return &Tensor{
		data:     append([]int64(nil), t.data...),
		shape:    t.shape.Clone(),
		fracBits: t.fracBits,
		dtype:    t.dtype,
	}
}

// SetFromArray overwrites the payload with re-encoded values from arr.
// The array must match the payload's element count.
func (t *Tensor) SetFromArray(arr *tensor.Array) error {
	if arr.NumElements() != len(t.data) {
		return fmt.Errorf("element count mismatch: payload has %d, array has %d",
			len(t.data), arr.NumElements())
	}
	scale := float64(int64(1) << t.fracBits)
	for i, v := range arr.Data() {
		t.data[i] = int64(v * scale)
	}
	return nil
}

func (t *Tensor) check(other *Tensor) error {
	if t.fracBits != other.fracBits {
		return fmt.Errorf("fractional precision mismatch: %d vs %d", t.fracBits, other.fracBits)
	}
	return nil
}

// broadcastScaled materializes scaled data at the target shape.
func broadcastScaled(data []int64, from, to tensor.Shape) ([]int64, error) {
	if from.Equal(to) {
		return data, nil
	}
	out := make([]int64, to.NumElements())
	srcStrides := from.ComputeStrides()
	dstStrides := to.ComputeStrides()
	offset := len(to) - len(from)
	for i := range out {
		srcIdx := 0
		for d, stride := range dstStrides {
			coord := (i / stride) % to[d]
			sd := d - offset
			if sd < 0 || from[sd] == 1 {
				continue
			}
			srcIdx += coord * srcStrides[sd]
		}
		out[i] = data[srcIdx]
	}
	return out, nil
}

func (t *Tensor) binary(other *Tensor, f func(a, b int64) int64) (*Tensor, error) {
	if err := t.check(other); err != nil {
		return nil, err
	}
	outShape, _, err := tensor.BroadcastShapes(t.shape, other.shape)
	if err != nil {
		return nil, err
	}
	lhs, err := broadcastScaled(t.data, t.shape, outShape)
	if err != nil {
		return nil, err
	}
	rhs, err := broadcastScaled(other.data, other.shape, outShape)
	if err != nil {
		return nil, err
	}
	out := make([]int64, outShape.NumElements())
	for i := range out {
		out[i] = f(lhs[i], rhs[i])
	}
	return &Tensor{data: out, shape: outShape, fracBits: t.fracBits, dtype: t.dtype}, nil
}

// Add returns t + other with broadcasting.
func (t *Tensor) Add(other *Tensor) (*Tensor, error) {
	return t.binary(other, func(a, b int64) int64 { return a + b })
}

// Sub returns t - other with broadcasting.
func (t *Tensor) Sub(other *Tensor) (*Tensor, error) {
	return t.binary(other, func(a, b int64) int64 { return a - b })
}

// Mul returns t * other with broadcasting, rescaling the doubled fraction.
func (t *Tensor) Mul(other *Tensor) (*Tensor, error) {
	frac := t.fracBits
	return t.binary(other, func(a, b int64) int64 { return (a * b) >> frac })
}

// Neg returns -t.
func (t *Tensor) Neg() *Tensor {
	out := t.Clone()
	for i := range out.data {
		out.data[i] = -out.data[i]
	}
	return out
}

// MatMul performs 2D matrix multiplication in the scaled domain.
func (t *Tensor) MatMul(other *Tensor) (*Tensor, error) {
	if err := t.check(other); err != nil {
		return nil, err
	}
	outShape, err := tensor.MatMulShape(t.shape, other.shape)
	if err != nil {
		return nil, err
	}
	m, k, n := t.shape[0], t.shape[1], other.shape[1]
	out := make([]int64, m*n)
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			var sum int64
			for kk := 0; kk < k; kk++ {
				sum += (t.data[i*k+kk] * other.data[kk*n+j]) >> t.fracBits
			}
			out[i*n+j] = sum
		}
	}
	return &Tensor{data: out, shape: outShape, fracBits: t.fracBits, dtype: t.dtype}, nil
}

// Dot computes the dot product: scalar for 1D operands, matmul for 2D.
func (t *Tensor) Dot(other *Tensor) (*Tensor, error) {
	if len(t.shape) == 1 && len(other.shape) == 1 {
		if err := t.check(other); err != nil {
			return nil, err
		}
		if t.shape[0] != other.shape[0] {
			return nil, fmt.Errorf("dot: length mismatch %d vs %d", t.shape[0], other.shape[0])
		}
		var sum int64
		for i := range t.data {
			sum += (t.data[i] * other.data[i]) >> t.fracBits
		}
		return &Tensor{data: []int64{sum}, shape: tensor.Shape{}, fracBits: t.fracBits, dtype: t.dtype}, nil
	}
	return t.MatMul(other)
}

// Transpose permutes the payload's axes; a scalar payload is unchanged.
func (t *Tensor) Transpose(axes ...int) (*Tensor, error) {
	arr, err := t.Decode().Transpose(axes...)
	if err != nil {
		return nil, err
	}
	return Encode(arr, t.dtype, t.fracBits), nil
}

// Concatenate joins t and other along the given axis.
func (t *Tensor) Concatenate(other *Tensor, axis int) (*Tensor, error) {
	if err := t.check(other); err != nil {
		return nil, err
	}
	outShape, err := tensor.ConcatShape(t.shape, other.shape, axis)
	if err != nil {
		return nil, err
	}
	out := make([]int64, outShape.NumElements())
	outer := 1
	for i := 0; i < axis; i++ {
		outer *= outShape[i]
	}
	aBlock := len(t.data) / outer
	bBlock := len(other.data) / outer
	for i := 0; i < outer; i++ {
		dst := out[i*(aBlock+bBlock):]
		copy(dst[:aBlock], t.data[i*aBlock:(i+1)*aBlock])
		copy(dst[aBlock:aBlock+bBlock], other.data[i*bBlock:(i+1)*bBlock])
	}
	return &Tensor{data: out, shape: outShape, fracBits: t.fracBits, dtype: t.dtype}, nil
}

// Sum reduces the whole payload to a scalar.
func (t *Tensor) Sum() *Tensor {
	var sum int64
	for _, v := range t.data {
		sum += v
	}
	return &Tensor{data: []int64{sum}, shape: tensor.Shape{}, fracBits: t.fracBits, dtype: t.dtype}
}

// compare produces a boolean-valued payload (0 or 1 in the scaled domain).
func (t *Tensor) compare(other *Tensor, f func(a, b int64) bool) (*Tensor, error) {
	one := int64(1) << t.fracBits
	out, err := t.binary(other, func(a, b int64) int64 {
		if f(a, b) {
			return one
		}
		return 0
	})
	if err != nil {
		return nil, err
	}
	out.dtype = tensor.Bool
	return out, nil
}

// Lt returns (t < other) as a boolean payload.
func (t *Tensor) Lt(other *Tensor) (*Tensor, error) {
	return t.compare(other, func(a, b int64) bool { return a < b })
}

// Gt returns (t > other) as a boolean payload.
func (t *Tensor) Gt(other *Tensor) (*Tensor, error) {
	return t.compare(other, func(a, b int64) bool { return a > b })
}

// Eq returns (t == other) as a boolean payload.
func (t *Tensor) Eq(other *Tensor) (*Tensor, error) {
	return t.compare(other, func(a, b int64) bool { return a == b })
}

// Ne returns (t != other) as a boolean payload.
func (t *Tensor) Ne(other *Tensor) (*Tensor, error) {
	return t.compare(other, func(a, b int64) bool { return a != b })
}

// All reports whether every element is non-zero.
func (t *Tensor) All() bool {
	for _, v := range t.data {
		if v == 0 {
			return false
		}
	}
	return true
}

// Any reports whether any element is non-zero.
func (t *Tensor) Any() bool {
	for _, v := range t.data {
		if v != 0 {
			return true
		}
	}
	return false
}

// AsType returns a copy with a different declared logical type. The scaled
// storage is unchanged; the declared type only affects ring selection and
// the advertised public dtype.
func (t *Tensor) AsType(dtype tensor.DataType) *Tensor {
	out := t.Clone()
	out.dtype = dtype
	return out
}

func (t *Tensor) String() string {
	return fmt.Sprintf("fixed.Tensor(shape=%v, dtype=%s, fracBits=%d)", t.shape, t.dtype, t.fracBits)
}
