package tensor

import (
	"fmt"

	"github.com/veil-ml/veil/internal/parallel"
)

// binaryOp applies f element-wise with broadcasting.
func binaryOp(a, b *Array, f func(x, y float64) float64) (*Array, error) {
	outShape, needsBroadcast, err := BroadcastShapes(a.shape, b.shape)
	if err != nil {
		return nil, err
	}

	lhs, rhs := a, b
	if needsBroadcast {
		if lhs, err = a.BroadcastTo(outShape); err != nil {
			return nil, err
		}
		if rhs, err = b.BroadcastTo(outShape); err != nil {
			return nil, err
		}
	}

	out, err := NewArray(outShape)
	if err != nil {
		return nil, err
	}
	parallel.Zip(out.data, lhs.data, rhs.data, f, parallel.DefaultConfig())
	return out, nil
}

// Add returns a + b element-wise with broadcasting.
func Add(a, b *Array) (*Array, error) {
	return binaryOp(a, b, func(x, y float64) float64 { return x + y })
}

// Sub returns a - b element-wise with broadcasting.
func Sub(a, b *Array) (*Array, error) {
	return binaryOp(a, b, func(x, y float64) float64 { return x - y })
}

// Mul returns a * b element-wise with broadcasting.
func Mul(a, b *Array) (*Array, error) {
	return binaryOp(a, b, func(x, y float64) float64 { return x * y })
}

// Minimum returns the element-wise minimum of a and b with broadcasting.
func Minimum(a, b *Array) (*Array, error) {
	return binaryOp(a, b, func(x, y float64) float64 {
		if x < y {
			return x
		}
		return y
	})
}

// Maximum returns the element-wise maximum of a and b with broadcasting.
func Maximum(a, b *Array) (*Array, error) {
	return binaryOp(a, b, func(x, y float64) float64 {
		if x > y {
			return x
		}
		return y
	})
}

// MinReduce returns the element-wise minimum across all given arrays.
// Used for the four-cross-term bound propagation of sub and mul.
func MinReduce(arrs ...*Array) (*Array, error) {
	if len(arrs) == 0 {
		return nil, fmt.Errorf("minreduce: no arrays given")
	}
	out := arrs[0]
	var err error
	for _, arr := range arrs[1:] {
		if out, err = Minimum(out, arr); err != nil {
			return nil, err
		}
	}
	return out.Clone(), nil
}

// MaxReduce returns the element-wise maximum across all given arrays.
func MaxReduce(arrs ...*Array) (*Array, error) {
	if len(arrs) == 0 {
		return nil, fmt.Errorf("maxreduce: no arrays given")
	}
	out := arrs[0]
	var err error
	for _, arr := range arrs[1:] {
		if out, err = Maximum(out, arr); err != nil {
			return nil, err
		}
	}
	return out.Clone(), nil
}

// Neg returns -a.
func (a *Array) Neg() *Array {
	out := a.Clone()
	parallel.Map(out.data, a.data, func(v float64) float64 { return -v }, parallel.DefaultConfig())
	return out
}

// AddScalar returns a + v element-wise.
func (a *Array) AddScalar(v float64) *Array {
	out := a.Clone()
	parallel.Map(out.data, a.data, func(x float64) float64 { return x + v }, parallel.DefaultConfig())
	return out
}

// MulScalar returns a * v element-wise.
func (a *Array) MulScalar(v float64) *Array {
	out := a.Clone()
	parallel.Map(out.data, a.data, func(x float64) float64 { return x * v }, parallel.DefaultConfig())
	return out
}

// MatMul performs 2D matrix multiplication (M, K) @ (K, N) -> (M, N).
func MatMul(a, b *Array) (*Array, error) {
	outShape, err := MatMulShape(a.shape, b.shape)
	if err != nil {
		return nil, err
	}
	m, k, n := a.shape[0], a.shape[1], b.shape[1]

	out, err := NewArray(outShape)
	if err != nil {
		return nil, err
	}
	cfg := parallel.DefaultConfig()
	parallel.For(m, func(i int) {
		for j := 0; j < n; j++ {
			sum := 0.0
			for kk := 0; kk < k; kk++ {
				sum += a.data[i*k+kk] * b.data[kk*n+j]
			}
			out.data[i*n+j] = sum
		}
	}, cfg)
	return out, nil
}

// Dot computes the dot product. For 1D operands of equal length it returns a
// scalar; for 2D operands it is matrix multiplication.
func Dot(a, b *Array) (*Array, error) {
	if len(a.shape) == 1 && len(b.shape) == 1 {
		if a.shape[0] != b.shape[0] {
			return nil, fmt.Errorf("dot: length mismatch %d vs %d", a.shape[0], b.shape[0])
		}
		sum := 0.0
		for i := range a.data {
			sum += a.data[i] * b.data[i]
		}
		return Scalar(sum), nil
	}
	return MatMul(a, b)
}

// Transpose permutes the array's axes. With no axes given the axis order is
// reversed. A scalar array is returned unchanged.
func (a *Array) Transpose(axes ...int) (*Array, error) {
	rank := len(a.shape)
	if rank == 0 {
		return a.Clone(), nil
	}
	if len(axes) == 0 {
		axes = make([]int, rank)
		for i := range axes {
			axes[i] = rank - 1 - i
		}
	}
	if len(axes) != rank {
		return nil, fmt.Errorf("transpose: %d axes given for %dD tensor", len(axes), rank)
	}

	outShape := make(Shape, rank)
	for i, ax := range axes {
		if ax < 0 || ax >= rank {
			return nil, fmt.Errorf("transpose: axis %d out of range", ax)
		}
		outShape[i] = a.shape[ax]
	}

	out, err := NewArray(outShape)
	if err != nil {
		return nil, err
	}
	srcStrides := a.shape.ComputeStrides()
	dstStrides := outShape.ComputeStrides()
	for i := range out.data {
		srcIdx := 0
		for d, stride := range dstStrides {
			coord := (i / stride) % outShape[d]
			srcIdx += coord * srcStrides[axes[d]]
		}
		out.data[i] = a.data[srcIdx]
	}
	return out, nil
}

// Concatenate joins a and b along the given axis.
func Concatenate(a, b *Array, axis int) (*Array, error) {
	outShape, err := ConcatShape(a.shape, b.shape, axis)
	if err != nil {
		return nil, err
	}
	out, err := NewArray(outShape)
	if err != nil {
		return nil, err
	}

	// Copy block-wise: everything before the axis indexes blocks, everything
	// from the axis down is contiguous within each source.
	outer := 1
	for i := 0; i < axis; i++ {
		outer *= outShape[i]
	}
	aBlock := a.shape.NumElements() / outer
	bBlock := b.shape.NumElements() / outer
	for i := 0; i < outer; i++ {
		dst := out.data[i*(aBlock+bBlock):]
		copy(dst[:aBlock], a.data[i*aBlock:(i+1)*aBlock])
		copy(dst[aBlock:aBlock+bBlock], b.data[i*bBlock:(i+1)*bBlock])
	}
	return out, nil
}

// Sum reduces the whole array to a scalar. Axis reductions beyond "all" are
// not part of this substrate.
func (a *Array) Sum() *Array {
	sum := 0.0
	for _, v := range a.data {
		sum += v
	}
	return Scalar(sum)
}

// compareOp applies f element-wise producing a 0/1-valued array.
func compareOp(a, b *Array, f func(x, y float64) bool) (*Array, error) {
	return binaryOp(a, b, func(x, y float64) float64 {
		if f(x, y) {
			return 1
		}
		return 0
	})
}

// Lt returns (a < b) as a 0/1-valued array.
func Lt(a, b *Array) (*Array, error) {
	return compareOp(a, b, func(x, y float64) bool { return x < y })
}

// Gt returns (a > b) as a 0/1-valued array.
func Gt(a, b *Array) (*Array, error) {
	return compareOp(a, b, func(x, y float64) bool { return x > y })
}

// Ge returns (a >= b) as a 0/1-valued array.
func Ge(a, b *Array) (*Array, error) {
	return compareOp(a, b, func(x, y float64) bool { return x >= y })
}

// Le returns (a <= b) as a 0/1-valued array.
func Le(a, b *Array) (*Array, error) {
	return compareOp(a, b, func(x, y float64) bool { return x <= y })
}

// Eq returns (a == b) as a 0/1-valued array.
func Eq(a, b *Array) (*Array, error) {
	return compareOp(a, b, func(x, y float64) bool { return x == y })
}

// Ne returns (a != b) as a 0/1-valued array.
func Ne(a, b *Array) (*Array, error) {
	return compareOp(a, b, func(x, y float64) bool { return x != y })
}
