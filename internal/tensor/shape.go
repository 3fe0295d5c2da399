package tensor

import "fmt"

// Shape represents the dimensions of a tensor. A zero-length shape is a
// scalar with one element.
type Shape []int

// NumElements returns the total number of elements in the tensor.
func (s Shape) NumElements() int {
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// IsScalar reports whether the shape is rank 0.
func (s Shape) IsScalar() bool {
	return len(s) == 0
}

// Validate checks that all dimensions are positive.
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim <= 0 {
			return fmt.Errorf("invalid dimension at index %d: %d (must be > 0)", i, dim)
		}
	}
	return nil
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// Reversed returns the shape with its axes reversed. This is the declared
// result shape of a transpose with no explicit axis permutation.
func (s Shape) Reversed() Shape {
	rev := make(Shape, len(s))
	for i, dim := range s {
		rev[len(s)-1-i] = dim
	}
	return rev
}

// ComputeStrides calculates row-major strides for the shape.
func (s Shape) ComputeStrides() []int {
	strides := make([]int, len(s))
	if len(s) == 0 {
		return strides
	}
	strides[len(s)-1] = 1
	for i := len(s) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * s[i+1]
	}
	return strides
}

// BroadcastShapes implements NumPy-style broadcasting rules.
//
// Shapes are compared element-wise from right to left; dimensions are
// compatible when equal or when one of them is 1, and missing dimensions are
// treated as 1. Returns the broadcast shape and whether either operand needs
// broadcasting.
func BroadcastShapes(a, b Shape) (Shape, bool, error) {
	maxLen := max(len(a), len(b))
	result := make(Shape, maxLen)
	needsBroadcast := false

	for i := 0; i < maxLen; i++ {
		aDim, bDim := 1, 1
		if idx := len(a) - 1 - i; idx >= 0 {
			aDim = a[idx]
		}
		if idx := len(b) - 1 - i; idx >= 0 {
			bDim = b[idx]
		}

		switch {
		case aDim == bDim:
			result[maxLen-1-i] = aDim
		case aDim == 1:
			result[maxLen-1-i] = bDim
			needsBroadcast = true
		case bDim == 1:
			result[maxLen-1-i] = aDim
			needsBroadcast = true
		default:
			return nil, false, fmt.Errorf("shapes not compatible for broadcasting: %v vs %v (dimension %d: %d vs %d)",
				a, b, maxLen-1-i, aDim, bDim)
		}
	}

	return result, needsBroadcast, nil
}

// IsBroadcastable reports whether two shapes can be broadcast together.
func IsBroadcastable(a, b Shape) bool {
	_, _, err := BroadcastShapes(a, b)
	return err == nil
}

// MatMulShape returns the result shape of a 2D matrix multiplication
// (M, K) @ (K, N) -> (M, N).
func MatMulShape(a, b Shape) (Shape, error) {
	if len(a) != 2 || len(b) != 2 {
		return nil, fmt.Errorf("matmul: only 2D tensors supported, got %dD and %dD", len(a), len(b))
	}
	if a[1] != b[0] {
		return nil, fmt.Errorf("matmul: shape mismatch [%d,%d] @ [%d,%d]", a[0], a[1], b[0], b[1])
	}
	return Shape{a[0], b[1]}, nil
}

// ConcatShape returns the result shape of concatenating a and b along axis.
// All dimensions other than axis must agree.
func ConcatShape(a, b Shape, axis int) (Shape, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("concatenate: rank mismatch %dD vs %dD", len(a), len(b))
	}
	if axis < 0 || axis >= len(a) {
		return nil, fmt.Errorf("concatenate: axis %d out of range for %dD tensor", axis, len(a))
	}
	out := a.Clone()
	for i := range a {
		if i == axis {
			out[i] = a[i] + b[i]
			continue
		}
		if a[i] != b[i] {
			return nil, fmt.Errorf("concatenate: dimension %d mismatch %d vs %d", i, a[i], b[i])
		}
	}
	return out, nil
}
