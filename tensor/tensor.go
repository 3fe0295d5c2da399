// Copyright 2025 Veil ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public API for the dense array substrate of
// the Veil framework: shapes, element types, and the float64 arrays that
// back bound envelopes and decoded payloads.
package tensor

import (
	"github.com/veil-ml/veil/internal/tensor"
)

// DataType represents the declared logical element type of a tensor.
type DataType = tensor.DataType

// Data type constants.
const (
	Float64 DataType = tensor.Float64
	Float32 DataType = tensor.Float32
	Int64   DataType = tensor.Int64
	Int32   DataType = tensor.Int32
	Uint8   DataType = tensor.Uint8
	Bool    DataType = tensor.Bool
)

// ParseDataType resolves a type name to its DataType.
func ParseDataType(name string) (DataType, bool) {
	return tensor.ParseDataType(name)
}

// Shape represents the dimensions of a tensor.
// Example: Shape{2, 3} represents a 2D tensor with dimensions 2×3.
type Shape = tensor.Shape

// Array is a dense row-major float64 array.
type Array = tensor.Array

// NewArray allocates a zero-filled array of the given shape.
func NewArray(shape Shape) (*Array, error) {
	return tensor.NewArray(shape)
}

// FromSlice builds an array from raw values and a shape.
func FromSlice(data []float64, shape Shape) (*Array, error) {
	return tensor.FromSlice(data, shape)
}

// Scalar builds a rank-0 array holding a single value.
func Scalar(v float64) *Array {
	return tensor.Scalar(v)
}

// Full builds an array with every element set to v.
func Full(shape Shape, v float64) (*Array, error) {
	return tensor.Full(shape, v)
}
