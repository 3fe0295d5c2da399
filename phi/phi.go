// Copyright 2025 Veil ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package phi provides the public API for private tensors in the Veil
// framework.
//
// A PrivateTensor couples a fixed-point payload with statically tracked
// min/max bound envelopes and a per-element data-subject assignment.
// Arithmetic propagates bounds soundly and preserves provenance; when two
// operands' data subjects disagree, the result is promoted to a disclosure
// tensor (GammaTensor) whose release is budget-checked and noised.
//
// Example:
//
//	t, _ := phi.FromSlice([]float64{1, 2, 3}, phi.Shape{3}, "alice", 0, 10)
//	out, _ := t.Add(4.0)
package phi

import (
	"github.com/veil-ml/veil/internal/bounds"
	"github.com/veil-ml/veil/internal/fixed"
	"github.com/veil-ml/veil/internal/phi"
	"github.com/veil-ml/veil/internal/provenance"
	"github.com/veil-ml/veil/internal/tensor"
)

// Shape represents tensor dimensions.
type Shape = tensor.Shape

// Array is a dense float64 array, the decoded form of a payload.
type Array = tensor.Array

// Scalar builds a rank-0 array holding a single value.
func Scalar(v float64) *Array { return tensor.Scalar(v) }

// PrivateTensor is a bound-tracked, provenance-carrying tensor.
type PrivateTensor = phi.PrivateTensor

// Value is the result of an operation: a *PrivateTensor or a *GammaTensor.
type Value = phi.Value

// Option configures a PrivateTensor.
type Option = phi.Option

// WithLogger attaches a structured logger.
var WithLogger = phi.WithLogger

// Payload is the fixed-point encoded private data of a tensor.
type Payload = fixed.Tensor

// Envelope is a lazily-broadcast min or max bound.
type Envelope = bounds.Envelope

// NewEnvelope creates an envelope from bound data covering a shape.
func NewEnvelope(data *Array, shape Shape) (*Envelope, error) {
	return bounds.New(data, shape)
}

// NewScalarEnvelope creates an envelope holding a single repeated bound.
func NewScalarEnvelope(v float64, shape Shape) *Envelope {
	return bounds.NewScalar(v, shape)
}

// SubjectSet is a per-element data-subject assignment.
type SubjectSet = provenance.Set

// SubjectsFrom builds a single-subject assignment covering n elements.
func SubjectsFrom(subject string, n int) *SubjectSet {
	return provenance.FromSubject(subject, n)
}

// SubjectsFromSlice builds an assignment from one subject name per element.
func SubjectsFromSlice(perElement []string) *SubjectSet {
	return provenance.FromSubjects(perElement)
}

// New creates a PrivateTensor from a payload, a subject set, and min/max
// bound envelopes.
func New(payload *Payload, subjects *SubjectSet, minVals, maxVals *Envelope, opts ...Option) (*PrivateTensor, error) {
	return phi.New(payload, subjects, minVals, maxVals, opts...)
}

// FromSlice builds a single-subject PrivateTensor from raw values and
// declared scalar bounds.
func FromSlice(data []float64, shape Shape, subject string, minVal, maxVal float64, opts ...Option) (*PrivateTensor, error) {
	return phi.FromSlice(data, shape, subject, minVal, maxVal, opts...)
}

// FromRows stacks single-subject row tensors into one tensor with a leading
// stacking dimension.
func FromRows(rows []*PrivateTensor) (*PrivateTensor, error) {
	return phi.FromRows(rows)
}

// NewWithoutPayload builds a metadata-only tensor with no private data.
func NewWithoutPayload(subjects *SubjectSet, minVals, maxVals *Envelope, shape Shape, dtype tensor.DataType) *PrivateTensor {
	return phi.NewWithoutPayload(subjects, minVals, maxVals, shape, dtype)
}
