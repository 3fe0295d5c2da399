// Package phi implements the PrivateTensor: a fixed-point payload carrying a
// statically tracked min/max bound envelope and a per-element data-subject
// assignment. Arithmetic propagates bounds soundly, preserves provenance,
// and promotes to a disclosure tensor whenever two operands' data subjects
// disagree or a result must be audited before release.
//
// Every tensor is an immutable snapshot: operations allocate fresh payloads,
// envelopes, and provenance sets, never mutating their operands.
package phi

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/veil-ml/veil/internal/bounds"
	"github.com/veil-ml/veil/internal/fixed"
	"github.com/veil-ml/veil/internal/gamma"
	"github.com/veil-ml/veil/internal/provenance"
	"github.com/veil-ml/veil/internal/tensor"
)

// Value is the result of an operation: either a *PrivateTensor (direct
// bound-propagated result) or a *gamma.Tensor (promoted disclosure result).
// Callers type-switch on the concrete type.
type Value interface {
	Shape() tensor.Shape
	DataSubjects() *provenance.Set
}

// PrivateTensor is the primary value type: payload + bound envelopes +
// provenance. All fields are replaced, not mutated, on each operation.
type PrivateTensor struct {
	payload  *fixed.Tensor
	minVals  *bounds.Envelope
	maxVals  *bounds.Envelope
	subjects *provenance.Set
	log      *zap.Logger
}

// Option configures a PrivateTensor.
type Option func(*PrivateTensor)

// WithLogger attaches a structured logger used for diagnostics.
func WithLogger(log *zap.Logger) Option {
	return func(t *PrivateTensor) { t.log = log }
}

// New creates a PrivateTensor from a fixed-point payload, a provenance set,
// and min/max bound envelopes. Envelopes are re-anchored to the payload
// shape; provenance must index either every element or every leading row.
func New(payload *fixed.Tensor, subjects *provenance.Set, minVals, maxVals *bounds.Envelope, opts ...Option) (*PrivateTensor, error) {
	shape := payload.Shape()

	anchor := func(e *bounds.Envelope) (*bounds.Envelope, error) {
		if e.Shape().Equal(shape) {
			return e.Copy(), nil
		}
		if !tensor.IsBroadcastable(e.Shape(), shape) {
			return nil, fmt.Errorf("bound envelope shape %v is not broadcastable to payload shape %v", e.Shape(), shape)
		}
		return bounds.New(e.Data(), shape)
	}

	lo, err := anchor(minVals)
	if err != nil {
		return nil, err
	}
	hi, err := anchor(maxVals)
	if err != nil {
		return nil, err
	}

	if err := checkOrdered(lo, hi); err != nil {
		return nil, err
	}
	if err := checkProvenance(subjects, shape); err != nil {
		return nil, err
	}

	t := &PrivateTensor{
		payload:  payload,
		minVals:  lo,
		maxVals:  hi,
		subjects: subjects,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// FromSlice builds a single-subject PrivateTensor from raw values and
// declared scalar bounds, fixed-point encoding the payload.
func FromSlice(data []float64, shape tensor.Shape, subject string, minVal, maxVal float64, opts ...Option) (*PrivateTensor, error) {
	arr, err := tensor.FromSlice(data, shape)
	if err != nil {
		return nil, err
	}
	payload := fixed.Encode(arr, tensor.Float64, fixed.DefaultFracBits)
	return New(
		payload,
		provenance.FromSubject(subject, shape.NumElements()),
		bounds.NewScalar(minVal, shape),
		bounds.NewScalar(maxVal, shape),
		opts...,
	)
}

// FromRows stacks per-subject row tensors into one tensor with a leading
// stacking dimension. Every row must have the same shape and declare exactly
// one subject.
func FromRows(rows []*PrivateTensor) (*PrivateTensor, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("from rows: no rows given")
	}
	rowShape := rows[0].Shape()
	perElement := make([]string, 0, len(rows)*rowShape.NumElements())

	stackShape := append(tensor.Shape{1}, rowShape...)
	var payload *fixed.Tensor
	var lo, hi *bounds.Envelope
	for i, row := range rows {
		if row.subjects.NumSubjects() != 1 {
			return nil, fmt.Errorf("from rows: row %d has %d subjects, want 1", i, row.subjects.NumSubjects())
		}
		if !row.Shape().Equal(rowShape) {
			return nil, &ShapeMismatchError{Op: "from rows", A: rowShape, B: row.Shape()}
		}
		subject := row.subjects.Subjects()[0]
		for j := 0; j < rowShape.NumElements(); j++ {
			perElement = append(perElement, subject)
		}

		rowPayload, err := reshapePayload(row.payload, stackShape)
		if err != nil {
			return nil, err
		}
		rowLo, err := row.minVals.Materialize()
		if err != nil {
			return nil, err
		}
		rowHi, err := row.maxVals.Materialize()
		if err != nil {
			return nil, err
		}
		loArr, err := rowLo.Reshape(stackShape)
		if err != nil {
			return nil, err
		}
		hiArr, err := rowHi.Reshape(stackShape)
		if err != nil {
			return nil, err
		}
		rowLoEnv, err := bounds.New(loArr, stackShape)
		if err != nil {
			return nil, err
		}
		rowHiEnv, err := bounds.New(hiArr, stackShape)
		if err != nil {
			return nil, err
		}

		if i == 0 {
			payload, lo, hi = rowPayload, rowLoEnv, rowHiEnv
			continue
		}
		if payload, err = payload.Concatenate(rowPayload, 0); err != nil {
			return nil, err
		}
		if lo, err = lo.Concatenate(rowLoEnv, 0); err != nil {
			return nil, err
		}
		if hi, err = hi.Concatenate(rowHiEnv, 0); err != nil {
			return nil, err
		}
	}

	return New(payload, provenance.FromSubjects(perElement), lo, hi)
}

func reshapePayload(p *fixed.Tensor, shape tensor.Shape) (*fixed.Tensor, error) {
	return fixed.FromScaled(p.Scaled(), shape, p.DType(), p.FracBits())
}

// NewWithoutPayload builds a metadata-only tensor: provenance, bounds,
// declared shape and dtype, but no private data. Used to mirror a remote
// tensor locally without its payload; arithmetic on it is undefined.
func NewWithoutPayload(subjects *provenance.Set, minVals, maxVals *bounds.Envelope, shape tensor.Shape, dtype tensor.DataType) *PrivateTensor {
	zero, _ := tensor.NewArray(shape)
	return &PrivateTensor{
		payload:  fixed.Encode(zero, dtype, fixed.DefaultFracBits),
		minVals:  minVals.Copy(),
		maxVals:  maxVals.Copy(),
		subjects: subjects.Copy(),
		log:      zap.NewNop(),
	}
}

func checkOrdered(lo, hi *bounds.Envelope) error {
	loArr, err := lo.Materialize()
	if err != nil {
		return err
	}
	hiArr, err := hi.Materialize()
	if err != nil {
		return err
	}
	loData, hiData := loArr.Data(), hiArr.Data()
	for i := range loData {
		if loData[i] > hiData[i] {
			return fmt.Errorf("min bound %v exceeds max bound %v at element %d", loData[i], hiData[i], i)
		}
	}
	return nil
}

func checkProvenance(subjects *provenance.Set, shape tensor.Shape) error {
	n := subjects.NumElements()
	if n == shape.NumElements() {
		return nil
	}
	if len(shape) > 0 && n == shape[0] {
		// row-level attribution: one subject per leading row
		return nil
	}
	return fmt.Errorf("provenance indexes %d elements, payload has shape %v", n, shape)
}

// Payload returns the fixed-point payload.
func (t *PrivateTensor) Payload() *fixed.Tensor { return t.payload }

// MinVals returns the lower bound envelope.
func (t *PrivateTensor) MinVals() *bounds.Envelope { return t.minVals }

// MaxVals returns the upper bound envelope.
func (t *PrivateTensor) MaxVals() *bounds.Envelope { return t.maxVals }

// DataSubjects returns the provenance set.
func (t *PrivateTensor) DataSubjects() *provenance.Set { return t.subjects }

// Shape returns the payload shape.
func (t *PrivateTensor) Shape() tensor.Shape { return t.payload.Shape() }

// DType returns the declared logical element type.
func (t *PrivateTensor) DType() tensor.DataType { return t.payload.DType() }

// Value returns the decoded payload.
func (t *PrivateTensor) Value() *tensor.Array { return t.payload.Decode() }

// All reports whether every payload element is non-zero.
func (t *PrivateTensor) All() bool { return t.payload.All() }

// Any reports whether any payload element is non-zero.
func (t *PrivateTensor) Any() bool { return t.payload.Any() }

// Copy returns a deep copy.
func (t *PrivateTensor) Copy() *PrivateTensor {
	return &PrivateTensor{
		payload:  t.payload.Clone(),
		minVals:  t.minVals.Copy(),
		maxVals:  t.maxVals.Copy(),
		subjects: t.subjects.Copy(),
		log:      t.log,
	}
}

// CopyWith returns a copy carrying a replacement payload.
func (t *PrivateTensor) CopyWith(payload *fixed.Tensor) *PrivateTensor {
	out := t.Copy()
	out.payload = payload
	return out
}

// AsType returns a copy with a different declared logical type.
func (t *PrivateTensor) AsType(dtype tensor.DataType) *PrivateTensor {
	return t.CopyWith(t.payload.AsType(dtype))
}

// derive builds a result tensor from op outputs, carrying the logger over.
func (t *PrivateTensor) derive(payload *fixed.Tensor, lo, hi *bounds.Envelope, subjects *provenance.Set) (*PrivateTensor, error) {
	return New(payload, subjects, lo, hi, WithLogger(t.log))
}

// Gamma promotes the tensor to its disclosure representation: decoded value,
// scalar bound envelope, provenance, and a back-reference to the payload so
// a published release can be copied back.
func (t *PrivateTensor) Gamma() *gamma.Tensor {
	loArr, err := t.minVals.Materialize()
	if err != nil {
		panic(fmt.Sprintf("phi: corrupt min envelope: %v", err))
	}
	hiArr, err := t.maxVals.Materialize()
	if err != nil {
		panic(fmt.Sprintf("phi: corrupt max envelope: %v", err))
	}

	lo, hi := loArr.Data()[0], hiArr.Data()[0]
	for _, v := range loArr.Data() {
		if v < lo {
			lo = v
		}
	}
	for _, v := range hiArr.Data() {
		if v > hi {
			hi = v
		}
	}

	return gamma.New(
		t.payload.Decode(),
		t.subjects.Copy(),
		lo, hi,
		gamma.WithFPTValues(t.payload),
		gamma.WithLogger(t.log),
	)
}

// Publish performs the budget-checked noisy release of the tensor.
//
// The tensor is promoted to a disclosure tensor, registered into the ledger
// under its own identity, and released through the disclosure tensor's
// publish with the budget callbacks and noise scale passed through
// unchanged. The privatized raw values are copied back into the originating
// fixed-point payload and returned. The output is deliberately a raw array,
// not a new PrivateTensor: publishing crosses the boundary from protected to
// released data.
//
// Publish is not idempotent. Calling it twice performs two noisy releases
// and deducts budget twice; at-most-once discipline per logical released
// value is the caller's responsibility.
func (t *PrivateTensor) Publish(getBudget gamma.BudgetGetter, deductEpsilon gamma.EpsilonDeducter, ledger *gamma.Ledger, sigma float64) (*tensor.Array, error) {
	g := t.Gamma()
	g.RegisterSelf()

	t.log.Debug("publishing to gamma",
		zap.String("gamma_id", g.ID().String()),
		zap.Float64("sigma", sigma))

	released, err := g.Publish(getBudget, deductEpsilon, ledger, sigma)
	if err != nil {
		return nil, err
	}

	fpt := g.FPTValues()
	if fpt == nil {
		return nil, fmt.Errorf("publish: %w", ErrEmptyRelease)
	}
	if err := fpt.SetFromArray(released); err != nil {
		return nil, fmt.Errorf("publish: copying released values back: %w", err)
	}
	return released, nil
}

func (t *PrivateTensor) String() string {
	return fmt.Sprintf("PrivateTensor(payload=%s, min=%s, max=%s, subjects=%s)",
		t.payload, t.minVals, t.maxVals, t.subjects)
}
