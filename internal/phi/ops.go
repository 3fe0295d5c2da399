package phi

import (
	"fmt"

	"github.com/veil-ml/veil/internal/bounds"
	"github.com/veil-ml/veil/internal/fixed"
	"github.com/veil-ml/veil/internal/provenance"
	"github.com/veil-ml/veil/internal/tensor"
)

// encodePublic fixed-point encodes a public scalar or array at the payload's
// precision so it can enter the scaled domain as a degenerate operand.
func (t *PrivateTensor) encodePublic(o operand) *fixed.Tensor {
	switch o.kind {
	case kindScalar:
		return fixed.Encode(tensor.Scalar(o.scalar), t.DType(), t.payload.FracBits())
	case kindArray:
		return fixed.Encode(o.array, t.DType(), t.payload.FracBits())
	default:
		panic("encodePublic: operand is not public")
	}
}

// degenerateEnvelope wraps a public operand as a bound envelope with
// min == max == value.
func degenerateEnvelope(o operand, shape tensor.Shape) (*bounds.Envelope, error) {
	if o.kind == kindScalar {
		return bounds.NewScalar(o.scalar, shape), nil
	}
	return bounds.New(o.array, o.array.Shape())
}

// reanchorProvenance adapts a provenance set to a result shape produced by a
// linear-algebra operator that mixes elements (matmul, dot). A single
// subject re-indexes trivially; row-level attribution survives when the
// leading dimension is preserved; anything else cannot be attributed
// per-element and is rejected.
func reanchorProvenance(s *provenance.Set, oldShape, newShape tensor.Shape) (*provenance.Set, error) {
	if s.NumSubjects() == 1 {
		return provenance.FromSubject(s.Subjects()[0], newShape.NumElements()), nil
	}
	if s.NumElements() == newShape.NumElements() {
		return s.Copy(), nil
	}
	if len(oldShape) > 0 && len(newShape) > 0 &&
		s.NumElements() == oldShape[0] && oldShape[0] == newShape[0] {
		return s.Copy(), nil
	}
	return nil, fmt.Errorf("cannot attribute result elements to subjects: %w", ErrProvenanceConflict)
}

// booleanBounds is the collapsed [0, 1] envelope pair of a comparison
// result, discarding the operands' original bounds.
func booleanBounds(shape tensor.Shape) (*bounds.Envelope, *bounds.Envelope) {
	return bounds.NewScalar(0, shape), bounds.NewScalar(1, shape)
}

// Add returns t + other. Mismatched provenance promotes both operands to
// disclosure tensors.
func (t *PrivateTensor) Add(other any) (Value, error) {
	o, err := classifyOperand("add", other)
	if err != nil {
		return nil, err
	}
	switch o.kind {
	case kindScalar, kindArray:
		payload, err := t.payload.Add(t.encodePublic(o))
		if err != nil {
			return nil, fmt.Errorf("add: %w", err)
		}
		deg, err := degenerateEnvelope(o, t.Shape())
		if err != nil {
			return nil, err
		}
		lo, err := t.minVals.Add(deg)
		if err != nil {
			return nil, err
		}
		hi, err := t.maxVals.Add(deg)
		if err != nil {
			return nil, err
		}
		return t.derive(payload, lo, hi, t.subjects.Copy())

	case kindPrivate:
		if !t.subjects.Equal(o.private.subjects) {
			return t.Gamma().Add(o.private.Gamma())
		}
		payload, err := t.payload.Add(o.private.payload)
		if err != nil {
			return nil, fmt.Errorf("add: %w", err)
		}
		lo, err := t.minVals.Add(o.private.minVals)
		if err != nil {
			return nil, err
		}
		hi, err := t.maxVals.Add(o.private.maxVals)
		if err != nil {
			return nil, err
		}
		return t.derive(payload, lo, hi, t.subjects.Copy())

	case kindDisclosure:
		return t.Gamma().Add(o.disclosure)
	}
	panic("add: unreachable operand kind")
}

// Sub returns t - other. Subtraction is not monotone in both operands, so
// bound propagation evaluates all four cross terms. Mismatched provenance
// fails fast: the disclosure-side subtraction is not implemented.
func (t *PrivateTensor) Sub(other any) (*PrivateTensor, error) {
	o, err := classifyOperand("sub", other)
	if err != nil {
		return nil, err
	}
	switch o.kind {
	case kindScalar, kindArray:
		if o.kind == kindArray && !tensor.IsBroadcastable(o.array.Shape(), t.Shape()) {
			return nil, &ShapeMismatchError{Op: "sub", A: t.Shape(), B: o.array.Shape()}
		}
		payload, err := t.payload.Sub(t.encodePublic(o))
		if err != nil {
			return nil, fmt.Errorf("sub: %w", err)
		}
		deg, err := degenerateEnvelope(o, t.Shape())
		if err != nil {
			return nil, err
		}
		lo, hi, err := bounds.CrossSub(t.minVals, t.maxVals, deg, deg)
		if err != nil {
			return nil, err
		}
		return t.derive(payload, lo, hi, t.subjects.Copy())

	case kindPrivate:
		if !t.subjects.Equal(o.private.subjects) {
			return nil, fmt.Errorf("sub with mismatched provenance: %w", ErrUnimplementedPromotion)
		}
		payload, err := t.payload.Sub(o.private.payload)
		if err != nil {
			return nil, fmt.Errorf("sub: %w", err)
		}
		lo, hi, err := bounds.CrossSub(t.minVals, t.maxVals, o.private.minVals, o.private.maxVals)
		if err != nil {
			return nil, err
		}
		return t.derive(payload, lo, hi, t.subjects.Copy())

	case kindDisclosure:
		return nil, fmt.Errorf("sub with disclosure tensor: %w", ErrUnimplementedPromotion)
	}
	panic("sub: unreachable operand kind")
}

// Mul returns t * other. Bound propagation evaluates all four cross-term
// products, so sign changes in either operand stay sound. Mismatched
// provenance promotes.
func (t *PrivateTensor) Mul(other any) (Value, error) {
	o, err := classifyOperand("mul", other)
	if err != nil {
		return nil, err
	}
	switch o.kind {
	case kindScalar, kindArray:
		payload, err := t.payload.Mul(t.encodePublic(o))
		if err != nil {
			return nil, fmt.Errorf("mul: %w", err)
		}
		deg, err := degenerateEnvelope(o, t.Shape())
		if err != nil {
			return nil, err
		}
		lo, hi, err := bounds.CrossMul(t.minVals, t.maxVals, deg, deg)
		if err != nil {
			return nil, err
		}
		return t.derive(payload, lo, hi, t.subjects.Copy())

	case kindPrivate:
		if !t.subjects.Equal(o.private.subjects) {
			t.log.Debug("mul provenance mismatch, promoting to disclosure tensors")
			return t.Gamma().Mul(o.private.Gamma())
		}
		payload, err := t.payload.Mul(o.private.payload)
		if err != nil {
			return nil, fmt.Errorf("mul: %w", err)
		}
		lo, hi, err := bounds.CrossMul(t.minVals, t.maxVals, o.private.minVals, o.private.maxVals)
		if err != nil {
			return nil, err
		}
		return t.derive(payload, lo, hi, t.subjects.Copy())

	case kindDisclosure:
		return t.Gamma().Mul(o.disclosure)
	}
	panic("mul: unreachable operand kind")
}

// MatMul performs matrix multiplication. Bounds propagate by applying matmul
// directly to the min/max arrays; unlike Sub and Mul no cross-term expansion
// is performed, which is sound only for provenance-compatible operands and
// looser than an interval matrix multiply would be. Mismatched provenance
// fails fast.
func (t *PrivateTensor) MatMul(other any) (*PrivateTensor, error) {
	o, err := classifyOperand("matmul", other)
	if err != nil {
		return nil, err
	}
	switch o.kind {
	case kindScalar, kindDisclosure:
		return nil, &UnsupportedOperandError{Op: "matmul", Operand: other}

	case kindArray:
		payload, err := t.payload.MatMul(t.encodePublic(o))
		if err != nil {
			return nil, fmt.Errorf("matmul: %w", err)
		}
		deg, err := degenerateEnvelope(o, o.array.Shape())
		if err != nil {
			return nil, err
		}
		lo, err := t.minVals.MatMul(deg)
		if err != nil {
			return nil, err
		}
		hi, err := t.maxVals.MatMul(deg)
		if err != nil {
			return nil, err
		}
		subjects, err := reanchorProvenance(t.subjects, t.Shape(), payload.Shape())
		if err != nil {
			return nil, err
		}
		return t.derive(payload, lo, hi, subjects)

	case kindPrivate:
		if !t.subjects.Equal(o.private.subjects) {
			return nil, fmt.Errorf("matmul with mismatched provenance: %w", ErrUnimplementedPromotion)
		}
		payload, err := t.payload.MatMul(o.private.payload)
		if err != nil {
			return nil, fmt.Errorf("matmul: %w", err)
		}
		lo, err := t.minVals.MatMul(o.private.minVals)
		if err != nil {
			return nil, err
		}
		hi, err := t.maxVals.MatMul(o.private.maxVals)
		if err != nil {
			return nil, err
		}
		subjects, err := reanchorProvenance(t.subjects, t.Shape(), payload.Shape())
		if err != nil {
			return nil, err
		}
		return t.derive(payload, lo, hi, subjects)
	}
	panic("matmul: unreachable operand kind")
}

// Dot computes the dot product. Unlike the generic binary operators it
// forbids more than one distinct subject on either side outright: the result
// mixes every element, so per-element attribution is impossible and the
// operation neither proceeds nor promotes.
func (t *PrivateTensor) Dot(other any) (*PrivateTensor, error) {
	o, err := classifyOperand("dot", other)
	if err != nil {
		return nil, err
	}
	switch o.kind {
	case kindScalar:
		return nil, &UnsupportedOperandError{Op: "dot", Operand: other}

	case kindArray:
		payload, err := t.payload.Dot(t.encodePublic(o))
		if err != nil {
			return nil, fmt.Errorf("dot: %w", err)
		}
		deg, err := degenerateEnvelope(o, o.array.Shape())
		if err != nil {
			return nil, err
		}
		lo, err := t.minVals.Dot(deg)
		if err != nil {
			return nil, err
		}
		hi, err := t.maxVals.Dot(deg)
		if err != nil {
			return nil, err
		}
		subjects, err := reanchorProvenance(t.subjects, t.Shape(), payload.Shape())
		if err != nil {
			return nil, err
		}
		return t.derive(payload, lo, hi, subjects)

	case kindPrivate:
		if t.subjects.NumSubjects() > 1 || o.private.subjects.NumSubjects() > 1 {
			return nil, fmt.Errorf("dot across multiple subjects: %w", ErrProvenanceConflict)
		}
		if !t.subjects.SameLookup(o.private.subjects) {
			return nil, fmt.Errorf("dot with mismatched provenance: %w", ErrUnimplementedPromotion)
		}
		payload, err := t.payload.Dot(o.private.payload)
		if err != nil {
			return nil, fmt.Errorf("dot: %w", err)
		}
		lo, err := t.minVals.Dot(o.private.minVals)
		if err != nil {
			return nil, err
		}
		hi, err := t.maxVals.Dot(o.private.maxVals)
		if err != nil {
			return nil, err
		}
		subjects, err := reanchorProvenance(t.subjects, t.Shape(), payload.Shape())
		if err != nil {
			return nil, err
		}
		return t.derive(payload, lo, hi, subjects)

	case kindDisclosure:
		return nil, fmt.Errorf("dot with disclosure tensor: %w", ErrUnimplementedPromotion)
	}
	panic("dot: unreachable operand kind")
}

// Sum reduces the whole tensor. With a single data subject the result stays
// a PrivateTensor with collapsed provenance; a reduction across multiple
// subjects is inherently an aggregate-privacy operation and returns a
// disclosure tensor so its release is ledger-auditable.
func (t *PrivateTensor) Sum() (Value, error) {
	loSum := t.minVals.Sum()
	hiSum := t.maxVals.Sum()

	if t.subjects.NumSubjects() == 1 {
		collapsed, err := t.subjects.Collapse()
		if err != nil {
			return nil, err
		}
		return t.derive(t.payload.Sum(), loSum, hiSum, collapsed)
	}

	g := t.Gamma()
	sum := t.payload.Decode().Sum()
	return g.SumNode(sum, loSum.Data().Item(), hiSum.Data().Item()), nil
}

// Lt returns (t < other) as a boolean-bound PrivateTensor: the result's
// bound envelope is exactly [0, 1] regardless of input bounds. Mismatched
// provenance fails fast.
func (t *PrivateTensor) Lt(other any) (*PrivateTensor, error) {
	return t.compare("lt", other, (*fixed.Tensor).Lt)
}

// Gt returns (t > other) as a boolean-bound PrivateTensor. Mismatched
// provenance fails fast.
func (t *PrivateTensor) Gt(other any) (*PrivateTensor, error) {
	return t.compare("gt", other, (*fixed.Tensor).Gt)
}

func (t *PrivateTensor) compare(op string, other any, f func(*fixed.Tensor, *fixed.Tensor) (*fixed.Tensor, error)) (*PrivateTensor, error) {
	o, err := classifyOperand(op, other)
	if err != nil {
		return nil, err
	}
	switch o.kind {
	case kindScalar, kindArray:
		payload, err := f(t.payload, t.encodePublic(o))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		lo, hi := booleanBounds(payload.Shape())
		return t.derive(payload, lo, hi, t.subjects.Copy())

	case kindPrivate:
		if !t.subjects.Equal(o.private.subjects) {
			return nil, fmt.Errorf("%s with mismatched provenance: %w", op, ErrUnimplementedPromotion)
		}
		if !t.Shape().Equal(o.private.Shape()) {
			return nil, &ShapeMismatchError{Op: op, A: t.Shape(), B: o.private.Shape()}
		}
		payload, err := f(t.payload, o.private.payload)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		lo, hi := booleanBounds(payload.Shape())
		return t.derive(payload, lo, hi, t.subjects.Copy())

	case kindDisclosure:
		return nil, fmt.Errorf("%s with disclosure tensor: %w", op, ErrUnimplementedPromotion)
	}
	panic(op + ": unreachable operand kind")
}

// Eq returns (t == other). Equal-provenance and public operands yield a
// same-shaped boolean-bound PrivateTensor; mismatched provenance promotes to
// a disclosure comparison.
func (t *PrivateTensor) Eq(other any) (Value, error) {
	return t.equality("eq", other, (*fixed.Tensor).Eq, (*PrivateTensor).gammaEq)
}

// Ne returns (t != other), with the same promotion behavior as Eq.
func (t *PrivateTensor) Ne(other any) (Value, error) {
	return t.equality("ne", other, (*fixed.Tensor).Ne, (*PrivateTensor).gammaNe)
}

func (t *PrivateTensor) gammaEq(o operand) (Value, error) {
	if o.kind == kindDisclosure {
		return t.Gamma().Eq(o.disclosure)
	}
	return t.Gamma().Eq(o.private.Gamma())
}

func (t *PrivateTensor) gammaNe(o operand) (Value, error) {
	if o.kind == kindDisclosure {
		return t.Gamma().Ne(o.disclosure)
	}
	return t.Gamma().Ne(o.private.Gamma())
}

func (t *PrivateTensor) equality(op string, other any,
	f func(*fixed.Tensor, *fixed.Tensor) (*fixed.Tensor, error),
	promote func(*PrivateTensor, operand) (Value, error)) (Value, error) {

	o, err := classifyOperand(op, other)
	if err != nil {
		return nil, err
	}
	switch o.kind {
	case kindScalar, kindArray:
		if o.kind == kindArray && !t.Shape().Equal(o.array.Shape()) {
			return nil, &ShapeMismatchError{Op: op, A: t.Shape(), B: o.array.Shape()}
		}
		payload, err := f(t.payload, t.encodePublic(o))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		lo, hi := booleanBounds(payload.Shape())
		return t.derive(payload, lo, hi, t.subjects.Copy())

	case kindPrivate:
		if !t.Shape().Equal(o.private.Shape()) {
			return nil, &ShapeMismatchError{Op: op, A: t.Shape(), B: o.private.Shape()}
		}
		if !t.subjects.Equal(o.private.subjects) {
			// the payload comparison cannot resolve locally across subjects
			return promote(t, o)
		}
		payload, err := f(t.payload, o.private.payload)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		lo, hi := booleanBounds(payload.Shape())
		return t.derive(payload, lo, hi, t.subjects.Copy())

	case kindDisclosure:
		return promote(t, o)
	}
	panic(op + ": unreachable operand kind")
}

// Concatenate joins t and other along the given axis. Mismatched provenance
// promotes; the merged provenance keeps per-element attribution for both
// halves.
func (t *PrivateTensor) Concatenate(other any, axis int) (Value, error) {
	o, err := classifyOperand("concatenate", other)
	if err != nil {
		return nil, err
	}
	switch o.kind {
	case kindScalar, kindArray:
		return nil, &UnsupportedOperandError{Op: "concatenate", Operand: other}

	case kindPrivate:
		if !t.subjects.Equal(o.private.subjects) {
			return t.Gamma().Concatenate(o.private.Gamma(), axis)
		}
		payload, err := t.payload.Concatenate(o.private.payload, axis)
		if err != nil {
			return nil, fmt.Errorf("concatenate: %w", err)
		}
		lo, err := t.minVals.Concatenate(o.private.minVals, axis)
		if err != nil {
			return nil, err
		}
		hi, err := t.maxVals.Concatenate(o.private.maxVals, axis)
		if err != nil {
			return nil, err
		}
		return t.derive(payload, lo, hi, t.subjects.Concat(o.private.subjects))

	case kindDisclosure:
		return t.Gamma().Concatenate(o.disclosure, axis)
	}
	panic("concatenate: unreachable operand kind")
}

// Transpose transposes payload and both bound envelopes identically. On a
// scalar tensor the operation has no effect; a diagnostic is logged instead
// of raising an error.
func (t *PrivateTensor) Transpose(axes ...int) (*PrivateTensor, error) {
	if t.Shape().IsScalar() {
		t.log.Warn("transpose had no effect on scalar tensor")
		return t.Copy(), nil
	}
	payload, err := t.payload.Transpose(axes...)
	if err != nil {
		return nil, fmt.Errorf("transpose: %w", err)
	}
	lo, err := t.minVals.Transpose(axes...)
	if err != nil {
		return nil, err
	}
	hi, err := t.maxVals.Transpose(axes...)
	if err != nil {
		return nil, err
	}
	return t.derive(payload, lo, hi, t.subjects.Copy())
}

// Neg returns -t. Bounds swap: the negated maximum becomes the new minimum.
func (t *PrivateTensor) Neg() (*PrivateTensor, error) {
	return t.derive(t.payload.Neg(), t.maxVals.Neg(), t.minVals.Neg(), t.subjects.Copy())
}

// Pos returns +t, an identity copy.
func (t *PrivateTensor) Pos() *PrivateTensor {
	return t.Copy()
}
