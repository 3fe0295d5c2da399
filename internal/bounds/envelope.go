// Package bounds implements the lazily-broadcast min/max bound envelopes
// attached to private tensors. An envelope carries scalar-or-array data plus
// the shape it notionally covers; scalar data is only materialized to the
// full shape when an operation forces it.
//
// The algebra here is required to be sound, not tight: every operation must
// produce bounds that contain the true range of the corresponding payload
// operation.
package bounds

import (
	"fmt"

	"github.com/veil-ml/veil/internal/tensor"
)

// Envelope is a lazily-broadcast bound: data is either a scalar (rank 0) or
// an array broadcast-compatible with Shape.
type Envelope struct {
	data  *tensor.Array
	shape tensor.Shape
}

// New creates an envelope from data covering the given shape. The data must
// be scalar or broadcastable to shape.
func New(data *tensor.Array, shape tensor.Shape) (*Envelope, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid envelope shape: %w", err)
	}
	if !data.IsScalar() && !tensor.IsBroadcastable(data.Shape(), shape) {
		return nil, fmt.Errorf("envelope data shape %v is not broadcastable to %v", data.Shape(), shape)
	}
	return &Envelope{data: data.Clone(), shape: shape.Clone()}, nil
}

// NewScalar creates an envelope holding a single repeated value.
func NewScalar(v float64, shape tensor.Shape) *Envelope {
	return &Envelope{data: tensor.Scalar(v), shape: shape.Clone()}
}

// Data returns the (possibly scalar) bound data.
func (e *Envelope) Data() *tensor.Array { return e.data }

// Shape returns the shape the envelope covers.
func (e *Envelope) Shape() tensor.Shape { return e.shape }

// IsLazy reports whether the data is still an unbroadcast scalar.
func (e *Envelope) IsLazy() bool {
	return e.data.IsScalar() && !e.shape.IsScalar()
}

// Materialize broadcasts the data to the full covered shape.
func (e *Envelope) Materialize() (*tensor.Array, error) {
	return e.data.BroadcastTo(e.shape)
}

// Copy returns a deep copy of the envelope.
func (e *Envelope) Copy() *Envelope {
	return &Envelope{data: e.data.Clone(), shape: e.shape.Clone()}
}

// WithData returns a copy of the envelope carrying replacement data.
func (e *Envelope) WithData(data *tensor.Array) (*Envelope, error) {
	return New(data, e.shape)
}

// Equal reports exact equality of data and covered shape.
func (e *Envelope) Equal(other *Envelope) bool {
	return e.shape.Equal(other.shape) && e.data.Equal(other.data)
}

// resultShape computes the covered shape of a binary elementwise result.
func resultShape(a, b *Envelope) (tensor.Shape, error) {
	out, _, err := tensor.BroadcastShapes(a.shape, b.shape)
	return out, err
}

// binary applies an elementwise op to the lazy data of both envelopes.
// Two scalar envelopes stay scalar; otherwise the op broadcasts as usual.
func (e *Envelope) binary(other *Envelope, op func(a, b *tensor.Array) (*tensor.Array, error)) (*Envelope, error) {
	shape, err := resultShape(e, other)
	if err != nil {
		return nil, err
	}
	data, err := op(e.data, other.data)
	if err != nil {
		return nil, err
	}
	return &Envelope{data: data, shape: shape}, nil
}

// Add returns the elementwise sum envelope.
func (e *Envelope) Add(other *Envelope) (*Envelope, error) {
	return e.binary(other, tensor.Add)
}

// Sub returns the elementwise difference envelope. Note that sound bound
// propagation for subtraction requires the four-cross-term technique over
// both operands' min and max envelopes; this method is only one term of it.
func (e *Envelope) Sub(other *Envelope) (*Envelope, error) {
	return e.binary(other, tensor.Sub)
}

// Mul returns the elementwise product envelope.
func (e *Envelope) Mul(other *Envelope) (*Envelope, error) {
	return e.binary(other, tensor.Mul)
}

// MatMul propagates the envelope through matrix multiplication by applying
// matmul directly to the bound arrays. This is sound only when operands are
// provenance-compatible and, unlike Sub/Mul, performs no cross-term
// expansion; tighter bounds would need an interval matrix multiply.
func (e *Envelope) MatMul(other *Envelope) (*Envelope, error) {
	lhs, err := e.Materialize()
	if err != nil {
		return nil, err
	}
	rhs, err := other.Materialize()
	if err != nil {
		return nil, err
	}
	data, err := tensor.MatMul(lhs, rhs)
	if err != nil {
		return nil, err
	}
	return &Envelope{data: data, shape: data.Shape()}, nil
}

// Dot propagates the envelope through a dot product, with the same
// no-cross-term caveat as MatMul.
func (e *Envelope) Dot(other *Envelope) (*Envelope, error) {
	lhs, err := e.Materialize()
	if err != nil {
		return nil, err
	}
	rhs, err := other.Materialize()
	if err != nil {
		return nil, err
	}
	data, err := tensor.Dot(lhs, rhs)
	if err != nil {
		return nil, err
	}
	return &Envelope{data: data, shape: data.Shape()}, nil
}

// Neg returns the negated envelope. Callers are responsible for swapping
// min and max (negation reverses the bound order).
func (e *Envelope) Neg() *Envelope {
	return &Envelope{data: e.data.Neg(), shape: e.shape.Clone()}
}

// AddScalar shifts the envelope by a constant.
func (e *Envelope) AddScalar(v float64) *Envelope {
	return &Envelope{data: e.data.AddScalar(v), shape: e.shape.Clone()}
}

// MulScalar scales the envelope by a constant. For negative constants the
// caller must swap min and max.
func (e *Envelope) MulScalar(v float64) *Envelope {
	return &Envelope{data: e.data.MulScalar(v), shape: e.shape.Clone()}
}

// AddArray shifts the envelope by an array treated as a degenerate
// (min == max) envelope.
func (e *Envelope) AddArray(arr *tensor.Array) (*Envelope, error) {
	other := &Envelope{data: arr.Clone(), shape: arr.Shape().Clone()}
	return e.Add(other)
}

// Transpose permutes the envelope's axes. Scalar (rank-0) data is left
// untouched; only the covered shape changes.
func (e *Envelope) Transpose(axes ...int) (*Envelope, error) {
	if e.data.IsScalar() {
		shape := e.shape.Reversed()
		if len(axes) == len(e.shape) {
			shape = make(tensor.Shape, len(axes))
			for i, ax := range axes {
				shape[i] = e.shape[ax]
			}
		}
		return &Envelope{data: e.data.Clone(), shape: shape}, nil
	}
	mat, err := e.Materialize()
	if err != nil {
		return nil, err
	}
	data, err := mat.Transpose(axes...)
	if err != nil {
		return nil, err
	}
	return &Envelope{data: data, shape: data.Shape()}, nil
}

// Concatenate joins two envelopes along the given axis. Both are
// materialized; concatenation has no lazy form.
func (e *Envelope) Concatenate(other *Envelope, axis int) (*Envelope, error) {
	lhs, err := e.Materialize()
	if err != nil {
		return nil, err
	}
	rhs, err := other.Materialize()
	if err != nil {
		return nil, err
	}
	data, err := tensor.Concatenate(lhs, rhs, axis)
	if err != nil {
		return nil, err
	}
	return &Envelope{data: data, shape: data.Shape()}, nil
}

// Sum reduces the envelope to a scalar bound over the whole covered shape.
// Lazy scalar data multiplies out without materializing.
func (e *Envelope) Sum() *Envelope {
	if e.data.IsScalar() {
		total := e.data.Item() * float64(e.shape.NumElements())
		return &Envelope{data: tensor.Scalar(total), shape: tensor.Shape{}}
	}
	mat, err := e.Materialize()
	if err != nil {
		// covered-shape compatibility is a constructor invariant
		panic(fmt.Sprintf("bounds: corrupt envelope: %v", err))
	}
	return &Envelope{data: mat.Sum(), shape: tensor.Shape{}}
}

// CrossSub computes the sound subtraction bounds for [aMin, aMax] - [bMin, bMax]
// using all four cross terms. Subtraction is not monotone in both operands,
// so every combination must be evaluated.
func CrossSub(aMin, aMax, bMin, bMax *Envelope) (*Envelope, *Envelope, error) {
	return crossTerms(aMin, aMax, bMin, bMax, tensor.Sub)
}

// CrossMul computes the sound multiplication bounds for
// [aMin, aMax] * [bMin, bMax] using all four cross terms.
func CrossMul(aMin, aMax, bMin, bMax *Envelope) (*Envelope, *Envelope, error) {
	return crossTerms(aMin, aMax, bMin, bMax, tensor.Mul)
}

func crossTerms(aMin, aMax, bMin, bMax *Envelope,
	op func(x, y *tensor.Array) (*tensor.Array, error)) (*Envelope, *Envelope, error) {

	shape, err := resultShape(aMin, bMin)
	if err != nil {
		return nil, nil, err
	}

	minMin, err := op(aMin.data, bMin.data)
	if err != nil {
		return nil, nil, err
	}
	minMax, err := op(aMin.data, bMax.data)
	if err != nil {
		return nil, nil, err
	}
	maxMin, err := op(aMax.data, bMin.data)
	if err != nil {
		return nil, nil, err
	}
	maxMax, err := op(aMax.data, bMax.data)
	if err != nil {
		return nil, nil, err
	}

	lo, err := tensor.MinReduce(minMin, minMax, maxMin, maxMax)
	if err != nil {
		return nil, nil, err
	}
	hi, err := tensor.MaxReduce(minMin, minMax, maxMin, maxMax)
	if err != nil {
		return nil, nil, err
	}
	return &Envelope{data: lo, shape: shape}, &Envelope{data: hi, shape: shape}, nil
}

func (e *Envelope) String() string {
	if e.data.IsScalar() {
		return fmt.Sprintf("Envelope(%v over %v)", e.data.Item(), e.shape)
	}
	return fmt.Sprintf("Envelope(%s over %v)", e.data, e.shape)
}
