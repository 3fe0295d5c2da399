package mpc

import (
	"context"
	"fmt"

	"github.com/veil-ml/veil/internal/tensor"
)

// Tensor is a handle to a secret-shared value distributed over a party set.
// It carries only public metadata; the shares live with the protocol.
type Tensor struct {
	coord   *Coordinator
	ref     ShareRef
	shape   tensor.Shape
	dtype   tensor.DataType
	parties []Party
}

// Shape returns the declared public shape.
func (t *Tensor) Shape() tensor.Shape { return t.shape }

// DType returns the declared public type.
func (t *Tensor) DType() tensor.DataType { return t.dtype }

// Ref returns the protocol-side share reference.
func (t *Tensor) Ref() ShareRef { return t.ref }

// Parties returns the ordered party set the value is shared over.
func (t *Tensor) Parties() []Party {
	return append([]Party(nil), t.parties...)
}

// sameParties checks that two handles are shared over identical ordered
// party sets; operating across differently-shared values is not defined.
func (t *Tensor) sameParties(other *Tensor) error {
	if len(t.parties) != len(other.parties) {
		return fmt.Errorf("party sets differ: %d vs %d parties", len(t.parties), len(other.parties))
	}
	for i := range t.parties {
		if t.parties[i].Address() != other.parties[i].Address() {
			return fmt.Errorf("party sets differ at position %d: %s vs %s",
				i, t.parties[i].Address(), other.parties[i].Address())
		}
	}
	return nil
}

func (t *Tensor) exec(ctx context.Context, op string, other *Tensor) (*Tensor, error) {
	if err := t.sameParties(other); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ref, err := t.coord.protocol.Execute(ctx, op, t.ref, other.ref)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	shape, err := resultShape(op, t.shape, other.shape)
	if err != nil {
		return nil, err
	}
	return &Tensor{coord: t.coord, ref: ref, shape: shape, dtype: t.dtype, parties: t.parties}, nil
}

// Add executes a distributed addition.
func (t *Tensor) Add(ctx context.Context, other *Tensor) (*Tensor, error) {
	return t.exec(ctx, "add", other)
}

// Sub executes a distributed subtraction.
func (t *Tensor) Sub(ctx context.Context, other *Tensor) (*Tensor, error) {
	return t.exec(ctx, "sub", other)
}

// Mul executes a distributed multiplication.
func (t *Tensor) Mul(ctx context.Context, other *Tensor) (*Tensor, error) {
	return t.exec(ctx, "mul", other)
}

// MatMul executes a distributed matrix multiplication.
func (t *Tensor) MatMul(ctx context.Context, other *Tensor) (*Tensor, error) {
	return t.exec(ctx, "matmul", other)
}

// Lt executes a distributed less-than comparison.
func (t *Tensor) Lt(ctx context.Context, other *Tensor) (*Tensor, error) {
	return t.exec(ctx, "lt", other)
}

// Gt executes a distributed greater-than comparison.
func (t *Tensor) Gt(ctx context.Context, other *Tensor) (*Tensor, error) {
	return t.exec(ctx, "gt", other)
}

// Ge executes a distributed greater-or-equal comparison.
func (t *Tensor) Ge(ctx context.Context, other *Tensor) (*Tensor, error) {
	return t.exec(ctx, "ge", other)
}

// Le executes a distributed less-or-equal comparison.
func (t *Tensor) Le(ctx context.Context, other *Tensor) (*Tensor, error) {
	return t.exec(ctx, "le", other)
}

// Eq executes a distributed equality comparison.
func (t *Tensor) Eq(ctx context.Context, other *Tensor) (*Tensor, error) {
	return t.exec(ctx, "eq", other)
}

// Ne executes a distributed inequality comparison.
func (t *Tensor) Ne(ctx context.Context, other *Tensor) (*Tensor, error) {
	return t.exec(ctx, "ne", other)
}

// Concatenate executes a distributed concatenation along axis 0.
func (t *Tensor) Concatenate(ctx context.Context, other *Tensor) (*Tensor, error) {
	return t.exec(ctx, "concatenate", other)
}

// Reconstruct reveals the cleartext result by combining all parties'
// shares. Only callable when the protocol's policy allows it.
func (t *Tensor) Reconstruct(ctx context.Context) (*tensor.Array, error) {
	return t.coord.protocol.Reconstruct(ctx, t.ref)
}
