package remote

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/veil-ml/veil/internal/mpc"
	"github.com/veil-ml/veil/internal/tensor"
)

// rhs is the classified right-hand operand of a deferred binary operation.
type rhs struct {
	pointer Pointer
	shape   tensor.Shape
}

// classify resolves the right-hand operand into a command pointer plus the
// declared shape needed for result-shape inference. Handles owned by a
// different party are rejected here; the caller escalates those to the
// coordinator before classification.
func (h *Handle) classify(op string, other any) (*rhs, error) {
	switch o := other.(type) {
	case *Handle:
		if o.owner.Address() != h.owner.Address() {
			return nil, fmt.Errorf("%s: operand owned by %s, not %s", op, o.owner.Address(), h.owner.Address())
		}
		return &rhs{pointer: Pointer{ID: o.id}, shape: o.shape}, nil
	case float64:
		p, err := scalarPointer(o)
		if err != nil {
			return nil, err
		}
		return &rhs{pointer: p, shape: tensor.Shape{}}, nil
	case int:
		return h.classify(op, float64(o))
	case *tensor.Array:
		p, err := arrayPointer(o)
		if err != nil {
			return nil, err
		}
		return &rhs{pointer: p, shape: o.Shape()}, nil
	default:
		return nil, fmt.Errorf("%s: unsupported operand type %T", op, other)
	}
}

// inferShape computes the declared result shape per operator.
func inferShape(op string, a, b tensor.Shape) (tensor.Shape, error) {
	if op == "matmul" {
		return tensor.MatMulShape(a, b)
	}
	out, _, err := tensor.BroadcastShapes(a, b)
	return out, err
}

// applyBinary allocates the result identity, transmits the deferred command
// to the owning party, and returns the result's handle immediately. A failed
// transmission is logged and surfaces later, when the result is retrieved.
//
// The placeholder inherits the operand's own bound envelopes and subject set
// unchanged: the real result's bounds are only refined on the owning party,
// so the inherited metadata is a conservative over-approximation and may
// even cover a stale shape after matmul or broadcasting. Only the declared
// public shape and dtype are inferred per operator.
func (h *Handle) applyBinary(op string, other any) (*Handle, error) {
	r, err := h.classify(op, other)
	if err != nil {
		return nil, err
	}
	outShape, err := inferShape(op, h.shape, r.shape)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	outDType := h.dtype
	switch op {
	case "lt", "gt", "ge", "le", "eq", "ne":
		outDType = tensor.Bool
	}

	resultID := uuid.New()
	cmd := &Command{
		Path:     "tensor." + op,
		Self:     Pointer{ID: h.id},
		Args:     []Pointer{r.pointer},
		ResultID: resultID,
		Address:  h.owner.Address(),
	}
	if err := h.owner.SendCommand(cmd); err != nil {
		h.log.Warn("dropped deferred command",
			zap.String("path", cmd.Path),
			zap.String("result_id", resultID.String()),
			zap.Error(err))
	}

	out := NewHandle(h.owner, resultID, h.subjects, h.minVals, h.maxVals, outShape, outDType,
		WithLogger(h.log),
		WithTags(h.inheritTags(op, other)...),
		WithDescription(h.inheritDescription(op, other)))
	out.coord = h.coord
	return out, nil
}

// inheritTags merges operand tags under the operation's name.
func (h *Handle) inheritTags(op string, other any) []string {
	tags := append([]string(nil), h.tags...)
	if o, ok := other.(*Handle); ok {
		tags = append(tags, o.tags...)
	}
	if len(tags) == 0 {
		return nil
	}
	return append(tags, op)
}

// inheritDescription merges operand descriptions, tagged with the
// operation's name like tags are, so lineage stays inspectable before the
// remote result materializes.
func (h *Handle) inheritDescription(op string, other any) string {
	var parts []string
	if h.desc != "" {
		parts = append(parts, h.desc)
	}
	if o, ok := other.(*Handle); ok && o.desc != "" {
		parts = append(parts, o.desc)
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "; ") + " (" + op + ")"
}

// binary dispatches a deferred binary operation. Same-owner operands and
// literals stay on the owning party; operands held by a different owner
// escalate to a secret-shared execution over both parties.
func (h *Handle) binary(ctx context.Context, op string, other any) (Result, error) {
	if o, ok := other.(*Handle); ok && o.owner.Address() != h.owner.Address() {
		if h.coord == nil {
			return nil, fmt.Errorf("%s: operands span owners %s and %s but no coordinator is attached",
				op, h.owner.Address(), o.owner.Address())
		}
		h.log.Debug("escalating cross-owner operation",
			zap.String("op", op),
			zap.String("left", h.owner.Address()),
			zap.String("right", o.owner.Address()))
		return h.coord.Binary(ctx, op, h, o, []mpc.Party{h.owner, o.owner})
	}
	return h.applyBinary(op, other)
}

// Add defers an addition.
func (h *Handle) Add(ctx context.Context, other any) (Result, error) {
	return h.binary(ctx, "add", other)
}

// Sub defers a subtraction.
func (h *Handle) Sub(ctx context.Context, other any) (Result, error) {
	return h.binary(ctx, "sub", other)
}

// Mul defers a multiplication.
func (h *Handle) Mul(ctx context.Context, other any) (Result, error) {
	return h.binary(ctx, "mul", other)
}

// MatMul defers a matrix multiplication.
func (h *Handle) MatMul(ctx context.Context, other any) (Result, error) {
	return h.binary(ctx, "matmul", other)
}

// Lt defers a less-than comparison.
func (h *Handle) Lt(ctx context.Context, other any) (Result, error) {
	return h.binary(ctx, "lt", other)
}

// Gt defers a greater-than comparison.
func (h *Handle) Gt(ctx context.Context, other any) (Result, error) {
	return h.binary(ctx, "gt", other)
}

// Ge defers a greater-or-equal comparison.
func (h *Handle) Ge(ctx context.Context, other any) (Result, error) {
	return h.binary(ctx, "ge", other)
}

// Le defers a less-or-equal comparison.
func (h *Handle) Le(ctx context.Context, other any) (Result, error) {
	return h.binary(ctx, "le", other)
}

// Eq defers an equality comparison.
func (h *Handle) Eq(ctx context.Context, other any) (Result, error) {
	return h.binary(ctx, "eq", other)
}

// Ne defers an inequality comparison.
func (h *Handle) Ne(ctx context.Context, other any) (Result, error) {
	return h.binary(ctx, "ne", other)
}

// Transpose defers an axis-reversing transpose, sent as a property access
// rather than a method call. Like the binary operators, the placeholder
// keeps the operand's bounds and subjects unchanged; only the declared
// shape is reversed.
func (h *Handle) Transpose() (*Handle, error) {
	resultID := uuid.New()
	cmd := &Command{
		Path:     "tensor.T",
		Self:     Pointer{ID: h.id},
		ResultID: resultID,
		Address:  h.owner.Address(),
	}
	if err := h.owner.SendCommand(cmd); err != nil {
		h.log.Warn("dropped deferred command",
			zap.String("path", cmd.Path),
			zap.String("result_id", resultID.String()),
			zap.Error(err))
	}

	out := NewHandle(h.owner, resultID, h.subjects, h.minVals, h.maxVals, h.shape.Reversed(), h.dtype,
		WithLogger(h.log), WithTags(h.tags...), WithDescription(h.desc))
	out.coord = h.coord
	return out, nil
}
