// Package mpc implements the share coordinator: given operands owned by
// different remote parties, it constructs one secret-shared value per
// operand over the involved party set and executes the requested operation
// as a distributed protocol. The protocol itself is external; this package
// owns the decision to invoke it, ring-size selection, share construction,
// and the input/output contract.
package mpc

import (
	"context"
	"fmt"
	"math/big"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/veil-ml/veil/internal/tensor"
)

// Party is a remote owner participating in a protocol run.
type Party interface {
	Address() string
}

// Secret is an operand to be secret-shared. Only public metadata is
// required at this layer; the protocol obtains the actual value from the
// owning party.
type Secret interface {
	Shape() tensor.Shape
	DType() tensor.DataType
}

// ringSizes maps declared payload types to their secret-sharing ring size.
// Types absent from the table run in default (no-ring-size) mode.
var ringSizes = map[tensor.DataType]*big.Int{
	tensor.Bool:  big.NewInt(2),
	tensor.Uint8: new(big.Int).Lsh(big.NewInt(1), 8),
	tensor.Int32: new(big.Int).Lsh(big.NewInt(1), 32),
	tensor.Int64: new(big.Int).Lsh(big.NewInt(1), 64),
}

// RingSize returns the ring size for a declared type, or nil when the type
// has no fixed ring (default mode).
func RingSize(dt tensor.DataType) *big.Int {
	return ringSizes[dt]
}

// ShareRef is an opaque protocol-side handle to a secret-shared value.
type ShareRef interface {
	ID() uuid.UUID
}

// Protocol is the external multi-party computation engine. Execution may
// block or run asynchronously depending on the implementation; this package
// only guarantees that shares are constructed once per operand per
// operation and that both operands see an identical, consistently ordered
// party list.
type Protocol interface {
	Share(ctx context.Context, secret Secret, shape tensor.Shape, ring *big.Int, parties []Party) (ShareRef, error)
	Execute(ctx context.Context, op string, a, b ShareRef) (ShareRef, error)
	Reconstruct(ctx context.Context, ref ShareRef) (*tensor.Array, error)
}

// Coordinator mediates between tensor dispatch and the protocol.
type Coordinator struct {
	protocol Protocol
	log      *zap.Logger
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithLogger attaches a structured logger.
func WithLogger(log *zap.Logger) CoordinatorOption {
	return func(c *Coordinator) { c.log = log }
}

// NewCoordinator creates a coordinator over the given protocol.
func NewCoordinator(protocol Protocol, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{protocol: protocol, log: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// dedupeParties removes duplicate parties while preserving first-seen
// order, so both operand shares observe an identical ordered party list.
func dedupeParties(parties []Party) []Party {
	seen := make(map[string]bool, len(parties))
	out := make([]Party, 0, len(parties))
	for _, p := range parties {
		if !seen[p.Address()] {
			seen[p.Address()] = true
			out = append(out, p)
		}
	}
	return out
}

// Share secret-shares a single operand over the given party set, selecting
// the ring size from the operand's declared type.
func (c *Coordinator) Share(ctx context.Context, secret Secret, parties []Party) (*Tensor, error) {
	parties = dedupeParties(parties)
	if len(parties) < 2 {
		return nil, fmt.Errorf("share: need at least 2 parties, got %d", len(parties))
	}
	ring := RingSize(secret.DType())
	ref, err := c.protocol.Share(ctx, secret, secret.Shape(), ring, parties)
	if err != nil {
		return nil, fmt.Errorf("share: %w", err)
	}
	c.log.Debug("constructed secret shares",
		zap.String("ref", ref.ID().String()),
		zap.Int("parties", len(parties)))
	return &Tensor{coord: c, ref: ref, shape: secret.Shape().Clone(), dtype: secret.DType(), parties: parties}, nil
}

// Binary secret-shares both operands over the union of the involved parties
// and executes the requested operation, returning a handle to the
// distributed result. Share construction for the two operands runs
// concurrently; each operand is shared exactly once.
func (c *Coordinator) Binary(ctx context.Context, op string, a, b Secret, parties []Party) (*Tensor, error) {
	parties = dedupeParties(parties)
	if len(parties) < 2 {
		return nil, fmt.Errorf("%s: need at least 2 parties, got %d", op, len(parties))
	}
	ring := RingSize(a.DType())

	var aRef, bRef ShareRef
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		aRef, err = c.protocol.Share(gctx, a, a.Shape(), ring, parties)
		return err
	})
	g.Go(func() error {
		var err error
		bRef, err = c.protocol.Share(gctx, b, b.Shape(), ring, parties)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%s: constructing shares: %w", op, err)
	}

	ref, err := c.protocol.Execute(ctx, op, aRef, bRef)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	shape, err := resultShape(op, a.Shape(), b.Shape())
	if err != nil {
		return nil, err
	}
	c.log.Debug("executed distributed operation",
		zap.String("op", op),
		zap.String("result", ref.ID().String()),
		zap.Int("parties", len(parties)))
	return &Tensor{coord: c, ref: ref, shape: shape, dtype: a.DType(), parties: parties}, nil
}

// resultShape infers the declared result shape per operator.
func resultShape(op string, a, b tensor.Shape) (tensor.Shape, error) {
	switch op {
	case "matmul", "dot":
		return tensor.MatMulShape(a, b)
	case "concatenate":
		return tensor.ConcatShape(a, b, 0)
	default:
		out, _, err := tensor.BroadcastShapes(a, b)
		return out, err
	}
}
