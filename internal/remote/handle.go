// Package remote implements the deferred-execution handle to a private
// tensor held by another party. A handle carries only public metadata: the
// declared shape and type, the bound envelopes, and the data-subject set.
// Operations allocate the result's identity locally, transmit a command to
// the owning party, and return a new handle immediately; the payload never
// leaves its owner. When two handles belong to different owners the
// operation is escalated to the secret-sharing coordinator instead.
package remote

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/veil-ml/veil/internal/bounds"
	"github.com/veil-ml/veil/internal/mpc"
	"github.com/veil-ml/veil/internal/phi"
	"github.com/veil-ml/veil/internal/provenance"
	"github.com/veil-ml/veil/internal/tensor"
)

// Client transmits commands to the party owning the referenced tensor.
type Client interface {
	Address() string
	SendCommand(cmd *Command) error
}

// Result is what a deferred operation yields: a *Handle when the result
// stays with a single owner, or an *mpc.Tensor when execution crossed
// owners and the result is secret-shared.
type Result interface {
	Shape() tensor.Shape
	DType() tensor.DataType
}

// Handle references a private tensor stored by a remote party.
type Handle struct {
	owner    Client
	id       uuid.UUID
	subjects *provenance.Set
	minVals  *bounds.Envelope
	maxVals  *bounds.Envelope
	shape    tensor.Shape
	dtype    tensor.DataType
	coord    *mpc.Coordinator
	tags     []string
	desc     string
	log      *zap.Logger
}

// Option configures a Handle.
type Option func(*Handle)

// WithLogger attaches a structured logger.
func WithLogger(log *zap.Logger) Option {
	return func(h *Handle) { h.log = log }
}

// WithCoordinator attaches the secret-sharing coordinator used when an
// operation spans two owners.
func WithCoordinator(coord *mpc.Coordinator) Option {
	return func(h *Handle) { h.coord = coord }
}

// WithTags attaches searchable tags.
func WithTags(tags ...string) Option {
	return func(h *Handle) { h.tags = append([]string(nil), tags...) }
}

// WithDescription attaches a free-form description.
func WithDescription(desc string) Option {
	return func(h *Handle) { h.desc = desc }
}

// NewHandle creates a handle to a remote tensor from its public metadata.
func NewHandle(owner Client, id uuid.UUID, subjects *provenance.Set, minVals, maxVals *bounds.Envelope,
	shape tensor.Shape, dtype tensor.DataType, opts ...Option) *Handle {

	h := &Handle{
		owner:    owner,
		id:       id,
		subjects: subjects.Copy(),
		minVals:  minVals.Copy(),
		maxVals:  maxVals.Copy(),
		shape:    shape.Clone(),
		dtype:    dtype,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ID returns the remote object identity.
func (h *Handle) ID() uuid.UUID { return h.id }

// Owner returns the client for the owning party.
func (h *Handle) Owner() Client { return h.owner }

// Shape returns the declared public shape.
func (h *Handle) Shape() tensor.Shape { return h.shape }

// DType returns the declared public type.
func (h *Handle) DType() tensor.DataType { return h.dtype }

// DataSubjects returns the public data-subject set.
func (h *Handle) DataSubjects() *provenance.Set { return h.subjects }

// MinVals returns the public lower bound envelope.
func (h *Handle) MinVals() *bounds.Envelope { return h.minVals }

// MaxVals returns the public upper bound envelope.
func (h *Handle) MaxVals() *bounds.Envelope { return h.maxVals }

// Tags returns the handle's tags.
func (h *Handle) Tags() []string { return append([]string(nil), h.tags...) }

// Description returns the handle's description.
func (h *Handle) Description() string { return h.desc }

// Synthetic generates fake data uniformly sampled inside the public bound
// envelope. The result has the true shape and bounds but is an imitation;
// it reveals nothing about the real payload beyond what the bounds already
// disclose.
func (h *Handle) Synthetic() (*tensor.Array, error) {
	if h.minVals.Data().IsScalar() && h.maxVals.Data().IsScalar() {
		return tensor.Uniform(h.shape, h.minVals.Data().Item(), h.maxVals.Data().Item())
	}
	lo, err := h.minVals.Materialize()
	if err != nil {
		return nil, err
	}
	hi, err := h.maxVals.Materialize()
	if err != nil {
		return nil, err
	}
	out, err := tensor.NewArray(h.shape)
	if err != nil {
		return nil, err
	}
	loData, hiData, outData := lo.Data(), hi.Data(), out.Data()
	for i := range outData {
		outData[i] = loData[i] + rand.Float64()*(hiData[i]-loData[i])
	}
	return out, nil
}

// ToLocalWithoutData mirrors the remote tensor as a local metadata-only
// private tensor: bounds, provenance, shape, and type, with no payload.
func (h *Handle) ToLocalWithoutData() *phi.PrivateTensor {
	return phi.NewWithoutPayload(h.subjects, h.minVals, h.maxVals, h.shape, h.dtype)
}

// Share secret-shares the remote tensor over the owner plus the given
// additional parties, returning a handle to the distributed value.
func (h *Handle) Share(ctx context.Context, parties ...mpc.Party) (*mpc.Tensor, error) {
	if h.coord == nil {
		return nil, fmt.Errorf("share: no coordinator attached to handle %s", h.id)
	}
	all := append([]mpc.Party{h.owner}, parties...)
	return h.coord.Share(ctx, h, all)
}

func (h *Handle) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Handle(id=%s, owner=%s, shape=%v, dtype=%s", h.id, h.owner.Address(), h.shape, h.dtype)
	if len(h.tags) > 0 {
		fmt.Fprintf(&b, ", tags=%v", h.tags)
	}
	b.WriteString(")")
	return b.String()
}
