// Package gamma implements the DisclosureTensor: the symbolic,
// ledger-integrated representation a private tensor is promoted to when an
// operation combines data from different subjects, or when a result must be
// audited against a privacy budget before release.
package gamma

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/veil-ml/veil/internal/fixed"
	"github.com/veil-ml/veil/internal/provenance"
	"github.com/veil-ml/veil/internal/tensor"
)

// ErrInsufficientBudget is returned by Publish when a data subject's
// remaining privacy budget does not cover the release.
var ErrInsufficientBudget = errors.New("insufficient privacy budget for release")

// BudgetGetter returns the remaining privacy budget for a data subject.
type BudgetGetter func(subject string) (float64, error)

// EpsilonDeducter deducts spent budget for a data subject.
type EpsilonDeducter func(subject string, epsilon float64) error

// Tensor is a node in the disclosure computation graph. Values are plain
// (decoded) arrays; bounds collapse to scalars; the graph of source nodes
// carries full attribution for budget accounting.
type Tensor struct {
	id       uuid.UUID
	value    *tensor.Array
	subjects *provenance.Set
	minVal   float64
	maxVal   float64
	fpt      *fixed.Tensor // optional back-reference to the originating payload
	op       string
	sources  []*Tensor
	state    map[uuid.UUID]*Tensor
	log      *zap.Logger
}

// Option configures a Tensor.
type Option func(*Tensor)

// WithFPTValues attaches the originating fixed-point payload, enabling the
// released value to be copied back after Publish.
func WithFPTValues(fpt *fixed.Tensor) Option {
	return func(t *Tensor) { t.fpt = fpt }
}

// WithLogger attaches a structured logger.
func WithLogger(log *zap.Logger) Option {
	return func(t *Tensor) { t.log = log }
}

// New creates a leaf disclosure tensor.
func New(value *tensor.Array, subjects *provenance.Set, minVal, maxVal float64, opts ...Option) *Tensor {
	t := &Tensor{
		id:       uuid.New(),
		value:    value,
		subjects: subjects,
		minVal:   minVal,
		maxVal:   maxVal,
		op:       "leaf",
		state:    make(map[uuid.UUID]*Tensor),
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ID returns the node's stable identity.
func (t *Tensor) ID() uuid.UUID { return t.id }

// Value returns the node's numeric value.
func (t *Tensor) Value() *tensor.Array { return t.value }

// Shape returns the value's shape.
func (t *Tensor) Shape() tensor.Shape { return t.value.Shape() }

// DataSubjects returns the node's provenance set.
func (t *Tensor) DataSubjects() *provenance.Set { return t.subjects }

// MinVal returns the scalar lower bound.
func (t *Tensor) MinVal() float64 { return t.minVal }

// MaxVal returns the scalar upper bound.
func (t *Tensor) MaxVal() float64 { return t.maxVal }

// FPTValues returns the originating fixed-point payload, or nil.
func (t *Tensor) FPTValues() *fixed.Tensor { return t.fpt }

// Op returns the operation that produced this node.
func (t *Tensor) Op() string { return t.op }

// RegisterSelf records the node in its own graph state, so downstream
// computation referencing it during a publish observes a consistent
// snapshot. Single registration per identity; re-registering overwrites.
func (t *Tensor) RegisterSelf() {
	t.state[t.id] = t
}

// node builds a derived graph node over one or two sources.
func node(op string, value *tensor.Array, subjects *provenance.Set, minVal, maxVal float64, sources ...*Tensor) *Tensor {
	out := &Tensor{
		id:       uuid.New(),
		value:    value,
		subjects: subjects,
		minVal:   minVal,
		maxVal:   maxVal,
		op:       op,
		sources:  sources,
		state:    make(map[uuid.UUID]*Tensor),
		log:      zap.NewNop(),
	}
	for _, src := range sources {
		out.state[src.id] = src
		for id, node := range src.state {
			out.state[id] = node
		}
		if src.log != nil {
			out.log = src.log
		}
	}
	return out
}

// mergeSubjects combines the subject lookups of two nodes. Per-element
// attribution of a combined node involves both operands; the flat merged set
// drives budget accounting while the source graph retains full lineage.
func mergeSubjects(a, b *provenance.Set) *provenance.Set {
	return a.Concat(b)
}

// Add returns the symbolic sum of two disclosure tensors.
func (t *Tensor) Add(other *Tensor) (*Tensor, error) {
	value, err := tensor.Add(t.value, other.value)
	if err != nil {
		return nil, fmt.Errorf("gamma add: %w", err)
	}
	return node("add", value, mergeSubjects(t.subjects, other.subjects),
		t.minVal+other.minVal, t.maxVal+other.maxVal, t, other), nil
}

// Mul returns the symbolic product of two disclosure tensors. Bounds use the
// four cross terms of the scalar bound pairs.
func (t *Tensor) Mul(other *Tensor) (*Tensor, error) {
	value, err := tensor.Mul(t.value, other.value)
	if err != nil {
		return nil, fmt.Errorf("gamma mul: %w", err)
	}
	terms := []float64{
		t.minVal * other.minVal,
		t.minVal * other.maxVal,
		t.maxVal * other.minVal,
		t.maxVal * other.maxVal,
	}
	lo, hi := terms[0], terms[0]
	for _, v := range terms[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return node("mul", value, mergeSubjects(t.subjects, other.subjects), lo, hi, t, other), nil
}

// Eq returns the symbolic equality comparison, bounds collapsed to [0, 1].
func (t *Tensor) Eq(other *Tensor) (*Tensor, error) {
	value, err := tensor.Eq(t.value, other.value)
	if err != nil {
		return nil, fmt.Errorf("gamma eq: %w", err)
	}
	return node("eq", value, mergeSubjects(t.subjects, other.subjects), 0, 1, t, other), nil
}

// Ne returns the symbolic inequality comparison, bounds collapsed to [0, 1].
func (t *Tensor) Ne(other *Tensor) (*Tensor, error) {
	value, err := tensor.Ne(t.value, other.value)
	if err != nil {
		return nil, fmt.Errorf("gamma ne: %w", err)
	}
	return node("ne", value, mergeSubjects(t.subjects, other.subjects), 0, 1, t, other), nil
}

// Concatenate joins two disclosure tensors along an axis, widening the
// bounds to cover both operands.
func (t *Tensor) Concatenate(other *Tensor, axis int) (*Tensor, error) {
	value, err := tensor.Concatenate(t.value, other.value, axis)
	if err != nil {
		return nil, fmt.Errorf("gamma concatenate: %w", err)
	}
	return node("concatenate", value, t.subjects.Concat(other.subjects),
		min(t.minVal, other.minVal), max(t.maxVal, other.maxVal), t, other), nil
}

// SumNode derives the reduction node for a sum over this tensor: the given
// scalar value and summed bounds, attributed to every contributing subject.
func (t *Tensor) SumNode(value *tensor.Array, minVal, maxVal float64) *Tensor {
	return node("sum", value, t.subjects.Copy(), minVal, maxVal, t)
}

// uniqueSubjects collects the distinct subjects across the whole graph.
func (t *Tensor) uniqueSubjects() []string {
	seen := make(map[string]bool)
	var out []string
	var walk func(node *Tensor)
	walk = func(node *Tensor) {
		for _, s := range node.subjects.Subjects() {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
		for _, src := range node.sources {
			walk(src)
		}
	}
	walk(t)
	return out
}

// Publish performs the budget-checked noisy release of the node's value.
//
// Every graph node in the state snapshot is registered into the ledger under
// its own identity before the release executes. The gaussian mechanism with
// the given noise scale sigma is applied; each contributing subject is
// charged epsilon = (max-min)^2 / (2*sigma^2). Publish is deliberately not
// idempotent: calling it twice performs two noisy releases and two
// deductions. At-most-once discipline is the caller's responsibility.
func (t *Tensor) Publish(getBudget BudgetGetter, deductEpsilon EpsilonDeducter, ledger *Ledger, sigma float64) (*tensor.Array, error) {
	if sigma <= 0 {
		return nil, fmt.Errorf("publish: sigma must be positive, got %v", sigma)
	}

	for id, node := range t.state {
		ledger.Insert(id, node)
	}

	sensitivity := t.maxVal - t.minVal
	epsilon := (sensitivity * sensitivity) / (2 * sigma * sigma)
	subjects := t.uniqueSubjects()

	for _, subject := range subjects {
		remaining, err := getBudget(subject)
		if err != nil {
			return nil, fmt.Errorf("publish: budget lookup for %q: %w", subject, err)
		}
		if remaining < epsilon {
			return nil, fmt.Errorf("publish: subject %q has %v remaining, needs %v: %w",
				subject, remaining, epsilon, ErrInsufficientBudget)
		}
	}
	for _, subject := range subjects {
		if err := deductEpsilon(subject, epsilon); err != nil {
			return nil, fmt.Errorf("publish: deduction for %q: %w", subject, err)
		}
	}

	t.log.Debug("publishing disclosure tensor",
		zap.String("id", t.id.String()),
		zap.Float64("sigma", sigma),
		zap.Float64("epsilon", epsilon),
		zap.Int("subjects", len(subjects)))

	released := t.value.Clone()
	data := released.Data()
	for i := range data {
		data[i] += rand.NormFloat64() * sigma
	}
	return released, nil
}
