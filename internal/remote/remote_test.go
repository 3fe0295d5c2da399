package remote

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/veil-ml/veil/internal/bounds"
	"github.com/veil-ml/veil/internal/mpc"
	"github.com/veil-ml/veil/internal/provenance"
	"github.com/veil-ml/veil/internal/tensor"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeClient records every transmitted command.
type fakeClient struct {
	mu   sync.Mutex
	addr string
	sent []*Command
	err  error
}

func (c *fakeClient) Address() string { return c.addr }

func (c *fakeClient) SendCommand(cmd *Command) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, cmd)
	return nil
}

func (c *fakeClient) commands() []*Command {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Command(nil), c.sent...)
}

func handle(t *testing.T, owner Client, subject string, shape tensor.Shape, lo, hi float64, opts ...Option) *Handle {
	t.Helper()
	return NewHandle(owner, uuid.New(),
		provenance.FromSubject(subject, shape.NumElements()),
		bounds.NewScalar(lo, shape), bounds.NewScalar(hi, shape),
		shape, tensor.Float64, opts...)
}

func TestAddSameOwnerDefersCommand(t *testing.T) {
	owner := &fakeClient{addr: "alice.example.com:9000"}
	a := handle(t, owner, "alice", tensor.Shape{3}, 0, 10)
	b := handle(t, owner, "alice", tensor.Shape{3}, 2, 6)

	got, err := a.Add(context.Background(), b)
	require.NoError(t, err)

	out, ok := got.(*Handle)
	require.True(t, ok, "same-owner add must stay a deferred handle")
	assert.Equal(t, tensor.Shape{3}, out.Shape())
	assert.NotEqual(t, a.ID(), out.ID(), "result gets its own identity")

	cmds := owner.commands()
	require.Len(t, cmds, 1)
	assert.Equal(t, "tensor.add", cmds[0].Path)
	assert.Equal(t, a.ID(), cmds[0].Self.ID)
	require.Len(t, cmds[0].Args, 1)
	assert.Equal(t, b.ID(), cmds[0].Args[0].ID)
	assert.Equal(t, out.ID(), cmds[0].ResultID, "result identity is allocated before transmission")

	// The owning party refines the real result; the placeholder keeps the
	// left operand's own bounds and subjects as an over-approximation.
	lo, err := out.MinVals().Materialize()
	require.NoError(t, err)
	hi, err := out.MaxVals().Materialize()
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0}, lo.Data())
	assert.Equal(t, []float64{10, 10, 10}, hi.Data())
	assert.Equal(t, []string{"alice"}, out.DataSubjects().Subjects())
}

func TestScalarOperandTravelsAsLiteral(t *testing.T) {
	owner := &fakeClient{addr: "alice.example.com:9000"}
	a := handle(t, owner, "alice", tensor.Shape{2}, 0, 10)

	got, err := a.Mul(context.Background(), 3.0)
	require.NoError(t, err)

	cmds := owner.commands()
	require.Len(t, cmds, 1)
	require.Len(t, cmds[0].Args, 1)
	assert.True(t, cmds[0].Args[0].IsLiteral())

	out := got.(*Handle)
	lo, err := out.MinVals().Materialize()
	require.NoError(t, err)
	hi, err := out.MaxVals().Materialize()
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0}, lo.Data())
	assert.Equal(t, []float64{10, 10}, hi.Data())
}

func TestComparisonProducesBoolHandle(t *testing.T) {
	owner := &fakeClient{addr: "a:1"}
	a := handle(t, owner, "alice", tensor.Shape{2}, -100, 100)
	b := handle(t, owner, "alice", tensor.Shape{2}, -100, 100)

	for _, op := range []func(context.Context, any) (Result, error){a.Lt, a.Gt, a.Ge, a.Le, a.Eq, a.Ne} {
		got, err := op(context.Background(), b)
		require.NoError(t, err)
		out := got.(*Handle)
		assert.Equal(t, tensor.Bool, out.DType())
		lo, err := out.MinVals().Materialize()
		require.NoError(t, err)
		hi, err := out.MaxVals().Materialize()
		require.NoError(t, err)
		assert.Equal(t, []float64{-100, -100}, lo.Data(), "bounds stay inherited, not collapsed")
		assert.Equal(t, []float64{100, 100}, hi.Data())
	}
}

func TestMatMulInfersResultShape(t *testing.T) {
	owner := &fakeClient{addr: "a:1"}
	a := handle(t, owner, "alice", tensor.Shape{2, 3}, 0, 1)
	b := handle(t, owner, "alice", tensor.Shape{3, 4}, 0, 1)

	got, err := a.MatMul(context.Background(), b)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 4}, got.Shape())

	_, err = b.MatMul(context.Background(), a)
	require.Error(t, err, "inner dimension mismatch must be caught locally")
}

func TestDroppedCommandStillReturnsHandle(t *testing.T) {
	owner := &fakeClient{addr: "a:1", err: errors.New("connection refused")}
	a := handle(t, owner, "alice", tensor.Shape{2}, 0, 1)

	got, err := a.Add(context.Background(), 1.0)
	require.NoError(t, err, "transmission failure surfaces at retrieval, not here")
	assert.NotNil(t, got)
}

func TestCrossOwnerEscalatesToCoordinator(t *testing.T) {
	coord := mpc.NewCoordinator(&stubProtocol{})
	alice := &fakeClient{addr: "alice:1"}
	bob := &fakeClient{addr: "bob:1"}
	a := handle(t, alice, "alice", tensor.Shape{2}, 0, 1, WithCoordinator(coord))
	b := handle(t, bob, "bob", tensor.Shape{2}, 0, 1)

	got, err := a.Add(context.Background(), b)
	require.NoError(t, err)

	shared, ok := got.(*mpc.Tensor)
	require.True(t, ok, "cross-owner result must be secret-shared")
	assert.Equal(t, tensor.Shape{2}, shared.Shape())
	ps := shared.Parties()
	require.Len(t, ps, 2)
	assert.Equal(t, "alice:1", ps[0].Address())
	assert.Equal(t, "bob:1", ps[1].Address())

	assert.Empty(t, alice.commands(), "no deferred command is sent on escalation")
}

func TestCrossOwnerWithoutCoordinatorFails(t *testing.T) {
	a := handle(t, &fakeClient{addr: "alice:1"}, "alice", tensor.Shape{2}, 0, 1)
	b := handle(t, &fakeClient{addr: "bob:1"}, "bob", tensor.Shape{2}, 0, 1)

	_, err := a.Add(context.Background(), b)
	require.Error(t, err)
}

func TestTransposeIsPropertyAccess(t *testing.T) {
	owner := &fakeClient{addr: "a:1"}
	a := handle(t, owner, "alice", tensor.Shape{2, 5}, 0, 1)

	got, err := a.Transpose()
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{5, 2}, got.Shape())

	cmds := owner.commands()
	require.Len(t, cmds, 1)
	assert.Equal(t, "tensor.T", cmds[0].Path)
	assert.Empty(t, cmds[0].Args)
}

func TestSyntheticStaysInsideBounds(t *testing.T) {
	owner := &fakeClient{addr: "a:1"}
	a := handle(t, owner, "alice", tensor.Shape{100}, -2, 3)

	got, err := a.Synthetic()
	require.NoError(t, err)
	require.Equal(t, 100, got.NumElements())
	for i, v := range got.Data() {
		assert.GreaterOrEqual(t, v, -2.0, "element %d", i)
		assert.Less(t, v, 3.0, "element %d", i)
	}
	assert.Empty(t, owner.commands(), "synthetic data never contacts the owner")
}

func TestToLocalWithoutData(t *testing.T) {
	owner := &fakeClient{addr: "a:1"}
	a := handle(t, owner, "alice", tensor.Shape{4}, -1, 1,
		WithTags("heights"), WithDescription("test fixture"))

	local := a.ToLocalWithoutData()
	assert.Equal(t, tensor.Shape{4}, local.Shape())
	assert.Equal(t, []string{"alice"}, local.DataSubjects().Subjects())
	assert.False(t, local.Any())
}

func TestTagsInheritThroughOps(t *testing.T) {
	owner := &fakeClient{addr: "a:1"}
	a := handle(t, owner, "alice", tensor.Shape{2}, 0, 1, WithTags("heights"))
	b := handle(t, owner, "alice", tensor.Shape{2}, 0, 1, WithTags("weights"))

	got, err := a.Add(context.Background(), b)
	require.NoError(t, err)
	out := got.(*Handle)
	assert.Equal(t, []string{"heights", "weights", "add"}, out.Tags())
}

func TestDescriptionInheritsThroughOps(t *testing.T) {
	owner := &fakeClient{addr: "a:1"}
	a := handle(t, owner, "alice", tensor.Shape{2}, 0, 1, WithDescription("patient heights"))
	b := handle(t, owner, "alice", tensor.Shape{2}, 0, 1, WithDescription("patient weights"))

	got, err := a.Add(context.Background(), b)
	require.NoError(t, err)
	out := got.(*Handle)
	assert.Equal(t, "patient heights; patient weights (add)", out.Description())

	// A bare operand contributes nothing; an undescribed result stays empty.
	got, err = b.Mul(context.Background(), 2.0)
	require.NoError(t, err)
	assert.Equal(t, "patient weights (mul)", got.(*Handle).Description())

	c := handle(t, owner, "alice", tensor.Shape{2}, 0, 1)
	got, err = c.Add(context.Background(), 1.0)
	require.NoError(t, err)
	assert.Empty(t, got.(*Handle).Description())
}

// stubProtocol satisfies mpc.Protocol without doing any real work.
type stubProtocol struct{}

type stubRef struct{ id uuid.UUID }

func (r stubRef) ID() uuid.UUID { return r.id }

func (*stubProtocol) Share(_ context.Context, _ mpc.Secret, _ tensor.Shape, _ *big.Int, _ []mpc.Party) (mpc.ShareRef, error) {
	return stubRef{id: uuid.New()}, nil
}

func (*stubProtocol) Execute(_ context.Context, _ string, _, _ mpc.ShareRef) (mpc.ShareRef, error) {
	return stubRef{id: uuid.New()}, nil
}

func (*stubProtocol) Reconstruct(_ context.Context, _ mpc.ShareRef) (*tensor.Array, error) {
	return nil, errors.New("stub protocol cannot reconstruct")
}
