package phi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veil-ml/veil/internal/gamma"
	"github.com/veil-ml/veil/internal/tensor"
)

func materialized(t *testing.T, e interface {
	Materialize() (*tensor.Array, error)
}) []float64 {
	t.Helper()
	arr, err := e.Materialize()
	require.NoError(t, err)
	return arr.Data()
}

func TestAddPrivateSameSubject(t *testing.T) {
	a := private(t, []float64{1, 2, 3}, "alice", 0, 5)
	b := private(t, []float64{4, 4, 4}, "alice", 2, 6)

	got, err := a.Add(b)
	require.NoError(t, err)

	pt, ok := got.(*PrivateTensor)
	require.True(t, ok, "same-subject add must stay private")
	assert.Equal(t, []float64{5, 6, 7}, pt.Value().Data())
	assert.Equal(t, []float64{2, 2, 2}, materialized(t, pt.MinVals()))
	assert.Equal(t, []float64{11, 11, 11}, materialized(t, pt.MaxVals()))
	assert.Equal(t, []string{"alice"}, pt.DataSubjects().Subjects())
}

func TestAddScalarShiftsBounds(t *testing.T) {
	a := private(t, []float64{1, 2}, "alice", 0, 5)
	got, err := a.Add(3.0)
	require.NoError(t, err)

	pt := got.(*PrivateTensor)
	assert.Equal(t, []float64{4, 5}, pt.Value().Data())
	assert.Equal(t, []float64{3, 3}, materialized(t, pt.MinVals()))
	assert.Equal(t, []float64{8, 8}, materialized(t, pt.MaxVals()))
}

func TestAddMismatchedProvenancePromotes(t *testing.T) {
	a := private(t, []float64{1, 2}, "alice", 0, 5)
	c := private(t, []float64{3, 4}, "carol", 0, 5)

	got, err := a.Add(c)
	require.NoError(t, err)

	g, ok := got.(*gamma.Tensor)
	require.True(t, ok, "cross-subject add must promote to a disclosure tensor")
	assert.Equal(t, []float64{4, 6}, g.Value().Data())
	assert.ElementsMatch(t, []string{"alice", "carol"}, g.DataSubjects().Subjects())
	assert.Equal(t, 0.0, g.MinVal())
	assert.Equal(t, 10.0, g.MaxVal())
}

func TestSubCrossTerms(t *testing.T) {
	a := private(t, []float64{5}, "alice", 0, 10)
	b := private(t, []float64{2}, "alice", -3, 4)

	got, err := a.Sub(b)
	require.NoError(t, err)
	assert.Equal(t, []float64{3}, got.Value().Data())
	assert.Equal(t, []float64{-4}, materialized(t, got.MinVals()))
	assert.Equal(t, []float64{13}, materialized(t, got.MaxVals()))
}

func TestSubMismatchedProvenanceFailsFast(t *testing.T) {
	a := private(t, []float64{5}, "alice", 0, 10)
	c := private(t, []float64{2}, "carol", 0, 10)

	_, err := a.Sub(c)
	require.ErrorIs(t, err, ErrUnimplementedPromotion)
}

func TestMulCrossTermsHandleSignChanges(t *testing.T) {
	a := private(t, []float64{2}, "alice", -3, 2)
	b := private(t, []float64{-1}, "alice", -1, 5)

	got, err := a.Mul(b)
	require.NoError(t, err)

	pt := got.(*PrivateTensor)
	assert.InDelta(t, -2.0, pt.Value().Data()[0], 1e-3)
	assert.Equal(t, []float64{-15}, materialized(t, pt.MinVals()))
	assert.Equal(t, []float64{10}, materialized(t, pt.MaxVals()))
}

func TestMatMulSameSubject(t *testing.T) {
	a, err := FromSlice([]float64{1, 2, 3, 4}, tensor.Shape{2, 2}, "alice", 0, 5)
	require.NoError(t, err)
	b, err := FromSlice([]float64{1, 0, 0, 1}, tensor.Shape{2, 2}, "alice", 0, 1)
	require.NoError(t, err)

	got, err := a.MatMul(b)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 2}, got.Shape())
	assert.Equal(t, []float64{1, 2, 3, 4}, got.Value().Data())
	assert.Equal(t, []string{"alice"}, got.DataSubjects().Subjects())
	assert.Equal(t, 4, got.DataSubjects().NumElements())
}

func TestMatMulMismatchedProvenanceFailsFast(t *testing.T) {
	a, err := FromSlice([]float64{1, 2, 3, 4}, tensor.Shape{2, 2}, "alice", 0, 5)
	require.NoError(t, err)
	c, err := FromSlice([]float64{1, 0, 0, 1}, tensor.Shape{2, 2}, "carol", 0, 1)
	require.NoError(t, err)

	_, err = a.MatMul(c)
	require.ErrorIs(t, err, ErrUnimplementedPromotion)
}

func TestMatMulRejectsScalarOperand(t *testing.T) {
	a, err := FromSlice([]float64{1, 2, 3, 4}, tensor.Shape{2, 2}, "alice", 0, 5)
	require.NoError(t, err)

	_, err = a.MatMul(2.0)
	require.ErrorIs(t, err, ErrUnsupportedOperand)
}

func TestDotRejectsMultipleSubjects(t *testing.T) {
	multi, err := FromRows([]*PrivateTensor{
		private(t, []float64{1}, "alice", 0, 5),
		private(t, []float64{2}, "bob", 0, 5),
	})
	require.NoError(t, err)
	flat, err := FromSlice([]float64{1, 2}, tensor.Shape{2, 1}, "alice", 0, 5)
	require.NoError(t, err)

	_, err = multi.Dot(flat)
	require.ErrorIs(t, err, ErrProvenanceConflict)
}

func TestDotSameSubject(t *testing.T) {
	a := private(t, []float64{1, 2, 3}, "alice", 0, 5)
	b := private(t, []float64{4, 5, 6}, "alice", 0, 10)

	got, err := a.Dot(b)
	require.NoError(t, err)
	assert.True(t, got.Shape().IsScalar())
	assert.InDelta(t, 32.0, got.Value().Data()[0], 1e-3)
	assert.Equal(t, 1, got.DataSubjects().NumElements())
}

func TestSumSingleSubjectStaysPrivate(t *testing.T) {
	a := private(t, []float64{1, 2, 3}, "alice", 0, 5)

	got, err := a.Sum()
	require.NoError(t, err)

	pt, ok := got.(*PrivateTensor)
	require.True(t, ok)
	assert.InDelta(t, 6.0, pt.Value().Data()[0], 1e-3)
	assert.Equal(t, []float64{0}, materialized(t, pt.MinVals()))
	assert.Equal(t, []float64{15}, materialized(t, pt.MaxVals()))
	assert.Equal(t, 1, pt.DataSubjects().NumElements())
}

func TestSumAcrossSubjectsPromotes(t *testing.T) {
	multi, err := FromRows([]*PrivateTensor{
		private(t, []float64{1, 2}, "alice", 0, 5),
		private(t, []float64{3, 4}, "bob", 0, 5),
	})
	require.NoError(t, err)

	got, err := multi.Sum()
	require.NoError(t, err)

	g, ok := got.(*gamma.Tensor)
	require.True(t, ok, "multi-subject sum must be ledger-auditable")
	assert.InDelta(t, 10.0, g.Value().Data()[0], 1e-3)
	assert.Equal(t, 0.0, g.MinVal())
	assert.Equal(t, 20.0, g.MaxVal())
}

func TestComparisonsCollapseBoundsToUnit(t *testing.T) {
	a := private(t, []float64{1, 5}, "alice", -100, 100)
	b := private(t, []float64{3, 2}, "alice", -100, 100)

	lt, err := a.Lt(b)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0}, lt.Value().Data())
	assert.Equal(t, []float64{0, 0}, materialized(t, lt.MinVals()))
	assert.Equal(t, []float64{1, 1}, materialized(t, lt.MaxVals()))
	assert.Equal(t, tensor.Bool, lt.DType())

	gt, err := a.Gt(b)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1}, gt.Value().Data())
}

func TestComparisonMismatchedProvenanceFailsFast(t *testing.T) {
	a := private(t, []float64{1}, "alice", 0, 5)
	c := private(t, []float64{2}, "carol", 0, 5)

	_, err := a.Lt(c)
	require.ErrorIs(t, err, ErrUnimplementedPromotion)
	_, err = a.Gt(c)
	require.ErrorIs(t, err, ErrUnimplementedPromotion)
}

func TestEqPromotesOnMismatchedProvenance(t *testing.T) {
	a := private(t, []float64{1, 2}, "alice", 0, 5)
	c := private(t, []float64{1, 3}, "carol", 0, 5)

	got, err := a.Eq(c)
	require.NoError(t, err)
	g, ok := got.(*gamma.Tensor)
	require.True(t, ok, "cross-subject equality must promote")
	assert.Equal(t, []float64{1, 0}, g.Value().Data())
	assert.Equal(t, 0.0, g.MinVal())
	assert.Equal(t, 1.0, g.MaxVal())
}

func TestEqRequiresExactShape(t *testing.T) {
	a := private(t, []float64{1, 2}, "alice", 0, 5)
	b, err := FromSlice([]float64{1}, tensor.Shape{1}, "alice", 0, 5)
	require.NoError(t, err)

	_, err = a.Eq(b)
	var sm *ShapeMismatchError
	require.ErrorAs(t, err, &sm)
	require.ErrorIs(t, err, ErrShapeMismatch)
}

func TestConcatenateSameSubjects(t *testing.T) {
	a := private(t, []float64{1, 2}, "alice", 0, 5)
	b := private(t, []float64{3, 4}, "alice", -1, 2)

	got, err := a.Concatenate(b, 0)
	require.NoError(t, err)

	pt, ok := got.(*PrivateTensor)
	require.True(t, ok)
	assert.Equal(t, tensor.Shape{4}, pt.Shape())
	assert.Equal(t, []float64{1, 2, 3, 4}, pt.Value().Data())
	assert.Equal(t, []float64{0, 0, -1, -1}, materialized(t, pt.MinVals()))
	assert.Equal(t, 4, pt.DataSubjects().NumElements())
}

func TestConcatenateMismatchedSubjectsPromotes(t *testing.T) {
	a := private(t, []float64{1, 2}, "alice", 0, 5)
	c := private(t, []float64{3, 4}, "carol", 1, 9)

	got, err := a.Concatenate(c, 0)
	require.NoError(t, err)

	g, ok := got.(*gamma.Tensor)
	require.True(t, ok)
	assert.Equal(t, tensor.Shape{4}, g.Shape())
	assert.Equal(t, 0.0, g.MinVal())
	assert.Equal(t, 9.0, g.MaxVal())
}

func TestConcatenateRejectsPublicOperand(t *testing.T) {
	a := private(t, []float64{1, 2}, "alice", 0, 5)
	_, err := a.Concatenate(3.0, 0)
	require.ErrorIs(t, err, ErrUnsupportedOperand)
}

func TestTranspose(t *testing.T) {
	a, err := FromSlice([]float64{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, "alice", 0, 9)
	require.NoError(t, err)

	got, err := a.Transpose()
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{3, 2}, got.Shape())
	assert.Equal(t, []float64{1, 4, 2, 5, 3, 6}, got.Value().Data())
}

func TestTransposeScalarIsNoOp(t *testing.T) {
	a, err := FromSlice([]float64{7}, tensor.Shape{}, "alice", 0, 9)
	require.NoError(t, err)

	got, err := a.Transpose()
	require.NoError(t, err)
	assert.Equal(t, a.Value().Data(), got.Value().Data())
}

func TestNegSwapsBounds(t *testing.T) {
	a := private(t, []float64{1, -2}, "alice", -3, 7)

	got, err := a.Neg()
	require.NoError(t, err)
	assert.Equal(t, []float64{-1, 2}, got.Value().Data())
	assert.Equal(t, []float64{-7, -7}, materialized(t, got.MinVals()))
	assert.Equal(t, []float64{3, 3}, materialized(t, got.MaxVals()))
}

func TestUnsupportedOperandType(t *testing.T) {
	a := private(t, []float64{1}, "alice", 0, 5)
	_, err := a.Add("nope")
	require.ErrorIs(t, err, ErrUnsupportedOperand)

	var uo *UnsupportedOperandError
	require.ErrorAs(t, err, &uo)
}
