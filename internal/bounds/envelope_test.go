package bounds

import (
	"math/rand"
	"testing"

	"github.com/veil-ml/veil/internal/tensor"
)

func mustEnv(t *testing.T, data []float64, dataShape, shape tensor.Shape) *Envelope {
	t.Helper()
	arr, err := tensor.FromSlice(data, dataShape)
	if err != nil {
		t.Fatal(err)
	}
	env, err := New(arr, shape)
	if err != nil {
		t.Fatal(err)
	}
	return env
}

func TestScalarEnvelopeStaysLazy(t *testing.T) {
	a := NewScalar(0, tensor.Shape{1000})
	b := NewScalar(5, tensor.Shape{1000})
	got, err := a.Add(b)
	if err != nil {
		t.Fatal(err)
	}
	if !got.IsLazy() {
		t.Error("sum of two scalar envelopes should stay lazy")
	}
	if got.Data().Item() != 5 {
		t.Errorf("lazy data = %v, want 5", got.Data().Item())
	}

	mat, err := got.Materialize()
	if err != nil {
		t.Fatal(err)
	}
	if mat.NumElements() != 1000 {
		t.Errorf("materialized %d elements, want 1000", mat.NumElements())
	}
}

func TestLazySum(t *testing.T) {
	e := NewScalar(2, tensor.Shape{3, 4})
	got := e.Sum()
	if got.Data().Item() != 24 {
		t.Errorf("lazy sum = %v, want 24", got.Data().Item())
	}
	if !got.Shape().IsScalar() {
		t.Errorf("sum shape = %v, want scalar", got.Shape())
	}
}

func TestTransposeScalarKeepsLazyData(t *testing.T) {
	e := NewScalar(7, tensor.Shape{2, 5})
	got, err := e.Transpose()
	if err != nil {
		t.Fatal(err)
	}
	if !got.Shape().Equal(tensor.Shape{5, 2}) {
		t.Errorf("shape = %v, want [5 2]", got.Shape())
	}
	if !got.IsLazy() {
		t.Error("scalar data should survive transpose unmaterialized")
	}
}

// Cross-term propagation must contain the true range for every combination
// of operand values inside the declared intervals.
func TestCrossTermSoundness(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	shape := tensor.Shape{4}

	for trial := 0; trial < 50; trial++ {
		aMinD, aMaxD := make([]float64, 4), make([]float64, 4)
		bMinD, bMaxD := make([]float64, 4), make([]float64, 4)
		for i := 0; i < 4; i++ {
			x, y := rng.Float64()*20-10, rng.Float64()*20-10
			aMinD[i], aMaxD[i] = min(x, y), max(x, y)
			x, y = rng.Float64()*20-10, rng.Float64()*20-10
			bMinD[i], bMaxD[i] = min(x, y), max(x, y)
		}
		aMin := mustEnv(t, aMinD, shape, shape)
		aMax := mustEnv(t, aMaxD, shape, shape)
		bMin := mustEnv(t, bMinD, shape, shape)
		bMax := mustEnv(t, bMaxD, shape, shape)

		subLo, subHi, err := CrossSub(aMin, aMax, bMin, bMax)
		if err != nil {
			t.Fatal(err)
		}
		mulLo, mulHi, err := CrossMul(aMin, aMax, bMin, bMax)
		if err != nil {
			t.Fatal(err)
		}

		// sample operand values inside the intervals
		for s := 0; s < 20; s++ {
			for i := 0; i < 4; i++ {
				a := aMinD[i] + rng.Float64()*(aMaxD[i]-aMinD[i])
				b := bMinD[i] + rng.Float64()*(bMaxD[i]-bMinD[i])

				if d := a - b; d < subLo.Data().Data()[i]-1e-9 || d > subHi.Data().Data()[i]+1e-9 {
					t.Fatalf("sub bound violated: %v not in [%v, %v]",
						d, subLo.Data().Data()[i], subHi.Data().Data()[i])
				}
				if p := a * b; p < mulLo.Data().Data()[i]-1e-9 || p > mulHi.Data().Data()[i]+1e-9 {
					t.Fatalf("mul bound violated: %v not in [%v, %v]",
						p, mulLo.Data().Data()[i], mulHi.Data().Data()[i])
				}
			}
		}
	}
}

func TestNegSwapsResponsibility(t *testing.T) {
	e := mustEnv(t, []float64{1, -2}, tensor.Shape{2}, tensor.Shape{2})
	got := e.Neg()
	want := []float64{-1, 2}
	for i, v := range got.Data().Data() {
		if v != want[i] {
			t.Errorf("element %d: got %v, want %v", i, v, want[i])
		}
	}
}

func TestConcatenateMaterializes(t *testing.T) {
	a := NewScalar(1, tensor.Shape{2, 2})
	b := NewScalar(9, tensor.Shape{1, 2})
	got, err := a.Concatenate(b, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Shape().Equal(tensor.Shape{3, 2}) {
		t.Errorf("shape = %v, want [3 2]", got.Shape())
	}
	want := []float64{1, 1, 1, 1, 9, 9}
	for i, v := range got.Data().Data() {
		if v != want[i] {
			t.Errorf("element %d: got %v, want %v", i, v, want[i])
		}
	}
}

func TestMatMulPropagation(t *testing.T) {
	a := mustEnv(t, []float64{1, 2, 3, 4}, tensor.Shape{2, 2}, tensor.Shape{2, 2})
	b := mustEnv(t, []float64{1, 0, 0, 1}, tensor.Shape{2, 2}, tensor.Shape{2, 2})
	got, err := a.MatMul(b)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{1, 2, 3, 4}
	for i, v := range got.Data().Data() {
		if v != want[i] {
			t.Errorf("element %d: got %v, want %v", i, v, want[i])
		}
	}
}
