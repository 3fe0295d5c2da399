package fixed

import (
	"math"
	"testing"

	"github.com/veil-ml/veil/internal/tensor"
)

func encode(t *testing.T, data []float64, shape tensor.Shape) *Tensor {
	t.Helper()
	arr, err := tensor.FromSlice(data, shape)
	if err != nil {
		t.Fatal(err)
	}
	return Encode(arr, tensor.Float64, DefaultFracBits)
}

func assertClose(t *testing.T, got *tensor.Array, want []float64) {
	t.Helper()
	data := got.Data()
	if len(data) != len(want) {
		t.Fatalf("got %d elements, want %d", len(data), len(want))
	}
	for i := range data {
		if math.Abs(data[i]-want[i]) > 1e-3 {
			t.Errorf("element %d: got %v, want %v", i, data[i], want[i])
		}
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	ft := encode(t, []float64{1.5, -2.25, 0, 100.0625}, tensor.Shape{4})
	assertClose(t, ft.Decode(), []float64{1.5, -2.25, 0, 100.0625})
}

func TestAddStaysScaled(t *testing.T) {
	a := encode(t, []float64{1.5, 2.5}, tensor.Shape{2})
	b := encode(t, []float64{0.25, -1}, tensor.Shape{2})
	got, err := a.Add(b)
	if err != nil {
		t.Fatal(err)
	}
	assertClose(t, got.Decode(), []float64{1.75, 1.5})
}

func TestMulRescales(t *testing.T) {
	a := encode(t, []float64{1.5, -2}, tensor.Shape{2})
	b := encode(t, []float64{2, 3}, tensor.Shape{2})
	got, err := a.Mul(b)
	if err != nil {
		t.Fatal(err)
	}
	assertClose(t, got.Decode(), []float64{3, -6})
}

func TestMatMulScaled(t *testing.T) {
	a := encode(t, []float64{1, 2, 3, 4}, tensor.Shape{2, 2})
	b := encode(t, []float64{0.5, 0, 0, 0.5}, tensor.Shape{2, 2})
	got, err := a.MatMul(b)
	if err != nil {
		t.Fatal(err)
	}
	assertClose(t, got.Decode(), []float64{0.5, 1, 1.5, 2})
}

func TestDot1DScalar(t *testing.T) {
	a := encode(t, []float64{1, 2, 3}, tensor.Shape{3})
	b := encode(t, []float64{4, 5, 6}, tensor.Shape{3})
	got, err := a.Dot(b)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Shape().IsScalar() {
		t.Fatalf("got shape %v, want scalar", got.Shape())
	}
	assertClose(t, got.Decode(), []float64{32})
}

func TestCompareProducesBoolPayload(t *testing.T) {
	a := encode(t, []float64{1, 5}, tensor.Shape{2})
	b := encode(t, []float64{3, 2}, tensor.Shape{2})
	got, err := a.Lt(b)
	if err != nil {
		t.Fatal(err)
	}
	if got.DType() != tensor.Bool {
		t.Errorf("dtype = %s, want bool", got.DType())
	}
	assertClose(t, got.Decode(), []float64{1, 0})
	if got.All() {
		t.Error("All() should be false with a zero element")
	}
	if !got.Any() {
		t.Error("Any() should be true with a non-zero element")
	}
}

func TestFracBitsMismatchRejected(t *testing.T) {
	arr, _ := tensor.FromSlice([]float64{1}, tensor.Shape{1})
	a := Encode(arr, tensor.Float64, 16)
	b := Encode(arr, tensor.Float64, 8)
	if _, err := a.Add(b); err == nil {
		t.Error("expected precision mismatch error")
	}
}

func TestSetFromArray(t *testing.T) {
	ft := encode(t, []float64{1, 2}, tensor.Shape{2})
	repl, _ := tensor.FromSlice([]float64{7.5, -3}, tensor.Shape{2})
	if err := ft.SetFromArray(repl); err != nil {
		t.Fatal(err)
	}
	assertClose(t, ft.Decode(), []float64{7.5, -3})

	tooBig, _ := tensor.FromSlice([]float64{1, 2, 3}, tensor.Shape{3})
	if err := ft.SetFromArray(tooBig); err == nil {
		t.Error("expected element count mismatch error")
	}
}
