package phi

import (
	"github.com/veil-ml/veil/internal/gamma"
	"github.com/veil-ml/veil/internal/tensor"
)

// operandKind is the closed set of operand variants a dispatcher can see.
// Remote handles never reach this layer: proxy dispatch happens in the
// remote package before any local operator runs.
type operandKind int

const (
	kindPrivate operandKind = iota
	kindDisclosure
	kindScalar
	kindArray
)

// operand is the tagged union produced by classifyOperand. Exactly one of
// the variant fields is set, as indicated by kind.
type operand struct {
	kind       operandKind
	private    *PrivateTensor
	disclosure *gamma.Tensor
	scalar     float64
	array      *tensor.Array
}

// classifyOperand maps an arbitrary operand to its variant. Every operator
// switches exhaustively over the result; unknown types surface as
// UnsupportedOperandError.
func classifyOperand(op string, other any) (operand, error) {
	switch v := other.(type) {
	case *PrivateTensor:
		return operand{kind: kindPrivate, private: v}, nil
	case *gamma.Tensor:
		return operand{kind: kindDisclosure, disclosure: v}, nil
	case float64:
		return operand{kind: kindScalar, scalar: v}, nil
	case float32:
		return operand{kind: kindScalar, scalar: float64(v)}, nil
	case int:
		return operand{kind: kindScalar, scalar: float64(v)}, nil
	case int32:
		return operand{kind: kindScalar, scalar: float64(v)}, nil
	case int64:
		return operand{kind: kindScalar, scalar: float64(v)}, nil
	case bool:
		if v {
			return operand{kind: kindScalar, scalar: 1}, nil
		}
		return operand{kind: kindScalar, scalar: 0}, nil
	case *tensor.Array:
		return operand{kind: kindArray, array: v}, nil
	case []float64:
		arr, err := tensor.FromSlice(v, tensor.Shape{len(v)})
		if err != nil {
			return operand{}, err
		}
		return operand{kind: kindArray, array: arr}, nil
	default:
		return operand{}, &UnsupportedOperandError{Op: op, Operand: other}
	}
}
