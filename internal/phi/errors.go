package phi

import (
	"errors"
	"fmt"

	"github.com/veil-ml/veil/internal/tensor"
)

// Common errors.
var (
	// ErrShapeMismatch is returned when element counts or shapes disagree on
	// an operator that requires exact equality.
	ErrShapeMismatch = errors.New("tensor shapes do not match")

	// ErrUnsupportedOperand is returned when an operand is neither a
	// compatible tensor, a scalar, nor a plain array.
	ErrUnsupportedOperand = errors.New("unsupported operand type")

	// ErrProvenanceConflict is returned for operator/provenance combinations
	// that are forbidden outright, never promoted.
	ErrProvenanceConflict = errors.New("provenance conflict: operation forbidden for these data subjects")

	// ErrUnimplementedPromotion is returned when a promotion path is
	// recognized but not implemented for this operator. Distinct from
	// ErrProvenanceConflict so callers can tell "never supported" from
	// "not yet supported".
	ErrUnimplementedPromotion = errors.New("promotion to disclosure tensor not implemented for this operator")

	// ErrEmptyRelease is returned when publish completes but no fixed-point
	// value reference exists to receive the released data.
	ErrEmptyRelease = errors.New("no fixed-point values to receive released data")
)

// Serialization errors.
var (
	ErrInvalidMagic       = errors.New("invalid magic bytes")
	ErrUnsupportedVersion = errors.New("unsupported record format version")
	ErrRecordTooLarge     = errors.New("serialized record exceeds decode limit")
)

// ShapeMismatchError reports the operator and the two offending shapes.
type ShapeMismatchError struct {
	Op string
	A  tensor.Shape
	B  tensor.Shape
}

// Error implements the error interface.
func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("%s: tensor shapes do not match: %v vs %v", e.Op, e.A, e.B)
}

// Unwrap makes the error match ErrShapeMismatch.
func (e *ShapeMismatchError) Unwrap() error { return ErrShapeMismatch }

// UnsupportedOperandError reports the operator and the rejected operand type.
type UnsupportedOperandError struct {
	Op      string
	Operand any
}

// Error implements the error interface.
func (e *UnsupportedOperandError) Error() string {
	return fmt.Sprintf("%s: unsupported operand type %T", e.Op, e.Operand)
}

// Unwrap makes the error match ErrUnsupportedOperand.
func (e *UnsupportedOperandError) Unwrap() error { return ErrUnsupportedOperand }
