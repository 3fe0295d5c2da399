package remote

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/veil-ml/veil/internal/tensor"
)

// Pointer is one command operand: either a reference to an object already
// held by the executing party (ID set, Literal empty) or an inline literal
// value carried in msgpack form.
type Pointer struct {
	ID      uuid.UUID `msgpack:"id"`
	Literal []byte    `msgpack:"literal,omitempty"`
}

// IsLiteral reports whether the pointer carries an inline value.
func (p Pointer) IsLiteral() bool { return len(p.Literal) > 0 }

// Command is a deferred operation sent to the owning party. The result is
// stored remotely under ResultID; the sender allocates that identity before
// the command is transmitted, so the result can be referenced immediately.
type Command struct {
	Path     string    `msgpack:"path"`
	Self     Pointer   `msgpack:"self"`
	Args     []Pointer `msgpack:"args,omitempty"`
	ResultID uuid.UUID `msgpack:"result_id"`
	Address  string    `msgpack:"address"`
}

// literalScalar encodes a scalar operand for inline transport.
type literalScalar struct {
	Value float64 `msgpack:"value"`
}

// literalArray encodes an array operand for inline transport.
type literalArray struct {
	Data  []float64 `msgpack:"data"`
	Shape []int     `msgpack:"shape"`
}

func scalarPointer(v float64) (Pointer, error) {
	buf, err := msgpack.Marshal(&literalScalar{Value: v})
	if err != nil {
		return Pointer{}, fmt.Errorf("encoding scalar literal: %w", err)
	}
	return Pointer{Literal: buf}, nil
}

func arrayPointer(arr *tensor.Array) (Pointer, error) {
	buf, err := msgpack.Marshal(&literalArray{Data: arr.Data(), Shape: arr.Shape()})
	if err != nil {
		return Pointer{}, fmt.Errorf("encoding array literal: %w", err)
	}
	return Pointer{Literal: buf}, nil
}
