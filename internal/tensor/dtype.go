// Package tensor provides the dense numeric substrate for the Veil framework:
// shapes, broadcasting, and the float64 Array the bound algebra operates on.
package tensor

// DataType is the declared logical element type of a payload tensor.
// The fixed-point engine stores everything as scaled int64 internally; the
// declared type drives ring-size selection for secret sharing and the public
// dtype advertised by remote handles.
type DataType int

// Supported declared data types.
const (
	Float64 DataType = iota
	Float32
	Int64
	Int32
	Uint8
	Bool
)

// Size returns the byte width of the declared type.
func (dt DataType) Size() int {
	switch dt {
	case Float64, Int64:
		return 8
	case Float32, Int32:
		return 4
	case Uint8, Bool:
		return 1
	default:
		panic("unknown data type")
	}
}

// String returns a human-readable name for the data type.
func (dt DataType) String() string {
	switch dt {
	case Float64:
		return "float64"
	case Float32:
		return "float32"
	case Int64:
		return "int64"
	case Int32:
		return "int32"
	case Uint8:
		return "uint8"
	case Bool:
		return "bool"
	default:
		return "unknown"
	}
}

// ParseDataType maps a type name back to its DataType, for decoding
// serialized records and YAML configuration.
func ParseDataType(s string) (DataType, bool) {
	switch s {
	case "float64":
		return Float64, true
	case "float32":
		return Float32, true
	case "int64":
		return Int64, true
	case "int32":
		return Int32, true
	case "uint8":
		return Uint8, true
	case "bool":
		return Bool, true
	default:
		return 0, false
	}
}
