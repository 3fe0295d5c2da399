package phi

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/veil-ml/veil/internal/bounds"
	"github.com/veil-ml/veil/internal/fixed"
	"github.com/veil-ml/veil/internal/provenance"
	"github.com/veil-ml/veil/internal/tensor"
)

// Binary record framing.
const (
	// MagicBytes identify a serialized PrivateTensor record.
	MagicBytes = "VEIL"

	// FormatVersion is the current record format version.
	FormatVersion = 1

	// ChunkSize is the size of each payload chunk in the serialized record.
	ChunkSize = 1 << 20
)

// payloadRecord is the serialized form of the fixed-point payload.
type payloadRecord struct {
	Scaled   []int64 `msgpack:"scaled"`
	Shape    []int   `msgpack:"shape"`
	DType    string  `msgpack:"dtype"`
	FracBits uint8   `msgpack:"frac_bits"`
}

// envelopeRecord is the serialized form of a bound envelope, preserving
// laziness: scalar data stays scalar.
type envelopeRecord struct {
	Data      []float64 `msgpack:"data"`
	DataShape []int     `msgpack:"data_shape"`
	Shape     []int     `msgpack:"shape"`
}

// tensorRecord is the packed on-wire layout of a PrivateTensor.
type tensorRecord struct {
	Child               [][]byte `msgpack:"child"`
	MinVals             []byte   `msgpack:"min_vals"`
	MaxVals             []byte   `msgpack:"max_vals"`
	DataSubjectsIndexed []int32  `msgpack:"data_subjects_indexed"`
	OneHotLookup        []string `msgpack:"one_hot_lookup"`
}

// chunkBytes splits a byte stream into fixed-size chunks.
func chunkBytes(data []byte) [][]byte {
	var chunks [][]byte
	for len(data) > ChunkSize {
		chunks = append(chunks, data[:ChunkSize])
		data = data[ChunkSize:]
	}
	return append(chunks, data)
}

// combineBytes reassembles chunked data.
func combineBytes(chunks [][]byte) []byte {
	var total int
	for _, c := range chunks {
		total += len(c)
	}
	out := make([]byte, 0, total)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}

func marshalEnvelope(e *bounds.Envelope) ([]byte, error) {
	return msgpack.Marshal(&envelopeRecord{
		Data:      e.Data().Data(),
		DataShape: e.Data().Shape(),
		Shape:     e.Shape(),
	})
}

func unmarshalEnvelope(buf []byte) (*bounds.Envelope, error) {
	var rec envelopeRecord
	if err := msgpack.Unmarshal(buf, &rec); err != nil {
		return nil, fmt.Errorf("decoding bound envelope: %w", err)
	}
	data, err := tensor.FromSlice(rec.Data, tensor.Shape(rec.DataShape))
	if err != nil {
		return nil, fmt.Errorf("decoding bound envelope: %w", err)
	}
	return bounds.New(data, tensor.Shape(rec.Shape))
}

// Serialize packs a PrivateTensor into its binary record: magic header and
// format version, then a msgpack body holding the chunked payload bytes,
// both serialized bound envelopes, the subject index array, and the UTF-8
// subject lookup.
func Serialize(t *PrivateTensor) ([]byte, error) {
	childBytes, err := msgpack.Marshal(&payloadRecord{
		Scaled:   t.payload.Scaled(),
		Shape:    t.payload.Shape(),
		DType:    t.payload.DType().String(),
		FracBits: uint8(t.payload.FracBits()),
	})
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}

	minBytes, err := marshalEnvelope(t.minVals)
	if err != nil {
		return nil, fmt.Errorf("encoding min bounds: %w", err)
	}
	maxBytes, err := marshalEnvelope(t.maxVals)
	if err != nil {
		return nil, fmt.Errorf("encoding max bounds: %w", err)
	}

	body, err := msgpack.Marshal(&tensorRecord{
		Child:               chunkBytes(childBytes),
		MinVals:             minBytes,
		MaxVals:             maxBytes,
		DataSubjectsIndexed: t.subjects.Indexes(),
		OneHotLookup:        t.subjects.Subjects(),
	})
	if err != nil {
		return nil, fmt.Errorf("encoding record: %w", err)
	}

	var out bytes.Buffer
	out.WriteString(MagicBytes)
	if err := binary.Write(&out, binary.LittleEndian, uint32(FormatVersion)); err != nil {
		return nil, err
	}
	out.Write(body)
	return out.Bytes(), nil
}

// decodeConfig holds decoding options.
type decodeConfig struct {
	maxBytes int // 0 means unlimited
}

// DecodeOption configures Deserialize.
type DecodeOption func(*decodeConfig)

// WithDecodeLimit caps the accepted record size in bytes. The default is
// unlimited: the whole stream is treated as one (possibly very large)
// message, and any cap is an operator-supplied policy rather than an
// invariant of this layer.
func WithDecodeLimit(maxBytes int) DecodeOption {
	return func(c *decodeConfig) { c.maxBytes = maxBytes }
}

// Deserialize reconstructs a PrivateTensor from its binary record,
// rebuilding the provenance set from the lookup and index array and
// re-wrapping the payload with the declared bound envelopes.
func Deserialize(buf []byte, opts ...DecodeOption) (*PrivateTensor, error) {
	var cfg decodeConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.maxBytes > 0 && len(buf) > cfg.maxBytes {
		return nil, fmt.Errorf("record is %d bytes, limit is %d: %w", len(buf), cfg.maxBytes, ErrRecordTooLarge)
	}

	headerLen := len(MagicBytes) + 4
	if len(buf) < headerLen {
		return nil, ErrInvalidMagic
	}
	if string(buf[:len(MagicBytes)]) != MagicBytes {
		return nil, ErrInvalidMagic
	}
	version := binary.LittleEndian.Uint32(buf[len(MagicBytes):headerLen])
	if version != FormatVersion {
		return nil, fmt.Errorf("version %d: %w", version, ErrUnsupportedVersion)
	}

	var rec tensorRecord
	if err := msgpack.Unmarshal(buf[headerLen:], &rec); err != nil {
		return nil, fmt.Errorf("decoding record: %w", err)
	}

	var child payloadRecord
	if err := msgpack.Unmarshal(combineBytes(rec.Child), &child); err != nil {
		return nil, fmt.Errorf("decoding payload: %w", err)
	}
	dtype, ok := tensor.ParseDataType(child.DType)
	if !ok {
		return nil, fmt.Errorf("decoding payload: unknown dtype %q", child.DType)
	}
	payload, err := fixed.FromScaled(child.Scaled, tensor.Shape(child.Shape), dtype, uint(child.FracBits))
	if err != nil {
		return nil, fmt.Errorf("decoding payload: %w", err)
	}

	minVals, err := unmarshalEnvelope(rec.MinVals)
	if err != nil {
		return nil, err
	}
	maxVals, err := unmarshalEnvelope(rec.MaxVals)
	if err != nil {
		return nil, err
	}

	subjects, err := provenance.FromParts(rec.OneHotLookup, rec.DataSubjectsIndexed)
	if err != nil {
		return nil, fmt.Errorf("decoding provenance: %w", err)
	}

	return New(payload, subjects, minVals, maxVals)
}
