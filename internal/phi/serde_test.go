package phi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veil-ml/veil/internal/tensor"
)

func TestSerializeRoundTrip(t *testing.T) {
	original, err := FromRows([]*PrivateTensor{
		private(t, []float64{1.5, 2.25}, "alice", 0, 10),
		private(t, []float64{-3, 4}, "bob", -5, 5),
	})
	require.NoError(t, err)

	buf, err := Serialize(original)
	require.NoError(t, err)
	assert.Equal(t, MagicBytes, string(buf[:len(MagicBytes)]))

	got, err := Deserialize(buf)
	require.NoError(t, err)

	assert.Equal(t, original.Shape(), got.Shape())
	assert.Equal(t, original.DType(), got.DType())
	assert.Equal(t, original.Payload().Scaled(), got.Payload().Scaled())
	assert.Equal(t, original.DataSubjects().Subjects(), got.DataSubjects().Subjects())
	assert.Equal(t, original.DataSubjects().Indexes(), got.DataSubjects().Indexes())
	assert.Equal(t, materialized(t, original.MinVals()), materialized(t, got.MinVals()))
	assert.Equal(t, materialized(t, original.MaxVals()), materialized(t, got.MaxVals()))
}

func TestSerializePreservesLazyBounds(t *testing.T) {
	original := private(t, []float64{1, 2, 3}, "alice", 0, 10)
	require.True(t, original.MinVals().IsLazy())

	buf, err := Serialize(original)
	require.NoError(t, err)
	got, err := Deserialize(buf)
	require.NoError(t, err)

	assert.True(t, got.MinVals().IsLazy(), "scalar bound data must survive the round trip unexpanded")
	assert.Equal(t, original.MinVals().Shape(), got.MinVals().Shape())
}

func TestDeserializeRejectsBadMagic(t *testing.T) {
	original := private(t, []float64{1}, "alice", 0, 1)
	buf, err := Serialize(original)
	require.NoError(t, err)

	buf[0] = 'X'
	_, err = Deserialize(buf)
	require.ErrorIs(t, err, ErrInvalidMagic)

	_, err = Deserialize([]byte{1, 2})
	require.ErrorIs(t, err, ErrInvalidMagic)
}

func TestDeserializeRejectsUnknownVersion(t *testing.T) {
	original := private(t, []float64{1}, "alice", 0, 1)
	buf, err := Serialize(original)
	require.NoError(t, err)

	buf[len(MagicBytes)] = 99
	_, err = Deserialize(buf)
	require.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestDecodeLimitIsOptIn(t *testing.T) {
	original, err := FromSlice(make([]float64, 256), tensor.Shape{256}, "alice", 0, 1)
	require.NoError(t, err)
	buf, err := Serialize(original)
	require.NoError(t, err)

	// unlimited by default
	_, err = Deserialize(buf)
	require.NoError(t, err)

	_, err = Deserialize(buf, WithDecodeLimit(16))
	require.ErrorIs(t, err, ErrRecordTooLarge)

	_, err = Deserialize(buf, WithDecodeLimit(len(buf)))
	require.NoError(t, err)
}

func TestChunkingSplitsAndReassembles(t *testing.T) {
	data := make([]byte, ChunkSize*2+100)
	for i := range data {
		data[i] = byte(i % 251)
	}
	chunks := chunkBytes(data)
	require.Len(t, chunks, 3)
	assert.Equal(t, ChunkSize, len(chunks[0]))
	assert.Equal(t, 100, len(chunks[2]))
	assert.Equal(t, data, combineBytes(chunks))
}
