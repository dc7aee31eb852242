package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	msg := &BifrostMessage{
		RequestID: 42,
		Type:      TypeQuery,
		Query:     "{ users { id } }",
	}
	data, err := Encode(msg)
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, msg.RequestID, decoded.RequestID)
	assert.Equal(t, msg.Type, decoded.Type)
	assert.Equal(t, msg.Query, decoded.Query)
}

func TestRequiresChunking_BelowThreshold(t *testing.T) {
	msg := &BifrostMessage{Type: TypeResult, Payload: []byte("small")}
	needs, _, err := requiresChunking(msg, ChunkThreshold)
	require.NoError(t, err)
	assert.False(t, needs)
}

func TestRequiresChunking_OnlyAppliesToQueryAndResult(t *testing.T) {
	msg := &BifrostMessage{Type: TypeChunkAck, Payload: make([]byte, ChunkThreshold+1)}
	needs, _, err := requiresChunking(msg, ChunkThreshold)
	require.NoError(t, err)
	assert.False(t, needs)
}

func TestSplitReassemble_RoundTrip(t *testing.T) {
	original := &BifrostMessage{
		RequestID: 7,
		Type:      TypeResult,
		Payload:   make([]byte, 200_000),
	}
	for i := range original.Payload {
		original.Payload[i] = byte(i % 256)
	}
	serialized, err := Encode(original)
	require.NoError(t, err)

	chunks := split(original.RequestID, serialized, 65536)
	require.Greater(t, len(chunks), 1)
	for i, c := range chunks {
		assert.Equal(t, uint32(i), c.ChunkSequence)
		assert.Equal(t, uint32(len(chunks)), c.ChunkTotal)
		assert.Equal(t, crc32Of(c.Payload), c.ChunkChecksum)
	}

	byTotal := make(map[uint32]*BifrostMessage, len(chunks))
	for _, c := range chunks {
		byTotal[c.ChunkSequence] = c
	}
	reassembled, err := reassemble(byTotal, uint32(len(chunks)))
	require.NoError(t, err)
	assert.Equal(t, original.RequestID, reassembled.RequestID)
	assert.Equal(t, original.Payload, reassembled.Payload)
}

func TestReassemble_MissingChunk_Errors(t *testing.T) {
	_, err := reassemble(map[uint32]*BifrostMessage{0: {Payload: []byte("a")}}, 2)
	assert.Error(t, err)
}
