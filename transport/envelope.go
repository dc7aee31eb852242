// Package transport implements the chunked WebSocket envelope: splitting an
// oversized BifrostMessage into windowed, retransmittable chunks on the
// sender side and reassembling them on the receiver side. There is no
// teacher analogue — handler/server.go only declares the WebsocketConn/
// WebsocketUpgrader interface boundary, with no concrete transport behind
// it — so this package is built from spec directly, in the teacher's
// general small-struct-plus-method style.
package transport

import (
	"fmt"
	"hash/crc32"

	"github.com/eddieafk/bifrostql/errs"
	"github.com/vmihailenco/msgpack/v5"
)

// MessageType tags a BifrostMessage's role on the wire.
type MessageType uint8

const (
	TypeQuery     MessageType = 1
	TypeResult    MessageType = 2
	TypeError     MessageType = 3
	TypeChunk     MessageType = 4
	TypeChunkAck  MessageType = 5
	TypeResume    MessageType = 6
	TypeResumeAck MessageType = 7
	TypeChunkNack MessageType = 8
)

// ChunkThreshold is the default serialized-size threshold, in bytes, above
// which a Query/Result message is split into chunks.
const ChunkThreshold = 65536

// DefaultWindow is the sender's default rate-limiter burst and rate, in
// chunks (per second for the rate); the sender does not block on ACKs.
const DefaultWindow = 8

// BifrostMessage is the envelope carried over the WebSocket connection,
// msgpack-encoded. Chunk-related fields default to zero for legacy
// (pre-chunking) frames.
type BifrostMessage struct {
	RequestID     uint32      `msgpack:"requestId"`
	Type          MessageType `msgpack:"type"`
	Payload       []byte      `msgpack:"payload,omitempty"`
	Query         string      `msgpack:"query,omitempty"`
	VariablesJSON string      `msgpack:"variablesJson,omitempty"`
	ChunkSequence uint32      `msgpack:"chunkSequence,omitempty"`
	ChunkTotal    uint32      `msgpack:"chunkTotal,omitempty"`
	ChunkOffset   uint64      `msgpack:"chunkOffset,omitempty"`
	TotalBytes    uint64      `msgpack:"totalBytes,omitempty"`
	ChunkChecksum uint32      `msgpack:"chunkChecksum,omitempty"`
	LastSequence  uint32      `msgpack:"lastSequence,omitempty"`
}

// Encode serializes a BifrostMessage with msgpack.
func Encode(msg *BifrostMessage) ([]byte, error) {
	return msgpack.Marshal(msg)
}

// Decode deserializes a BifrostMessage.
func Decode(data []byte) (*BifrostMessage, error) {
	var msg BifrostMessage
	if err := msgpack.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func crc32Of(payload []byte) uint32 {
	return crc32.ChecksumIEEE(payload)
}

// requiresChunking reports whether msg, once serialized, must be split.
func requiresChunking(msg *BifrostMessage, threshold int) (bool, []byte, error) {
	if msg.Type != TypeQuery && msg.Type != TypeResult {
		return false, nil, nil
	}
	data, err := Encode(msg)
	if err != nil {
		return false, nil, err
	}
	return len(data) > threshold, data, nil
}

// split breaks serialized into contiguous chunks of at most chunkSize bytes,
// each carrying its own CRC32 over the chunk's payload slice.
func split(requestID uint32, serialized []byte, chunkSize int) []*BifrostMessage {
	if chunkSize <= 0 {
		chunkSize = ChunkThreshold
	}
	total := uint64(len(serialized))
	chunkCount := (len(serialized) + chunkSize - 1) / chunkSize
	if chunkCount == 0 {
		chunkCount = 1
	}
	chunks := make([]*BifrostMessage, 0, chunkCount)
	offset := 0
	seq := uint32(0)
	for offset < len(serialized) || len(chunks) == 0 {
		end := offset + chunkSize
		if end > len(serialized) {
			end = len(serialized)
		}
		payload := serialized[offset:end]
		chunks = append(chunks, &BifrostMessage{
			RequestID:     requestID,
			Type:          TypeChunk,
			Payload:       payload,
			ChunkSequence: seq,
			ChunkTotal:    uint32(chunkCount),
			ChunkOffset:   uint64(offset),
			TotalBytes:    total,
			ChunkChecksum: crc32.ChecksumIEEE(payload),
		})
		offset = end
		seq++
		if offset >= len(serialized) {
			break
		}
	}
	return chunks
}

// reassemble concatenates chunks in sequence order and re-parses the result
// into the original BifrostMessage. Caller guarantees chunks cover every
// sequence 0..chunkTotal-1.
func reassemble(chunks map[uint32]*BifrostMessage, chunkTotal uint32) (*BifrostMessage, error) {
	buf := make([]byte, 0)
	for seq := uint32(0); seq < chunkTotal; seq++ {
		c, ok := chunks[seq]
		if !ok {
			return nil, errs.New(errs.CodeValidationError, fmt.Sprintf("transport: missing chunk sequence %d of %d", seq, chunkTotal))
		}
		buf = append(buf, c.Payload...)
	}
	return Decode(buf)
}
