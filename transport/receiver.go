package transport

import (
	"sync"

	"github.com/eddieafk/bifrostql/errs"
	"github.com/eddieafk/bifrostql/logging"
)

var receiverLog = logging.For("transport-receiver")

// inflight tracks one in-progress chunked message being reassembled.
type inflight struct {
	chunkTotal uint32
	totalBytes uint64
	chunks     map[uint32]*BifrostMessage
}

// Receiver reassembles chunked BifrostMessages arriving out of order (or
// with duplicates) on a single connection, keyed by requestId so multiple
// chunked transfers can be in flight concurrently.
type Receiver struct {
	mu       sync.Mutex
	inflight map[uint32]*inflight
}

// NewReceiver builds an empty Receiver.
func NewReceiver() *Receiver {
	return &Receiver{inflight: make(map[uint32]*inflight)}
}

// ReceiveResult is what handling one incoming frame produces: either a
// complete, reassembled message ready for the caller to act on, or a control
// frame (Ack/Nack) the caller must write back to the sender.
type ReceiveResult struct {
	Complete *BifrostMessage
	Ack      *BifrostMessage
	Nack     *BifrostMessage
}

// Handle processes one decoded incoming frame. Non-chunk frames
// (single-shot Query/Result, or control frames) pass through untouched as
// Complete. Chunk frames are CRC-validated, indexed, and either produce a
// ChunkAck (valid, reassembly still pending or just finished) or a
// ChunkNack (checksum mismatch).
func (r *Receiver) Handle(msg *BifrostMessage) (*ReceiveResult, error) {
	if msg.Type != TypeChunk {
		return &ReceiveResult{Complete: msg}, nil
	}

	if crc := crc32Of(msg.Payload); crc != msg.ChunkChecksum {
		receiverLog.WithField("requestId", msg.RequestID).WithField("sequence", msg.ChunkSequence).
			Warn("chunk checksum mismatch")
		return &ReceiveResult{Nack: &BifrostMessage{
			RequestID:     msg.RequestID,
			Type:          TypeChunkNack,
			ChunkSequence: msg.ChunkSequence,
		}}, nil
	}

	r.mu.Lock()
	f, ok := r.inflight[msg.RequestID]
	if !ok {
		if msg.ChunkTotal == 0 {
			r.mu.Unlock()
			return nil, errs.ValidationError("transport: chunk with zero chunkTotal")
		}
		f = &inflight{chunkTotal: msg.ChunkTotal, totalBytes: msg.TotalBytes, chunks: make(map[uint32]*BifrostMessage)}
		r.inflight[msg.RequestID] = f
	}

	// Duplicate sequence: idempotent, ack again without re-storing.
	if _, dup := f.chunks[msg.ChunkSequence]; dup {
		r.mu.Unlock()
		return &ReceiveResult{Ack: ackFor(msg)}, nil
	}

	if msg.ChunkSequence >= f.chunkTotal {
		r.mu.Unlock()
		return nil, errs.ValidationError("transport: chunk sequence out of range")
	}

	f.chunks[msg.ChunkSequence] = msg
	complete := len(f.chunks) == int(f.chunkTotal)
	if complete {
		delete(r.inflight, msg.RequestID)
	}
	r.mu.Unlock()

	ack := ackFor(msg)
	if !complete {
		return &ReceiveResult{Ack: ack}, nil
	}

	full, err := reassemble(f.chunks, f.chunkTotal)
	if err != nil {
		return nil, errs.Internal(err, "transport: reassemble chunked message")
	}
	return &ReceiveResult{Complete: full, Ack: ack}, nil
}

// LastSequence reports the highest contiguous chunk sequence received so far
// for requestId, used to answer a Resume request after a reconnect. Returns
// -1 if there is no in-progress transfer for requestId.
func (r *Receiver) LastSequence(requestID uint32) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.inflight[requestID]
	if !ok {
		return -1
	}
	last := -1
	for {
		if _, ok := f.chunks[uint32(last+1)]; !ok {
			break
		}
		last++
	}
	return last
}

func ackFor(msg *BifrostMessage) *BifrostMessage {
	return &BifrostMessage{
		RequestID:     msg.RequestID,
		Type:          TypeChunkAck,
		ChunkSequence: msg.ChunkSequence,
	}
}
