package transport

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/eddieafk/bifrostql/errs"
	"github.com/eddieafk/bifrostql/logging"
)

var senderLog = logging.For("transport-sender")

// SenderState is the sender-side chunk transfer state machine:
// Idle -> Splitting -> Windowed -> Draining -> Completed | Aborted.
type SenderState int

const (
	StateIdle SenderState = iota
	StateSplitting
	StateWindowed
	StateDraining
	StateCompleted
	StateAborted
)

// RetransmitTTL bounds how long an unacknowledged chunk is kept buffered
// before the sender gives up on it.
const RetransmitTTL = 60 * time.Second

// frameWriter is the minimal byte-oriented send primitive the Sender needs;
// *Conn (whose WriteBinary wraps websocket.Conn.WriteMessage) satisfies it.
type frameWriter interface {
	WriteBinary(data []byte) error
}

// pending is one chunk buffered for retransmission until it is ACKed or its
// TTL expires.
type pending struct {
	msg       *BifrostMessage
	expiresAt time.Time
}

// Sender drives one outbound chunked transfer for a single requestId. A new
// Sender is created per Query/Result message that requires chunking; it is
// discarded once the transfer reaches Completed or Aborted.
type Sender struct {
	conn      frameWriter
	requestID uint32
	window    int
	threshold int
	limiter   *rate.Limiter

	mu      sync.Mutex
	state   SenderState
	chunks  []*BifrostMessage
	buffer  map[uint32]*pending
	nextSeq int
	acked   int
}

// NewSender builds a Sender writing to conn, pacing chunks through a rate
// limiter of window chunks per second with a burst of window (DefaultWindow
// if window <= 0). The Sender does not wait for a ChunkAck before sending
// further chunks.
func NewSender(conn frameWriter, requestID uint32, window int) *Sender {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Sender{
		conn:      conn,
		requestID: requestID,
		window:    window,
		threshold: ChunkThreshold,
		limiter:   rate.NewLimiter(rate.Limit(window), window),
		state:     StateIdle,
		buffer:    make(map[uint32]*pending),
	}
}

// Send transmits msg, transparently chunking it first if it exceeds the
// sender's threshold. Non-Query/Result messages (acks, errors, control
// frames) are always sent whole.
func (s *Sender) Send(ctx context.Context, msg *BifrostMessage) error {
	needsChunking, serialized, err := requiresChunking(msg, s.threshold)
	if err != nil {
		return errs.Internal(err, "transport: encode message")
	}
	if !needsChunking {
		return s.sendWhole(msg)
	}
	return s.sendChunked(ctx, serialized)
}

func (s *Sender) sendWhole(msg *BifrostMessage) error {
	data, err := Encode(msg)
	if err != nil {
		return errs.Internal(err, "transport: encode message")
	}
	return s.conn.WriteBinary(data)
}

func (s *Sender) sendChunked(ctx context.Context, serialized []byte) error {
	s.mu.Lock()
	s.state = StateSplitting
	s.chunks = split(s.requestID, serialized, s.threshold)
	s.state = StateWindowed
	s.mu.Unlock()

	for {
		s.mu.Lock()
		if s.nextSeq >= len(s.chunks) {
			s.mu.Unlock()
			break
		}
		chunk := s.chunks[s.nextSeq]
		s.mu.Unlock()

		if err := s.limiter.Wait(ctx); err != nil {
			s.abort()
			return errs.Internal(err, "transport: window admission wait")
		}

		if err := s.transmit(chunk); err != nil {
			s.abort()
			return err
		}

		s.mu.Lock()
		s.nextSeq++
		s.mu.Unlock()
	}

	s.mu.Lock()
	s.state = StateDraining
	s.mu.Unlock()
	return nil
}

func (s *Sender) transmit(chunk *BifrostMessage) error {
	data, err := Encode(chunk)
	if err != nil {
		return errs.Internal(err, "transport: encode chunk")
	}
	s.mu.Lock()
	s.buffer[chunk.ChunkSequence] = &pending{msg: chunk, expiresAt: time.Now().Add(RetransmitTTL)}
	s.mu.Unlock()
	return s.conn.WriteBinary(data)
}

// HandleAck processes a ChunkAck for sequence seq, releasing its retransmit
// buffer entry. Once every chunk has been acked the Sender transitions to
// Completed.
func (s *Sender) HandleAck(seq uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.buffer[seq]; ok {
		delete(s.buffer, seq)
		s.acked++
	}
	if s.state == StateDraining && s.acked >= len(s.chunks) {
		s.state = StateCompleted
	}
}

// HandleNack retransmits the buffered chunk for seq, if still held (a
// corrupted-in-transit chunk the receiver's CRC check rejected).
func (s *Sender) HandleNack(seq uint32) error {
	s.mu.Lock()
	p, ok := s.buffer[seq]
	s.mu.Unlock()
	if !ok {
		return errs.New(errs.CodeResumeExpired, "transport: nack for expired or unknown chunk")
	}
	return s.transmit(p.msg)
}

// HandleResume retransmits every chunk after lastSequence the receiver
// already acknowledges having, used to recover a connection that dropped
// mid-transfer.
func (s *Sender) HandleResume(lastSequence uint32) error {
	s.mu.Lock()
	chunks := s.chunks
	s.mu.Unlock()
	for _, c := range chunks {
		if c.ChunkSequence <= lastSequence {
			continue
		}
		if err := s.transmit(c); err != nil {
			return err
		}
	}
	return nil
}

// ExpireStale releases buffered chunks whose TTL has passed, aborting the
// transfer if any chunk was lost. Call periodically from the owning
// connection's read loop.
func (s *Sender) ExpireStale() {
	s.mu.Lock()
	now := time.Now()
	expired := false
	for seq, p := range s.buffer {
		if now.After(p.expiresAt) {
			delete(s.buffer, seq)
			expired = true
		}
	}
	s.mu.Unlock()
	if expired {
		s.abort()
	}
}

func (s *Sender) abort() {
	s.mu.Lock()
	s.state = StateAborted
	s.mu.Unlock()
	senderLog.WithField("requestId", s.requestID).Warn("chunk transfer aborted")
}

// State returns the sender's current state.
func (s *Sender) State() SenderState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
