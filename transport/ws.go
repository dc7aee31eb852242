package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/eddieafk/bifrostql/errs"
	"github.com/eddieafk/bifrostql/graph"
	"github.com/eddieafk/bifrostql/handler"
)

// Conn wraps a *websocket.Conn so it satisfies handler.WebsocketConn (plain
// JSON frames, for clients that never trigger chunking) while also exposing
// the raw binary read/write methods the chunked envelope needs. A single
// underlying socket carries both: small queries/results go through as one
// JSON or msgpack frame, oversized ones get split by Sender/Receiver.
type Conn struct {
	ws *websocket.Conn
}

// NewConn wraps an established gorilla websocket connection.
func NewConn(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws}
}

func (c *Conn) ReadJSON(v interface{}) error  { return c.ws.ReadJSON(v) }
func (c *Conn) WriteJSON(v interface{}) error { return c.ws.WriteJSON(v) }
func (c *Conn) Close() error                  { return c.ws.Close() }
func (c *Conn) SetReadLimit(limit int64)      { c.ws.SetReadLimit(limit) }
func (c *Conn) SetReadDeadline(t time.Time) error  { return c.ws.SetReadDeadline(t) }
func (c *Conn) SetWriteDeadline(t time.Time) error { return c.ws.SetWriteDeadline(t) }

// WriteBinary sends one binary WebSocket frame, satisfying frameWriter for
// Sender.
func (c *Conn) WriteBinary(data []byte) error {
	return c.ws.WriteMessage(websocket.BinaryMessage, data)
}

// ReadBinary blocks for the next binary frame and returns its payload.
// Non-binary frames (a stray text ping, etc.) are rejected rather than
// silently accepted as envelope bytes.
func (c *Conn) ReadBinary() ([]byte, error) {
	mt, data, err := c.ws.ReadMessage()
	if err != nil {
		return nil, err
	}
	if mt != websocket.BinaryMessage {
		return nil, errs.ValidationError("transport: expected binary frame")
	}
	return data, nil
}

// Upgrader adapts gorilla/websocket.Upgrader to handler.WebsocketUpgrader.
type Upgrader struct {
	inner websocket.Upgrader
}

// NewUpgrader builds an Upgrader permitting cross-origin requests up to
// readBufferSize/writeBufferSize bytes (gorilla defaults used if either is
// zero).
func NewUpgrader(readBufferSize, writeBufferSize int) *Upgrader {
	return &Upgrader{inner: websocket.Upgrader{
		ReadBufferSize:  readBufferSize,
		WriteBufferSize: writeBufferSize,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}}
}

// Upgrade satisfies handler.WebsocketUpgrader.
func (u *Upgrader) Upgrade(w http.ResponseWriter, r *http.Request, responseHeader http.Header) (handler.WebsocketConn, error) {
	ws, err := u.inner.Upgrade(w, r, responseHeader)
	if err != nil {
		return nil, err
	}
	return NewConn(ws), nil
}

// chunkedConn is the binary read/write surface Session needs; *Conn
// satisfies it, as does any handler.ChunkedConn the caller hands in.
type chunkedConn interface {
	ReadBinary() ([]byte, error)
	WriteBinary(data []byte) error
}

// Session drives one upgraded connection's request/response lifecycle:
// decode an incoming (possibly chunked) Query envelope, execute it against
// the schema, and send back a (possibly chunked) Result envelope.
type Session struct {
	conn     chunkedConn
	schema   *graph.ExecutableSchema
	receiver *Receiver
	window   int
}

// NewSession builds a Session executing queries against schema over conn.
func NewSession(conn chunkedConn, schema *graph.ExecutableSchema, window int) *Session {
	return &Session{conn: conn, schema: schema, receiver: NewReceiver(), window: window}
}

// SessionFactory adapts NewSession to handler.WebsocketSessionFactory: the
// glue code at server setup passes this to Server.SetWebsocketSessionFactory
// so ServeWebsocket can drive chunked WebSocket sessions without the handler
// package importing transport.
func SessionFactory(window int) handler.WebsocketSessionFactory {
	return func(conn handler.ChunkedConn, schema *graph.ExecutableSchema) handler.WebsocketSession {
		return NewSession(conn, schema, window)
	}
}

// Serve blocks, handling frames from the connection until it closes or ctx
// is cancelled. Each fully reassembled Query produces one Execute call and
// one (possibly chunked) Result or Error frame written back.
func (s *Session) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		data, err := s.conn.ReadBinary()
		if err != nil {
			return err
		}
		msg, err := Decode(data)
		if err != nil {
			return errs.Internal(err, "transport: decode incoming frame")
		}

		if err := s.handleFrame(ctx, msg); err != nil {
			return err
		}
	}
}

func (s *Session) handleFrame(ctx context.Context, msg *BifrostMessage) error {
	switch msg.Type {
	case TypeChunkAck, TypeChunkNack, TypeResume:
		// Control frames for a Sender this Session owns are routed by the
		// caller that holds the matching Sender; Session itself only drives
		// the receive side of a request.
		return nil
	}

	result, err := s.receiver.Handle(msg)
	if err != nil {
		if coded, ok := errs.As(err); ok {
			return s.sendError(msg.RequestID, coded)
		}
		return err
	}
	if result.Ack != nil {
		if err := s.conn.WriteBinary(mustEncode(result.Ack)); err != nil {
			return err
		}
	}
	if result.Nack != nil {
		return s.conn.WriteBinary(mustEncode(result.Nack))
	}
	if result.Complete == nil {
		return nil
	}
	return s.executeAndRespond(ctx, result.Complete)
}

func (s *Session) executeAndRespond(ctx context.Context, query *BifrostMessage) error {
	if query.Type != TypeQuery {
		return nil
	}

	var variables map[string]interface{}
	if query.VariablesJSON != "" {
		if err := json.Unmarshal([]byte(query.VariablesJSON), &variables); err != nil {
			return s.sendError(query.RequestID, errs.ValidationError("invalid variables JSON"))
		}
	}

	resp := s.schema.Execute(ctx, graph.ExecuteParams{
		Query:     query.Query,
		Variables: variables,
		Context:   ctx,
	})

	payload, err := json.Marshal(resp)
	if err != nil {
		return s.sendError(query.RequestID, errs.Internal(err, "transport: marshal response"))
	}

	result := &BifrostMessage{RequestID: query.RequestID, Type: TypeResult, Payload: payload}
	sender := NewSender(s.conn, query.RequestID, s.window)
	return sender.Send(ctx, result)
}

func (s *Session) sendError(requestID uint32, cause *errs.Error) error {
	payload, _ := json.Marshal(errs.ToGraphError(cause, nil))
	return s.conn.WriteBinary(mustEncode(&BifrostMessage{
		RequestID: requestID,
		Type:      TypeError,
		Payload:   payload,
	}))
}

func mustEncode(msg *BifrostMessage) []byte {
	data, err := Encode(msg)
	if err != nil {
		// msgpack-encoding a control frame of plain scalar fields cannot fail.
		panic(err)
	}
	return data
}
