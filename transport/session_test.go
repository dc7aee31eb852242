package transport

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// framedConn wraps one end of a net.Pipe with a 4-byte length-prefixed binary
// framing, standing in for the websocket message boundary gorilla/websocket
// gives transport.Conn for free, so Sender/Receiver can be driven over a real
// net.Conn instead of an in-memory fake.
type framedConn struct {
	conn net.Conn
}

func (f *framedConn) WriteBinary(data []byte) error {
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(data)))
	if _, err := f.conn.Write(header[:]); err != nil {
		return err
	}
	_, err := f.conn.Write(data)
	return err
}

func (f *framedConn) ReadBinary() ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(f.conn, header[:]); err != nil {
		return nil, err
	}
	size := binary.BigEndian.Uint32(header[:])
	data := make([]byte, size)
	if _, err := io.ReadFull(f.conn, data); err != nil {
		return nil, err
	}
	return data, nil
}

// TestSenderReceiver_ChunkedRoundTrip drives a real Sender writing a chunked
// BifrostMessage over one end of a net.Pipe and a Receiver reassembling it
// off the other end, the way a Session's read loop does in production.
func TestSenderReceiver_ChunkedRoundTrip(t *testing.T) {
	clientRaw, serverRaw := net.Pipe()
	defer clientRaw.Close()
	defer serverRaw.Close()

	client := &framedConn{conn: clientRaw}
	server := &framedConn{conn: serverRaw}

	original := &BifrostMessage{
		RequestID: 99,
		Type:      TypeResult,
		Payload:   make([]byte, 300_000),
	}
	for i := range original.Payload {
		original.Payload[i] = byte(i)
	}

	type outcome struct {
		msg *BifrostMessage
		err error
	}
	resultCh := make(chan outcome, 1)

	go func() {
		receiver := NewReceiver()
		for {
			data, err := server.ReadBinary()
			if err != nil {
				resultCh <- outcome{nil, err}
				return
			}
			msg, err := Decode(data)
			if err != nil {
				resultCh <- outcome{nil, err}
				return
			}
			res, err := receiver.Handle(msg)
			if err != nil {
				resultCh <- outcome{nil, err}
				return
			}
			if res.Complete != nil {
				resultCh <- outcome{res.Complete, nil}
				return
			}
		}
	}()

	sender := NewSender(client, original.RequestID, DefaultWindow)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, sender.Send(ctx, original))

	select {
	case res := <-resultCh:
		require.NoError(t, res.err)
		assert.Equal(t, original.RequestID, res.msg.RequestID)
		assert.Equal(t, original.Payload, res.msg.Payload)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reassembled message")
	}
}

// TestSenderReceiver_WholeMessageBypassesChunking confirms a small message
// passes through as a single frame, with the Receiver handing it back as
// Complete without ever touching its chunk-reassembly path.
func TestSenderReceiver_WholeMessageBypassesChunking(t *testing.T) {
	clientRaw, serverRaw := net.Pipe()
	defer clientRaw.Close()
	defer serverRaw.Close()

	client := &framedConn{conn: clientRaw}
	server := &framedConn{conn: serverRaw}

	original := &BifrostMessage{RequestID: 1, Type: TypeQuery, Query: "{ users { id } }"}

	done := make(chan *BifrostMessage, 1)
	go func() {
		data, err := server.ReadBinary()
		require.NoError(t, err)
		msg, err := Decode(data)
		require.NoError(t, err)
		receiver := NewReceiver()
		res, err := receiver.Handle(msg)
		require.NoError(t, err)
		done <- res.Complete
	}()

	sender := NewSender(client, original.RequestID, DefaultWindow)
	require.NoError(t, sender.Send(context.Background(), original))

	select {
	case got := <-done:
		assert.Equal(t, original.Query, got.Query)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for whole-message frame")
	}
}
