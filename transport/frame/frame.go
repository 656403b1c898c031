// Package frame is the reference Transport for a raw TCP connection,
// adapting the teacher's protocol (length-prefixed frame header) and codec
// (JSON / gob) packages to carry opaque envelope bytes instead of
// message.RPCMessage.
//
// Transport.Send/OnMessage deal in already-serialized bytes — whatever the
// runtime's configured codec produced for one envelope.Envelope — and frame
// never inspects them; it only wraps them in a protocol.Header so the
// receiving end can find the frame boundary on the stream. The codecType
// recorded in that header is diagnostic metadata for the wire, not something
// frame itself decodes.
package frame

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"kataribe/codec"
	"kataribe/protocol"
)

// Transport carries envelope bytes over a net.Conn (typically a *net.TCPConn),
// framing each Send with the protocol header and running a single read loop
// that delivers frames to OnMessage handlers in arrival order.
type Transport struct {
	conn      net.Conn
	r         *bufio.Reader
	codecType byte

	seq uint32 // atomic, stamped into each outbound frame for diagnostics

	writeMu sync.Mutex

	mu       sync.Mutex
	handlers []func([]byte)
	closed   bool
}

// New wraps conn as a Transport. codecType must match protocol.CodecTypeJSON
// or protocol.CodecTypeBinary and should agree with whatever codec.Codec the
// runtime on both ends uses to serialize envelopes — frame does not itself
// call Encode/Decode from package codec, it only stamps and reads this tag.
func New(conn net.Conn, codecType byte) *Transport {
	t := &Transport{
		conn:      conn,
		r:         bufio.NewReader(conn),
		codecType: codecType,
	}
	go t.readLoop()
	return t
}

// Dial opens a TCP connection to addr and wraps it as a Transport using
// codec c's type tag.
func Dial(ctx context.Context, addr string, c codec.Codec) (*Transport, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("frame: dial %s: %w", addr, err)
	}
	return New(conn, byte(c.Type())), nil
}

// Send frames data with a protocol header and writes it to the connection.
// writeMu serializes concurrent Send calls so frames from different sends
// never interleave on the stream.
func (t *Transport) Send(ctx context.Context, data []byte) error {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return fmt.Errorf("frame: send on closed transport")
	}

	header := &protocol.Header{
		CodecType: t.codecType,
		MsgType:   protocol.MsgTypeEnvelope,
		Seq:       atomic.AddUint32(&t.seq, 1),
		BodyLen:   uint32(len(data)),
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return protocol.Encode(t.conn, header, data)
}

// readLoop decodes frames one at a time and dispatches each body to the
// registered handlers before reading the next, guaranteeing in-order,
// single-goroutine delivery to the runtime's dispatcher.
func (t *Transport) readLoop() {
	for {
		_, body, err := protocol.Decode(t.r)
		if err != nil {
			t.Close(1006, err.Error())
			return
		}

		t.mu.Lock()
		handlers := make([]func([]byte), 0, len(t.handlers))
		for _, h := range t.handlers {
			if h != nil {
				handlers = append(handlers, h)
			}
		}
		t.mu.Unlock()

		for _, h := range handlers {
			h(body)
		}
	}
}

// OnMessage registers handler and returns a disposer that removes it.
func (t *Transport) OnMessage(handler func(data []byte)) (dispose func()) {
	t.mu.Lock()
	idx := len(t.handlers)
	t.handlers = append(t.handlers, handler)
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			if idx < len(t.handlers) {
				t.handlers[idx] = nil
			}
		})
	}
}

// Close marks the transport closed and closes the underlying connection.
// code and reason have no counterpart in a raw TCP stream and are accepted
// only to satisfy the Transport interface.
func (t *Transport) Close(code int, reason string) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()
	return t.conn.Close()
}

// IsOpen reports whether Send is still accepted.
func (t *Transport) IsOpen() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.closed
}
