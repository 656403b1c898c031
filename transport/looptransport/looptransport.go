// Package looptransport provides an in-process pair of connected
// transports, used by the runtime's own tests and by the end-to-end
// scenarios in package test (spec §8) so they can exercise a real
// client/server pair without depending on socket availability.
//
// Grounded on mini-rpc's test/integration_test.go, which wires a real
// client against a real server over net.Dial; here the same
// client-against-server shape is kept, but the wire is an in-memory
// channel instead of a socket.
package looptransport

import (
	"context"
	"fmt"
	"sync"
)

// inboxSize bounds how many inbound frames a Transport will buffer ahead of
// its own dispatch loop before Send starts blocking the sender.
const inboxSize = 64

// Transport is one end of an in-process pair created by NewPair. Each
// Transport owns an inbox drained by a single dedicated goroutine, so
// inbound delivery never runs in the sender's goroutine and Send returns as
// soon as the frame is queued — an outbound call on one side never blocks
// on the other side's handler execution (spec §5).
type Transport struct {
	mu       sync.Mutex
	peer     *Transport
	handlers []func([]byte)
	closed   bool

	inbox    chan []byte
	done     chan struct{}
	stopOnce sync.Once
}

// NewPair returns two Transports wired to each other: data sent on a
// arrives at b's handlers (and vice versa) via b's own dispatch goroutine,
// not a's.
func NewPair() (a, b *Transport) {
	a = newTransport()
	b = newTransport()
	a.peer = b
	b.peer = a
	go a.dispatchLoop()
	go b.dispatchLoop()
	return a, b
}

func newTransport() *Transport {
	return &Transport{
		inbox: make(chan []byte, inboxSize),
		done:  make(chan struct{}),
	}
}

// Send queues data on the peer's inbox and returns immediately; the peer's
// dispatch goroutine delivers it to registered handlers in the order it was
// queued, independent of whatever the caller of Send does next.
func (t *Transport) Send(ctx context.Context, data []byte) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return fmt.Errorf("looptransport: send on closed transport")
	}
	peer := t.peer
	t.mu.Unlock()

	select {
	case <-peer.done:
		return fmt.Errorf("looptransport: send on closed transport")
	default:
	}

	select {
	case peer.inbox <- data:
		return nil
	case <-peer.done:
		return fmt.Errorf("looptransport: send on closed transport")
	}
}

// dispatchLoop is the single reader of t.inbox: it delivers frames to t's
// registered handlers strictly in arrival order, one fully at a time, until
// t is closed. Running as its own goroutine is what decouples a peer's
// Send from this side's handler execution.
func (t *Transport) dispatchLoop() {
	for {
		select {
		case data := <-t.inbox:
			t.deliver(data)
		case <-t.done:
			return
		}
	}
}

func (t *Transport) deliver(data []byte) {
	t.mu.Lock()
	handlers := make([]func([]byte), 0, len(t.handlers))
	for _, h := range t.handlers {
		if h != nil {
			handlers = append(handlers, h)
		}
	}
	t.mu.Unlock()

	for _, h := range handlers {
		h(data)
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

// Close marks the transport as closed, further Send calls fail, and its
// dispatch goroutine stops. The peer is left open — closing one end of the
// pair does not implicitly close the other, matching how a real socket
// close is observed asynchronously by the far side rather than
// synchronously torn down.
func (t *Transport) Close(code int, reason string) error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	t.stopOnce.Do(func() { close(t.done) })
	return nil
}

// IsOpen reports whether Send is still accepted.
func (t *Transport) IsOpen() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.closed
}
