// Package transport defines the narrow interface the runtime consumes from
// any reliable, ordered, message-framed link — WebSocket, WebRTC
// DataChannel, WebTransport stream, or (transport/frame, below) a raw TCP
// connection. Per spec §1, concrete transports are external collaborators
// to the core, not part of it; this package exists only to name the
// contract; the two reference implementations shipped with the module live
// in its subpackages (transport/looptransport, transport/frame).
package transport

import "context"

// Transport is the inward interface the runtime requires (spec §6.1).
type Transport interface {
	// Send hands data — the canonical UTF-8 JSON encoding of one envelope
	// — to the underlying link. It may block (or respect ctx) for
	// transport-level back-pressure.
	Send(ctx context.Context, data []byte) error

	// OnMessage registers handler to be invoked once per received frame,
	// in receipt order. The returned dispose func removes the handler;
	// calling it more than once is safe and a no-op after the first call.
	OnMessage(handler func(data []byte)) (dispose func())

	// Close terminates the underlying link. code and reason are carried
	// through to transports that have a native close-frame concept (e.g.
	// WebSocket); transports without one may ignore them.
	Close(code int, reason string) error

	// IsOpen reports whether the link currently accepts sends.
	IsOpen() bool
}
