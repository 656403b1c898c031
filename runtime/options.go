// Package runtime is the dispatch state machine tying the envelope,
// contract, middleware, and pending-call table packages together into the
// two symmetric peer roles: Client and Server. It is the largest package in
// the module, grounded on mini-rpc's client.Client/server.Server pair, but
// dispatches on envelope.Kind against a contract.Contract rather than on a
// fixed request/response message shape.
package runtime

import (
	"encoding/json"
	"time"

	"kataribe/codec"
	"kataribe/envelope"
	"kataribe/idgen"
	"kataribe/logging"
	"kataribe/middleware"
)

// CommonOptions configures behavior shared by both Client and Server.
type CommonOptions struct {
	// Version is stamped into every outbound envelope's v field. Default 1.
	Version int

	// Timeout bounds how long an outbound RPC call waits for a response
	// before its pending entry is rejected with a timeout error. Zero
	// disables the timeout.
	Timeout time.Duration

	// GenerateID produces the correlation id for each outbound RPC call.
	// Default is a random UUIDv4 (package idgen).
	GenerateID idgen.Generator

	// Middlewares run, in order, over every envelope sent or received.
	Middlewares []middleware.Func

	// Features is the capability list advertised in this side's initial
	// hello envelope.
	Features []string

	// Codec serializes/deserializes envelopes for the transport. Default
	// is the canonical JSON encoding (package codec's JSONCodec).
	Codec codec.Codec

	// Logger receives diagnostic and error-path logging. Default is a
	// warn-level zap logger (package logging).
	Logger logging.Logger

	// OnUnknownEnvelope, if set, is called for an inbound envelope whose
	// kind is not one of rpc_req/rpc_res/rpc_err/event/hello.
	OnUnknownEnvelope func(*envelope.Envelope)

	// OnHello, if set, is called when a hello envelope is received, with
	// the peer's advertised feature list. No automatic negotiation is
	// performed — the hook is purely informational, per spec design note
	// on hello semantics.
	OnHello func(feat []string)
}

func (o CommonOptions) withDefaults() CommonOptions {
	if o.Version == 0 {
		o.Version = 1
	}
	if o.GenerateID == nil {
		o.GenerateID = idgen.NewUUIDGenerator()
	}
	if o.Codec == nil {
		o.Codec = &codec.JSONCodec{}
	}
	if o.Logger == nil {
		o.Logger = logging.NewZapLogger()
	}
	return o
}

// ClientOptions configures a Client.
type ClientOptions struct {
	CommonOptions

	// Handlers exposes this client's rpcToClient methods: the endpoints a
	// server may call back on this client. Keyed by method name.
	Handlers map[string]Handler
}

// ServerOptions configures a Server.
type ServerOptions struct {
	CommonOptions

	// Handlers exposes this server's rpcToServer methods: the endpoints a
	// client may call on this server. Keyed by method name, shared by every
	// Connection the server accepts.
	Handlers map[string]Handler

	// EventHandlers is the server's single mapping of event channel to
	// handler — one handler per channel, supplied once at construction, as
	// opposed to the client's dynamic Subscribe/dispose model (spec
	// §4.5.4).
	EventHandlers map[string]func(payload json.RawMessage)
}
