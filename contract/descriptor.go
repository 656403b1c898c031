package contract

import "encoding/json"

// RPCDescriptor is one entry in a contract's RPCToServer or RPCToClient
// map: the validators for a single endpoint's request and response.
type RPCDescriptor struct {
	Kind             Kind
	validateRequest  rawValidator
	validateResponse rawValidator
}

// ValidateRequest runs the descriptor's request validation (sender- or
// receiver-side — the descriptor itself doesn't distinguish; the runtime
// calls it from both places per spec §4.2).
func (d RPCDescriptor) ValidateRequest(raw json.RawMessage) (json.RawMessage, error) {
	return d.validateRequest(raw)
}

// ValidateResponse runs the descriptor's response validation.
func (d RPCDescriptor) ValidateResponse(raw json.RawMessage) (json.RawMessage, error) {
	return d.validateResponse(raw)
}

// RPCOptions configures the validators attached to an RPC descriptor. Any
// combination (including none) is valid; absent validators pass payloads
// through unchanged.
type RPCOptions[Req, Res any] struct {
	RequestFunc    FuncValidator[Req]
	RequestSchema  SchemaValidator
	ResponseFunc   FuncValidator[Res]
	ResponseSchema SchemaValidator
}

// RPC declares an RPC endpoint with phantom request/response types Req and
// Res, carried only through the generic instantiation — the returned
// RPCDescriptor itself is type-erased so heterogeneous endpoints can share
// one map (spec §9's dispatch-map approach).
func RPC[Req, Res any](opts RPCOptions[Req, Res]) RPCDescriptor {
	return RPCDescriptor{
		Kind:             KindRPC,
		validateRequest:  compile(opts.RequestFunc, opts.RequestSchema),
		validateResponse: compile(opts.ResponseFunc, opts.ResponseSchema),
	}
}

// EventDescriptor is one entry in a contract's Events map: the payload
// validator for a single event channel.
type EventDescriptor struct {
	Kind            Kind
	validatePayload rawValidator
}

// ValidatePayload runs the descriptor's payload validation, applied on
// both emit and receive per spec §4.2.
func (d EventDescriptor) ValidatePayload(raw json.RawMessage) (json.RawMessage, error) {
	return d.validatePayload(raw)
}

// EventOptions configures the validator attached to an event descriptor.
type EventOptions[T any] struct {
	Func   FuncValidator[T]
	Schema SchemaValidator
}

// Event declares an event channel with a phantom payload type T.
func Event[T any](opts EventOptions[T]) EventDescriptor {
	return EventDescriptor{
		Kind:            KindEvent,
		validatePayload: compile(opts.Func, opts.Schema),
	}
}
