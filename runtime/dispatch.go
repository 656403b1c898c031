package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"kataribe/codec"
	"kataribe/contract"
	"kataribe/envelope"
	"kataribe/idgen"
	"kataribe/logging"
	"kataribe/middleware"
	"kataribe/pending"
	"kataribe/transport"
)

// sendEnvelope runs the outbound middleware chain over env, encodes it, and
// hands the bytes to t. Per spec §4.3 a middleware error fails the send
// entirely — nothing reaches the transport.
func sendEnvelope(ctx context.Context, t transport.Transport, c codec.Codec, mws []middleware.Func, env *envelope.Envelope) error {
	mc := &middleware.Ctx{Direction: middleware.Out, Envelope: env}
	if err := middleware.Run(ctx, mws, mc); err != nil {
		return fmt.Errorf("runtime: outbound middleware: %w", err)
	}

	data, err := c.Encode(mc.Envelope)
	if err != nil {
		return fmt.Errorf("runtime: encode envelope: %w", err)
	}
	if err := t.Send(ctx, data); err != nil {
		return fmt.Errorf("runtime: transport send: %w", err)
	}
	return nil
}

// callRPC implements the outbound RPC proxy operation of spec §4.5.2,
// shared by Client.Call (against rpcToServer) and Connection.CallClient
// (against rpcToClient): register a pending entry before the request ever
// reaches the wire, validate and send, then block for the eventual
// resolve/reject. Per spec's explicit non-goal, ctx is not used to cancel an
// in-flight call once sent — only the send itself (outbound middleware and
// transport.Send) observes it.
func callRPC(
	ctx context.Context,
	t transport.Transport,
	c codec.Codec,
	mws []middleware.Func,
	version int,
	p *pending.Table,
	generateID idgen.Generator,
	timeout time.Duration,
	descriptors map[string]contract.RPCDescriptor,
	method string,
	reqPayload json.RawMessage,
) (json.RawMessage, error) {
	desc, ok := descriptors[method]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotDeclared, method)
	}

	validatedReq, err := desc.ValidateRequest(reqPayload)
	if err != nil {
		return nil, fmt.Errorf("runtime: request validation: %w", err)
	}

	type result struct {
		payload json.RawMessage
		err     error
	}
	resultCh := make(chan result, 1)

	id := generateID()
	p.Register(id, method,
		func(payload []byte) { resultCh <- result{payload: payload} },
		func(err error) { resultCh <- result{err: err} },
		timeout,
	)

	env := envelope.New(envelope.KindRPCRequest, version)
	env.ID = id
	env.Ch = method
	env.P = validatedReq

	if err := sendEnvelope(ctx, t, c, mws, env); err != nil {
		p.Settle(id, nil, err)
	}

	res := <-resultCh
	if res.err != nil {
		return nil, res.err
	}

	validatedRes, err := desc.ValidateResponse(res.payload)
	if err != nil {
		return nil, fmt.Errorf("runtime: response validation: %w", err)
	}
	return validatedRes, nil
}

// emitEvent implements the fire-and-forget emit proxy operation of spec
// §4.5.2: validate, run outbound middleware, send — all failures logged,
// none surfaced to the (already-returned) caller.
func emitEvent(
	ctx context.Context,
	t transport.Transport,
	c codec.Codec,
	mws []middleware.Func,
	version int,
	logger logging.Logger,
	descriptors map[string]contract.EventDescriptor,
	ch string,
	payload json.RawMessage,
) {
	desc, ok := descriptors[ch]
	if !ok {
		logger.Error("runtime: emit on undeclared event channel", "ch", ch)
		return
	}

	validated, err := desc.ValidatePayload(payload)
	if err != nil {
		logger.Error("runtime: event validation failed on emit", "ch", ch, "err", err)
		return
	}

	env := envelope.New(envelope.KindEvent, version)
	env.Ch = ch
	env.P = validated

	if err := sendEnvelope(ctx, t, c, mws, env); err != nil {
		logger.Error("runtime: emit send failed", "ch", ch, "err", err)
	}
}

// dispatchRPCRequest implements the rpc_req row of spec §4.5.3's dispatch
// table: look up the descriptor and handler, validate the request, invoke
// the handler, validate the response, and reply with rpc_res — or rpc_err
// at any failing step, always echoing the incoming id and ch.
func dispatchRPCRequest(
	ctx context.Context,
	env *envelope.Envelope,
	descriptors map[string]contract.RPCDescriptor,
	handlers map[string]Handler,
	version int,
	logger logging.Logger,
	send func(*envelope.Envelope) error,
) {
	sendErr := func(code, message string) {
		errEnv := envelope.New(envelope.KindRPCError, version)
		errEnv.ID = env.ID
		errEnv.Ch = env.Ch
		errEnv.Code = code
		errEnv.M = message
		if err := send(errEnv); err != nil {
			logger.Error("runtime: failed to send rpc_err", "ch", env.Ch, "id", env.ID, "err", err)
		}
	}

	desc, descOK := descriptors[env.Ch]
	handler, handlerOK := handlers[env.Ch]
	if !descOK || !handlerOK {
		sendErr("NOT_FOUND", fmt.Sprintf("Method not found: %s", env.Ch))
		return
	}

	validatedReq, err := desc.ValidateRequest(env.P)
	if err != nil {
		sendErr("VALIDATION_ERROR", err.Error())
		return
	}

	resPayload, err := handler(ctx, validatedReq)
	if err != nil {
		sendErr("HANDLER_ERROR", err.Error())
		return
	}

	validatedRes, err := desc.ValidateResponse(resPayload)
	if err != nil {
		sendErr("VALIDATION_ERROR", err.Error())
		return
	}

	resEnv := envelope.New(envelope.KindRPCResponse, version)
	resEnv.ID = env.ID
	resEnv.Ch = env.Ch
	resEnv.P = validatedRes
	if err := send(resEnv); err != nil {
		logger.Error("runtime: failed to send rpc_res", "ch", env.Ch, "id", env.ID, "err", err)
	}
}

// dispatchEvent implements the event row of spec §4.5.3: validate once,
// then invoke every subscriber serially in registration order, containing
// both validation failures and handler panics without propagating them.
func dispatchEvent(
	env *envelope.Envelope,
	descriptors map[string]contract.EventDescriptor,
	subscribers func(ch string) []func(json.RawMessage),
	logger logging.Logger,
) {
	if env.Ch == "" {
		return
	}

	handlers := subscribers(env.Ch)
	if len(handlers) == 0 {
		return
	}

	payload := env.P
	if desc, ok := descriptors[env.Ch]; ok {
		validated, err := desc.ValidatePayload(env.P)
		if err != nil {
			logger.Error("runtime: event validation failed on receive", "ch", env.Ch, "err", err)
			return
		}
		payload = validated
	}

	for _, h := range handlers {
		invokeEventHandler(h, payload, env.Ch, logger)
	}
}

func invokeEventHandler(h func(json.RawMessage), payload json.RawMessage, ch string, logger logging.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("runtime: event handler panicked", "ch", ch, "recover", fmt.Sprintf("%v", r))
		}
	}()
	h(payload)
}

// inboundDeps bundles everything handleInboundData needs to resolve one
// side's share of spec §4.5.3's dispatch table. Client and Connection each
// build one of these from their own fields before delegating here, so the
// dispatch logic itself is written once.
type inboundDeps struct {
	Version           int
	Middlewares       []middleware.Func
	Pending           *pending.Table
	RPCDescriptors    map[string]contract.RPCDescriptor
	RPCHandlers       map[string]Handler
	EventDescriptors  map[string]contract.EventDescriptor
	Subscribers       func(ch string) []func(json.RawMessage)
	Logger            logging.Logger
	OnUnknownEnvelope func(*envelope.Envelope)
	OnHello           func([]string)
	Send              func(*envelope.Envelope) error
}

// handleInboundData decodes one inbound frame and dispatches it per spec
// §4.5.3. Malformed frames and structurally invalid envelopes are dropped
// silently (spec §7.6); an inbound middleware failure is logged and the
// envelope discarded with no handler invoked (spec §4.3/§7).
func handleInboundData(ctx context.Context, data []byte, c codec.Codec, deps inboundDeps) {
	var env envelope.Envelope
	if err := c.Decode(data, &env); err != nil {
		deps.Logger.Debug("runtime: dropping malformed frame", "err", err)
		return
	}
	if err := env.Validate(); err != nil {
		deps.Logger.Debug("runtime: dropping structurally invalid envelope", "err", err)
		return
	}

	mc := &middleware.Ctx{Direction: middleware.In, Envelope: &env}
	if err := middleware.Run(ctx, deps.Middlewares, mc); err != nil {
		deps.Logger.Error("runtime: inbound middleware failed, envelope dropped", "kind", env.Kind, "err", err)
		return
	}

	switch env.Kind {
	case envelope.KindRPCRequest:
		dispatchRPCRequest(ctx, &env, deps.RPCDescriptors, deps.RPCHandlers, deps.Version, deps.Logger, deps.Send)
	case envelope.KindRPCResponse:
		deps.Pending.Settle(env.ID, env.P, nil)
	case envelope.KindRPCError:
		message := env.M
		if message == "" {
			message = fmt.Sprintf("rpc error (code=%s)", env.Code)
		}
		rpcErr := fmt.Errorf("%s", message)
		if env.Code == "NOT_FOUND" {
			rpcErr = fmt.Errorf("%w: %s", ErrNotFound, message)
		}
		deps.Pending.Settle(env.ID, nil, rpcErr)
	case envelope.KindEvent:
		dispatchEvent(&env, deps.EventDescriptors, deps.Subscribers, deps.Logger)
	case envelope.KindHello:
		deps.Logger.Info("runtime: hello received", "feat", env.Feat)
		if deps.OnHello != nil {
			deps.OnHello(env.Feat)
		}
	default:
		if deps.OnUnknownEnvelope != nil {
			deps.OnUnknownEnvelope(&env)
		}
	}
}
