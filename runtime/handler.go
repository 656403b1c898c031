package runtime

import (
	"context"
	"encoding/json"
	"fmt"

	"kataribe/logging"
)

// Handler is the type-erased form every inbound rpc_req is dispatched to:
// one per contract method, keyed by name in ClientOptions.Handlers or
// ServerOptions.Handlers. Request/response validation happens in the
// dispatcher before/after the call, not inside Handler itself.
type Handler func(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)

// HandlerFunc builds a Handler from a typed function, per spec §9's
// generics-based alternative to structural reflection: Req and Res are
// phantom types fixed at the call site, erased to raw JSON at the boundary
// so handlers of different signatures can share one Handlers map.
func HandlerFunc[Req, Res any](fn func(context.Context, Req) (Res, error)) Handler {
	return func(ctx context.Context, raw json.RawMessage) (json.RawMessage, error) {
		var req Req
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &req); err != nil {
				return nil, fmt.Errorf("runtime: decode request: %w", err)
			}
		}
		res, err := fn(ctx, req)
		if err != nil {
			return nil, err
		}
		return json.Marshal(res)
	}
}

// EventHandlerFunc builds a raw event handler from a typed function, used
// both for ServerOptions.EventHandlers entries and for Client's Subscribe.
// A decode failure is logged and the typed function is not invoked — this
// should not ordinarily happen since the dispatcher already ran the
// channel's payload validator before calling any subscriber.
func EventHandlerFunc[T any](logger logging.Logger, ch string, fn func(T)) func(json.RawMessage) {
	return func(raw json.RawMessage) {
		var v T
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &v); err != nil {
				logger.Error("runtime: event handler decode failed", "ch", ch, "err", err)
				return
			}
		}
		fn(v)
	}
}
