// Package envelope defines the single wire message exchanged between a
// Kataribe client and server: the envelope. It is the structural type that
// every RPC request/response/error, event, and hello frame takes on the
// wire; everything else in the runtime manipulates values of this type.
//
// Serialization logic here is limited to struct tags plus the
// MarshalJSON/UnmarshalJSON pair that carries unknown wire fields through
// Extra; turning an envelope into bytes is the job of the runtime's codec.
package envelope

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind discriminates the purpose of an envelope.
type Kind string

const (
	KindRPCRequest  Kind = "rpc_req"
	KindRPCResponse Kind = "rpc_res"
	KindRPCError    Kind = "rpc_err"
	KindEvent       Kind = "event"
	KindHello       Kind = "hello"
)

// Envelope is the discriminated record forming the unit of wire exchange.
//
// Field names mirror the wire's literal JSON keys exactly (v, ts, kind, id,
// ch, p, m, code, meta, feat) — see spec §3 and §6.2.
type Envelope struct {
	V    int             `json:"v"`
	Ts   int64           `json:"ts"`
	Kind Kind            `json:"kind"`
	ID   string          `json:"id,omitempty"`
	Ch   string          `json:"ch,omitempty"`
	P    json.RawMessage `json:"p,omitempty"`
	M    string          `json:"m,omitempty"`
	Code string          `json:"code,omitempty"`
	Meta map[string]any  `json:"meta,omitempty"`
	Feat []string        `json:"feat,omitempty"`

	// Extra holds any wire field the runtime doesn't recognize. It is never
	// inspected by the core itself but survives a decode/encode round trip
	// so middleware can still read it.
	Extra map[string]json.RawMessage `json:"-"`
}

// New constructs a minimal envelope of the given kind, stamped with the
// configured protocol version and the current wall-clock time in
// milliseconds since epoch. Callers assign ID, Ch, P, M, Code, Meta, Feat
// as appropriate for the kind.
func New(kind Kind, version int) *Envelope {
	return &Envelope{
		V:    version,
		Ts:   time.Now().UnixMilli(),
		Kind: kind,
	}
}

// Validate checks the structural invariants from spec §3: rpc_res/rpc_err
// must carry an id, event/rpc_req must carry a channel, hello carries
// neither id nor channel. It does not and must never inspect P — payload
// opacity is strict; only contract validators may look inside P.
func (e *Envelope) Validate() error {
	switch e.Kind {
	case KindRPCRequest:
		if e.ID == "" {
			return fmt.Errorf("envelope: %s requires an id", e.Kind)
		}
		if e.Ch == "" {
			return fmt.Errorf("envelope: %s requires a channel", e.Kind)
		}
	case KindRPCResponse, KindRPCError:
		if e.ID == "" {
			return fmt.Errorf("envelope: %s requires an id", e.Kind)
		}
	case KindEvent:
		if e.Ch == "" {
			return fmt.Errorf("envelope: %s requires a channel", e.Kind)
		}
	case KindHello:
		if e.ID != "" || e.Ch != "" {
			return fmt.Errorf("envelope: hello must not carry id or channel")
		}
	default:
		// An unrecognized kind is not a structural violation — it is the
		// one case spec §4.5.3/§7.7 route to the configured
		// OnUnknownEnvelope hook rather than drop. Validate only rejects
		// envelopes that are malformed for a kind it understands.
	}
	return nil
}

// IsRPC reports whether the envelope belongs to the correlated RPC family
// (request, response, or error) as opposed to event/hello.
func (e *Envelope) IsRPC() bool {
	switch e.Kind {
	case KindRPCRequest, KindRPCResponse, KindRPCError:
		return true
	default:
		return false
	}
}

// knownFields lists the wire keys consumed directly into named struct
// fields, used by UnmarshalJSON to decide what falls into Extra.
var knownFields = map[string]struct{}{
	"v": {}, "ts": {}, "kind": {}, "id": {}, "ch": {},
	"p": {}, "m": {}, "code": {}, "meta": {}, "feat": {},
}

// UnmarshalJSON decodes the known envelope fields normally and stashes any
// remaining keys into Extra, so unrecognized wire fields survive a
// decode/encode round trip for middleware to observe (spec §6.2).
func (e *Envelope) UnmarshalJSON(data []byte) error {
	type alias Envelope
	aux := (*alias)(e)
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for k := range knownFields {
		delete(raw, k)
	}
	if len(raw) > 0 {
		e.Extra = raw
	}
	return nil
}

// MarshalJSON re-emits Extra's keys alongside the known fields so a
// middleware-added field is not silently dropped when the envelope is
// re-encoded before being sent onward.
func (e *Envelope) MarshalJSON() ([]byte, error) {
	type alias Envelope
	base, err := json.Marshal((*alias)(e))
	if err != nil {
		return nil, err
	}
	if len(e.Extra) == 0 {
		return base, nil
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range e.Extra {
		if _, known := knownFields[k]; known {
			continue
		}
		merged[k] = v
	}
	return json.Marshal(merged)
}
