// Package contract implements the declarative description of a Kataribe
// application's RPC endpoints and event channels: which methods the client
// may call on the server, which the server may call back on the client,
// and which fire-and-forget event channels either side may emit on, each
// with optional request/response/payload validation.
//
// In the source (a dynamically-typed host language), a contract is an
// object literal inspected by structural reflection to build per-endpoint
// method proxies with full type inference. Go has no structural reflection
// over an arbitrary literal with that guarantee, so this port takes the
// dispatch-map route described in spec §9: every descriptor is built by a
// generic constructor (RPC, Event) that closes over a concrete Go type at
// registration time and erases it to a json.RawMessage-to-json.RawMessage
// validator function stored in the descriptor. This mirrors
// bjaus-dispatch's Register[T any] / Handler[T] pattern, which solves the
// identical problem (storing handlers of different static types in one
// map) for event routing rather than RPC.
package contract

// Kind discriminates a descriptor as RPC or event, per spec §4.2.
type Kind string

const (
	KindRPC   Kind = "rpc"
	KindEvent Kind = "event"
)

// Contract is the immutable, compile-time-constructed description of an
// application's RPC endpoints and event channels. It is created once at
// boot (typically via New) and never mutated afterward.
type Contract struct {
	RPCToServer map[string]RPCDescriptor
	RPCToClient map[string]RPCDescriptor
	Events      map[string]EventDescriptor
}

// New is the contract identity helper referenced in spec §4.2: in the
// source it exists mainly to preserve type inference across a structural
// literal. In Go, where RPCDescriptor and EventDescriptor are already
// concrete (type-erased) values by the time they reach here, New is a
// plain constructor that defends against nil maps so runtime lookups never
// need a nil check.
func New(rpcToServer map[string]RPCDescriptor, rpcToClient map[string]RPCDescriptor, events map[string]EventDescriptor) *Contract {
	if rpcToServer == nil {
		rpcToServer = map[string]RPCDescriptor{}
	}
	if rpcToClient == nil {
		rpcToClient = map[string]RPCDescriptor{}
	}
	if events == nil {
		events = map[string]EventDescriptor{}
	}
	return &Contract{RPCToServer: rpcToServer, RPCToClient: rpcToClient, Events: events}
}
