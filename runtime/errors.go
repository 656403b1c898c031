package runtime

import (
	"errors"

	"kataribe/pending"
)

// ErrClosed is returned by Call/CallClient when the runtime (or connection)
// has already been closed.
var ErrClosed = errors.New("runtime: closed")

// ErrNotDeclared is returned by Call/CallClient when method has no
// descriptor in the relevant contract map — a local programming error, as
// opposed to the peer-side "NOT_FOUND" rpc_err (spec §4.2: sender-side
// validation guards against local mistakes, receiver-side against a
// non-conforming peer).
var ErrNotDeclared = errors.New("runtime: method not declared in contract")

// ErrTimeout is returned by Call/CallClient when no rpc_res/rpc_err arrives
// before the call's timeout (spec §7). Aliased from pending, which is what
// actually arms the timer and constructs the wrapped error.
var ErrTimeout = pending.ErrTimeout

// ErrNotFound is returned by Call/CallClient when the peer replies with an
// rpc_err carrying code "NOT_FOUND" — the receiver-side counterpart to
// ErrNotDeclared (spec §4.2, §7): the method was never declared, or
// declared but no handler was registered for it, on the peer's side.
var ErrNotFound = errors.New("runtime: method not found on peer")
