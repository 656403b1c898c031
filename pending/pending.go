// Package pending implements the pending-call table: the per-runtime
// record of outstanding outbound RPC requests, keyed by correlation id,
// with optional per-call timeout bookkeeping.
//
// Grounded on mini-rpc's transport.ClientTransport: there, each call got a
// uint32 sequence number and a buffered chan *message.RPCMessage stored in
// a sync.Map, with recvLoop looking the channel up by sequence number and
// closeAllPending draining every entry on connection failure. This package
// generalizes that shape from uint32 sequence numbers to opaque string
// correlation ids, and from raw channels to resolve/reject callback pairs
// so the runtime can plug in response validation before the caller's
// channel is ever written to (see callRPC in package runtime).
package pending

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Entry is the in-memory record for one outstanding outbound RPC call.
type Entry struct {
	Method  string
	resolve func(payload []byte)
	reject  func(err error)
	timer   *time.Timer
	once    sync.Once
}

// settle fires exactly one of resolve/reject, regardless of how many times
// settle is called — the state machine's terminal transitions (spec §4.5.6)
// occur once.
func (e *Entry) settle(fn func()) {
	e.once.Do(fn)
}

// Table correlates outbound rpc_req envelopes with their eventual rpc_res,
// rpc_err, timeout, or shutdown outcome. One Table exists per runtime
// instance (a Client, or a server-side Connection).
type Table struct {
	mu      sync.Mutex
	entries map[string]*Entry
}

// New creates an empty pending-call table.
func New() *Table {
	return &Table{entries: make(map[string]*Entry)}
}

// ErrTimeout is the sentinel wrapped into the error delivered to a pending
// entry's reject callback when its timer fires before Settle/AbandonAll.
// Exposed as runtime.ErrTimeout for callers outside this package, per
// spec §7's named timeout sentinel.
var ErrTimeout = errors.New("pending: rpc timed out")

// Register inserts a new entry for id. If timeout > 0, a timer is armed
// that — if it fires before Settle or AbandonAll — removes the entry and
// rejects it with an error wrapping ErrTimeout and naming method.
// Registering is a prerequisite to sending the rpc_req: the runtime
// registers before the request ever reaches the wire, so a response
// racing the send can never arrive before its entry exists.
func (t *Table) Register(id, method string, resolve func(payload []byte), reject func(err error), timeout time.Duration) {
	entry := &Entry{Method: method, resolve: resolve, reject: reject}

	t.mu.Lock()
	t.entries[id] = entry
	if timeout > 0 {
		entry.timer = time.AfterFunc(timeout, func() {
			t.mu.Lock()
			_, stillPending := t.entries[id]
			delete(t.entries, id)
			t.mu.Unlock()
			if stillPending {
				entry.settle(func() {
					entry.reject(fmt.Errorf("rpc %s: timed out after %s: %w", method, timeout, ErrTimeout))
				})
			}
		})
	}
	t.mu.Unlock()
}

// Settle resolves or rejects the entry for id — resolve with payload when
// err is nil, reject with err otherwise — and clears its timer. The caller
// builds err (wrapping whatever sentinel applies, e.g. a NOT_FOUND rpc_err)
// before calling Settle, so this package stays agnostic of any particular
// error taxonomy. Settling an id with no entry (already settled by a prior
// Settle, a fired timeout, or AbandonAll; or simply unknown) is a silent
// no-op, per spec §4.4's tie-break rule.
func (t *Table) Settle(id string, payload []byte, err error) {
	t.mu.Lock()
	entry, found := t.entries[id]
	if found {
		delete(t.entries, id)
	}
	t.mu.Unlock()

	if !found {
		return
	}
	if entry.timer != nil {
		entry.timer.Stop()
	}
	entry.settle(func() {
		if err == nil {
			entry.resolve(payload)
		} else {
			entry.reject(err)
		}
	})
}

// AbandonAll rejects every currently outstanding entry with err, clears
// their timers, and empties the table. Called once, at runtime close.
func (t *Table) AbandonAll(err error) {
	t.mu.Lock()
	entries := t.entries
	t.entries = make(map[string]*Entry)
	t.mu.Unlock()

	for _, entry := range entries {
		if entry.timer != nil {
			entry.timer.Stop()
		}
		entry.settle(func() {
			entry.reject(err)
		})
	}
}

// Len reports the number of currently outstanding entries. Used by tests
// to assert the table drains to zero after close (spec §8 invariant 2).
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
