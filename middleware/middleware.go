// Package middleware implements the ordered interception pipeline that
// runs over every envelope the runtime sends or receives.
//
// Unlike the teacher's onion-model chain (middleware.Chain in mini-rpc,
// where each layer wraps a "next" handler and may short-circuit by not
// calling it), Kataribe's middleware pipeline is a flat, sequential list:
// every registered middleware runs, in registration order, over the same
// envelope before the pipeline completes. There is no "next" continuation
// to withhold — this is a deliberate redesign to match spec §4.3 ("There is
// no short-circuit; middleware may mutate but may not replace the
// envelope"), not an oversight. See DESIGN.md for the full rationale.
package middleware

import (
	"context"
	"fmt"

	"kataribe/envelope"
)

// Direction identifies which leg of a send/receive cycle an envelope is on.
type Direction string

const (
	Out Direction = "out"
	In  Direction = "in"
)

// Ctx is the value every middleware receives. Mutations to Envelope should
// go through Mutate rather than direct field assignment — Mutate exists as
// a forward-compatibility hook (spec §4.3) so a future version can swap in
// copy-on-write semantics without changing every middleware's signature.
type Ctx struct {
	Direction Direction
	Envelope  *envelope.Envelope
}

// Mutate applies fn to the envelope in place. It is the sanctioned way for
// a middleware to change envelope fields.
func (c *Ctx) Mutate(fn func(*envelope.Envelope)) {
	fn(c.Envelope)
}

// Func is a single middleware: it observes and may mutate the envelope in
// mc, returning an error to fail the pipeline.
type Func func(ctx context.Context, mc *Ctx) error

// Run executes every middleware in fns, in order, against mc, stopping at
// (and returning) the first error. Per spec §4.3, an envelope passes
// through the *entire* pipeline only when every middleware succeeds — a
// failing middleware aborts immediately and the caller is responsible for
// the side effects described in §4.3/§7 (outbound: fail the send and,
// for RPC requests, reject the pending entry; inbound: log and discard,
// no handler invoked).
func Run(ctx context.Context, fns []Func, mc *Ctx) error {
	for i, fn := range fns {
		if err := fn(ctx, mc); err != nil {
			return fmt.Errorf("middleware[%d]: %w", i, err)
		}
	}
	return nil
}
