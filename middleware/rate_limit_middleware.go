package middleware

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimit creates a token-bucket rate limiter middleware.
//
// Token bucket: tokens are added at rate r per second, up to a burst size.
// Each envelope that passes through consumes one token; once the bucket is
// empty the middleware fails the pipeline (outbound: the send is aborted
// and, for RPC requests, the pending entry is rejected; inbound: the
// envelope is logged and dropped, matching spec §4.3's error handling for
// a failing middleware — there is no separate short-circuit mechanism).
//
// The limiter is built once, in the outer closure, and shared across every
// envelope the middleware processes — constructing a fresh limiter per call
// would hand every envelope a full bucket and defeat the limiter entirely.
func RateLimit(r float64, burst int) Func {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(ctx context.Context, mc *Ctx) error {
		if !limiter.Allow() {
			return fmt.Errorf("rate limit exceeded for %s %s", mc.Direction, mc.Envelope.Ch)
		}
		return nil
	}
}
