package frame

import (
	"context"

	"kataribe/codec"
	"kataribe/discovery"
)

// DialResolved resolves one address for serviceName via r and dials it,
// so a runtime.Client can be pointed at a service name instead of a literal
// address and still land on a real TCP connection through frame.Dial.
func DialResolved(ctx context.Context, r *discovery.Resolver, c codec.Codec) (*Transport, error) {
	addr, err := r.ResolveAddr()
	if err != nil {
		return nil, err
	}
	return Dial(ctx, addr, c)
}
