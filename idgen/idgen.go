// Package idgen supplies the correlation-id generator used to tag every
// outbound RPC request. The default is a cryptographically random UUID
// (spec §6.3); callers may override it via runtime.CommonOptions.GenerateID for
// deterministic ids in tests.
package idgen

import "github.com/google/uuid"

// Generator produces a fresh, opaque correlation id on each call. It must
// be safe for concurrent use — the runtime calls it from whichever
// goroutine issues an RPC call.
type Generator func() string

// NewUUIDGenerator returns the default Generator: a random UUIDv4 string
// per call, via google/uuid.
func NewUUIDGenerator() Generator {
	return func() string {
		return uuid.NewString()
	}
}
