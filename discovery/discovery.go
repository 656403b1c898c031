// Package discovery resolves a peer address for transport/frame's Dial out
// of a set of registered instances, repurposing the teacher's service
// registry and load balancer as a connection-address bootstrap rather than
// a full RPC client-side routing layer. Kataribe's runtime talks over one
// persistent Transport per Client; discovery's job ends the moment Dial has
// an address — it has no further involvement once a connection is open.
package discovery

// Instance is one registered, dialable peer.
type Instance struct {
	Addr    string // Network address, e.g. "127.0.0.1:8080"
	Weight  int    // Relative selection weight, consumed by WeightedRandomBalancer
	Version string // Free-form deployment tag, not interpreted by discovery itself
}

// Registry is the interface for service registration and discovery.
// Implementations include EtcdRegistry (production) and any in-memory
// stand-in a test wants to supply.
type Registry interface {
	// Register adds an instance to the registry with a TTL lease. The
	// instance is automatically removed if the lease's keepalive stops
	// (e.g. the process crashes).
	Register(serviceName string, instance Instance, ttlSeconds int64) error

	// Deregister removes an instance from the registry. Called during
	// graceful shutdown before the listener closes.
	Deregister(serviceName string, addr string) error

	// Discover returns all currently registered instances for a service.
	Discover(serviceName string) ([]Instance, error)

	// Watch returns a channel that emits the updated instance list whenever
	// the service's instances change.
	Watch(serviceName string) <-chan []Instance
}
