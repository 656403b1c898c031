package discovery

// Balancer picks one instance out of the list discovery returns, so
// transport/frame's Dial has a single address to connect to.
//
// Two strategies are provided:
//   - RoundRobinBalancer:    stateless peers, equal capacity
//   - WeightedRandomBalancer: heterogeneous peers (different CPU/memory)
type Balancer interface {
	// Pick selects one instance from the available list. Called on every
	// Dial — must be goroutine-safe.
	Pick(instances []Instance) (*Instance, error)

	// Name returns the strategy name, for logging.
	Name() string
}
