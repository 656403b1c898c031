package discovery

import "fmt"

// Resolver combines a Registry and a Balancer into the single operation
// transport/frame's Dial needs: "give me one address for this service".
type Resolver struct {
	registry    Registry
	balancer    Balancer
	serviceName string
}

// NewResolver builds a Resolver for serviceName, looking up instances via
// registry and choosing among them with balancer.
func NewResolver(registry Registry, balancer Balancer, serviceName string) *Resolver {
	return &Resolver{registry: registry, balancer: balancer, serviceName: serviceName}
}

// ResolveAddr discovers the service's current instances and returns one
// address to dial.
func (r *Resolver) ResolveAddr() (string, error) {
	instances, err := r.registry.Discover(r.serviceName)
	if err != nil {
		return "", fmt.Errorf("discovery: resolve %s: %w", r.serviceName, err)
	}
	if len(instances) == 0 {
		return "", fmt.Errorf("discovery: no instances registered for %s", r.serviceName)
	}

	inst, err := r.balancer.Pick(instances)
	if err != nil {
		return "", fmt.Errorf("discovery: resolve %s: %w", r.serviceName, err)
	}
	return inst.Addr, nil
}
