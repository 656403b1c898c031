package discovery

import (
	"context"
	"encoding/json"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// EtcdRegistry implements Registry using etcd v3.
//
// etcd is a distributed key-value store with strong consistency (Raft), used
// here as a phonebook for runtime peers:
//
//	Key:   /kataribe/{ServiceName}/{Addr}
//	Value: JSON-encoded Instance
//
// Registration uses TTL-based leases: if the process holding the lease dies,
// the lease expires and the entry is automatically removed.
type EtcdRegistry struct {
	client *clientv3.Client
}

// NewEtcdRegistry creates a registry connected to the given etcd endpoints.
func NewEtcdRegistry(endpoints []string) (*EtcdRegistry, error) {
	c, err := clientv3.New(clientv3.Config{
		Endpoints: endpoints,
	})
	if err != nil {
		return nil, err
	}
	return &EtcdRegistry{client: c}, nil
}

// Register adds an instance to etcd with a TTL lease and starts a background
// keepalive that renews it.
//
// leaseID is a local variable, not stored on the struct, so that one
// EtcdRegistry shared across goroutines registering different services never
// races over which lease a given Register call renews.
func (r *EtcdRegistry) Register(serviceName string, instance Instance, ttlSeconds int64) error {
	ctx := context.TODO()

	lease, err := r.client.Grant(ctx, ttlSeconds)
	if err != nil {
		return err
	}

	val, err := json.Marshal(instance)
	if err != nil {
		return err
	}

	_, err = r.client.Put(ctx, "/kataribe/"+serviceName+"/"+instance.Addr, string(val), clientv3.WithLease(lease.ID))
	if err != nil {
		return err
	}

	ch, err := r.client.KeepAlive(ctx, lease.ID)
	if err != nil {
		return err
	}

	go func() {
		for range ch {
		}
	}()
	return nil
}

// Deregister removes an instance from etcd. Called during graceful shutdown
// before the listener closes.
func (r *EtcdRegistry) Deregister(serviceName string, addr string) error {
	ctx := context.TODO()
	_, err := r.client.Delete(ctx, "/kataribe/"+serviceName+"/"+addr)
	return err
}

// Watch monitors a service prefix and emits the updated instance list
// whenever a registration, deregistration, or lease expiration occurs.
func (r *EtcdRegistry) Watch(serviceName string) <-chan []Instance {
	ctx := context.TODO()
	ch := make(chan []Instance, 1)
	prefix := "/kataribe/" + serviceName + "/"

	go func() {
		watchChan := r.client.Watch(ctx, prefix, clientv3.WithPrefix())
		for range watchChan {
			instances, _ := r.Discover(serviceName)
			ch <- instances
		}
	}()

	return ch
}

// Discover returns all instances currently registered under the service's
// etcd prefix.
func (r *EtcdRegistry) Discover(serviceName string) ([]Instance, error) {
	ctx := context.TODO()
	prefix := "/kataribe/" + serviceName + "/"

	resp, err := r.client.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}

	instances := make([]Instance, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var instance Instance
		if err := json.Unmarshal(kv.Value, &instance); err != nil {
			continue // skip malformed entries
		}
		instances = append(instances, instance)
	}

	return instances, nil
}
