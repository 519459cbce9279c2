// Package static provides a registry backed by a fixed address list, for
// calling services at known locations without a discovery server.
package static

import (
	"context"
	"fmt"

	"github.com/salim16/microservices-kaushik/pkg/discovery"
)

// Registry lists a fixed set of always-healthy instances.
type Registry struct {
	instances map[string][]discovery.Instance
}

// New creates a static registry from a service name to host:port list mapping.
func New(addrs map[string][]string) (*Registry, error) {
	r := &Registry{instances: make(map[string][]discovery.Instance, len(addrs))}
	for name, hostPorts := range addrs {
		for i, hp := range hostPorts {
			inst, err := discovery.ParseHostPort(name, hp)
			if err != nil {
				return nil, fmt.Errorf("static registry: service %s: %w", name, err)
			}
			inst.InstanceID = fmt.Sprintf("%s-%d", name, i)
			r.instances[name] = append(r.instances[name], inst)
		}
	}
	return r, nil
}

// ListInstances returns the configured instances of the service.
func (r *Registry) ListInstances(_ context.Context, serviceName string) ([]discovery.Instance, error) {
	insts, ok := r.instances[serviceName]
	if !ok || len(insts) == 0 {
		return nil, discovery.ErrNotFound
	}
	res := make([]discovery.Instance, len(insts))
	copy(res, insts)
	return res, nil
}
