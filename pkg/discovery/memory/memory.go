package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/salim16/microservices-kaushik/pkg/discovery"
)

// healthyWindow is how long an instance stays healthy after its last report.
const healthyWindow = 5 * time.Second

// Registry defines an in-memory service registry.
type Registry struct {
	sync.RWMutex
	serviceAddrs map[string]map[string]*serviceInstance
	now          func() time.Time
}

type serviceInstance struct {
	hostPort   string
	lastActive time.Time
}

// NewRegistry creates a new in-memory service registry
// keyed as map[serviceName][instanceID]*serviceInstance.
func NewRegistry() *Registry {
	return &Registry{serviceAddrs: map[string]map[string]*serviceInstance{}, now: time.Now}
}

// Register creates a service record in the registry.
func (r *Registry) Register(_ context.Context, instanceID string, serviceName string, hostPort string) error {
	if _, err := discovery.ParseHostPort(serviceName, hostPort); err != nil {
		return err
	}
	r.Lock()
	defer r.Unlock()
	if _, ok := r.serviceAddrs[serviceName]; !ok {
		r.serviceAddrs[serviceName] = map[string]*serviceInstance{}
	}
	r.serviceAddrs[serviceName][instanceID] = &serviceInstance{hostPort: hostPort, lastActive: r.now()}
	return nil
}

// Deregister removes a service record from the registry.
func (r *Registry) Deregister(_ context.Context, instanceID string, serviceName string) error {
	r.Lock()
	defer r.Unlock()
	if _, ok := r.serviceAddrs[serviceName]; !ok {
		return nil
	}
	delete(r.serviceAddrs[serviceName], instanceID)
	return nil
}

// ReportHealthyState is a push mechanism for reporting healthy state to the registry.
func (r *Registry) ReportHealthyState(instanceID string, serviceName string) error {
	r.Lock()
	defer r.Unlock()
	if _, ok := r.serviceAddrs[serviceName]; !ok {
		return errors.New("service is not registered yet")
	}
	if _, ok := r.serviceAddrs[serviceName][instanceID]; !ok {
		return errors.New("service instance is not registered yet")
	}
	r.serviceAddrs[serviceName][instanceID].lastActive = r.now()
	return nil
}

// ListInstances returns all instances of the given service. Instances that
// have not reported within the healthy window are returned as unhealthy.
func (r *Registry) ListInstances(_ context.Context, serviceName string) ([]discovery.Instance, error) {
	r.RLock()
	defer r.RUnlock()
	if len(r.serviceAddrs[serviceName]) == 0 {
		return nil, discovery.ErrNotFound
	}
	cutoff := r.now().Add(-healthyWindow)
	res := make([]discovery.Instance, 0, len(r.serviceAddrs[serviceName]))
	for id, i := range r.serviceAddrs[serviceName] {
		inst, err := discovery.ParseHostPort(serviceName, i.hostPort)
		if err != nil {
			continue
		}
		inst.InstanceID = id
		inst.Healthy = !i.lastActive.Before(cutoff)
		res = append(res, inst)
	}
	sort.Slice(res, func(a, b int) bool { return res[a].InstanceID < res[b].InstanceID })
	return res, nil
}
