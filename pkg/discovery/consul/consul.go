package consul

import (
	"context"
	"errors"

	consul "github.com/hashicorp/consul/api"

	"github.com/salim16/microservices-kaushik/pkg/discovery"
)

// checkTTL is how long consul waits for a ReportHealthyState call before
// marking the instance critical.
const checkTTL = "5s"

// Registry defines a Consul-based service registry.
type Registry struct {
	client *consul.Client
}

// NewRegistry creates a new Consul-based service registry instance.
func NewRegistry(addr string) (*Registry, error) {
	config := consul.DefaultConfig()
	config.Address = addr
	client, err := consul.NewClient(config)
	if err != nil {
		return nil, err
	}
	return &Registry{client: client}, nil
}

// Register creates a service record in the registry.
func (r *Registry) Register(_ context.Context, instanceID string, serviceName string, hostPort string) error {
	inst, err := discovery.ParseHostPort(serviceName, hostPort)
	if err != nil {
		return err
	}
	return r.client.Agent().ServiceRegister(&consul.AgentServiceRegistration{
		ID:      instanceID,
		Name:    serviceName,
		Address: inst.Host,
		Port:    inst.Port,
		Check: &consul.AgentServiceCheck{
			CheckID: instanceID,
			TTL:     checkTTL,
		},
	})
}

// Deregister removes a service record from the registry.
func (r *Registry) Deregister(_ context.Context, instanceID string, _ string) error {
	return r.client.Agent().ServiceDeregister(instanceID)
}

// ReportHealthyState is a push mechanism for reporting healthy state to the registry.
func (r *Registry) ReportHealthyState(instanceID string, _ string) error {
	return r.client.Agent().PassTTL(instanceID, "")
}

// ListInstances returns every instance consul knows for the service,
// including the ones whose checks are failing.
func (r *Registry) ListInstances(ctx context.Context, serviceName string) ([]discovery.Instance, error) {
	opts := (&consul.QueryOptions{}).WithContext(ctx)
	entries, _, err := r.client.Health().Service(serviceName, "", false, opts)
	if err != nil {
		return nil, err
	} else if len(entries) == 0 {
		return nil, discovery.ErrNotFound
	}
	res := make([]discovery.Instance, 0, len(entries))
	for _, e := range entries {
		inst, err := toInstance(e)
		if err != nil {
			continue
		}
		res = append(res, inst)
	}
	return res, nil
}

func toInstance(e *consul.ServiceEntry) (discovery.Instance, error) {
	if e == nil || e.Service == nil {
		return discovery.Instance{}, errors.New("consul: empty service entry")
	}
	host := e.Service.Address
	if host == "" && e.Node != nil {
		host = e.Node.Address
	}
	if host == "" {
		return discovery.Instance{}, errors.New("consul: service entry has no address")
	}
	return discovery.Instance{
		ServiceName: e.Service.Service,
		InstanceID:  e.Service.ID,
		Host:        host,
		Port:        e.Service.Port,
		Healthy:     e.Checks.AggregatedStatus() == consul.HealthPassing,
	}, nil
}
