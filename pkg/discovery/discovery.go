package discovery

import (
	"context"
	"errors"
	"net"
	"strconv"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no service addresses are found.
var ErrNotFound = errors.New("no service addresses found")

// ErrNoInstanceAvailable is returned when a service has no healthy instance to pick.
var ErrNoInstanceAvailable = errors.New("no service instance available")

// Instance is a single network endpoint of a service as seen by the registry.
type Instance struct {
	ServiceName string
	InstanceID  string
	Host        string
	Port        int
	Healthy     bool
}

// Addr returns the host:port form of the instance address.
func (i Instance) Addr() string {
	return net.JoinHostPort(i.Host, strconv.Itoa(i.Port))
}

// Lister lists known instances of a service.
type Lister interface {
	// ListInstances returns every known instance of the service, healthy or not.
	ListInstances(ctx context.Context, serviceName string) ([]Instance, error)
}

// Registry defines a service registry.
type Registry interface {
	Lister
	// Register creates a service instance record in the registry.
	Register(ctx context.Context, instanceID string, serviceName string, hostPort string) error
	// Deregister removes a service instance record from the registry.
	Deregister(ctx context.Context, instanceID string, serviceName string) error
	// ReportHealthyState is a push mechanism for reporting healthy state to the registry.
	ReportHealthyState(instanceID string, serviceName string) error
}

// GenerateInstanceID generates a unique service instance id.
func GenerateInstanceID(serviceName string) string {
	return serviceName + "-" + uuid.NewString()
}

// ParseHostPort splits a host:port string into an instance of the given service.
func ParseHostPort(serviceName, hostPort string) (Instance, error) {
	host, p, err := net.SplitHostPort(hostPort)
	if err != nil {
		return Instance{}, err
	}
	port, err := strconv.Atoi(p)
	if err != nil {
		return Instance{}, err
	}
	return Instance{ServiceName: serviceName, Host: host, Port: port, Healthy: true}, nil
}
