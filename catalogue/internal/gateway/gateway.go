package gateway

import (
	"context"
	"errors"

	"github.com/salim16/microservices-kaushik/pkg/discovery"
)

// ErrNotFound is returned when the requested record is not found upstream.
var ErrNotFound = errors.New("not found")

// Resolver picks an instance of a service for a single call.
type Resolver interface {
	Resolve(ctx context.Context, serviceName string) (discovery.Instance, error)
}
