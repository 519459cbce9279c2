package http

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/salim16/microservices-kaushik/catalogue/internal/gateway"
	"github.com/salim16/microservices-kaushik/catalogue/pkg/model"
	"github.com/salim16/microservices-kaushik/pkg/discovery"
	"github.com/salim16/microservices-kaushik/pkg/httpjson"
	"github.com/salim16/microservices-kaushik/pkg/retry"
)

// DefaultServiceName is the registry name of the ratings service.
const DefaultServiceName = "ratings-service"

// Gateway defines an HTTP gateway for a ratings service.
type Gateway struct {
	resolver    gateway.Resolver
	client      *httpjson.Client
	serviceName string
	policy      retry.Policy
	logger      *zap.Logger
}

// New creates a new HTTP gateway for a ratings service. Every retry attempt
// resolves a fresh instance.
func New(resolver gateway.Resolver, client *httpjson.Client, serviceName string, policy retry.Policy, logger *zap.Logger) *Gateway {
	if serviceName == "" {
		serviceName = DefaultServiceName
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{resolver: resolver, client: client, serviceName: serviceName, policy: policy, logger: logger}
}

// GetUserRating returns the ratings the user has given.
func (g *Gateway) GetUserRating(ctx context.Context, userID string) (*model.UserRating, error) {
	path := "/ratingsdata/users/" + url.PathEscape(userID)
	var res model.UserRating
	err := retry.Do(ctx, g.policy, retryable, func(ctx context.Context) error {
		inst, err := g.resolver.Resolve(ctx, g.serviceName)
		if err != nil {
			return err
		}
		g.logger.Debug("Calling ratings service", zap.String("addr", inst.Addr()), zap.String("path", path))
		res, err = httpjson.Get[model.UserRating](ctx, g.client, inst, path)
		if err != nil {
			g.logger.Warn("Ratings service call failed", zap.String("addr", inst.Addr()), zap.Error(err))
		}
		return err
	})
	if err != nil {
		var statusErr *httpjson.StatusError
		if errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound {
			return nil, errors.Join(gateway.ErrNotFound, err)
		}
		return nil, err
	}
	return &res, nil
}

func retryable(err error) bool {
	return httpjson.Retryable(err) || errors.Is(err, discovery.ErrNoInstanceAvailable)
}
