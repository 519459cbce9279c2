package http

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/salim16/microservices-kaushik/catalogue/internal/gateway"
	"github.com/salim16/microservices-kaushik/catalogue/pkg/model"
	"github.com/salim16/microservices-kaushik/pkg/httpjson"
)

// DefaultServiceName is the registry name of the movie info service.
const DefaultServiceName = "movie-info-service"

// Gateway defines an HTTP gateway for a movie info service.
type Gateway struct {
	resolver    gateway.Resolver
	client      *httpjson.Client
	serviceName string
}

// New creates a new HTTP gateway for a movie info service.
func New(resolver gateway.Resolver, client *httpjson.Client, serviceName string) *Gateway {
	if serviceName == "" {
		serviceName = DefaultServiceName
	}
	return &Gateway{resolver: resolver, client: client, serviceName: serviceName}
}

// GetMovie gets movie metadata by a movie id.
func (g *Gateway) GetMovie(ctx context.Context, movieID string) (*model.Movie, error) {
	inst, err := g.resolver.Resolve(ctx, g.serviceName)
	if err != nil {
		return nil, err
	}
	m, err := httpjson.Get[model.Movie](ctx, g.client, inst, "/movies/"+url.PathEscape(movieID))
	if err != nil {
		var statusErr *httpjson.StatusError
		if errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound {
			return nil, errors.Join(gateway.ErrNotFound, err)
		}
		return nil, err
	}
	return &m, nil
}
