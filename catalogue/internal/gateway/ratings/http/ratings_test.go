package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salim16/microservices-kaushik/catalogue/internal/gateway"
	"github.com/salim16/microservices-kaushik/catalogue/pkg/model"
	"github.com/salim16/microservices-kaushik/catalogue/pkg/testutil"
	"github.com/salim16/microservices-kaushik/pkg/discovery"
	"github.com/salim16/microservices-kaushik/pkg/discovery/locator"
	"github.com/salim16/microservices-kaushik/pkg/discovery/memory"
	"github.com/salim16/microservices-kaushik/pkg/httpjson"
	"github.com/salim16/microservices-kaushik/pkg/retry"
)

func register(t *testing.T, reg *memory.Registry, id string, srv *httptest.Server) {
	t.Helper()
	require.NoError(t, reg.Register(context.Background(), id, DefaultServiceName, srv.Listener.Addr().String()))
}

func TestGetUserRating(t *testing.T) {
	ratings := testutil.NewTestRatingsServer(map[string][]model.Rating{
		"u1": {{MovieID: "m1", Rating: 4}, {MovieID: "m2", Rating: 5}},
	})
	defer ratings.Close()

	reg := memory.NewRegistry()
	register(t, reg, "r-1", ratings.Server)
	g := New(locator.New(reg, time.Hour, nil), httpjson.NewClient(time.Second), "", retry.NoRetry, nil)

	got, err := g.GetUserRating(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, &model.UserRating{UserRating: []model.Rating{{MovieID: "m1", Rating: 4}, {MovieID: "m2", Rating: 5}}}, got)

	_, err = g.GetUserRating(context.Background(), "nobody")
	assert.ErrorIs(t, err, gateway.ErrNotFound)
}

func TestGetUserRatingNoInstance(t *testing.T) {
	g := New(locator.New(memory.NewRegistry(), time.Hour, nil), httpjson.NewClient(time.Second), "", retry.NoRetry, nil)
	_, err := g.GetUserRating(context.Background(), "u1")
	assert.ErrorIs(t, err, discovery.ErrNoInstanceAvailable)
}

func TestGetUserRatingRetriesOnAnotherInstance(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer broken.Close()
	ratings := testutil.NewTestRatingsServer(map[string][]model.Rating{"u1": {{MovieID: "m1", Rating: 3}}})
	defer ratings.Close()

	reg := memory.NewRegistry()
	register(t, reg, "a-broken", broken)
	register(t, reg, "b-ok", ratings.Server)
	policy := retry.Policy{MaxAttempts: 2, InitialBackoff: time.Millisecond}
	g := New(locator.New(reg, time.Hour, nil), httpjson.NewClient(time.Second), "", policy, nil)

	got, err := g.GetUserRating(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, got.UserRating, 1)
	assert.Equal(t, 1, ratings.Hits("/ratingsdata/users/u1"))
}

func TestGetUserRatingDoesNotRetryClientErrors(t *testing.T) {
	ratings := testutil.NewTestRatingsServer(map[string][]model.Rating{})
	defer ratings.Close()

	reg := memory.NewRegistry()
	register(t, reg, "r-1", ratings.Server)
	policy := retry.Policy{MaxAttempts: 3, InitialBackoff: time.Millisecond}
	g := New(locator.New(reg, time.Hour, nil), httpjson.NewClient(time.Second), "", policy, nil)

	_, err := g.GetUserRating(context.Background(), "u1")
	assert.ErrorIs(t, err, gateway.ErrNotFound)
	assert.Equal(t, 1, ratings.Hits("/ratingsdata/users/u1"))
}
