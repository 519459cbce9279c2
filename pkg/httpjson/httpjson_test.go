package httpjson

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salim16/microservices-kaushik/pkg/discovery"
)

type movie struct {
	MovieID string `json:"movieId"`
	Name    string `json:"name"`
}

func instanceOf(t *testing.T, srv *httptest.Server) discovery.Instance {
	t.Helper()
	inst, err := discovery.ParseHostPort("test", srv.Listener.Addr().String())
	require.NoError(t, err)
	return inst
}

func TestGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/movies/m1":
			assert.Equal(t, "application/json", r.Header.Get("Accept"))
			_, _ = w.Write([]byte(`{"movieId":"m1","name":"A"}`))
		case "/movies/bad":
			_, _ = w.Write([]byte(`{"movieId":`))
		case "/movies/shape":
			_, _ = w.Write([]byte(`["not","an","object"]`))
		case "/movies/boom":
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("upstream exploded"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(time.Second)
	inst := instanceOf(t, srv)
	ctx := context.Background()

	got, err := Get[movie](ctx, c, inst, "/movies/m1")
	require.NoError(t, err)
	assert.Equal(t, movie{MovieID: "m1", Name: "A"}, got)

	_, err = Get[movie](ctx, c, inst, "/movies/missing")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.Code)
	assert.False(t, Retryable(err))

	_, err = Get[movie](ctx, c, inst, "/movies/boom")
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.Code)
	assert.Equal(t, "upstream exploded", string(statusErr.Body))
	assert.True(t, Retryable(err))

	var decodeErr *DecodeError
	_, err = Get[movie](ctx, c, inst, "/movies/bad")
	assert.ErrorAs(t, err, &decodeErr)
	_, err = Get[movie](ctx, c, inst, "/movies/shape")
	assert.ErrorAs(t, err, &decodeErr)
	assert.False(t, Retryable(err))
}

func TestGetTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := Get[movie](context.Background(), NewClient(50*time.Millisecond), instanceOf(t, srv), "/movies/m2")
	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.True(t, Retryable(err))
}

func TestGetConnectionError(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := lis.Addr().String()
	require.NoError(t, lis.Close())

	inst, err := discovery.ParseHostPort("test", addr)
	require.NoError(t, err)
	_, err = Get[movie](context.Background(), NewClient(time.Second), inst, "/movies/m1")
	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, addr, connErr.Addr)
	assert.True(t, Retryable(err))
}

func TestGetCanceled(t *testing.T) {
	started := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()
	_, err := Get[movie](ctx, NewClient(5*time.Second), instanceOf(t, srv), "/movies/m1")
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, Retryable(err))
}
