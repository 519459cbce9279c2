package locator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salim16/microservices-kaushik/pkg/discovery"
	"github.com/salim16/microservices-kaushik/pkg/discovery/memory"
)

type fakeLister struct {
	mu        sync.Mutex
	instances map[string][]discovery.Instance
	err       error
	calls     atomic.Int32
}

func (f *fakeLister) ListInstances(_ context.Context, serviceName string) ([]discovery.Instance, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	insts, ok := f.instances[serviceName]
	if !ok {
		return nil, discovery.ErrNotFound
	}
	return insts, nil
}

func (f *fakeLister) set(serviceName string, insts []discovery.Instance, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.instances == nil {
		f.instances = map[string][]discovery.Instance{}
	}
	f.instances[serviceName] = insts
	f.err = err
}

func inst(id string, port int, healthy bool) discovery.Instance {
	return discovery.Instance{ServiceName: "movie-info-service", InstanceID: id, Host: "localhost", Port: port, Healthy: healthy}
}

func TestResolveRoundRobin(t *testing.T) {
	lister := &fakeLister{}
	lister.set("movie-info-service", []discovery.Instance{inst("a", 8082, true), inst("b", 8201, true)}, nil)
	l := New(lister, time.Hour, nil, "movie-info-service")
	l.Refresh(context.Background())

	seen := map[string]int{}
	for i := 0; i < 3; i++ {
		got, err := l.Resolve(context.Background(), "movie-info-service")
		require.NoError(t, err)
		seen[got.InstanceID]++
	}
	assert.Equal(t, 2, seen["a"])
	assert.Equal(t, 1, seen["b"])
}

func TestResolveSkipsUnhealthy(t *testing.T) {
	lister := &fakeLister{}
	lister.set("movie-info-service", []discovery.Instance{inst("a", 8082, false), inst("b", 8201, true)}, nil)
	l := New(lister, time.Hour, nil)

	for i := 0; i < 4; i++ {
		got, err := l.Resolve(context.Background(), "movie-info-service")
		require.NoError(t, err)
		assert.Equal(t, "b", got.InstanceID)
	}
}

func TestResolveNoInstanceAvailable(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*fakeLister)
	}{
		{name: "unknown service", setup: func(*fakeLister) {}},
		{name: "empty set", setup: func(f *fakeLister) { f.set("movie-info-service", []discovery.Instance{}, nil) }},
		{name: "all unhealthy", setup: func(f *fakeLister) {
			f.set("movie-info-service", []discovery.Instance{inst("a", 8082, false)}, nil)
		}},
		{name: "registry down", setup: func(f *fakeLister) { f.set("movie-info-service", nil, errors.New("connection refused")) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lister := &fakeLister{}
			tt.setup(lister)
			l := New(lister, time.Hour, nil)
			_, err := l.Resolve(context.Background(), "movie-info-service")
			assert.ErrorIs(t, err, discovery.ErrNoInstanceAvailable)
		})
	}
}

func TestResolveLoadsOnce(t *testing.T) {
	lister := &fakeLister{}
	lister.set("movie-info-service", []discovery.Instance{inst("a", 8082, true)}, nil)
	l := New(lister, time.Hour, nil)

	for i := 0; i < 5; i++ {
		_, err := l.Resolve(context.Background(), "movie-info-service")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), lister.calls.Load())
}

func TestRefreshSwapsSnapshot(t *testing.T) {
	lister := &fakeLister{}
	lister.set("movie-info-service", []discovery.Instance{inst("a", 8082, true)}, nil)
	l := New(lister, time.Hour, nil, "movie-info-service")
	l.Refresh(context.Background())

	before := l.cache.Load()
	lister.set("movie-info-service", []discovery.Instance{inst("b", 8201, true)}, nil)
	l.Refresh(context.Background())

	assert.Equal(t, "a", before.services["movie-info-service"].healthy[0].InstanceID, "old snapshot is never mutated")
	got, err := l.Resolve(context.Background(), "movie-info-service")
	require.NoError(t, err)
	assert.Equal(t, "b", got.InstanceID)
}

func TestRefreshKeepsLastGoodOnError(t *testing.T) {
	lister := &fakeLister{}
	lister.set("movie-info-service", []discovery.Instance{inst("a", 8082, true)}, nil)
	l := New(lister, time.Hour, nil, "movie-info-service")
	l.Refresh(context.Background())

	lister.set("movie-info-service", nil, errors.New("registry timeout"))
	l.Refresh(context.Background())

	got, err := l.Resolve(context.Background(), "movie-info-service")
	require.NoError(t, err)
	assert.Equal(t, "a", got.InstanceID)
}

func TestStartRefreshesPeriodically(t *testing.T) {
	reg := memory.NewRegistry()
	ctx := context.Background()
	l := New(reg, 20*time.Millisecond, nil, "ratings-service")
	l.Start(ctx)
	defer l.Stop()

	_, err := l.Resolve(ctx, "ratings-service")
	require.ErrorIs(t, err, discovery.ErrNoInstanceAvailable)

	require.NoError(t, reg.Register(ctx, "r-1", "ratings-service", "localhost:8083"))
	assert.Eventually(t, func() bool {
		got, err := l.Resolve(ctx, "ratings-service")
		return err == nil && got.Addr() == "localhost:8083"
	}, time.Second, 10*time.Millisecond)
}

func TestResolveConcurrentWithRefresh(t *testing.T) {
	lister := &fakeLister{}
	lister.set("movie-info-service", []discovery.Instance{inst("a", 8082, true), inst("b", 8201, true)}, nil)
	l := New(lister, time.Hour, nil, "movie-info-service")
	l.Refresh(context.Background())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, err := l.Resolve(context.Background(), "movie-info-service")
				assert.NoError(t, err)
			}
		}()
	}
	for i := 0; i < 10; i++ {
		l.Refresh(context.Background())
	}
	wg.Wait()
}

func TestStartTwiceThenStop(t *testing.T) {
	lister := &fakeLister{}
	lister.set("movie-info-service", []discovery.Instance{inst("a", 8082, true)}, nil)
	l := New(lister, time.Hour, nil, "movie-info-service")
	l.Start(context.Background())
	l.Start(context.Background())
	assert.Equal(t, int32(1), lister.calls.Load(), "second Start must not refresh again")

	stopped := make(chan struct{})
	go func() {
		l.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after a repeated Start")
	}
}
