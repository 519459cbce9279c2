// Package locator resolves logical service names to a single instance using
// a periodically refreshed cache of registry data.
//
// The cache is an immutable snapshot swapped atomically on every refresh, so
// Resolve never takes a lock. Refreshes are serialized among themselves.
package locator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/salim16/microservices-kaushik/pkg/discovery"
)

// DefaultRefreshInterval matches the typical registry heartbeat cadence.
const DefaultRefreshInterval = 30 * time.Second

type serviceSet struct {
	healthy []discovery.Instance
	total   int
}

type snapshot struct {
	services map[string]*serviceSet
}

// Locator picks instances round-robin among the healthy instances of a service.
type Locator struct {
	lister   discovery.Lister
	interval time.Duration
	logger   *zap.Logger

	cache    atomic.Pointer[snapshot]
	counters sync.Map // service name -> *atomic.Uint64

	mu       sync.Mutex // serializes refresh and swap
	services map[string]struct{}

	lifeMu sync.Mutex // guards cancel
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a locator polling lister every interval. The given services are
// loaded on Start; any other service is loaded the first time it is resolved.
func New(lister discovery.Lister, interval time.Duration, logger *zap.Logger, services ...string) *Locator {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Locator{
		lister:   lister,
		interval: interval,
		logger:   logger,
		services: make(map[string]struct{}, len(services)),
	}
	for _, s := range services {
		l.services[s] = struct{}{}
	}
	l.cache.Store(&snapshot{services: map[string]*serviceSet{}})
	return l
}

// Start performs an initial refresh and then keeps refreshing in the
// background until ctx is done or Stop is called. Only the first call has
// any effect.
func (l *Locator) Start(ctx context.Context) {
	l.lifeMu.Lock()
	defer l.lifeMu.Unlock()
	if l.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.Refresh(ctx)

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		ticker := time.NewTicker(l.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.Refresh(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
	l.logger.Info("Service locator started", zap.Duration("interval", l.interval))
}

// Stop ends background refreshing and waits for it to exit.
func (l *Locator) Stop() {
	l.lifeMu.Lock()
	cancel := l.cancel
	l.lifeMu.Unlock()
	if cancel != nil {
		cancel()
	}
	l.wg.Wait()
}

// Refresh re-lists every tracked service and swaps in a new snapshot. A
// service whose listing fails keeps its previous instances.
func (l *Locator) Refresh(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	old := l.cache.Load()
	next := &snapshot{services: make(map[string]*serviceSet, len(l.services))}
	for name := range l.services {
		set, err := l.list(ctx, name)
		if err != nil {
			l.logger.Warn("Failed to refresh service instances",
				zap.String("service", name), zap.Error(err))
			if prev, ok := old.services[name]; ok {
				next.services[name] = prev
			}
			continue
		}
		next.services[name] = set
	}
	l.cache.Store(next)
}

// Resolve returns the next healthy instance of the service.
func (l *Locator) Resolve(ctx context.Context, serviceName string) (discovery.Instance, error) {
	set, ok := l.cache.Load().services[serviceName]
	if !ok {
		var err error
		if set, err = l.load(ctx, serviceName); err != nil {
			return discovery.Instance{}, fmt.Errorf("%w: %s: %v", discovery.ErrNoInstanceAvailable, serviceName, err)
		}
	}
	if len(set.healthy) == 0 {
		return discovery.Instance{}, fmt.Errorf("%w: %s (%d known, none healthy)",
			discovery.ErrNoInstanceAvailable, serviceName, set.total)
	}
	n := l.counter(serviceName).Add(1) - 1
	return set.healthy[n%uint64(len(set.healthy))], nil
}

// load fetches a service that is not yet in the cache and starts tracking it.
func (l *Locator) load(ctx context.Context, serviceName string) (*serviceSet, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	old := l.cache.Load()
	if set, ok := old.services[serviceName]; ok {
		return set, nil
	}
	set, err := l.list(ctx, serviceName)
	if err != nil {
		return nil, err
	}
	next := &snapshot{services: make(map[string]*serviceSet, len(old.services)+1)}
	for k, v := range old.services {
		next.services[k] = v
	}
	next.services[serviceName] = set
	l.services[serviceName] = struct{}{}
	l.cache.Store(next)
	return set, nil
}

// list turns a registry listing into a service set. An unknown service is an
// empty set rather than an error.
func (l *Locator) list(ctx context.Context, serviceName string) (*serviceSet, error) {
	insts, err := l.lister.ListInstances(ctx, serviceName)
	if errors.Is(err, discovery.ErrNotFound) {
		return &serviceSet{}, nil
	} else if err != nil {
		return nil, err
	}
	set := &serviceSet{total: len(insts)}
	for _, i := range insts {
		if i.Healthy {
			set.healthy = append(set.healthy, i)
		}
	}
	return set, nil
}

func (l *Locator) counter(serviceName string) *atomic.Uint64 {
	if c, ok := l.counters.Load(serviceName); ok {
		return c.(*atomic.Uint64)
	}
	c, _ := l.counters.LoadOrStore(serviceName, new(atomic.Uint64))
	return c.(*atomic.Uint64)
}
