package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/matsen/citeweave/internal/reference"
)

// DefaultTTL is how long resolved records stay fresh.
const DefaultTTL = 30 * 24 * time.Hour

// Cache fronts a Store with single-flight loading.
type Cache struct {
	store Store
	ttl   time.Duration
	log   *zap.Logger

	group   singleflight.Group
	mu      sync.Mutex
	flights map[string]*flight
}

// flight is the shared context of one in-progress load. It is cancelled
// when its last waiter leaves, so abandoned loads do not outlive callers.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL sets the entry lifetime. Zero or less never expires.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Cache) {
		if log != nil {
			c.log = log
		}
	}
}

// New creates a cache over store. A nil store gets a MemoryStore.
func New(store Store, opts ...Option) *Cache {
	if store == nil {
		store = NewMemoryStore()
	}
	c := &Cache{
		store:   store,
		ttl:     DefaultTTL,
		log:     zap.NewNop(),
		flights: make(map[string]*flight),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store returns the underlying store.
func (c *Cache) Store() Store { return c.store }

// Get returns the cached record for key. Store errors count as misses.
func (c *Cache) Get(ctx context.Context, key string) (reference.Metadata, bool) {
	if key == "" {
		return reference.Metadata{}, false
	}
	e, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		return reference.Metadata{}, false
	}
	return e.Metadata, ok
}

// Put stores m under key. Unresolved placeholders are never cached.
func (c *Cache) Put(ctx context.Context, key string, m reference.Metadata) error {
	if key == "" || m.IsUnresolved() {
		return nil
	}
	return c.store.Put(ctx, key, Entry{Key: key, Metadata: m}, c.ttl)
}

// LoadFunc produces the record for a key on a cache miss.
type LoadFunc func(ctx context.Context) (reference.Metadata, error)

// Do returns the cached record for key, or runs load and writes its
// result through. Concurrent callers with the same key share one load.
// A caller whose ctx ends stops waiting; the load continues while any
// other caller still waits for it.
func (c *Cache) Do(ctx context.Context, key string, load LoadFunc) (reference.Metadata, error) {
	if key == "" {
		return load(ctx)
	}
	if m, ok := c.Get(ctx, key); ok {
		c.log.Debug("cache hit", zap.String("key", key))
		return m, nil
	}

	// A waiter can attach to a load whose flight was cancelled just as its
	// last waiter left; retry once with a fresh flight. The finished call is
	// already gone from the group, so the retry joins any newer load.
	for attempt := 0; ; attempt++ {
		m, err := c.wait(ctx, key, load)
		if err != nil && attempt == 0 && ctx.Err() == nil && errors.Is(err, context.Canceled) {
			continue
		}
		return m, err
	}
}

func (c *Cache) wait(ctx context.Context, key string, load LoadFunc) (reference.Metadata, error) {
	f := c.join(ctx, key)
	defer c.leave(key, f)

	ch := c.group.DoChan(key, func() (any, error) {
		// A load that finished between our miss and this call has
		// already written through.
		if m, ok := c.Get(f.ctx, key); ok {
			return m, nil
		}
		m, err := load(f.ctx)
		if err != nil {
			return m, err
		}
		if err := c.Put(f.ctx, key, m); err != nil {
			c.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		}
		return m, nil
	})

	select {
	case r := <-ch:
		if r.Err != nil {
			return reference.Metadata{}, r.Err
		}
		m := r.Val.(reference.Metadata)
		if r.Shared {
			m = m.Clone()
		}
		return m, nil
	case <-ctx.Done():
		return reference.Metadata{}, ctx.Err()
	}
}

func (c *Cache) join(ctx context.Context, key string) *flight {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.flights[key]
	if !ok {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: fctx, cancel: cancel}
		c.flights[key] = f
	}
	f.waiters++
	return f
}

func (c *Cache) leave(key string, f *flight) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f.waiters--
	if f.waiters == 0 {
		f.cancel()
		if c.flights[key] == f {
			delete(c.flights, key)
		}
	}
}
