// Package cache implements the time-bounded cache in front of the store.
//
// Entries are keyed by a tagged Key (page path or user id) and hold a value
// snapshot with an absolute expiry. Get never checks expiry; a background
// sweep removes expired entries every SweepInterval. A value may therefore be
// served up to one SweepInterval past its TTL, which is accepted.
//
// The table is guarded by one mutex because two goroutines touch it: the
// content service's command loop (the only writer of values) and the sweep.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/deppfellow/magnetite/internal/metrics"
	"github.com/deppfellow/magnetite/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Kind tags what a Key refers to.
type Kind uint8

const (
	KindPage Kind = iota + 1
	KindUser
)

func (k Kind) String() string {
	switch k {
	case KindPage:
		return "page"
	case KindUser:
		return "user"
	default:
		return "unknown"
	}
}

// Key identifies one cached entity.
type Key struct {
	Kind Kind
	ID   string
}

// PageKey returns the key of the page at path.
func PageKey(path string) Key { return Key{Kind: KindPage, ID: path} }

// UserKey returns the key of the admin user with id.
func UserKey(id uuid.UUID) Key { return Key{Kind: KindUser, ID: id.String()} }

// Config controls expiry.
type Config struct {
	TTL           time.Duration
	SweepInterval time.Duration
}

type entry struct {
	value     any
	expiresAt time.Time
}

// Cache is a mutex-guarded map with a background expiry sweep.
//
// Cache owns its sweep goroutine. Close stops it and waits for it to exit.
type Cache struct {
	mu    sync.Mutex
	items map[Key]entry

	ttl        time.Duration
	sweepEvery time.Duration
	now        func() time.Time

	metrics metrics.Recorder
	logger  zerolog.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Option customizes a Cache.
type Option func(*Cache)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithMetrics sets the recorder expiry counts are reported to.
func WithMetrics(r metrics.Recorder) Option {
	return func(c *Cache) { c.metrics = r }
}

// New creates a cache and starts its sweep.
//
// The sweep stops when ctx is cancelled or Close is called, whichever comes
// first. A non-positive SweepInterval disables the sweep.
func New(ctx context.Context, cfg Config, logger *zerolog.Logger, opts ...Option) *Cache {
	sweepCtx, cancel := context.WithCancel(ctx)

	c := &Cache{
		items:      make(map[Key]entry),
		ttl:        cfg.TTL,
		sweepEvery: cfg.SweepInterval,
		now:        time.Now,
		metrics:    metrics.Noop{},
		logger:     logger.With().Str("component", "cache").Logger(),
		cancel:     cancel,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.sweepEvery > 0 {
		c.wg.Add(1)
		go c.sweepLoop(sweepCtx)
	}

	return c
}

// Get returns the value stored under key. Expiry is not checked.
func (c *Cache) Get(key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		return nil, false
	}
	return e.value, true
}

// Set stores v under key with expiry now+TTL, overwriting any previous
// entry.
func (c *Cache) Set(key Key, v any) {
	expiresAt := c.now().Add(c.ttl)

	c.mu.Lock()
	c.items[key] = entry{value: v, expiresAt: expiresAt}
	c.mu.Unlock()
}

// Delete removes key. Removing an absent key is a no-op.
func (c *Cache) Delete(key Key) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Len returns the number of entries, including expired ones the sweep has
// not reached yet.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// GetPage returns a copy of the cached page at path.
func (c *Cache) GetPage(path string) (model.Page, bool) {
	v, ok := c.Get(PageKey(path))
	if !ok {
		return model.Page{}, false
	}
	page, ok := v.(model.Page)
	if !ok {
		return model.Page{}, false
	}
	return page.Clone(), true
}

// SetPage caches a copy of page under its path.
func (c *Cache) SetPage(page model.Page) {
	c.Set(PageKey(page.Path), page.Clone())
}

// GetUser returns the cached admin user with id.
func (c *Cache) GetUser(id uuid.UUID) (model.AdminUser, bool) {
	v, ok := c.Get(UserKey(id))
	if !ok {
		return model.AdminUser{}, false
	}
	user, ok := v.(model.AdminUser)
	return user, ok
}

// SetUser caches user under its id.
func (c *Cache) SetUser(user model.AdminUser) {
	c.Set(UserKey(user.ID), user)
}

// Sweep removes every entry whose expiry is before now and returns how many
// were removed.
func (c *Cache) Sweep(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, e := range c.items {
		if now.After(e.expiresAt) {
			delete(c.items, key)
			removed++
		}
	}
	return removed
}

// Close stops the sweep and waits for it to return. It is safe to call more
// than once. Entries stay readable after Close.
func (c *Cache) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		c.wg.Wait()
		c.logger.Debug().Msg("cache sweep stopped")
	})
}

func (c *Cache) sweepLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.Sweep(c.now()); n > 0 {
				c.metrics.CacheExpired(n)
				c.logger.Debug().Int("count", n).Msg("evicted expired entries")
			}
		}
	}
}
