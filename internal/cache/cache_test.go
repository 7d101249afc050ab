package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/deppfellow/magnetite/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type expiredCounter struct {
	mu sync.Mutex
	n  int
}

func (e *expiredCounter) CacheHit(string)                        {}
func (e *expiredCounter) CacheMiss(string)                       {}
func (e *expiredCounter) StoreCall(string, time.Duration, error) {}
func (e *expiredCounter) CacheExpired(n int) {
	e.mu.Lock()
	e.n += n
	e.mu.Unlock()
}

func (e *expiredCounter) total() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.n
}

func newTestCache(t *testing.T, cfg Config, opts ...Option) *Cache {
	t.Helper()
	logger := zerolog.Nop()
	c := New(context.Background(), cfg, &logger, opts...)
	t.Cleanup(c.Close)
	return c
}

func TestSetGetDelete(t *testing.T) {
	c := newTestCache(t, Config{TTL: time.Minute})

	page := model.Page{Path: "/about", Metadata: []string{"<title>About</title>"}, Body: "hi"}
	c.SetPage(page)

	got, ok := c.GetPage("/about")
	if !ok {
		t.Fatal("expected page in cache")
	}
	if got.Body != "hi" || len(got.Metadata) != 1 {
		t.Fatalf("unexpected page: %+v", got)
	}

	c.Delete(PageKey("/about"))
	if _, ok := c.GetPage("/about"); ok {
		t.Fatal("expected page to be evicted")
	}

	// Deleting again is a no-op.
	c.Delete(PageKey("/about"))
}

func TestPageSnapshotsAreIsolated(t *testing.T) {
	c := newTestCache(t, Config{TTL: time.Minute})

	page := model.Page{Path: "/", Metadata: []string{"a"}}
	c.SetPage(page)
	page.Metadata[0] = "mutated by caller"

	got, _ := c.GetPage("/")
	if got.Metadata[0] != "a" {
		t.Fatalf("cache aliased caller slice: %q", got.Metadata[0])
	}

	got.Metadata[0] = "mutated by reader"
	again, _ := c.GetPage("/")
	if again.Metadata[0] != "a" {
		t.Fatalf("cache aliased reader slice: %q", again.Metadata[0])
	}
}

func TestKindsDoNotCollide(t *testing.T) {
	c := newTestCache(t, Config{TTL: time.Minute})

	id := uuid.New()
	c.SetUser(model.AdminUser{ID: id, Username: "root"})
	c.Set(Key{Kind: KindPage, ID: id.String()}, model.Page{Path: id.String()})

	user, ok := c.GetUser(id)
	if !ok || user.Username != "root" {
		t.Fatalf("user lookup: ok=%v user=%+v", ok, user)
	}
	if c.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", c.Len())
	}
}

func TestGetIgnoresExpiryUntilSweep(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	c := newTestCache(t, Config{TTL: time.Second}, WithClock(clock.Now))

	c.SetPage(model.Page{Path: "/old"})
	clock.Advance(5 * time.Second)

	if _, ok := c.GetPage("/old"); !ok {
		t.Fatal("expired entry should still be served before a sweep")
	}

	if n := c.Sweep(clock.Now()); n != 1 {
		t.Fatalf("expected 1 swept entry, got %d", n)
	}
	if _, ok := c.GetPage("/old"); ok {
		t.Fatal("expected entry to be gone after sweep")
	}
}

func TestSweepKeepsFreshEntries(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	c := newTestCache(t, Config{TTL: 10 * time.Second}, WithClock(clock.Now))

	c.SetPage(model.Page{Path: "/a"})
	clock.Advance(6 * time.Second)
	c.SetPage(model.Page{Path: "/b"})
	// Overwriting refreshes the expiry.
	c.SetPage(model.Page{Path: "/a", Body: "v2"})
	clock.Advance(6 * time.Second)

	if n := c.Sweep(clock.Now()); n != 0 {
		t.Fatalf("expected nothing swept, got %d", n)
	}

	// Exactly at expiry is not yet expired.
	clock.Advance(4 * time.Second)
	if n := c.Sweep(clock.Now()); n != 0 {
		t.Fatalf("expected nothing swept at expiry instant, got %d", n)
	}

	clock.Advance(time.Nanosecond)
	if n := c.Sweep(clock.Now()); n != 2 {
		t.Fatalf("expected 2 swept entries, got %d", n)
	}
}

func TestBackgroundSweep(t *testing.T) {
	rec := &expiredCounter{}
	c := newTestCache(t, Config{TTL: 10 * time.Millisecond, SweepInterval: 5 * time.Millisecond}, WithMetrics(rec))

	c.SetPage(model.Page{Path: "/tmp"})

	deadline := time.Now().Add(2 * time.Second)
	for c.Len() > 0 {
		if time.Now().After(deadline) {
			t.Fatal("background sweep never removed the entry")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if rec.total() != 1 {
		t.Fatalf("expected 1 expired entry recorded, got %d", rec.total())
	}
}

func TestCloseStopsSweep(t *testing.T) {
	logger := zerolog.Nop()
	c := New(context.Background(), Config{TTL: time.Millisecond, SweepInterval: time.Millisecond}, &logger)

	done := make(chan struct{})
	go func() {
		c.Close()
		c.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return")
	}

	c.SetPage(model.Page{Path: "/after-close"})
	time.Sleep(20 * time.Millisecond)
	if _, ok := c.GetPage("/after-close"); !ok {
		t.Fatal("entry removed after the sweep was stopped")
	}
}

func TestParentCancelStopsSweep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	logger := zerolog.Nop()
	c := New(ctx, Config{TTL: time.Millisecond, SweepInterval: time.Millisecond}, &logger)

	cancel()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweep did not stop on parent cancellation")
	}
	c.Close()
}
