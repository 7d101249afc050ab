package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/deppfellow/magnetite/internal/errs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg)

	p.CacheHit("page")
	p.CacheHit("page")
	p.CacheMiss("user")
	p.CacheExpired(3)
	p.CacheExpired(0)
	p.StoreCall("get_page", time.Millisecond, nil)
	p.StoreCall("get_page", time.Millisecond, fmt.Errorf("get: %w", errs.ErrNotFound))

	if got := testutil.ToFloat64(p.cacheHits.WithLabelValues("page")); got != 2 {
		t.Fatalf("page hits = %v, want 2", got)
	}
	if got := testutil.ToFloat64(p.cacheMisses.WithLabelValues("user")); got != 1 {
		t.Fatalf("user misses = %v, want 1", got)
	}
	if got := testutil.ToFloat64(p.cacheExpired); got != 3 {
		t.Fatalf("expired = %v, want 3", got)
	}
	if got := testutil.ToFloat64(p.storeCalls.WithLabelValues("get_page", "not_found")); got != 1 {
		t.Fatalf("not_found calls = %v, want 1", got)
	}
}

func TestResult(t *testing.T) {
	tests := map[string]error{
		"ok":          nil,
		"not_found":   errs.ErrNotFound,
		"conflict":    fmt.Errorf("insert: %w", errs.ErrConflict),
		"unavailable": errs.ErrStoreUnavailable,
		"error":       fmt.Errorf("boom"),
	}
	for want, err := range tests {
		if got := Result(err); got != want {
			t.Errorf("Result(%v) = %q, want %q", err, got, want)
		}
	}
}
