// Package metrics records what the data-access core does: cache hits,
// misses and expirations, and the outcome of every store call.
package metrics

import (
	"errors"
	"time"

	"github.com/deppfellow/magnetite/internal/errs"
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder receives events from the cache and the content service.
// Implementations must be safe for concurrent use.
type Recorder interface {
	// CacheHit is called when a read is answered from the cache.
	CacheHit(kind string)

	// CacheMiss is called when a read has to go to the store.
	CacheMiss(kind string)

	// CacheExpired is called after a sweep removed n entries.
	CacheExpired(n int)

	// StoreCall is called after every store operation with its outcome.
	StoreCall(op string, took time.Duration, err error)
}

// Noop discards every event.
type Noop struct{}

func (Noop) CacheHit(string)                        {}
func (Noop) CacheMiss(string)                       {}
func (Noop) CacheExpired(int)                       {}
func (Noop) StoreCall(string, time.Duration, error) {}

// Prometheus is a Recorder backed by Prometheus collectors.
type Prometheus struct {
	cacheHits    *prometheus.CounterVec
	cacheMisses  *prometheus.CounterVec
	cacheExpired prometheus.Counter
	storeCalls   *prometheus.CounterVec
	storeLatency *prometheus.HistogramVec
}

// NewPrometheus creates the collectors and registers them on reg.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	p := &Prometheus{
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "magnetite",
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Reads answered from the cache.",
		}, []string{"kind"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "magnetite",
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Reads that went to the store.",
		}, []string{"kind"}),
		cacheExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "magnetite",
			Subsystem: "cache",
			Name:      "expired_total",
			Help:      "Entries removed by the expiry sweep.",
		}),
		storeCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "magnetite",
			Subsystem: "store",
			Name:      "calls_total",
			Help:      "Store operations by outcome.",
		}, []string{"op", "result"}),
		storeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "magnetite",
			Subsystem: "store",
			Name:      "call_duration_seconds",
			Help:      "Store operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}

	reg.MustRegister(p.cacheHits, p.cacheMisses, p.cacheExpired, p.storeCalls, p.storeLatency)
	return p
}

func (p *Prometheus) CacheHit(kind string)  { p.cacheHits.WithLabelValues(kind).Inc() }
func (p *Prometheus) CacheMiss(kind string) { p.cacheMisses.WithLabelValues(kind).Inc() }

func (p *Prometheus) CacheExpired(n int) {
	if n > 0 {
		p.cacheExpired.Add(float64(n))
	}
}

func (p *Prometheus) StoreCall(op string, took time.Duration, err error) {
	p.storeCalls.WithLabelValues(op, Result(err)).Inc()
	p.storeLatency.WithLabelValues(op).Observe(took.Seconds())
}

// Result buckets a store error into a low-cardinality label value.
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, errs.ErrNotFound):
		return "not_found"
	case errors.Is(err, errs.ErrConflict):
		return "conflict"
	case errors.Is(err, errs.ErrStoreUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
