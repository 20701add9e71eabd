// Package prom exports cache metrics to Prometheus.
package prom

import (
	"github.com/IvanBrykalov/lfucache/cache"
	"github.com/prometheus/client_golang/prometheus"
)

// Adapter implements cache.Metrics and exports Prometheus counters,
// an eviction batch-size histogram and, once Track is called, an entry gauge.
// Safe for concurrent use; all Prometheus metric types are goroutine-safe.
type Adapter struct {
	reg         prometheus.Registerer
	ns, sub     string
	constLabels prometheus.Labels

	hits    prometheus.Counter
	misses  prometheus.Counter
	evicts  *prometheus.CounterVec
	batches prometheus.Histogram
}

// New constructs a Prometheus metrics adapter.
//   - reg:          registry to register metrics with (nil => prometheus.DefaultRegisterer)
//   - ns, sub:      Prometheus namespace and subsystem
//   - constLabels:  static labels applied to all metrics (may be nil)
func New(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *Adapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	a := &Adapter{
		reg:         reg,
		ns:          ns,
		sub:         sub,
		constLabels: constLabels,
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "hits_total",
			Help:        "Cache hits",
			ConstLabels: constLabels,
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "misses_total",
			Help:        "Cache misses",
			ConstLabels: constLabels,
		}),
		evicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        "evictions_total",
				Help:        "Entries removed from the cache by reason",
				ConstLabels: constLabels,
			},
			[]string{"reason"},
		),
		batches: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "eviction_batch_size",
			Help:        "Entries removed per eviction episode",
			ConstLabels: constLabels,
			Buckets:     prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}
	reg.MustRegister(a.hits, a.misses, a.evicts, a.batches)
	return a
}

// Hit increments the hit counter.
func (a *Adapter) Hit() { a.hits.Inc() }

// Miss increments the miss counter.
func (a *Adapter) Miss() { a.misses.Inc() }

// Evict increments the eviction counter with a reason label.
func (a *Adapter) Evict(r cache.EvictReason) {
	a.evicts.WithLabelValues(r.String()).Inc()
}

// EvictBatch records the size of one eviction episode.
func (a *Adapter) EvictBatch(n int) { a.batches.Observe(float64(n)) }

// Track registers a size_entries gauge that reads c.Len() at scrape time.
// c is read from the scrape goroutine, so it must be safe for concurrent
// use (a cache.Cache is; a bare cache.LFU is not). Call it at most once per
// Adapter.
func (a *Adapter) Track(c interface{ Len() int }) {
	a.reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   a.ns,
		Subsystem:   a.sub,
		Name:        "size_entries",
		Help:        "Number of resident entries",
		ConstLabels: a.constLabels,
	}, func() float64 { return float64(c.Len()) }))
}

// Compile-time check: ensure Adapter implements cache.Metrics.
var _ cache.Metrics = (*Adapter)(nil)
