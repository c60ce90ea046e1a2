// Package metrics defines and registers the custom Prometheus metrics for the
// alexandria API. It is the single source of truth for metric names, labels,
// and help strings.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/MrxHuang/alexandriaBackend/internal/core/ports"
)

const namespace = "alexandria"

// ── Ledger metrics ────────────────────────────────────────────────────────────

// LoanOperationsTotal counts loan ledger calls by outcome.
// Labels:
//   - operation: "borrow", "return" or "delete"
//   - result: "ok", "unavailable", "limit_exceeded", "already_returned", "not_found", "error"
var LoanOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "loan_operations_total",
		Help:      "Total number of loan ledger operations, by operation and result.",
	},
	[]string{"operation", "result"},
)

// ── Identity metrics ──────────────────────────────────────────────────────────

// LoginsTotal counts sign-in attempts.
// Labels:
//   - method: "password" or "external"
//   - result: "ok", "created", "rejected", "unavailable", "error"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by method and result.",
	},
	[]string{"method", "result"},
)

// ── Cache metrics ─────────────────────────────────────────────────────────────

// CacheCollector exports the per-region counters of a cache at scrape time.
type CacheCollector struct {
	cache   ports.Cache
	regions []string

	hits      *prometheus.Desc
	misses    *prometheus.Desc
	evictions *prometheus.Desc
	size      *prometheus.Desc
}

func NewCacheCollector(cache ports.Cache, regions ...string) *CacheCollector {
	label := []string{"region"}
	return &CacheCollector{
		cache:     cache,
		regions:   regions,
		hits:      prometheus.NewDesc(namespace+"_cache_hits_total", "Cache hits per region.", label, nil),
		misses:    prometheus.NewDesc(namespace+"_cache_misses_total", "Cache misses per region.", label, nil),
		evictions: prometheus.NewDesc(namespace+"_cache_evictions_total", "Capacity evictions per region.", label, nil),
		size:      prometheus.NewDesc(namespace+"_cache_entries", "Entries currently held per region.", label, nil),
	}
}

func (c *CacheCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.misses
	ch <- c.evictions
	ch <- c.size
}

func (c *CacheCollector) Collect(ch chan<- prometheus.Metric) {
	for _, r := range c.regions {
		st := c.cache.Stats(r)
		ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(st.Hits), r)
		ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(st.Misses), r)
		ch <- prometheus.MustNewConstMetric(c.evictions, prometheus.CounterValue, float64(st.Evictions), r)
		ch <- prometheus.MustNewConstMetric(c.size, prometheus.GaugeValue, float64(st.Size), r)
	}
}
