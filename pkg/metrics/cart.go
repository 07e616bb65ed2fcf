package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CartMetrics records cart mutations and snapshot persistence.
type CartMetrics struct {
	mutations       *prometheus.CounterVec
	persistDuration *prometheus.HistogramVec
	persistFailures *prometheus.CounterVec
	coalesced       prometheus.Counter
	lineItems       prometheus.Gauge
}

// NewCartMetrics registers the cart metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_mutations_total",
		Help: "Cart mutations by operation and result.",
	}, []string{"op", "result"})
	persistDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cart_persist_duration_seconds",
		Help:    "Duration of cart snapshot writes in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"backend"})
	persistFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_persist_failures_total",
		Help: "Failed cart snapshot write attempts.",
	}, []string{"backend"})
	coalesced := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cart_persist_coalesced_total",
		Help: "Pending snapshots replaced by a newer one before being written.",
	})
	lineItems := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cart_line_items",
		Help: "Distinct line items currently in the cart.",
	})
	reg.MustRegister(mutations, persistDuration, persistFailures, coalesced, lineItems)
	return &CartMetrics{
		mutations:       mutations,
		persistDuration: persistDuration,
		persistFailures: persistFailures,
		coalesced:       coalesced,
		lineItems:       lineItems,
	}
}

// ObserveMutation counts a mutation attempt. result is "ok" or an error code.
func (c *CartMetrics) ObserveMutation(op, result string) {
	if c == nil || c.mutations == nil {
		return
	}
	c.mutations.WithLabelValues(normalizeLabel(op), normalizeLabel(result)).Inc()
}

// ObservePersist records a snapshot write duration for the backend.
func (c *CartMetrics) ObservePersist(backend string, duration time.Duration) {
	if c == nil || c.persistDuration == nil {
		return
	}
	c.persistDuration.WithLabelValues(normalizeLabel(backend)).Observe(duration.Seconds())
}

// IncPersistFailure counts a failed snapshot write attempt.
func (c *CartMetrics) IncPersistFailure(backend string) {
	if c == nil || c.persistFailures == nil {
		return
	}
	c.persistFailures.WithLabelValues(normalizeLabel(backend)).Inc()
}

// IncCoalesced counts a pending snapshot that was superseded.
func (c *CartMetrics) IncCoalesced() {
	if c == nil || c.coalesced == nil {
		return
	}
	c.coalesced.Inc()
}

// SetLineItems reports the current number of distinct line items.
func (c *CartMetrics) SetLineItems(n int) {
	if c == nil || c.lineItems == nil {
		return
	}
	c.lineItems.Set(float64(n))
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
