// Package metrics exposes Prometheus collectors for store dispatches.
//
// This package is internal to pickstore. Collectors are created against a
// caller-supplied [prometheus.Registerer] so that several stores, or several
// tests, can each own an isolated registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const defaultNamespace = "pickstore"

// Collector records dispatch and fan-out activity for one store.
//
// A nil *Collector is valid and records nothing, so callers do not need to
// guard every call site.
type Collector struct {
	dispatches       *prometheus.CounterVec
	notifications    prometheus.Counter
	skipped          prometheus.Counter
	nested           *prometheus.CounterVec
	subscribers      prometheus.Gauge
	dispatchDuration prometheus.Histogram
}

// New registers the store collectors with reg.
//
// storeName is attached as a constant "store" label so that several stores
// can share one registry. Registration panics on duplicate collectors, the
// same as promauto.
func New(reg prometheus.Registerer, storeName string) *Collector {
	factory := promauto.With(reg)
	labels := prometheus.Labels{"store": storeName}

	return &Collector{
		dispatches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   defaultNamespace,
			Name:        "dispatches_total",
			Help:        "Total number of applied dispatches by action kind",
			ConstLabels: labels,
		}, []string{"kind"}),

		notifications: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   defaultNamespace,
			Name:        "notifications_total",
			Help:        "Total number of subscriber notifications fired",
			ConstLabels: labels,
		}),

		skipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   defaultNamespace,
			Name:        "notifications_skipped_total",
			Help:        "Total number of subscribers skipped because their projection did not change",
			ConstLabels: labels,
		}),

		nested: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   defaultNamespace,
			Name:        "nested_dispatches_total",
			Help:        "Total number of dispatches issued during a fan-out, by outcome",
			ConstLabels: labels,
		}, []string{"outcome"}),

		subscribers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   defaultNamespace,
			Name:        "subscribers",
			Help:        "Number of live subscriptions",
			ConstLabels: labels,
		}),

		dispatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   defaultNamespace,
			Name:        "dispatch_duration_seconds",
			Help:        "Time spent computing the next value and fanning out",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(0.000001, 4, 10),
		}),
	}
}

// ObserveDispatch records one applied dispatch.
func (c *Collector) ObserveDispatch(kind string, notified, skipped int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.dispatches.WithLabelValues(kind).Inc()
	c.notifications.Add(float64(notified))
	c.skipped.Add(float64(skipped))
	c.dispatchDuration.Observe(elapsed.Seconds())
}

// ObserveNested records a dispatch issued during a fan-out. outcome is one of
// "queued", "rejected" or "inline".
func (c *Collector) ObserveNested(outcome string) {
	if c == nil {
		return
	}
	c.nested.WithLabelValues(outcome).Inc()
}

// SetSubscribers records the current number of live subscriptions.
func (c *Collector) SetSubscribers(n int) {
	if c == nil {
		return
	}
	c.subscribers.Set(float64(n))
}
