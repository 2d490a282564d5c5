package listing

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts listing fetches. A nil *Metrics records nothing.
type Metrics struct {
	fetches  *prometheus.CounterVec
	stale    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the listing collectors and registers them with reg when non-nil.
// Collectors already registered with reg are reused.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orders_admin",
			Subsystem: "listing",
			Name:      "fetches_total",
			Help:      "Listing fetches by list and outcome.",
		}, []string{"list", "outcome"}),
		stale: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orders_admin",
			Subsystem: "listing",
			Name:      "stale_responses_total",
			Help:      "Responses discarded because a newer request superseded them.",
		}, []string{"list"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "orders_admin",
			Subsystem: "listing",
			Name:      "fetch_duration_seconds",
			Help:      "Latency of listing fetches.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"list"}),
	}
	if reg == nil {
		return m
	}
	m.fetches = register(reg, m.fetches)
	m.stale = register(reg, m.stale)
	m.duration = register(reg, m.duration)
	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

func (m *Metrics) observeFetch(list string, started time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.fetches.WithLabelValues(list, outcome).Inc()
	m.duration.WithLabelValues(list).Observe(time.Since(started).Seconds())
}

func (m *Metrics) observeStale(list string) {
	if m == nil {
		return
	}
	m.stale.WithLabelValues(list).Inc()
}
