package backend

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks REST API latency. A nil *Metrics records nothing.
type Metrics struct {
	requests *prometheus.HistogramVec
}

// NewMetrics creates the backend collectors and registers them with reg when non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	requests := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "orders_admin",
		Subsystem: "backend",
		Name:      "request_duration_seconds",
		Help:      "Latency of order/return API calls by operation and status code.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "code"})

	if reg != nil {
		if err := reg.Register(requests); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				if existing, ok := already.ExistingCollector.(*prometheus.HistogramVec); ok {
					requests = existing
				}
			}
		}
	}
	return &Metrics{requests: requests}
}

func (m *Metrics) observe(op, code string, started time.Time) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(op, code).Observe(time.Since(started).Seconds())
}
