package metrics

import "github.com/prometheus/client_golang/prometheus"

// AttributionMetrics counts matcher outcomes per tenant-independent label.
type AttributionMetrics struct {
	attempts    *prometheus.CounterVec
	conversions prometheus.Counter
	duplicates  prometheus.Counter
}

// NewAttributionMetrics registers matcher counters on the provided registerer.
func NewAttributionMetrics(reg prometheus.Registerer) *AttributionMetrics {
	if reg == nil {
		return &AttributionMetrics{}
	}
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attribution_match_attempts",
		Help: "Order notifications processed by the attribution matcher.",
	}, []string{"outcome"})
	conversions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "attribution_conversions",
		Help: "Referral clicks transitioned to converted.",
	})
	duplicates := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "attribution_duplicate_orders",
		Help: "Order notifications dropped as duplicates.",
	})
	reg.MustRegister(attempts, conversions, duplicates)
	return &AttributionMetrics{
		attempts:    attempts,
		conversions: conversions,
		duplicates:  duplicates,
	}
}

// IncAttempt records one matcher run with its outcome label.
func (m *AttributionMetrics) IncAttempt(outcome string) {
	if m == nil || m.attempts == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.attempts.WithLabelValues(outcome).Inc()
}

// IncConversion records a successful pending-to-converted transition.
func (m *AttributionMetrics) IncConversion() {
	if m == nil || m.conversions == nil {
		return
	}
	m.conversions.Inc()
}

// IncDuplicate records a duplicate order notification.
func (m *AttributionMetrics) IncDuplicate() {
	if m == nil || m.duplicates == nil {
		return
	}
	m.duplicates.Inc()
}
