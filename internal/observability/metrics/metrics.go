package metrics

import "github.com/prometheus/client_golang/prometheus"

// PortalMetrics exposes counters/histograms for remote API traffic and the
// client-side flows built on top of it.
type PortalMetrics struct {
	apiRequests         *prometheus.CounterVec
	apiLatency          *prometheus.HistogramVec
	intakeResults       *prometheus.CounterVec
	notificationEvicted prometheus.Counter
}

func NewPortalMetrics(reg prometheus.Registerer) *PortalMetrics {
	m := &PortalMetrics{
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic_portal",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total remote clinic API calls",
		}, []string{"endpoint", "outcome"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinic_portal",
			Subsystem: "api",
			Name:      "latency_seconds",
			Help:      "Latency of remote clinic API calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		intakeResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic_portal",
			Subsystem: "intake",
			Name:      "results_total",
			Help:      "Intake results by source (remote model or local heuristic)",
		}, []string{"source"}),
		notificationEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinic_portal",
			Subsystem: "notifications",
			Name:      "evicted_total",
			Help:      "Notifications dropped because the log was at capacity",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.apiRequests, m.apiLatency, m.intakeResults, m.notificationEvicted)
	return m
}

// ObserveAPICall records one remote call. outcome is one of ok, rejected,
// unauthorized, http_error, transport.
func (m *PortalMetrics) ObserveAPICall(endpoint, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.apiRequests.WithLabelValues(endpoint, outcome).Inc()
	m.apiLatency.WithLabelValues(endpoint).Observe(seconds)
}

func (m *PortalMetrics) ObserveIntakeResult(source string) {
	if m == nil {
		return
	}
	m.intakeResults.WithLabelValues(source).Inc()
}

func (m *PortalMetrics) ObserveNotificationsEvicted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.notificationEvicted.Add(float64(n))
}
