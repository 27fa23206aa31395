package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if matchLabels(metric, labels) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func matchLabels(metric *dto.Metric, labels map[string]string) bool {
	found := 0
	for _, lp := range metric.GetLabel() {
		if want, ok := labels[lp.GetName()]; ok {
			if lp.GetValue() != want {
				return false
			}
			found++
		}
	}
	return found == len(labels)
}

func TestPortalMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPortalMetrics(reg)
	m.ObserveAPICall("bookings.list", "ok", 0.2)
	m.ObserveAPICall("bookings.list", "ok", 0.1)
	m.ObserveAPICall("predict", "transport", 10)
	m.ObserveIntakeResult("fallback")
	m.ObserveNotificationsEvicted(3)
	m.ObserveNotificationsEvicted(0)

	if got := counterValue(t, reg, "clinic_portal_api_requests_total", map[string]string{"endpoint": "bookings.list", "outcome": "ok"}); got != 2 {
		t.Fatalf("bookings.list ok = %v, want 2", got)
	}
	if got := counterValue(t, reg, "clinic_portal_intake_results_total", map[string]string{"source": "fallback"}); got != 1 {
		t.Fatalf("fallback results = %v, want 1", got)
	}
	if got := counterValue(t, reg, "clinic_portal_notifications_evicted_total", nil); got != 3 {
		t.Fatalf("evicted = %v, want 3", got)
	}
}

func TestPortalMetricsNilSafe(t *testing.T) {
	var m *PortalMetrics
	m.ObserveAPICall("login", "ok", 0.1)
	m.ObserveIntakeResult("remote")
	m.ObserveNotificationsEvicted(1)
}
