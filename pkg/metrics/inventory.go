// Package metrics exposes prometheus collectors for the inventory process.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "stockroom"

// InventoryMetrics counts audit entries, insight fallbacks and alerts.
type InventoryMetrics struct {
	activities       *prometheus.CounterVec
	insightFallbacks prometheus.Counter
	alerts           *prometheus.CounterVec
}

// NewInventoryMetrics registers the inventory collectors on reg. A nil
// registerer yields a recorder that drops every observation.
func NewInventoryMetrics(reg prometheus.Registerer) *InventoryMetrics {
	if reg == nil {
		return &InventoryMetrics{}
	}
	activities := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "activities_recorded_total",
		Help:      "Activities recorded by product saves, by kind.",
	}, []string{"kind"})
	fallbacks := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "insight_fallbacks_total",
		Help:      "Insight requests answered with the static fallback.",
	})
	alerts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "low_stock_alerts_total",
		Help:      "Low-stock alerts attempted, by result.",
	}, []string{"result"})
	reg.MustRegister(activities, fallbacks, alerts)
	return &InventoryMetrics{
		activities:       activities,
		insightFallbacks: fallbacks,
		alerts:           alerts,
	}
}

// IncActivity counts one recorded activity of kind.
func (m *InventoryMetrics) IncActivity(kind string) {
	if m == nil || m.activities == nil {
		return
	}
	m.activities.WithLabelValues(normalizeLabel(kind)).Inc()
}

// IncInsightFallback counts one fallback answer.
func (m *InventoryMetrics) IncInsightFallback() {
	if m == nil || m.insightFallbacks == nil {
		return
	}
	m.insightFallbacks.Inc()
}

// IncAlert counts one alert delivery attempt.
func (m *InventoryMetrics) IncAlert(sent bool) {
	if m == nil || m.alerts == nil {
		return
	}
	result := "sent"
	if !sent {
		result = "failed"
	}
	m.alerts.WithLabelValues(result).Inc()
}
