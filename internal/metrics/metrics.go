// Package metrics exposes entity states and ingest counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "solaredge"

type Metrics struct {
	registry        *prometheus.Registry
	entityValue     *prometheus.GaugeVec
	entityAvailable *prometheus.GaugeVec
	snapshots       *prometheus.CounterVec
	snapshotErrors  *prometheus.CounterVec
}

// New builds the collectors on a private registry together with the Go
// runtime and build info collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		entityValue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "entity_value",
			Help:      "Last numeric state of a SolarEdge entity.",
		}, []string{"unique_id", "device", "unit"}),
		entityAvailable: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "entity_available",
			Help:      "1 when the entity is available.",
		}, []string{"unique_id", "device"}),
		snapshots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_total",
			Help:      "Accepted device snapshots.",
		}, []string{"device", "source"}),
		snapshotErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_errors_total",
			Help:      "Rejected device snapshots.",
		}, []string{"source"}),
	}

	m.registry.MustRegister(collectors.NewBuildInfoCollector())
	m.registry.MustRegister(collectors.NewGoCollector(
		collectors.WithGoCollections(collectors.GoRuntimeMemStatsCollection | collectors.GoRuntimeMetricsCollection),
	))
	m.registry.MustRegister(m.entityValue, m.entityAvailable, m.snapshots, m.snapshotErrors)
	return m
}

func (m *Metrics) SetEntityValue(uniqueId, device, unit string, value float64) {
	m.entityValue.With(prometheus.Labels{"unique_id": uniqueId, "device": device, "unit": unit}).Set(value)
}

// ClearEntityValue drops the series of an entity whose state became unknown.
func (m *Metrics) ClearEntityValue(uniqueId, device, unit string) {
	m.entityValue.Delete(prometheus.Labels{"unique_id": uniqueId, "device": device, "unit": unit})
}

func (m *Metrics) SetEntityAvailable(uniqueId, device string, available bool) {
	v := 0.0
	if available {
		v = 1
	}
	m.entityAvailable.With(prometheus.Labels{"unique_id": uniqueId, "device": device}).Set(v)
}

func (m *Metrics) IncSnapshot(device, source string) {
	m.snapshots.With(prometheus.Labels{"device": device, "source": source}).Inc()
}

func (m *Metrics) IncSnapshotError(source string) {
	m.snapshotErrors.With(prometheus.Labels{"source": source}).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
