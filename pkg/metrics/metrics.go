// Package metrics exposes the daemon's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Sample results.
const (
	ResultOK            = "ok"
	ResultNoReading     = "no_reading"
	ResultInvalidBounds = "invalid_bounds"
	ResultError         = "error"
)

type Metrics struct {
	registry *prometheus.Registry

	level              prometheus.Gauge
	distance           prometheus.Gauge
	samples            *prometheus.CounterVec
	emissions          prometheus.Counter
	telemetryConnected prometheus.Gauge
	telemetryConnects  prometheus.Counter
	telemetryErrors    prometheus.Counter
	pushClients        prometheus.GaugeFunc
}

// New registers the collectors on a fresh registry. clients reports the
// number of connected push clients; it may be nil.
func New(clients func() int) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		level: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wle_level_percent",
			Help: "Last emitted fill level in percent.",
		}),
		distance: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wle_distance_cm",
			Help: "Distance measured by the last successful sample.",
		}),
		samples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wle_samples_total",
			Help: "Total sampling cycles by result.",
		}, []string{"result"}),
		emissions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wle_emissions_total",
			Help: "Total level changes emitted.",
		}),
		telemetryConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wle_telemetry_connected",
			Help: "Whether the telemetry broker session is up (1) or not (0).",
		}),
		telemetryConnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wle_telemetry_connects_total",
			Help: "Total successful telemetry broker connections.",
		}),
		telemetryErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wle_telemetry_publish_errors_total",
			Help: "Total failed telemetry publishes.",
		}),
	}

	if clients == nil {
		clients = func() int { return 0 }
	}
	m.pushClients = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "wle_push_clients",
		Help: "Number of connected push clients.",
	}, func() float64 { return float64(clients()) })

	for _, r := range []string{ResultOK, ResultNoReading, ResultInvalidBounds, ResultError} {
		m.samples.WithLabelValues(r)
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.level,
		m.distance,
		m.samples,
		m.emissions,
		m.telemetryConnected,
		m.telemetryConnects,
		m.telemetryErrors,
		m.pushClients,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Sample(result string, distance float64) {
	if m == nil {
		return
	}
	m.samples.WithLabelValues(result).Inc()
	if result == ResultOK || result == ResultInvalidBounds {
		m.distance.Set(distance)
	}
}

func (m *Metrics) Emission(level int) {
	if m == nil {
		return
	}
	m.emissions.Inc()
	m.level.Set(float64(level))
}

func (m *Metrics) TelemetryConnected(up bool) {
	if m == nil {
		return
	}
	if up {
		m.telemetryConnects.Inc()
		m.telemetryConnected.Set(1)
		return
	}
	m.telemetryConnected.Set(0)
}

func (m *Metrics) TelemetryPublishError() {
	if m == nil {
		return
	}
	m.telemetryErrors.Inc()
}
