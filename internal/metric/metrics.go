// internal/metric/metrics.go
package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the gateway's Prometheus collectors. They are observation
// only; nothing in the polling or health path reads them back.
type Metrics struct {
	PollCycles     *prometheus.CounterVec
	LinesForwarded *prometheus.CounterVec
	SinkErrors     prometheus.Counter
	BusReconnects  prometheus.Counter
	HealthCounter  prometheus.Gauge
}

// New creates unregistered collectors. Call Register before serving them.
func New() *Metrics {
	return &Metrics{
		PollCycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fieldgate",
				Subsystem: "poll",
				Name:      "cycles_total",
				Help:      "Poll cycles by device and result (ok, partial, failed)",
			},
			[]string{"device", "result"},
		),
		LinesForwarded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fieldgate",
				Subsystem: "sink",
				Name:      "lines_forwarded_total",
				Help:      "Line-protocol lines forwarded to the sink",
			},
			[]string{"device"},
		),
		SinkErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "fieldgate",
				Subsystem: "sink",
				Name:      "errors_total",
				Help:      "Sink forwarding failures (logged, never escalated)",
			},
		),
		BusReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "fieldgate",
				Subsystem: "bus",
				Name:      "reconnects_total",
				Help:      "Bus connection attempts after the initial connect",
			},
		),
		HealthCounter: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "fieldgate",
				Subsystem: "bus",
				Name:      "health_counter",
				Help:      "Current hysteresis failure counter for the active epoch",
			},
		),
	}
}

// Register registers every collector with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.PollCycles,
		m.LinesForwarded,
		m.SinkErrors,
		m.BusReconnects,
		m.HealthCounter,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Handler serves the registry in Prometheus exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
