// Package metrics holds the Prometheus collectors for sensor readings.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is a set of collectors registered in their own registry.
type Metrics struct {
	registry *prometheus.Registry

	temperature *prometheus.GaugeVec
	readErrors  *prometheus.CounterVec
	lastPoll    prometheus.Gauge
	discovered  prometheus.Gauge
}

// New creates and registers all collectors in a new registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		temperature: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "temperature_celsius",
			Help: "Temperature reading in degrees Celsius",
		}, []string{"sensor"}),
		readErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "temperature_read_errors_total",
			Help: "Number of failed sensor reads",
		}, []string{"sensor"}),
		lastPoll: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "temperature_last_poll_timestamp_seconds",
			Help: "Unix time of the last completed poll of all sensors",
		}),
		discovered: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "temperature_sensors_discovered",
			Help: "Number of sensors found in the last poll",
		}),
	}
	m.registry.MustRegister(
		m.temperature,
		m.readErrors,
		m.lastPoll,
		m.discovered,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// SetTemperature sets the current temperature of a sensor. The sensor's time
// series is created on first use.
func (m *Metrics) SetTemperature(sensor string, celsius float64) {
	m.temperature.WithLabelValues(sensor).Set(celsius)
}

// IncReadErrors counts a failed read of a sensor.
func (m *Metrics) IncReadErrors(sensor string) {
	m.readErrors.WithLabelValues(sensor).Inc()
}

// SetPolled records that a poll finished at the given time, having found the
// given number of sensors.
func (m *Metrics) SetPolled(at time.Time, sensors int) {
	m.lastPoll.Set(float64(at.UnixNano()) / 1e9)
	m.discovered.Set(float64(sensors))
}

// Registry returns the registry all collectors are registered in.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler serving the metrics in the Prometheus
// exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		Registry: m.registry,
	})
}
