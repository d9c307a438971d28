// Package metrics exposes decoder and pod state metrics for Prometheus.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains all Prometheus metrics for podbeacon
type Metrics struct {
	registry *prometheus.Registry

	// Advertisement metrics
	Advertisements *prometheus.CounterVec
	Rejected       prometheus.Counter
	Decoded        *prometheus.CounterVec

	// Pod state metrics
	Battery *prometheus.GaugeVec
	InEar   *prometheus.GaugeVec
	LidOpen prometheus.Gauge
}

// New creates the metrics on their own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Advertisements: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "podbeacon_advertisements_total",
			Help: "Manufacturer data entries received, by company ID",
		}, []string{"company"}),
		Rejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "podbeacon_decode_rejected_total",
			Help: "Apple manufacturer data entries that were not proximity pairing records",
		}),
		Decoded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "podbeacon_decoded_total",
			Help: "Proximity pairing records decoded, by model",
		}, []string{"model"}),
		Battery: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "podbeacon_battery_percent",
			Help: "Last reported battery level, by component (left, right, case)",
		}, []string{"component"}),
		InEar: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "podbeacon_in_ear",
			Help: "1 when the bud is in an ear, by side",
		}, []string{"side"}),
		LidOpen: factory.NewGauge(prometheus.GaugeOpts{
			Name: "podbeacon_lid_open",
			Help: "1 when the case lid is open",
		}),
	}
}

// ObserveAdvertisement counts one manufacturer data entry.
func (m *Metrics) ObserveAdvertisement(companyID uint16) {
	m.Advertisements.WithLabelValues(fmt.Sprintf("0x%04X", companyID)).Inc()
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// BoolGauge converts a flag to a gauge value.
func BoolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
