// Package metrics exposes this daemon's Prometheus counters, grounded on
// ManuGH/xg2g/internal/metrics's promauto-registered CounterVec pattern
// (see bus.go).
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ConnectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "a2dpd_connections_total",
		Help: "Total number of device connection attempts by outcome.",
	}, []string{"outcome"}) // outcome: connected (failures and disconnects are not counted)

	SetupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "a2dpd_setups_total",
		Help: "Total number of stream setups by outcome.",
	}, []string{"outcome"}) // outcome: created, destroyed, rejected

	CodecRejectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "a2dpd_codec_rejects_total",
		Help: "Total number of peer-proposed codec configurations rejected by codec type.",
	}, []string{"codec"})

	DevicesGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "a2dpd_devices",
		Help: "Number of live device records.",
	})

	SetupsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "a2dpd_setups",
		Help: "Number of live setups.",
	})
)

// IncConnection records a device connection attempt outcome.
func IncConnection(outcome string) {
	ConnectionsTotal.WithLabelValues(outcome).Inc()
}

// IncSetup records a setup lifecycle event outcome.
func IncSetup(outcome string) {
	SetupsTotal.WithLabelValues(outcome).Inc()
}

// IncCodecReject records a codec configuration rejection.
func IncCodecReject(codec string) {
	CodecRejectsTotal.WithLabelValues(codec).Inc()
}

// Handler returns the standard Prometheus exposition HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
