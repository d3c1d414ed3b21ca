// Package metrics holds the process-wide Prometheus registry and the
// instruments maintained by the device and update engines.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// DeviceConnected reports the connection state (1=connected, 0=not).
	DeviceConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "macropad_device_connected",
			Help: "Whether a macropad device is currently connected (1=yes, 0=no).",
		},
	)

	// CommandsSent counts outbound communication reports.
	CommandsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "macropad_commands_sent_total",
			Help: "Total communication commands written to the device.",
		},
		[]string{"command", "status"}, // status: success/failed
	)

	// DecodeErrors counts inbound reports that failed to decode.
	DecodeErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "macropad_decode_errors_total",
			Help: "Total inbound reports that could not be decoded.",
		},
	)

	// ChunksSent counts transfer chunks written during updates.
	ChunksSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "macropad_update_chunks_sent_total",
			Help: "Total transfer chunks written to the device.",
		},
		[]string{"type"},
	)

	// ChunkRetries counts chunk resends after a missed acknowledgment.
	ChunkRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "macropad_update_chunk_retries_total",
			Help: "Total chunk resends after an acknowledgment timeout.",
		},
	)

	// UpdatesTotal counts finished update runs by outcome.
	UpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "macropad_updates_total",
			Help: "Total update runs by outcome (success/aborted/failed).",
		},
		[]string{"result"},
	)
)

// Registry is the process-wide registry exposed on the metrics endpoint.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		DeviceConnected,
		CommandsSent,
		DecodeErrors,
		ChunksSent,
		ChunkRetries,
		UpdatesTotal,
	)
}

// Handler serves the registry for an HTTP metrics endpoint.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
