// Package metrics exposes Prometheus instrumentation for the backend client.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// RequestsTotal counts dispatched backend requests by backend, method
	// and HTTP status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentconsole_requests_total",
			Help: "Backend requests by backend, method and status code",
		},
		[]string{"backend", "method", "status"},
	)

	// TransportFailures counts requests that never produced a response.
	TransportFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentconsole_transport_failures_total",
			Help: "Requests that failed before producing a response",
		},
		[]string{"backend"},
	)

	// StreamFrames counts complete frames extracted from chat streams.
	StreamFrames = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "agentconsole_stream_frames_total",
			Help: "Complete frames extracted from chat push streams",
		},
	)

	// StreamDecodeFailures counts malformed stream payloads that were skipped.
	StreamDecodeFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "agentconsole_stream_decode_failures_total",
			Help: "Malformed chat stream payloads skipped without aborting",
		},
	)

	// AlertsReceived counts alert events decoded from the alert stream.
	AlertsReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "agentconsole_alerts_received_total",
			Help: "Alert events decoded from the alert push stream",
		},
	)

	// AlertStreamConnected tracks how many alert subscriptions are open.
	AlertStreamConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "agentconsole_alert_stream_connected",
			Help: "Number of open alert stream subscriptions",
		},
	)

	// InvestigationTransitions counts state machine transitions by action.
	InvestigationTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentconsole_investigation_transitions_total",
			Help: "Investigation state machine transitions by action",
		},
		[]string{"action"},
	)
)

func init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(TransportFailures)
	prometheus.MustRegister(StreamFrames)
	prometheus.MustRegister(StreamDecodeFailures)
	prometheus.MustRegister(AlertsReceived)
	prometheus.MustRegister(AlertStreamConnected)
	prometheus.MustRegister(InvestigationTransitions)
}
