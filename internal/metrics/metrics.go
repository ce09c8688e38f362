// Package metrics provides Prometheus instrumentation for the Motion
// gateway client. Counters register against the default registry; consumers
// that expose /metrics get them for free, everyone else pays one map lookup
// per event.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UnicastRequests counts unicast request datagrams sent, including
	// retries.
	UnicastRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "motiongo_unicast_requests_total",
		Help: "Unicast request datagrams sent to gateways, including retries.",
	})

	// UnicastRetries counts exchanges that needed at least one retry.
	UnicastRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "motiongo_unicast_retries_total",
		Help: "Unicast request attempts beyond the first.",
	})

	// UnicastTimeouts counts exchanges that exhausted all attempts.
	UnicastTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "motiongo_unicast_timeouts_total",
		Help: "Unicast exchanges that timed out on every attempt.",
	})

	// Fragments counts reply datagrams classified as fragments of a larger
	// response.
	Fragments = promauto.NewCounter(prometheus.CounterOpts{
		Name: "motiongo_response_fragments_total",
		Help: "Reply datagrams at or above the fragment size threshold.",
	})

	// PushesDispatched counts multicast messages delivered to a registered
	// callback.
	PushesDispatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "motiongo_pushes_dispatched_total",
		Help: "Multicast messages delivered to a registered callback.",
	})

	// PushesDropped counts multicast messages with no registered callback
	// or that failed to decode.
	PushesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "motiongo_pushes_dropped_total",
		Help: "Multicast messages dropped (no callback registered or undecodable).",
	})
)
