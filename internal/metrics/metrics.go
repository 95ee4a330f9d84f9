// Package metrics holds the process-wide prometheus collectors. They are
// exposed on /metrics through promhttp.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ConnectorCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "payhub",
		Name:      "connector_calls_total",
		Help:      "Outbound connector calls by connector, flow and status class.",
	}, []string{"connector", "flow", "status"})

	ConnectorLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "payhub",
		Name:      "connector_call_seconds",
		Help:      "Outbound connector call latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"connector", "flow"})

	FlowOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "payhub",
		Name:      "flow_outcomes_total",
		Help:      "Flow executions by connector, flow and outcome.",
	}, []string{"connector", "flow", "outcome"})

	WebhooksReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "payhub",
		Name:      "webhooks_received_total",
		Help:      "Incoming webhooks by connector and processing status.",
	}, []string{"connector", "status"})

	ReconcileRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "payhub",
		Name:      "reconcile_syncs_total",
		Help:      "Attempt syncs run by the reconcile worker.",
	}, []string{"connector", "result"})
)

// StatusClass buckets an HTTP status code as "2xx", "4xx" and so on.
// Zero means the call never got an answer.
func StatusClass(code int) string {
	if code <= 0 {
		return "error"
	}
	return strconv.Itoa(code/100) + "xx"
}
