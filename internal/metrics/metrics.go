package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Classifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intentflow_classifications_total",
			Help: "Total number of classifications by final kind and tier",
		},
		[]string{"kind", "tier"},
	)

	ToolCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intentflow_tool_calls_total",
			Help: "Total number of tool invocations",
		},
		[]string{"tool", "success"},
	)

	ToolLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "intentflow_tool_latency_seconds",
			Help:    "Tool invocation latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"tool"},
	)

	Responses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intentflow_responses_total",
			Help: "Total number of responses by approach",
		},
		[]string{"approach", "success"},
	)

	EvaluationScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "intentflow_evaluation_score",
			Help:    "Quality score of evaluated responses",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
	)
)

func ObserveClassification(kind string, tier int) {
	Classifications.WithLabelValues(kind, strconv.Itoa(tier)).Inc()
}

func ObserveToolCall(tool string, success bool, latency time.Duration) {
	ToolCalls.WithLabelValues(tool, strconv.FormatBool(success)).Inc()
	ToolLatency.WithLabelValues(tool).Observe(latency.Seconds())
}

func ObserveResponse(approach string, success bool) {
	Responses.WithLabelValues(approach, strconv.FormatBool(success)).Inc()
}
