// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts HTTP requests by method, route, and status code.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "endpoint_manager_requests_total",
		Help: "Total HTTP requests processed.",
	}, []string{"method", "path", "status"})

	// RequestDuration tracks HTTP request latency by route.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "endpoint_manager_request_duration_seconds",
		Help:    "Duration of HTTP requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	// DeploymentsTotal counts endpoint deployments by outcome.
	DeploymentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "endpoint_manager_deployments_total",
		Help: "Endpoint deployments by result.",
	}, []string{"result"})

	// DeploymentDuration tracks time from create request to InService.
	DeploymentDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "endpoint_manager_deployment_duration_seconds",
		Help:    "Time spent waiting for endpoints to reach InService.",
		Buckets: []float64{30, 60, 120, 180, 240, 300, 420, 600, 900},
	})

	// DescribeCalls counts readiness describes issued by the bounded wait.
	DescribeCalls = promauto.NewCounter(prometheus.CounterOpts{
		Name: "endpoint_manager_describe_calls_total",
		Help: "DescribeEndpoint calls issued while waiting for readiness.",
	})

	// Rollbacks counts delete-on-fail rollbacks by result.
	Rollbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "endpoint_manager_rollbacks_total",
		Help: "Delete-on-fail rollbacks by result.",
	}, []string{"result"})

	// ActiveStreams tracks open status streaming sessions.
	ActiveStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "endpoint_manager_active_streams",
		Help: "Open status streaming sessions.",
	})

	// StreamFrames counts frames pushed to streaming sessions by kind.
	StreamFrames = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "endpoint_manager_stream_frames_total",
		Help: "Frames pushed to status streams by kind.",
	}, []string{"kind"})

	// InvocationDuration tracks model invocation latency per endpoint.
	InvocationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "endpoint_manager_invocation_duration_seconds",
		Help:    "Time spent invoking SageMaker endpoints.",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
	}, []string{"endpoint"})
)
