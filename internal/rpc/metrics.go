package rpc

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RPCRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokenindexor_rpc_requests_total",
			Help: "Total number of RPC requests by method",
		},
		[]string{"method"},
	)

	RPCErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokenindexor_rpc_errors_total",
			Help: "Total number of RPC errors by method and type",
		},
		[]string{"method", "error_type"},
	)

	RPCRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokenindexor_rpc_retries_total",
			Help: "Total number of RPC retries against the same endpoint",
		},
		[]string{"method"},
	)

	RPCFailovers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokenindexor_rpc_failovers_total",
			Help: "Total number of switches to another endpoint",
		},
		[]string{"method"},
	)

	RPCDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tokenindexor_rpc_request_duration_seconds",
			Help:    "Duration of RPC requests including retries and failover",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	HeaderCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tokenindexor_rpc_header_cache_hits_total",
		Help: "Block header lookups served from the cache",
	})
)

func RPCMethodInc(method string) {
	RPCRequests.WithLabelValues(method).Inc()
}

func RPCMethodDuration(method string, duration time.Duration) {
	RPCDuration.WithLabelValues(method).Observe(duration.Seconds())
}

func RPCMethodError(method, errorType string) {
	RPCErrors.WithLabelValues(method, errorType).Inc()
}

func RPCRetryInc(method string) {
	RPCRetries.WithLabelValues(method).Inc()
}

func RPCFailoverInc(method string) {
	RPCFailovers.WithLabelValues(method).Inc()
}
