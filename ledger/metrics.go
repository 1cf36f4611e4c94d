package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var rpcRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name:      "rpc_requests",
	Namespace: "ledgerfeed",
	Help:      "total ledger rpc requests by method and status",
}, []string{"method", "status"})

var rpcDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:      "rpc_duration_seconds",
	Namespace: "ledgerfeed",
	Help:      "histogram of ledger rpc latency",
	Buckets:   prometheus.ExponentialBucketsRange(0.001, 30, 20),
}, []string{"method"})
