package ledgerfeed

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var decodeDropped = promauto.NewCounterVec(prometheus.CounterOpts{
	Name:      "decode_dropped",
	Namespace: "ledgerfeed",
	Help:      "ledger records dropped because they did not match their schema",
}, []string{"type"})

var submissions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name:      "submissions",
	Namespace: "ledgerfeed",
	Help:      "finished submissions by entry point and terminal state",
}, []string{"entry_point", "state"})

var submissionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:      "submission_duration_seconds",
	Namespace: "ledgerfeed",
	Help:      "histogram of time from building to a terminal state",
	Buckets:   prometheus.ExponentialBucketsRange(0.1, 120, 20),
}, []string{"entry_point"})

var newContentGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Name:      "new_content",
	Namespace: "ledgerfeed",
	Help:      "events newer than the cached feed head",
})

var feedSize = promauto.NewGauge(prometheus.GaugeOpts{
	Name:      "feed_size",
	Namespace: "ledgerfeed",
	Help:      "posts in the cached feed",
})

var profileCacheSize = promauto.NewGauge(prometheus.GaugeOpts{
	Name:      "profile_cache_size",
	Namespace: "ledgerfeed",
	Help:      "resolved profiles held for the session",
})
