package smoketest

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	smokeTestCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smoke_test_count",
		Help: "The number of smoke tests run by this server.",
	}, []string{"success"})

	smokeTestLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "smoke_test_latency",
		Help:    "The duration of successful smoke tests in milliseconds.",
		Buckets: prometheus.ExponentialBuckets(10, 2, 10),
	})
)

func instrumentSmokeTest(res Result) {
	smokeTestCount.
		With(prometheus.Labels{"success": strconv.FormatBool(res.Success)}).
		Inc()

	if res.Success {
		smokeTestLatency.Observe(res.LatencyMilliSec)
	}
}
