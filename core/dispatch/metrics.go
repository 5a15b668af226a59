package dispatch

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/opendap/olfs/lib/monitoring"
)

var requestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "olfs",
		Subsystem: "dispatch",
		Name:      "requests_total",
		Help:      "Requests by claiming handler and response status.",
	},
	[]string{"handler", "code"},
)

var requestSeconds = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "olfs",
		Subsystem: "dispatch",
		Name:      "request_seconds",
		Help:      "Request handling duration by claiming handler.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 9),
	},
	[]string{"handler"},
)

var faultsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "olfs",
		Subsystem: "dispatch",
		Name:      "faults_total",
		Help:      "Reported request failures by fault kind.",
	},
	[]string{"kind"},
)

var (
	metricRequests       = monitoring.NewCounter("dispatch_requests")
	metricActiveRequests = monitoring.NewCounter("dispatch_requests_active")
)

func init() {
	prometheus.MustRegister(requestsTotal, requestSeconds, faultsTotal)
}

func statusLabel(status int) string {
	return strconv.Itoa(status)
}
