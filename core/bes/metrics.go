package bes

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/opendap/olfs/lib/monitoring"
)

var transactionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "olfs",
		Subsystem: "bes",
		Name:      "transactions_total",
		Help:      "BES transactions by outcome.",
	},
	[]string{"outcome"},
)

var transactionSeconds = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "olfs",
		Subsystem: "bes",
		Name:      "transaction_seconds",
		Help:      "BES transaction duration, from dial to teardown.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 4, 8),
	},
)

var metricActive = monitoring.NewCounter("bes_transactions_active")

func init() {
	prometheus.MustRegister(transactionsTotal)
	prometheus.MustRegister(transactionSeconds)
}
