package handler

import (
	"github.com/prometheus/client_golang/prometheus"
)

var cacheLookups = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "olfs",
		Subsystem: "dap",
		Name:      "cache_lookups_total",
		Help:      "Metadata response cache lookups by result.",
	},
	[]string{"result"},
)

var coverageRequests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "olfs",
		Subsystem: "wcs",
		Name:      "requests_total",
		Help:      "WCS requests by operation.",
	},
	[]string{"request"},
)

func init() {
	prometheus.MustRegister(cacheLookups, coverageRequests)
}
