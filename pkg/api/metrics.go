package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics covers the boundary: the core itself emits nothing.
type Metrics struct {
	requests      *prometheus.CounterVec
	restingOrders prometheus.Gauge
	addLatency    prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookd",
			Name:      "requests_total",
			Help:      "API requests by operation and outcome.",
		}, []string{"op", "outcome"}),
		restingOrders: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "bookd",
			Name:      "resting_orders",
			Help:      "Orders currently resting in the partition.",
		}),
		addLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "bookd",
			Name:      "add_order_seconds",
			Help:      "Latency of add-order transactions.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}
