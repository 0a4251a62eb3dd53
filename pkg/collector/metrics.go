package collector

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gpu_collection_cycles_total",
		Help: "Number of completed collection cycles",
	})
	cycleFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gpu_collection_cycle_failures_total",
		Help: "Number of cycles that could not fetch the fleet",
	})
	serverFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gpu_collection_server_failures_total",
		Help: "Number of per-server pipeline failures",
	})
	samplesCollected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gpu_collection_samples_total",
		Help: "Number of GPU samples persisted",
	})
	alertsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gpu_alerts_sent_total",
		Help: "Number of GPU memory alerts dispatched",
	})
	lastCycleDuration = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gpu_collection_last_cycle_seconds",
		Help: "Wall time of the most recent collection cycle",
	})
)
