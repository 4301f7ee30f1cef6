package sim

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// shotsTotal counts completed shots across all runs.
	shotsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qflow_sim_shots_total",
		Help: "Total simulated shots",
	})

	// gatesApplied counts operator applications by gate kind.
	gatesApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qflow_sim_gates_applied_total",
		Help: "Gate operators applied to the state vector, by kind",
	}, []string{"kind"})

	// measurementOutcomes counts sampled measurement results.
	// Labels: "0", "1"
	measurementOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qflow_sim_measurements_total",
		Help: "Measurement outcomes sampled, by value",
	}, []string{"outcome"})

	// kernelBuilds counts full-register operators built, i.e. cache misses.
	kernelBuilds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qflow_sim_kernel_builds_total",
		Help: "Padded gate operators constructed",
	})

	// runDuration observes Execute wall time.
	// Labels: "success", "error"
	runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "qflow_sim_run_duration_seconds",
		Help:    "Simulation run duration",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
	}, []string{"result"})
)
