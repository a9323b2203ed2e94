package main

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/miretskiy/endurer/simulator"
)

// promMetrics are shared by all sessions; gauges show the last session stepped
type promMetrics struct {
	iterations      prometheus.Gauge
	remaps          prometheus.Gauge
	minRuntime      prometheus.Gauge
	avgRuntime      prometheus.Gauge
	peakTotalWrites prometheus.Gauge
	terminated      prometheus.Gauge
	activeSessions  prometheus.Gauge

	remapsTotal     prometheus.Counter
	terminatedTotal prometheus.Counter
}

func newPromMetrics(reg prometheus.Registerer) *promMetrics {
	m := &promMetrics{
		iterations: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "endurer_iterations",
			Help: "Completed epochs of the current run",
		}),
		remaps: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "endurer_remaps",
			Help: "Remap events of the current run",
		}),
		minRuntime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "endurer_min_runtime",
			Help: "Smallest node runtime in input time units",
		}),
		avgRuntime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "endurer_avg_runtime",
			Help: "Average node runtime in input time units",
		}),
		peakTotalWrites: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "endurer_peak_total_writes",
			Help: "Highest total write count of any page",
		}),
		terminated: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "endurer_terminated",
			Help: "Wear-out state of the current run (0=running, 1=worn out)",
		}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "endurer_active_sessions",
			Help: "Connected websocket sessions",
		}),
		remapsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "endurer_remaps_total",
			Help: "Remap events across all sessions",
		}),
		terminatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "endurer_terminated_runs_total",
			Help: "Runs that reached the cell write endurance",
		}),
	}

	reg.MustRegister(
		m.iterations,
		m.remaps,
		m.minRuntime,
		m.avgRuntime,
		m.peakTotalWrites,
		m.terminated,
		m.activeSessions,
		m.remapsTotal,
		m.terminatedTotal,
	)
	return m
}

func (m *promMetrics) update(sample simulator.EpochSample) {
	m.iterations.Set(float64(sample.Iteration))
	m.remaps.Set(float64(sample.Remaps))
	m.minRuntime.Set(sample.MinRuntime)
	m.avgRuntime.Set(sample.AvgRuntime)
	m.peakTotalWrites.Set(float64(sample.PeakTotalWrites))
	if sample.Terminated {
		m.terminated.Set(1.0)
	} else {
		m.terminated.Set(0.0)
	}
}

// ObserveEpoch implements simulator.Observer
func (m *promMetrics) ObserveEpoch(sample simulator.EpochSample) {
	if sample.Terminated {
		m.terminatedTotal.Inc()
	}
}

// ObserveRemap implements simulator.Observer
func (m *promMetrics) ObserveRemap(simulator.RemapSample) {
	m.remapsTotal.Inc()
}
