package pipeline

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the Prometheus series a Controller updates after every cycle.
type Metrics struct {
	Cycles         *prometheus.CounterVec
	CycleDuration  prometheus.Histogram
	StageDuration  *prometheus.HistogramVec
	Points         *prometheus.GaugeVec
	WindowOrder    prometheus.Gauge
	ResourceFaults prometheus.Counter
}

// NewMetrics creates the pipeline series and registers them with reg, unless reg is nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "superquadric",
				Name:      "cycles_total",
				Help:      "Completed pipeline cycles by fit outcome",
			},
			[]string{"outcome"}, // "skipped" / "success" / "degraded" / "failed"
		),
		CycleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "superquadric",
				Name:      "cycle_duration_seconds",
				Help:      "Duration of a full pipeline cycle in seconds",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
		),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "superquadric",
				Name:      "stage_duration_seconds",
				Help:      "Duration of each pipeline stage in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
			},
			[]string{"stage"},
		),
		Points: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "superquadric",
				Name:      "points",
				Help:      "Points in the last cycle",
			},
			[]string{"kind"}, // "raw" / "filtered"
		),
		WindowOrder: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "superquadric",
				Name:      "median_window_order",
				Help:      "Current median filter window order",
			},
		),
		ResourceFaults: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "superquadric",
				Name:      "resource_faults_total",
				Help:      "Cycles skipped because the filter or solver could not run",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Cycles, m.CycleDuration, m.StageDuration, m.Points, m.WindowOrder, m.ResourceFaults)
	}
	return m
}
