package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	launches    *prometheus.CounterVec
	records     *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	phases      *prometheus.CounterVec
	running     prometheus.Gauge
}

// New registers the optimiser metrics on reg; nil means the default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		launches: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "optimiser_tester_launches_total",
				Help: "Tester launches by run kind",
			},
			[]string{"run"},
		),
		records: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "optimiser_result_records_total",
				Help: "Result records accumulated by category",
			},
			[]string{"category"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "optimiser_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "optimiser_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: []float64{0.001, 0.01, 0.1, 1, 10, 60, 300, 900, 3600},
			},
			[]string{"operation"},
		),
		phases: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "optimiser_phase_transitions_total",
				Help: "Session phase transitions",
			},
			[]string{"phase"},
		),
		running: f.NewGauge(prometheus.GaugeOpts{
			Name: "optimiser_session_running",
			Help: "1 while a session is running",
		}),
	}
}

// RecordLaunch counts one tester launch.
func (r *Recorder) RecordLaunch(run string) {
	r.launches.WithLabelValues(run).Inc()
}

// RecordRecords counts records added to an accumulator.
func (r *Recorder) RecordRecords(category string, n int) {
	r.records.WithLabelValues(category).Add(float64(n))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordPhase counts a transition and tracks whether a session runs.
func (r *Recorder) RecordPhase(phase string) {
	r.phases.WithLabelValues(phase).Inc()
	switch phase {
	case "optimizing_history", "confirming_tests":
		r.running.Set(1)
	default:
		r.running.Set(0)
	}
}
