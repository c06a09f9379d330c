package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records run outcomes and stage latencies. A nil *Metrics is a
// no-op.
type Metrics struct {
	runs   *prometheus.CounterVec
	stages *prometheus.HistogramVec
}

// NewMetrics registers the pipeline collectors with reg.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "runs_total",
				Help:      "Pipeline runs finished, by operation and outcome.",
			},
			[]string{"operation", "status", "code"},
		),
		stages: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "stage_duration_seconds",
				Help:      "Time spent in each pipeline stage.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
	}
	reg.MustRegister(m.runs, m.stages)
	return m
}

func (m *Metrics) observeRun(operation string, res *Result) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(operation, string(res.Status), string(res.Code)).Inc()
}

func (m *Metrics) observeStage(stage State, start time.Time) {
	if m == nil {
		return
	}
	m.stages.WithLabelValues(string(stage)).Observe(time.Since(start).Seconds())
}
