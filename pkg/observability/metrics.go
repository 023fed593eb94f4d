package observability

import (
	"context"

	"github.com/aretw0/cartography/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cartography"

// Metrics holds the run collectors.
type Metrics struct {
	Steps       *prometheus.CounterVec
	Runs        *prometheus.CounterVec
	RunDuration prometheus.Histogram
	ActiveRuns  prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg when it is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Steps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "steps_total",
				Help:      "Total number of nodes appended to session graphs, by kind.",
			},
			[]string{"kind"},
		),
		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total number of finished runs, by terminal status.",
			},
			[]string{"status"},
		),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time from run start to its terminal state.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		ActiveRuns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_runs",
			Help:      "Number of runs currently in progress.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Steps, m.Runs, m.RunDuration, m.ActiveRuns)
	}
	return m
}

// Hooks returns driver hooks that update the collectors.
func (m *Metrics) Hooks() domain.RunHooks {
	return domain.RunHooks{
		OnRunStart: func(_ context.Context, _ *domain.RunEvent) {
			m.ActiveRuns.Inc()
		},
		OnStepAdded: func(_ context.Context, e *domain.StepEvent) {
			m.Steps.WithLabelValues(string(e.Node.Kind)).Inc()
		},
		OnRunFinish: func(_ context.Context, e *domain.RunEvent) {
			m.ActiveRuns.Dec()
			m.Runs.WithLabelValues(string(e.Status)).Inc()
			m.RunDuration.Observe(e.Result.Duration().Seconds())
		},
	}
}
