package metrics

import (
	"context"

	"github.com/aman-zulfiqar/solana-hook-amm/internal/assembler"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Pipeline metrics
	StateTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hookamm_state_transitions_total",
			Help: "Total number of execution state transitions",
		},
		[]string{"intent", "state"},
	)

	Executions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hookamm_executions_total",
			Help: "Total number of finished executions",
		},
		[]string{"intent", "state", "kind"},
	)

	ExecutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hookamm_execution_duration_seconds",
			Help:    "Time from intent to terminal state in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"intent", "state"},
	)

	SimulationUnits = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hookamm_simulation_units_consumed",
			Help:    "Compute units consumed in simulation",
			Buckets: []float64{5_000, 10_000, 25_000, 50_000, 100_000, 200_000, 400_000},
		},
		[]string{"intent"},
	)

	Warnings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hookamm_execution_warnings_total",
			Help: "Total number of non-fatal warnings raised by executions",
		},
		[]string{"intent"},
	)

	// Registry metrics
	ReserveRefreshes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hookamm_reserve_refreshed_pools_total",
		Help: "Total number of pools whose reserves were refreshed",
	})

	// HTTP metrics
	QuoteRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hookamm_quote_requests_total",
			Help: "Total number of quote requests",
		},
		[]string{"kind", "status"},
	)
)

// Observer feeds pipeline events into the metrics above.
type Observer struct{}

func (Observer) OnTransition(exec *assembler.Execution, from, to assembler.State) {
	StateTransitions.WithLabelValues(exec.Intent, to.String()).Inc()
	if to == assembler.Simulated && exec.Units > 0 {
		SimulationUnits.WithLabelValues(exec.Intent).Observe(float64(exec.Units))
	}
}

func (Observer) OnFinish(ctx context.Context, exec *assembler.Execution) {
	kind := ""
	if se, ok := exec.Err.(*assembler.StageError); ok {
		kind = string(se.Kind)
	}
	state := exec.State.String()
	Executions.WithLabelValues(exec.Intent, state, kind).Inc()
	ExecutionDuration.WithLabelValues(exec.Intent, state).Observe(exec.Duration().Seconds())
	if n := len(exec.Warnings); n > 0 {
		Warnings.WithLabelValues(exec.Intent).Add(float64(n))
	}
}
