package observability

import (
	"context"
	"errors"

	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "waypoint"

// Metrics holds the Prometheus collectors fed by engine hooks.
type Metrics struct {
	EdgesCreated      prometheus.Counter
	EdgeRejections    *prometheus.CounterVec
	Runs              *prometheus.CounterVec
	RunDuration       prometheus.Histogram
	BranchesEvaluated *prometheus.CounterVec
	NodeVisits        *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		EdgesCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "edges_created_total",
			Help:      "Edges accepted by the graph validator.",
		}),
		EdgeRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "edge_rejections_total",
			Help:      "Edge creation requests that were refused.",
		}, []string{"reason"}),
		Runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Workflow runs by outcome.",
		}, []string{"outcome"}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of workflow runs, lock wait included.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
		BranchesEvaluated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "branches_evaluated_total",
			Help:      "Condition nodes evaluated during runs.",
		}, []string{"outcome"}),
		NodeVisits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_visits_total",
			Help:      "Nodes visited during runs by type.",
		}, []string{"type"}),
	}
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnEdgeCreated: func(context.Context, *domain.EdgeEvent) {
			m.EdgesCreated.Inc()
		},
		OnEdgeRejected: func(_ context.Context, e *domain.EdgeEvent) {
			m.EdgeRejections.WithLabelValues(Reason(e.Err)).Inc()
		},
		OnNodeVisit: func(_ context.Context, e *domain.NodeEvent) {
			m.NodeVisits.WithLabelValues(string(e.NodeType)).Inc()
		},
		OnBranch: func(_ context.Context, e *domain.BranchEvent) {
			m.BranchesEvaluated.WithLabelValues(string(domain.EdgeStatusFor(e.Outcome))).Inc()
		},
		OnRunComplete: func(_ context.Context, e *domain.RunEvent) {
			m.Runs.WithLabelValues(Reason(e.Err)).Inc()
			m.RunDuration.Observe(e.Duration.Seconds())
		},
	}
}

// Reason maps an engine error to a low-cardinality label value.
func Reason(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrNodeNotInWorkflow):
		return "not_in_workflow"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInvalidExpression):
		return "invalid_expression"
	case errors.Is(err, domain.ErrEvaluation):
		return "evaluation"
	case errors.Is(err, domain.ErrMissingConditionContext):
		return "missing_context"
	case errors.Is(err, domain.ErrNoStartNode), errors.Is(err, domain.ErrNoEndNode), errors.Is(err, domain.ErrNoPathFound):
		return "no_path"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	return "error"
}
