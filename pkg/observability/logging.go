package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/waypoint/pkg/domain"
)

// LogHooks writes an audit line per lifecycle event.
// Node visits and branch evaluations go to debug; the rest to info or warn.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnEdgeCreated: func(ctx context.Context, e *domain.EdgeEvent) {
			logger.InfoContext(ctx, "edge_created",
				"workflow_id", e.WorkflowID,
				"edge_id", e.Edge.ID,
				"from", e.Edge.StartNodeID,
				"to", e.Edge.EndNodeID,
				"status", e.Edge.Status,
			)
		},
		OnEdgeRejected: func(ctx context.Context, e *domain.EdgeEvent) {
			logger.WarnContext(ctx, "edge_rejected",
				"workflow_id", e.WorkflowID,
				"from", e.Edge.StartNodeID,
				"to", e.Edge.EndNodeID,
				"reason", Reason(e.Err),
				"err", e.Err,
			)
		},
		OnNodeVisit: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_visit", "workflow_id", e.WorkflowID, "node_id", e.NodeID, "type", e.NodeType)
		},
		OnBranch: func(ctx context.Context, e *domain.BranchEvent) {
			logger.DebugContext(ctx, "branch_evaluated",
				"workflow_id", e.WorkflowID,
				"node_id", e.NodeID,
				"expression", e.Expression,
				"outcome", e.Outcome,
			)
		},
		OnRunComplete: func(ctx context.Context, e *domain.RunEvent) {
			if e.Err != nil {
				logger.WarnContext(ctx, "run_failed", "workflow_id", e.WorkflowID, "duration", e.Duration, "reason", Reason(e.Err), "err", e.Err)
				return
			}
			logger.InfoContext(ctx, "run_complete", "workflow_id", e.WorkflowID, "duration", e.Duration, "path", e.Path)
		},
	}
}
