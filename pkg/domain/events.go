package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventEdgeCreated     EventType = "edge_created"
	EventEdgeRejected    EventType = "edge_rejected"
	EventNodeVisit       EventType = "node_visit"
	EventBranchEvaluated EventType = "branch_evaluated"
	EventRunComplete     EventType = "run_complete"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp  time.Time `json:"timestamp"`
	Type       EventType `json:"type"`
	WorkflowID string    `json:"workflow_id"`
}

// EdgeEvent reports the outcome of an edge creation request.
type EdgeEvent struct {
	EventBase
	Edge Edge  `json:"edge"`
	Err  error `json:"-"`
}

// NodeEvent represents a node reached during a run.
type NodeEvent struct {
	EventBase
	NodeID   string   `json:"node_id"`
	NodeType NodeType `json:"node_type"`
}

// BranchEvent represents a Condition node evaluation.
type BranchEvent struct {
	EventBase
	NodeID     string `json:"node_id"`
	Expression string `json:"expression"`
	Outcome    bool   `json:"outcome"`
}

// RunEvent is emitted once per run, successful or not.
type RunEvent struct {
	EventBase
	Path     []string      `json:"path"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
// Any hook may be nil.
type LifecycleHooks struct {
	OnEdgeCreated  func(context.Context, *EdgeEvent)
	OnEdgeRejected func(context.Context, *EdgeEvent)
	OnNodeVisit    func(context.Context, *NodeEvent)
	OnBranch       func(context.Context, *BranchEvent)
	OnRunComplete  func(context.Context, *RunEvent)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnEdgeCreated:  chain(h.OnEdgeCreated, other.OnEdgeCreated),
		OnEdgeRejected: chain(h.OnEdgeRejected, other.OnEdgeRejected),
		OnNodeVisit:    chain(h.OnNodeVisit, other.OnNodeVisit),
		OnBranch:       chain(h.OnBranch, other.OnBranch),
		OnRunComplete:  chain(h.OnRunComplete, other.OnRunComplete),
	}
}

func chain[E any](a, b func(context.Context, *E)) func(context.Context, *E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e *E) {
		a(ctx, e)
		b(ctx, e)
	}
}
