package waypoint

import (
	"context"
	"time"

	"github.com/aretw0/waypoint/internal/runtime"
	"github.com/aretw0/waypoint/pkg/domain"
	"go.opentelemetry.io/otel/attribute"
)

// CreateEdge validates the edge against the graph invariants and adds it to the workflow.
//
// An edge into a Condition node is tagged by evaluating the condition against the start node's
// message; the requested status is ignored. A rejected edge leaves the workflow untouched.
func (e *Engine) CreateEdge(ctx context.Context, workflowID string, edge domain.Edge) (created *domain.Edge, err error) {
	ctx, span := e.startSpan(ctx, "waypoint.create_edge", workflowID)
	defer func() { endSpan(span, err) }()

	if edge.ID == "" {
		edge.ID = e.newID()
	}
	req := runtime.EdgeRequest{
		ID:          edge.ID,
		StartNodeID: edge.StartNodeID,
		EndNodeID:   edge.EndNodeID,
		Status:      edge.Status,
	}

	// Looked up before the transaction: stores do not allow reentrant reads.
	found, err := e.locateNodes(ctx, edge.StartNodeID, edge.EndNodeID)
	if err != nil {
		return nil, err
	}
	validator := runtime.NewValidator(e.evaluator,
		runtime.WithNodeLocator(found),
		runtime.WithValidatorLogger(e.logger),
	)

	var built domain.Edge
	err = e.mutate(ctx, workflowID, func(wf *domain.Workflow) error {
		b, err := validator.BuildEdge(ctx, wf, req)
		if err != nil {
			return err
		}
		built = b
		wf.UpdatedAt = e.now().UTC()
		return nil
	})
	if err != nil {
		e.emitEdge(ctx, domain.EventEdgeRejected, workflowID, domain.Edge{
			ID: edge.ID, WorkflowID: workflowID, StartNodeID: edge.StartNodeID, EndNodeID: edge.EndNodeID, Status: edge.Status,
		}, err)
		return nil, err
	}

	span.SetAttributes(attribute.String("waypoint.edge_id", built.ID), attribute.String("waypoint.edge_status", string(built.Status)))
	e.logger.Info("edge created", "workflow_id", workflowID, "edge_id", built.ID, "status", built.Status)
	e.emitEdge(ctx, domain.EventEdgeCreated, workflowID, built, nil)
	return &built, nil
}

// RunWorkflow executes the workflow from Start to End.
//
// Branch tags set while evaluating Condition nodes are committed together with the run; a failed
// run leaves every edge status untouched.
func (e *Engine) RunWorkflow(ctx context.Context, id string) (result domain.Trace, err error) {
	ctx, span := e.startSpan(ctx, "waypoint.run_workflow", id)
	defer func() { endSpan(span, err) }()

	started := e.now()
	events := &eventBuffer{}
	executor := runtime.NewExecutor(e.evaluator,
		runtime.WithExecutorHooks(events.capture(e.hooks)),
		runtime.WithExecutorLogger(e.logger),
		runtime.WithExecutorClock(e.now),
	)

	err = e.mutate(ctx, id, func(wf *domain.Workflow) error {
		// A store retry replays fn; only the last attempt's events count.
		events.reset()
		trace, err := executor.Run(ctx, wf)
		if err != nil {
			return err
		}
		result = trace
		return nil
	})
	events.flush()

	if err != nil {
		result = nil
		e.logger.Warn("workflow run failed", "workflow_id", id, "err", err)
	} else {
		span.SetAttributes(attribute.Int("waypoint.path_length", len(result)))
		e.logger.Info("workflow run complete", "workflow_id", id, "path", result.NodeIDs())
	}
	e.emitRun(ctx, id, result, e.now().Sub(started), err)
	return result, err
}

// ShortestPath resolves the Start..End path without evaluating conditions or changing anything.
func (e *Engine) ShortestPath(ctx context.Context, id string) (domain.Trace, error) {
	wf, err := e.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	path, err := runtime.FindShortestPath(wf)
	if err != nil {
		return nil, err
	}
	trace := make(domain.Trace, 0, len(path))
	for _, nodeID := range path {
		n, _ := wf.Node(nodeID)
		trace = append(trace, domain.NewTraceEntry(n))
	}
	return trace, nil
}

// ValidateWorkflow audits every node and edge of the stored workflow.
// It returns nil for a sound graph, otherwise a *domain.AggregateError.
func (e *Engine) ValidateWorkflow(ctx context.Context, id string) error {
	wf, err := e.store.Load(ctx, id)
	if err != nil {
		return err
	}
	return runtime.CheckWorkflow(wf)
}

func (e *Engine) emitEdge(ctx context.Context, typ domain.EventType, workflowID string, edge domain.Edge, err error) {
	hook := e.hooks.OnEdgeCreated
	if typ == domain.EventEdgeRejected {
		hook = e.hooks.OnEdgeRejected
	}
	if hook == nil {
		return
	}
	hook(ctx, &domain.EdgeEvent{
		EventBase: domain.EventBase{Timestamp: e.now(), Type: typ, WorkflowID: workflowID},
		Edge:      edge,
		Err:       err,
	})
}

func (e *Engine) emitRun(ctx context.Context, workflowID string, trace domain.Trace, d time.Duration, err error) {
	if e.hooks.OnRunComplete == nil {
		return
	}
	e.hooks.OnRunComplete(ctx, &domain.RunEvent{
		EventBase: domain.EventBase{Timestamp: e.now(), Type: domain.EventRunComplete, WorkflowID: workflowID},
		Path:      trace.NodeIDs(),
		Duration:  d,
		Err:       err,
	})
}

// eventBuffer holds executor events until the store transaction settles.
type eventBuffer struct {
	pending []func()
}

func (b *eventBuffer) reset() { b.pending = b.pending[:0] }

func (b *eventBuffer) flush() {
	for _, fire := range b.pending {
		fire()
	}
	b.pending = nil
}

func (b *eventBuffer) capture(h domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	if h.OnNodeVisit != nil {
		out.OnNodeVisit = func(ctx context.Context, ev *domain.NodeEvent) {
			b.pending = append(b.pending, func() { h.OnNodeVisit(ctx, ev) })
		}
	}
	if h.OnBranch != nil {
		out.OnBranch = func(ctx context.Context, ev *domain.BranchEvent) {
			b.pending = append(b.pending, func() { h.OnBranch(ctx, ev) })
		}
	}
	return out
}
