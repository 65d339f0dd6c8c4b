package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/waypoint/pkg/domain"
)

// Executor walks a workflow from Start to End and records the visited nodes.
type Executor struct {
	evaluate ConditionEvaluator
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
	now      func() time.Time
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithExecutorHooks registers node and branch callbacks.
func WithExecutorHooks(hooks domain.LifecycleHooks) ExecutorOption {
	return func(x *Executor) {
		x.hooks = hooks
	}
}

// WithExecutorLogger sets the traversal logger.
func WithExecutorLogger(logger *slog.Logger) ExecutorOption {
	return func(x *Executor) {
		if logger != nil {
			x.logger = logger
		}
	}
}

// WithExecutorClock overrides the event timestamp source.
func WithExecutorClock(now func() time.Time) ExecutorOption {
	return func(x *Executor) {
		if now != nil {
			x.now = now
		}
	}
}

// NewExecutor creates an executor. A nil evaluate falls back to DefaultEvaluator.
func NewExecutor(evaluate ConditionEvaluator, opts ...ExecutorOption) *Executor {
	if evaluate == nil {
		evaluate = DefaultEvaluator()
	}
	x := &Executor{
		evaluate: evaluate,
		logger:   nopLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Run executes wf and returns the trace of visited nodes.
//
// The walk starts on the path from FindShortestPath. At each Condition node the expression is
// evaluated against the most recent Message node, the edge from that message into the condition
// is tagged Yes or No, and the walk follows the outgoing branch carrying the same tag. When that
// branch leaves the precomputed path, the rest of the path is re-resolved from the branch target.
//
// Run mutates edge statuses on wf. Callers should pass a snapshot they can discard on error.
func (x *Executor) Run(ctx context.Context, wf *domain.Workflow) (domain.Trace, error) {
	path, err := FindShortestPath(wf)
	if err != nil {
		return nil, err
	}
	x.logger.Debug("path resolved", "workflow_id", wf.ID, "path", path)

	trace := make(domain.Trace, 0, len(path))
	var lastMessage *domain.Node
	// A Condition revisited under the same message would repeat forever.
	decided := make(map[[2]string]bool)

	for i := 0; i < len(path); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		node, ok := wf.Node(path[i])
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, path[i])
		}
		trace = append(trace, domain.NewTraceEntry(node))
		x.emitNodeVisit(ctx, wf.ID, node)

		switch node.Type {
		case domain.NodeTypeMessage:
			n := node
			lastMessage = &n

		case domain.NodeTypeCondition:
			if lastMessage == nil {
				x.logger.Warn("condition without message", "workflow_id", wf.ID, "node_id", node.ID)
				return nil, domain.ErrMissingConditionContext
			}
			key := [2]string{node.ID, lastMessage.ID}
			if decided[key] {
				return nil, fmt.Errorf("%w: condition node %s loops back on itself", domain.ErrNoPathFound, node.ID)
			}
			decided[key] = true

			next, err := x.branch(ctx, wf, node, *lastMessage)
			if err != nil {
				return nil, err
			}
			if i+1 < len(path) && path[i+1] == next {
				continue
			}

			rest, err := ShortestPathFrom(wf, next)
			if err != nil {
				return nil, err
			}
			x.logger.Debug("branch diverged from path", "workflow_id", wf.ID, "node_id", node.ID, "target", next)
			spliced := make([]string, 0, i+1+len(rest))
			spliced = append(spliced, path[:i+1]...)
			path = append(spliced, rest...)
		}
	}
	return trace, nil
}

// branch evaluates cond against msg, tags the msg -> cond edge and returns the id of the node
// the matching outgoing branch leads to.
func (x *Executor) branch(ctx context.Context, wf *domain.Workflow, cond, msg domain.Node) (string, error) {
	outcome, err := x.evaluate(ctx, cond.ConditionExpression, msg.Message)
	if err != nil {
		return "", fmt.Errorf("evaluating condition node %s: %w", cond.ID, err)
	}
	status := domain.EdgeStatusFor(outcome)
	x.logger.Debug("condition evaluated", "workflow_id", wf.ID, "node_id", cond.ID, "outcome", status)
	x.emitBranch(ctx, wf.ID, cond, outcome)

	if e, ok := wf.EdgeBetween(msg.ID, cond.ID); ok {
		if err := wf.SetEdgeStatus(e.ID, status); err != nil {
			return "", err
		}
	}

	for _, e := range wf.Outgoing(cond.ID) {
		if e.Status == status {
			return e.EndNodeID, nil
		}
	}
	return "", fmt.Errorf("%w: condition node %s has no '%s' branch", domain.ErrNoPathFound, cond.ID, status)
}

func (x *Executor) emitNodeVisit(ctx context.Context, workflowID string, node domain.Node) {
	if x.hooks.OnNodeVisit == nil {
		return
	}
	x.hooks.OnNodeVisit(ctx, &domain.NodeEvent{
		EventBase: domain.EventBase{Timestamp: x.now(), Type: domain.EventNodeVisit, WorkflowID: workflowID},
		NodeID:    node.ID,
		NodeType:  node.Type,
	})
}

func (x *Executor) emitBranch(ctx context.Context, workflowID string, cond domain.Node, outcome bool) {
	if x.hooks.OnBranch == nil {
		return
	}
	x.hooks.OnBranch(ctx, &domain.BranchEvent{
		EventBase:  domain.EventBase{Timestamp: x.now(), Type: domain.EventBranchEvaluated, WorkflowID: workflowID},
		NodeID:     cond.ID,
		Expression: cond.ConditionExpression,
		Outcome:    outcome,
	})
}
