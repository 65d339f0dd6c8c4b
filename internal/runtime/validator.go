package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/waypoint/pkg/domain"
)

// Rejection messages. They are part of the API and must not change.
const (
	MsgStartNotInWorkflow   = "Start Node does not belong to the specified workflow."
	MsgEndNotInWorkflow     = "End Node does not belong to the specified workflow."
	MsgStartHasIncoming     = "Start Node cannot have incoming edges."
	MsgStartSingleOutgoing  = "Start Node can only have one outgoing edge."
	MsgMessageRequired      = "Message Node must have a message."
	MsgMessageSingleOut     = "Message Node can only have one outgoing edge."
	MsgConditionTwoOutgoing = "Condition Node can only have two outgoing edges (Yes and No)."
	MsgConditionBranchTag   = "Condition Node outgoing edges must be 'Yes' or 'No'."
	MsgConditionDuplicate   = "Condition Node already has an outgoing edge with status '%s'."
	MsgEndHasOutgoing       = "End Node cannot have outgoing edges."
	MsgStartAsEnd           = "Start Node cannot be an end node."
	MsgConditionPreceded    = "Condition Node must be preceded by a Message Node."
	MsgExpressionRequired   = "Condition Node must have a condition expression."
	MsgNodeType             = "Node type must be one of Start, Message, Condition, End."
	MsgNodeStatus           = "Node status must be one of pending, sent, opened."
	MsgEdgeStatus           = "Edge status must be 'Yes' or 'No'."
)

// EdgeRequest is an edge creation request. ID must already be assigned.
type EdgeRequest struct {
	ID          string
	StartNodeID string
	EndNodeID   string
	Status      domain.EdgeStatus
}

// Validator enforces the graph invariants when edges are created.
type Validator struct {
	evaluate ConditionEvaluator
	locator  NodeLocator
	logger   *slog.Logger
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithNodeLocator lets the validator tell foreign nodes apart from unknown ones.
func WithNodeLocator(l NodeLocator) ValidatorOption {
	return func(v *Validator) {
		v.locator = l
	}
}

// WithValidatorLogger sets the logger used for rejections.
func WithValidatorLogger(logger *slog.Logger) ValidatorOption {
	return func(v *Validator) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// NewValidator creates a validator. A nil evaluate falls back to DefaultEvaluator.
func NewValidator(evaluate ConditionEvaluator, opts ...ValidatorOption) *Validator {
	if evaluate == nil {
		evaluate = DefaultEvaluator()
	}
	v := &Validator{
		evaluate: evaluate,
		logger:   nopLogger(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// BuildEdge checks req against wf and, when legal, appends the new edge to wf.
//
// Edges into a Condition node get their status from evaluating the condition against the
// start node's message; the requested status is ignored.
func (v *Validator) BuildEdge(ctx context.Context, wf *domain.Workflow, req EdgeRequest) (domain.Edge, error) {
	edge, err := v.buildEdge(ctx, wf, req)
	if err != nil {
		v.logger.Warn("edge rejected",
			"workflow_id", wf.ID,
			"start_node_id", req.StartNodeID,
			"end_node_id", req.EndNodeID,
			"err", err)
		return domain.Edge{}, err
	}
	v.logger.Debug("edge accepted", "workflow_id", wf.ID, "edge_id", edge.ID, "status", edge.Status)
	return edge, nil
}

func (v *Validator) buildEdge(ctx context.Context, wf *domain.Workflow, req EdgeRequest) (domain.Edge, error) {
	start, startOwned, err := v.resolve(ctx, wf, req.StartNodeID)
	if err != nil {
		return domain.Edge{}, err
	}
	end, endOwned, err := v.resolve(ctx, wf, req.EndNodeID)
	if err != nil {
		return domain.Edge{}, err
	}
	if !startOwned {
		return domain.Edge{}, &domain.ValidationError{Message: MsgStartNotInWorkflow, Cause: domain.ErrNodeNotInWorkflow}
	}
	if !endOwned {
		return domain.Edge{}, &domain.ValidationError{Message: MsgEndNotInWorkflow, Cause: domain.ErrNodeNotInWorkflow}
	}

	outgoing := wf.Outgoing(start.ID)

	switch start.Type {
	case domain.NodeTypeStart:
		if len(wf.Incoming(start.ID)) > 0 {
			return domain.Edge{}, domain.Invalid(MsgStartHasIncoming)
		}
		if len(outgoing) >= 1 {
			return domain.Edge{}, domain.Invalid(MsgStartSingleOutgoing)
		}
	case domain.NodeTypeMessage:
		if start.Message == "" {
			return domain.Edge{}, domain.Invalid(MsgMessageRequired)
		}
		if len(outgoing) >= 1 {
			return domain.Edge{}, domain.Invalid(MsgMessageSingleOut)
		}
	case domain.NodeTypeCondition:
		if len(outgoing) >= 2 {
			return domain.Edge{}, domain.Invalid(MsgConditionTwoOutgoing)
		}
		if !req.Status.IsBranch() {
			return domain.Edge{}, domain.Invalid(MsgConditionBranchTag)
		}
		for _, e := range outgoing {
			if e.Status == req.Status {
				return domain.Edge{}, domain.Invalidf(MsgConditionDuplicate, req.Status)
			}
		}
	case domain.NodeTypeEnd:
		return domain.Edge{}, domain.Invalid(MsgEndHasOutgoing)
	}

	status := req.Status
	switch end.Type {
	case domain.NodeTypeStart:
		return domain.Edge{}, domain.Invalid(MsgStartAsEnd)
	case domain.NodeTypeCondition:
		if start.Type != domain.NodeTypeMessage {
			return domain.Edge{}, domain.Invalid(MsgConditionPreceded)
		}
		outcome, err := v.evaluate(ctx, end.ConditionExpression, start.Message)
		if err != nil {
			return domain.Edge{}, fmt.Errorf("evaluating condition node %s: %w", end.ID, err)
		}
		status = domain.EdgeStatusFor(outcome)
	default:
		if !status.Valid() {
			return domain.Edge{}, domain.Invalid(MsgEdgeStatus)
		}
	}

	edge := domain.Edge{
		ID:          req.ID,
		WorkflowID:  wf.ID,
		StartNodeID: start.ID,
		EndNodeID:   end.ID,
		Status:      status,
	}
	if err := wf.AddEdge(edge); err != nil {
		return domain.Edge{}, err
	}
	return edge, nil
}

// resolve finds nodeID in wf. owned is false when another workflow holds the node.
func (v *Validator) resolve(ctx context.Context, wf *domain.Workflow, nodeID string) (domain.Node, bool, error) {
	if n, ok := wf.Node(nodeID); ok {
		return n, true, nil
	}
	notFound := fmt.Errorf("%w: %s", domain.ErrNodeNotFound, nodeID)
	if v.locator == nil {
		return domain.Node{}, false, notFound
	}

	owner, err := v.locator.LocateNode(ctx, nodeID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return domain.Node{}, false, notFound
	case err != nil:
		return domain.Node{}, false, fmt.Errorf("locating node %s: %w", nodeID, err)
	case owner == wf.ID:
		// The index says we own it but the snapshot disagrees.
		return domain.Node{}, false, notFound
	}
	return domain.Node{ID: nodeID, WorkflowID: owner}, false, nil
}

// ValidateNode checks the payload rules for a node being created or replaced.
func ValidateNode(n domain.Node) error {
	if !n.Type.Valid() {
		return domain.Invalid(MsgNodeType)
	}
	if !n.Status.Valid() {
		return domain.Invalid(MsgNodeStatus)
	}
	switch n.Type {
	case domain.NodeTypeMessage:
		if n.Message == "" {
			return domain.Invalid(MsgMessageRequired)
		}
	case domain.NodeTypeCondition:
		if n.ConditionExpression == "" {
			return domain.Invalid(MsgExpressionRequired)
		}
	}
	return nil
}

// ValidateEdgeFields checks an edge's own fields, without looking at the graph around it.
func ValidateEdgeFields(e domain.Edge) error {
	if !e.Status.Valid() {
		return domain.Invalid(MsgEdgeStatus)
	}
	return nil
}

// CheckWorkflow re-applies the structural invariants to a whole workflow and returns every
// violation as a *domain.AggregateError, or nil when the graph is sound.
// Edges edited in place bypass BuildEdge, so this is how such graphs are audited.
func CheckWorkflow(wf *domain.Workflow) error {
	var errs []error
	report := func(kind, id string, err error) {
		errs = append(errs, fmt.Errorf("%s %s: %w", kind, id, err))
	}

	for _, n := range wf.Nodes {
		if err := ValidateNode(n); err != nil {
			report("node", n.ID, err)
		}

		out := wf.Outgoing(n.ID)
		switch n.Type {
		case domain.NodeTypeStart:
			if len(out) > 1 {
				report("node", n.ID, domain.Invalid(MsgStartSingleOutgoing))
			}
		case domain.NodeTypeMessage:
			if len(out) > 1 {
				report("node", n.ID, domain.Invalid(MsgMessageSingleOut))
			}
		case domain.NodeTypeCondition:
			if len(out) > 2 {
				report("node", n.ID, domain.Invalid(MsgConditionTwoOutgoing))
			}
			seen := make(map[domain.EdgeStatus]bool, len(out))
			for _, e := range out {
				if !e.Status.IsBranch() {
					report("edge", e.ID, domain.Invalid(MsgConditionBranchTag))
					continue
				}
				if seen[e.Status] {
					report("edge", e.ID, domain.Invalidf(MsgConditionDuplicate, e.Status))
				}
				seen[e.Status] = true
			}
		case domain.NodeTypeEnd:
			if len(out) > 0 {
				report("node", n.ID, domain.Invalid(MsgEndHasOutgoing))
			}
		}
	}

	for _, e := range wf.Edges {
		if err := ValidateEdgeFields(e); err != nil {
			report("edge", e.ID, err)
		}
		start, _ := wf.Node(e.StartNodeID)
		end, _ := wf.Node(e.EndNodeID)
		switch end.Type {
		case domain.NodeTypeStart:
			report("edge", e.ID, domain.Invalid(MsgStartAsEnd))
		case domain.NodeTypeCondition:
			if start.Type != domain.NodeTypeMessage {
				report("edge", e.ID, domain.Invalid(MsgConditionPreceded))
			}
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return &domain.AggregateError{Errors: errs}
}
