package waypoint

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/waypoint/internal/runtime"
	"github.com/aretw0/waypoint/pkg/domain"
)

// MsgWorkflowName is returned when a workflow is created without a name.
const MsgWorkflowName = "Workflow name is required."

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}

// CreateWorkflow creates an empty workflow.
func (e *Engine) CreateWorkflow(ctx context.Context, name string) (*domain.Workflow, error) {
	if strings.TrimSpace(name) == "" {
		return nil, domain.Invalid(MsgWorkflowName)
	}
	wf := domain.NewWorkflow(e.newID(), name, e.now().UTC())
	if err := e.store.Create(ctx, wf); err != nil {
		return nil, err
	}
	e.logger.Info("workflow created", "workflow_id", wf.ID, "name", name)
	return wf, nil
}

// GetWorkflow returns the workflow with its nodes and edges.
func (e *Engine) GetWorkflow(ctx context.Context, id string) (*domain.Workflow, error) {
	return e.store.Load(ctx, id)
}

// ListWorkflows pages through workflows in creation order.
func (e *Engine) ListWorkflows(ctx context.Context, skip, limit int) ([]*domain.Workflow, error) {
	ids, err := e.store.List(ctx)
	if err != nil {
		return nil, err
	}
	lo, hi := window(len(ids), skip, limit)

	out := make([]*domain.Workflow, 0, hi-lo)
	for _, id := range ids[lo:hi] {
		wf, err := e.store.Load(ctx, id)
		if err != nil {
			// Deleted between List and Load.
			if isNotFound(err) {
				continue
			}
			return nil, err
		}
		out = append(out, wf)
	}
	return out, nil
}

// DeleteWorkflow removes the workflow with its nodes and edges.
func (e *Engine) DeleteWorkflow(ctx context.Context, id string) error {
	err := e.locks.WithLock(ctx, id, func(ctx context.Context) error {
		return e.store.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	e.logger.Info("workflow deleted", "workflow_id", id)
	return nil
}

// CreateNode validates the node payload and adds it to the workflow.
func (e *Engine) CreateNode(ctx context.Context, workflowID string, node domain.Node) (*domain.Node, error) {
	if err := runtime.ValidateNode(node); err != nil {
		return nil, err
	}
	if node.ID == "" {
		node.ID = e.newID()
	}
	node.WorkflowID = workflowID

	err := e.mutate(ctx, workflowID, func(wf *domain.Workflow) error {
		if err := wf.AddNode(node); err != nil {
			return err
		}
		wf.UpdatedAt = e.now().UTC()
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.logger.Info("node created", "workflow_id", workflowID, "node_id", node.ID, "type", node.Type)
	return &node, nil
}

// GetNode finds a node by id in whichever workflow owns it.
func (e *Engine) GetNode(ctx context.Context, id string) (*domain.Node, error) {
	owner, err := e.store.LocateNode(ctx, id)
	if err != nil {
		return nil, err
	}
	wf, err := e.store.Load(ctx, owner)
	if err != nil {
		return nil, err
	}
	n, ok := wf.Node(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, id)
	}
	return &n, nil
}

// ListNodes pages through every node, workflow by workflow in creation order.
func (e *Engine) ListNodes(ctx context.Context, skip, limit int) ([]domain.Node, error) {
	var all []domain.Node
	if err := e.each(ctx, func(wf *domain.Workflow) {
		all = append(all, wf.Nodes...)
	}); err != nil {
		return nil, err
	}
	lo, hi := window(len(all), skip, limit)
	return append([]domain.Node{}, all[lo:hi]...), nil
}

// UpdateNode replaces the node's payload, keeping its id, workflow and position.
func (e *Engine) UpdateNode(ctx context.Context, id string, node domain.Node) (*domain.Node, error) {
	if err := runtime.ValidateNode(node); err != nil {
		return nil, err
	}
	owner, err := e.store.LocateNode(ctx, id)
	if err != nil {
		return nil, err
	}
	node.ID = id
	node.WorkflowID = owner

	err = e.mutate(ctx, owner, func(wf *domain.Workflow) error {
		if err := wf.ReplaceNode(node); err != nil {
			return err
		}
		wf.UpdatedAt = e.now().UTC()
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.logger.Info("node updated", "workflow_id", owner, "node_id", id)
	return &node, nil
}

// DeleteNode removes the node and every edge touching it.
func (e *Engine) DeleteNode(ctx context.Context, id string) (*domain.Node, error) {
	owner, err := e.store.LocateNode(ctx, id)
	if err != nil {
		return nil, err
	}

	var (
		removed domain.Node
		edges   []domain.Edge
	)
	err = e.mutate(ctx, owner, func(wf *domain.Workflow) error {
		n, ok := wf.Node(id)
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrNodeNotFound, id)
		}
		cascaded, err := wf.RemoveNode(id)
		if err != nil {
			return err
		}
		removed, edges = n, cascaded
		wf.UpdatedAt = e.now().UTC()
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.logger.Info("node deleted", "workflow_id", owner, "node_id", id, "edges_removed", len(edges))
	return &removed, nil
}

// GetEdge finds an edge by id in whichever workflow owns it.
func (e *Engine) GetEdge(ctx context.Context, id string) (*domain.Edge, error) {
	owner, err := e.store.LocateEdge(ctx, id)
	if err != nil {
		return nil, err
	}
	wf, err := e.store.Load(ctx, owner)
	if err != nil {
		return nil, err
	}
	edge, ok := wf.Edge(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrEdgeNotFound, id)
	}
	return &edge, nil
}

// ListEdges pages through every edge, workflow by workflow in creation order.
func (e *Engine) ListEdges(ctx context.Context, skip, limit int) ([]domain.Edge, error) {
	var all []domain.Edge
	if err := e.each(ctx, func(wf *domain.Workflow) {
		all = append(all, wf.Edges...)
	}); err != nil {
		return nil, err
	}
	lo, hi := window(len(all), skip, limit)
	return append([]domain.Edge{}, all[lo:hi]...), nil
}

// UpdateEdge overwrites an edge's endpoints and status. Only field values are checked;
// ValidateWorkflow audits the graph invariants afterwards. Empty endpoints keep their
// current value.
func (e *Engine) UpdateEdge(ctx context.Context, id string, edge domain.Edge) (*domain.Edge, error) {
	if err := runtime.ValidateEdgeFields(edge); err != nil {
		return nil, err
	}
	owner, err := e.store.LocateEdge(ctx, id)
	if err != nil {
		return nil, err
	}

	err = e.mutate(ctx, owner, func(wf *domain.Workflow) error {
		current, ok := wf.Edge(id)
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrEdgeNotFound, id)
		}
		if edge.StartNodeID == "" {
			edge.StartNodeID = current.StartNodeID
		}
		if edge.EndNodeID == "" {
			edge.EndNodeID = current.EndNodeID
		}
		edge.ID = id
		edge.WorkflowID = owner
		if err := wf.ReplaceEdge(edge); err != nil {
			return err
		}
		wf.UpdatedAt = e.now().UTC()
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.logger.Info("edge updated", "workflow_id", owner, "edge_id", id)
	return &edge, nil
}

// DeleteEdge removes an edge.
func (e *Engine) DeleteEdge(ctx context.Context, id string) error {
	owner, err := e.store.LocateEdge(ctx, id)
	if err != nil {
		return err
	}
	err = e.mutate(ctx, owner, func(wf *domain.Workflow) error {
		if err := wf.RemoveEdge(id); err != nil {
			return err
		}
		wf.UpdatedAt = e.now().UTC()
		return nil
	})
	if err != nil {
		return err
	}
	e.logger.Info("edge deleted", "workflow_id", owner, "edge_id", id)
	return nil
}

// each loads every workflow in creation order.
func (e *Engine) each(ctx context.Context, fn func(*domain.Workflow)) error {
	ids, err := e.store.List(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		wf, err := e.store.Load(ctx, id)
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return err
		}
		fn(wf)
	}
	return nil
}
