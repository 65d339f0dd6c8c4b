package ports

import (
	"context"

	"github.com/aretw0/waypoint/pkg/domain"
)

// WorkflowStore persists workflow aggregates.
//
// Node and edge ids are unique across the whole store, not only inside one workflow.
// Failures other than a missing entity are wrapped with domain.ErrStore.
type WorkflowStore interface {
	// Create persists a new workflow.
	// Returns domain.ErrDuplicateID if the workflow, or any of its node or edge ids, exists.
	Create(ctx context.Context, wf *domain.Workflow) error

	// Load returns a copy of the workflow.
	// Returns domain.ErrWorkflowNotFound if it does not exist.
	Load(ctx context.Context, id string) (*domain.Workflow, error)

	// Update loads the workflow, applies fn to a private copy and commits the copy only if fn
	// returns nil. Concurrent updates of the same workflow never interleave.
	Update(ctx context.Context, id string, fn func(wf *domain.Workflow) error) error

	// Delete removes the workflow with its nodes and edges.
	// Returns domain.ErrWorkflowNotFound if it does not exist.
	Delete(ctx context.Context, id string) error

	// List returns workflow ids in creation order.
	List(ctx context.Context) ([]string, error)

	// LocateNode returns the id of the workflow owning the node.
	// Returns domain.ErrNodeNotFound if no workflow holds it.
	LocateNode(ctx context.Context, nodeID string) (string, error)

	// LocateEdge returns the id of the workflow owning the edge.
	// Returns domain.ErrEdgeNotFound if no workflow holds it.
	LocateEdge(ctx context.Context, edgeID string) (string, error)
}
