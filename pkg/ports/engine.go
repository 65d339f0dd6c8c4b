package ports

import (
	"context"

	"github.com/aretw0/waypoint/pkg/domain"
)

// WorkflowService is the surface driving adapters (HTTP, MCP, CLI) call.
// The root waypoint.Engine implements it.
type WorkflowService interface {
	CreateWorkflow(ctx context.Context, name string) (*domain.Workflow, error)
	GetWorkflow(ctx context.Context, id string) (*domain.Workflow, error)
	// ListWorkflows pages through workflows in creation order. A limit <= 0 means the default page.
	ListWorkflows(ctx context.Context, skip, limit int) ([]*domain.Workflow, error)
	DeleteWorkflow(ctx context.Context, id string) error

	// CreateNode adds a node to a workflow. An empty node ID is generated.
	CreateNode(ctx context.Context, workflowID string, node domain.Node) (*domain.Node, error)
	GetNode(ctx context.Context, id string) (*domain.Node, error)
	ListNodes(ctx context.Context, skip, limit int) ([]domain.Node, error)
	UpdateNode(ctx context.Context, id string, node domain.Node) (*domain.Node, error)
	// DeleteNode removes the node and every edge touching it, returning the removed node.
	DeleteNode(ctx context.Context, id string) (*domain.Node, error)

	// CreateEdge validates and adds an edge. An empty edge ID is generated.
	CreateEdge(ctx context.Context, workflowID string, edge domain.Edge) (*domain.Edge, error)
	GetEdge(ctx context.Context, id string) (*domain.Edge, error)
	ListEdges(ctx context.Context, skip, limit int) ([]domain.Edge, error)
	UpdateEdge(ctx context.Context, id string, edge domain.Edge) (*domain.Edge, error)
	DeleteEdge(ctx context.Context, id string) error

	// RunWorkflow executes the workflow, persisting the branch tags it sets.
	RunWorkflow(ctx context.Context, id string) (domain.Trace, error)
	// ShortestPath resolves the Start..End path without evaluating conditions.
	ShortestPath(ctx context.Context, id string) (domain.Trace, error)
	// ValidateWorkflow audits every node and edge, returning a *domain.AggregateError.
	ValidateWorkflow(ctx context.Context, id string) error
}
