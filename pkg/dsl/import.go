package dsl

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/aretw0/waypoint/pkg/ports"
)

type importConfig struct {
	freshIDs bool
	keep     bool
}

// ImportOption configures Import.
type ImportOption func(*importConfig)

// WithFreshIDs lets the service mint node and edge ids instead of using the ones in the
// definition. Use it to import the same definition more than once into a store, where ids
// must be unique.
func WithFreshIDs() ImportOption {
	return func(c *importConfig) {
		c.freshIDs = true
	}
}

// KeepPartial leaves a half-imported workflow in place when an edge is rejected.
// By default the workflow is deleted again.
func KeepPartial() ImportOption {
	return func(c *importConfig) {
		c.keep = true
	}
}

// Import creates the workflow, then its nodes, then its edges through svc, and returns the
// stored result. Edges into Condition nodes get their status from the validator, exactly as
// when built by hand.
func Import(ctx context.Context, svc ports.WorkflowService, def *Definition, opts ...ImportOption) (wf *domain.Workflow, err error) {
	var cfg importConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := def.Check(); err != nil {
		return nil, err
	}

	created, err := svc.CreateWorkflow(ctx, def.Name)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil && !cfg.keep {
			if derr := svc.DeleteWorkflow(context.WithoutCancel(ctx), created.ID); derr != nil {
				err = errors.Join(err, fmt.Errorf("rolling back workflow %s: %w", created.ID, derr))
			}
		}
	}()

	ids := make(map[string]string, len(def.Nodes))
	for _, n := range def.Nodes {
		local := n.ID
		if cfg.freshIDs {
			n.ID = ""
		}
		node, err := svc.CreateNode(ctx, created.ID, n)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", local, err)
		}
		ids[local] = node.ID
	}

	for _, e := range def.Edges {
		from, to := e.StartNodeID, e.EndNodeID
		e.StartNodeID, e.EndNodeID = ids[from], ids[to]
		if cfg.freshIDs {
			e.ID = ""
		}
		if _, err := svc.CreateEdge(ctx, created.ID, e); err != nil {
			return nil, fmt.Errorf("edge %s -> %s: %w", from, to, err)
		}
	}

	return svc.GetWorkflow(ctx, created.ID)
}
