package domain

// WorkflowDiff lists the entity-level changes between two snapshots of a workflow.
// Stores that persist nodes and edges as separate records apply it inside their
// transaction instead of rewriting the whole aggregate.
type WorkflowDiff struct {
	// HeaderChanged is set when the name or timestamps differ.
	HeaderChanged bool

	AddedNodes   []Node
	ChangedNodes []Node
	RemovedNodes []string

	AddedEdges   []Edge
	ChangedEdges []Edge
	RemovedEdges []string
}

// Diff calculates the difference between oldWf and newWf.
// If oldWf is nil, every node and edge of newWf is reported as added.
func Diff(oldWf, newWf *Workflow) *WorkflowDiff {
	if newWf == nil {
		return nil
	}

	diff := &WorkflowDiff{}
	if oldWf == nil {
		diff.HeaderChanged = true
		diff.AddedNodes = append(diff.AddedNodes, newWf.Nodes...)
		diff.AddedEdges = append(diff.AddedEdges, newWf.Edges...)
		return diff
	}

	diff.HeaderChanged = oldWf.Name != newWf.Name ||
		!oldWf.CreatedAt.Equal(newWf.CreatedAt) ||
		!oldWf.UpdatedAt.Equal(newWf.UpdatedAt)

	for _, n := range newWf.Nodes {
		prev, ok := oldWf.Node(n.ID)
		switch {
		case !ok:
			diff.AddedNodes = append(diff.AddedNodes, n)
		case prev != n:
			diff.ChangedNodes = append(diff.ChangedNodes, n)
		}
	}
	for _, n := range oldWf.Nodes {
		if _, ok := newWf.Node(n.ID); !ok {
			diff.RemovedNodes = append(diff.RemovedNodes, n.ID)
		}
	}

	for _, e := range newWf.Edges {
		prev, ok := oldWf.Edge(e.ID)
		switch {
		case !ok:
			diff.AddedEdges = append(diff.AddedEdges, e)
		case prev != e:
			diff.ChangedEdges = append(diff.ChangedEdges, e)
		}
	}
	for _, e := range oldWf.Edges {
		if _, ok := newWf.Edge(e.ID); !ok {
			diff.RemovedEdges = append(diff.RemovedEdges, e.ID)
		}
	}

	return diff
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *WorkflowDiff) IsEmpty() bool {
	return !d.HeaderChanged &&
		len(d.AddedNodes) == 0 && len(d.ChangedNodes) == 0 && len(d.RemovedNodes) == 0 &&
		len(d.AddedEdges) == 0 && len(d.ChangedEdges) == 0 && len(d.RemovedEdges) == 0
}
