package domain

import (
	"fmt"
	"time"
)

// Workflow is a named directed graph owning its nodes and edges.
//
// Nodes and Edges keep insertion order, which is the iteration order used for
// deterministic tie-breaking. The unexported index maps node ids to their
// outgoing and incoming edges. It is maintained by the mutators below and must be
// rebuilt with Reindex after Nodes or Edges are assigned directly (e.g. decoding).
type Workflow struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Nodes     []Node    `json:"nodes"`
	Edges     []Edge    `json:"edges"`

	nodePos  map[string]int
	edgePos  map[string]int
	outgoing map[string][]string
	incoming map[string][]string
}

// NewWorkflow creates an empty workflow stamped with now.
func NewWorkflow(id, name string, now time.Time) *Workflow {
	w := &Workflow{
		ID:        id,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
		Nodes:     []Node{},
		Edges:     []Edge{},
	}
	w.Reindex()
	return w
}

// Reindex rebuilds the node/edge lookup tables from Nodes and Edges.
func (w *Workflow) Reindex() {
	w.nodePos = make(map[string]int, len(w.Nodes))
	w.edgePos = make(map[string]int, len(w.Edges))
	w.outgoing = make(map[string][]string)
	w.incoming = make(map[string][]string)
	for i, n := range w.Nodes {
		w.nodePos[n.ID] = i
	}
	for i, e := range w.Edges {
		w.edgePos[e.ID] = i
		w.outgoing[e.StartNodeID] = append(w.outgoing[e.StartNodeID], e.ID)
		w.incoming[e.EndNodeID] = append(w.incoming[e.EndNodeID], e.ID)
	}
}

func (w *Workflow) ensureIndex() {
	if w.nodePos == nil || len(w.nodePos) != len(w.Nodes) || len(w.edgePos) != len(w.Edges) {
		w.Reindex()
	}
}

// Node returns a copy of the node with the given id.
func (w *Workflow) Node(id string) (Node, bool) {
	w.ensureIndex()
	i, ok := w.nodePos[id]
	if !ok {
		return Node{}, false
	}
	return w.Nodes[i], true
}

// Edge returns a copy of the edge with the given id.
func (w *Workflow) Edge(id string) (Edge, bool) {
	w.ensureIndex()
	i, ok := w.edgePos[id]
	if !ok {
		return Edge{}, false
	}
	return w.Edges[i], true
}

// AddNode appends n, stamping its WorkflowID.
func (w *Workflow) AddNode(n Node) error {
	w.ensureIndex()
	if _, exists := w.nodePos[n.ID]; exists {
		return fmt.Errorf("%w: node %s", ErrDuplicateID, n.ID)
	}
	n.WorkflowID = w.ID
	w.Nodes = append(w.Nodes, n)
	w.nodePos[n.ID] = len(w.Nodes) - 1
	return nil
}

// ReplaceNode overwrites the node with the same id, keeping its position.
func (w *Workflow) ReplaceNode(n Node) error {
	w.ensureIndex()
	i, ok := w.nodePos[n.ID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, n.ID)
	}
	n.WorkflowID = w.ID
	w.Nodes[i] = n
	return nil
}

// RemoveNode deletes the node and every edge touching it. It returns the removed edges.
func (w *Workflow) RemoveNode(id string) ([]Edge, error) {
	w.ensureIndex()
	i, ok := w.nodePos[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	w.Nodes = append(w.Nodes[:i], w.Nodes[i+1:]...)

	var removed []Edge
	kept := w.Edges[:0]
	for _, e := range w.Edges {
		if e.StartNodeID == id || e.EndNodeID == id {
			removed = append(removed, e)
			continue
		}
		kept = append(kept, e)
	}
	w.Edges = kept
	w.Reindex()
	return removed, nil
}

// AddEdge appends e, stamping its WorkflowID. Endpoints must already exist.
func (w *Workflow) AddEdge(e Edge) error {
	w.ensureIndex()
	if _, exists := w.edgePos[e.ID]; exists {
		return fmt.Errorf("%w: edge %s", ErrDuplicateID, e.ID)
	}
	if _, ok := w.nodePos[e.StartNodeID]; !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, e.StartNodeID)
	}
	if _, ok := w.nodePos[e.EndNodeID]; !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, e.EndNodeID)
	}
	e.WorkflowID = w.ID
	w.Edges = append(w.Edges, e)
	w.edgePos[e.ID] = len(w.Edges) - 1
	w.outgoing[e.StartNodeID] = append(w.outgoing[e.StartNodeID], e.ID)
	w.incoming[e.EndNodeID] = append(w.incoming[e.EndNodeID], e.ID)
	return nil
}

// ReplaceEdge overwrites the edge with the same id. Endpoints may change.
func (w *Workflow) ReplaceEdge(e Edge) error {
	w.ensureIndex()
	i, ok := w.edgePos[e.ID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrEdgeNotFound, e.ID)
	}
	if _, ok := w.nodePos[e.StartNodeID]; !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, e.StartNodeID)
	}
	if _, ok := w.nodePos[e.EndNodeID]; !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, e.EndNodeID)
	}
	old := w.Edges[i]
	e.WorkflowID = w.ID
	w.Edges[i] = e
	if old.StartNodeID != e.StartNodeID || old.EndNodeID != e.EndNodeID {
		w.Reindex()
	}
	return nil
}

// SetEdgeStatus updates only the status of an edge.
func (w *Workflow) SetEdgeStatus(id string, status EdgeStatus) error {
	w.ensureIndex()
	i, ok := w.edgePos[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrEdgeNotFound, id)
	}
	w.Edges[i].Status = status
	return nil
}

// RemoveEdge deletes the edge with the given id.
func (w *Workflow) RemoveEdge(id string) error {
	w.ensureIndex()
	i, ok := w.edgePos[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrEdgeNotFound, id)
	}
	w.Edges = append(w.Edges[:i], w.Edges[i+1:]...)
	w.Reindex()
	return nil
}

// Outgoing returns the edges leaving nodeID in insertion order.
func (w *Workflow) Outgoing(nodeID string) []Edge {
	w.ensureIndex()
	return w.collect(w.outgoing[nodeID])
}

// Incoming returns the edges entering nodeID in insertion order.
func (w *Workflow) Incoming(nodeID string) []Edge {
	w.ensureIndex()
	return w.collect(w.incoming[nodeID])
}

func (w *Workflow) collect(ids []string) []Edge {
	edges := make([]Edge, 0, len(ids))
	for _, id := range ids {
		edges = append(edges, w.Edges[w.edgePos[id]])
	}
	return edges
}

// EdgeBetween returns the first edge from -> to.
func (w *Workflow) EdgeBetween(from, to string) (Edge, bool) {
	for _, e := range w.Outgoing(from) {
		if e.EndNodeID == to {
			return e, true
		}
	}
	return Edge{}, false
}

// NodesOfType returns the nodes of type t in insertion order.
func (w *Workflow) NodesOfType(t NodeType) []Node {
	var nodes []Node
	for _, n := range w.Nodes {
		if n.Type == t {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

// Clone returns a deep copy safe for independent mutation.
func (w *Workflow) Clone() *Workflow {
	if w == nil {
		return nil
	}
	c := *w
	c.Nodes = append(make([]Node, 0, len(w.Nodes)), w.Nodes...)
	c.Edges = append(make([]Edge, 0, len(w.Edges)), w.Edges...)
	c.Reindex()
	return &c
}
