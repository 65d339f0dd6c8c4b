package runtime

import (
	"fmt"

	"github.com/aretw0/waypoint/pkg/domain"
)

// adjacency maps a node id to its successors in edge insertion order.
type adjacency map[string][]string

func buildAdjacency(wf *domain.Workflow) adjacency {
	adj := make(adjacency, len(wf.Nodes))
	for _, e := range wf.Edges {
		adj[e.StartNodeID] = append(adj[e.StartNodeID], e.EndNodeID)
	}
	return adj
}

// bfs returns the predecessor of every node reachable from source. The source maps to "".
func (adj adjacency) bfs(source string) map[string]string {
	parent := map[string]string{source: ""}
	queue := []string{source}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range adj[current] {
			if _, seen := parent[next]; seen {
				continue
			}
			parent[next] = current
			queue = append(queue, next)
		}
	}
	return parent
}

func walkBack(parent map[string]string, source, target string) []string {
	var reversed []string
	for id := target; ; id = parent[id] {
		reversed = append(reversed, id)
		if id == source {
			break
		}
	}
	path := make([]string, len(reversed))
	for i, id := range reversed {
		path[len(reversed)-1-i] = id
	}
	return path
}

// FindShortestPath returns the node ids of the shortest Start..End path.
//
// Every (start, end) pair is tried in workflow insertion order and the path with the fewest
// nodes wins; ties go to the pair found first. Among equally short paths between one pair,
// successors are explored in edge insertion order.
func FindShortestPath(wf *domain.Workflow) ([]string, error) {
	starts := wf.NodesOfType(domain.NodeTypeStart)
	if len(starts) == 0 {
		return nil, domain.ErrNoStartNode
	}
	ends := wf.NodesOfType(domain.NodeTypeEnd)
	if len(ends) == 0 {
		return nil, domain.ErrNoEndNode
	}

	adj := buildAdjacency(wf)
	var best []string
	for _, s := range starts {
		if p := nearest(adj, s.ID, ends); p != nil && (best == nil || len(p) < len(best)) {
			best = p
		}
	}
	if best == nil {
		return nil, domain.ErrNoPathFound
	}
	return best, nil
}

// ShortestPathFrom returns the shortest path from the given node to the nearest End node.
// A node that is itself an End yields a single-element path.
func ShortestPathFrom(wf *domain.Workflow, from string) ([]string, error) {
	if _, ok := wf.Node(from); !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, from)
	}
	ends := wf.NodesOfType(domain.NodeTypeEnd)
	if len(ends) == 0 {
		return nil, domain.ErrNoEndNode
	}

	p := nearest(buildAdjacency(wf), from, ends)
	if p == nil {
		return nil, fmt.Errorf("%w: from node %s", domain.ErrNoPathFound, from)
	}
	return p, nil
}

// nearest returns the shortest path from source to any of ends, or nil.
func nearest(adj adjacency, source string, ends []domain.Node) []string {
	parent := adj.bfs(source)
	var best []string
	for _, e := range ends {
		if _, ok := parent[e.ID]; !ok {
			continue
		}
		if p := walkBack(parent, source, e.ID); best == nil || len(p) < len(best) {
			best = p
		}
	}
	return best
}
