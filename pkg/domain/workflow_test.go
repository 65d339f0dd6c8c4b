package domain_test

import (
	"testing"
	"time"

	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLinearWorkflow(t *testing.T) *domain.Workflow {
	t.Helper()
	wf := domain.NewWorkflow("wf", "linear", time.Unix(0, 0))
	require.NoError(t, wf.AddNode(domain.Node{ID: "s", Type: domain.NodeTypeStart}))
	require.NoError(t, wf.AddNode(domain.Node{ID: "m", Type: domain.NodeTypeMessage, Message: "hi"}))
	require.NoError(t, wf.AddNode(domain.Node{ID: "e", Type: domain.NodeTypeEnd}))
	require.NoError(t, wf.AddEdge(domain.Edge{ID: "e1", StartNodeID: "s", EndNodeID: "m"}))
	require.NoError(t, wf.AddEdge(domain.Edge{ID: "e2", StartNodeID: "m", EndNodeID: "e"}))
	return wf
}

func TestWorkflow_Index(t *testing.T) {
	wf := newLinearWorkflow(t)

	out := wf.Outgoing("s")
	require.Len(t, out, 1)
	assert.Equal(t, "e1", out[0].ID)
	assert.Equal(t, "wf", out[0].WorkflowID)

	in := wf.Incoming("e")
	require.Len(t, in, 1)
	assert.Equal(t, "e2", in[0].ID)

	assert.Empty(t, wf.Incoming("s"))
	assert.Empty(t, wf.Outgoing("e"))

	edge, ok := wf.EdgeBetween("m", "e")
	assert.True(t, ok)
	assert.Equal(t, "e2", edge.ID)
}

func TestWorkflow_AddRejectsDuplicatesAndDanglingEdges(t *testing.T) {
	wf := newLinearWorkflow(t)

	assert.ErrorIs(t, wf.AddNode(domain.Node{ID: "s", Type: domain.NodeTypeStart}), domain.ErrDuplicateID)
	assert.ErrorIs(t, wf.AddEdge(domain.Edge{ID: "e1", StartNodeID: "s", EndNodeID: "m"}), domain.ErrDuplicateID)
	assert.ErrorIs(t, wf.AddEdge(domain.Edge{ID: "x", StartNodeID: "s", EndNodeID: "ghost"}), domain.ErrNodeNotFound)
}

func TestWorkflow_RemoveNodeCascades(t *testing.T) {
	wf := newLinearWorkflow(t)

	removed, err := wf.RemoveNode("m")
	require.NoError(t, err)
	assert.Len(t, removed, 2)
	assert.Empty(t, wf.Edges)
	assert.Empty(t, wf.Outgoing("s"))

	_, err = wf.RemoveNode("m")
	assert.ErrorIs(t, err, domain.ErrNodeNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestWorkflow_ReplaceEdgeReindexes(t *testing.T) {
	wf := newLinearWorkflow(t)
	require.NoError(t, wf.AddNode(domain.Node{ID: "e2nd", Type: domain.NodeTypeEnd}))

	require.NoError(t, wf.ReplaceEdge(domain.Edge{ID: "e2", StartNodeID: "m", EndNodeID: "e2nd"}))
	assert.Empty(t, wf.Incoming("e"))
	assert.Len(t, wf.Incoming("e2nd"), 1)

	require.NoError(t, wf.SetEdgeStatus("e2", domain.EdgeStatusNo))
	edge, _ := wf.Edge("e2")
	assert.Equal(t, domain.EdgeStatusNo, edge.Status)
}

func TestWorkflow_CloneIsIndependent(t *testing.T) {
	wf := newLinearWorkflow(t)
	c := wf.Clone()

	require.NoError(t, c.SetEdgeStatus("e1", domain.EdgeStatusYes))
	_, err := c.RemoveNode("e")
	require.NoError(t, err)

	orig, _ := wf.Edge("e1")
	assert.Equal(t, domain.EdgeStatus(""), orig.Status)
	assert.Len(t, wf.Nodes, 3)
	assert.Len(t, wf.Edges, 2)
}

func TestWorkflow_ReindexAfterDirectAssignment(t *testing.T) {
	wf := &domain.Workflow{
		ID:    "decoded",
		Nodes: []domain.Node{{ID: "a", Type: domain.NodeTypeStart}, {ID: "b", Type: domain.NodeTypeEnd}},
		Edges: []domain.Edge{{ID: "ab", StartNodeID: "a", EndNodeID: "b"}},
	}
	wf.Reindex()

	assert.Len(t, wf.Outgoing("a"), 1)
	assert.Len(t, wf.NodesOfType(domain.NodeTypeEnd), 1)
}

func TestEnums(t *testing.T) {
	assert.True(t, domain.NodeTypeCondition.Valid())
	assert.False(t, domain.NodeType("start").Valid(), "types are case-sensitive")
	assert.True(t, domain.NodeStatus("").Valid())
	assert.False(t, domain.NodeStatus("read").Valid())
	assert.True(t, domain.EdgeStatus("").Valid())
	assert.False(t, domain.EdgeStatus("yes").Valid())
	assert.Equal(t, domain.EdgeStatusYes, domain.EdgeStatusFor(true))
	assert.Equal(t, domain.EdgeStatusNo, domain.EdgeStatusFor(false))
}
