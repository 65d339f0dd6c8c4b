package runtime_test

import (
	"testing"

	"github.com/aretw0/waypoint/internal/runtime"
	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindShortestPath_Errors(t *testing.T) {
	t.Run("no start", func(t *testing.T) {
		g := newGraph(t, "wf").node("e", domain.NodeTypeEnd, "")
		_, err := runtime.FindShortestPath(g.wf)
		assert.ErrorIs(t, err, domain.ErrNoStartNode)
	})

	t.Run("no end", func(t *testing.T) {
		g := newGraph(t, "wf").node("s", domain.NodeTypeStart, "")
		_, err := runtime.FindShortestPath(g.wf)
		assert.ErrorIs(t, err, domain.ErrNoEndNode)
	})

	t.Run("empty workflow reports missing start first", func(t *testing.T) {
		_, err := runtime.FindShortestPath(newGraph(t, "wf").wf)
		assert.ErrorIs(t, err, domain.ErrNoStartNode)
	})

	t.Run("disconnected", func(t *testing.T) {
		g := newGraph(t, "wf").
			node("s", domain.NodeTypeStart, "").
			node("m", domain.NodeTypeMessage, "m").
			node("e", domain.NodeTypeEnd, "").
			edge("s", "m", "")
		_, err := runtime.FindShortestPath(g.wf)
		assert.ErrorIs(t, err, domain.ErrNoPathFound)
	})
}

func TestFindShortestPath_Branching(t *testing.T) {
	path, err := runtime.FindShortestPath(branching(t, "goodbye").wf)
	require.NoError(t, err)
	// Resolution ignores branch tags; the first inserted branch wins the tie.
	assert.Equal(t, []string{"1", "2", "3", "4", "6"}, path)
}

func TestFindShortestPath_PicksShortestPair(t *testing.T) {
	g := newGraph(t, "wf").
		node("s1", domain.NodeTypeStart, "").
		node("s2", domain.NodeTypeStart, "").
		node("a", domain.NodeTypeMessage, "a").
		node("b", domain.NodeTypeMessage, "b").
		node("far", domain.NodeTypeEnd, "").
		node("near", domain.NodeTypeEnd, "").
		edge("s1", "a", "").
		edge("a", "b", "").
		edge("b", "far", "").
		edge("s2", "near", "")

	path, err := runtime.FindShortestPath(g.wf)
	require.NoError(t, err)
	assert.Equal(t, []string{"s2", "near"}, path)
}

func TestFindShortestPath_TieGoesToFirstPair(t *testing.T) {
	g := newGraph(t, "wf").
		node("s1", domain.NodeTypeStart, "").
		node("s2", domain.NodeTypeStart, "").
		node("e1", domain.NodeTypeEnd, "").
		node("e2", domain.NodeTypeEnd, "").
		edge("s2", "e1", "").
		edge("s1", "e2", "")

	path, err := runtime.FindShortestPath(g.wf)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "e2"}, path)
}

func TestFindShortestPath_Cycle(t *testing.T) {
	g := newGraph(t, "wf").
		node("s", domain.NodeTypeStart, "").
		node("a", domain.NodeTypeMessage, "a").
		node("c", domain.NodeTypeCondition, "false").
		node("e", domain.NodeTypeEnd, "").
		edge("s", "a", "").
		edge("a", "c", "").
		edge("c", "a", domain.EdgeStatusNo).
		edge("c", "e", domain.EdgeStatusYes)

	path, err := runtime.FindShortestPath(g.wf)
	require.NoError(t, err)
	assert.Equal(t, []string{"s", "a", "c", "e"}, path)
}

func TestShortestPathFrom(t *testing.T) {
	wf := branching(t, "hello").wf

	path, err := runtime.ShortestPathFrom(wf, "5")
	require.NoError(t, err)
	assert.Equal(t, []string{"5", "6"}, path)

	path, err = runtime.ShortestPathFrom(wf, "6")
	require.NoError(t, err)
	assert.Equal(t, []string{"6"}, path)

	_, err = runtime.ShortestPathFrom(wf, "missing")
	assert.ErrorIs(t, err, domain.ErrNodeNotFound)

	g := newGraph(t, "iso").
		node("m", domain.NodeTypeMessage, "m").
		node("e", domain.NodeTypeEnd, "")
	_, err = runtime.ShortestPathFrom(g.wf, "m")
	assert.ErrorIs(t, err, domain.ErrNoPathFound)
}

func TestFindShortestPath_DoesNotMutate(t *testing.T) {
	wf := branching(t, "hello").wf
	before := wf.Clone()

	_, err := runtime.FindShortestPath(wf)
	require.NoError(t, err)
	assert.Equal(t, before.Edges, wf.Edges)
	assert.Equal(t, before.Nodes, wf.Nodes)
}
