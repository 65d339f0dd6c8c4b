package dsl_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/waypoint"
	"github.com/aretw0/waypoint/internal/testutils"
	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/aretw0/waypoint/pkg/dsl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const greetingYAML = `
name: greeting
nodes:
  - {id: start, type: Start}
  - {id: ask, type: Message, message: hello, status: pending}
  - {id: check, type: Condition, condition_text: Said hello?, condition_expression: "message == 'hello'"}
  - {id: glad, type: Message, message: glad you said hello}
  - {id: sad, type: Message, message: sorry to see you go}
  - {id: end, type: End}
edges:
  - {from: start, to: ask}
  - {from: ask, to: check}
  - {from: check, to: glad, status: "Yes"}
  - {from: check, to: sad, status: "No"}
  - {from: glad, to: end}
  - {from: sad, to: end}
`

func greetingBuilder() *dsl.Builder {
	b := dsl.New("greeting")
	b.Start("start").Go("ask")
	b.Message("ask", "hello").Status(domain.NodeStatusPending).Go("check")
	b.Condition("check", "message == 'hello'").Describe("Said hello?").Yes("glad").No("sad")
	b.Message("glad", "glad you said hello").Go("end")
	b.Message("sad", "sorry to see you go").Go("end")
	b.End("end")
	return b
}

func newEngine() *waypoint.Engine {
	var seq atomic.Int64
	return waypoint.New(waypoint.WithIDGenerator(func() string { return fmt.Sprintf("gen-%d", seq.Add(1)) }))
}

func TestParse_MatchesBuilder(t *testing.T) {
	parsed, err := dsl.Parse([]byte(greetingYAML))
	require.NoError(t, err)

	built, err := greetingBuilder().Build()
	require.NoError(t, err)

	assert.Equal(t, built, parsed)
	assert.Equal(t, domain.EdgeStatusYes, parsed.Edges[2].Status)
}

func TestParse_JSON(t *testing.T) {
	def, err := dsl.Parse([]byte(`{"name": "tiny", "nodes": [{"id": "s", "type": "Start"}, {"id": "e", "type": "End"}], "edges": []}`))
	require.NoError(t, err)
	assert.Equal(t, "tiny", def.Name)
	assert.Len(t, def.Nodes, 2)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"unknown field", "name: x\nnodes: []\nsteps: []\n", "field steps not found"},
		{"no name", "nodes: [{id: a, type: Start}]\n", "name is required"},
		{"duplicate id", "name: x\nnodes: [{id: a, type: Start}, {id: a, type: End}]\n", `duplicate id "a"`},
		{"dangling edge", "name: x\nnodes: [{id: a, type: Start}]\nedges: [{from: a, to: b}]\n", `unknown node "b"`},
		{"missing id", "name: x\nnodes: [{type: Start}]\n", "nodes[0]: id is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := dsl.Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := dsl.Parse([]byte("name: x\nnodes: [{id: a, type: Start}]\nedges: [{from: a, to: b}]\n"))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestLoad(t *testing.T) {
	path := testutils.WriteFile(t, t.TempDir(), "greeting.yaml", greetingYAML)

	def, err := dsl.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "greeting", def.Name)

	_, err = dsl.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "reading workflow definition")
}

func TestMarshal_RoundTrip(t *testing.T) {
	def, err := greetingBuilder().Build()
	require.NoError(t, err)

	data, err := def.Marshal()
	require.NoError(t, err)
	again, err := dsl.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, def, again)
}

func TestBuilder_ReAddRetypes(t *testing.T) {
	b := dsl.New("x")
	b.Message("n", "hi")
	nb := b.End("n")
	assert.Equal(t, domain.NodeTypeEnd, nb.Node().Type)

	def, err := b.Build()
	require.NoError(t, err)
	assert.Len(t, def.Nodes, 1)
}

func TestBuilder_Chain(t *testing.T) {
	def, err := dsl.New("chain").
		Start("s").Go("m").
		Message("m", "hi").Go("e").
		End("e").
		Build()
	require.NoError(t, err)
	assert.Len(t, def.Nodes, 3)
	assert.Len(t, def.Edges, 2)

	_, err = dsl.New("broken").Start("s").Go("nowhere").Build()
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestImport_Run(t *testing.T) {
	ctx := context.Background()
	eng := newEngine()
	def, err := dsl.Parse([]byte(greetingYAML))
	require.NoError(t, err)

	wf, err := dsl.Import(ctx, eng, def)
	require.NoError(t, err)
	require.Len(t, wf.Nodes, 6)
	require.Len(t, wf.Edges, 6)

	// ask -> check was tagged by evaluating the condition.
	e, ok := wf.EdgeBetween("ask", "check")
	require.True(t, ok)
	assert.Equal(t, domain.EdgeStatusYes, e.Status)

	trace, err := eng.RunWorkflow(ctx, wf.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"start", "ask", "check", "glad", "end"}, trace.NodeIDs())

	// Same ids again clash store-wide.
	_, err = dsl.Import(ctx, eng, def)
	require.ErrorIs(t, err, domain.ErrDuplicateID)

	again, err := dsl.Import(ctx, eng, def, dsl.WithFreshIDs())
	require.NoError(t, err)
	trace, err = eng.RunWorkflow(ctx, again.ID)
	require.NoError(t, err)
	assert.Len(t, trace, 5)
	assert.NotEqual(t, "start", trace[0].ID)

	wfs, err := eng.ListWorkflows(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, wfs, 2, "the clashing import was rolled back")
}

func TestImport_RejectedEdge(t *testing.T) {
	ctx := context.Background()
	eng := newEngine()

	def, err := dsl.New("bad").
		Start("s").Go("m").Go("m2").
		Message("m", "a").
		Message("m2", "b").
		Build()
	require.NoError(t, err)

	_, err = dsl.Import(ctx, eng, def)
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "edge s -> m2: Start Node can only have one outgoing edge.")

	wfs, err := eng.ListWorkflows(ctx, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, wfs)

	_, err = dsl.Import(ctx, eng, def, dsl.KeepPartial(), dsl.WithFreshIDs())
	require.Error(t, err)
	wfs, err = eng.ListWorkflows(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, wfs, 1)
	assert.Len(t, wfs[0].Edges, 1)
}

func TestFromWorkflow(t *testing.T) {
	ctx := context.Background()
	eng := newEngine()
	def, err := greetingBuilder().Build()
	require.NoError(t, err)
	wf, err := dsl.Import(ctx, eng, def)
	require.NoError(t, err)

	exported := dsl.FromWorkflow(wf)
	assert.Equal(t, "greeting", exported.Name)
	assert.Len(t, exported.Nodes, 6)
	assert.Equal(t, "check", exported.Edges[2].StartNodeID)
}

func TestDefinition_Workflow(t *testing.T) {
	def, err := dsl.Parse([]byte(greetingYAML))
	require.NoError(t, err)

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	wf := def.Workflow("wf-1", now)

	assert.Equal(t, "greeting", wf.Name)
	assert.Equal(t, now, wf.CreatedAt)
	require.Len(t, wf.Nodes, 6)
	require.Len(t, wf.Edges, 6)
	assert.Equal(t, "wf-1", wf.Nodes[0].WorkflowID)
	assert.Equal(t, "wf-1", wf.Edges[0].WorkflowID)

	edge, ok := wf.EdgeBetween("check", "sad")
	require.True(t, ok)
	assert.Equal(t, domain.EdgeStatusNo, edge.Status)
	assert.Equal(t, "edges[3]", edge.ID)
	// The definition itself is untouched.
	assert.Empty(t, def.Nodes[0].WorkflowID)
}
