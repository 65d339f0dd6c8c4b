package tui_test

import (
	"bytes"
	"testing"

	"github.com/aretw0/waypoint/internal/presentation/tui"
	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ranWorkflow() (*domain.Workflow, domain.Trace) {
	wf := &domain.Workflow{
		ID:   "wf-1",
		Name: "greeting",
		Nodes: []domain.Node{
			{ID: "s", Type: domain.NodeTypeStart},
			{ID: "m", Type: domain.NodeTypeMessage, Message: "hello | world"},
			{ID: "c", Type: domain.NodeTypeCondition, ConditionExpression: "'hello' in message"},
			{ID: "y", Type: domain.NodeTypeMessage, Message: "yes"},
			{ID: "e", Type: domain.NodeTypeEnd},
		},
		Edges: []domain.Edge{
			{ID: "1", StartNodeID: "s", EndNodeID: "m"},
			{ID: "2", StartNodeID: "m", EndNodeID: "c", Status: domain.EdgeStatusYes},
			{ID: "3", StartNodeID: "c", EndNodeID: "y", Status: domain.EdgeStatusYes},
			{ID: "4", StartNodeID: "y", EndNodeID: "e"},
		},
	}
	wf.Reindex()
	trace := make(domain.Trace, 0, len(wf.Nodes))
	for _, n := range wf.Nodes {
		trace = append(trace, domain.NewTraceEntry(n))
	}
	return wf, trace
}

func TestTraceMarkdown(t *testing.T) {
	wf, trace := ranWorkflow()
	md := tui.TraceMarkdown(wf, trace)

	assert.Contains(t, md, "# greeting")
	assert.Contains(t, md, "visited 5 nodes")
	assert.Contains(t, md, "| 2 | `m` | Message | - | hello \\| world |")
	assert.Contains(t, md, "- `c` ('hello' in message) took **Yes** to `y`")
}

func TestNewRenderer(t *testing.T) {
	render, err := tui.NewRenderer(true)
	require.NoError(t, err)

	wf, trace := ranWorkflow()
	out, err := render(tui.TraceMarkdown(wf, trace))
	require.NoError(t, err)
	assert.Contains(t, out, "greeting")
	assert.Contains(t, out, "Branches")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintBanner(&buf)
	assert.Contains(t, buf.String(), `|__/|_|`)
}
