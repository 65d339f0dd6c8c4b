package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/waypoint/internal/presentation/graph"
	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func greeting() *domain.Workflow {
	return &domain.Workflow{
		ID:   "wf",
		Name: "greeting",
		Nodes: []domain.Node{
			{ID: "start", Type: domain.NodeTypeStart},
			{ID: "ask", Type: domain.NodeTypeMessage, Message: `say "hello"`},
			{ID: "check", Type: domain.NodeTypeCondition, ConditionExpression: "message == 'hello'"},
			{ID: "glad-path", Type: domain.NodeTypeMessage, Message: "glad"},
			{ID: "sad.path", Type: domain.NodeTypeMessage, Message: "sad"},
			{ID: "end", Type: domain.NodeTypeEnd},
		},
		Edges: []domain.Edge{
			{ID: "e1", StartNodeID: "start", EndNodeID: "ask"},
			{ID: "e2", StartNodeID: "ask", EndNodeID: "check", Status: domain.EdgeStatusNo},
			{ID: "e3", StartNodeID: "check", EndNodeID: "glad-path", Status: domain.EdgeStatusYes},
			{ID: "e4", StartNodeID: "check", EndNodeID: "sad.path", Status: domain.EdgeStatusNo},
			{ID: "e5", StartNodeID: "glad-path", EndNodeID: "end"},
			{ID: "e6", StartNodeID: "sad.path", EndNodeID: "end"},
		},
	}
}

func TestGenerateMermaid_Shapes(t *testing.T) {
	out := graph.GenerateMermaid(greeting(), nil)

	for _, want := range []string{
		"graph TD\n",
		`start(("start"))`,
		`ask["ask <br/> say 'hello'"]`,
		`check{"check <br/> message == 'hello'"}`,
		`glad_path["glad-path <br/> glad"]`,
		`sad_path["sad.path <br/> sad"]`,
		`end((("end")))`,
		"start --> ask",
		`check -- "Yes" --> glad_path`,
		`check -- "No" --> sad_path`,
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "classDef")
}

func TestGenerateMermaid_ConditionTextWins(t *testing.T) {
	wf := greeting()
	wf.Nodes[2].ConditionText = "Said hello?"
	assert.Contains(t, graph.GenerateMermaid(wf, nil), `check{"check <br/> Said hello?"}`)
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	trace := domain.Trace{
		{ID: "start"}, {ID: "ask"}, {ID: "check"}, {ID: "sad.path"}, {ID: "end"},
	}
	out := graph.GenerateMermaid(greeting(), graph.OverlayFromTrace(trace))

	assert.Contains(t, out, "class sad_path visited;")
	assert.Contains(t, out, "class end current;")
	assert.NotContains(t, out, "class glad_path visited;")
	assert.Equal(t, 5, strings.Count(out, "visited;"))

	// Edges 0, 1, 3 and 5 lie on the path.
	for _, want := range []string{"linkStyle 0 ", "linkStyle 1 ", "linkStyle 3 ", "linkStyle 5 "} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "linkStyle 2 ")
	assert.NotContains(t, out, "linkStyle 4 ")
}

func TestOverlayFromTrace_Empty(t *testing.T) {
	o := graph.OverlayFromTrace(nil)
	assert.Empty(t, o.CurrentNode)
	assert.Empty(t, o.VisitedNodes)
}
