package runtime_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aretw0/waypoint/internal/runtime"
	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/stretchr/testify/require"
)

type graph struct {
	t   *testing.T
	wf  *domain.Workflow
	v   *runtime.Validator
	seq int
}

func newGraph(t *testing.T, id string) *graph {
	t.Helper()
	return &graph{
		t:  t,
		wf: domain.NewWorkflow(id, "test "+id, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		v:  runtime.NewValidator(nil),
	}
}

func (g *graph) node(id string, typ domain.NodeType, payload string) *graph {
	g.t.Helper()
	n := domain.Node{ID: id, Type: typ}
	switch typ {
	case domain.NodeTypeMessage:
		n.Message = payload
	case domain.NodeTypeCondition:
		n.ConditionExpression = payload
	}
	require.NoError(g.t, g.wf.AddNode(n))
	return g
}

func (g *graph) nextID() string {
	g.seq++
	return fmt.Sprintf("e%d", g.seq)
}

// edge goes through the validator and fails the test on rejection.
func (g *graph) edge(from, to string, status domain.EdgeStatus) *graph {
	g.t.Helper()
	_, err := g.try(from, to, status)
	require.NoError(g.t, err)
	return g
}

func (g *graph) try(from, to string, status domain.EdgeStatus) (domain.Edge, error) {
	return g.v.BuildEdge(context.Background(), g.wf, runtime.EdgeRequest{
		ID:          g.nextID(),
		StartNodeID: from,
		EndNodeID:   to,
		Status:      status,
	})
}

// raw appends an edge without validation.
func (g *graph) raw(from, to string, status domain.EdgeStatus) *graph {
	g.t.Helper()
	require.NoError(g.t, g.wf.AddEdge(domain.Edge{ID: g.nextID(), StartNodeID: from, EndNodeID: to, Status: status}))
	return g
}

// branching builds Start(1) -> Message(2) -> Condition(3) -> [Message(4) Yes, Message(5) No] -> End(6).
func branching(t *testing.T, message string) *graph {
	t.Helper()
	return newGraph(t, "wf").
		node("1", domain.NodeTypeStart, "").
		node("2", domain.NodeTypeMessage, message).
		node("3", domain.NodeTypeCondition, "message == 'hello'").
		node("4", domain.NodeTypeMessage, "glad you said hello").
		node("5", domain.NodeTypeMessage, "sorry to see you go").
		node("6", domain.NodeTypeEnd, "").
		edge("1", "2", "").
		edge("2", "3", "").
		edge("3", "4", domain.EdgeStatusYes).
		edge("3", "5", domain.EdgeStatusNo).
		edge("4", "6", "").
		edge("5", "6", "")
}

func edgeStatus(t *testing.T, wf *domain.Workflow, from, to string) domain.EdgeStatus {
	t.Helper()
	e, ok := wf.EdgeBetween(from, to)
	require.True(t, ok, "edge %s -> %s", from, to)
	return e.Status
}
