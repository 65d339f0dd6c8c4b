package waypoint_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/waypoint"
	"github.com/aretw0/waypoint/pkg/domain"
)

// ExampleEngine_RunWorkflow builds the greeting workflow and runs it.
func ExampleEngine_RunWorkflow() {
	ctx := context.Background()
	eng := waypoint.New()

	wf, err := eng.CreateWorkflow(ctx, "greeting")
	if err != nil {
		log.Fatal(err)
	}

	nodes := []domain.Node{
		{ID: "start", Type: domain.NodeTypeStart},
		{ID: "ask", Type: domain.NodeTypeMessage, Message: "hello"},
		{ID: "said-hello", Type: domain.NodeTypeCondition, ConditionExpression: "message == 'hello'"},
		{ID: "welcome", Type: domain.NodeTypeMessage, Message: "welcome back"},
		{ID: "farewell", Type: domain.NodeTypeMessage, Message: "see you"},
		{ID: "end", Type: domain.NodeTypeEnd},
	}
	for _, n := range nodes {
		if _, err := eng.CreateNode(ctx, wf.ID, n); err != nil {
			log.Fatal(err)
		}
	}

	edges := []domain.Edge{
		{StartNodeID: "start", EndNodeID: "ask"},
		{StartNodeID: "ask", EndNodeID: "said-hello"},
		{StartNodeID: "said-hello", EndNodeID: "welcome", Status: domain.EdgeStatusYes},
		{StartNodeID: "said-hello", EndNodeID: "farewell", Status: domain.EdgeStatusNo},
		{StartNodeID: "welcome", EndNodeID: "end"},
		{StartNodeID: "farewell", EndNodeID: "end"},
	}
	for _, e := range edges {
		if _, err := eng.CreateEdge(ctx, wf.ID, e); err != nil {
			log.Fatal(err)
		}
	}

	trace, err := eng.RunWorkflow(ctx, wf.ID)
	if err != nil {
		log.Fatal(err)
	}
	for _, step := range trace {
		fmt.Println(step.Type, step.ID)
	}

	// Output:
	// Start start
	// Message ask
	// Condition said-hello
	// Message welcome
	// End end
}

// ExampleEngine_CreateEdge shows a rejected edge.
func ExampleEngine_CreateEdge() {
	ctx := context.Background()
	eng := waypoint.New()

	wf, _ := eng.CreateWorkflow(ctx, "strict")
	_, _ = eng.CreateNode(ctx, wf.ID, domain.Node{ID: "s", Type: domain.NodeTypeStart})
	_, _ = eng.CreateNode(ctx, wf.ID, domain.Node{ID: "check", Type: domain.NodeTypeCondition, ConditionExpression: "true"})

	_, err := eng.CreateEdge(ctx, wf.ID, domain.Edge{StartNodeID: "s", EndNodeID: "check"})
	fmt.Println(err)

	// Output:
	// Condition Node must be preceded by a Message Node.
}
