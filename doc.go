/*
Package waypoint validates and executes directed workflow graphs.

A workflow is a graph of Start, Message, Condition and End nodes. Edges are checked against the
graph invariants as they are created, and a run walks the shortest path from a Start node to an
End node, evaluating each Condition node against the most recent Message.

# Usage

	eng := waypoint.New() // in-memory store

	wf, _ := eng.CreateWorkflow(ctx, "onboarding")
	eng.CreateNode(ctx, wf.ID, domain.Node{ID: "start", Type: domain.NodeTypeStart})
	eng.CreateNode(ctx, wf.ID, domain.Node{ID: "hi", Type: domain.NodeTypeMessage, Message: "hello"})
	eng.CreateNode(ctx, wf.ID, domain.Node{ID: "check", Type: domain.NodeTypeCondition,
		ConditionExpression: "message == 'hello'"})
	...
	trace, err := eng.RunWorkflow(ctx, wf.ID)

# Conditions

Condition expressions are a small, side-effect free language over the bound variable message:

	message == 'hello'
	message.length > 3 and not message.is_empty
	'help' in message.as_lower
	message =~ '[0-9]+'

# Storage

The Engine talks to a ports.WorkflowStore. Adapters ship for memory, JSON files, SQLite, MySQL
and Redis. Every mutation runs under a per-workflow lock inside a store transaction, so a
rejected edge or a failed run never leaves partial changes behind. For several replicas sharing
one store, add a distributed lock with WithLocker.
*/
package waypoint
