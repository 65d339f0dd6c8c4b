package dsl

import "github.com/aretw0/waypoint/pkg/domain"

// NodeBuilder provides a fluent API for configuring a node and its outgoing edges.
// The node methods that start a new node (Start, Message, Condition, End) are forwarded to the
// Builder so a whole graph reads as one chain.
type NodeBuilder struct {
	node    domain.Node
	builder *Builder
}

// Status sets the delivery status.
func (n *NodeBuilder) Status(s domain.NodeStatus) *NodeBuilder {
	n.node.Status = s
	return n
}

// Describe sets the human-readable condition text.
func (n *NodeBuilder) Describe(text string) *NodeBuilder {
	n.node.ConditionText = text
	return n
}

// Go adds an untagged edge to target.
func (n *NodeBuilder) Go(target string) *NodeBuilder {
	return n.edge(target, "")
}

// Yes adds the edge taken when this Condition node evaluates true.
func (n *NodeBuilder) Yes(target string) *NodeBuilder {
	return n.edge(target, domain.EdgeStatusYes)
}

// No adds the edge taken when this Condition node evaluates false.
func (n *NodeBuilder) No(target string) *NodeBuilder {
	return n.edge(target, domain.EdgeStatusNo)
}

func (n *NodeBuilder) edge(target string, status domain.EdgeStatus) *NodeBuilder {
	n.builder.edges = append(n.builder.edges, domain.Edge{
		StartNodeID: n.node.ID,
		EndNodeID:   target,
		Status:      status,
	})
	return n
}

// Start continues the chain with a new Start node.
func (n *NodeBuilder) Start(id string) *NodeBuilder { return n.builder.Start(id) }

// Message continues the chain with a new Message node.
func (n *NodeBuilder) Message(id, text string) *NodeBuilder { return n.builder.Message(id, text) }

// Condition continues the chain with a new Condition node.
func (n *NodeBuilder) Condition(id, expression string) *NodeBuilder {
	return n.builder.Condition(id, expression)
}

// End continues the chain with a new End node.
func (n *NodeBuilder) End(id string) *NodeBuilder { return n.builder.End(id) }

// Build finishes the chain. See Builder.Build.
func (n *NodeBuilder) Build() (*Definition, error) { return n.builder.Build() }

// Node returns the node as configured so far.
func (n *NodeBuilder) Node() domain.Node {
	return n.node
}
