package dsl

import "github.com/aretw0/waypoint/pkg/domain"

// Builder manages the graph construction.
type Builder struct {
	name  string
	order []string
	nodes map[string]*NodeBuilder
	edges []domain.Edge
}

// New creates a new graph builder.
func New(name string) *Builder {
	return &Builder{
		name:  name,
		nodes: make(map[string]*NodeBuilder),
	}
}

// Start adds a Start node.
func (b *Builder) Start(id string) *NodeBuilder {
	return b.add(id, domain.NodeTypeStart)
}

// Message adds a Message node carrying text.
func (b *Builder) Message(id, text string) *NodeBuilder {
	nb := b.add(id, domain.NodeTypeMessage)
	nb.node.Message = text
	return nb
}

// Condition adds a Condition node evaluated against the preceding message.
func (b *Builder) Condition(id, expression string) *NodeBuilder {
	nb := b.add(id, domain.NodeTypeCondition)
	nb.node.ConditionExpression = expression
	return nb
}

// End adds an End node.
func (b *Builder) End(id string) *NodeBuilder {
	return b.add(id, domain.NodeTypeEnd)
}

// add registers a node. Re-adding an id returns the existing builder retyped.
func (b *Builder) add(id string, typ domain.NodeType) *NodeBuilder {
	nb, ok := b.nodes[id]
	if !ok {
		nb = &NodeBuilder{node: domain.Node{ID: id}, builder: b}
		b.nodes[id] = nb
		b.order = append(b.order, id)
	}
	nb.node.Type = typ
	return nb
}

// Build returns the definition in declaration order.
func (b *Builder) Build() (*Definition, error) {
	def := &Definition{
		Name:  b.name,
		Nodes: make([]domain.Node, 0, len(b.order)),
		Edges: append([]domain.Edge(nil), b.edges...),
	}
	for _, id := range b.order {
		def.Nodes = append(def.Nodes, b.nodes[id].node)
	}
	if err := def.Check(); err != nil {
		return nil, err
	}
	return def, nil
}
