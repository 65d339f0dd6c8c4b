package domain

// NodeType defines the role a node plays in a workflow.
type NodeType string

const (
	// NodeTypeStart is the entry point of a workflow. It has no incoming edges.
	NodeTypeStart NodeType = "Start"
	// NodeTypeMessage carries the text that downstream conditions evaluate.
	NodeTypeMessage NodeType = "Message"
	// NodeTypeCondition branches on a boolean expression over the preceding message.
	NodeTypeCondition NodeType = "Condition"
	// NodeTypeEnd terminates a workflow. It has no outgoing edges.
	NodeTypeEnd NodeType = "End"
)

// Valid reports whether t is one of the known node types.
func (t NodeType) Valid() bool {
	switch t {
	case NodeTypeStart, NodeTypeMessage, NodeTypeCondition, NodeTypeEnd:
		return true
	}
	return false
}

// NodeStatus tracks delivery progress of a node. It is optional.
type NodeStatus string

const (
	NodeStatusPending NodeStatus = "pending"
	NodeStatusSent    NodeStatus = "sent"
	NodeStatusOpened  NodeStatus = "opened"
)

// Valid reports whether s is empty or one of the known statuses.
func (s NodeStatus) Valid() bool {
	switch s {
	case "", NodeStatusPending, NodeStatusSent, NodeStatusOpened:
		return true
	}
	return false
}

// Node represents a vertex in a workflow graph.
type Node struct {
	ID         string     `json:"id" yaml:"id,omitempty"`
	WorkflowID string     `json:"workflow_id" yaml:"-"`
	Type       NodeType   `json:"type" yaml:"type"`
	Status     NodeStatus `json:"status" yaml:"status,omitempty"`

	// Message is the payload of Message nodes.
	Message string `json:"message" yaml:"message,omitempty"`

	// ConditionText is a human-readable label for Condition nodes.
	ConditionText string `json:"condition_text" yaml:"condition_text,omitempty"`
	// ConditionExpression is evaluated against the preceding message, e.g. "message == 'hello'".
	ConditionExpression string `json:"condition_expression" yaml:"condition_expression,omitempty"`
}
