package domain

// EdgeStatus tags the branch outcome an edge represents.
type EdgeStatus string

const (
	EdgeStatusYes EdgeStatus = "Yes"
	EdgeStatusNo  EdgeStatus = "No"
)

// Valid reports whether s is empty, Yes or No.
func (s EdgeStatus) Valid() bool {
	return s == "" || s.IsBranch()
}

// IsBranch reports whether s is a Condition branch tag.
func (s EdgeStatus) IsBranch() bool {
	return s == EdgeStatusYes || s == EdgeStatusNo
}

// EdgeStatusFor maps a condition outcome to its branch tag.
func EdgeStatusFor(outcome bool) EdgeStatus {
	if outcome {
		return EdgeStatusYes
	}
	return EdgeStatusNo
}

// Edge is a directed arc StartNodeID -> EndNodeID.
type Edge struct {
	ID          string     `json:"id" yaml:"id,omitempty"`
	WorkflowID  string     `json:"workflow_id" yaml:"-"`
	StartNodeID string     `json:"start_node_id" yaml:"from"`
	EndNodeID   string     `json:"end_node_id" yaml:"to"`
	Status      EdgeStatus `json:"status" yaml:"status,omitempty"`
}
