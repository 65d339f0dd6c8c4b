package domain

// TraceEntry is the snapshot of a node visited during a run.
type TraceEntry struct {
	ID      string     `json:"id"`
	Type    NodeType   `json:"type"`
	Status  NodeStatus `json:"status"`
	Message string     `json:"message"`
}

// Trace is the ordered sequence of nodes visited from Start to End.
type Trace []TraceEntry

// NodeIDs returns the visited node ids in order.
func (t Trace) NodeIDs() []string {
	ids := make([]string, len(t))
	for i, e := range t {
		ids[i] = e.ID
	}
	return ids
}

// NewTraceEntry snapshots n.
func NewTraceEntry(n Node) TraceEntry {
	return TraceEntry{
		ID:      n.ID,
		Type:    n.Type,
		Status:  n.Status,
		Message: n.Message,
	}
}
