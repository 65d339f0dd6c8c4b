package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/waypoint/pkg/domain"
)

// GraphOverlay contains run data to visualize on the graph.
type GraphOverlay struct {
	VisitedNodes []string
	CurrentNode  string
}

// OverlayFromTrace marks every node of a trace as visited and the last one as current.
func OverlayFromTrace(trace domain.Trace) *GraphOverlay {
	ids := trace.NodeIDs()
	o := &GraphOverlay{VisitedNodes: ids}
	if len(ids) > 0 {
		o.CurrentNode = ids[len(ids)-1]
	}
	return o
}

// GenerateMermaid produces a Mermaid flowchart for a workflow.
// Shapes follow the node type:
// - Start: ((Circle))
// - Message: [Rectangle] labelled with the message
// - Condition: {Rhombus} labelled with the condition
// - End: (((Double circle)))
// Branch edges carry their Yes/No tag. With an overlay, visited nodes are styled and the edges
// between consecutive visited nodes are drawn thick.
func GenerateMermaid(wf *domain.Workflow, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, node := range wf.Nodes {
		safeID := sanitizeMermaidID(node.ID)

		opener, closer := "[", "]"
		switch node.Type {
		case domain.NodeTypeStart:
			opener, closer = "((", "))"
		case domain.NodeTypeCondition:
			opener, closer = "{", "}"
		case domain.NodeTypeEnd:
			opener, closer = "(((", ")))"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, label(node), closer)
	}

	taken := takenEdges(overlay)
	var thick []int
	for i, e := range wf.Edges {
		arrow := "-->"
		if e.Status != "" {
			arrow = fmt.Sprintf("-- \"%s\" -->", e.Status)
		}
		fmt.Fprintf(&sb, "    %s %s %s\n", sanitizeMermaidID(e.StartNodeID), arrow, sanitizeMermaidID(e.EndNodeID))
		if taken[[2]string{e.StartNodeID, e.EndNodeID}] {
			thick = append(thick, i)
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Black text keeps the labels readable on light fills in both themes.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(id)
			if !visitedSet[safeID] && safeID != "" {
				visitedSet[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}
		if overlay.CurrentNode != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode))
		}
		for _, i := range thick {
			fmt.Fprintf(&sb, "    linkStyle %d stroke-width:3px,stroke:#01579b;\n", i)
		}
	}

	return sb.String()
}

func takenEdges(overlay *GraphOverlay) map[[2]string]bool {
	taken := make(map[[2]string]bool)
	if overlay == nil {
		return taken
	}
	for i := 1; i < len(overlay.VisitedNodes); i++ {
		taken[[2]string{overlay.VisitedNodes[i-1], overlay.VisitedNodes[i]}] = true
	}
	return taken
}

func label(n domain.Node) string {
	text := n.ID
	switch n.Type {
	case domain.NodeTypeMessage:
		if n.Message != "" {
			text += " <br/> " + n.Message
		}
	case domain.NodeTypeCondition:
		switch {
		case n.ConditionText != "":
			text += " <br/> " + n.ConditionText
		case n.ConditionExpression != "":
			text += " <br/> " + n.ConditionExpression
		}
	}
	// Mermaid labels are double-quoted.
	return strings.ReplaceAll(text, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
