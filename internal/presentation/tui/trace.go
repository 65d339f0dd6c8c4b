package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/waypoint/pkg/domain"
)

// TraceMarkdown renders a run as a markdown document: one table row per visited node and the
// branch decisions read from the stored workflow.
func TraceMarkdown(wf *domain.Workflow, trace domain.Trace) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", escape(wf.Name))
	fmt.Fprintf(&sb, "Workflow `%s` visited %d nodes.\n\n", wf.ID, len(trace))

	sb.WriteString("| # | Node | Type | Status | Message |\n")
	sb.WriteString("|---|------|------|--------|---------|\n")
	for i, e := range trace {
		fmt.Fprintf(&sb, "| %d | `%s` | %s | %s | %s |\n", i+1, e.ID, e.Type, dash(string(e.Status)), dash(escape(e.Message)))
	}

	var branches []string
	for i := 1; i < len(trace); i++ {
		if trace[i-1].Type != domain.NodeTypeCondition {
			continue
		}
		if edge, ok := wf.EdgeBetween(trace[i-1].ID, trace[i].ID); ok {
			n, _ := wf.Node(trace[i-1].ID)
			branches = append(branches, fmt.Sprintf("- `%s` (%s) took **%s** to `%s`",
				n.ID, escape(n.ConditionExpression), edge.Status, trace[i].ID))
		}
	}
	if len(branches) > 0 {
		sb.WriteString("\n## Branches\n\n")
		sb.WriteString(strings.Join(branches, "\n"))
		sb.WriteString("\n")
	}
	return sb.String()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// escape keeps user text from breaking the table.
func escape(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
