package cmd

import (
	"fmt"

	"github.com/aretw0/waypoint/internal/presentation/graph"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph [file]",
	Short: "Export the workflow as a Mermaid diagram",
	Long: `Outputs a Mermaid flowchart (graph TD) of a workflow. With --run the workflow
is executed first and the visited path is highlighted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		workflowID, _ := cmd.Flags().GetString("workflow")
		withRun, _ := cmd.Flags().GetBool("run")

		t, err := resolveTarget(cmd.Context(), workflowID, args)
		if err != nil {
			return err
		}
		defer t.close()

		var overlay *graph.GraphOverlay
		if withRun {
			trace, err := t.eng.RunWorkflow(cmd.Context(), t.id)
			if err != nil {
				return err
			}
			overlay = graph.OverlayFromTrace(trace)
		}

		// Loaded after the run so the diagram shows the branch tags it set.
		wf, err := t.eng.GetWorkflow(cmd.Context(), t.id)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(wf, overlay))
		return err
	},
}

func init() {
	graphCmd.Flags().String("workflow", "", "id of a workflow in the configured store")
	graphCmd.Flags().Bool("run", false, "run the workflow and highlight the visited path")
	rootCmd.AddCommand(graphCmd)
}
