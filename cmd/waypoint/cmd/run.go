package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/waypoint/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [file]",
	Short: "Run a workflow from Start to End",
	Long: `Runs a workflow and prints the visited path. A definition file is imported
into a scratch in-memory store first; --workflow runs a stored workflow instead,
committing the branch tags it sets.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().String("workflow", "", "id of a workflow in the configured store")
	runCmd.Flags().String("output", "markdown", "output format (markdown, plain, json)")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	workflowID, _ := cmd.Flags().GetString("workflow")
	format, _ := cmd.Flags().GetString("output")

	t, err := resolveTarget(cmd.Context(), workflowID, args)
	if err != nil {
		return err
	}
	defer t.close()

	trace, err := t.eng.RunWorkflow(cmd.Context(), t.id)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(trace)
	case "markdown", "plain":
		wf, err := t.eng.GetWorkflow(cmd.Context(), t.id)
		if err != nil {
			return err
		}
		md := tui.TraceMarkdown(wf, trace)
		if format == "plain" {
			_, err = fmt.Fprint(out, md)
			return err
		}
		render, err := tui.NewRenderer(noColor)
		if err != nil {
			return err
		}
		rendered, err := render(md)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(out, rendered)
		return err
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
