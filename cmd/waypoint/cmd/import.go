package cmd

import (
	"fmt"

	"github.com/aretw0/waypoint/pkg/dsl"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a workflow definition into the configured store",
	Long: `Reads a YAML or JSON workflow definition and creates it node by node and edge
by edge, so every edge passes the same checks as one added through the API.
A rejected edge rolls the whole workflow back unless --keep-partial is set.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().Bool("fresh-ids", false, "mint new node and edge ids instead of using the file's")
	importCmd.Flags().Bool("keep-partial", false, "keep a half-imported workflow when an edge is rejected")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	def, err := dsl.Load(args[0])
	if err != nil {
		return err
	}

	var opts []dsl.ImportOption
	if fresh, _ := cmd.Flags().GetBool("fresh-ids"); fresh {
		opts = append(opts, dsl.WithFreshIDs())
	}
	if keep, _ := cmd.Flags().GetBool("keep-partial"); keep {
		opts = append(opts, dsl.KeepPartial())
	}

	eng, closeFn, err := openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer closeFn()

	wf, err := dsl.Import(cmd.Context(), eng, def, opts...)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %q as %s (%d nodes, %d edges)\n", wf.Name, wf.ID, len(wf.Nodes), len(wf.Edges))
	return nil
}
