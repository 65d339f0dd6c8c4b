package cmd

import (
	"fmt"
	"runtime"

	"github.com/aretw0/waypoint"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		v := appVersion
		if v == "" {
			v = waypoint.Version
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "waypoint %s\n", v)
		fmt.Fprintf(out, "  commit: %s\n", appCommit)
		fmt.Fprintf(out, "  built:  %s\n", appDate)
		fmt.Fprintf(out, "  go:     %s\n", runtime.Version())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
