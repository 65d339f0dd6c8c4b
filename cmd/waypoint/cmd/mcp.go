package cmd

import (
	mcpadapter "github.com/aretw0/waypoint/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server over stdio",
	Long: `Starts waypoint as an MCP server on standard input and output, so agents can
build and run workflows as tools. Logs go to stderr to keep the JSON-RPC stream
clean. Use "waypoint serve" for the streamable HTTP transport.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		eng, closeFn, err := openEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		logger.Info("starting mcp server (stdio)", "store", appConfig.Store.Backend)
		return mcpadapter.NewServer(eng, mcpadapter.WithLogger(logger)).ServeStdio()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
