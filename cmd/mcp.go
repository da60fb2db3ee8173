package cmd

import (
	"github.com/agentic-research/gears/internal/mcpserver"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve resolve, build, requirements and invalidate tools over MCP on stdio",
	Args:  usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, env, err := openEnvironment()
		if err != nil {
			return err
		}
		defer closeCache(cmd.Context(), env)
		return mcpserver.New(env, Version).ServeStdio()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
