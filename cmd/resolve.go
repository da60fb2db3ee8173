package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <logical path>",
	Short: "Show which source file a logical path resolves to",
	Args:  usageArgs(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, env, err := openEnvironment()
		if err != nil {
			return err
		}
		defer closeCache(cmd.Context(), env)

		attrs, abs, err := env.FindLogical(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "absolute_path: %s\n", abs)
		fmt.Fprintf(out, "path:          %s\n", attrs.Path)
		fmt.Fprintf(out, "logical_path:  %s\n", attrs.LogicalPath)
		fmt.Fprintf(out, "mime_type:     %s\n", attrs.MIMEType)
		fmt.Fprintf(out, "suffix:        %s\n", strings.Join(attrs.Suffix, ""))
		fmt.Fprintf(out, "compilers:     %s\n", strings.Join(attrs.CompilerExtensions, " "))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}
