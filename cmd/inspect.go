package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var inspectSource string

var inspectCmd = &cobra.Command{
	Use:   "inspect <logical path>",
	Short: "Print the requirement order and dependencies of an asset, or one of its sources",
	Args:  usageArgs(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		_, env, err := openEnvironment()
		if err != nil {
			return err
		}
		defer closeCache(ctx, env)

		a, err := env.BuildAsset(ctx, args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		var source string
		switch inspectSource {
		case "":
			fmt.Fprintln(out, "requirements:")
			for _, r := range a.Requirements.All() {
				fmt.Fprintf(out, "  %s\n", r.Attributes.Path)
			}
			fmt.Fprintln(out, "dependencies:")
			for _, d := range a.Dependencies.Paths() {
				fmt.Fprintf(out, "  %s\n", d)
			}
			return nil
		case "processed":
			source = a.ProcessedSource
		case "bundled":
			source, err = a.BundledSource(ctx)
		case "compressed":
			source, err = a.CompressedSource(ctx)
		default:
			return usageError{fmt.Errorf("unknown source %q (want processed, bundled or compressed)", inspectSource)}
		}
		if err != nil {
			return err
		}
		_, err = io.WriteString(out, source)
		return err
	},
}

func init() {
	inspectCmd.Flags().StringVar(&inspectSource, "source", "", "Print a source instead: processed, bundled or compressed")
	rootCmd.AddCommand(inspectCmd)
}
