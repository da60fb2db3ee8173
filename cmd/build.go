package cmd

import (
	"fmt"
	"time"

	"github.com/agentic-research/gears/internal/ctxlog"
	"github.com/agentic-research/gears/internal/pipeline"
	"github.com/spf13/cobra"
)

var buildAll bool

var buildCmd = &cobra.Command{
	Use:   "build [logical paths...]",
	Short: "Build assets and save them under the output root",
	Long: `Build the given logical paths, or the public assets when none are given.
With --all, every asset marked "params public=true" is built as well.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, env, err := openEnvironment()
		if err != nil {
			return err
		}
		defer closeCache(ctx, env)

		paths := args
		if len(paths) == 0 {
			if paths, err = pipeline.Targets(ctx, env, buildAll); err != nil {
				return err
			}
		}
		if len(paths) == 0 {
			return usageError{fmt.Errorf("nothing to build: no paths given and no public asset found")}
		}

		s, err := pipeline.OpenSaver(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		start := time.Now()
		results, err := pipeline.Build(ctx, env, s, paths)
		for _, r := range results {
			if r.HexdigestPath != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", r.LogicalPath, r.HexdigestPath)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), r.LogicalPath)
			}
		}
		if err != nil {
			return err
		}
		ctxlog.FromContext(ctx).Info("build finished", "assets", len(results), "elapsed", time.Since(start))
		return nil
	},
}

func init() {
	buildCmd.Flags().BoolVar(&buildAll, "all", false, "Also build every asset marked public by a params directive")
	rootCmd.AddCommand(buildCmd)
}
