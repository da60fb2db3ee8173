package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/agentic-research/gears/internal/config"
	"github.com/agentic-research/gears/internal/manifest"
	"github.com/spf13/cobra"
)

var manifestQuery string

var manifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Print the manifest, or the results of a JSONPath query against it",
	Args:  usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Manifest == "" {
			return usageError{fmt.Errorf("no manifest configured")}
		}
		m, err := manifest.Load(config.Abs(cfg, cfg.Manifest))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if manifestQuery == "" {
			data, err := m.Encode()
			if err != nil {
				return err
			}
			_, err = out.Write(data)
			return err
		}

		results, err := m.Query(manifestQuery)
		if err != nil {
			return usageError{err}
		}
		for _, r := range results {
			if s, ok := r.(string); ok {
				fmt.Fprintln(out, s)
				continue
			}
			data, err := json.Marshal(r)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))
		}
		return nil
	},
}

func init() {
	manifestCmd.Flags().StringVarP(&manifestQuery, "query", "q", "", "JSONPath expression, e.g. $.files['js/app.js']")
	rootCmd.AddCommand(manifestCmd)
}
