package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/agentic-research/gears/api"
	"github.com/agentic-research/gears/internal/asset"
	"github.com/agentic-research/gears/internal/asseterr"
	"github.com/agentic-research/gears/internal/config"
	"github.com/agentic-research/gears/internal/ctxlog"
	"github.com/agentic-research/gears/internal/pipeline"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Version is stamped at link time.
var Version = "dev"

// Exit codes.
const (
	exitOK    = 0
	exitBuild = 1
	exitUsage = 2
)

var (
	configPath string
	envFile    string
	logLevel   string
	logFormat  string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to gears.hcl (default $GEARS_CONFIG or ./gears.hcl)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Load environment variables from this file instead of ./.env")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format: text or json")
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})
}

var rootCmd = &cobra.Command{
	Use:           "gears",
	Short:         "gears: build, bundle and fingerprint JavaScript and CSS assets",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if envFile != "" {
			if err := godotenv.Load(envFile); err != nil {
				return usageError{fmt.Errorf("load env file: %w", err)}
			}
		} else if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return usageError{fmt.Errorf("load .env: %w", err)}
		}

		level := logLevel
		if !cmd.Flags().Changed("log-level") {
			if v := os.Getenv(config.EnvLogLevel); v != "" {
				level = v
			}
		}
		logger := ctxlog.New(level, logFormat, cmd.ErrOrStderr())
		slog.SetDefault(logger)
		cmd.SetContext(ctxlog.WithLogger(cmd.Context(), logger))
		return nil
	},
}

// usageError marks failures caused by the invocation rather than the
// build.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// usageArgs wraps a positional argument validator so its failures exit 2.
func usageArgs(v cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := v(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

func exitCode(err error) int {
	var ue usageError
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &ue), errors.Is(err, asseterr.ErrImproperlyConfigured):
		return exitUsage
	default:
		return exitBuild
	}
}

// loadConfig reads the configuration selected by --config, GEARS_CONFIG or
// ./gears.hcl.
func loadConfig() (*api.Config, error) {
	return config.Load(config.Path(configPath, os.Getenv), os.Getenv)
}

// openEnvironment loads the configuration and assembles the environment.
// The caller closes env.Cache.
func openEnvironment() (*api.Config, *asset.Environment, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	env, err := pipeline.NewEnvironment(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, env, nil
}

func closeCache(ctx context.Context, env *asset.Environment) {
	if err := env.Cache.Close(); err != nil {
		ctxlog.FromContext(ctx).Warn("close cache", "err", err)
	}
}

// run executes the command line args and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	resetFlags(rootCmd)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
	}
	return exitCode(err)
}

// resetFlags restores every flag to its default so run can be called more
// than once in one process.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// Execute runs the root command and exits.
func Execute() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
