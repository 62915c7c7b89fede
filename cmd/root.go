package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/newhook/testnorm/internal/logging"
	"github.com/newhook/testnorm/internal/project"
	tnsignal "github.com/newhook/testnorm/internal/signal"
)

var (
	// rootCtx holds the signal-cancellable context for the application
	rootCtx    context.Context
	rootCancel context.CancelFunc

	flagWorkspace string
	flagVerbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "testnorm",
	Short: "Normalize test results from structured reports and raw output",
	Long: `testnorm turns test runner output into one canonical list of test cases.

It reads JUnit-style result files when they exist, recovers cases from raw
console output when they don't, and builds framework-native filters for
re-running a single case.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		rootCtx, rootCancel = tnsignal.WithSignalCancel(context.Background())
		if flagVerbose {
			logging.SetOutput(cmd.ErrOrStderr(), slog.LevelDebug)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if rootCancel != nil {
			rootCancel()
		}
	},
}

func Execute() error {
	return rootCmd.Execute()
}

// GetContext returns the root context that is cancelled on SIGINT/SIGTERM.
func GetContext() context.Context {
	if rootCtx == nil {
		return context.Background()
	}
	return rootCtx
}

// openProject finds the workspace, falling back to defaults when none
// exists. Loading a workspace redirects logs to its debug.log unless
// --verbose asked for stderr.
func openProject(cmd *cobra.Command) (*project.Project, error) {
	proj, err := project.FindOrDefault(flagWorkspace)
	if err != nil {
		return nil, fmt.Errorf("failed to load workspace: %w", err)
	}
	if flagVerbose {
		logging.SetOutput(cmd.ErrOrStderr(), slog.LevelDebug)
	}
	return proj, nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagWorkspace, "workspace", "w", "", "workspace directory (default: auto-detect from cwd)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log debug output to stderr")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(xmlCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(filterCmd)
	rootCmd.AddCommand(patternsCmd)
	rootCmd.AddCommand(watchCmd)
}
