// Command keepalive drives one PR through the keepalive decision loop:
// evaluate its current state against GitHub, decide whether to run,
// fix, wait, stop, or skip, and persist the result back as a single
// status comment plus any label changes.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/github/keepalive-loop/pkg/console"
	"github.com/github/keepalive-loop/pkg/constants"
	"github.com/github/keepalive-loop/pkg/logger"
)

var version = "dev"

var (
	repoFlag         string
	gateWorkflowFlag string
	metricsPathFlag  string
	verboseFlag      bool
	bannerFlag       bool
)

var rootCmd = &cobra.Command{
	Use:     string(constants.CLIExtensionPrefix),
	Short:   "Keep a coding agent iterating on a PR's task checklist until it's done",
	Version: version,
	Long: `keepalive drives a remote coding agent through a PR's Tasks/Acceptance
Criteria checklist: it classifies CI, reconciles which tasks the latest
commits actually closed, decides whether to run the agent again, and
persists its reasoning as a single status comment on the PR.

Common tasks:
  keepalive evaluate 123            # Run one decision cycle for PR #123
  keepalive mark-running 123        # Record that an invocation has started
  keepalive reconcile 123           # Re-check tasks against the latest commits
  keepalive configure                # Interactive keepalive-config wizard`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verboseFlag {
			logger.SetEnabled(true)
		}
		if bannerFlag {
			console.PrintBanner()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&repoFlag, "repo", "R", "", "Target repository (owner/repo), defaults to $GITHUB_REPOSITORY")
	rootCmd.PersistentFlags().StringVar(&gateWorkflowFlag, "gate-workflow", "", "Name of the CI workflow that gates this PR, defaults to $KEEPALIVE_GATE_WORKFLOW")
	rootCmd.PersistentFlags().StringVar(&metricsPathFlag, "metrics-path", "", "Path to append NDJSON metrics records to, defaults to $METRICS_PATH")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&bannerFlag, "banner", false, "Display ASCII logo banner with purple GitHub color theme")

	rootCmd.AddCommand(newEvaluateCommand())
	rootCmd.AddCommand(newUpdateSummaryCommand())
	rootCmd.AddCommand(newMarkRunningCommand())
	rootCmd.AddCommand(newReconcileCommand())
	rootCmd.AddCommand(newConfigureCommand())
	rootCmd.AddCommand(newWatchCommand())
	rootCmd.AddCommand(newVersionCommand())
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show keepalive version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(os.Stderr, "%s version %s\n", string(constants.CLIExtensionPrefix), version)
			return nil
		},
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, console.FormatErrorMessage(err.Error()))
		os.Exit(1)
	}
}
