package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/github/keepalive-loop/pkg/console"
)

func newMarkRunningCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mark-running <pr-number>",
		Short: "Record that an agent invocation has started",
		Long: `mark-running rewrites the status comment to show the agent is
currently working, without touching the iteration or failure counters.
It's a pure visibility update for operators watching the PR.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prNumber, err := parsePRNumber(args[0])
			if err != nil {
				return err
			}
			repo, err := resolveRepo()
			if err != nil {
				return err
			}

			o := buildOrchestrator(repo)
			if err := o.MarkRunning(cmd.Context(), prNumber); err != nil {
				return fmt.Errorf("mark-running failed: %w", err)
			}
			fmt.Fprintln(os.Stderr, console.FormatInfoMessage(fmt.Sprintf("PR #%d marked running", prNumber)))
			return nil
		},
	}
}
