package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/github/keepalive-loop/pkg/console"
	"github.com/github/keepalive-loop/pkg/decision"
	"github.com/github/keepalive-loop/pkg/orchestrator"
)

func newUpdateSummaryCommand() *cobra.Command {
	var action string
	var reason string
	var headSHA string
	var filesChanged int
	var failed bool
	var exitCode int
	var errorMessage string
	var runnerStage string

	cmd := &cobra.Command{
		Use:   "update-summary <pr-number>",
		Short: "Fold an agent invocation's outcome into the persisted state and status comment",
		Long: `update-summary is the post-round half of one keepalive cycle: it
takes what actually happened when the agent ran (a new head SHA, how
many files changed, whether it failed and why) and persists the result,
without re-deciding anything. Callers run this right after the agent
step finishes.`,
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

			d := decision.Decision{Action: decision.Action(action), Reason: reason}
			o := buildOrchestrator(repo)
			res, err := o.UpdateSummary(cmd.Context(), prNumber, d, orchestrator.RunInputs{
				HeadSHA:      headSHA,
				FilesChanged: filesChanged,
				Failed:       failed,
				ExitCode:     exitCode,
				ErrorMessage: errorMessage,
				RunnerStage:  runnerStage,
			})
			if err != nil {
				return fmt.Errorf("update-summary failed: %w", err)
			}

			fmt.Fprintln(os.Stderr, console.FormatInfoMessage(fmt.Sprintf("PR #%d: persisted iteration %d", prNumber, res.Plan.NextState.Iteration)))
			return nil
		},
	}

	cmd.Flags().StringVar(&action, "action", string(decision.Run), "The action that was taken this round (run, fix, wait, stop, skip)")
	cmd.Flags().StringVar(&reason, "reason", "", "The reason the decision engine gave for that action")
	cmd.Flags().StringVar(&headSHA, "head-sha", "", "The head commit SHA after the agent ran")
	cmd.Flags().IntVar(&filesChanged, "files-changed", 0, "Number of files the agent changed this round")
	cmd.Flags().BoolVar(&failed, "failed", false, "Whether the agent invocation failed")
	cmd.Flags().IntVar(&exitCode, "exit-code", 0, "The agent process's exit code, if it failed")
	cmd.Flags().StringVar(&errorMessage, "error-message", "", "The agent's failure message, if it failed")
	cmd.Flags().StringVar(&runnerStage, "runner-stage", "", "setup|install, when the failure happened before the agent ran at all")
	return cmd
}
