package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/github/keepalive-loop/pkg/console"
	"github.com/github/keepalive-loop/pkg/keepaliveconfig"
)

func newEvaluateCommand() *cobra.Command {
	var maxIterations int
	var failureThreshold int

	cmd := &cobra.Command{
		Use:   "evaluate <pr-number>",
		Short: "Run one decision cycle for a PR and persist the result",
		Long: `evaluate gathers the PR's current state (comments, CI runs, changed
files), decides whether to run, fix, wait, stop, or skip, and writes a
single status comment back to the PR. It prints the chosen action and
reason to stdout so a calling workflow can branch on it.`,
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

			cfg := keepaliveconfig.Overrides{}
			if maxIterations > 0 {
				cfg.MaxIterations = &maxIterations
			}
			if failureThreshold > 0 {
				cfg.FailureThreshold = &failureThreshold
			}

			o := buildOrchestrator(repo)
			res, err := o.Evaluate(cmd.Context(), prNumber, cfg)
			if err != nil {
				return fmt.Errorf("evaluate failed: %w", err)
			}

			summary := console.LayoutJoinVertical(
				console.LayoutTitleBox(fmt.Sprintf("Keepalive evaluation: PR #%d", prNumber), 48),
				console.LayoutInfoSection("Action", string(res.Decision.Action)),
				console.LayoutInfoSection("Reason", res.Decision.Reason),
			)
			fmt.Fprintln(os.Stderr, summary)
			fmt.Printf("action=%s\nreason=%s\nprompt_mode=%s\nagent_type=%s\n", res.Decision.Action, res.Decision.Reason, res.Decision.PromptMode, res.Decision.AgentType)
			return nil
		},
	}

	cmd.Flags().IntVar(&maxIterations, "max-iterations", 0, "Override the persisted max-iterations ceiling for this run")
	cmd.Flags().IntVar(&failureThreshold, "failure-threshold", 0, "Failure threshold to record when the PR has no persisted state yet")
	return cmd
}
