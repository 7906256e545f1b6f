package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/github/keepalive-loop/pkg/console"
)

func newReconcileCommand() *cobra.Command {
	var assumeYes bool

	cmd := &cobra.Command{
		Use:   "reconcile <pr-number> <base-sha> <head-sha>",
		Short: "Re-check open tasks against a commit range on demand",
		Long: `reconcile invokes the task-match scorer directly against a given
base/head comparison, independent of a full evaluate cycle, and reports
how many open tasks reach a high-confidence match. It does not edit the
PR body: no checkbox is checked or unchecked on GitHub.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			prNumber, err := parsePRNumber(args[0])
			if err != nil {
				return err
			}
			repo, err := resolveRepo()
			if err != nil {
				return err
			}

			if !assumeYes {
				confirmed, err := console.ConfirmAction(
					fmt.Sprintf("Reconcile checklist for PR #%d against %s..%s?", prNumber, args[1], args[2]),
					"Reconcile",
					"Cancel",
				)
				if err != nil {
					return fmt.Errorf("confirmation failed: %w", err)
				}
				if !confirmed {
					fmt.Fprintln(os.Stderr, console.FormatInfoMessage("reconcile cancelled"))
					return nil
				}
			}

			o := buildOrchestrator(repo)
			res, err := o.AutoReconcileTasks(cmd.Context(), prNumber, args[1], args[2])
			if err != nil {
				return fmt.Errorf("reconcile failed: %w", err)
			}

			if res.Updated {
				fmt.Fprintln(os.Stderr, console.FormatSuccessMessage(fmt.Sprintf("PR #%d: %d task(s) reached a high-confidence match", prNumber, res.TasksChecked)))
			} else {
				fmt.Fprintln(os.Stderr, console.FormatInfoMessage(fmt.Sprintf("PR #%d: no high-confidence matches found", prNumber)))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}
