package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/github/keepalive-loop/pkg/console"
	"github.com/github/keepalive-loop/pkg/keepaliveconfig"
)

func newWatchCommand() *cobra.Command {
	var interval int
	var maxPolls int

	cmd := &cobra.Command{
		Use:   "watch <pr-number>",
		Short: "Poll a PR's keepalive decision until it stops or is skipped",
		Long: `watch re-runs the decision engine on a fixed interval and prints each
decision as it's made, stopping as soon as the action is stop or skip
(or the poll budget given by --max-polls runs out). It is read-only:
it never writes the status comment or touches labels, unlike evaluate.`,
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
			spinner := console.NewSpinner(fmt.Sprintf("Evaluating PR #%d...", prNumber))
			spinner.Start()
			defer spinner.Stop()

			for poll := 0; maxPolls <= 0 || poll < maxPolls; poll++ {
				res, err := o.Peek(cmd.Context(), prNumber, keepaliveconfig.Overrides{})
				if err != nil {
					spinner.StopWithMessage(console.FormatErrorMessage(err.Error()))
					return err
				}

				spinner.UpdateMessage(fmt.Sprintf("PR #%d: %s (%s)", prNumber, res.Decision.Action, res.Decision.Reason))

				if isTerminalAction(string(res.Decision.Action)) {
					spinner.StopWithMessage(console.FormatSuccessMessage(fmt.Sprintf("PR #%d settled: %s (%s)", prNumber, res.Decision.Action, res.Decision.Reason)))
					return nil
				}

				select {
				case <-cmd.Context().Done():
					return cmd.Context().Err()
				case <-time.After(time.Duration(interval) * time.Second):
				}
			}

			spinner.StopWithMessage(console.FormatInfoMessage(fmt.Sprintf("PR #%d: poll budget exhausted", prNumber)))
			return nil
		},
	}

	cmd.Flags().IntVar(&interval, "interval", 30, "Seconds to wait between polls")
	cmd.Flags().IntVar(&maxPolls, "max-polls", 0, "Stop after this many polls (0 = unbounded)")
	return cmd
}

func isTerminalAction(action string) bool {
	return action == "stop" || action == "skip"
}
