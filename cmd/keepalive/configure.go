package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/github/keepalive-loop/pkg/console"
)

func newConfigureCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Interactively build a keepalive-config block to paste into a PR body",
		Long: `configure walks through the keepalive-config overrides a PR body can
carry (keepalive_enabled, autofix_enabled, max_iterations,
failure_threshold, trace) and prints the fenced block ready to paste
under a "## Keepalive config" heading.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var enabledStr = "true"
			var autofixStr = "false"
			var maxIterationsStr = "5"
			var failureThresholdStr = "3"
			var trace string

			fields := []console.FormField{
				{
					Type:        "select",
					Title:       "Enable the keepalive loop for this PR?",
					Description: "keepalive_enabled",
					Value:       &enabledStr,
					Options: []console.SelectOption{
						{Label: "enabled", Value: "true"},
						{Label: "disabled", Value: "false"},
					},
				},
				{
					Type:        "select",
					Title:       "Let the agent auto-fix lint/type failures?",
					Description: "autofix_enabled",
					Value:       &autofixStr,
					Options: []console.SelectOption{
						{Label: "off", Value: "false"},
						{Label: "on", Value: "true"},
					},
				},
				{
					Type:        "input",
					Title:       "Max iterations",
					Description: "max_iterations",
					Placeholder: "5",
					Value:       &maxIterationsStr,
					Validate:    validatePositiveInt,
				},
				{
					Type:        "input",
					Title:       "Failure threshold",
					Description: "failure_threshold",
					Placeholder: "3",
					Value:       &failureThresholdStr,
					Validate:    validatePositiveInt,
				},
				{
					Type:        "input",
					Title:       "Trace tag (optional)",
					Description: "trace",
					Placeholder: "",
					Value:       &trace,
				},
			}

			if err := console.RunForm(fields); err != nil {
				return fmt.Errorf("configure wizard failed: %w", err)
			}

			fmt.Fprintln(os.Stderr, console.FormatSuccessMessage("Paste this under a \"## Keepalive config\" heading in the PR body:"))
			fmt.Println("## Keepalive config")
			fmt.Println("```")
			fmt.Printf("keepalive_enabled: %s\n", enabledStr)
			fmt.Printf("autofix_enabled: %s\n", autofixStr)
			fmt.Printf("max_iterations: %s\n", maxIterationsStr)
			fmt.Printf("failure_threshold: %s\n", failureThresholdStr)
			if trace != "" {
				fmt.Printf("trace: %s\n", trace)
			}
			fmt.Println("```")
			return nil
		},
	}
}

func validatePositiveInt(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("must be a whole number")
	}
	if n <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}
