package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/github/keepalive-loop/pkg/constants"
	"github.com/github/keepalive-loop/pkg/ghclient"
	"github.com/github/keepalive-loop/pkg/metrics"
	"github.com/github/keepalive-loop/pkg/orchestrator"
)

// resolveRepo picks the target repository: the --repo flag first, then
// $GITHUB_REPOSITORY, the same precedence the teacher's MCP server uses
// for its own repo resolution.
func resolveRepo() (string, error) {
	if repoFlag != "" {
		return repoFlag, nil
	}
	if env := os.Getenv("GITHUB_REPOSITORY"); env != "" {
		return env, nil
	}
	return "", fmt.Errorf("no repository specified; pass --repo or set GITHUB_REPOSITORY")
}

func resolveGateWorkflow() string {
	if gateWorkflowFlag != "" {
		return gateWorkflowFlag
	}
	return os.Getenv(constants.GateWorkflowEnvVar)
}

func buildOrchestrator(repo string) *orchestrator.Orchestrator {
	client := ghclient.NewGHCLIClient(repo)
	sink := metrics.ResolveSink(metricsPathFlag)
	return orchestrator.New(client, sink, resolveGateWorkflow())
}

func parsePRNumber(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid PR number %q: %w", arg, err)
	}
	return n, nil
}
