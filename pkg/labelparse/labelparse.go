// Package labelparse extracts the few control signals the decision
// engine reads out of a PR's label set: which agent variant is assigned
// and what concurrency cap applies, so the prefix matching lives in one
// place.
package labelparse

import (
	"strconv"
	"strings"

	"github.com/github/keepalive-loop/pkg/constants"
)

// AgentType returns the `<name>` portion of the first `agent:<name>`
// label found, or "" when no agent label is present.
func AgentType(labels []string) string {
	for _, l := range labels {
		if strings.HasPrefix(l, constants.AgentLabelPrefix) {
			return strings.TrimPrefix(l, constants.AgentLabelPrefix)
		}
	}
	return ""
}

// HasAgentLabel reports whether any agent:<name> label is present.
func HasAgentLabel(labels []string) bool {
	return AgentType(labels) != ""
}

// HasLabel reports exact membership.
func HasLabel(labels []string, name string) bool {
	for _, l := range labels {
		if l == name {
			return true
		}
	}
	return false
}

// RunCap returns the concurrency cap implied by an
// `agents:max-parallel:<K>` or `agents:max-runs:<K>` label, falling
// back to constants.DefaultRunCap when neither is present or the
// numeric suffix doesn't parse.
func RunCap(labels []string) int {
	for _, l := range labels {
		if n, ok := parseCapLabel(l, constants.MaxParallelPrefix); ok {
			return n
		}
		if n, ok := parseCapLabel(l, constants.MaxRunsPrefix); ok {
			return n
		}
	}
	return constants.DefaultRunCap
}

func parseCapLabel(label, prefix string) (int, bool) {
	if !strings.HasPrefix(label, prefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(label, prefix))
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
