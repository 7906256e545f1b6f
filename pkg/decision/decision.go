// Package decision implements C6: the pure, side-effect-free action
// selection table that turns a PR snapshot, its checklist, the
// persisted state, the CI verdict, and any config overrides into one
// IterationDecision. It has no external dependency — every input is a
// plain value passed in, per the design note in §9 that the decision
// engine carries no I/O of its own.
package decision

import (
	"fmt"

	"github.com/github/keepalive-loop/pkg/checklist"
	"github.com/github/keepalive-loop/pkg/civerdict"
	"github.com/github/keepalive-loop/pkg/constants"
	"github.com/github/keepalive-loop/pkg/coretypes"
	"github.com/github/keepalive-loop/pkg/keepaliveconfig"
	"github.com/github/keepalive-loop/pkg/labelparse"
)

// Action is one of the five outcomes the decision engine can select.
type Action string

const (
	Run  Action = "run"
	Fix  Action = "fix"
	Wait Action = "wait"
	Stop Action = "stop"
	Skip Action = "skip"
)

// IsAgentAction reports whether this action actually invokes the agent
// runner, as opposed to wait/skip/stop which never touch iteration or
// failure counters (§4.7).
func (a Action) IsAgentAction() bool {
	return a == Run || a == Fix
}

// PromptMode selects which instruction template the downstream runner
// uses; empty for actions that never invoke the runner.
type PromptMode string

const (
	PromptNone   PromptMode = ""
	PromptNormal PromptMode = "normal"
	PromptFixCI  PromptMode = "fix_ci"
	PromptVerify PromptMode = "verify"
)

// Inputs bundles everything the decision table reads. ConcurrentRuns is
// supplied by the caller; the decision engine itself never queries it.
// The orchestrator in this module always passes 0, so the run-cap rule
// fires only for callers that supply a count.
type Inputs struct {
	PR              coretypes.PRSnapshot
	Checklist       checklist.Sections
	State           StateView
	CIVerdict       civerdict.Verdict
	Config          keepaliveconfig.Overrides
	ConcurrentRuns  int
	PreviousRoundOK PreviousRound
}

// StateView is the slice of KeepaliveState the decision table reads.
// Kept narrow and duplicated (rather than importing statecodec
// directly) so this package has zero dependency on the comment/JSON
// representation — only the fields that feed the predicate table.
type StateView struct {
	Iteration               int
	MaxIterations           int
	FailureThreshold        int
	NeedsTaskReconciliation bool
}

// PreviousRound summarizes whether the prior round made progress, used
// by the extended-mode and transient-resume rules.
type PreviousRound struct {
	FilesChanged int
	HadFailure   bool
}

// Productive reports whether the previous round changed any files or
// ended in a failure.
func (p PreviousRound) Productive() bool {
	return p.FilesChanged > 0 || p.HadFailure
}

// Decision is IterationDecision (§3).
type Decision struct {
	Action       Action
	Reason       string
	PromptMode   PromptMode
	Counts       checklist.Counts
	TaskAppendix string
	AgentType    string
}

// Decide runs the first-match-wins predicate table from §4.6.
func Decide(in Inputs) Decision {
	taskCounts := in.Checklist.TaskCounts()
	agentType := labelparse.AgentType(in.PR.Labels)

	base := func(action Action, reason string, mode PromptMode) Decision {
		return Decision{
			Action:       action,
			Reason:       reason,
			PromptMode:   mode,
			Counts:       taskCounts,
			AgentType:    agentType,
			TaskAppendix: BuildTaskAppendix(in.PR.Body, in.Checklist, in.State.NeedsTaskReconciliation),
		}
	}

	if !labelparse.HasAgentLabel(in.PR.Labels) {
		return base(Wait, "missing-agent-label", PromptNone)
	}

	if labelparse.HasLabel(in.PR.Labels, string(constants.PauseLabel)) {
		return base(Skip, "paused", PromptNone)
	}
	if labelparse.HasLabel(in.PR.Labels, string(constants.NeedsHumanLabel)) {
		return base(Skip, "needs-human", PromptNone)
	}
	if in.Config.KeepaliveEnabled != nil && !*in.Config.KeepaliveEnabled {
		return base(Skip, "keepalive-disabled", PromptNone)
	}

	runCap := labelparse.RunCap(in.PR.Labels)
	if in.ConcurrentRuns >= runCap {
		return base(Skip, "run-cap-reached", PromptNone)
	}

	if taskCounts.Total == 0 && in.Checklist.AcceptanceCounts().Total == 0 {
		return base(Wait, "missing-sections", PromptNone)
	}

	if taskCounts.Total > 0 && taskCounts.Unchecked == 0 {
		return base(Stop, "tasks-complete", PromptNone)
	}

	maxIterations := in.State.MaxIterations
	if in.Config.MaxIterations != nil {
		maxIterations = *in.Config.MaxIterations
	}
	if in.State.Iteration >= maxIterations {
		if !in.PreviousRoundOK.Productive() {
			return base(Stop, "max-iterations-unproductive", PromptNone)
		}
		return base(Run, "ready-extended", PromptNormal)
	}

	switch in.CIVerdict {
	case civerdict.Pending:
		return base(Wait, "gate-pending", PromptNone)
	case civerdict.Cancelled:
		return base(Wait, "gate-cancelled", PromptNone)
	case civerdict.FailureTests:
		return base(Fix, "fix-test", PromptFixCI)
	case civerdict.FailureTypes:
		return base(Fix, "fix-mypy", PromptFixCI)
	case civerdict.FailureUnknown:
		return base(Fix, "fix-unknown", PromptFixCI)
	case civerdict.FailureLint:
		return base(Wait, "gate-not-success", PromptNone)
	}

	return base(Run, "ready", PromptNormal)
}

// ReasonSummary renders a short human-readable explanation of a
// Decision, used by the rendered status comment.
func ReasonSummary(d Decision) string {
	return fmt.Sprintf("%s (%s)", d.Action, d.Reason)
}
