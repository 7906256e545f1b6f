package decision

import (
	"strings"
	"testing"

	"github.com/github/keepalive-loop/pkg/checklist"
	"github.com/github/keepalive-loop/pkg/civerdict"
	"github.com/github/keepalive-loop/pkg/coretypes"
	"github.com/github/keepalive-loop/pkg/keepaliveconfig"
)

func baseInputs() Inputs {
	return Inputs{
		PR:        coretypes.PRSnapshot{Number: 1, HeadSHA: "sha-1", Labels: []string{"agent:codex"}},
		Checklist: checklist.Parse("## Tasks\n- [ ] one task\n"),
		State:     StateView{Iteration: 0, MaxIterations: 5, FailureThreshold: 3},
		CIVerdict: civerdict.Success,
	}
}

func TestMissingAgentLabelWaits(t *testing.T) {
	in := baseInputs()
	in.PR.Labels = nil
	d := Decide(in)
	if d.Action != Wait || d.Reason != "missing-agent-label" {
		t.Fatalf("got %+v", d)
	}
}

func TestPausedLabelSkips(t *testing.T) {
	in := baseInputs()
	in.PR.Labels = append(in.PR.Labels, "agents:pause")
	d := Decide(in)
	if d.Action != Skip || d.Reason != "paused" {
		t.Fatalf("got %+v", d)
	}
}

func TestNeedsHumanSkips(t *testing.T) {
	in := baseInputs()
	in.PR.Labels = append(in.PR.Labels, "needs-human")
	d := Decide(in)
	if d.Action != Skip || d.Reason != "needs-human" {
		t.Fatalf("got %+v", d)
	}
}

func TestKeepaliveDisabledSkips(t *testing.T) {
	in := baseInputs()
	disabled := false
	in.Config = keepaliveconfig.Overrides{KeepaliveEnabled: &disabled}
	d := Decide(in)
	if d.Action != Skip || d.Reason != "keepalive-disabled" {
		t.Fatalf("got %+v", d)
	}
}

func TestRunCapReachedSkips(t *testing.T) {
	in := baseInputs()
	in.PR.Labels = append(in.PR.Labels, "agents:max-parallel:1")
	in.ConcurrentRuns = 1
	d := Decide(in)
	if d.Action != Skip || d.Reason != "run-cap-reached" {
		t.Fatalf("got %+v", d)
	}
}

func TestMissingSectionsWaits(t *testing.T) {
	in := baseInputs()
	in.Checklist = checklist.Sections{}
	d := Decide(in)
	if d.Action != Wait || d.Reason != "missing-sections" {
		t.Fatalf("got %+v", d)
	}
}

func TestTasksCompleteStops(t *testing.T) {
	in := baseInputs()
	in.Checklist = checklist.Parse("## Tasks\n- [x] one task\n")
	d := Decide(in)
	if d.Action != Stop || d.Reason != "tasks-complete" {
		t.Fatalf("got %+v", d)
	}
}

func TestAllAcceptanceCheckedButTasksUncheckedStillRuns(t *testing.T) {
	in := baseInputs()
	in.Checklist = checklist.Parse("## Tasks\n- [ ] one task\n\n## Acceptance Criteria\n- [x] done\n")
	d := Decide(in)
	if d.Action != Run {
		t.Fatalf("expected run to continue since Tasks has unchecked items, got %+v", d)
	}
}

func TestMaxIterationsUnproductiveStops(t *testing.T) {
	in := baseInputs()
	in.State.Iteration = 6
	in.State.MaxIterations = 5
	in.PreviousRoundOK = PreviousRound{FilesChanged: 0, HadFailure: false}
	d := Decide(in)
	if d.Action != Stop || d.Reason != "max-iterations-unproductive" {
		t.Fatalf("got %+v", d)
	}
}

func TestMaxIterationsProductiveExtends(t *testing.T) {
	in := baseInputs()
	in.State.Iteration = 6
	in.State.MaxIterations = 5
	in.PreviousRoundOK = PreviousRound{FilesChanged: 3}
	d := Decide(in)
	if d.Action != Run || d.Reason != "ready-extended" {
		t.Fatalf("got %+v", d)
	}
}

func TestGatePendingWaits(t *testing.T) {
	in := baseInputs()
	in.CIVerdict = civerdict.Pending
	d := Decide(in)
	if d.Action != Wait || d.Reason != "gate-pending" {
		t.Fatalf("got %+v", d)
	}
}

func TestGateCancelledWaits(t *testing.T) {
	in := baseInputs()
	in.CIVerdict = civerdict.Cancelled
	d := Decide(in)
	if d.Action != Wait || d.Reason != "gate-cancelled" {
		t.Fatalf("got %+v", d)
	}
}

func TestFailureTestsFixes(t *testing.T) {
	in := baseInputs()
	in.CIVerdict = civerdict.FailureTests
	d := Decide(in)
	if d.Action != Fix || d.Reason != "fix-test" || d.PromptMode != PromptFixCI {
		t.Fatalf("got %+v", d)
	}
}

func TestFailureLintWaits(t *testing.T) {
	in := baseInputs()
	in.CIVerdict = civerdict.FailureLint
	d := Decide(in)
	if d.Action != Wait || d.Reason != "gate-not-success" {
		t.Fatalf("got %+v", d)
	}
}

func TestReadyFirstRoundScenario(t *testing.T) {
	in := Inputs{
		PR:        coretypes.PRSnapshot{Number: 606, HeadSHA: "sha-6", Labels: []string{"agent:codex"}},
		Checklist: checklist.Parse("## Tasks\n- [ ] implement the thing\n"),
		State:     StateView{Iteration: 0, MaxIterations: 5, FailureThreshold: 3},
		CIVerdict: civerdict.Success,
	}
	d := Decide(in)
	if d.Action != Run || d.Reason != "ready" || d.PromptMode != PromptNormal {
		t.Fatalf("got %+v", d)
	}
	if !strings.Contains(d.TaskAppendix, "0/1 tasks complete, 1 remaining") {
		t.Fatalf("expected progress line in appendix, got %q", d.TaskAppendix)
	}
}

func TestConfigOverridesMaxIterations(t *testing.T) {
	in := baseInputs()
	in.State.Iteration = 6
	in.State.MaxIterations = 5
	overridden := 10
	in.Config = keepaliveconfig.Overrides{MaxIterations: &overridden}
	d := Decide(in)
	if d.Action != Run || d.Reason != "ready" {
		t.Fatalf("expected config override to raise the ceiling and continue normally, got %+v", d)
	}
}

func TestTaskReconciliationWarningInAppendix(t *testing.T) {
	in := baseInputs()
	in.State.NeedsTaskReconciliation = true
	d := Decide(in)
	if !strings.Contains(d.TaskAppendix, "Task Reconciliation Required") {
		t.Fatalf("expected reconciliation warning in appendix, got %q", d.TaskAppendix)
	}
}
