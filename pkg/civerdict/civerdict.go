// Package civerdict implements C3: reducing the set of workflow runs for
// a PR's current head commit into a single CI verdict the decision
// engine can match on.
package civerdict

import (
	"regexp"

	"github.com/github/keepalive-loop/pkg/coretypes"
	"github.com/github/keepalive-loop/pkg/logger"
)

var log = logger.New("civerdict:classifier")

// Verdict is the reduced CI outcome for a head commit (§4.3).
type Verdict string

const (
	Pending         Verdict = "pending"
	Success         Verdict = "success"
	Cancelled       Verdict = "cancelled"
	FailureTests    Verdict = "failure-tests"
	FailureLint     Verdict = "failure-lint"
	FailureTypes    Verdict = "failure-types"
	FailureUnknown  Verdict = "failure-unknown"
)

var (
	testJobRe = regexp.MustCompile(`(?i)test|pytest|unittest`)
	typeJobRe = regexp.MustCompile(`(?i)mypy|typecheck|type `)
	lintJobRe = regexp.MustCompile(`(?i)lint|ruff|black|format`)
)

// Classify reduces the runs for one head SHA to a Verdict. runs must
// already be filtered to the PR's current head; gateWorkflowID names the
// workflow whose success/cancellation gates the PR (§4.3's "gate run").
// The first rule that fires wins, so classification is deterministic.
func Classify(runs []coretypes.WorkflowRun, gateWorkflowID string) Verdict {
	if len(runs) == 0 {
		log.Print("no runs for head, verdict=pending")
		return Pending
	}

	var gate *coretypes.WorkflowRun
	anyInProgress := false
	gateSucceeded := false
	for i := range runs {
		r := &runs[i]
		if r.Conclusion == "" {
			anyInProgress = true
		}
		if gateWorkflowID == "" || r.WorkflowID == gateWorkflowID {
			if gate == nil || r.CreatedAt.After(gate.CreatedAt) {
				gate = r
			}
			if r.Conclusion == "success" {
				gateSucceeded = true
			}
		}
	}

	if anyInProgress && !gateSucceeded {
		return Pending
	}
	if gate == nil {
		return Pending
	}

	switch gate.Conclusion {
	case "success":
		return Success
	case "cancelled":
		return Cancelled
	case "failure":
		return classifyFailure(gate.Jobs)
	default:
		return Pending
	}
}

func classifyFailure(jobs []coretypes.Job) Verdict {
	for _, j := range jobs {
		if j.Conclusion != "failure" {
			continue
		}
		if testJobRe.MatchString(j.Name) {
			return FailureTests
		}
	}
	for _, j := range jobs {
		if j.Conclusion != "failure" {
			continue
		}
		if typeJobRe.MatchString(j.Name) {
			return FailureTypes
		}
	}
	for _, j := range jobs {
		if j.Conclusion != "failure" {
			continue
		}
		if lintJobRe.MatchString(j.Name) {
			return FailureLint
		}
	}
	return FailureUnknown
}
