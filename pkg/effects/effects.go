// Package effects implements C7: turning one IterationDecision plus its
// observed outcome into the persisted state mutation, the rendered
// status comment, and any label changes that the orchestrator then
// writes back to GitHub through ghclient. Every mutation here is
// idempotent: applying the same Plan twice against the same starting
// state produces the same comment body and the same label set (§4.7).
package effects

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/github/keepalive-loop/pkg/checklist"
	"github.com/github/keepalive-loop/pkg/constants"
	"github.com/github/keepalive-loop/pkg/decision"
	"github.com/github/keepalive-loop/pkg/errclass"
	"github.com/github/keepalive-loop/pkg/logger"
	"github.com/github/keepalive-loop/pkg/statecodec"
)

var log = logger.New("effects:plan")

// Outcome is what actually happened after the decision's chosen action
// ran (or didn't, for wait/skip/stop): whether the agent produced any
// file changes, and the error classification if the run failed.
type Outcome struct {
	HeadSHA      string
	FilesChanged int
	Failed       bool
	ErrClass     errclass.Classification
}

// LabelMutation is one label add or remove the plan wants applied.
type LabelMutation struct {
	Label string
	Add   bool
}

// ChecklistCounts is the rendered comment's progress-table input,
// derived from a checklist.Sections by the caller via CountsOf.
type ChecklistCounts struct {
	TasksTotal        int
	TasksChecked      int
	AcceptanceTotal   int
	AcceptanceChecked int
}

// CountsOf extracts the table's four numbers from a parsed checklist.
func CountsOf(cl checklist.Sections) ChecklistCounts {
	t := cl.TaskCounts()
	a := cl.AcceptanceCounts()
	return ChecklistCounts{
		TasksTotal:        t.Total,
		TasksChecked:      t.Checked,
		AcceptanceTotal:   a.Total,
		AcceptanceChecked: a.Checked,
	}
}

// Plan is the effects layer's pure output: the next persisted state,
// the rendered comment body it belongs in, and the label mutations to
// apply. The caller (orchestrator) is responsible for the actual writes
// via ghclient; this package never touches the network.
type Plan struct {
	NextState   statecodec.State
	CommentBody string
	Labels      []LabelMutation
	Metrics     MetricsInput
}

// MetricsInput is what the caller needs to emit a metrics.Record; kept
// here rather than importing pkg/metrics directly so this package has
// no dependency on the sink abstraction.
type MetricsInput struct {
	Action        string
	Reason        string
	ErrorCategory string
}

// Build composes the next Plan from the current persisted state, the
// decision that was made, and (for Run/Fix actions that actually
// invoked the agent) the observed Outcome. history is the caller's
// trailing iteration-history rows, already capped by the caller at
// constants.DefaultHistoryRows, newest last.
func Build(current statecodec.State, d decision.Decision, out Outcome, counts ChecklistCounts, history []statecodec.HistoryRow, now time.Time) (Plan, error) {
	patch := buildPatch(current, d, out, now)
	next, err := statecodec.Update(current, patch)
	if err != nil {
		return Plan{}, fmt.Errorf("effects: update state: %w", err)
	}

	transientThisRound := d.Action.IsAgentAction() && out.Failed && !out.ErrClass.Category.CountsTowardThreshold()
	resumedAfterFailure := !current.Failure.IsZero() && d.Action.IsAgentAction() && !out.Failed
	transientResumed := resumedAfterFailure || transientThisRound
	errorCategory := ""
	recoveryHint := ""
	if out.Failed {
		errorCategory = string(out.ErrClass.Category)
		recoveryHint = out.ErrClass.RecoveryHint
	}

	body, err := statecodec.Render(statecodec.RenderInput{
		State:              next,
		TasksTotal:         counts.TasksTotal,
		TasksChecked:       counts.TasksChecked,
		AcceptanceTotal:    counts.AcceptanceTotal,
		AcceptanceChecked:  counts.AcceptanceChecked,
		LastAction:         string(d.Action),
		LastReason:         d.Reason,
		TransientNoteShown: transientResumed,
		ErrorCategory:      errorCategory,
		RecoveryHint:       recoveryHint,
		History:            capHistory(history),
	})
	if err != nil {
		return Plan{}, fmt.Errorf("effects: render comment: %w", err)
	}

	return Plan{
		NextState:   next,
		CommentBody: body,
		Labels:      labelMutations(current, next, out),
		Metrics: MetricsInput{
			Action:        string(d.Action),
			Reason:        d.Reason,
			ErrorCategory: errorCategory,
		},
	}, nil
}

// buildPatch implements §4.7's mutation ordering: wait/skip/stop never
// touch iteration or failure counters; a successful run/fix advances
// iteration and clears any failure; a failed run/fix increments the
// failure count unless the error is transient, in which case it never
// counts toward the threshold and clears any existing failure record
// instead, since a transient blip says nothing about the persistent
// failure that preceded it.
func buildPatch(current statecodec.State, d decision.Decision, out Outcome, now time.Time) []byte {
	ts := now.UTC().Format(time.RFC3339)
	patch := map[string]any{}

	if d.Action.IsAgentAction() {
		switch {
		case out.Failed && out.ErrClass.Category.CountsTowardThreshold():
			firstSeen := current.Failure.FirstSeen
			if firstSeen == "" {
				firstSeen = ts
			}
			patch["failure"] = map[string]any{
				"reason":     string(out.ErrClass.Category),
				"count":      current.Failure.Count + 1,
				"first_seen": firstSeen,
				"last_seen":  ts,
			}
		case out.Failed:
			log.Printf("transient failure observed, not counted toward threshold, clearing any prior failure record")
			patch["failure"] = map[string]any{}
		default:
			patch["iteration"] = current.Iteration + 1
			patch["last_head_sha"] = out.HeadSHA
			patch["last_files_changed"] = out.FilesChanged
			if !current.Failure.IsZero() {
				patch["failure"] = map[string]any{}
			}
		}
	}

	raw, err := json.Marshal(patch)
	if err != nil {
		log.Printf("failed to marshal state patch: %v", err)
		return []byte("{}")
	}
	return raw
}

func capHistory(rows []statecodec.HistoryRow) []statecodec.HistoryRow {
	if len(rows) <= constants.DefaultHistoryRows {
		return rows
	}
	return rows[len(rows)-constants.DefaultHistoryRows:]
}

// labelMutations implements the label side of §4.7: add both
// needs-human and agent:needs-attention once the failure threshold is
// crossed, and drop agents:sync-required once the head SHA advances
// past what was last recorded.
func labelMutations(current, next statecodec.State, out Outcome) []LabelMutation {
	var muts []LabelMutation

	crossedThreshold := next.FailureThreshold > 0 &&
		next.Failure.Count >= next.FailureThreshold &&
		current.Failure.Count < next.FailureThreshold
	if crossedThreshold {
		muts = append(muts, LabelMutation{Label: string(constants.NeedsHumanLabel), Add: true})
		muts = append(muts, LabelMutation{Label: string(constants.NeedsAttentionLabel), Add: true})
	}

	headAdvanced := out.HeadSHA != "" && out.HeadSHA != current.LastHeadSHA
	if headAdvanced {
		muts = append(muts, LabelMutation{Label: string(constants.SyncRequiredLabel), Add: false})
	}

	return muts
}
