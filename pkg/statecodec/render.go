package statecodec

import (
	"fmt"
	"strings"

	"github.com/github/keepalive-loop/pkg/constants"
)

// HistoryRow is one row of the iteration-history table, capped by the
// caller at constants.DefaultHistoryRows (oldest dropped first).
type HistoryRow struct {
	Iteration int
	Action    string
	Reason    string
	When      string
}

// RenderInput is everything the effects layer (C7) gathers to compose
// the full comment body; the state codec only knows how to lay it out
// and embed the sentinel — it never fetches or computes any of it.
type RenderInput struct {
	State State

	TasksTotal        int
	TasksChecked      int
	AcceptanceTotal   int
	AcceptanceChecked int

	LastAction string
	LastReason string

	TransientNoteShown bool
	ErrorCategory      string
	RecoveryHint       string

	History []HistoryRow
}

// Render composes the full human-readable comment body plus the
// machine-readable sentinel. The table is advisory; the sentinel JSON
// is the source of truth (§4.2) — any reader that disagrees with the
// table should trust the blob.
func Render(in RenderInput) (string, error) {
	blob, err := in.State.MarshalBlob()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(constants.StateCommentMarker)
	b.WriteString("\n\n## Keepalive status\n\n")
	b.WriteString("| Field | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Iteration | %d / %d |\n", in.State.Iteration, in.State.MaxIterations)
	fmt.Fprintf(&b, "| Tasks | %d/%d complete |\n", in.TasksChecked, in.TasksTotal)
	fmt.Fprintf(&b, "| Acceptance | %d/%d complete |\n", in.AcceptanceChecked, in.AcceptanceTotal)
	fmt.Fprintf(&b, "| Last action | %s (%s) |\n", orDash(in.LastAction), orDash(in.LastReason))
	fmt.Fprintf(&b, "| Last head | %s |\n", orDash(in.State.LastHeadSHA))
	b.WriteString("\n")

	if !in.State.Failure.IsZero() {
		b.WriteString("### Failure\n\n")
		b.WriteString("| Reason | Count | First seen | Last seen |\n|---|---|---|---|\n")
		fmt.Fprintf(&b, "| %s | %d | %s | %s |\n\n",
			orDash(in.State.Failure.Reason), in.State.Failure.Count,
			orDash(in.State.Failure.FirstSeen), orDash(in.State.Failure.LastSeen))
		if in.State.FailureThreshold > 0 && in.State.Failure.Count >= in.State.FailureThreshold {
			b.WriteString("**Operator action required.** Remove `needs-human` after remediation, or reset `failure` to `{}` in the state block below to resume automatically.\n\n")
		}
	}

	if in.TransientNoteShown {
		b.WriteString("_Transient Issue Detected — previous failure cleared automatically._\n\n")
	}

	if in.ErrorCategory != "" {
		fmt.Fprintf(&b, "Last error category: `%s`. %s\n\n", in.ErrorCategory, in.RecoveryHint)
	}

	if len(in.History) > 0 {
		b.WriteString("### Last Run\n\n")
		b.WriteString("| Iteration | Action | Reason | When |\n|---|---|---|---|\n")
		for _, row := range in.History {
			fmt.Fprintf(&b, "| %d | %s | %s | %s |\n", row.Iteration, row.Action, row.Reason, row.When)
		}
		b.WriteString("\n")
	}

	b.WriteString(constants.StateBlobPrefix)
	b.Write(blob)
	b.WriteString(constants.StateBlobSuffix)
	b.WriteString("\n")

	return b.String(), nil
}

func orDash(s string) string {
	if s == "" {
		return "_none_"
	}
	return s
}
