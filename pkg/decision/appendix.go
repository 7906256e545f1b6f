package decision

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/github/keepalive-loop/pkg/checklist"
)

var sourceHeadingRe = regexp.MustCompile(`(?im)^#{1,6}\s+Source\s*:?\s*$`)

// BuildTaskAppendix renders the "PR Tasks and Acceptance Criteria"
// block — the only bytes the core contributes to the agent's prompt
// (§6). It is pure text composition: no I/O, no mutation of body or
// checklist.
func BuildTaskAppendix(body string, cl checklist.Sections, needsReconciliation bool) string {
	counts := cl.TaskCounts()
	var b strings.Builder

	b.WriteString("## PR Tasks and Acceptance Criteria\n\n")
	fmt.Fprintf(&b, "%d/%d tasks complete, %d remaining\n\n", counts.Checked, counts.Total, counts.Unchecked)

	if cl.Scope != "" {
		b.WriteString("### Scope\n\n")
		b.WriteString(cl.Scope)
		b.WriteString("\n\n")
	}

	appendixOpts := checklist.AppendixRenderOptions()
	rendered := checklist.Render(cl, appendixOpts)
	b.WriteString(rendered)

	if src, ok := extractSourceContext(body); ok {
		b.WriteString("\n### Source Context\n\n")
		b.WriteString(src)
		b.WriteString("\n")
	}

	if needsReconciliation {
		b.WriteString("\n### Task Reconciliation Required\n\n")
		b.WriteString("Files changed in the previous round but no task reached high-confidence match. Please check off any tasks that this round's changes actually completed, and leave the rest unchecked.\n")
	}

	return b.String()
}

// extractSourceContext looks for a "Source" heading (any markdown
// level, case-insensitive) and returns the text of the paragraph that
// follows it, if present.
func extractSourceContext(body string) (string, bool) {
	loc := sourceHeadingRe.FindStringIndex(body)
	if loc == nil {
		return "", false
	}
	rest := body[loc[1]:]
	lines := strings.Split(rest, "\n")
	var out []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if len(out) > 0 {
				break
			}
			continue
		}
		if strings.HasPrefix(trimmed, "#") {
			break
		}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return "", false
	}
	return strings.Join(out, "\n"), true
}
