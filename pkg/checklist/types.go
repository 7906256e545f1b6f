// Package checklist implements C1: extracting the Scope/Tasks/Acceptance
// sections from a free-form PR or issue body, normalizing every task and
// acceptance-criteria line to checkbox form, and counting checked versus
// unchecked items.
//
// The parser is a two-pass design (tokenize, then fold into sections),
// per the design note that nested regexes are the single most bug-prone
// shape for this kind of text: classify every line once, then walk the
// classified lines into sections.
package checklist

import "github.com/github/keepalive-loop/pkg/logger"

var log = logger.New("checklist:parser")

// SectionKind identifies one of the three recognized checklist sections.
type SectionKind int

const (
	// SectionNone marks content outside any recognized heading.
	SectionNone SectionKind = iota
	SectionScope
	SectionTasks
	SectionAcceptance
)

func (k SectionKind) String() string {
	switch k {
	case SectionScope:
		return "Scope"
	case SectionTasks:
		return "Tasks"
	case SectionAcceptance:
		return "Acceptance Criteria"
	default:
		return "None"
	}
}

// Item is one checklist line in the Tasks or Acceptance section.
type Item struct {
	// Marker is the original bullet style: "-", "*", "+", or a numeric
	// marker such as "1." or "2)".
	Marker string
	// Indent is the leading whitespace preserved verbatim.
	Indent string
	// Checked reports whether the item's checkbox glyph was [x]/[X].
	// Items that had no checkbox glyph at all are normalized to
	// unchecked ([ ]) — see Sections. Normalization is one-way: once
	// parsed, every Tasks/Acceptance item carries a checkbox, so this
	// field alone (not "did the source have one") is what Render uses
	// and what keeps the round-trip law (§8) holding.
	Checked bool
	// Text is the visible item text, checkbox glyph and marker stripped.
	Text string
}

// Sections is the derived view of a PR/issue body produced by Parse.
type Sections struct {
	// Scope is informational free text; the core never mutates it.
	Scope string
	// ScopePresent reports whether a Scope heading (or alias) was found.
	ScopePresent bool
	Tasks        []Item
	TasksPresent bool
	Acceptance   []Item
	AcceptancePresent bool
}

// Counts summarizes checked/unchecked items in one section.
type Counts struct {
	Total     int
	Checked   int
	Unchecked int
}

// TaskCounts returns the checkbox counts for the Tasks section. Decision
// rules that gate on "all tasks complete" read this, not AcceptanceCounts
// — an Acceptance section that is fully checked while Tasks still has
// open items never triggers tasks-complete (see §8 boundary behaviors).
func (s Sections) TaskCounts() Counts {
	return countItems(s.Tasks)
}

// AcceptanceCounts returns the checkbox counts for the Acceptance section.
func (s Sections) AcceptanceCounts() Counts {
	return countItems(s.Acceptance)
}

func countItems(items []Item) Counts {
	c := Counts{Total: len(items)}
	for _, it := range items {
		if it.Checked {
			c.Checked++
		} else {
			c.Unchecked++
		}
	}
	return c
}
