package checklist

import (
	"strings"

	"github.com/github/keepalive-loop/pkg/constants"
)

// Parse extracts ChecklistSections from a raw PR/issue body, per §4.1.
//
// It is idempotent: Parse(Render(Parse(b))) == Parse(b).
func Parse(body string) Sections {
	region := body
	if start := strings.Index(body, constants.StatusSummaryStartMarker); start >= 0 {
		if end := strings.Index(body[start:], constants.StatusSummaryEndMarker); end >= 0 {
			region = body[start+len(constants.StatusSummaryStartMarker) : start+end]
			log.Print("Extracted Automated Status Summary region")
		}
	}

	tokens := tokenizeLines(strings.Split(region, "\n"))
	s := foldSections(tokens)
	inferMissingSections(region, &s)
	return s
}

// foldSections walks the classified tokens, attributing list items and
// other content to the most recently seen heading.
func foldSections(tokens []token) Sections {
	var s Sections
	current := SectionNone
	var scopeLines []string
	blankRun := false

	flushScopeBlank := func() {
		if blankRun && len(scopeLines) > 0 && scopeLines[len(scopeLines)-1] != "" {
			scopeLines = append(scopeLines, "")
		}
		blankRun = false
	}

	for _, t := range tokens {
		switch t.kind {
		case lineHeading:
			current = t.section
			switch current {
			case SectionScope:
				s.ScopePresent = true
			case SectionTasks:
				s.TasksPresent = true
			case SectionAcceptance:
				s.AcceptancePresent = true
			}
			blankRun = false
		case lineBlank:
			if current == SectionScope {
				blankRun = true
			}
		case lineListItem:
			switch current {
			case SectionTasks:
				s.Tasks = append(s.Tasks, t.item)
			case SectionAcceptance:
				s.Acceptance = append(s.Acceptance, t.item)
			case SectionScope:
				flushScopeBlank()
				scopeLines = append(scopeLines, t.raw)
			}
		case lineFenceToggle, lineOther:
			if current == SectionScope {
				flushScopeBlank()
				scopeLines = append(scopeLines, strings.TrimRight(t.raw, " \t"))
			}
		}
	}

	s.Scope = strings.Trim(strings.Join(scopeLines, "\n"), "\n")
	return s
}

// inferMissingSections applies §4.1 rule 5-6: a top-level checkbox list
// with no Tasks heading is inferred as Tasks; a list following an
// explicit "Acceptance criteria" phrase is promoted to Acceptance when no
// Acceptance heading was found.
func inferMissingSections(region string, s *Sections) {
	lines := strings.Split(region, "\n")
	tokens := tokenizeLines(lines)

	if !s.TasksPresent && len(s.Tasks) == 0 {
		var inferred []Item
		current := SectionNone
		for _, t := range tokens {
			if t.kind == lineHeading {
				current = t.section
				continue
			}
			if current != SectionNone {
				continue
			}
			if t.kind == lineListItem && t.item.Indent == "" && t.hadCheckbox {
				inferred = append(inferred, t.item)
			}
		}
		if len(inferred) > 0 {
			s.Tasks = inferred
			log.Printf("Inferred %d top-level checkbox items as Tasks", len(inferred))
		}
	}

	if !s.AcceptancePresent && len(s.Acceptance) == 0 {
		lower := strings.ToLower(region)
		idx := strings.Index(lower, "acceptance criteria")
		if idx >= 0 {
			after := region[idx:]
			afterTokens := tokenizeLines(strings.Split(after, "\n"))
			var promoted []Item
			seenList := false
			for _, t := range afterTokens[1:] {
				if t.kind == lineListItem {
					promoted = append(promoted, t.item)
					seenList = true
					continue
				}
				if seenList && t.kind != lineBlank {
					break
				}
			}
			if len(promoted) > 0 {
				s.Acceptance = promoted
				log.Printf("Promoted trailing list after 'Acceptance criteria' phrase (%d items)", len(promoted))
			}
		}
	}
}

// CountCheckboxLines counts checkbox list lines in raw text directly,
// without folding into sections. It skips lines inside fenced code
// blocks, per §4.1's final counting rule.
func CountCheckboxLines(text string) (checked, total int) {
	for _, t := range tokenizeLines(strings.Split(text, "\n")) {
		if t.kind != lineListItem || !t.hadCheckbox {
			continue
		}
		if strings.TrimSpace(t.item.Text) == "" {
			continue
		}
		total++
		if t.item.Checked {
			checked++
		}
	}
	return checked, total
}
