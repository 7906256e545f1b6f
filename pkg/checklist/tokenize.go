package checklist

import (
	"regexp"
	"strings"
)

type lineKind int

const (
	lineOther lineKind = iota
	lineBlank
	lineHeading
	lineListItem
	lineFenceToggle
)

type token struct {
	raw         string
	kind        lineKind
	section     SectionKind // only set when kind == lineHeading
	item        Item        // only set when kind == lineListItem
	hadCheckbox bool        // only meaningful when kind == lineListItem
}

var (
	atxHeadingRe   = regexp.MustCompile(`^#{1,6}\s+(.+?)\s*:?\s*$`)
	boldHeadingRe  = regexp.MustCompile(`^\*\*(.+?)\*\*\s*:?\s*$`)
	boldListHeadRe = regexp.MustCompile(`^[-*+]\s+\*\*(.+?)\*\*\s*:?\s*$`)
	plainHeadingRe = regexp.MustCompile(`^([A-Za-z][A-Za-z ]{1,40})\s*:?\s*$`)
	listItemRe     = regexp.MustCompile(`^(\s*)([-*+]|\d+[.)])\s+(?:\[([ xX])\]\s+)?(.+)$`)
	fenceRe        = regexp.MustCompile("^(```|~~~)")
)

// sectionVocabulary maps a normalized heading phrase to the section it
// names. Aliases per §3/§4.1: "Why"/"Summary"/"Background" -> Scope;
// "Task"/"To Do"/"Implementation notes" -> Tasks; "Success criteria"/
// "Definition of done" -> Acceptance.
var sectionVocabulary = map[string]SectionKind{
	"scope":               SectionScope,
	"why":                 SectionScope,
	"summary":             SectionScope,
	"background":          SectionScope,
	"tasks":                SectionTasks,
	"task":                 SectionTasks,
	"to do":                SectionTasks,
	"todo":                 SectionTasks,
	"implementation notes": SectionTasks,
	"acceptance criteria":  SectionAcceptance,
	"acceptance":           SectionAcceptance,
	"success criteria":     SectionAcceptance,
	"definition of done":   SectionAcceptance,
}

// stripBlockquote removes at most one level of "> " (or bare ">")
// blockquote prefix, per §4.1 "at most one level of blockquote prefix
// tolerated".
func stripBlockquote(line string) string {
	trimmed := strings.TrimLeft(line, " \t")
	if strings.HasPrefix(trimmed, ">") {
		rest := trimmed[1:]
		rest = strings.TrimPrefix(rest, " ")
		return rest
	}
	return line
}

func normalizeHeadingPhrase(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func classifyHeading(line string) (SectionKind, bool) {
	candidate := stripBlockquote(line)
	trimmedCandidate := strings.TrimSpace(candidate)
	if trimmedCandidate == "" {
		return SectionNone, false
	}

	if m := atxHeadingRe.FindStringSubmatch(trimmedCandidate); m != nil {
		if kind, ok := sectionVocabulary[normalizeHeadingPhrase(m[1])]; ok {
			return kind, true
		}
		return SectionNone, false
	}
	if m := boldListHeadRe.FindStringSubmatch(trimmedCandidate); m != nil {
		if kind, ok := sectionVocabulary[normalizeHeadingPhrase(m[1])]; ok {
			return kind, true
		}
		return SectionNone, false
	}
	if m := boldHeadingRe.FindStringSubmatch(trimmedCandidate); m != nil {
		if kind, ok := sectionVocabulary[normalizeHeadingPhrase(m[1])]; ok {
			return kind, true
		}
		return SectionNone, false
	}
	if m := plainHeadingRe.FindStringSubmatch(trimmedCandidate); m != nil {
		if kind, ok := sectionVocabulary[normalizeHeadingPhrase(m[1])]; ok {
			return kind, true
		}
	}
	return SectionNone, false
}

func classifyListItem(line string) (Item, bool, bool) {
	m := listItemRe.FindStringSubmatch(line)
	if m == nil {
		return Item{}, false, false
	}
	indent, marker, box, text := m[1], m[2], m[3], m[4]
	item := Item{
		Indent:  indent,
		Marker:  marker,
		Text:    strings.TrimSpace(text),
		Checked: box == "x" || box == "X",
	}
	return item, box != "", true
}

// tokenizeLines classifies every line of content once, so folding into
// sections never has to re-parse raw text.
func tokenizeLines(lines []string) []token {
	tokens := make([]token, 0, len(lines))
	inFence := false
	for _, raw := range lines {
		trimmed := strings.TrimSpace(raw)

		if fenceRe.MatchString(strings.TrimLeft(raw, " \t")) {
			inFence = !inFence
			tokens = append(tokens, token{raw: raw, kind: lineFenceToggle})
			continue
		}
		if inFence {
			tokens = append(tokens, token{raw: raw, kind: lineOther})
			continue
		}
		if trimmed == "" {
			tokens = append(tokens, token{raw: raw, kind: lineBlank})
			continue
		}
		if kind, ok := classifyHeading(raw); ok {
			tokens = append(tokens, token{raw: raw, kind: lineHeading, section: kind})
			continue
		}
		if item, hadCheckbox, ok := classifyListItem(stripBlockquote(raw)); ok {
			tokens = append(tokens, token{raw: raw, kind: lineListItem, item: item, hadCheckbox: hadCheckbox})
			continue
		}
		tokens = append(tokens, token{raw: raw, kind: lineOther})
	}
	return tokens
}
