// Package taskmatch implements C5: scoring how well an unchecked task's
// text is corroborated by the commits and files changed since the last
// round, and deciding which (if any) checkbox reconciliation that
// evidence justifies.
//
// The exact overlap-ratio denominator is an open question the spec
// leaves to the implementer (§9): we pin it here as "unique task
// content tokens, stop words and action verbs excluded from both sides
// of the ratio" and expand matching on the commit side using the fixed
// synonym table in wordlists.go. See the design notes alongside this
// package for the fixtures that pin the behavior.
package taskmatch

import (
	"path"
	"regexp"
	"strings"

	"github.com/github/keepalive-loop/pkg/coretypes"
	"github.com/github/keepalive-loop/pkg/logger"
)

var log = logger.New("taskmatch:scorer")

// Confidence is the graded match strength for one task (§4.5).
type Confidence string

const (
	None   Confidence = "none"
	Low    Confidence = "low"
	Medium Confidence = "medium"
	High   Confidence = "high"
)

// Match is the scoring result for one unchecked task.
type Match struct {
	Task         string
	OverlapRatio float64
	FileMatch    bool
	Confidence   Confidence
}

var wordRe = regexp.MustCompile(`[a-z0-9]+`)

// tokenize lowercases and splits on non-alphanumeric runs, keeping only
// words of length >= 3 and dropping the stop-word list.
func tokenize(text string) []string {
	var out []string
	for _, w := range wordRe.FindAllString(strings.ToLower(text), -1) {
		if len(w) < 3 {
			continue
		}
		if stopWords[w] {
			continue
		}
		out = append(out, w)
	}
	return out
}

func uniqueNonVerbs(tokens []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, t := range tokens {
		if actionVerbs[t] || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// expandSet builds the commit-side match set: every commit token, plus
// every synonym-group sibling of any commit token in synonymOf. Action
// verbs never reach the task's content set, so the expansion only helps
// group members that are not action verbs: a task mentioning "repair"
// matches a commit that says "fix".
func expandSet(commitTokens []string) map[string]bool {
	set := map[string]bool{}
	for _, t := range commitTokens {
		set[t] = true
		for _, syn := range synonymOf[t] {
			set[syn] = true
		}
	}
	return set
}

// OverlapRatio computes the keyword overlap ratio for one task against
// the union of commit messages, per §4.5 steps 1-2.
func OverlapRatio(task string, commitMessages []string) float64 {
	content := uniqueNonVerbs(tokenize(task))
	if len(content) == 0 {
		return 0
	}

	var commitTokens []string
	for _, m := range commitMessages {
		commitTokens = append(commitTokens, tokenize(m)...)
	}
	matchSet := expandSet(commitTokens)

	matched := 0
	for _, w := range content {
		if matchSet[w] {
			matched++
		}
	}
	return float64(matched) / float64(len(content))
}

// FileMatch reports whether the task text names a file that also
// appears among the changed files, checked in the order §4.5 step 3
// specifies: exact basename equality, then substring, then path tail.
func FileMatch(task string, changedFiles []string) bool {
	lowerTask := strings.ToLower(task)
	for _, f := range changedFiles {
		base := strings.ToLower(path.Base(f))
		if base == "" {
			continue
		}
		if strings.Contains(lowerTask, base) {
			return true
		}
	}
	for _, f := range changedFiles {
		lowerFile := strings.ToLower(f)
		if lowerFile != "" && strings.Contains(lowerTask, lowerFile) {
			return true
		}
	}
	for _, f := range changedFiles {
		parts := strings.Split(strings.ToLower(f), "/")
		for i := range parts {
			tail := strings.Join(parts[i:], "/")
			if len(tail) >= 4 && strings.Contains(lowerTask, tail) {
				return true
			}
		}
	}
	return false
}

// Classify maps an overlap ratio plus a file-match flag to a
// Confidence, per the exact thresholds in §4.5 step 4.
func Classify(overlap float64, fileMatch bool, exactBasenameMatch bool) Confidence {
	switch {
	case overlap >= 0.50:
		return High
	case overlap >= 0.35 && fileMatch:
		return High
	case overlap >= 0.25 && exactBasenameMatch:
		return High
	case overlap >= 0.25:
		return Medium
	case fileMatch:
		return Medium
	case overlap > 0:
		return Low
	default:
		return None
	}
}

// ScoreTasks scores every unchecked task against the commits/files
// changed since last_head_sha, returning one Match per task in order.
func ScoreTasks(unchecked []string, compare coretypes.CompareResult) []Match {
	var messages []string
	for _, c := range compare.Commits {
		messages = append(messages, c.Message)
	}
	var files []string
	for _, f := range compare.Files {
		files = append(files, f.Filename)
	}

	matches := make([]Match, 0, len(unchecked))
	for _, task := range unchecked {
		ratio := OverlapRatio(task, messages)
		fm := FileMatch(task, files)
		exactBasename := exactBasenameFileMatch(task, files)
		conf := Classify(ratio, fm, exactBasename)
		matches = append(matches, Match{Task: task, OverlapRatio: ratio, FileMatch: fm, Confidence: conf})
	}
	return matches
}

func exactBasenameFileMatch(task string, files []string) bool {
	lowerTask := strings.ToLower(task)
	for _, f := range files {
		base := strings.ToLower(path.Base(f))
		if base == "" {
			continue
		}
		for _, w := range wordRe.FindAllString(lowerTask, -1) {
			if w == base || w == strings.TrimSuffix(base, path.Ext(base)) {
				return true
			}
		}
	}
	return false
}

// Reconcile applies the auto-reconciliation rule from §4.5: only
// high-confidence matches toggle a checkbox from unchecked to checked;
// already-checked tasks are never unchecked (they're not passed in
// here at all — callers only offer unchecked task texts); when files
// changed but nothing reached high confidence, reconciliation is
// flagged as needed so the next prompt appendix can ask the agent to
// do it manually.
func Reconcile(unchecked []string, compare coretypes.CompareResult) (toCheck map[string]bool, needsReconciliation bool) {
	matches := ScoreTasks(unchecked, compare)
	toCheck = map[string]bool{}
	anyHigh := false
	for _, m := range matches {
		if m.Confidence == High {
			toCheck[m.Task] = true
			anyHigh = true
			log.Printf("auto-reconciling task %q (overlap=%.2f fileMatch=%v)", m.Task, m.OverlapRatio, m.FileMatch)
		}
	}
	filesChanged := len(compare.Files) > 0
	needsReconciliation = filesChanged && !anyHigh && len(unchecked) > 0
	return toCheck, needsReconciliation
}
