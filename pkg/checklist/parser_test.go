package checklist

import (
	"strings"
	"testing"
)

func TestParseBasicSections(t *testing.T) {
	body := "## Scope\n\nWire up the new retry path.\n\n## Tasks\n\n- [ ] Add backoff helper\n- [x] Write unit tests\n\n## Acceptance Criteria\n\n- [ ] CI is green\n"
	s := Parse(body)

	if s.Scope != "Wire up the new retry path." {
		t.Fatalf("unexpected scope: %q", s.Scope)
	}
	if len(s.Tasks) != 2 || s.Tasks[0].Checked || !s.Tasks[1].Checked {
		t.Fatalf("unexpected tasks: %+v", s.Tasks)
	}
	counts := s.TaskCounts()
	if counts != (Counts{Total: 2, Checked: 1, Unchecked: 1}) {
		t.Fatalf("unexpected counts: %+v", counts)
	}
	if len(s.Acceptance) != 1 {
		t.Fatalf("unexpected acceptance: %+v", s.Acceptance)
	}
}

func TestParseAliasHeadingsCaseInsensitive(t *testing.T) {
	body := "### why\nBecause reasons.\n\n### TO DO:\n- item one\n\n#### Definition of Done\n- [x] shipped\n"
	s := Parse(body)

	if !s.ScopePresent || s.Scope != "Because reasons." {
		t.Fatalf("expected Scope alias 'why' to be recognized, got %+v", s)
	}
	if !s.TasksPresent || len(s.Tasks) != 1 || s.Tasks[0].Checked {
		t.Fatalf("expected Tasks alias 'to do' to be recognized, got %+v", s.Tasks)
	}
	if !s.AcceptancePresent || len(s.Acceptance) != 1 || !s.Acceptance[0].Checked {
		t.Fatalf("expected Acceptance alias 'Definition of Done' to be recognized, got %+v", s.Acceptance)
	}
}

func TestParseNormalizesMissingCheckboxes(t *testing.T) {
	body := "## Tasks\n- write the docs\n1. ship it\n"
	s := Parse(body)

	if len(s.Tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %+v", s.Tasks)
	}
	for _, it := range s.Tasks {
		if it.Checked {
			t.Fatalf("normalized item should default unchecked: %+v", it)
		}
	}
	if s.Tasks[1].Marker != "1." {
		t.Fatalf("expected numeric marker preserved, got %q", s.Tasks[1].Marker)
	}
}

func TestParseBlockquotedHeading(t *testing.T) {
	body := "> ## Tasks\n> - [ ] do the thing\n"
	s := Parse(body)
	if !s.TasksPresent || len(s.Tasks) != 1 {
		t.Fatalf("expected blockquoted heading recognized, got %+v", s)
	}
}

func TestParseSkipsFencedCodeBlocks(t *testing.T) {
	body := "## Tasks\n- [ ] real task\n```\n- [ ] not a task\n```\n"
	s := Parse(body)
	if len(s.Tasks) != 1 {
		t.Fatalf("expected fenced checkbox to be ignored, got %+v", s.Tasks)
	}
}

func TestCountCheckboxLinesIgnoresFences(t *testing.T) {
	text := "- [x] one\n```\n- [ ] two\n```\n- [ ] three\n"
	checked, total := CountCheckboxLines(text)
	if checked != 1 || total != 2 {
		t.Fatalf("expected checked=1 total=2, got checked=%d total=%d", checked, total)
	}
}

func TestInferTasksWithoutHeading(t *testing.T) {
	body := "Some intro text.\n\n- [ ] implicit task one\n- [x] implicit task two\n"
	s := Parse(body)
	if s.TasksPresent {
		t.Fatalf("no explicit heading was present")
	}
	if len(s.Tasks) != 2 {
		t.Fatalf("expected inferred tasks, got %+v", s.Tasks)
	}
}

func TestPromoteAcceptanceFromPhrase(t *testing.T) {
	body := "## Tasks\n- [ ] a task\n\nAcceptance criteria for this PR:\n- [ ] tests pass\n- [ ] docs updated\n"
	s := Parse(body)
	if s.AcceptancePresent {
		t.Fatalf("no explicit heading was present")
	}
	if len(s.Acceptance) != 2 {
		t.Fatalf("expected promoted acceptance list, got %+v", s.Acceptance)
	}
}

func TestRoundTripIdempotence(t *testing.T) {
	bodies := []string{
		"## Scope\nBackground info.\n\n## Tasks\n- [ ] one\n- [x] two\n\n## Acceptance Criteria\n- [ ] three\n",
		"### Why\nReasons.\n\n### Task\n1. [ ] alpha\n2) [x] beta\n",
		"Intro.\n\n- [ ] implicit\n",
	}
	for _, b := range bodies {
		first := Parse(b)
		rendered := Render(first, DefaultRenderOptions())
		second := Parse(rendered)
		if !sectionsEqual(first, second) {
			t.Fatalf("round trip failed for body %q:\nfirst=%+v\nrendered=%q\nsecond=%+v", b, first, rendered, second)
		}
	}
}

func sectionsEqual(a, b Sections) bool {
	if a.Scope != b.Scope {
		return false
	}
	if len(a.Tasks) != len(b.Tasks) || len(a.Acceptance) != len(b.Acceptance) {
		return false
	}
	for i := range a.Tasks {
		if a.Tasks[i].Text != b.Tasks[i].Text || a.Tasks[i].Checked != b.Tasks[i].Checked {
			return false
		}
	}
	for i := range a.Acceptance {
		if a.Acceptance[i].Text != b.Acceptance[i].Text || a.Acceptance[i].Checked != b.Acceptance[i].Checked {
			return false
		}
	}
	return true
}

func TestAppendixPlaceholders(t *testing.T) {
	s := Parse("## Tasks\n- [ ] only tasks\n")
	out := Render(s, AppendixRenderOptions())
	if !strings.Contains(out, "No scope provided") {
		t.Fatalf("expected scope placeholder, got %q", out)
	}
	if !strings.Contains(out, "No acceptance criteria listed") {
		t.Fatalf("expected acceptance placeholder, got %q", out)
	}
}
