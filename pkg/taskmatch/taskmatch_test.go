package taskmatch

import (
	"testing"

	"github.com/github/keepalive-loop/pkg/coretypes"
)

func TestOverlapRatioDirectMatch(t *testing.T) {
	ratio := OverlapRatio("Add backoff helper for retries", []string{"Add backoff helper and tests"})
	if ratio <= 0 {
		t.Fatalf("expected positive overlap, got %f", ratio)
	}
}

func TestOverlapRatioIgnoresDifferentActionVerb(t *testing.T) {
	// "add" and "implement" are both action verbs and excluded from the
	// task's content set, so the differing verb costs nothing; the
	// content words "backoff", "handling" and "retries" match literally.
	ratio := OverlapRatio("Add backoff handling for retries", []string{"Implement backoff handling for retries"})
	if ratio < 0.5 {
		t.Fatalf("expected content words (backoff/handling/retries) to match directly, got %f", ratio)
	}
}

func TestOverlapRatioNoMatch(t *testing.T) {
	ratio := OverlapRatio("Document the release process", []string{"Refactor database connection pool"})
	if ratio != 0 {
		t.Fatalf("expected zero overlap, got %f", ratio)
	}
}

func TestFileMatchBasename(t *testing.T) {
	if !FileMatch("Update backoff.go with jitter", []string{"pkg/retry/backoff.go"}) {
		t.Fatal("expected basename match")
	}
	if FileMatch("Update unrelated docs", []string{"pkg/retry/backoff.go"}) {
		t.Fatal("expected no match")
	}
}

func TestClassifyThresholds(t *testing.T) {
	cases := []struct {
		overlap    float64
		fileMatch  bool
		exactBase  bool
		wantResult Confidence
	}{
		{0.60, false, false, High},
		{0.40, true, false, High},
		{0.30, false, true, High},
		{0.30, false, false, Medium},
		{0.10, true, false, Medium},
		{0.05, false, false, Low},
		{0, false, false, None},
	}
	for _, c := range cases {
		got := Classify(c.overlap, c.fileMatch, c.exactBase)
		if got != c.wantResult {
			t.Fatalf("Classify(%v,%v,%v) = %s, want %s", c.overlap, c.fileMatch, c.exactBase, got, c.wantResult)
		}
	}
}

func TestReconcileOnlyTogglesHighConfidence(t *testing.T) {
	compare := coretypes.CompareResult{
		Commits: []coretypes.Commit{{Message: "Add backoff helper and unit tests for retries"}},
		Files:   []coretypes.File{{Filename: "pkg/retry/backoff.go"}},
	}
	unchecked := []string{"Add backoff helper for retries", "Document the release process"}

	toCheck, needsReconciliation := Reconcile(unchecked, compare)
	if !toCheck["Add backoff helper for retries"] {
		t.Fatalf("expected high-confidence task to be reconciled, got %+v", toCheck)
	}
	if toCheck["Document the release process"] {
		t.Fatalf("unrelated task should not be reconciled")
	}
	if needsReconciliation {
		t.Fatalf("expected no reconciliation warning since a high-confidence match exists")
	}
}

func TestReconcileFlagsNeedsReconciliationWhenNoHighConfidence(t *testing.T) {
	compare := coretypes.CompareResult{
		Commits: []coretypes.Commit{{Message: "Tweak unrelated formatting"}},
		Files:   []coretypes.File{{Filename: "pkg/console/theme.go"}},
	}
	unchecked := []string{"Add backoff helper for retries"}

	toCheck, needsReconciliation := Reconcile(unchecked, compare)
	if len(toCheck) != 0 {
		t.Fatalf("expected no tasks reconciled, got %+v", toCheck)
	}
	if !needsReconciliation {
		t.Fatal("expected needs_task_reconciliation to be raised")
	}
}
