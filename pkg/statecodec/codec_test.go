package statecodec

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/github/keepalive-loop/pkg/coretypes"
)

func TestLocateOldestWins(t *testing.T) {
	older := coretypes.Comment{ID: "1", Body: "<!-- keepalive-state:v1 {\"version\":\"v1\"} -->", CreatedAt: time.Unix(100, 0)}
	newer := coretypes.Comment{ID: "2", Body: "<!-- keepalive-state:v1 {\"version\":\"v1\"} -->", CreatedAt: time.Unix(200, 0)}
	other := coretypes.Comment{ID: "3", Body: "just a regular comment"}

	got, ok := Locate([]coretypes.Comment{other, newer, older})
	if !ok {
		t.Fatal("expected a state comment to be located")
	}
	if got.ID != "1" {
		t.Fatalf("expected oldest comment (id=1), got id=%s", got.ID)
	}
}

func TestLocateNoneFound(t *testing.T) {
	_, ok := Locate([]coretypes.Comment{{ID: "1", Body: "hello"}})
	if ok {
		t.Fatal("expected no state comment to be found")
	}
}

func TestParseRejectsUnknownVersion(t *testing.T) {
	s := Parse([]byte(`{"version":"v2","trace_id":"abc"}`))
	if s.Version != "" || s.TraceID != "" {
		t.Fatalf("expected empty state for unknown version, got %+v", s)
	}
}

func TestParseMalformedJSONReturnsEmpty(t *testing.T) {
	s := Parse([]byte(`{not json`))
	if !reflect.DeepEqual(s, Empty()) {
		t.Fatalf("expected empty state for malformed JSON, got %+v", s)
	}
}

func TestParsePreservesUnknownKeys(t *testing.T) {
	raw := []byte(`{"version":"v1","trace_id":"abc","iteration":1,"max_iterations":5,"failure_threshold":3,"failure":{},"last_head_sha":"sha1","last_files_changed":0,"last_instruction":{},"needs_task_reconciliation":false,"future_field":"kept"}`)
	s := Parse(raw)
	if s.TraceID != "abc" || s.Iteration != 1 {
		t.Fatalf("unexpected decode: %+v", s)
	}
	if _, ok := s.Extra["future_field"]; !ok {
		t.Fatalf("expected future_field preserved in Extra, got %+v", s.Extra)
	}

	blob, err := s.MarshalBlob()
	if err != nil {
		t.Fatalf("MarshalBlob failed: %v", err)
	}
	var roundTripped map[string]any
	if err := json.Unmarshal(blob, &roundTripped); err != nil {
		t.Fatalf("round-tripped blob is not valid JSON: %v", err)
	}
	if roundTripped["future_field"] != "kept" {
		t.Fatalf("expected future_field to survive round trip, got %v", roundTripped["future_field"])
	}
}

func TestParseRenderRoundTrip(t *testing.T) {
	s := State{
		TraceID:          "trace-1",
		Iteration:        2,
		MaxIterations:    5,
		FailureThreshold: 3,
		Failure:          Failure{},
		LastHeadSHA:      "sha123",
		Version:          "v1",
	}
	blob, err := s.MarshalBlob()
	if err != nil {
		t.Fatalf("MarshalBlob failed: %v", err)
	}
	reparsed := Parse(blob)
	reparsed.Extra = nil // Extra is empty-map vs nil-map; not meaningful to compare
	s.Extra = nil
	if !reflect.DeepEqual(reparsed, s) {
		t.Fatalf("expected round trip to be stable: got %+v, want %+v", reparsed, s)
	}
}

func TestUpdateScalarOverwrite(t *testing.T) {
	current := State{TraceID: "t1", Iteration: 1, Version: "v1"}
	next, err := Update(current, []byte(`{"iteration":2}`))
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if next.Iteration != 2 {
		t.Fatalf("expected iteration overwritten to 2, got %d", next.Iteration)
	}
	if next.TraceID != "t1" {
		t.Fatalf("expected trace_id preserved, got %q", next.TraceID)
	}
}

func TestUpdateFailureSpread(t *testing.T) {
	current := State{Version: "v1", Failure: Failure{Reason: "agent-run-failed", Count: 2, FirstSeen: "t0"}}
	next, err := Update(current, []byte(`{"failure":{"count":3,"last_seen":"t3"}}`))
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if next.Failure.Count != 3 || next.Failure.Reason != "agent-run-failed" || next.Failure.FirstSeen != "t0" || next.Failure.LastSeen != "t3" {
		t.Fatalf("expected shallow-merged failure, got %+v", next.Failure)
	}
}

func TestUpdateFailureExplicitClear(t *testing.T) {
	current := State{Version: "v1", Failure: Failure{Reason: "agent-run-failed", Count: 2}}
	next, err := Update(current, []byte(`{"failure":{}}`))
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if !next.Failure.IsZero() {
		t.Fatalf("expected failure cleared, got %+v", next.Failure)
	}
}

func TestRenderIncludesSentinelAndIsLocatable(t *testing.T) {
	in := RenderInput{
		State:        State{TraceID: "t1", Iteration: 1, MaxIterations: 5, FailureThreshold: 3, Version: "v1"},
		TasksTotal:   3,
		TasksChecked: 1,
		LastAction:   "run",
		LastReason:   "ready",
	}
	body, err := Render(in)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if _, ok := ExtractBlob(body); !ok {
		t.Fatalf("expected rendered comment to carry a locatable sentinel, got %q", body)
	}
	reparsed := ParseComment(body)
	if reparsed.TraceID != "t1" || reparsed.Iteration != 1 {
		t.Fatalf("expected rendered comment to parse back to the same state, got %+v", reparsed)
	}
}

func TestRenderFailureTableOnlyWhenNonEmpty(t *testing.T) {
	in := RenderInput{State: State{Version: "v1"}}
	body, err := Render(in)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if strings.Contains(body, "### Failure") {
		t.Fatalf("expected no failure table for a zero-value failure, got %q", body)
	}
}
