package keepaliveconfig

import "testing"

func TestParseJSONSentinelForm(t *testing.T) {
	body := "Some text\n<!-- keepalive-config:start -->\n{\"max_iterations\": 8, \"keepalive_enabled\": false}\n<!-- keepalive-config:end -->\nMore text\n"
	o := Parse(body)
	if o.MaxIterations == nil || *o.MaxIterations != 8 {
		t.Fatalf("expected max_iterations=8, got %+v", o.MaxIterations)
	}
	if o.KeepaliveEnabled == nil || *o.KeepaliveEnabled != false {
		t.Fatalf("expected keepalive_enabled=false, got %+v", o.KeepaliveEnabled)
	}
}

func TestParseFencedKeyValueForm(t *testing.T) {
	body := "## Keepalive config\n\n```\nmax_iterations: 6 # override default\nautofix_enabled: yes\nfailure_threshold: 2\n```\n"
	o := Parse(body)
	if o.MaxIterations == nil || *o.MaxIterations != 6 {
		t.Fatalf("expected max_iterations=6, got %+v", o.MaxIterations)
	}
	if o.AutofixEnabled == nil || *o.AutofixEnabled != true {
		t.Fatalf("expected autofix_enabled=true from 'yes', got %+v", o.AutofixEnabled)
	}
	if o.FailureThreshold == nil || *o.FailureThreshold != 2 {
		t.Fatalf("expected failure_threshold=2, got %+v", o.FailureThreshold)
	}
}

func TestParseAbsentBlockReturnsZeroValue(t *testing.T) {
	o := Parse("Just a normal PR body with no config block.")
	if o.MaxIterations != nil || o.KeepaliveEnabled != nil {
		t.Fatalf("expected all-nil overrides, got %+v", o)
	}
}

func TestParseRejectsSchemaInvalidBlock(t *testing.T) {
	body := "<!-- keepalive-config:start -->\n{\"max_iterations\": -1}\n<!-- keepalive-config:end -->\n"
	o := Parse(body)
	if o.MaxIterations != nil {
		t.Fatalf("expected invalid block to be rejected, got %+v", o)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	body := "<!-- keepalive-config:start -->\n{\"max_iterations\": 5, \"unknown_field\": true}\n<!-- keepalive-config:end -->\n"
	o := Parse(body)
	if o.MaxIterations != nil {
		t.Fatalf("expected block with unknown field to be rejected wholesale, got %+v", o)
	}
}
