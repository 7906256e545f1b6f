package errclass

import "testing"

func TestClassifyTransient(t *testing.T) {
	cases := []string{
		"Request timed out after 30s",
		"connect ECONNRESET",
		"getaddrinfo ENOTFOUND api.github.com",
		"secondary rate limit hit",
	}
	for _, msg := range cases {
		got := Classify(1, msg, "")
		if got.Category != Transient {
			t.Fatalf("expected transient for %q, got %s", msg, got.Category)
		}
		if got.Category.CountsTowardThreshold() {
			t.Fatalf("transient must not count toward the failure threshold")
		}
	}
}

func TestClassifyAuth(t *testing.T) {
	got := Classify(1, "Bad credentials", "")
	if got.Category != Auth {
		t.Fatalf("expected auth, got %s", got.Category)
	}
	if !got.Category.CountsTowardThreshold() {
		t.Fatalf("auth must count toward the failure threshold")
	}
}

func TestClassifyResource(t *testing.T) {
	got := Classify(1, "repository not found", "")
	if got.Category != Resource {
		t.Fatalf("expected resource, got %s", got.Category)
	}
}

func TestClassifyLogic(t *testing.T) {
	got := Classify(1, "Validation failed: invalid payload", "")
	if got.Category != Logic {
		t.Fatalf("expected logic, got %s", got.Category)
	}
}

func TestClassifyInfrastructureByStage(t *testing.T) {
	got := Classify(1, "exit status 127", "setup")
	if got.Category != Infrastructure {
		t.Fatalf("expected infrastructure, got %s", got.Category)
	}
}

func TestClassifyUnknownFallback(t *testing.T) {
	got := Classify(1, "something weird happened", "")
	if got.Category != Unknown {
		t.Fatalf("expected unknown, got %s", got.Category)
	}
	if !got.Category.CountsTowardThreshold() {
		t.Fatalf("unknown must count toward the failure threshold")
	}
}
