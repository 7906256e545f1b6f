package ghclient

import (
	"errors"
	"strings"
	"testing"
)

var errNotFound = errors.New("exit status 1")

func TestApiPathFormatsRepoSlug(t *testing.T) {
	c := NewGHCLIClient("octo/widgets")
	got := c.apiPath("pulls/%d", 42)
	want := "repos/octo/widgets/pulls/42"
	if got != want {
		t.Fatalf("apiPath() = %q, want %q", got, want)
	}
}

func TestExecErrorIncludesArgsAndStderr(t *testing.T) {
	err := &execError{
		args:   []string{"api", "repos/octo/widgets/pulls/42"},
		stderr: "HTTP 404: Not Found",
		err:    errNotFound,
	}
	msg := err.Error()
	if !strings.Contains(msg, "gh api repos/octo/widgets/pulls/42") {
		t.Fatalf("expected args in error message, got %q", msg)
	}
	if !strings.Contains(msg, "HTTP 404: Not Found") {
		t.Fatalf("expected stderr in error message, got %q", msg)
	}
	if err.Unwrap() != errNotFound {
		t.Fatalf("expected Unwrap to return the wrapped error")
	}
}

func TestJoinArgs(t *testing.T) {
	got := joinArgs([]string{"api", "-f", "labels[]=agents:max-parallel:1"})
	want := "api -f labels[]=agents:max-parallel:1"
	if got != want {
		t.Fatalf("joinArgs() = %q, want %q", got, want)
	}
}
