package ghclient

import (
	"fmt"
	"strings"
)

// ResolveHost reports the GitHub host gh is currently authenticated
// against. It uses go-gh's own Exec path rather than exec.CommandContext
// since this is a one-shot preflight check, not a request tied to an
// invocation's deadline.
func ResolveHost() (string, error) {
	stdout, stderr, err := execGH("api", "-q", ".html_url", "/")
	if err != nil {
		return "", fmt.Errorf("ghclient: resolve host: %w (stderr: %s)", err, strings.TrimSpace(string(stderr)))
	}
	url := strings.TrimSpace(string(stdout))
	url = strings.TrimPrefix(url, "https://")
	url = strings.TrimSuffix(url, "/")
	if url == "" {
		return "github.com", nil
	}
	return url, nil
}
