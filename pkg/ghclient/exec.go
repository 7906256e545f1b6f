package ghclient

import (
	"bytes"
	"context"
	"os"
	"os/exec"

	"github.com/cli/go-gh/v2"

	"github.com/github/keepalive-loop/pkg/logger"
)

var execLog = logger.New("ghclient:exec")

// setupGHCommand builds an exec.Cmd for the gh CLI, ensuring GH_TOKEN is
// populated from GITHUB_TOKEN when only the latter is set (the usual
// case inside a GitHub Actions runner).
func setupGHCommand(ctx context.Context, args ...string) *exec.Cmd {
	ghToken := os.Getenv("GH_TOKEN")
	githubToken := os.Getenv("GITHUB_TOKEN")

	cmd := exec.CommandContext(ctx, "gh", args...)
	if ghToken == "" && githubToken != "" {
		cmd.Env = append(os.Environ(), "GH_TOKEN="+githubToken)
	}
	return cmd
}

// execGHContext runs a gh CLI command through os/exec (setupGHCommand)
// and returns stdout.
func execGHContext(ctx context.Context, args ...string) ([]byte, error) {
	execLog.Printf("gh %v", args)
	cmd := setupGHCommand(ctx, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stdout.Bytes(), &execError{args: args, stderr: stderr.String(), err: err}
	}
	return stdout.Bytes(), nil
}

// execGH is the same as execGHContext but uses go-gh/v2's own Exec,
// which resolves the gh binary and host configuration the same way the
// gh extension runtime does.
func execGH(args ...string) ([]byte, []byte, error) {
	execLog.Printf("gh %v (via go-gh)", args)
	stdout, stderr, err := gh.Exec(args...)
	return stdout.Bytes(), stderr.Bytes(), err
}

type execError struct {
	args   []string
	stderr string
	err    error
}

func (e *execError) Error() string {
	return "gh " + joinArgs(e.args) + ": " + e.err.Error() + ": " + e.stderr
}

func (e *execError) Unwrap() error { return e.err }

func joinArgs(args []string) string {
	out := ""
	for i, a := range args {
		if i > 0 {
			out += " "
		}
		out += a
	}
	return out
}
