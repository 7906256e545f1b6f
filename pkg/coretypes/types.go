// Package coretypes holds the plain data shapes shared across the
// keepalive components (§3 Data model): the read-only snapshot of a PR
// and the external records the orchestrator gathers before the decision
// engine runs. None of these types carry behavior; every component that
// needs to reduce or render them does so in its own package.
package coretypes

import "time"

// PRSnapshot is the read-only view of a PR for one invocation.
type PRSnapshot struct {
	Number  int
	HeadSHA string
	BaseSHA string
	HeadRef string
	BaseRef string
	Labels  []string
	Body    string
	IsFork  bool
}

// HasLabel reports whether the snapshot carries the named label exactly.
func (p PRSnapshot) HasLabel(name string) bool {
	for _, l := range p.Labels {
		if l == name {
			return true
		}
	}
	return false
}

// Comment is one issue/PR comment as returned by list_pr_comments.
type Comment struct {
	ID        string
	Body      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Job is one job within a WorkflowRun.
type Job struct {
	Name       string
	Conclusion string
}

// WorkflowRun is one external CI run for a given head commit.
type WorkflowRun struct {
	WorkflowID string
	Conclusion string // "success", "failure", "cancelled", or "" for null/in-progress
	Status     string
	HeadSHA    string
	CreatedAt  time.Time
	HTMLURL    string
	Jobs       []Job
}

// Commit is one commit returned by compare(base, head).
type Commit struct {
	SHA     string
	Message string
}

// File is one changed file, from compare(base, head) or list_pr_files.
type File struct {
	Filename string
	Status   string
}

// CompareResult is the result of compare(base, head).
type CompareResult struct {
	Commits []Commit
	Files   []File
}
