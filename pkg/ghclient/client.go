// Package ghclient is the one component that performs external I/O
// against GitHub, adapting the teacher's gh-CLI exec wrapper into the
// narrow interface the orchestrator (C8) needs: get_pr, list_pr_comments,
// list_runs (+jobs), compare, list_pr_files, label listing/mutation, and
// an idempotent comment upsert (§6 External interfaces).
package ghclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/github/keepalive-loop/pkg/coretypes"
	"github.com/github/keepalive-loop/pkg/logger"
)

var log = logger.New("ghclient:client")

// Client is everything the orchestrator reads/writes on a PR.
type Client interface {
	GetPR(ctx context.Context, number int) (coretypes.PRSnapshot, error)
	ListPRComments(ctx context.Context, number int) ([]coretypes.Comment, error)
	ListRuns(ctx context.Context, workflowID string, headSHA string) ([]coretypes.WorkflowRun, error)
	Compare(ctx context.Context, base, head string) (coretypes.CompareResult, error)
	ListPRFiles(ctx context.Context, number int) ([]coretypes.File, error)

	AddLabel(ctx context.Context, number int, label string) error
	RemoveLabel(ctx context.Context, number int, label string) error

	// UpsertComment creates or updates the one comment identified by
	// markerPrefix, skipping the write entirely when body is already
	// identical to the existing comment (§4.7.4's text-compare rule).
	UpsertComment(ctx context.Context, number int, markerPrefix string, body string) (commentID string, changed bool, err error)
}

// GHCLIClient implements Client by shelling out to the gh CLI,
// following the teacher's ExecGH/ExecGHContext pattern (pkg/ghclient's
// exec.go), against a fixed "owner/repo" slug.
type GHCLIClient struct {
	Repo string
}

// NewGHCLIClient constructs a client bound to one repository slug.
func NewGHCLIClient(repo string) *GHCLIClient {
	return &GHCLIClient{Repo: repo}
}

func (c *GHCLIClient) apiPath(format string, a ...any) string {
	return fmt.Sprintf("repos/%s/%s", c.Repo, fmt.Sprintf(format, a...))
}

type ghPRResponse struct {
	Number int `json:"number"`
	Head   struct {
		SHA  string `json:"sha"`
		Ref  string `json:"ref"`
		Repo struct {
			FullName string `json:"full_name"`
		} `json:"repo"`
	} `json:"head"`
	Base struct {
		SHA string `json:"sha"`
		Ref string `json:"ref"`
	} `json:"base"`
	Body   string `json:"body"`
	Labels []struct {
		Name string `json:"name"`
	} `json:"labels"`
}

// GetPR implements Client.
func (c *GHCLIClient) GetPR(ctx context.Context, number int) (coretypes.PRSnapshot, error) {
	raw, err := execGHContext(ctx, "api", c.apiPath("pulls/%d", number))
	if err != nil {
		return coretypes.PRSnapshot{}, fmt.Errorf("ghclient: get_pr %d: %w", number, err)
	}
	var resp ghPRResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return coretypes.PRSnapshot{}, fmt.Errorf("ghclient: decode pr %d: %w", number, err)
	}

	labels := make([]string, 0, len(resp.Labels))
	for _, l := range resp.Labels {
		labels = append(labels, l.Name)
	}

	isFork := resp.Head.Repo.FullName != "" && resp.Head.Repo.FullName != c.Repo

	return coretypes.PRSnapshot{
		Number:  resp.Number,
		HeadSHA: resp.Head.SHA,
		BaseSHA: resp.Base.SHA,
		HeadRef: resp.Head.Ref,
		BaseRef: resp.Base.Ref,
		Labels:  labels,
		Body:    resp.Body,
		IsFork:  isFork,
	}, nil
}

type ghCommentResponse struct {
	ID        int64  `json:"id"`
	Body      string `json:"body"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// ListPRComments implements Client.
func (c *GHCLIClient) ListPRComments(ctx context.Context, number int) ([]coretypes.Comment, error) {
	raw, err := execGHContext(ctx, "api", c.apiPath("issues/%d/comments", number), "--paginate")
	if err != nil {
		return nil, fmt.Errorf("ghclient: list_pr_comments %d: %w", number, err)
	}
	var resp []ghCommentResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("ghclient: decode comments %d: %w", number, err)
	}

	comments := make([]coretypes.Comment, 0, len(resp))
	for _, r := range resp {
		comments = append(comments, coretypes.Comment{
			ID:        strconv.FormatInt(r.ID, 10),
			Body:      r.Body,
			CreatedAt: parseTime(r.CreatedAt),
			UpdatedAt: parseTime(r.UpdatedAt),
		})
	}
	return comments, nil
}

type ghRunResponse struct {
	WorkflowRuns []struct {
		ID         int64  `json:"id"`
		Name       string `json:"name"`
		Status     string `json:"status"`
		Conclusion string `json:"conclusion"`
		HeadSHA    string `json:"head_sha"`
		CreatedAt  string `json:"created_at"`
		HTMLURL    string `json:"html_url"`
	} `json:"workflow_runs"`
}

type ghJobResponse struct {
	Jobs []struct {
		Name       string `json:"name"`
		Conclusion string `json:"conclusion"`
	} `json:"jobs"`
}

// ListRuns implements Client. headSHA filters runs client-side since
// not every gh API surface supports a head_sha query parameter
// uniformly across event types.
func (c *GHCLIClient) ListRuns(ctx context.Context, workflowID string, headSHA string) ([]coretypes.WorkflowRun, error) {
	path := c.apiPath("actions/runs")
	if workflowID != "" {
		path = c.apiPath("actions/workflows/%s/runs", workflowID)
	}
	raw, err := execGHContext(ctx, "api", path)
	if err != nil {
		return nil, fmt.Errorf("ghclient: list_runs: %w", err)
	}
	var resp ghRunResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("ghclient: decode runs: %w", err)
	}

	var runs []coretypes.WorkflowRun
	for _, r := range resp.WorkflowRuns {
		if r.HeadSHA != headSHA {
			continue
		}
		id := strconv.FormatInt(r.ID, 10)
		jobs, err := c.listJobs(ctx, id)
		if err != nil {
			log.Printf("failed to list jobs for run %s: %v", id, err)
		}
		runs = append(runs, coretypes.WorkflowRun{
			WorkflowID: r.Name,
			Conclusion: r.Conclusion,
			Status:     r.Status,
			HeadSHA:    r.HeadSHA,
			CreatedAt:  parseTime(r.CreatedAt),
			HTMLURL:    r.HTMLURL,
			Jobs:       jobs,
		})
	}
	return runs, nil
}

func (c *GHCLIClient) listJobs(ctx context.Context, runID string) ([]coretypes.Job, error) {
	raw, err := execGHContext(ctx, "api", c.apiPath("actions/runs/%s/jobs", runID))
	if err != nil {
		return nil, err
	}
	var resp ghJobResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, err
	}
	jobs := make([]coretypes.Job, 0, len(resp.Jobs))
	for _, j := range resp.Jobs {
		jobs = append(jobs, coretypes.Job{Name: j.Name, Conclusion: j.Conclusion})
	}
	return jobs, nil
}

type ghCompareResponse struct {
	Commits []struct {
		SHA    string `json:"sha"`
		Commit struct {
			Message string `json:"message"`
		} `json:"commit"`
	} `json:"commits"`
	Files []struct {
		Filename string `json:"filename"`
		Status   string `json:"status"`
	} `json:"files"`
}

// Compare implements Client.
func (c *GHCLIClient) Compare(ctx context.Context, base, head string) (coretypes.CompareResult, error) {
	raw, err := execGHContext(ctx, "api", c.apiPath("compare/%s...%s", base, head))
	if err != nil {
		return coretypes.CompareResult{}, fmt.Errorf("ghclient: compare %s...%s: %w", base, head, err)
	}
	var resp ghCompareResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return coretypes.CompareResult{}, fmt.Errorf("ghclient: decode compare: %w", err)
	}

	result := coretypes.CompareResult{}
	for _, cm := range resp.Commits {
		result.Commits = append(result.Commits, coretypes.Commit{SHA: cm.SHA, Message: cm.Commit.Message})
	}
	for _, f := range resp.Files {
		result.Files = append(result.Files, coretypes.File{Filename: f.Filename, Status: f.Status})
	}
	return result, nil
}

// ListPRFiles implements Client.
func (c *GHCLIClient) ListPRFiles(ctx context.Context, number int) ([]coretypes.File, error) {
	raw, err := execGHContext(ctx, "api", c.apiPath("pulls/%d/files", number), "--paginate")
	if err != nil {
		return nil, fmt.Errorf("ghclient: list_pr_files %d: %w", number, err)
	}
	var resp []struct {
		Filename string `json:"filename"`
		Status   string `json:"status"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("ghclient: decode pr files %d: %w", number, err)
	}
	files := make([]coretypes.File, 0, len(resp))
	for _, f := range resp {
		files = append(files, coretypes.File{Filename: f.Filename, Status: f.Status})
	}
	return files, nil
}

// AddLabel implements Client.
func (c *GHCLIClient) AddLabel(ctx context.Context, number int, label string) error {
	_, err := execGHContext(ctx, "api", c.apiPath("issues/%d/labels", number), "--method", "POST", "-f", "labels[]="+label)
	if err != nil {
		return fmt.Errorf("ghclient: add_label %s on %d: %w", label, number, err)
	}
	return nil
}

// RemoveLabel implements Client.
func (c *GHCLIClient) RemoveLabel(ctx context.Context, number int, label string) error {
	_, err := execGHContext(ctx, "api", c.apiPath("issues/%d/labels/%s", number, label), "--method", "DELETE")
	if err != nil {
		return fmt.Errorf("ghclient: remove_label %s on %d: %w", label, number, err)
	}
	return nil
}

// UpsertComment implements Client's idempotent upsert: list comments,
// find one whose body carries markerPrefix, update it if its body
// differs from the desired body, or create a new one if none exists.
func (c *GHCLIClient) UpsertComment(ctx context.Context, number int, markerPrefix string, body string) (string, bool, error) {
	comments, err := c.ListPRComments(ctx, number)
	if err != nil {
		return "", false, err
	}

	for _, cm := range comments {
		if !strings.Contains(cm.Body, markerPrefix) {
			continue
		}
		if cm.Body == body {
			return cm.ID, false, nil
		}
		if _, err := execGHContext(ctx, "api", c.apiPath("issues/comments/%s", cm.ID), "--method", "PATCH", "-f", "body="+body); err != nil {
			return cm.ID, false, fmt.Errorf("ghclient: update comment %s: %w", cm.ID, err)
		}
		return cm.ID, true, nil
	}

	raw, err := execGHContext(ctx, "api", c.apiPath("issues/%d/comments", number), "--method", "POST", "-f", "body="+body)
	if err != nil {
		return "", false, fmt.Errorf("ghclient: create comment on %d: %w", number, err)
	}
	var created ghCommentResponse
	if err := json.Unmarshal(raw, &created); err != nil {
		return "", true, fmt.Errorf("ghclient: decode created comment: %w", err)
	}
	return strconv.FormatInt(created.ID, 10), true, nil
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
