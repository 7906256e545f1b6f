package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/github/keepalive-loop/pkg/coretypes"
	"github.com/github/keepalive-loop/pkg/decision"
	"github.com/github/keepalive-loop/pkg/keepaliveconfig"
	"github.com/github/keepalive-loop/pkg/metrics"
)

type fakeClient struct {
	pr       coretypes.PRSnapshot
	comments []coretypes.Comment
	runs     []coretypes.WorkflowRun
	files    []coretypes.File

	upsertedBody string
	addedLabels  []string
	removed      []string
	compareFn    func() coretypes.CompareResult
}

func (f *fakeClient) GetPR(ctx context.Context, number int) (coretypes.PRSnapshot, error) {
	return f.pr, nil
}
func (f *fakeClient) ListPRComments(ctx context.Context, number int) ([]coretypes.Comment, error) {
	return f.comments, nil
}
func (f *fakeClient) ListRuns(ctx context.Context, workflowID, headSHA string) ([]coretypes.WorkflowRun, error) {
	return f.runs, nil
}
func (f *fakeClient) Compare(ctx context.Context, base, head string) (coretypes.CompareResult, error) {
	if f.compareFn != nil {
		return f.compareFn(), nil
	}
	return coretypes.CompareResult{}, nil
}
func (f *fakeClient) ListPRFiles(ctx context.Context, number int) ([]coretypes.File, error) {
	return f.files, nil
}
func (f *fakeClient) AddLabel(ctx context.Context, number int, label string) error {
	f.addedLabels = append(f.addedLabels, label)
	return nil
}
func (f *fakeClient) RemoveLabel(ctx context.Context, number int, label string) error {
	f.removed = append(f.removed, label)
	return nil
}
func (f *fakeClient) UpsertComment(ctx context.Context, number int, markerPrefix, body string) (string, bool, error) {
	f.upsertedBody = body
	return "comment-1", true, nil
}

func TestEvaluateFirstRoundReady(t *testing.T) {
	client := &fakeClient{
		pr: coretypes.PRSnapshot{
			Number:  1,
			HeadSHA: "sha-1",
			Labels:  []string{"agent:codex"},
			Body:    "## Tasks\n- [ ] implement the thing\n",
		},
		runs: []coretypes.WorkflowRun{
			{WorkflowID: "gate", Conclusion: "success", Status: "completed", HeadSHA: "sha-1"},
		},
	}
	o := New(client, metrics.NoopSink{}, "gate")
	o.Now = func() time.Time { return time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC) }

	res, err := o.Evaluate(context.Background(), 1, keepaliveconfig.Overrides{})
	require.NoError(t, err)
	require.Equal(t, decision.Run, res.Decision.Action)
	require.Equal(t, "ready", res.Decision.Reason)
	require.NotEmpty(t, client.upsertedBody, "expected a comment to be upserted")
}

func TestEvaluateMissingAgentLabelWaits(t *testing.T) {
	client := &fakeClient{
		pr: coretypes.PRSnapshot{Number: 2, HeadSHA: "sha-2", Body: "## Tasks\n- [ ] x\n"},
	}
	o := New(client, metrics.NoopSink{}, "gate")
	res, err := o.Evaluate(context.Background(), 2, keepaliveconfig.Overrides{})
	require.NoError(t, err)
	require.Equal(t, decision.Wait, res.Decision.Action)
	require.Equal(t, "missing-agent-label", res.Decision.Reason)
}

func TestEvaluateTasksCompleteStopsAndPersists(t *testing.T) {
	client := &fakeClient{
		pr: coretypes.PRSnapshot{
			Number:  3,
			HeadSHA: "sha-3",
			Labels:  []string{"agent:codex"},
			Body:    "## Tasks\n- [x] done\n",
		},
	}
	o := New(client, metrics.NoopSink{}, "gate")
	res, err := o.Evaluate(context.Background(), 3, keepaliveconfig.Overrides{})
	require.NoError(t, err)
	require.Equal(t, decision.Stop, res.Decision.Action)
	require.Equal(t, "tasks-complete", res.Decision.Reason)
	require.NotEmpty(t, client.upsertedBody, "expected stop decision to still persist a status comment")
}

func TestPeekDoesNotPersist(t *testing.T) {
	client := &fakeClient{
		pr: coretypes.PRSnapshot{
			Number:  7,
			HeadSHA: "sha-7",
			Labels:  []string{"agent:codex"},
			Body:    "## Tasks\n- [ ] implement the thing\n",
		},
		runs: []coretypes.WorkflowRun{
			{WorkflowID: "gate", Conclusion: "success", Status: "completed", HeadSHA: "sha-7"},
		},
	}
	o := New(client, metrics.NoopSink{}, "gate")
	res, err := o.Peek(context.Background(), 7, keepaliveconfig.Overrides{})
	require.NoError(t, err)
	require.Equal(t, decision.Run, res.Decision.Action)
	require.Empty(t, client.upsertedBody, "expected Peek to never persist a comment")
	require.Empty(t, client.addedLabels, "expected Peek to never add labels")
	require.Empty(t, client.removed, "expected Peek to never remove labels")
}

func TestUpdateSummaryIncrementsIterationOnSuccess(t *testing.T) {
	client := &fakeClient{
		pr: coretypes.PRSnapshot{Number: 4, HeadSHA: "sha-4", Body: "## Tasks\n- [ ] x\n"},
	}
	o := New(client, metrics.NoopSink{}, "gate")
	d := decision.Decision{Action: decision.Run, Reason: "ready"}
	res, err := o.UpdateSummary(context.Background(), 4, d, RunInputs{HeadSHA: "sha-4-new", FilesChanged: 2})
	require.NoError(t, err)
	require.Equal(t, 1, res.Plan.NextState.Iteration)
	require.NotEmpty(t, client.upsertedBody, "expected UpdateSummary to persist a status comment")
}

func TestMarkRunningUpsertsWithoutChangingCounters(t *testing.T) {
	client := &fakeClient{pr: coretypes.PRSnapshot{Number: 5, HeadSHA: "sha-5"}}
	o := New(client, metrics.NoopSink{}, "gate")
	require.NoError(t, o.MarkRunning(context.Background(), 5))
	require.NotEmpty(t, client.upsertedBody, "expected MarkRunning to upsert a comment")
}

func TestAutoReconcileTasksChecksHighConfidenceMatch(t *testing.T) {
	client := &fakeClient{
		pr: coretypes.PRSnapshot{Number: 6, HeadSHA: "sha-6", Body: "## Tasks\n- [ ] implement widget parser\n"},
	}
	client.compareFn = func() coretypes.CompareResult {
		return coretypes.CompareResult{
			Commits: []coretypes.Commit{{SHA: "c1", Message: "implement widget parser"}},
			Files:   []coretypes.File{{Filename: "widget_parser.go", Status: "modified"}},
		}
	}
	o := New(client, metrics.NoopSink{}, "gate")
	res, err := o.AutoReconcileTasks(context.Background(), 6, "base-sha", "sha-6")
	require.NoError(t, err)
	require.True(t, res.Updated)
	require.Equal(t, 1, res.TasksChecked)
}
