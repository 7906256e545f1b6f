// Package orchestrator implements C8: the one component that actually
// drives a PR through one evaluate/update-summary/mark-running/
// reconcile invocation, composing C1-C7 against a live ghclient.Client.
// It owns the retry discipline (§5) and the invocation-level timeout;
// the C1-C7 packages it composes perform no I/O of their own.
package orchestrator

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"github.com/github/keepalive-loop/pkg/checklist"
	"github.com/github/keepalive-loop/pkg/civerdict"
	"github.com/github/keepalive-loop/pkg/constants"
	"github.com/github/keepalive-loop/pkg/coretypes"
	"github.com/github/keepalive-loop/pkg/decision"
	"github.com/github/keepalive-loop/pkg/effects"
	"github.com/github/keepalive-loop/pkg/errclass"
	"github.com/github/keepalive-loop/pkg/ghclient"
	"github.com/github/keepalive-loop/pkg/keepaliveconfig"
	"github.com/github/keepalive-loop/pkg/logger"
	"github.com/github/keepalive-loop/pkg/metrics"
	"github.com/github/keepalive-loop/pkg/statecodec"
	"github.com/github/keepalive-loop/pkg/taskmatch"
)

var log = logger.New("orchestrator:evaluate")

// Orchestrator wires a ghclient.Client and a metrics.Sink to the pure
// C1-C7 packages and exposes the CLI entry points (§6).
type Orchestrator struct {
	Client         ghclient.Client
	Metrics        metrics.Sink
	GateWorkflowID string
	Now            func() time.Time
}

// New returns an Orchestrator with time.Now as its clock; tests override
// Now directly on the returned value.
func New(client ghclient.Client, sink metrics.Sink, gateWorkflowID string) *Orchestrator {
	return &Orchestrator{Client: client, Metrics: sink, GateWorkflowID: gateWorkflowID, Now: time.Now}
}

// fetchResult bundles the independent reads gathered concurrently at
// the start of Evaluate.
type fetchResult struct {
	comments []coretypes.Comment
	runs     []coretypes.WorkflowRun
	files    []coretypes.File
}

// EvaluateResult is what one evaluate invocation produced, for the CLI
// layer to report and for tests to assert against.
type EvaluateResult struct {
	Decision decision.Decision
	Plan     effects.Plan
	Comment  string
	Skipped  bool
}

// RunInputs is what the caller observed after actually invoking the
// agent for a Run/Fix decision: whether it produced any commits, the
// resulting head SHA, and any failure. UpdateSummary folds this into
// the persisted state the way §4.7's mutation rules describe.
type RunInputs struct {
	HeadSHA      string
	FilesChanged int
	Failed       bool
	ExitCode     int
	ErrorMessage string
	RunnerStage  string
}

// Evaluate runs one full decision cycle for a PR: gather external state
// concurrently, locate and parse the persisted state, classify CI,
// decide, build the next plan, and persist it. It never
// invokes the agent runner itself — that's the caller's job once it
// sees Decision.Action is Run or Fix.
func (o *Orchestrator) Evaluate(ctx context.Context, prNumber int, cfg keepaliveconfig.Overrides) (EvaluateResult, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DefaultInvocationTimeout)
	defer cancel()

	result, err := o.plan(ctx, prNumber, cfg)
	if err != nil {
		return o.syntheticWait(prNumber, err.stage, err.cause), nil
	}

	if err := o.persist(ctx, prNumber, result.Plan); err != nil {
		log.Printf("failed to persist plan for PR %d: %v", prNumber, err)
	}
	o.emitMetrics(prNumber, result.Plan)

	return result, nil
}

// Peek runs the same gather-and-decide path as Evaluate but never
// persists a comment or label mutation; keepalive watch uses it to poll
// a PR's decision without writing to it on every tick.
func (o *Orchestrator) Peek(ctx context.Context, prNumber int, cfg keepaliveconfig.Overrides) (EvaluateResult, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DefaultInvocationTimeout)
	defer cancel()

	result, err := o.plan(ctx, prNumber, cfg)
	if err != nil {
		return o.syntheticWait(prNumber, err.stage, err.cause), nil
	}
	return result, nil
}

// planErr carries which external read failed, for syntheticWait's
// stage label.
type planErr struct {
	stage string
	cause error
}

func (e *planErr) Error() string { return fmt.Sprintf("%s: %v", e.stage, e.cause) }

// plan gathers external state, decides, and builds the next Plan
// without persisting it. Evaluate persists the result; Peek does not.
func (o *Orchestrator) plan(ctx context.Context, prNumber int, cfg keepaliveconfig.Overrides) (EvaluateResult, *planErr) {
	pr, err := o.fetchPR(ctx, prNumber)
	if err != nil {
		return EvaluateResult{}, &planErr{"get_pr", err}
	}
	// With no override flags from the caller, the PR body's
	// keepalive-config block supplies the overrides instead.
	if cfg == (keepaliveconfig.Overrides{}) {
		cfg = keepaliveconfig.Parse(pr.Body)
	}

	fetch, err := o.gatherConcurrently(ctx, prNumber, pr.HeadSHA)
	if err != nil {
		return EvaluateResult{}, &planErr{"gather", err}
	}

	stateComment, hasState := statecodec.Locate(fetch.comments)
	current := statecodec.Empty()
	if hasState {
		current = statecodec.ParseComment(stateComment.Body)
	}
	if current.Version == "" {
		current = freshState(cfg)
	}

	cl := checklist.Parse(pr.Body)
	verdict := civerdict.Classify(fetch.runs, o.GateWorkflowID)

	compare := coretypes.CompareResult{Files: fetch.files}
	toCheck, needsReconciliation := taskmatch.Reconcile(uncheckedTaskTexts(cl), compare)
	current.NeedsTaskReconciliation = needsReconciliation
	if len(toCheck) > 0 {
		cl = applyReconciledChecks(cl, toCheck)
	}

	in := decision.Inputs{
		PR:        pr,
		Checklist: cl,
		State: decision.StateView{
			Iteration:               current.Iteration,
			MaxIterations:           current.MaxIterations,
			FailureThreshold:        current.FailureThreshold,
			NeedsTaskReconciliation: current.NeedsTaskReconciliation,
		},
		CIVerdict:       verdict,
		Config:          cfg,
		ConcurrentRuns:  0,
		PreviousRoundOK: decision.PreviousRound{FilesChanged: current.LastFilesChanged, HadFailure: !current.Failure.IsZero()},
	}
	d := decision.Decide(in)

	plan, err := effects.Build(current, d, effects.Outcome{}, effects.CountsOf(cl), nil, o.Now())
	if err != nil {
		return EvaluateResult{}, &planErr{"build_plan", err}
	}

	return EvaluateResult{Decision: d, Plan: plan, Comment: plan.CommentBody}, nil
}

// UpdateSummary implements §4.8's post-round entry point: fold the
// observed RunInputs from an agent invocation into the persisted state
// and rewrite the status comment, without making a fresh decision (the
// decision that triggered the run already happened in Evaluate).
func (o *Orchestrator) UpdateSummary(ctx context.Context, prNumber int, d decision.Decision, in RunInputs) (EvaluateResult, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DefaultInvocationTimeout)
	defer cancel()

	pr, err := o.fetchPR(ctx, prNumber)
	if err != nil {
		return o.syntheticWait(prNumber, "get_pr", err), nil
	}
	comments, err := o.Client.ListPRComments(ctx, prNumber)
	if err != nil {
		return o.syntheticWait(prNumber, "list_pr_comments", err), nil
	}

	stateComment, hasState := statecodec.Locate(comments)
	current := statecodec.Empty()
	if hasState {
		current = statecodec.ParseComment(stateComment.Body)
	}
	if current.Version == "" {
		current = freshState(keepaliveconfig.Parse(pr.Body))
	}

	cl := checklist.Parse(pr.Body)

	out := effects.Outcome{HeadSHA: in.HeadSHA, FilesChanged: in.FilesChanged, Failed: in.Failed}
	if in.Failed {
		out.ErrClass = errclass.Classify(in.ExitCode, in.ErrorMessage, in.RunnerStage)
	}

	plan, err := effects.Build(current, d, out, effects.CountsOf(cl), nil, o.Now())
	if err != nil {
		return EvaluateResult{}, fmt.Errorf("orchestrator: build plan: %w", err)
	}

	if err := o.persist(ctx, prNumber, plan); err != nil {
		log.Printf("failed to persist plan for PR %d: %v", prNumber, err)
	}
	o.emitMetrics(prNumber, plan)

	return EvaluateResult{Decision: d, Plan: plan, Comment: plan.CommentBody}, nil
}

// MarkRunning records a lightweight "agent is working" indicator: it
// rewrites the status comment with the same persisted state (no
// iteration/failure movement) so operators watching the PR see the
// invocation is in flight before any decision-relevant change lands.
func (o *Orchestrator) MarkRunning(ctx context.Context, prNumber int) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DefaultCallTimeout)
	defer cancel()

	comments, err := o.Client.ListPRComments(ctx, prNumber)
	if err != nil {
		return fmt.Errorf("orchestrator: mark_running: %w", err)
	}
	stateComment, hasState := statecodec.Locate(comments)
	current := statecodec.Empty()
	if hasState {
		current = statecodec.ParseComment(stateComment.Body)
	}

	body, err := statecodec.Render(statecodec.RenderInput{
		State:      current,
		LastAction: "running",
		LastReason: "agent invocation in progress",
	})
	if err != nil {
		return fmt.Errorf("orchestrator: render running comment: %w", err)
	}
	_, _, err = o.Client.UpsertComment(ctx, prNumber, constants.StateCommentMarker, body)
	return err
}

// AutoReconcileTasksResult is autoReconcileTasks's output (§4.8).
type AutoReconcileTasksResult struct {
	Updated      bool
	TasksChecked int
}

// AutoReconcileTasks invokes C5 directly against a base/head comparison,
// independent of a full evaluate cycle; the CLI's reconcile subcommand
// uses this to let an operator re-run reconciliation on demand. It only
// scores: Updated and TasksChecked report how many unchecked tasks reach
// high confidence, and the PR body on GitHub is not rewritten (Client
// has no body-update call).
func (o *Orchestrator) AutoReconcileTasks(ctx context.Context, prNumber int, baseSHA, headSHA string) (AutoReconcileTasksResult, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DefaultCallTimeout)
	defer cancel()

	pr, err := o.fetchPR(ctx, prNumber)
	if err != nil {
		return AutoReconcileTasksResult{}, err
	}
	compare, err := o.Client.Compare(ctx, baseSHA, headSHA)
	if err != nil {
		return AutoReconcileTasksResult{}, fmt.Errorf("orchestrator: compare %s...%s: %w", baseSHA, headSHA, err)
	}

	cl := checklist.Parse(pr.Body)
	toCheck, _ := taskmatch.Reconcile(uncheckedTaskTexts(cl), compare)
	if len(toCheck) == 0 {
		return AutoReconcileTasksResult{Updated: false}, nil
	}
	applyReconciledChecks(cl, toCheck)
	return AutoReconcileTasksResult{Updated: true, TasksChecked: len(toCheck)}, nil
}

func (o *Orchestrator) fetchPR(ctx context.Context, prNumber int) (coretypes.PRSnapshot, error) {
	return o.retryPR(ctx, fmt.Sprintf("get_pr(%d)", prNumber), func(ctx context.Context) (coretypes.PRSnapshot, error) {
		return o.Client.GetPR(ctx, prNumber)
	})
}

func freshState(cfg keepaliveconfig.Overrides) statecodec.State {
	s := statecodec.State{
		Version:          constants.StateSchemaVersion,
		TraceID:          uuid.NewString(),
		MaxIterations:    constants.DefaultMaxIterations,
		FailureThreshold: constants.DefaultFailureThreshold,
	}
	if cfg.MaxIterations != nil {
		s.MaxIterations = *cfg.MaxIterations
	}
	if cfg.FailureThreshold != nil {
		s.FailureThreshold = *cfg.FailureThreshold
	}
	return s
}

func uncheckedTaskTexts(cl checklist.Sections) []string {
	var out []string
	for _, item := range cl.Tasks {
		if !item.Checked {
			out = append(out, item.Text)
		}
	}
	return out
}

func applyReconciledChecks(cl checklist.Sections, toCheck map[string]bool) checklist.Sections {
	for i, item := range cl.Tasks {
		if toCheck[item.Text] {
			cl.Tasks[i].Checked = true
		}
	}
	return cl
}

// gatherConcurrently fetches comments, CI runs, and changed files in
// parallel using a bounded conc pool: each fetch is its own goroutine,
// the pool enforces a max concurrency, and context cancellation stops
// every in-flight fetch.
func (o *Orchestrator) gatherConcurrently(ctx context.Context, prNumber int, headSHA string) (fetchResult, error) {
	type namedErr struct {
		key string
		err error
	}

	p := pool.NewWithResults[namedErr]().WithContext(ctx).WithMaxGoroutines(3)

	var result fetchResult

	p.Go(func(ctx context.Context) (namedErr, error) {
		comments, err := o.Client.ListPRComments(ctx, prNumber)
		if err == nil {
			result.comments = comments
		}
		return namedErr{key: "list_pr_comments", err: err}, nil
	})
	p.Go(func(ctx context.Context) (namedErr, error) {
		runs, err := o.Client.ListRuns(ctx, "", headSHA)
		if err == nil {
			result.runs = runs
		}
		return namedErr{key: "list_runs", err: err}, nil
	})
	p.Go(func(ctx context.Context) (namedErr, error) {
		files, err := o.Client.ListPRFiles(ctx, prNumber)
		if err == nil {
			result.files = files
		}
		return namedErr{key: "list_pr_files", err: err}, nil
	})

	outcomes, err := p.Wait()
	if err != nil {
		return fetchResult{}, err
	}
	for _, oc := range outcomes {
		if oc.err != nil {
			return fetchResult{}, fmt.Errorf("orchestrator: fetch %s: %w", oc.key, oc.err)
		}
	}
	return result, nil
}

// persist writes the plan's comment body back via an idempotent upsert
// and applies any label mutations; an identical comment body is never
// rewritten, per ghclient.UpsertComment's own text-compare
// short-circuit.
func (o *Orchestrator) persist(ctx context.Context, prNumber int, plan effects.Plan) error {
	_, err := o.retryString(ctx, "upsert_comment", func(ctx context.Context) (string, error) {
		id, _, err := o.Client.UpsertComment(ctx, prNumber, constants.StateCommentMarker, plan.CommentBody)
		return id, err
	})
	if err != nil {
		return err
	}
	for _, m := range plan.Labels {
		if m.Add {
			if err := o.Client.AddLabel(ctx, prNumber, m.Label); err != nil {
				log.Printf("failed to add label %s on PR %d: %v", m.Label, prNumber, err)
			}
		} else {
			if err := o.Client.RemoveLabel(ctx, prNumber, m.Label); err != nil {
				log.Printf("failed to remove label %s on PR %d: %v", m.Label, prNumber, err)
			}
		}
	}
	return nil
}

func (o *Orchestrator) emitMetrics(prNumber int, plan effects.Plan) {
	if o.Metrics == nil {
		return
	}
	rec := metrics.Record{
		PRNumber:       prNumber,
		IterationAfter: plan.NextState.Iteration,
		Action:         plan.Metrics.Action,
		Reason:         plan.Metrics.Reason,
		ErrorCategory:  plan.Metrics.ErrorCategory,
		Timestamp:      o.Now().UTC().Format(time.RFC3339),
	}
	if err := o.Metrics.Emit(rec); err != nil {
		log.Printf("failed to emit metrics record: %v", err)
	}
}

// syntheticWait is §7's fallback: when an external read keeps failing
// past the retry budget, the orchestrator synthesizes a "wait" decision
// rather than propagating the error to the caller and leaving the PR's
// state comment stale.
func (o *Orchestrator) syntheticWait(prNumber int, stage string, cause error) EvaluateResult {
	cls := errclass.Classify(0, cause.Error(), "")
	log.Printf("synthetic wait for PR %d at stage %s: %v (category=%s)", prNumber, stage, cause, cls.Category)
	return EvaluateResult{Decision: decision.Decision{Action: decision.Wait, Reason: "effects-failed"}, Skipped: true}
}

// retryPR runs fn with the same backoff/classification discipline as
// retryString, for calls that return a PRSnapshot instead of a string.
func (o *Orchestrator) retryPR(ctx context.Context, label string, fn func(ctx context.Context) (coretypes.PRSnapshot, error)) (coretypes.PRSnapshot, error) {
	delay := constants.RetryBaseDelay
	for {
		callCtx, cancel := context.WithTimeout(ctx, constants.DefaultCallTimeout)
		val, err := fn(callCtx)
		cancel()
		if err == nil {
			return val, nil
		}
		if errclass.Classify(0, err.Error(), "").Category != errclass.Transient {
			return coretypes.PRSnapshot{}, err
		}
		delay = waitWithBackoff(ctx, label, delay, err)
		if delay == 0 {
			return coretypes.PRSnapshot{}, ctx.Err()
		}
	}
}

// retryString runs fn with exponential backoff plus jitter (§5),
// retrying only while the error classifies as Transient; any other
// classification returns immediately.
func (o *Orchestrator) retryString(ctx context.Context, label string, fn func(ctx context.Context) (string, error)) (string, error) {
	delay := constants.RetryBaseDelay
	for {
		callCtx, cancel := context.WithTimeout(ctx, constants.DefaultCallTimeout)
		val, err := fn(callCtx)
		cancel()
		if err == nil {
			return val, nil
		}
		if errclass.Classify(0, err.Error(), "").Category != errclass.Transient {
			return "", err
		}
		delay = waitWithBackoff(ctx, label, delay, err)
		if delay == 0 {
			return "", ctx.Err()
		}
	}
}

// waitWithBackoff sleeps for delay plus jitter, bounded by
// RetryMaxDelay, and returns the next delay to use, or 0 if ctx was
// cancelled while waiting.
func waitWithBackoff(ctx context.Context, label string, delay time.Duration, cause error) time.Duration {
	if delay > constants.RetryMaxDelay {
		delay = constants.RetryMaxDelay
	}
	jitterSpan := int64(float64(delay) * constants.RetryJitterRatio)
	jittered := delay
	if jitterSpan > 0 {
		jittered += time.Duration(rand.Int63n(jitterSpan))
	}
	log.Printf("%s: transient error, retrying in %s: %v", label, jittered, cause)
	select {
	case <-ctx.Done():
		return 0
	case <-time.After(jittered):
	}
	return time.Duration(float64(delay) * constants.RetryFactor)
}
