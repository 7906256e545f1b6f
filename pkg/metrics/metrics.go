// Package metrics implements the optional per-invocation NDJSON metrics
// record from §4.7.6 / §6: one record per invocation, sunk either as an
// NDJSON line to a file path or as a fenced JSON block to the GitHub
// Actions step-summary file, so the effects layer never needs to know
// which sink is active. Nothing is written to $GITHUB_OUTPUT.
package metrics

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/github/keepalive-loop/pkg/logger"
)

var log = logger.New("metrics:sink")

// Record is one invocation's metrics line.
type Record struct {
	PRNumber        int    `json:"pr_number"`
	IterationAfter  int    `json:"iteration_after"`
	Action          string `json:"action"`
	Reason          string `json:"reason"`
	ErrorCategory   string `json:"error_category,omitempty"`
	DurationMS      int64  `json:"duration_ms"`
	TasksTotal      int    `json:"tasks_total"`
	TasksComplete   int    `json:"tasks_complete"`
	Timestamp       string `json:"timestamp"`
}

// Sink emits one Record. Implementations must not fail the invocation
// on a write error — metrics are optional and observability never gates
// the core's decision (§9 Observability).
type Sink interface {
	Emit(r Record) error
}

// NoopSink discards every record; used when no METRICS_PATH is set and
// no Actions step-summary is available.
type NoopSink struct{}

// Emit implements Sink.
func (NoopSink) Emit(Record) error { return nil }

// FileSink appends one NDJSON line per record to a file path, creating
// it if absent.
type FileSink struct {
	Path string
}

// Emit implements Sink.
func (s FileSink) Emit(r Record) error {
	f, err := os.OpenFile(s.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("metrics: open %s: %w", s.Path, err)
	}
	defer f.Close()

	line, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("metrics: marshal record: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("metrics: write %s: %w", s.Path, err)
	}
	return nil
}

// StepSummarySink appends a single-line JSON summary to the path named
// by $GITHUB_STEP_SUMMARY, rendered as a fenced json block so it's
// readable in the Actions UI.
type StepSummarySink struct {
	SummaryPath string
}

// Emit implements Sink.
func (s StepSummarySink) Emit(r Record) error {
	if s.SummaryPath == "" {
		return nil
	}
	f, err := os.OpenFile(s.SummaryPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("metrics: open step summary %s: %w", s.SummaryPath, err)
	}
	defer f.Close()

	line, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("metrics: marshal record: %w", err)
	}
	if _, err := fmt.Fprintf(f, "\n```json\n%s\n```\n", line); err != nil {
		return fmt.Errorf("metrics: write step summary: %w", err)
	}
	return nil
}

// ResolveSink picks a sink from the ambient environment: an explicit
// metricsPath argument wins, then $METRICS_PATH, then
// $GITHUB_STEP_SUMMARY, then a no-op.
func ResolveSink(metricsPath string) Sink {
	if metricsPath != "" {
		return FileSink{Path: metricsPath}
	}
	if p := os.Getenv("METRICS_PATH"); p != "" {
		log.Printf("using METRICS_PATH sink: %s", p)
		return FileSink{Path: p}
	}
	if p := os.Getenv("GITHUB_STEP_SUMMARY"); p != "" {
		return StepSummarySink{SummaryPath: p}
	}
	return NoopSink{}
}
