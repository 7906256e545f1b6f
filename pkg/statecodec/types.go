// Package statecodec implements C2: locating, parsing, rendering, and
// merging the hidden KeepaliveState blob embedded in the core's single
// state comment on a PR. The codec is the only writer of that comment;
// every other component treats the comment body as opaque.
package statecodec

import (
	"encoding/json"

	"github.com/github/keepalive-loop/pkg/logger"
)

var log = logger.New("statecodec:codec")

// Failure is either the zero value (no active failure) or a populated
// record. `failure: {}` in a merge explicitly clears it (§4.2).
type Failure struct {
	Reason    string `json:"reason,omitempty"`
	Count     int    `json:"count,omitempty"`
	FirstSeen string `json:"first_seen,omitempty"`
	LastSeen  string `json:"last_seen,omitempty"`
}

// IsZero reports whether the failure record is empty.
func (f Failure) IsZero() bool {
	return f == Failure{}
}

// LastInstruction identifies the most recent agent-addressed comment.
type LastInstruction struct {
	CommentID string `json:"comment_id,omitempty"`
	HeadSHA   string `json:"head_sha,omitempty"`
}

// State is KeepaliveState (§3), the persisted per-PR decision memory.
type State struct {
	TraceID                 string          `json:"trace_id"`
	Iteration               int             `json:"iteration"`
	MaxIterations           int             `json:"max_iterations"`
	FailureThreshold        int             `json:"failure_threshold"`
	Failure                 Failure         `json:"failure"`
	LastHeadSHA             string          `json:"last_head_sha"`
	LastFilesChanged        int             `json:"last_files_changed"`
	LastInstruction         LastInstruction `json:"last_instruction"`
	NeedsTaskReconciliation bool            `json:"needs_task_reconciliation"`
	Version                 string          `json:"version"`

	// Extra preserves JSON keys this codec does not recognize, so a
	// newer writer's fields survive a round trip through an older one.
	Extra map[string]json.RawMessage `json:"-"`
}

// Empty returns the zero state a fresh PR (or a deleted state comment)
// starts from.
func Empty() State {
	return State{Version: ""}
}
