package statecodec

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/github/keepalive-loop/pkg/constants"
	"github.com/github/keepalive-loop/pkg/coretypes"
)

// knownKeys lists every top-level JSON field this codec understands.
// Anything else round-trips through State.Extra untouched.
func knownKeys() map[string]bool {
	return map[string]bool{
		"trace_id":                  true,
		"iteration":                 true,
		"max_iterations":            true,
		"failure_threshold":         true,
		"failure":                   true,
		"last_head_sha":             true,
		"last_files_changed":        true,
		"last_instruction":          true,
		"needs_task_reconciliation": true,
		"version":                   true,
	}
}

// Locate finds the canonical state comment among all of a PR's comments,
// by exact sentinel prefix. If more than one carries the sentinel
// (racing deployments, §9 open question), the oldest wins and the rest
// are ignored. Returns ok=false when no comment carries the sentinel.
func Locate(comments []coretypes.Comment) (coretypes.Comment, bool) {
	var candidates []coretypes.Comment
	for _, c := range comments {
		if strings.Contains(c.Body, constants.StateBlobPrefix) {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		return coretypes.Comment{}, false
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if !candidates[i].CreatedAt.Equal(candidates[j].CreatedAt) {
			return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
		}
		return candidates[i].ID < candidates[j].ID
	})
	if len(candidates) > 1 {
		log.Printf("found %d state comments, oldest wins (id=%s)", len(candidates), candidates[0].ID)
	}
	return candidates[0], true
}

// ExtractBlob pulls the raw JSON text out of a comment body, between the
// sentinel prefix and suffix. ok is false when the sentinel is absent or
// malformed (no closing suffix found).
func ExtractBlob(body string) (raw []byte, ok bool) {
	start := strings.Index(body, constants.StateBlobPrefix)
	if start < 0 {
		return nil, false
	}
	jsonStart := start + len(constants.StateBlobPrefix)
	end := strings.Index(body[jsonStart:], constants.StateBlobSuffix)
	if end < 0 {
		return nil, false
	}
	return []byte(strings.TrimSpace(body[jsonStart : jsonStart+end])), true
}

// ParseComment locates the blob inside a full comment body and parses
// it. Returns Empty() when the comment carries no sentinel or a
// malformed/unknown-version blob — parsing never fails the caller.
func ParseComment(body string) State {
	raw, ok := ExtractBlob(body)
	if !ok {
		return Empty()
	}
	return Parse(raw)
}

// Parse decodes a raw JSON state blob. On any parse failure, or when
// the version tag doesn't match the one this codec accepts, it logs and
// returns an empty state rather than guessing at the shape (§4.2, §7).
func Parse(raw []byte) State {
	var generic map[string]json.RawMessage
	if err := json.Unmarshal(raw, &generic); err != nil {
		log.Printf("failed to parse state blob: %v", err)
		return Empty()
	}

	version := ""
	if v, ok := generic["version"]; ok {
		_ = json.Unmarshal(v, &version)
	}
	if version != constants.StateSchemaVersion {
		log.Printf("rejecting state blob with unknown-state-version %q", version)
		return Empty()
	}

	var s State
	if err := json.Unmarshal(raw, &s); err != nil {
		log.Printf("failed to parse state blob: %v", err)
		return Empty()
	}

	known := knownKeys()
	extra := map[string]json.RawMessage{}
	for k, v := range generic {
		if !known[k] {
			extra[k] = v
		}
	}
	s.Extra = extra
	return s
}

// MarshalBlob renders State back to the deterministic JSON form the
// sentinel carries: known fields, plus unrecognized Extra fields whose
// names don't clash with a known one, serialized with alphabetically sorted keys
// (encoding/json's map behavior) so repeated renders of the same state
// are byte-identical.
func (s State) MarshalBlob() ([]byte, error) {
	m := map[string]json.RawMessage{}
	fields := map[string]any{
		"trace_id":                  s.TraceID,
		"iteration":                 s.Iteration,
		"max_iterations":            s.MaxIterations,
		"failure_threshold":         s.FailureThreshold,
		"failure":                   s.Failure,
		"last_head_sha":             s.LastHeadSHA,
		"last_files_changed":        s.LastFilesChanged,
		"last_instruction":          s.LastInstruction,
		"needs_task_reconciliation": s.NeedsTaskReconciliation,
		"version":                   s.Version,
	}
	for k, v := range fields {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("statecodec: marshal field %s: %w", k, err)
		}
		m[k] = b
	}
	for k, v := range s.Extra {
		if _, exists := m[k]; exists {
			continue
		}
		m[k] = v
	}
	return json.Marshal(m)
}

// Update applies a shallow-merge patch to the current state, per §4.2's
// update semantics: object-valued fields (failure, last_instruction) are
// spread key-by-key; everything else overwrites. An explicit empty
// object patch for "failure" (`{}`) clears the failure record rather
// than being a no-op spread — the one deliberate exception to "spread
// merges keep what the patch doesn't mention".
func Update(current State, patch []byte) (State, error) {
	var patchMap map[string]json.RawMessage
	if err := json.Unmarshal(patch, &patchMap); err != nil {
		return current, fmt.Errorf("statecodec: invalid patch: %w", err)
	}

	currentBlob, err := current.MarshalBlob()
	if err != nil {
		return current, err
	}
	var result map[string]json.RawMessage
	if err := json.Unmarshal(currentBlob, &result); err != nil {
		return current, err
	}

	for key, val := range patchMap {
		switch key {
		case "failure":
			merged, err := mergeFailure(result["failure"], val)
			if err != nil {
				return current, fmt.Errorf("statecodec: merge failure: %w", err)
			}
			result["failure"] = merged
		case "last_instruction":
			merged, err := mergeShallowObject(result["last_instruction"], val)
			if err != nil {
				return current, fmt.Errorf("statecodec: merge last_instruction: %w", err)
			}
			result["last_instruction"] = merged
		default:
			result[key] = val
		}
	}

	merged, err := json.Marshal(result)
	if err != nil {
		return current, err
	}
	next := Parse(merged)
	// Parse rejects on a missing/mismatched version tag; a patch rarely
	// names one, so carry the current version forward when absent.
	if _, patched := patchMap["version"]; !patched {
		next.Version = current.Version
	}
	return next, nil
}

// mergeFailure implements the "{} explicitly clears" exception.
func mergeFailure(current, patch json.RawMessage) (json.RawMessage, error) {
	var patchMap map[string]any
	if len(patch) > 0 {
		if err := json.Unmarshal(patch, &patchMap); err != nil {
			return nil, err
		}
	}
	if len(patchMap) == 0 {
		return json.Marshal(Failure{})
	}
	return mergeShallowObject(current, patch)
}

func mergeShallowObject(current, patch json.RawMessage) (json.RawMessage, error) {
	var patchMap map[string]any
	if len(patch) > 0 {
		if err := json.Unmarshal(patch, &patchMap); err != nil {
			return nil, err
		}
	}
	curMap := map[string]any{}
	if len(current) > 0 {
		_ = json.Unmarshal(current, &curMap)
	}
	if curMap == nil {
		curMap = map[string]any{}
	}
	for k, v := range patchMap {
		curMap[k] = v
	}
	return json.Marshal(curMap)
}
