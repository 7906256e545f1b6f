// Package keepaliveconfig parses the optional per-PR configuration
// overrides the decision engine reads (§4.6): `keepalive_enabled`,
// `autofix_enabled`, `iteration`, `max_iterations`, `failure_threshold`,
// `trace`. Two forms are accepted inside the PR body — a JSON object
// between `<!-- keepalive-config:start -->`/`:end -->` sentinels, or a
// fenced `key: value` block under a `## Keepalive config` heading —
// and both are validated against the same embedded JSON Schema before
// being handed to the decision engine.
package keepaliveconfig

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/github/keepalive-loop/pkg/constants"
	"github.com/github/keepalive-loop/pkg/logger"
)

var log = logger.New("keepaliveconfig:config")

// Overrides is the parsed keepalive-config block. Every field is a
// pointer so "absent" and "explicitly false/zero" stay distinguishable
// — the decision engine falls back to its own defaults only when the
// pointer is nil.
type Overrides struct {
	KeepaliveEnabled *bool
	AutofixEnabled   *bool
	Iteration        *int
	MaxIterations    *int
	FailureThreshold *int
	Trace            *string
}

var headingRe = regexp.MustCompile(`(?im)^##\s+Keepalive config\s*$`)
var fenceBlockRe = regexp.MustCompile("(?s)```[a-zA-Z]*\n(.*?)\n```")
var inlineCommentRe = regexp.MustCompile(`(^|\s)(#|//).*$`)

// Parse finds and decodes the keepalive-config block in a PR body,
// preferring the JSON sentinel form when both are present. Returns
// zero-value Overrides (all nil) when no block is found. A malformed
// or schema-invalid block is logged and ignored, never fatal — the
// decision engine simply falls back to defaults, consistent with the
// core's "never throws" propagation policy (§7).
func Parse(body string) Overrides {
	if obj, ok := findJSONBlock(body); ok {
		return decode(obj, "json sentinel")
	}
	if obj, ok := findFencedBlock(body); ok {
		return decode(obj, "fenced key:value")
	}
	return Overrides{}
}

func findJSONBlock(body string) (map[string]any, bool) {
	start := strings.Index(body, constants.ConfigBlockStartMarker)
	if start < 0 {
		return nil, false
	}
	jsonStart := start + len(constants.ConfigBlockStartMarker)
	end := strings.Index(body[jsonStart:], constants.ConfigBlockEndMarker)
	if end < 0 {
		log.Print("found keepalive-config start marker with no matching end marker")
		return nil, false
	}
	raw := strings.TrimSpace(body[jsonStart : jsonStart+end])

	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		log.Printf("failed to parse keepalive-config JSON block: %v", err)
		return nil, false
	}
	return obj, true
}

func findFencedBlock(body string) (map[string]any, bool) {
	loc := headingRe.FindStringIndex(body)
	if loc == nil {
		return nil, false
	}
	rest := body[loc[1]:]
	m := fenceBlockRe.FindStringSubmatch(rest)
	if m == nil {
		return nil, false
	}

	cleaned := stripInlineComments(m[1])
	var obj map[string]any
	if err := yaml.Unmarshal([]byte(cleaned), &obj); err != nil {
		log.Printf("failed to parse fenced keepalive-config block: %v", err)
		return nil, false
	}
	return normalizeBooleans(obj), true
}

func stripInlineComments(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = inlineCommentRe.ReplaceAllString(line, "")
	}
	return strings.Join(lines, "\n")
}

// normalizeBooleans rewrites string-valued yes/no/1/0 scalars parsed
// from the fenced form into real booleans, so the same schema
// validates both input forms (§4.6: "booleans accept
// true/false/yes/no/1/0").
func normalizeBooleans(obj map[string]any) map[string]any {
	for k, v := range obj {
		s, ok := v.(string)
		if !ok {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "yes":
			obj[k] = true
		case "false", "no":
			obj[k] = false
		case "1":
			obj[k] = true
		case "0":
			obj[k] = false
		}
	}
	return obj
}

func decode(obj map[string]any, source string) Overrides {
	if err := validate(obj); err != nil {
		log.Printf("rejecting keepalive-config block from %s: %v", source, err)
		return Overrides{}
	}

	var out Overrides
	if v, ok := obj["keepalive_enabled"].(bool); ok {
		out.KeepaliveEnabled = &v
	}
	if v, ok := obj["autofix_enabled"].(bool); ok {
		out.AutofixEnabled = &v
	}
	if v, ok := asInt(obj["iteration"]); ok {
		out.Iteration = &v
	}
	if v, ok := asInt(obj["max_iterations"]); ok {
		out.MaxIterations = &v
	}
	if v, ok := asInt(obj["failure_threshold"]); ok {
		out.FailureThreshold = &v
	}
	if v, ok := obj["trace"].(string); ok {
		out.Trace = &v
	}
	return out
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}
