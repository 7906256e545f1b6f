// Package errclass implements C4: reducing an external call's exit code
// and message to a typed error category plus a short human recovery
// hint, used both by the effects layer's threshold bookkeeping and by
// the rendered status comment.
package errclass

import "strings"

// Category is one of the error classes from §4.4 / §7.
type Category string

const (
	Transient      Category = "transient"
	Auth           Category = "auth"
	Resource       Category = "resource"
	Logic          Category = "logic"
	Infrastructure Category = "infrastructure"
	Unknown        Category = "unknown"
)

// CountsTowardThreshold reports whether this category increments the
// failure threshold counter. Only transient errors are exempt — every
// other category (including unknown) counts as a real failure (§7).
func (c Category) CountsTowardThreshold() bool {
	return c != Transient
}

// Classification is the classifier's full output: the category plus a
// fixed recovery hint shown to the operator.
type Classification struct {
	Category     Category
	RecoveryHint string
}

var transientNeedles = []string{
	"enotfound", "econnreset", "etimedout", "socket hang up",
	"rate limit", "timed out",
}

var authNeedles = []string{
	"bad credentials", "unauthorized", "http 401", "401 unauthorized",
}

var resourceNeedles = []string{
	"repository not found", "missing permission",
}

var logicNeedles = []string{
	"validation failed", "http 422", "invalid request",
	"i cannot", "i can't comply", "i won't",
}

var infrastructureNeedles = []string{
	"setup failure", "installation failed", "install failed", "environment setup",
}

// Classify reduces an (exit code, message) pair, plus an optional
// runner-assigned stage tag, to a Classification. The stage tag is how
// the caller flags an infrastructure (setup/install) failure that
// carries no matching string (§4.4's "anything tagged by the runner as
// a setup or installation failure").
func Classify(exitCode int, message string, runnerStage string) Classification {
	lower := strings.ToLower(message)
	lowerStage := strings.ToLower(runnerStage)

	if lowerStage == "setup" || lowerStage == "install" || containsAny(lower, infrastructureNeedles) {
		return Classification{Infrastructure, "Check the runner setup/install step logs; re-run once the environment issue is fixed."}
	}
	if containsAny(lower, transientNeedles) || isServerError(lower) {
		return Classification{Transient, "Transient failure; the next round will retry automatically."}
	}
	if containsAny(lower, authNeedles) {
		return Classification{Auth, "Credentials are invalid or expired; the operator must refresh them."}
	}
	if strings.Contains(lower, "not found") && looksLikeWriteFailure(lower) {
		return Classification{Resource, "The target resource is missing or the token lacks permission; check repository access."}
	}
	if containsAny(lower, resourceNeedles) {
		return Classification{Resource, "The target resource is missing or the token lacks permission; check repository access."}
	}
	if containsAny(lower, logicNeedles) {
		return Classification{Logic, "The agent's output was invalid or refused; rephrase the instructions or intervene manually."}
	}
	return Classification{Unknown, "Unrecognized failure; inspect the run log manually."}
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

func isServerError(lower string) bool {
	for _, code := range []string{"http 500", "http 502", "http 503", "http 504", "50x"} {
		if strings.Contains(lower, code) {
			return true
		}
	}
	return false
}

// looksLikeWriteFailure reports whether the message carries a 404. The
// classifier sees only the message text, not whether the call was a
// write, so a "not found" message with any 404 in it, read or write,
// classifies as Resource.
func looksLikeWriteFailure(lower string) bool {
	return strings.Contains(lower, "http 404") || strings.Contains(lower, "404")
}
