package testcase

import "strings"

// statusTokens maps every raw status token recognized by a built-in grammar
// (lowercased) to its normalized status.
var statusTokens = map[string]Status{
	"pass":    StatusPass,
	"passed":  StatusPass,
	"ok":      StatusPass,
	"p":       StatusPass,
	"success": StatusPass,
	"✔":       StatusPass,
	"✓":       StatusPass,
	"xpass":   StatusPass,
	"flaky":   StatusPass,

	"fail":        StatusFail,
	"failed":      StatusFail,
	"failure":     StatusFail,
	"error":       StatusFail,
	"errors":      StatusFail,
	"f":           StatusFail,
	"e":           StatusFail,
	"fatal":       StatusFail,
	"fatal error": StatusFail,
	"✘":           StatusFail,
	"✗":           StatusFail,
	"***failed":   StatusFail,
	"ko":          StatusFail,

	"timeout":    StatusTimeout,
	"timed out":  StatusTimeout,
	"***timeout": StatusTimeout,

	"skip":             StatusSkip,
	"skipped":          StatusSkip,
	"ignore":           StatusSkip,
	"ignored":          StatusSkip,
	"xfail":            StatusSkip,
	"expected failure": StatusSkip,
	"↷":                StatusSkip,
	"not run":          StatusSkip,
	"no status":        StatusSkip,
	"disabled":         StatusSkip,
	"***skipped":       StatusSkip,
	"***not run":       StatusSkip,
}

// NormalizeStatus maps a raw framework status token to a Status.
// Unrecognized tokens map to FAIL.
func NormalizeStatus(raw string) Status {
	key := strings.ToLower(strings.TrimSpace(raw))
	if s, ok := statusTokens[key]; ok {
		return s
	}
	// Status words sometimes carry trailing detail, e.g. "skipped 'reason'".
	if i := strings.IndexAny(key, " :("); i > 0 {
		if s, ok := statusTokens[key[:i]]; ok {
			return s
		}
	}
	return StatusFail
}

// KnownStatusToken reports whether raw is a recognized status token.
func KnownStatusToken(raw string) bool {
	_, ok := statusTokens[strings.ToLower(strings.TrimSpace(raw))]
	return ok
}
