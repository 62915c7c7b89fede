// Package testcase defines the canonical result model every parser produces
// and every consumer (rendering, re-run filters, caches) depends on.
package testcase

import "strings"

// Status is the normalized outcome of a single test case.
type Status string

const (
	StatusPass    Status = "PASS"
	StatusFail    Status = "FAIL"
	StatusTimeout Status = "TIMEOUT"
	StatusSkip    Status = "SKIP"
)

// Provenance records where a canonical result came from.
type Provenance string

const (
	// ProvenanceXML means the result was read from a structured JUnit-style report.
	ProvenanceXML Provenance = "xml"
	// ProvenanceOutput means the result was recovered from raw console output.
	ProvenanceOutput Provenance = "output"
	// ProvenanceNone means no result source was available.
	ProvenanceNone Provenance = "none"
)

// Case is one individually nameable test within a target's execution output.
type Case struct {
	Name      string `json:"name"`
	File      string `json:"file,omitempty"`
	Line      int    `json:"line,omitempty"`
	Target    string `json:"target,omitempty"`
	Status    Status `json:"status,omitempty"`
	Message   string `json:"message,omitempty"`
	Suite     string `json:"suite,omitempty"`
	Class     string `json:"class,omitempty"`
	Framework string `json:"framework,omitempty"`
	// Group scopes de-duplication: two occurrences with the same group key
	// describe the same case.
	Group string `json:"group,omitempty"`
}

// HasLocation reports whether both file and a positive line are known.
func (c *Case) HasLocation() bool {
	return c.File != "" && c.Line > 0
}

// Scope returns the suite, falling back to the class.
func (c *Case) Scope() string {
	if c.Suite != "" {
		return c.Suite
	}
	return c.Class
}

// GroupKey is the suite-scoped identity used for de-duplication and merging:
// lowercase(suite-or-class) + "::" + lowercase(name).
func GroupKey(scope, name string) string {
	return strings.ToLower(scope) + "::" + strings.ToLower(name)
}

// Summary holds aggregate counts for a result.
type Summary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Ignored int `json:"ignored"`
}

// Result is an ordered sequence of cases plus a summary.
type Result struct {
	Cases   []Case  `json:"cases"`
	Summary Summary `json:"summary"`
}

// Empty returns a well-formed result with no cases and a zeroed summary.
func Empty() *Result {
	return &Result{Cases: []Case{}}
}

// IsEmpty reports whether the result has no cases.
func (r *Result) IsEmpty() bool {
	return r == nil || len(r.Cases) == 0
}

// Tally recomputes the summary from the cases. TIMEOUT counts as failed.
func (r *Result) Tally() {
	s := Summary{Total: len(r.Cases)}
	for _, c := range r.Cases {
		switch c.Status {
		case StatusPass:
			s.Passed++
		case StatusSkip:
			s.Ignored++
		default:
			s.Failed++
		}
	}
	r.Summary = s
}

// SetSummary applies authoritative counts from a summary line.
// Passed is always derived so that total = passed + failed + ignored.
func (r *Result) SetSummary(total, failed, ignored int) {
	passed := total - failed - ignored
	if passed < 0 {
		passed = 0
		total = failed + ignored
	}
	r.Summary = Summary{Total: total, Passed: passed, Failed: failed, Ignored: ignored}
}

// Clone returns a deep copy of the result.
func (r *Result) Clone() *Result {
	if r == nil {
		return Empty()
	}
	out := &Result{Cases: make([]Case, len(r.Cases)), Summary: r.Summary}
	copy(out.Cases, r.Cases)
	return out
}
