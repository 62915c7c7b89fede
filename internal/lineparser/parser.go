// Package lineparser recovers individual test cases from raw, interleaved
// stdout/stderr text using the grammars in a pattern registry.
package lineparser

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/newhook/testnorm/internal/patterns"
	"github.com/newhook/testnorm/internal/testcase"
)

// Options control a single parse.
type Options struct {
	// Target is the owning target identifier stamped on every case.
	Target string
	// Allowed restricts matching to these pattern ids. Empty means the
	// full registry. Unknown ids are ignored; if none are known the parse
	// matches nothing and the caller is expected to retry unrestricted.
	Allowed []string
}

// Parser scans raw test output line by line.
type Parser struct {
	registry *patterns.Registry
}

// New returns a parser over the given registry.
func New(registry *patterns.Registry) *Parser {
	return &Parser{registry: registry}
}

// Registry returns the registry the parser matches against.
func (p *Parser) Registry() *patterns.Registry {
	return p.registry
}

// CleanLines splits text into lines with carriage returns and terminal
// escape sequences removed.
func CleanLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = ansi.Strip(strings.TrimRight(line, "\r"))
	}
	return lines
}

// Parse extracts cases and a summary from raw output. It never fails:
// empty or unrecognizable input yields an empty result.
func (p *Parser) Parse(text string, opts Options) *testcase.Result {
	if strings.TrimSpace(text) == "" {
		return testcase.Empty()
	}

	lines := CleanLines(text)
	candidates := p.registry.Subset(opts.Allowed)
	if len(opts.Allowed) > 0 && len(candidates) == 0 {
		return testcase.Empty()
	}

	c := newCollector(opts.Target)
	machines := newStateMachines(candidates, c)

	for i, line := range lines {
		consumed := false
		for _, m := range machines {
			if m.feed(i, line) {
				consumed = true
				break
			}
		}
		if consumed {
			continue
		}
		if tc, ok := matchLongest(candidates, line); ok {
			c.emit(tc)
		}
	}
	for _, m := range machines {
		m.flush()
	}

	for _, m := range machines {
		if pt, ok := m.(*panicTracker); ok {
			pt.correlate(lines)
		}
	}

	result := &testcase.Result{Cases: c.cases}
	if result.Cases == nil {
		result.Cases = []testcase.Case{}
	}
	result.Tally()
	applySummary(result, strings.Join(lines, "\n"))
	return result
}

// matchLongest evaluates every candidate against line and builds a case from
// the match whose matched substring is longest. Ties keep the earlier
// pattern.
func matchLongest(candidates []patterns.Pattern, line string) (testcase.Case, bool) {
	best := -1
	bestLen := -1
	var bestLoc []int
	for i, p := range candidates {
		loc := p.Regex.FindStringSubmatchIndex(line)
		if loc == nil {
			continue
		}
		if n := loc[1] - loc[0]; n > bestLen {
			best, bestLen, bestLoc = i, n, loc
		}
	}
	if best < 0 {
		return testcase.Case{}, false
	}
	return buildCase(candidates[best], line, bestLoc)
}

// MatchLine reports which pattern, if any, wins the longest-match rule for a
// single cleaned line.
func MatchLine(candidates []patterns.Pattern, line string) (testcase.Case, bool) {
	return matchLongest(candidates, ansi.Strip(line))
}

func group(line string, loc []int, idx int) string {
	if idx <= 0 || 2*idx+1 >= len(loc) || loc[2*idx] < 0 {
		return ""
	}
	return strings.TrimSpace(line[loc[2*idx]:loc[2*idx+1]])
}

func buildCase(p patterns.Pattern, line string, loc []int) (testcase.Case, bool) {
	f := p.Fields
	name := group(line, loc, f.Name)
	if name == "" {
		return testcase.Case{}, false
	}

	tc := testcase.Case{
		Name:      name,
		File:      group(line, loc, f.File),
		Message:   group(line, loc, f.Message),
		Suite:     group(line, loc, f.Suite),
		Class:     group(line, loc, f.Class),
		Framework: p.ID,
	}
	if n, err := strconv.Atoi(group(line, loc, f.Line)); err == nil {
		tc.Line = n
	}

	switch raw := group(line, loc, f.Status); {
	case raw != "":
		tc.Status = testcase.NormalizeStatus(raw)
	case p.FixedStatus != "":
		tc.Status = p.FixedStatus
	default:
		tc.Status = testcase.StatusFail
	}

	// Python 3.11+ unittest prints the fully qualified test id as the class.
	tc.Class = strings.TrimSuffix(tc.Class, "."+tc.Name)
	return tc, true
}

// collector accumulates cases in emission order and de-duplicates repeated
// occurrences of the same suite-scoped case.
type collector struct {
	target string
	cases  []testcase.Case
	index  map[string]int
}

func newCollector(target string) *collector {
	return &collector{target: target, index: make(map[string]int)}
}

func dedupKey(tc *testcase.Case) string {
	scope := tc.Scope()
	if scope == "" {
		scope = tc.File
	}
	return testcase.GroupKey(scope, tc.Name)
}

// emit appends tc, or augments the earlier case with the same group key.
// A case without a scope also merges into an earlier scope-less case of the
// same name when their files do not conflict. It returns the index of the
// stored case.
func (c *collector) emit(tc testcase.Case) int {
	tc.Target = c.target
	tc.Group = dedupKey(&tc)
	if i, ok := c.index[tc.Group]; ok {
		augment(&c.cases[i], tc)
		return i
	}
	if i := c.unscoped(tc); i >= 0 {
		augment(&c.cases[i], tc)
		return i
	}
	c.index[tc.Group] = len(c.cases)
	c.cases = append(c.cases, tc)
	return len(c.cases) - 1
}

// unscoped returns the index of an earlier scope-less case with the same
// name and a compatible file, or -1.
func (c *collector) unscoped(tc testcase.Case) int {
	if tc.Scope() != "" {
		return -1
	}
	for i := len(c.cases) - 1; i >= 0; i-- {
		prev := &c.cases[i]
		if prev.Scope() != "" || !strings.EqualFold(prev.Name, tc.Name) {
			continue
		}
		if prev.File == "" || tc.File == "" || prev.File == tc.File {
			return i
		}
	}
	return -1
}

// lastByName returns the index of the most recently emitted case named name.
func (c *collector) lastByName(name string) int {
	for i := len(c.cases) - 1; i >= 0; i-- {
		if c.cases[i].Name == name {
			return i
		}
	}
	return -1
}

// augment backfills empty fields of dst from src. A failing status replaces
// a passing or skipped one.
func augment(dst *testcase.Case, src testcase.Case) {
	switch {
	case dst.File == "" && src.File != "":
		dst.File = src.File
		if dst.Line <= 0 {
			dst.Line = src.Line
		}
	case dst.Line <= 0 && (src.File == "" || src.File == dst.File):
		dst.Line = src.Line
	}
	if dst.Message == "" {
		dst.Message = src.Message
	}
	if dst.Suite == "" {
		dst.Suite = src.Suite
	}
	if dst.Class == "" {
		dst.Class = src.Class
	}
	if dst.Framework == "" {
		dst.Framework = src.Framework
	}
	if failing(src.Status) && !failing(dst.Status) {
		dst.Status = src.Status
	}
}

func failing(s testcase.Status) bool {
	return s == testcase.StatusFail || s == testcase.StatusTimeout
}
