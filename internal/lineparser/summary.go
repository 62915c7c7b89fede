package lineparser

import (
	"regexp"
	"strconv"

	"github.com/newhook/testnorm/internal/logging"
	"github.com/newhook/testnorm/internal/testcase"
)

var (
	genericSummary = regexp.MustCompile(`(?m)^\s*(\d+) Tests? (\d+) Failures? (\d+) Ignored`)

	unittestRan    = regexp.MustCompile(`(?m)^Ran (\d+) tests? in `)
	unittestStatus = regexp.MustCompile(`(?m)^(OK|FAILED)(?: \(([^)]*)\))?\s*$`)
	unittestCount  = regexp.MustCompile(`(failures|errors|skipped|expected failures|unexpected successes)=(\d+)`)

	cargoSummary   = regexp.MustCompile(`(?m)^test result: (?:ok|FAILED)\. (\d+) passed; (\d+) failed; (\d+) ignored`)
	pytestSummary  = regexp.MustCompile(`(?m)^=+ (.*?) in [\d.]+s(?: \([^)]*\))? =+\s*$`)
	pytestCount    = regexp.MustCompile(`(\d+) (passed|failed|skipped|errors?|xfailed|xpassed)`)
	doctestSummary = regexp.MustCompile(`\[doctest\] test cases:\s*(\d+)\s*\|\s*(\d+) passed\s*\|\s*(\d+) failed\s*\|\s*(\d+) skipped`)
	gtestRan       = regexp.MustCompile(`(?m)^\[==========\] (\d+) tests? from .*ran`)
	gtestFailed    = regexp.MustCompile(`(?m)^\[  FAILED  \] (\d+) tests?, listed below`)
	gtestSkipped   = regexp.MustCompile(`(?m)^\[  SKIPPED \] (\d+) tests?, listed below`)
	ctestSummary   = regexp.MustCompile(`(\d+)% tests passed, (\d+) tests? failed out of (\d+)`)
	dotnetSummary  = regexp.MustCompile(`Failed:\s*(\d+), Passed:\s*(\d+), Skipped:\s*(\d+), Total:\s*(\d+)`)
)

// counts is an authoritative summary found in the text.
type counts struct {
	total, failed, ignored int
}

// summaryForm extracts counts from the full text, reporting whether the form
// was present.
type summaryForm func(text string) (counts, bool)

// frameworkForms are tried in order; the first present form applies.
var frameworkForms = []summaryForm{
	cargoCounts,
	pytestCounts,
	doctestCounts,
	gtestCounts,
	ctestCounts,
	dotnetCounts,
}

// applySummary overrides the per-line tally with an authoritative summary
// when one is present. A generic "N Tests M Failures K Ignored" line wins,
// then the unittest runner convention, then framework-specific forms.
func applySummary(r *testcase.Result, text string) {
	generic, hasGeneric := genericCounts(text)
	runner, hasRunner := unittestCounts(text)

	switch {
	case hasGeneric:
		if hasRunner {
			logging.Warn("output carries both generic and unittest summaries; using generic",
				"generic_total", generic.total, "unittest_total", runner.total)
		}
		r.SetSummary(generic.total, generic.failed, generic.ignored)
	case hasRunner:
		r.SetSummary(runner.total, runner.failed, runner.ignored)
	default:
		for _, form := range frameworkForms {
			if c, ok := form(text); ok {
				r.SetSummary(c.total, c.failed, c.ignored)
				return
			}
		}
	}
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func lastMatch(re *regexp.Regexp, text string) []string {
	all := re.FindAllStringSubmatch(text, -1)
	if len(all) == 0 {
		return nil
	}
	return all[len(all)-1]
}

func genericCounts(text string) (counts, bool) {
	m := lastMatch(genericSummary, text)
	if m == nil {
		return counts{}, false
	}
	return counts{total: atoi(m[1]), failed: atoi(m[2]), ignored: atoi(m[3])}, true
}

func unittestCounts(text string) (counts, bool) {
	ran := lastMatch(unittestRan, text)
	status := lastMatch(unittestStatus, text)
	if ran == nil || status == nil {
		return counts{}, false
	}
	c := counts{total: atoi(ran[1])}
	for _, kv := range unittestCount.FindAllStringSubmatch(status[2], -1) {
		switch kv[1] {
		case "failures", "errors", "unexpected successes":
			c.failed += atoi(kv[2])
		case "skipped", "expected failures":
			c.ignored += atoi(kv[2])
		}
	}
	return c, true
}

// cargoCounts sums every "test result:" line, one per test binary.
func cargoCounts(text string) (counts, bool) {
	all := cargoSummary.FindAllStringSubmatch(text, -1)
	if len(all) == 0 {
		return counts{}, false
	}
	var c counts
	for _, m := range all {
		passed, failed, ignored := atoi(m[1]), atoi(m[2]), atoi(m[3])
		c.total += passed + failed + ignored
		c.failed += failed
		c.ignored += ignored
	}
	return c, true
}

func pytestCounts(text string) (counts, bool) {
	var c counts
	found := false
	for _, m := range pytestSummary.FindAllStringSubmatch(text, -1) {
		parts := pytestCount.FindAllStringSubmatch(m[1], -1)
		if len(parts) == 0 {
			continue
		}
		c, found = counts{}, true
		for _, p := range parts {
			n := atoi(p[1])
			c.total += n
			switch p[2] {
			case "failed", "error", "errors":
				c.failed += n
			case "skipped", "xfailed":
				c.ignored += n
			}
		}
	}
	return c, found
}

func doctestCounts(text string) (counts, bool) {
	m := lastMatch(doctestSummary, text)
	if m == nil {
		return counts{}, false
	}
	return counts{total: atoi(m[1]), failed: atoi(m[3]), ignored: atoi(m[4])}, true
}

func gtestCounts(text string) (counts, bool) {
	ran := lastMatch(gtestRan, text)
	if ran == nil {
		return counts{}, false
	}
	c := counts{total: atoi(ran[1])}
	if m := lastMatch(gtestFailed, text); m != nil {
		c.failed = atoi(m[1])
	}
	if m := lastMatch(gtestSkipped, text); m != nil {
		c.ignored = atoi(m[1])
	}
	return c, true
}

func ctestCounts(text string) (counts, bool) {
	m := lastMatch(ctestSummary, text)
	if m == nil {
		return counts{}, false
	}
	return counts{total: atoi(m[3]), failed: atoi(m[2])}, true
}

func dotnetCounts(text string) (counts, bool) {
	m := lastMatch(dotnetSummary, text)
	if m == nil {
		return counts{}, false
	}
	return counts{total: atoi(m[4]), failed: atoi(m[1]), ignored: atoi(m[3])}, true
}

// HasSummary reports whether text carries any recognized summary line.
func HasSummary(text string) bool {
	if _, ok := genericCounts(text); ok {
		return true
	}
	if _, ok := unittestCounts(text); ok {
		return true
	}
	for _, form := range frameworkForms {
		if _, ok := form(text); ok {
			return true
		}
	}
	return false
}
