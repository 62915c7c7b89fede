package lineparser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/newhook/testnorm/internal/patterns"
	"github.com/newhook/testnorm/internal/testcase"
)

// stateMachine is a grammar that needs cross-line state. feed reports
// whether the line was consumed; consumed lines are not offered to the
// generic per-line matcher.
type stateMachine interface {
	feed(idx int, line string) bool
	flush()
}

// newStateMachines builds the trackers whose grammars are among candidates.
func newStateMachines(candidates []patterns.Pattern, c *collector) []stateMachine {
	var out []stateMachine
	for _, p := range candidates {
		switch p.ID {
		case "rust_panic":
			out = append(out, &panicTracker{pattern: p, c: c})
		case "unittest":
			out = append(out, &unittestBlock{c: c})
		case "doctest":
			out = append(out, &doctestContext{pattern: p, c: c, current: -1})
		}
	}
	return out
}

// panicTracker associates panic locations with the most recently emitted
// case of the same name and remembers where each panic was seen so its
// assertion detail can be correlated afterwards.
type panicTracker struct {
	pattern patterns.Pattern
	c       *collector
	seen    []panicSite
}

type panicSite struct {
	caseIdx int
	lineIdx int
}

var panicSeparator = regexp.MustCompile(`^(----.*----|failures:|successes:|test result:|note: |stack backtrace:|thread '|error: test failed)`)

func (t *panicTracker) feed(idx int, line string) bool {
	loc := t.pattern.Regex.FindStringSubmatchIndex(line)
	if loc == nil {
		return false
	}
	tc, ok := buildCase(t.pattern, line, loc)
	if !ok {
		return false
	}

	ci := t.c.lastByName(tc.Name)
	if ci >= 0 {
		dst := &t.c.cases[ci]
		if dst.File == "" {
			dst.File, dst.Line = tc.File, tc.Line
		}
		if dst.Message == "" {
			dst.Message = tc.Message
		}
	} else {
		ci = t.c.emit(tc)
	}
	t.seen = append(t.seen, panicSite{caseIdx: ci, lineIdx: idx})
	return true
}

func (t *panicTracker) flush() {}

// correlate attaches the first detail line following each panic, stopping
// at a separator, to cases that still have no message.
func (t *panicTracker) correlate(lines []string) {
	for _, s := range t.seen {
		tc := &t.c.cases[s.caseIdx]
		if tc.Message != "" {
			continue
		}
		for _, line := range lines[s.lineIdx+1:] {
			trimmed := strings.TrimSpace(line)
			if panicSeparator.MatchString(line) {
				break
			}
			if trimmed == "" {
				continue
			}
			tc.Message = trimmed
			break
		}
	}
}

var (
	unittestHeader = regexp.MustCompile(`^(FAIL|ERROR): (\w+) \(([\w.]+)\)`)
	unittestFrame  = regexp.MustCompile(`^\s+File "([^"]+)", line (\d+), in (\S+)`)
	unittestRule   = regexp.MustCompile(`^(=+|-+)$`)
)

// unittestBlock collects a "FAIL: name (suite)" block until a blank line
// flushes it as a failing case.
type unittestBlock struct {
	c        *collector
	pending  *testcase.Case
	message  []string
	inTrace  bool
	ownFrame bool
}

func (u *unittestBlock) feed(_ int, line string) bool {
	if m := unittestHeader.FindStringSubmatch(line); m != nil {
		u.flush()
		u.pending = &testcase.Case{
			Name:      m[2],
			Class:     strings.TrimSuffix(m[3], "."+m[2]),
			Status:    testcase.StatusFail,
			Framework: "unittest",
		}
		return true
	}
	if u.pending == nil {
		return false
	}

	switch {
	case strings.TrimSpace(line) == "":
		// The separator and traceback header precede content; only a blank
		// line after content ends the block.
		if u.inTrace || len(u.message) > 0 {
			u.flush()
		}
	case unittestRule.MatchString(line):
	case strings.HasPrefix(line, "Traceback (most recent call last)"):
		u.inTrace = true
	case unittestFrame.MatchString(line):
		m := unittestFrame.FindStringSubmatch(line)
		// Prefer the frame of the test method itself; otherwise keep the
		// innermost frame seen so far.
		own := m[3] == u.pending.Name
		if own || !u.ownFrame {
			u.pending.File = m[1]
			u.pending.Line, _ = strconv.Atoi(m[2])
		}
		u.ownFrame = u.ownFrame || own
	case strings.HasPrefix(line, " "):
		// source excerpt under a frame
	default:
		u.message = append(u.message, strings.TrimSpace(line))
	}
	return true
}

func (u *unittestBlock) flush() {
	if u.pending == nil {
		return
	}
	tc := *u.pending
	tc.Message = strings.Join(u.message, "\n")
	u.c.emit(tc)
	u.pending, u.message = nil, nil
	u.inTrace, u.ownFrame = false, false
}

var doctestAssertion = regexp.MustCompile(`^(.+?)(?::(\d+)|\((\d+)\)):\s+(?:ERROR|FATAL ERROR):\s+(.*)$`)

// doctestContext labels assertion error lines with the most recent
// "TEST CASE:" context until a new context line appears.
type doctestContext struct {
	pattern patterns.Pattern
	c       *collector
	current int
}

func (d *doctestContext) feed(_ int, line string) bool {
	if loc := d.pattern.Regex.FindStringSubmatchIndex(line); loc != nil {
		tc, ok := buildCase(d.pattern, line, loc)
		if !ok {
			return false
		}
		d.current = d.c.emit(tc)
		return true
	}
	if d.current < 0 {
		return false
	}
	m := doctestAssertion.FindStringSubmatch(line)
	if m == nil {
		return false
	}

	tc := &d.c.cases[d.current]
	lineNo := m[2]
	if lineNo == "" {
		lineNo = m[3]
	}
	if tc.File == "" {
		tc.File = m[1]
		tc.Line, _ = strconv.Atoi(lineNo)
	}
	if tc.Message == "" {
		tc.Message = m[4]
	} else {
		tc.Message += "\n" + m[4]
	}
	return true
}

func (d *doctestContext) flush() {
	d.current = -1
}
