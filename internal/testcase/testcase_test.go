package testcase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		raw      string
		expected Status
	}{
		{"PASS", StatusPass},
		{"PASSED", StatusPass},
		{"ok", StatusPass},
		{"✔", StatusPass},
		{"FAIL", StatusFail},
		{"FAILURE", StatusFail},
		{"ERROR", StatusFail},
		{"***Failed", StatusFail},
		{"FATAL ERROR", StatusFail},
		{"TIMEOUT", StatusTimeout},
		{"***Timeout", StatusTimeout},
		{"IGNORE", StatusSkip},
		{"ignored", StatusSkip},
		{"SKIPPED", StatusSkip},
		{"skipped 'not on linux'", StatusSkip},
		{"expected failure", StatusSkip},
		{"Not Run", StatusSkip},
		{"banana", StatusFail},
		{"", StatusFail},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeStatus(tt.raw))
		})
	}
}

func TestNormalizeStatus_EveryKnownTokenIsTotal(t *testing.T) {
	valid := map[Status]bool{StatusPass: true, StatusFail: true, StatusTimeout: true, StatusSkip: true}
	for token := range statusTokens {
		require.True(t, valid[NormalizeStatus(token)], "token %q", token)
		require.True(t, KnownStatusToken(token))
	}
}

func TestResult_Tally(t *testing.T) {
	r := &Result{Cases: []Case{
		{Name: "a", Status: StatusPass},
		{Name: "b", Status: StatusFail},
		{Name: "c", Status: StatusTimeout},
		{Name: "d", Status: StatusSkip},
	}}
	r.Tally()

	assert.Equal(t, Summary{Total: 4, Passed: 1, Failed: 2, Ignored: 1}, r.Summary)
}

func TestResult_SetSummary(t *testing.T) {
	r := Empty()
	r.SetSummary(38, 1, 2)
	assert.Equal(t, Summary{Total: 38, Passed: 35, Failed: 1, Ignored: 2}, r.Summary)

	// Inconsistent counts are clamped so the invariant still holds.
	r.SetSummary(2, 3, 1)
	s := r.Summary
	assert.Equal(t, s.Total, s.Passed+s.Failed+s.Ignored)
}

func TestGroupKey(t *testing.T) {
	assert.Equal(t, "mathtest::testadd", GroupKey("MathTest", "testAdd"))
	c := Case{Name: "x", Class: "pkg.Cls"}
	assert.Equal(t, "pkg.Cls", c.Scope())
	c.Suite = "S"
	assert.Equal(t, "S", c.Scope())
}

func TestResult_Clone(t *testing.T) {
	r := &Result{Cases: []Case{{Name: "a"}}}
	cp := r.Clone()
	cp.Cases[0].Name = "b"
	assert.Equal(t, "a", r.Cases[0].Name)
	assert.True(t, (*Result)(nil).IsEmpty())
}
