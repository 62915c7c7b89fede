package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/newhook/testnorm/internal/patterns"
)

func TestFrameworks(t *testing.T) {
	reg := patterns.NewRegistry()

	tests := []struct {
		name string
		meta Meta
		want []string
	}{
		{name: "no metadata", meta: Meta{}, want: nil},
		{name: "go kind", meta: Meta{RuleKind: "go_test"}, want: []string{"gotest"}},
		{name: "rust kind is case-insensitive", meta: Meta{RuleKind: "Rust_Test"}, want: []string{"rust", "rust_panic"}},
		{
			name: "cc_test with googletest dep",
			meta: Meta{RuleKind: "cc_test", Deps: []string{"@com_google_googletest//:gtest_main"}},
			want: []string{"gtest"},
		},
		{
			name: "cc_test with several deps keeps dep order",
			meta: Meta{RuleKind: "cc_test", Deps: []string{"//third_party:doctest", "@Unity//:unity"}},
			want: []string{"doctest", "unity"},
		},
		{
			name: "unknown kind falls back to deps",
			meta: Meta{RuleKind: "custom_test", Deps: []string{"@pypi//pytest"}},
			want: []string{"pytest", "pytest_loc", "pytest_summary"},
		},
		{
			name: "cc_test with unrelated deps",
			meta: Meta{RuleKind: "cc_test", Deps: []string{"//lib:math"}},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Frameworks(reg, tt.meta))
		})
	}
}

func TestFrameworks_IgnoresIDsMissingFromRegistry(t *testing.T) {
	reg := patterns.FromDefinitions(patterns.Definition{
		ID: "only", Regex: `^(\w+) ok$`, NameGroup: 1, Status: "PASS",
	})
	assert.Empty(t, Frameworks(reg, Meta{RuleKind: "cc_test", Deps: []string{"gtest"}}))
}

func TestSniffOutput(t *testing.T) {
	reg := patterns.NewRegistry()

	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "pytest banner",
			text: "============ test session starts ============\nplatform linux -- Python 3.12.1, pytest-8.0.0\n",
			want: []string{"pytest", "pytest_loc", "pytest_summary"},
		},
		{name: "unittest", text: "....\nRan 4 tests in 0.002s\n\nOK\n", want: []string{"unittest"}},
		{name: "gtest", text: "[==========] Running 2 tests from 1 test suite.\n", want: []string{"gtest"}},
		{name: "rust", text: "running 3 tests\ntest a ... ok\n", want: []string{"rust", "rust_panic"}},
		{name: "go", text: "=== RUN   TestParse\n--- PASS: TestParse (0.00s)\n", want: []string{"gotest"}},
		{name: "doctest", text: "[doctest] doctest version is \"2.4.11\"\n", want: []string{"doctest"}},
		{name: "nothing", text: "hello world\n", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SniffOutput(reg, tt.text))
		})
	}
}
