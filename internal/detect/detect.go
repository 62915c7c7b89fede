// Package detect narrows the grammar registry to the frameworks a target is
// likely to use, from its declared metadata or from a sniff of its output.
package detect

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"

	"github.com/newhook/testnorm/internal/patterns"
)

// Meta is the read-only metadata declared for a target.
type Meta struct {
	// RuleKind is the build-system classification, e.g. "cc_test" or "py_test".
	RuleKind string `json:"rule_kind,omitempty"`
	// Deps are the target's declared dependency labels.
	Deps []string `json:"deps,omitempty"`
}

// keyword maps a dependency-label substring to grammar ids or families.
type keyword struct {
	needles  []string
	ids      []string
	families []string
}

// depKeywords is ordered most-specific first.
var depKeywords = []keyword{
	{needles: []string{"googletest", "gtest", "gmock"}, ids: []string{"gtest"}},
	{needles: []string{"doctest"}, ids: []string{"doctest"}},
	{needles: []string{"catch2", "catch"}, ids: []string{"cxx_status"}},
	{needles: []string{"unity", "throwtheswitch"}, ids: []string{"unity"}},
	{needles: []string{"libcheck", "@check"}, ids: []string{"check"}},
	{needles: []string{"ctest"}, ids: []string{"ctest"}},
	{needles: []string{"pytest"}, families: []string{"pytest"}},
	{needles: []string{"unittest"}, ids: []string{"unittest"}},
	{needles: []string{"junit", "jupiter"}, families: []string{"junit"}},
}

// ambiguousKinds are rule kinds whose framework is decided by dependencies.
var ambiguousKinds = map[string]bool{
	"":           true,
	"cc_test":    true,
	"c_test":     true,
	"cpp_test":   true,
	"sh_test":    true,
	"test_suite": true,
}

// Frameworks returns the grammar ids that apply to a target, most specific
// first. An empty result means "unscoped": callers use the full registry.
func Frameworks(reg *patterns.Registry, meta Meta) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(ids ...string) {
		for _, id := range ids {
			if !seen[id] && reg.Contains(id) {
				seen[id] = true
				out = append(out, id)
			}
		}
	}

	kind := strings.ToLower(strings.TrimSpace(meta.RuleKind))
	add(reg.IDsForRuleKind(kind)...)

	if ambiguousKinds[kind] || len(out) == 0 {
		fold := cases.Fold()
		for _, dep := range meta.Deps {
			label := fold.String(dep)
			for _, kw := range depKeywords {
				if !containsAny(label, kw.needles) {
					continue
				}
				add(kw.ids...)
				for _, fam := range kw.families {
					add(reg.IDsForFamily(fam)...)
				}
			}
		}
	}
	return out
}

// containsAny reports whether s contains a needle that is not the tail of a
// longer word, so "doctest" does not imply "ctest".
func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		for from := 0; ; {
			i := strings.Index(s[from:], n)
			if i < 0 {
				break
			}
			at := from + i
			if at == 0 || !isLetter(s[at-1]) {
				return true
			}
			from = at + 1
		}
	}
	return false
}

func isLetter(b byte) bool {
	return b >= 'a' && b <= 'z'
}

// sniffRule recognizes a runner banner in raw output.
type sniffRule struct {
	re       *regexp.Regexp
	ids      []string
	families []string
}

var sniffRules = []sniffRule{
	{re: regexp.MustCompile(`(?m)^platform \S+ -- Python |=+ test session starts =+`), families: []string{"pytest"}},
	{re: regexp.MustCompile(`(?m)^Ran \d+ tests? in `), ids: []string{"unittest"}},
	{re: regexp.MustCompile(`(?m)^\[==========\]`), ids: []string{"gtest"}},
	{re: regexp.MustCompile(`(?m)^running \d+ tests?$`), families: []string{"rust"}},
	{re: regexp.MustCompile(`(?m)^=== RUN `), families: []string{"go"}},
	{re: regexp.MustCompile(`\[doctest\]`), ids: []string{"doctest"}},
}

// SniffOutput inspects raw runner output for version banners and returns
// the grammar ids they imply. Nil means nothing was recognized.
func SniffOutput(reg *patterns.Registry, text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, rule := range sniffRules {
		if !rule.re.MatchString(text) {
			continue
		}
		ids := append([]string(nil), rule.ids...)
		for _, fam := range rule.families {
			ids = append(ids, reg.IDsForFamily(fam)...)
		}
		for _, id := range ids {
			if !seen[id] && reg.Contains(id) {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}
