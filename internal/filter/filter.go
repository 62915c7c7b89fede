// Package filter renders framework-native expressions that select a single
// test case for re-execution.
package filter

import (
	"regexp"
	"strings"

	"github.com/newhook/testnorm/internal/patterns"
	"github.com/newhook/testnorm/internal/resolver"
)

// Context carries optional information about the case being selected.
type Context struct {
	Suite     string
	Class     string
	File      string
	Target    string
	Framework string
}

var placeholderRE = regexp.MustCompile(`\$\{(\w+)\}`)

// familyHints maps target path segments to the grammar family whose
// template is used when only a name-only template would otherwise apply.
var familyHints = []struct {
	segments []string
	suffixes []string
	family   string
}{
	{segments: []string{"python", "py", "pytests"}, suffixes: []string{"_py_test", "_pytest"}, family: "pytest"},
	{segments: []string{"rust", "crates"}, suffixes: []string{"_rs_test", "_rust_test"}, family: "rust"},
	{segments: []string{"go", "golang"}, suffixes: []string{"_go_test"}, family: "go"},
	{segments: []string{"java", "javatests", "kotlin"}, suffixes: []string{"_java_test", "_kt_test"}, family: "junit"},
	{segments: []string{"gtest", "googletest"}, suffixes: []string{"_gtest"}, family: "gtest"},
}

// Build renders a filter expression for the case named name. The result is
// never empty: without any usable template it is the bare name.
func Build(reg *patterns.Registry, name string, allowed []string, ctx Context) string {
	if name == "" {
		name = "*"
	}

	if ctx.Framework != "" {
		if p, ok := reg.ByID(ctx.Framework); ok && p.FilterTemplate != "" {
			return Render(p.FilterTemplate, name, ctx)
		}
	}

	tpl, ok := choose(reg.Subset(allowed), ctx)
	if !ok || !referencesContext(tpl) {
		if fam, found := familyTemplate(reg, ctx.Target); found {
			tpl, ok = fam, true
		}
	}
	if !ok {
		return name
	}
	if out := Render(tpl, name, ctx); out != "" {
		return out
	}
	return name
}

// choose picks a template from the candidate pool. Templates whose context
// placeholders are all known win, then any other context template, then
// name-only templates.
func choose(pool []patterns.Pattern, ctx Context) (string, bool) {
	var nameOnly, partial string
	for _, p := range pool {
		if !p.Individual || p.FilterTemplate == "" {
			continue
		}
		switch {
		case !p.ReferencesContext():
			if nameOnly == "" {
				nameOnly = p.FilterTemplate
			}
		case satisfied(p.FilterTemplate, ctx):
			return p.FilterTemplate, true
		default:
			if partial == "" {
				partial = p.FilterTemplate
			}
		}
	}
	switch {
	case partial != "":
		return partial, true
	case nameOnly != "":
		return nameOnly, true
	}
	return "", false
}

func referencesContext(tpl string) bool {
	return patterns.Pattern{FilterTemplate: tpl}.ReferencesContext()
}

func satisfied(tpl string, ctx Context) bool {
	for _, m := range placeholderRE.FindAllStringSubmatch(tpl, -1) {
		if m[1] == "name" {
			continue
		}
		if v, known := value(m[1], "", ctx); known && v == "" {
			return false
		}
	}
	return true
}

// familyTemplate returns the first individual template of the family the
// target path suggests.
func familyTemplate(reg *patterns.Registry, target string) (string, bool) {
	if target == "" {
		return "", false
	}
	pkg, name := resolver.SplitLabel(target)
	segments := strings.FieldsFunc(strings.ToLower(pkg), func(r rune) bool { return r == '/' })
	name = strings.ToLower(name)

	for _, hint := range familyHints {
		if !matchesHint(segments, name, hint.segments, hint.suffixes) {
			continue
		}
		for _, id := range reg.IDsForFamily(hint.family) {
			p, _ := reg.ByID(id)
			if p.Individual && p.FilterTemplate != "" {
				return p.FilterTemplate, true
			}
		}
	}
	return "", false
}

func matchesHint(segments []string, name string, want, suffixes []string) bool {
	for _, s := range segments {
		for _, w := range want {
			if s == w {
				return true
			}
		}
	}
	for _, suf := range suffixes {
		if strings.HasSuffix(name, suf) {
			return true
		}
	}
	return false
}

// Render substitutes ${name}, ${suite}, ${class}, ${file} and ${target}
// in tpl. Placeholders whose value is absent become "*"; unknown
// placeholders are left as written.
func Render(tpl, name string, ctx Context) string {
	return placeholderRE.ReplaceAllStringFunc(tpl, func(m string) string {
		key := placeholderRE.FindStringSubmatch(m)[1]
		v, known := value(key, name, ctx)
		switch {
		case !known:
			return m
		case v == "":
			return "*"
		default:
			return v
		}
	})
}

func value(key, name string, ctx Context) (string, bool) {
	switch key {
	case "name":
		return name, true
	case "suite":
		if ctx.Suite == "" {
			return ctx.Class, true
		}
		return ctx.Suite, true
	case "class":
		if ctx.Class == "" {
			return ctx.Suite, true
		}
		return ctx.Class, true
	case "file":
		return ctx.File, true
	case "target":
		return ctx.Target, true
	}
	return "", false
}
