// Package resolver turns a target into a canonical result by loading its
// structured report through an injected loader.
package resolver

import (
	"strings"

	"github.com/newhook/testnorm/internal/logging"
	"github.com/newhook/testnorm/internal/testcase"
)

// Loader loads the structured result for a target. It reports false when no
// structured result exists.
type Loader func(target, workspace, runnerPath string, allowed []string) (*testcase.Result, bool)

// Resolver resolves targets to structured results.
type Resolver struct {
	load Loader
}

// New creates a resolver. A nil loader resolves every target to "none".
func New(load Loader) *Resolver {
	return &Resolver{load: load}
}

// Resolve returns the structured result for target tagged xml, or an empty
// result tagged none. It never parses raw output; callers holding raw output
// fall back to the line parser themselves.
func (r *Resolver) Resolve(target, workspace, runnerPath string, allowed []string) (*testcase.Result, testcase.Provenance) {
	if r.load == nil {
		return testcase.Empty(), testcase.ProvenanceNone
	}
	res, ok := r.load(target, workspace, runnerPath, allowed)
	if !ok || res.IsEmpty() {
		logging.Debug("no structured result", "target", target)
		return testcase.Empty(), testcase.ProvenanceNone
	}
	return res, testcase.ProvenanceXML
}

// SplitLabel splits a target label such as "//app/core:math_test" into its
// package path and name. A label without a name part uses the last path
// element, and an external repository prefix is dropped.
func SplitLabel(label string) (pkg, name string) {
	label = strings.TrimSpace(label)
	if i := strings.Index(label, "//"); i >= 0 {
		label = label[i+2:]
	}
	pkg, name, found := strings.Cut(label, ":")
	if !found {
		name = pkg
		if i := strings.LastIndexByte(pkg, '/'); i >= 0 {
			name = pkg[i+1:]
		}
	}
	return strings.Trim(pkg, "/"), name
}
