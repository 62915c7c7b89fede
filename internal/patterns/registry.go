package patterns

import (
	"fmt"
	"slices"
	"strings"

	"github.com/newhook/testnorm/internal/logging"
)

// builtins are compiled once; a failure here is a programming error.
var builtins = func() []Pattern {
	out := make([]Pattern, 0, len(builtinDefinitions))
	for _, def := range builtinDefinitions {
		p, err := Compile(def)
		if err != nil {
			panic(fmt.Sprintf("builtin pattern: %v", err))
		}
		out = append(out, p)
	}
	return out
}()

// Registry is an ordered, read-only set of grammars keyed by identifier.
// Extending a registry returns a new one, so a *Registry can be shared
// across goroutines without locking.
type Registry struct {
	patterns []Pattern
	byID     map[string]int
	byKind   map[string][]string
	byFamily map[string][]string
}

// NewRegistry returns a registry holding the built-in grammars followed by
// any valid custom definitions.
func NewRegistry(custom ...Definition) *Registry {
	r := newRegistry(builtins)
	if len(custom) == 0 {
		return r
	}
	return r.With(custom...)
}

// FromDefinitions builds a registry holding only the given definitions.
// Invalid definitions are dropped with a warning.
func FromDefinitions(defs ...Definition) *Registry {
	return newRegistry(nil).With(defs...)
}

func newRegistry(ps []Pattern) *Registry {
	r := &Registry{
		patterns: make([]Pattern, 0, len(ps)),
		byID:     make(map[string]int, len(ps)),
		byKind:   make(map[string][]string),
		byFamily: make(map[string][]string),
	}
	for _, p := range ps {
		r.add(p)
	}
	return r
}

func (r *Registry) add(p Pattern) {
	r.byID[p.ID] = len(r.patterns)
	r.patterns = append(r.patterns, p)
	for _, kind := range p.RuleKinds {
		k := strings.ToLower(kind)
		r.byKind[k] = append(r.byKind[k], p.ID)
	}
	r.byFamily[p.Family] = append(r.byFamily[p.Family], p.ID)
}

// With returns a new registry with the valid definitions appended. Invalid
// definitions, and definitions reusing an existing id, are dropped with a
// warning; they never fail the registry.
func (r *Registry) With(defs ...Definition) *Registry {
	next := newRegistry(r.patterns)
	for _, def := range defs {
		p, err := Compile(def)
		if err != nil {
			logging.Warn("dropping invalid pattern", "id", def.ID, "error", err)
			continue
		}
		if _, exists := next.byID[p.ID]; exists {
			logging.Warn("dropping duplicate pattern", "id", p.ID)
			continue
		}
		next.add(p)
	}
	return next
}

// All returns every pattern in registry order.
func (r *Registry) All() []Pattern {
	return slices.Clone(r.patterns)
}

// Len returns the number of patterns.
func (r *Registry) Len() int {
	return len(r.patterns)
}

// ByID looks up a pattern by identifier.
func (r *Registry) ByID(id string) (Pattern, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Pattern{}, false
	}
	return r.patterns[i], true
}

// IDsForRuleKind returns the ids declared for a test-rule kind, possibly empty.
func (r *Registry) IDsForRuleKind(kind string) []string {
	return slices.Clone(r.byKind[strings.ToLower(kind)])
}

// IDsForFamily returns the ids belonging to a grammar family, possibly empty.
func (r *Registry) IDsForFamily(family string) []string {
	return slices.Clone(r.byFamily[family])
}

// Subset returns the patterns named by ids, in registry order. Unknown ids
// are ignored. An empty ids slice selects the full registry.
func (r *Registry) Subset(ids []string) []Pattern {
	if len(ids) == 0 {
		return r.All()
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := make([]Pattern, 0, len(ids))
	for _, p := range r.patterns {
		if want[p.ID] {
			out = append(out, p)
		}
	}
	return out
}

// Contains reports whether any of ids is present in the registry.
func (r *Registry) Contains(ids ...string) bool {
	for _, id := range ids {
		if _, ok := r.byID[id]; ok {
			return true
		}
	}
	return false
}
