package xmlparser

import (
	"strings"

	"github.com/newhook/testnorm/internal/testcase"
)

// Merge combines a structured result with a fallback result recovered from
// raw output. The structured result is returned as-is when the fallback is
// empty or when every structured case is already located.
func Merge(structured, fallback *testcase.Result) *testcase.Result {
	if fallback.IsEmpty() {
		return structured
	}
	if structured.IsEmpty() {
		return substitute(fallback)
	}

	allLocated, anyLocated := true, false
	for i := range structured.Cases {
		tc := &structured.Cases[i]
		if !tc.HasLocation() {
			allLocated = false
		}
		if tc.File != "" {
			anyLocated = true
		}
	}
	if allLocated {
		return structured
	}
	if !anyLocated {
		return substitute(fallback)
	}

	index := make(map[string]int, len(fallback.Cases))
	for i := range fallback.Cases {
		fb := &fallback.Cases[i]
		key := testcase.GroupKey(fb.Scope(), fb.Name)
		if _, ok := index[key]; !ok {
			index[key] = i
		}
	}

	out := structured.Clone()
	used := make(map[int]bool)
	for i := range out.Cases {
		tc := &out.Cases[i]
		j, ok := lookup(index, used, tc)
		if !ok {
			continue
		}
		used[j] = true
		if !tc.HasLocation() {
			backfill(tc, fallback.Cases[j])
		}
	}
	for j, fb := range fallback.Cases {
		if !used[j] {
			out.Cases = append(out.Cases, fb)
		}
	}
	out.Tally()
	return out
}

// lookup finds an unused fallback case for tc: first by its full scope,
// then by the last dotted component of the scope (a class name without its
// module), then by name alone.
func lookup(index map[string]int, used map[int]bool, tc *testcase.Case) (int, bool) {
	scope := tc.Scope()
	keys := []string{testcase.GroupKey(scope, tc.Name)}
	if i := strings.LastIndexByte(scope, '.'); i >= 0 {
		keys = append(keys, testcase.GroupKey(scope[i+1:], tc.Name))
	}
	if scope != "" {
		keys = append(keys, testcase.GroupKey("", tc.Name))
	}
	for _, k := range keys {
		if j, ok := index[k]; ok && !used[j] {
			return j, true
		}
	}
	return 0, false
}

// backfill copies fallback fields into dst without overwriting populated
// structured fields.
func backfill(dst *testcase.Case, src testcase.Case) {
	if dst.File == "" {
		dst.File = src.File
	}
	if dst.Line <= 0 {
		dst.Line = src.Line
	}
	if dst.Status == "" {
		dst.Status = src.Status
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
}

// substitute returns a copy of the fallback result with a framework
// identifier on every case.
func substitute(fallback *testcase.Result) *testcase.Result {
	out := fallback.Clone()
	for i := range out.Cases {
		if out.Cases[i].Framework == "" {
			out.Cases[i].Framework = "output"
		}
	}
	return out
}
