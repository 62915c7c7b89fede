package discovery

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newhook/testnorm/internal/detect"
	"github.com/newhook/testnorm/internal/lineparser"
	"github.com/newhook/testnorm/internal/patterns"
	"github.com/newhook/testnorm/internal/resolver"
	"github.com/newhook/testnorm/internal/testcase"
)

func newService(t *testing.T, cfg Config, load resolver.Loader) *Service {
	t.Helper()
	return NewService(cfg, lineparser.New(patterns.NewRegistry()), resolver.New(load))
}

func noStructured(string, string, string, []string) (*testcase.Result, bool) {
	return nil, false
}

func enabled() Config {
	return Config{Enabled: true, CacheTTL: time.Minute, RunnerPath: "bazel", Concurrency: 2}
}

func TestDiscover_Disabled(t *testing.T) {
	s := newService(t, Config{Enabled: false}, func(string, string, string, []string) (*testcase.Result, bool) {
		t.Fatal("loader must not be called when discovery is disabled")
		return nil, false
	})

	r, err := s.Discover(context.Background(), Request{Target: "//a:t", RawOutput: "test a ... ok"})
	require.NoError(t, err)
	assert.Equal(t, testcase.ProvenanceNone, r.Provenance)
	assert.True(t, r.Result.IsEmpty())
	assert.NotEmpty(t, r.RunID)
}

func TestDiscover_StructuredResult(t *testing.T) {
	var gotRunner string
	var gotAllowed []string
	load := func(target, _, runner string, allowed []string) (*testcase.Result, bool) {
		gotRunner, gotAllowed = runner, allowed
		return &testcase.Result{Cases: []testcase.Case{{Name: "TestX", Target: target, Status: testcase.StatusFail}}}, true
	}
	s := newService(t, enabled(), load)

	r, err := s.Discover(context.Background(), Request{Target: "//go:t", Meta: detect.Meta{RuleKind: "go_test"}})
	require.NoError(t, err)
	assert.Equal(t, testcase.ProvenanceXML, r.Provenance)
	assert.Len(t, r.Result.Cases, 1)
	assert.Equal(t, "bazel", gotRunner)
	assert.Equal(t, []string{"gotest"}, gotAllowed)
	assert.Equal(t, []string{"gotest"}, r.Frameworks)
}

func TestDiscover_StructuredMergedWithRawOutput(t *testing.T) {
	load := func(target, _, _ string, _ []string) (*testcase.Result, bool) {
		return &testcase.Result{Cases: []testcase.Case{
			{Name: "TestA", File: "a_test.go", Line: 3, Status: testcase.StatusPass},
			{Name: "TestB", Status: testcase.StatusFail},
		}}, true
	}
	s := newService(t, enabled(), load)

	raw := "--- PASS: TestA (0.00s)\n--- FAIL: TestB (0.01s)\n--- PASS: TestC (0.00s)\n"
	r, err := s.Discover(context.Background(), Request{Target: "//go:t", Meta: detect.Meta{RuleKind: "go_test"}, RawOutput: raw})
	require.NoError(t, err)

	assert.Equal(t, testcase.ProvenanceXML, r.Provenance)
	require.Len(t, r.Result.Cases, 3)
	assert.Equal(t, "gotest", r.Result.Cases[1].Framework)
	assert.Equal(t, "TestC", r.Result.Cases[2].Name)
}

func TestDiscover_RawOutputOnly(t *testing.T) {
	s := newService(t, enabled(), noStructured)

	raw := "[ RUN      ] Vec.push\n[       OK ] Vec.push (0 ms)\n"
	r, err := s.Discover(context.Background(), Request{
		Target:    "//cc:t",
		Meta:      detect.Meta{RuleKind: "cc_test", Deps: []string{"@googletest//:gtest_main"}},
		RawOutput: raw,
	})
	require.NoError(t, err)
	assert.Equal(t, testcase.ProvenanceOutput, r.Provenance)
	require.Len(t, r.Result.Cases, 1)
	assert.Equal(t, "//cc:t", r.Result.Cases[0].Target)
}

func TestDiscover_RetriesUnrestricted(t *testing.T) {
	s := newService(t, enabled(), noStructured)

	// Declared as a Go test but the output is from a Rust harness.
	r, err := s.Discover(context.Background(), Request{
		Target:    "//mixed:t",
		Meta:      detect.Meta{RuleKind: "go_test"},
		RawOutput: "test it_works ... ok\n",
	})
	require.NoError(t, err)
	require.Len(t, r.Result.Cases, 1)
	assert.Equal(t, "rust", r.Result.Cases[0].Framework)
}

func TestDiscover_NothingFound(t *testing.T) {
	s := newService(t, enabled(), noStructured)

	r, err := s.Discover(context.Background(), Request{Target: "//x:t", RawOutput: "compiling...\n"})
	require.NoError(t, err)
	assert.Equal(t, testcase.ProvenanceNone, r.Provenance)
	assert.True(t, r.Result.IsEmpty())
}

func TestDiscover_CachesPerTarget(t *testing.T) {
	var calls atomic.Int32
	load := func(target, _, _ string, _ []string) (*testcase.Result, bool) {
		calls.Add(1)
		return &testcase.Result{Cases: []testcase.Case{{Name: "a", Status: testcase.StatusPass}}}, true
	}
	s := newService(t, enabled(), load)
	ctx := context.Background()

	first, err := s.Discover(ctx, Request{Target: "//a:t"})
	require.NoError(t, err)
	second, err := s.Discover(ctx, Request{Target: "//a:t"})
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load())
	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, first.RunID, second.RunID)

	require.NoError(t, s.Invalidate(ctx, "//a:t"))
	_, err = s.Discover(ctx, Request{Target: "//a:t"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestDiscover_CachedReportIsIsolated(t *testing.T) {
	load := func(string, string, string, []string) (*testcase.Result, bool) {
		return &testcase.Result{Cases: []testcase.Case{{Name: "a", Status: testcase.StatusPass}}}, true
	}
	s := newService(t, enabled(), load)
	ctx := context.Background()

	first, err := s.Discover(ctx, Request{Target: "//a:t"})
	require.NoError(t, err)
	first.Result.Cases[0].Name = "changed"

	second, err := s.Discover(ctx, Request{Target: "//a:t"})
	require.NoError(t, err)
	require.True(t, second.Cached)
	assert.Equal(t, "a", second.Result.Cases[0].Name)
	second.Result.Cases[0].Status = testcase.StatusFail

	third, err := s.Discover(ctx, Request{Target: "//a:t"})
	require.NoError(t, err)
	assert.Equal(t, "a", third.Result.Cases[0].Name)
	assert.Equal(t, testcase.StatusPass, third.Result.Cases[0].Status)
}

func TestDiscover_CoalescesConcurrentRequests(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	load := func(string, string, string, []string) (*testcase.Result, bool) {
		calls.Add(1)
		<-release
		return &testcase.Result{Cases: []testcase.Case{{Name: "a", Status: testcase.StatusPass}}}, true
	}
	s := newService(t, enabled(), load)

	const n = 8
	var started, done sync.WaitGroup
	reports := make([]*Report, n)
	for i := 0; i < n; i++ {
		i := i
		started.Add(1)
		done.Add(1)
		go func() {
			defer done.Done()
			started.Done()
			r, err := s.Discover(context.Background(), Request{Target: "//a:t"})
			assert.NoError(t, err)
			reports[i] = r
		}()
	}
	started.Wait()
	time.Sleep(50 * time.Millisecond)
	close(release)
	done.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range reports {
		require.NotNil(t, r)
		assert.Equal(t, reports[0].RunID, r.RunID)
	}
}

func TestDiscoverAll(t *testing.T) {
	load := func(target, _, _ string, _ []string) (*testcase.Result, bool) {
		return &testcase.Result{Cases: []testcase.Case{{Name: target, Status: testcase.StatusPass}}}, true
	}
	s := newService(t, enabled(), load)

	reqs := []Request{{Target: "//a:t"}, {Target: "//b:t"}, {Target: "//c:t"}, {Target: "//d:t"}}
	reports, err := s.DiscoverAll(context.Background(), reqs)
	require.NoError(t, err)
	require.Len(t, reports, len(reqs))
	for i, r := range reports {
		assert.Equal(t, reqs[i].Target, r.Target)
		assert.Equal(t, reqs[i].Target, r.Result.Cases[0].Name)
	}
}

func TestDiscoverAll_Cancelled(t *testing.T) {
	s := newService(t, enabled(), noStructured)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.DiscoverAll(ctx, []Request{{Target: "//a:t"}})
	require.ErrorIs(t, err, context.Canceled)
}

func TestListTargets(t *testing.T) {
	s := newService(t, enabled(), noStructured)
	ctx := context.Background()

	var calls int
	lister := func(_ context.Context, paths, types []string) ([]string, error) {
		calls++
		return []string{"//a:t", "//b:t"}, nil
	}

	got, err := s.ListTargets(ctx, []string{"//b/...", "//a/..."}, []string{"cc_test"}, lister)
	require.NoError(t, err)
	assert.Equal(t, []string{"//a:t", "//b:t"}, got)

	got, err = s.ListTargets(ctx, []string{"//a/...", "//b/..."}, []string{"cc_test"}, lister)
	require.NoError(t, err)
	assert.Equal(t, []string{"//a:t", "//b:t"}, got)
	assert.Equal(t, 1, calls)

	failing := func(context.Context, []string, []string) ([]string, error) {
		return nil, errors.New("query failed")
	}
	_, err = s.ListTargets(ctx, []string{"//c/..."}, nil, failing)
	require.Error(t, err)
}
