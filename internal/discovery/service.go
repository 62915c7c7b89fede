// Package discovery is the caller-side layer that feeds targets through the
// engine: it resolves structured reports, falls back to raw output, and
// caches the outcome per target.
package discovery

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/newhook/testnorm/internal/detect"
	"github.com/newhook/testnorm/internal/lineparser"
	"github.com/newhook/testnorm/internal/logging"
	"github.com/newhook/testnorm/internal/resolver"
	"github.com/newhook/testnorm/internal/testcase"
	"github.com/newhook/testnorm/internal/xmlparser"
)

// DefaultConcurrency bounds DiscoverAll when no limit is configured.
const DefaultConcurrency = 4

// Config holds the boundary inputs read once per discovery invocation.
type Config struct {
	Enabled     bool
	CacheTTL    time.Duration
	RunnerPath  string
	Concurrency int
}

// Request describes one target to discover.
type Request struct {
	Target     string
	Workspace  string
	RunnerPath string
	Meta       detect.Meta
	// RawOutput is the interleaved stdout/stderr of the target's last run,
	// if the caller has it.
	RawOutput string
}

// Report is the outcome of discovering one target.
type Report struct {
	RunID      string              `json:"run_id"`
	Target     string              `json:"target"`
	Result     *testcase.Result    `json:"result"`
	Provenance testcase.Provenance `json:"provenance"`
	Frameworks []string            `json:"frameworks,omitempty"`
	Cached     bool                `json:"cached,omitempty"`
}

// Lister lists the test targets matching query paths and test types.
type Lister func(ctx context.Context, paths, types []string) ([]string, error)

// Service composes the resolver, line parser and detector with the caches.
type Service struct {
	cfg      Config
	lines    *lineparser.Parser
	resolver *resolver.Resolver
	cache    *Cache
	queries  *QueryCache[[]string]
	group    singleflight.Group
}

// NewService creates a discovery service.
func NewService(cfg Config, lines *lineparser.Parser, res *resolver.Resolver) *Service {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	return &Service{
		cfg:      cfg,
		lines:    lines,
		resolver: res,
		cache:    NewCache(cfg.CacheTTL),
		queries:  NewQueryCache[[]string](cfg.CacheTTL),
	}
}

// Cache returns the discovery cache.
func (s *Service) Cache() *Cache {
	return s.cache
}

// Queries returns the query cache.
func (s *Service) Queries() *QueryCache[[]string] {
	return s.queries
}

// Discover produces the canonical result for one target. Concurrent calls
// for the same target and output share one computation. The only error is
// cancellation of ctx.
func (s *Service) Discover(ctx context.Context, req Request) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !s.cfg.Enabled {
		return &Report{
			RunID:      uuid.NewString(),
			Target:     req.Target,
			Result:     testcase.Empty(),
			Provenance: testcase.ProvenanceNone,
		}, nil
	}

	if e, ok := s.cache.Get(ctx, req.Target); ok {
		logging.DebugContext(ctx, "discovery cache hit", "target", req.Target, "run_id", e.Report.RunID)
		hit := e.Report.clone()
		hit.Cached = true
		return hit, nil
	}

	key := req.Target + "\x00" + ContentHash(req.RawOutput)
	v, err, shared := s.group.Do(key, func() (any, error) {
		report := s.discover(ctx, req)
		s.cache.Set(ctx, req.Target, report, req.RawOutput, s.cfg.CacheTTL)
		return report, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logging.DebugContext(ctx, "discovery coalesced", "target", req.Target)
	}
	return v.(*Report).clone(), nil
}

// clone copies r so callers cannot mutate the cached report.
func (r *Report) clone() *Report {
	out := *r
	out.Result = r.Result.Clone()
	out.Frameworks = append([]string(nil), r.Frameworks...)
	return &out
}

func (s *Service) discover(ctx context.Context, req Request) *Report {
	report := &Report{RunID: uuid.NewString(), Target: req.Target}
	log := logging.With("run_id", report.RunID, "target", req.Target)
	start := time.Now()

	reg := s.lines.Registry()
	report.Frameworks = detect.Frameworks(reg, req.Meta)

	runner := req.RunnerPath
	if runner == "" {
		runner = s.cfg.RunnerPath
	}
	result, prov := s.resolver.Resolve(req.Target, req.Workspace, runner, report.Frameworks)

	switch {
	case prov == testcase.ProvenanceXML && req.RawOutput != "":
		result = xmlparser.Merge(result, s.parseRaw(req.Target, req.RawOutput, report.Frameworks))
	case prov == testcase.ProvenanceNone && req.RawOutput != "":
		result = s.parseRaw(req.Target, req.RawOutput, report.Frameworks)
		if !result.IsEmpty() {
			prov = testcase.ProvenanceOutput
		}
	}
	report.Result, report.Provenance = result, prov

	if result.IsEmpty() {
		log.WarnContext(ctx, "no test cases discovered", "provenance", prov)
	} else {
		log.DebugContext(ctx, "discovered test cases",
			"provenance", prov,
			"cases", len(result.Cases),
			"failed", result.Summary.Failed,
			"duration", time.Since(start))
	}
	return report
}

// parseRaw line-parses raw output restricted to the detected frameworks,
// retrying unrestricted when the restriction matched nothing.
func (s *Service) parseRaw(target, raw string, frameworks []string) *testcase.Result {
	res := s.lines.Parse(raw, lineparser.Options{Target: target, Allowed: frameworks})
	if res.IsEmpty() && len(frameworks) > 0 {
		logging.Debug("restricted parse matched nothing, retrying unrestricted", "target", target, "frameworks", frameworks)
		res = s.lines.Parse(raw, lineparser.Options{Target: target})
	}
	return res
}

// DiscoverAll discovers every request with at most cfg.Concurrency running
// at once. Reports are returned in request order.
func (s *Service) DiscoverAll(ctx context.Context, reqs []Request) ([]*Report, error) {
	reports := make([]*Report, len(reqs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			r, err := s.Discover(ctx, req)
			if err != nil {
				return fmt.Errorf("discover %s: %w", req.Target, err)
			}
			reports[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

// Invalidate drops the cached report for target.
func (s *Service) Invalidate(ctx context.Context, target string) error {
	return s.cache.Delete(ctx, target)
}

// ListTargets fronts lister with the query cache.
func (s *Service) ListTargets(ctx context.Context, paths, types []string, lister Lister) ([]string, error) {
	if targets, ok := s.queries.Get(ctx, paths, types); ok {
		return targets, nil
	}
	targets, err := lister(ctx, paths, types)
	if err != nil {
		return nil, fmt.Errorf("failed to list targets: %w", err)
	}
	s.queries.Set(ctx, paths, types, targets, s.cfg.CacheTTL)
	return targets, nil
}
