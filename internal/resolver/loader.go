package resolver

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/newhook/testnorm/internal/logging"
	"github.com/newhook/testnorm/internal/testcase"
	"github.com/newhook/testnorm/internal/xmlparser"
)

// ResultFileName is the structured report written for each test target.
const ResultFileName = "test.xml"

// FileLoader reads <workspace>/<testlogs>/<package>/<name>/test.xml,
// merging shard reports when the target was sharded.
type FileLoader struct {
	parser *xmlparser.Parser
	// TestlogsDir overrides the testlogs directory. Relative paths are
	// resolved against the workspace.
	TestlogsDir string
}

// NewFileLoader creates a loader that decodes reports with parser.
func NewFileLoader(parser *xmlparser.Parser, testlogsDir string) *FileLoader {
	return &FileLoader{parser: parser, TestlogsDir: testlogsDir}
}

// Load implements Loader.
func (l *FileLoader) Load(target, workspace, runnerPath string, _ []string) (*testcase.Result, bool) {
	paths := l.ResultPaths(target, workspace, runnerPath)
	if len(paths) == 0 {
		return nil, false
	}

	pkg, _ := SplitLabel(target)
	out := testcase.Empty()
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			logging.Debug("failed to read result file", "path", p, "error", err)
			continue
		}
		res := l.parser.Parse(data, xmlparser.Options{Target: target, PackagePath: pkg})
		out.Cases = append(out.Cases, res.Cases...)
	}
	if out.IsEmpty() {
		return nil, false
	}
	out.Tally()
	return out, true
}

// ResultPaths returns the existing report files for target: the single
// test.xml, or every shard's test.xml in shard order.
func (l *FileLoader) ResultPaths(target, workspace, runnerPath string) []string {
	dir := l.TargetDir(target, workspace, runnerPath)
	if dir == "" {
		return nil
	}

	single := filepath.Join(dir, ResultFileName)
	if _, err := os.Stat(single); err == nil {
		return []string{single}
	}
	shards, _ := filepath.Glob(filepath.Join(dir, "shard_*_of_*", ResultFileName))
	sort.Strings(shards)
	return shards
}

// TargetDir returns the directory holding target's reports, or "" when the
// label has no name.
func (l *FileLoader) TargetDir(target, workspace, runnerPath string) string {
	pkg, name := SplitLabel(target)
	if name == "" {
		return ""
	}
	return filepath.Join(l.testlogsRoot(workspace, runnerPath), filepath.FromSlash(pkg), name)
}

// testlogsRoot derives the testlogs directory from the runner name when no
// explicit directory is configured: a runner "bazel" writes to
// "bazel-testlogs".
func (l *FileLoader) testlogsRoot(workspace, runnerPath string) string {
	dir := l.TestlogsDir
	if dir == "" {
		runner := strings.TrimSuffix(filepath.Base(runnerPath), filepath.Ext(runnerPath))
		if runner == "" || runner == "." || runner == "bazelisk" {
			runner = "bazel"
		}
		dir = runner + "-testlogs"
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(workspace, dir)
}
