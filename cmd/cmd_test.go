package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newhook/testnorm/internal/discovery"
	"github.com/newhook/testnorm/internal/project"
	"github.com/newhook/testnorm/internal/testcase"
)

// executeCommand runs the root command with args and stdin, returning
// stdout. Flags are reset afterwards so tests don't leak state.
func executeCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	t.Cleanup(func() { resetFlags(rootCmd) })

	err := rootCmd.Execute()
	return out.String(), err
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func TestParseCommand_JSON(t *testing.T) {
	in := "tests/test_math.cpp:42: FAILED: test_addition\n" +
		"tests/test_math.cpp:56: PASSED: test_subtraction\n"

	out, err := executeCommand(t, in, "parse", "-w", t.TempDir(), "--target", "//app:math", "--json")
	require.NoError(t, err)

	var res testcase.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.Cases, 2)
	assert.Equal(t, "test_addition", res.Cases[0].Name)
	assert.Equal(t, "//app:math", res.Cases[0].Target)
	assert.Equal(t, testcase.StatusFail, res.Cases[0].Status)
	assert.Equal(t, testcase.Summary{Total: 2, Passed: 1, Failed: 1}, res.Summary)
}

func TestParseCommand_Text(t *testing.T) {
	out, err := executeCommand(t, "[  PASSED  ] MatrixTest.test_create (5 ms)\n", "parse", "-w", t.TempDir(), "-")
	require.NoError(t, err)

	assert.Contains(t, out, "PASS")
	assert.Contains(t, out, "MatrixTest.test_create")
	assert.Contains(t, out, "1 tests, 1 passed, 0 failed, 0 ignored (output)")
}

func TestParseCommand_RestrictedPatterns(t *testing.T) {
	out, err := executeCommand(t, "app/tests/test_main.c:10:test_create:PASS\n", "parse", "-w", t.TempDir(), "--patterns", "gtest", "--json")
	require.NoError(t, err)

	var res testcase.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Empty(t, res.Cases)
}

func TestXMLCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.xml")
	doc := `<testsuite name="s">
  <testcase name="ok" classname="MathTest"/>
  <testcase name="bad" classname="MathTest"><failure message="expected 1">assert 1 == 2</failure></testcase>
</testsuite>`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	out, err := executeCommand(t, "", "xml", "-w", dir, path, "--json")
	require.NoError(t, err)

	var res testcase.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.Cases, 2)
	assert.Equal(t, testcase.StatusPass, res.Cases[0].Status)
	assert.Equal(t, testcase.StatusFail, res.Cases[1].Status)
	assert.Equal(t, "expected 1\nassert 1 == 2", res.Cases[1].Message)
}

func TestXMLCommand_MissingFile(t *testing.T) {
	_, err := executeCommand(t, "", "xml", "-w", t.TempDir(), filepath.Join(t.TempDir(), "nope.xml"))
	require.Error(t, err)
}

func TestFilterCommand(t *testing.T) {
	out, err := executeCommand(t, "", "filter", "-w", t.TempDir(), "test_create", "--framework", "gtest", "--suite", "MatrixTest")
	require.NoError(t, err)
	assert.Equal(t, "--gtest_filter=MatrixTest.test_create\n", out)
}

func TestFilterCommand_NoTemplate(t *testing.T) {
	out, err := executeCommand(t, "", "filter", "-w", t.TempDir(), "test_create", "--patterns", "does_not_exist")
	require.NoError(t, err)
	assert.Equal(t, "test_create\n", out)
}

func TestPatternsCommand(t *testing.T) {
	out, err := executeCommand(t, "", "patterns", "-w", t.TempDir(), "--json")
	require.NoError(t, err)

	var infos []patternInfo
	require.NoError(t, json.Unmarshal([]byte(out), &infos))
	ids := make([]string, 0, len(infos))
	for _, p := range infos {
		ids = append(ids, p.ID)
	}
	assert.Contains(t, ids, "gtest")
	assert.Contains(t, ids, "unity")
}

func TestPatternsCommand_IncludesWorkspaceGrammars(t *testing.T) {
	root := t.TempDir()
	_, err := project.Create(root)
	require.NoError(t, err)
	cfgPath := filepath.Join(root, project.ConfigDir, project.ConfigFile)
	custom := `
[[patterns.custom]]
id = "mytool"
regex = '^(\w+): (OK|KO)$'
name_group = 1
status_group = 2
`
	f, err := os.OpenFile(cfgPath, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString(custom)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	out, err := executeCommand(t, "", "patterns", "-w", root)
	require.NoError(t, err)
	assert.Contains(t, out, "mytool")
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()

	out, err := executeCommand(t, "", "init", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Created")
	assert.FileExists(t, filepath.Join(dir, project.ConfigDir, project.ConfigFile))

	_, err = executeCommand(t, "", "init", dir)
	require.Error(t, err)
}

func TestDiscoverCommand_StructuredResult(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "bazel-testlogs", "app", "math_test")
	require.NoError(t, os.MkdirAll(dir, 0755))
	doc := `<testsuite name="s"><testcase name="adds" classname="MathTest"/></testsuite>`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.xml"), []byte(doc), 0644))

	out, err := executeCommand(t, "", "discover", "-w", root, "//app:math_test", "--json")
	require.NoError(t, err)

	var reports []discovery.Report
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 1)
	assert.Equal(t, testcase.ProvenanceXML, reports[0].Provenance)
	require.Len(t, reports[0].Result.Cases, 1)
	assert.Equal(t, "adds", reports[0].Result.Cases[0].Name)
}

func TestDiscoverCommand_RawOutputFallback(t *testing.T) {
	root := t.TempDir()
	log := "[  FAILED  ] MatrixTest.test_create (5 ms)\n"

	out, err := executeCommand(t, log, "discover", "-w", root, "//app:matrix_test", "--kind", "cc_test", "--deps", "@googletest//:gtest", "--log", "-", "--json")
	require.NoError(t, err)

	var reports []discovery.Report
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 1)
	assert.Equal(t, testcase.ProvenanceOutput, reports[0].Provenance)
	assert.Equal(t, []string{"gtest"}, reports[0].Frameworks)
	require.Len(t, reports[0].Result.Cases, 1)
	assert.Equal(t, testcase.StatusFail, reports[0].Result.Cases[0].Status)
}

func TestDiscoverCommand_Nothing(t *testing.T) {
	out, err := executeCommand(t, "", "discover", "-w", t.TempDir(), "//app:none")
	require.NoError(t, err)
	assert.Contains(t, out, "//app:none")
	assert.Contains(t, out, "0 tests, 0 passed, 0 failed, 0 ignored (none)")
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Equal(t, []string{"a", "b"}, splitList(" a, ,b ,"))
}

func TestMessageLines(t *testing.T) {
	long := strings.Repeat("word ", 60)
	lines := messageLines(long, 20)
	for _, l := range lines {
		assert.LessOrEqual(t, len(l), 20)
	}

	many := strings.Repeat("line\n", 20)
	lines = messageLines(many, 80)
	require.Len(t, lines, maxMessageLines+1)
	assert.Equal(t, "...", lines[maxMessageLines])
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Suite.name", displayName(&testcase.Case{Name: "name", Suite: "Suite"}))
	assert.Equal(t, "Cls.name", displayName(&testcase.Case{Name: "name", Class: "Cls"}))
	assert.Equal(t, "name", displayName(&testcase.Case{Name: "name"}))
}
