package project

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int    { return &n }
func boolPtr(b bool) *bool { return &b }

func TestGeneratedConfigIsValidTOML(t *testing.T) {
	cfg := &Config{
		Discovery: DiscoveryConfig{
			RunnerPath:  "bazelisk",
			Concurrency: intPtr(8),
		},
		Patterns: PatternsConfig{Files: []string{"tools/patterns.yaml"}},
	}
	content := cfg.GenerateDocumentedConfig()

	var parsed map[string]interface{}
	_, err := toml.Decode(content, &parsed)
	require.NoError(t, err, "Generated config is not valid TOML:\n%s", content)

	discovery := parsed["discovery"].(map[string]interface{})
	require.Equal(t, "bazelisk", discovery["runner_path"])
	require.Equal(t, true, discovery["enabled"])
}

func TestGeneratedConfigRoundTrip(t *testing.T) {
	original := &Config{
		Discovery: DiscoveryConfig{
			Enabled:        boolPtr(false),
			CacheTTLMillis: intPtr(60000),
			RunnerPath:     "bazel",
			Concurrency:    intPtr(2),
			TestlogsDir:    "out/testlogs",
		},
		Patterns: PatternsConfig{Files: []string{"a.yaml", "b.toml"}},
	}

	content := original.GenerateDocumentedConfig()

	var loaded Config
	_, err := toml.Decode(content, &loaded)
	require.NoError(t, err)

	require.False(t, loaded.Discovery.IsEnabled())
	require.Equal(t, time.Minute, loaded.Discovery.GetCacheTTL())
	require.Equal(t, "bazel", loaded.Discovery.GetRunnerPath())
	require.Equal(t, 2, loaded.Discovery.GetConcurrency())
	require.Equal(t, "out/testlogs", loaded.Discovery.GetTestlogsDir())
	require.Equal(t, []string{"a.yaml", "b.toml"}, loaded.Patterns.Files)
}

func TestGeneratedConfigWithSpecialCharacters(t *testing.T) {
	cfg := &Config{
		Discovery: DiscoveryConfig{
			RunnerPath:  `C:\tools\bazel "wrapped".exe`,
			TestlogsDir: "logs with spaces",
		},
	}

	content := cfg.GenerateDocumentedConfig()

	var parsed Config
	_, err := toml.Decode(content, &parsed)
	require.NoError(t, err, "Failed to parse config with special characters:\n%s", content)
	require.Equal(t, cfg.Discovery.RunnerPath, parsed.Discovery.RunnerPath)
	require.Equal(t, cfg.Discovery.TestlogsDir, parsed.Discovery.TestlogsDir)
}

func TestDiscoveryDefaults(t *testing.T) {
	tomlContent := `
[discovery]
  runner_path = ""
`
	var cfg Config
	_, err := toml.Decode(tomlContent, &cfg)
	require.NoError(t, err)

	assert.True(t, cfg.Discovery.IsEnabled())
	assert.Equal(t, 5*time.Minute, cfg.Discovery.GetCacheTTL())
	assert.Equal(t, "bazel", cfg.Discovery.GetRunnerPath())
	assert.Equal(t, 4, cfg.Discovery.GetConcurrency())
	assert.Empty(t, cfg.Discovery.GetTestlogsDir())
}

func TestGetCacheTTL(t *testing.T) {
	tests := []struct {
		name     string
		config   DiscoveryConfig
		expected time.Duration
	}{
		{name: "nil uses default", config: DiscoveryConfig{}, expected: 5 * time.Minute},
		{name: "zero uses default", config: DiscoveryConfig{CacheTTLMillis: intPtr(0)}, expected: 5 * time.Minute},
		{name: "negative uses default", config: DiscoveryConfig{CacheTTLMillis: intPtr(-5)}, expected: 5 * time.Minute},
		{name: "explicit", config: DiscoveryConfig{CacheTTLMillis: intPtr(1500)}, expected: 1500 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, tt.config.GetCacheTTL())
		})
	}
}

func TestInlineCustomPatterns(t *testing.T) {
	tomlContent := `
[patterns]
files = []

[[patterns.custom]]
id = "mytool"
regex = '^(\w+): (OK|KO)$'
name_group = 1
status_group = 2
`
	var cfg Config
	_, err := toml.Decode(tomlContent, &cfg)
	require.NoError(t, err)
	require.Len(t, cfg.Patterns.Custom, 1)

	p := &Project{Root: t.TempDir(), Config: &cfg}
	reg := p.Registry()
	mytool, ok := reg.ByID("mytool")
	require.True(t, ok)
	assert.Equal(t, 1, mytool.Fields.Name)
	assert.Equal(t, 2, mytool.Fields.Status)
}

func TestPatternFilesResolvedAgainstRoot(t *testing.T) {
	root := t.TempDir()
	yamlContent := `patterns:
  - id: fromfile
    regex: '^CHECK (\w+) (PASS|FAIL)$'
    name_group: 1
    status_group: 2
`
	require.NoError(t, os.WriteFile(filepath.Join(root, "extra.yaml"), []byte(yamlContent), 0644))

	p := &Project{Root: root, Config: &Config{Patterns: PatternsConfig{Files: []string{"extra.yaml", "missing.yaml"}}}}
	_, ok := p.Registry().ByID("fromfile")
	require.True(t, ok)
}

func TestApplyEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("TESTNORM_DISCOVERY_ENABLED=false\nTESTNORM_CACHE_TTL_MS=2000\nTESTNORM_RUNNER=bazelisk\n"), 0644))

	cfg := &Config{Discovery: DiscoveryConfig{RunnerPath: "bazel"}}
	require.NoError(t, cfg.ApplyEnv(envPath))

	assert.False(t, cfg.Discovery.IsEnabled())
	assert.Equal(t, 2*time.Second, cfg.Discovery.GetCacheTTL())
	assert.Equal(t, "bazelisk", cfg.Discovery.GetRunnerPath())

	_, set := os.LookupEnv(EnvRunner)
	assert.False(t, set, "process environment must not be modified")
}

func TestApplyEnvMissingFile(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, cfg.ApplyEnv(filepath.Join(t.TempDir(), ".env")))
	assert.True(t, cfg.Discovery.IsEnabled())
}

func TestApplyEnvInvalidValue(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("TESTNORM_CACHE_TTL_MS=soon\n"), 0644))

	cfg := &Config{}
	err := cfg.ApplyEnv(envPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvCacheTTL)
}

func TestCreateAndFind(t *testing.T) {
	root := t.TempDir()
	created, err := Create(root)
	require.NoError(t, err)
	t.Cleanup(func() { _ = created.Close() })

	_, err = Create(root)
	require.Error(t, err)

	nested := filepath.Join(root, "pkg", "sub")
	require.NoError(t, os.MkdirAll(nested, 0755))

	found, err := Find(nested)
	require.NoError(t, err)
	t.Cleanup(func() { _ = found.Close() })
	assert.Equal(t, created.Root, found.Root)
	assert.True(t, found.Config.Discovery.IsEnabled())
	assert.Equal(t, "bazel", found.Config.Discovery.GetRunnerPath())
}

func TestFindNoWorkspace(t *testing.T) {
	_, err := Find(t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoWorkspace))
}

func TestFindOrDefault(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, EnvFile), []byte("TESTNORM_RUNNER=bazelisk\n"), 0644))

	p, err := FindOrDefault(dir)
	require.NoError(t, err)
	assert.Equal(t, "bazelisk", p.DiscoveryConfig().RunnerPath)
	assert.Equal(t, 4, p.DiscoveryConfig().Concurrency)
}
