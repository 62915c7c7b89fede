package project

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/newhook/testnorm/internal/logging"
	"github.com/newhook/testnorm/internal/patterns"
)

//go:embed templates/config.tmpl
var configTemplateText string

// Environment overrides read from the workspace .env file.
const (
	EnvDiscoveryEnabled = "TESTNORM_DISCOVERY_ENABLED"
	EnvCacheTTL         = "TESTNORM_CACHE_TTL_MS"
	EnvRunner           = "TESTNORM_RUNNER"
)

// Config represents the workspace configuration stored in .testnorm/config.toml.
type Config struct {
	Discovery DiscoveryConfig `toml:"discovery"`
	Patterns  PatternsConfig  `toml:"patterns"`
}

// DiscoveryConfig contains the inputs read once per discovery invocation.
type DiscoveryConfig struct {
	// Enabled turns discovery on or off. Defaults to true when not specified.
	Enabled *bool `toml:"enabled"`

	// CacheTTLMillis is the discovery and query cache TTL in milliseconds.
	// Defaults to 5 minutes when not specified.
	CacheTTLMillis *int `toml:"cache_ttl_ms"`

	// RunnerPath is the test runner executable. Defaults to "bazel".
	RunnerPath string `toml:"runner_path"`

	// Concurrency bounds parallel discovery. Defaults to 4.
	Concurrency *int `toml:"concurrency"`

	// TestlogsDir overrides the directory holding structured result files.
	// Relative paths are resolved against the workspace root. When empty the
	// directory is derived from the runner name.
	TestlogsDir string `toml:"testlogs_dir"`
}

// IsEnabled returns true if discovery is enabled.
// Defaults to true when not explicitly configured.
func (d *DiscoveryConfig) IsEnabled() bool {
	if d.Enabled == nil {
		return true
	}
	return *d.Enabled
}

// GetCacheTTL returns the cache TTL.
// Defaults to 5 minutes when not specified or non-positive.
func (d *DiscoveryConfig) GetCacheTTL() time.Duration {
	if d.CacheTTLMillis != nil && *d.CacheTTLMillis > 0 {
		return time.Duration(*d.CacheTTLMillis) * time.Millisecond
	}
	return 5 * time.Minute
}

// GetRunnerPath returns the configured runner or "bazel" if not set.
func (d *DiscoveryConfig) GetRunnerPath() string {
	if d.RunnerPath == "" {
		return "bazel"
	}
	return d.RunnerPath
}

// GetConcurrency returns the discovery concurrency limit, 4 by default.
func (d *DiscoveryConfig) GetConcurrency() int {
	if d.Concurrency != nil && *d.Concurrency > 0 {
		return *d.Concurrency
	}
	return 4
}

// GetTestlogsDir returns the configured testlogs directory, or "" to let the
// loader derive it from the runner.
func (d *DiscoveryConfig) GetTestlogsDir() string {
	return d.TestlogsDir
}

// PatternsConfig lists grammars added on top of the built-in registry.
type PatternsConfig struct {
	// Files are YAML, TOML or JSON pattern files relative to the workspace root.
	Files []string `toml:"files"`

	// Custom holds inline grammar definitions.
	Custom []patterns.Definition `toml:"custom"`
}

// Definitions loads every configured pattern, files first.
func (p *PatternsConfig) Definitions(root string) []patterns.Definition {
	paths := make([]string, 0, len(p.Files))
	for _, f := range p.Files {
		if !filepath.IsAbs(f) {
			f = filepath.Join(root, f)
		}
		paths = append(paths, f)
	}
	defs := patterns.LoadFiles(paths...)
	return append(defs, p.Custom...)
}

// LoadConfig reads and parses a config.toml file.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// ApplyEnv overrides discovery settings from an env file. A missing file is
// not an error. The process environment is left untouched.
func (c *Config) ApplyEnv(path string) error {
	env, err := godotenv.Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read env file: %w", err)
	}
	return c.applyEnvMap(env)
}

func (c *Config) applyEnvMap(env map[string]string) error {
	if v, ok := env[EnvDiscoveryEnabled]; ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvDiscoveryEnabled, v, err)
		}
		c.Discovery.Enabled = &b
	}
	if v, ok := env[EnvCacheTTL]; ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvCacheTTL, v, err)
		}
		c.Discovery.CacheTTLMillis = &n
	}
	if v, ok := env[EnvRunner]; ok && strings.TrimSpace(v) != "" {
		c.Discovery.RunnerPath = strings.TrimSpace(v)
	}
	if len(env) > 0 {
		logging.Debug("applied env overrides", "keys", len(env))
	}
	return nil
}

// SaveConfig writes the config to the specified path.
func (c *Config) SaveConfig(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// SaveDocumentedConfig writes a fully documented config to the specified path.
func (c *Config) SaveDocumentedConfig(path string) error {
	content := c.GenerateDocumentedConfig()
	return os.WriteFile(path, []byte(content), 0644)
}

type configTemplateData struct {
	Enabled     bool
	CacheTTLMs  int64
	RunnerPath  string
	Concurrency int
	TestlogsDir string
	Files       []string
}

// tomlString formats a string for TOML output with proper escaping.
func tomlString(s string) string {
	escaped := strings.ReplaceAll(s, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	escaped = strings.ReplaceAll(escaped, "\r", `\r`)
	escaped = strings.ReplaceAll(escaped, "\t", `\t`)
	return `"` + escaped + `"`
}

func tomlStrings(ss []string) string {
	quoted := make([]string, len(ss))
	for i, s := range ss {
		quoted[i] = tomlString(s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

var configTemplate = template.Must(template.New("config").Funcs(template.FuncMap{
	"tomlString":  tomlString,
	"tomlStrings": tomlStrings,
}).Parse(configTemplateText))

// GenerateDocumentedConfig renders config.toml with the effective values and
// commented examples for the optional settings. Inline custom patterns are
// not rendered.
func (c *Config) GenerateDocumentedConfig() string {
	data := configTemplateData{
		Enabled:     c.Discovery.IsEnabled(),
		CacheTTLMs:  c.Discovery.GetCacheTTL().Milliseconds(),
		RunnerPath:  c.Discovery.GetRunnerPath(),
		Concurrency: c.Discovery.GetConcurrency(),
		TestlogsDir: c.Discovery.TestlogsDir,
		Files:       c.Patterns.Files,
	}

	var buf bytes.Buffer
	if err := configTemplate.Execute(&buf, data); err != nil {
		return fmt.Sprintf("[discovery]\nenabled = %t\ncache_ttl_ms = %d\nrunner_path = %s\nconcurrency = %d\n",
			data.Enabled, data.CacheTTLMs, tomlString(data.RunnerPath), data.Concurrency)
	}
	return buf.String()
}
