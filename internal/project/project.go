package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/newhook/testnorm/internal/discovery"
	"github.com/newhook/testnorm/internal/lineparser"
	"github.com/newhook/testnorm/internal/logging"
	"github.com/newhook/testnorm/internal/patterns"
	"github.com/newhook/testnorm/internal/resolver"
	"github.com/newhook/testnorm/internal/xmlparser"
)

const (
	// ConfigDir is the directory name for workspace configuration.
	ConfigDir = logging.ConfigDir
	// ConfigFile is the name of the workspace config file.
	ConfigFile = "config.toml"
	// EnvFile is the name of the optional override file in the workspace root.
	EnvFile = ".env"
)

// ErrNoWorkspace is returned by Find when no .testnorm directory exists in
// the start directory or any of its parents.
var ErrNoWorkspace = errors.New("no testnorm workspace found")

// Project is a workspace with its loaded configuration.
type Project struct {
	Root   string  // Workspace directory path
	Config *Config // Parsed config.toml with .env overrides applied
}

// Find finds a workspace from a flag value or current directory.
// If flagValue is non-empty, uses that path; otherwise uses cwd.
func Find(flagValue string) (*Project, error) {
	if flagValue != "" {
		return find(flagValue)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return find(cwd)
}

// FindOrDefault is Find, except that a missing workspace yields a project
// rooted at the start directory with default configuration.
func FindOrDefault(flagValue string) (*Project, error) {
	p, err := Find(flagValue)
	if !errors.Is(err, ErrNoWorkspace) {
		return p, err
	}
	root := flagValue
	if root == "" {
		if root, err = os.Getwd(); err != nil {
			return nil, err
		}
	}
	root, err = filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}
	cfg := &Config{}
	if err := cfg.ApplyEnv(filepath.Join(root, EnvFile)); err != nil {
		return nil, err
	}
	return &Project{Root: root, Config: cfg}, nil
}

// find walks up from startDir looking for a .testnorm/config.toml.
func find(startDir string) (*Project, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	for {
		configPath := filepath.Join(dir, ConfigDir, ConfigFile)
		if _, err := os.Stat(configPath); err == nil {
			return load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, fmt.Errorf("%w (no %s directory)", ErrNoWorkspace, ConfigDir)
		}
		dir = parent
	}
}

// load loads a workspace from the given root directory.
func load(root string) (*Project, error) {
	configPath := filepath.Join(root, ConfigDir, ConfigFile)
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
	}
	if err := cfg.ApplyEnv(filepath.Join(root, EnvFile)); err != nil {
		return nil, err
	}

	// Initialize logging to .testnorm/debug.log
	if err := logging.Init(root); err != nil {
		logging.Warn("failed to initialize logging", "error", err)
	}

	return &Project{Root: root, Config: cfg}, nil
}

// Create initializes a new workspace at the given directory.
func Create(dir string) (*Project, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	configDir := filepath.Join(absDir, ConfigDir)
	configPath := filepath.Join(configDir, ConfigFile)
	if _, err := os.Stat(configPath); err == nil {
		return nil, fmt.Errorf("workspace already exists at %s", absDir)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create workspace directory: %w", err)
	}

	cfg := &Config{}
	if err := cfg.SaveDocumentedConfig(configPath); err != nil {
		return nil, fmt.Errorf("failed to write config: %w", err)
	}
	return &Project{Root: absDir, Config: cfg}, nil
}

// Registry builds the pattern registry: built-ins plus configured files and
// inline grammars.
func (p *Project) Registry() *patterns.Registry {
	return patterns.NewRegistry(p.Config.Patterns.Definitions(p.Root)...)
}

// DiscoveryConfig returns the discovery boundary inputs.
func (p *Project) DiscoveryConfig() discovery.Config {
	d := &p.Config.Discovery
	return discovery.Config{
		Enabled:     d.IsEnabled(),
		CacheTTL:    d.GetCacheTTL(),
		RunnerPath:  d.GetRunnerPath(),
		Concurrency: d.GetConcurrency(),
	}
}

// NewService wires the parsers, resolver and caches for this workspace.
func (p *Project) NewService() *discovery.Service {
	lines := lineparser.New(p.Registry())
	loader := resolver.NewFileLoader(xmlparser.New(lines), p.Config.Discovery.GetTestlogsDir())
	return discovery.NewService(p.DiscoveryConfig(), lines, resolver.New(loader.Load))
}

// Close closes the workspace log file.
func (p *Project) Close() error {
	return logging.Close()
}
