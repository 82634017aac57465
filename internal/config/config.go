package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvStepTimeout overrides the per-step timeout, in whole seconds.
const EnvStepTimeout = "GROUNDCREW_STEP_TIMEOUT"

// DefaultStepTimeout bounds each wrapped tool invocation.
const DefaultStepTimeout = 180 * time.Second

// Build step modes for the pre-commit runner.
const (
	BuildAuto   = "auto"
	BuildAlways = "always"
	BuildNever  = "never"
)

// Config captures the per-project automation configuration.
type Config struct {
	Version    int              `yaml:"version"`
	Tools      ToolsConfig      `yaml:"tools"`
	Precommit  PrecommitConfig  `yaml:"precommit"`
	Links      []LinkSpec       `yaml:"links"`
	Headers    HeadersConfig    `yaml:"headers"`
	Analyze    AnalyzeConfig    `yaml:"analyze"`
	Provisions ProvisionsConfig `yaml:"provisions"`
}

// ToolsConfig controls where managed binaries land and which versions are
// pinned instead of resolved from the latest release.
type ToolsConfig struct {
	BinDir string            `yaml:"bin_dir,omitempty"`
	Pins   map[string]string `yaml:"pins,omitempty"`
}

// PrecommitConfig tunes the pre-commit runner.
type PrecommitConfig struct {
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	Build          string `yaml:"build"`
}

// LinkSpec describes one symlink the link materializer maintains. Path is
// relative to the project root; Target is relative to the link's directory
// unless absolute.
type LinkSpec struct {
	Path   string `yaml:"path"`
	Target string `yaml:"target"`
}

// HeadersConfig configures the license header normalizer.
type HeadersConfig struct {
	License    string   `yaml:"license,omitempty"`
	Owner      string   `yaml:"owner,omitempty"`
	Extensions []string `yaml:"extensions"`
}

// AnalyzeConfig narrows what the analyzers look at.
type AnalyzeConfig struct {
	Include []string `yaml:"include,omitempty"`
}

// ProvisionsConfig locates provisioning profiles and sets the expiry horizon.
type ProvisionsConfig struct {
	Dir        string `yaml:"dir,omitempty"`
	WithinDays int    `yaml:"within_days,omitempty"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Version: 1,
		Precommit: PrecommitConfig{
			TimeoutSeconds: int(DefaultStepTimeout / time.Second),
			Build:          BuildAuto,
		},
		Headers: HeadersConfig{
			Extensions: []string{"swift", "h", "m", "mm", "c", "cpp", "sh", "py"},
		},
		Provisions: ProvisionsConfig{
			Dir:        "check",
			WithinDays: 30,
		},
	}
}

// Load reads the YAML configuration from disk if it exists, otherwise returns
// the default configuration.
func Load(path string) (Config, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			cfg.ApplyDefaults()
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults ensures nested fields fall back to sensible defaults when the
// YAML omits them.
func (c *Config) ApplyDefaults() {
	defaults := Default()

	if c.Version == 0 {
		c.Version = defaults.Version
	}
	if c.Precommit.TimeoutSeconds == 0 {
		c.Precommit.TimeoutSeconds = defaults.Precommit.TimeoutSeconds
	}
	if c.Precommit.Build == "" {
		c.Precommit.Build = defaults.Precommit.Build
	}
	if len(c.Headers.Extensions) == 0 {
		c.Headers.Extensions = defaults.Headers.Extensions
	}
	if c.Provisions.Dir == "" {
		c.Provisions.Dir = defaults.Provisions.Dir
	}
	if c.Provisions.WithinDays == 0 {
		c.Provisions.WithinDays = defaults.Provisions.WithinDays
	}
}

// StepTimeout returns the per-step wall clock budget. The environment
// override wins over the configured value.
func (c Config) StepTimeout() time.Duration {
	if raw := os.Getenv(EnvStepTimeout); raw != "" {
		if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	if c.Precommit.TimeoutSeconds > 0 {
		return time.Duration(c.Precommit.TimeoutSeconds) * time.Second
	}
	return DefaultStepTimeout
}

// Pin returns the pinned version for a tool, or the empty string when the
// tool tracks the latest release.
func (c Config) Pin(tool string) string {
	if c.Tools.Pins == nil {
		return ""
	}
	return c.Tools.Pins[tool]
}

// Marshal returns the YAML encoding of the configuration.
func (c Config) Marshal() ([]byte, error) {
	buf, err := yaml.Marshal(&c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return buf, nil
}

// DefaultYAML is the commented template written by `groundcrew config init`.
// It must parse back to Default().
const DefaultYAML = `# groundcrew project configuration. Every section is optional; omitted
# values fall back to the defaults shown here.
version: 1

tools:
  # Where managed binaries land. GROUNDCREW_BIN_DIR overrides.
  # bin_dir: ~/.local/bin
  # Pin a tool to a release instead of tracking the latest.
  # pins:
  #   swiftlint: 0.57.0

precommit:
  # Per-step timeout in seconds. GROUNDCREW_STEP_TIMEOUT overrides.
  timeout_seconds: 180
  # Build step policy: auto skips the build in CI and when no project
  # descriptor exists; always and never override that.
  build: auto

# Symlinks maintained by `groundcrew link`. Paths are relative to the
# project root; targets resolve from the link's own directory.
# links:
#   - path: Tools/swiftlint.yml
#     target: ../.swiftlint.yml

headers:
  # owner: Example Corp
  # license: MIT
  extensions: [swift, h, m, mm, c, cpp, sh, py]

# Directories handed to the C++ analyzers. Defaults to the project root.
# analyze:
#   include: [Sources]

provisions:
  dir: check
  within_days: 30
`
