// Package config loads the optional agentprobe YAML file and applies
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for harness configuration.
const (
	DefaultBinary         = "claude"
	DefaultPermissionMode = "bypassPermissions"
	DefaultTimeout        = 120 * time.Second
	DefaultGracePeriod    = 5 * time.Second
	DefaultPollInterval   = 50 * time.Millisecond
	DefaultDrainTimeout   = 2 * time.Second
	DefaultOutputDir      = "/tmp/sdd-tests"
	DefaultEventsFormat   = "jsonl"
)

// Environment variables consulted by ApplyEnv.
const (
	EnvConfig    = "AGENTPROBE_CONFIG"
	EnvBinary    = "CLAUDE_BINARY"
	EnvOutputDir = "TEST_OUTPUT_DIR"
	EnvAddDir    = "AGENTPROBE_ADD_DIR" // list separated by os.PathListSeparator
)

// Config holds the parsed harness configuration.
// All fields are optional; zero values represent defaults.
type Config struct {
	Agent  AgentConfig  `yaml:"agent"`
	Run    RunConfig    `yaml:"run"`
	Output OutputConfig `yaml:"output"`
}

// AgentConfig controls how the agent CLI is invoked.
type AgentConfig struct {
	Binary         string   `yaml:"binary"`          // default: claude
	AddDirs        []string `yaml:"add_dirs"`        // passed as --add-dir, in order
	PermissionMode string   `yaml:"permission_mode"` // default: bypassPermissions
	ExtraArgs      []string `yaml:"extra_args"`      // appended after the standard flags
}

// RunConfig controls supervisor timing. Durations are strings such as "90s".
type RunConfig struct {
	RawTimeout      string `yaml:"timeout"`
	RawGracePeriod  string `yaml:"grace_period"`
	RawPollInterval string `yaml:"poll_interval"`
	RawDrainTimeout string `yaml:"drain_timeout"`
}

// OutputConfig controls run artifact persistence.
type OutputConfig struct {
	Dir          string `yaml:"dir"`           // default: /tmp/sdd-tests
	Save         bool   `yaml:"save"`          // write artifacts for every run
	Compress     bool   `yaml:"compress"`      // zstd-compress the transcript
	EventsFormat string `yaml:"events_format"` // jsonl or cbor
}

// Binary returns the configured agent binary or the default.
func (c *Config) Binary() string {
	if c.Agent.Binary != "" {
		return c.Agent.Binary
	}
	return DefaultBinary
}

// PermissionMode returns the configured permission mode or the default.
func (c *Config) PermissionMode() string {
	if c.Agent.PermissionMode != "" {
		return c.Agent.PermissionMode
	}
	return DefaultPermissionMode
}

// Timeout returns the configured run deadline or the default.
func (c *Config) Timeout() time.Duration {
	return durationOr(c.Run.RawTimeout, DefaultTimeout)
}

// GracePeriod returns the configured grace period or the default.
func (c *Config) GracePeriod() time.Duration {
	return durationOr(c.Run.RawGracePeriod, DefaultGracePeriod)
}

// PollInterval returns the configured poll interval or the default.
func (c *Config) PollInterval() time.Duration {
	return durationOr(c.Run.RawPollInterval, DefaultPollInterval)
}

// DrainTimeout returns the configured drain timeout or the default.
func (c *Config) DrainTimeout() time.Duration {
	return durationOr(c.Run.RawDrainTimeout, DefaultDrainTimeout)
}

// OutputDir returns the configured artifact directory or the default.
func (c *Config) OutputDir() string {
	if c.Output.Dir != "" {
		return c.Output.Dir
	}
	return DefaultOutputDir
}

// EventsFormat returns the configured events encoding or the default.
func (c *Config) EventsFormat() string {
	if c.Output.EventsFormat != "" {
		return c.Output.EventsFormat
	}
	return DefaultEventsFormat
}

func durationOr(raw string, def time.Duration) time.Duration {
	if raw != "" {
		d, err := time.ParseDuration(raw)
		if err == nil && d > 0 {
			return d
		}
	}
	return def
}

// Load reads the config file at path. An empty path, or a path that does not
// exist, yields an empty Config whose accessors return defaults. Unknown keys
// are rejected.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables read through getenv
// (os.Getenv in production). Empty values are ignored.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvBinary); v != "" {
		c.Agent.Binary = v
	}
	if v := getenv(EnvOutputDir); v != "" {
		c.Output.Dir = v
	}
	if v := getenv(EnvAddDir); v != "" {
		for _, d := range strings.Split(v, string(os.PathListSeparator)) {
			if d != "" {
				c.Agent.AddDirs = append(c.Agent.AddDirs, d)
			}
		}
	}
}

// Validate reports malformed values that the accessors would otherwise
// silently replace with defaults.
func (c *Config) Validate() error {
	var errs []error
	for name, raw := range map[string]string{
		"run.timeout":       c.Run.RawTimeout,
		"run.grace_period":  c.Run.RawGracePeriod,
		"run.poll_interval": c.Run.RawPollInterval,
		"run.drain_timeout": c.Run.RawDrainTimeout,
	} {
		if raw == "" {
			continue
		}
		if d, err := time.ParseDuration(raw); err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("config: %s: invalid duration %q", name, raw))
		}
	}
	switch c.EventsFormat() {
	case "jsonl", "cbor":
	default:
		errs = append(errs, fmt.Errorf("config: output.events_format: %q; valid: jsonl, cbor", c.Output.EventsFormat))
	}
	return errors.Join(errs...)
}
