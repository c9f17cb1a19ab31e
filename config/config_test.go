package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agentprobe.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
agent:
  binary: /opt/claude
  add_dirs: [/plugins/sdd, /plugins/extra]
  permission_mode: acceptEdits
  extra_args: ["--verbose"]
run:
  timeout: 5m
  grace_period: 2s
  poll_interval: 20ms
  drain_timeout: 1s
output:
  dir: /var/tmp/runs
  save: true
  compress: true
  events_format: cbor
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Binary() != "/opt/claude" {
		t.Errorf("Binary() = %q, want %q", cfg.Binary(), "/opt/claude")
	}
	if got := strings.Join(cfg.Agent.AddDirs, ","); got != "/plugins/sdd,/plugins/extra" {
		t.Errorf("AddDirs = %q", got)
	}
	if cfg.PermissionMode() != "acceptEdits" {
		t.Errorf("PermissionMode() = %q, want acceptEdits", cfg.PermissionMode())
	}
	if cfg.Timeout() != 5*time.Minute {
		t.Errorf("Timeout() = %v, want 5m", cfg.Timeout())
	}
	if cfg.GracePeriod() != 2*time.Second {
		t.Errorf("GracePeriod() = %v, want 2s", cfg.GracePeriod())
	}
	if cfg.PollInterval() != 20*time.Millisecond {
		t.Errorf("PollInterval() = %v, want 20ms", cfg.PollInterval())
	}
	if cfg.DrainTimeout() != time.Second {
		t.Errorf("DrainTimeout() = %v, want 1s", cfg.DrainTimeout())
	}
	if cfg.OutputDir() != "/var/tmp/runs" || !cfg.Output.Save || !cfg.Output.Compress {
		t.Errorf("Output = %+v", cfg.Output)
	}
	if cfg.EventsFormat() != "cbor" {
		t.Errorf("EventsFormat() = %q, want cbor", cfg.EventsFormat())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	assertDefaults(t, cfg)
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	assertDefaults(t, cfg)
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	assertDefaults(t, cfg)
}

func TestLoad_UnknownKey(t *testing.T) {
	_, err := Load(writeConfig(t, "agent:\n  binnary: x\n"))
	if err == nil {
		t.Fatal("Load: want error for unknown key")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "agent: [unclosed\n"))
	if err == nil {
		t.Fatal("Load: want parse error")
	}
}

func assertDefaults(t *testing.T, cfg *Config) {
	t.Helper()
	if cfg.Binary() != DefaultBinary {
		t.Errorf("Binary() = %q, want %q", cfg.Binary(), DefaultBinary)
	}
	if cfg.PermissionMode() != DefaultPermissionMode {
		t.Errorf("PermissionMode() = %q, want %q", cfg.PermissionMode(), DefaultPermissionMode)
	}
	if cfg.Timeout() != DefaultTimeout {
		t.Errorf("Timeout() = %v, want %v", cfg.Timeout(), DefaultTimeout)
	}
	if cfg.GracePeriod() != DefaultGracePeriod {
		t.Errorf("GracePeriod() = %v, want %v", cfg.GracePeriod(), DefaultGracePeriod)
	}
	if cfg.PollInterval() != DefaultPollInterval {
		t.Errorf("PollInterval() = %v, want %v", cfg.PollInterval(), DefaultPollInterval)
	}
	if cfg.DrainTimeout() != DefaultDrainTimeout {
		t.Errorf("DrainTimeout() = %v, want %v", cfg.DrainTimeout(), DefaultDrainTimeout)
	}
	if cfg.OutputDir() != DefaultOutputDir {
		t.Errorf("OutputDir() = %q, want %q", cfg.OutputDir(), DefaultOutputDir)
	}
	if cfg.EventsFormat() != DefaultEventsFormat {
		t.Errorf("EventsFormat() = %q, want %q", cfg.EventsFormat(), DefaultEventsFormat)
	}
}

func TestDurations_InvalidFallBack(t *testing.T) {
	cfg := &Config{Run: RunConfig{RawTimeout: "soon", RawGracePeriod: "-1s"}}
	if cfg.Timeout() != DefaultTimeout {
		t.Errorf("Timeout() = %v, want default", cfg.Timeout())
	}
	if cfg.GracePeriod() != DefaultGracePeriod {
		t.Errorf("GracePeriod() = %v, want default", cfg.GracePeriod())
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate: want error")
	}
	for _, want := range []string{"run.timeout", "run.grace_period"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate error %q missing %q", err, want)
		}
	}
}

func TestValidate_EventsFormat(t *testing.T) {
	cfg := &Config{Output: OutputConfig{EventsFormat: "xml"}}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "events_format") {
		t.Fatalf("Validate = %v, want events_format error", err)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvBinary:    "/usr/local/bin/claude",
		EnvOutputDir: "/tmp/out",
		EnvAddDir:    "/a" + string(os.PathListSeparator) + string(os.PathListSeparator) + "/b",
	}
	cfg := &Config{Agent: AgentConfig{Binary: "from-file", AddDirs: []string{"/file"}}}
	cfg.ApplyEnv(func(k string) string { return env[k] })

	if cfg.Binary() != "/usr/local/bin/claude" {
		t.Errorf("Binary() = %q", cfg.Binary())
	}
	if cfg.OutputDir() != "/tmp/out" {
		t.Errorf("OutputDir() = %q", cfg.OutputDir())
	}
	if got := strings.Join(cfg.Agent.AddDirs, ","); got != "/file,/a,/b" {
		t.Errorf("AddDirs = %q, want /file,/a,/b", got)
	}
}

func TestApplyEnv_EmptyIgnored(t *testing.T) {
	cfg := &Config{Agent: AgentConfig{Binary: "keep"}}
	cfg.ApplyEnv(func(string) string { return "" })
	if cfg.Binary() != "keep" || cfg.Output.Dir != "" || len(cfg.Agent.AddDirs) != 0 {
		t.Errorf("empty env changed config: %+v", cfg)
	}
}
