package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/dmora/agentprobe"
	"github.com/dmora/agentprobe/agent/claude"
	"github.com/dmora/agentprobe/artifact"
	"github.com/dmora/agentprobe/config"
	"github.com/dmora/agentprobe/supervisor"
)

type runFlags struct {
	configPath  string
	prompt      string
	promptFile  string
	dir         string
	timeout     time.Duration
	grace       time.Duration
	binary      string
	addDirs     []string
	mode        string
	expectAgent []string
	expectTool  []string
	expectOrder []string
	expectText  []string
	save        bool
	quiet       bool
	logLevel    string
}

// expectation is one named check against a finished run.
type expectation struct {
	name  string
	check func(*agentprobe.Result) bool
}

func runCommand(args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	var f runFlags
	fs := pflag.NewFlagSet("agentprobe run", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.configPath, "config", "", "harness config file (default $"+config.EnvConfig+")")
	fs.StringVarP(&f.prompt, "prompt", "p", "", "prompt to send to the agent")
	fs.StringVar(&f.promptFile, "prompt-file", "", "read the prompt from this file")
	fs.StringVarP(&f.dir, "dir", "C", ".", "project directory the agent runs in")
	fs.DurationVar(&f.timeout, "timeout", config.DefaultTimeout, "run deadline")
	fs.DurationVar(&f.grace, "grace", config.DefaultGracePeriod, "time between graceful stop and force kill")
	fs.StringVar(&f.binary, "binary", config.DefaultBinary, "agent CLI binary")
	fs.StringArrayVar(&f.addDirs, "add-dir", nil, "extra directory for --add-dir (repeatable)")
	fs.StringVar(&f.mode, "permission-mode", config.DefaultPermissionMode, "agent permission mode")
	fs.StringArrayVar(&f.expectAgent, "expect-agent", nil, "require a delegation to this agent (repeatable)")
	fs.StringArrayVar(&f.expectTool, "expect-tool", nil, "require a call to this tool (repeatable)")
	fs.StringArrayVar(&f.expectOrder, "expect-order", nil, "require agent a to be invoked before agent b, as a,b (repeatable)")
	fs.StringArrayVar(&f.expectText, "expect-text", nil, "require this text in the transcript (repeatable)")
	fs.BoolVar(&f.save, "save", false, "save transcript, events and summary to the output directory")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "do not print live progress")
	fs.StringVar(&f.logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return &exitError{code: exitUsage, err: err}
	}
	if fs.NArg() > 0 {
		return usageError("unexpected argument: %s", fs.Arg(0))
	}

	logger, err := newLogger(stderr, f.logLevel)
	if err != nil {
		return &exitError{code: exitUsage, err: err}
	}
	cfg, err := loadConfig(fs, &f, getenv)
	if err != nil {
		return &exitError{code: exitUsage, err: err}
	}
	prompt, err := f.readPrompt()
	if err != nil {
		return &exitError{code: exitUsage, err: err}
	}
	dir, err := filepath.Abs(f.dir)
	if err != nil {
		return usageError("--dir: %v", err)
	}
	mode, err := claude.ParsePermissionMode(cfg.PermissionMode())
	if err != nil {
		return &exitError{code: exitUsage, err: err}
	}
	checks, err := f.expectations()
	if err != nil {
		return &exitError{code: exitUsage, err: err}
	}

	out := newConsole(stdout)
	observers := []supervisor.Observer{supervisor.LogObserver(logger)}
	if !f.quiet {
		observers = append(observers, out.observer())
	}
	sup := supervisor.New(
		supervisor.WithGracePeriod(cfg.GracePeriod()),
		supervisor.WithPollInterval(cfg.PollInterval()),
		supervisor.WithDrainTimeout(cfg.DrainTimeout()),
		supervisor.WithObserver(supervisor.Multi(observers...)),
		supervisor.WithLogger(logger),
	)

	opts := []claude.Option{
		claude.WithBinary(cfg.Binary()),
		claude.WithPermissionMode(mode),
		claude.WithExtraArgs(cfg.Agent.ExtraArgs...),
		claude.WithSupervisor(sup),
		claude.WithLogger(logger),
	}
	for _, d := range cfg.Agent.AddDirs {
		opts = append(opts, claude.WithAddDir(d))
	}
	if cfg.Output.Save {
		format, err := artifact.ParseFormat(cfg.EventsFormat())
		if err != nil {
			return &exitError{code: exitUsage, err: err}
		}
		opts = append(opts, claude.WithArtifacts(artifact.NewWriter(cfg.OutputDir(),
			artifact.WithCompression(cfg.Output.Compress),
			artifact.WithEventsFormat(format),
		)))
	}

	res, err := claude.New(opts...).Run(context.Background(), prompt, dir, cfg.Timeout())
	if err != nil {
		return err
	}
	out.finished(res)

	failed := 0
	for _, c := range checks {
		ok := c.check(res)
		out.check(c.name, ok)
		if !ok {
			failed++
		}
	}

	switch {
	case res.TimedOut():
		return &exitError{code: agentprobe.ExitTimedOut}
	case res.ExitCode > 0:
		return &exitError{code: res.ExitCode}
	case res.ExitCode < 0:
		return &exitError{code: exitFail, err: fmt.Errorf("agent killed by %s", res.Signal)}
	case failed > 0:
		return &exitError{code: exitFail, err: fmt.Errorf("%d of %d expectations failed", failed, len(checks))}
	}
	return nil
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("--log-level: %w", err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

// loadConfig layers the config file, environment overrides and explicitly
// set flags, in that order.
func loadConfig(fs *pflag.FlagSet, f *runFlags, getenv func(string) string) (*config.Config, error) {
	path := f.configPath
	if path == "" {
		path = getenv(config.EnvConfig)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(getenv)

	if fs.Changed("binary") {
		cfg.Agent.Binary = f.binary
	}
	if fs.Changed("permission-mode") {
		cfg.Agent.PermissionMode = f.mode
	}
	if fs.Changed("timeout") {
		cfg.Run.RawTimeout = f.timeout.String()
	}
	if fs.Changed("grace") {
		cfg.Run.RawGracePeriod = f.grace.String()
	}
	cfg.Agent.AddDirs = append(cfg.Agent.AddDirs, f.addDirs...)
	if f.save {
		cfg.Output.Save = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (f *runFlags) readPrompt() (string, error) {
	switch {
	case f.prompt != "" && f.promptFile != "":
		return "", errors.New("--prompt and --prompt-file are mutually exclusive")
	case f.promptFile != "":
		data, err := os.ReadFile(f.promptFile)
		if err != nil {
			return "", fmt.Errorf("--prompt-file: %w", err)
		}
		p := strings.TrimRight(string(data), "\r\n")
		if p == "" {
			return "", errors.New("--prompt-file: file is empty")
		}
		return p, nil
	case f.prompt != "":
		return f.prompt, nil
	default:
		return "", errors.New("one of --prompt or --prompt-file is required")
	}
}

func (f *runFlags) expectations() ([]expectation, error) {
	var checks []expectation
	for _, a := range f.expectAgent {
		checks = append(checks, expectation{
			name:  "agent " + a + " invoked",
			check: func(r *agentprobe.Result) bool { return r.AgentWasUsed(a) },
		})
	}
	for _, t := range f.expectTool {
		checks = append(checks, expectation{
			name:  "tool " + t + " used",
			check: func(r *agentprobe.Result) bool { return r.ToolWasUsed(t) },
		})
	}
	for _, o := range f.expectOrder {
		first, second, ok := strings.Cut(o, ",")
		first, second = strings.TrimSpace(first), strings.TrimSpace(second)
		if !ok || first == "" || second == "" || strings.Contains(second, ",") {
			return nil, fmt.Errorf("--expect-order %q: want first,second", o)
		}
		checks = append(checks, expectation{
			name:  "agent " + first + " before " + second,
			check: func(r *agentprobe.Result) bool { return r.AgentInvokedBefore(first, second) },
		})
	}
	for _, s := range f.expectText {
		checks = append(checks, expectation{
			name:  fmt.Sprintf("transcript contains %q", s),
			check: func(r *agentprobe.Result) bool { return r.ContainsText(s) },
		})
	}
	return checks, nil
}
