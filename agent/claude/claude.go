package claude

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/dmora/agentprobe"
	"github.com/dmora/agentprobe/artifact"
	"github.com/dmora/agentprobe/internal/textutil"
	"github.com/dmora/agentprobe/supervisor"
)

// PermissionMode controls Claude Code's permission behavior.
type PermissionMode string

const (
	// PermissionDefault uses Claude Code's default permission handling.
	// The --permission-mode flag is omitted when this mode is active.
	PermissionDefault PermissionMode = "default"

	// PermissionAcceptEdits auto-accepts file edit operations.
	PermissionAcceptEdits PermissionMode = "acceptEdits"

	// PermissionBypass bypasses all permission prompts.
	PermissionBypass PermissionMode = "bypassPermissions"

	// PermissionPlan restricts Claude to plan-only mode.
	PermissionPlan PermissionMode = "plan"
)

// ParsePermissionMode validates s as a permission mode. "bypassAll" is
// accepted as an alias of bypassPermissions; empty means PermissionDefault.
func ParsePermissionMode(s string) (PermissionMode, error) {
	switch PermissionMode(s) {
	case "", PermissionDefault:
		return PermissionDefault, nil
	case PermissionAcceptEdits, PermissionBypass, PermissionPlan:
		return PermissionMode(s), nil
	case "bypassAll":
		return PermissionBypass, nil
	default:
		return "", fmt.Errorf("claude: unknown permission mode %q; valid: default, acceptEdits, bypassPermissions, plan", s)
	}
}

const defaultBinary = "claude"

// ErrInvalidPrompt is returned for a prompt that cannot be passed as an
// argument.
var ErrInvalidPrompt = errors.New("claude: invalid prompt")

// Runner runs Claude Code prompts against project directories.
// A Runner is safe for concurrent use; each Run is independent.
type Runner struct {
	binary    string
	addDirs   []string
	mode      PermissionMode
	verbose   bool
	extraArgs []string
	sup       *supervisor.Supervisor
	artifacts *artifact.Writer
	logger    *slog.Logger
}

// Option configures a Runner at construction time.
type Option func(*Runner)

// WithBinary overrides the Claude CLI binary path.
// Empty values are ignored; the default is "claude".
func WithBinary(path string) Option {
	return func(r *Runner) {
		if path != "" {
			r.binary = path
		}
	}
}

// WithAddDir adds a directory passed as --add-dir. Repeatable; order is
// preserved. Empty values are ignored.
func WithAddDir(dir string) Option {
	return func(r *Runner) {
		if dir != "" {
			r.addDirs = append(r.addDirs, dir)
		}
	}
}

// WithPermissionMode sets --permission-mode. The default is
// PermissionBypass; PermissionDefault omits the flag.
func WithPermissionMode(mode PermissionMode) Option {
	return func(r *Runner) {
		if mode != "" {
			r.mode = mode
		}
	}
}

// WithVerbose adds --verbose, which some CLI versions require alongside
// stream-json output in print mode.
func WithVerbose(enabled bool) Option {
	return func(r *Runner) {
		r.verbose = enabled
	}
}

// WithExtraArgs appends arguments after the standard flags.
func WithExtraArgs(args ...string) Option {
	return func(r *Runner) {
		r.extraArgs = append(r.extraArgs, args...)
	}
}

// WithSupervisor sets the supervisor that runs the CLI. The default is
// supervisor.New().
func WithSupervisor(s *supervisor.Supervisor) Option {
	return func(r *Runner) {
		if s != nil {
			r.sup = s
		}
	}
}

// WithArtifacts saves every run's transcript, events and summary.
func WithArtifacts(w *artifact.Writer) Option {
	return func(r *Runner) {
		r.artifacts = w
	}
}

// WithLogger sets the logger for run and artifact records. Nil is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a Runner with the given options.
func New(opts ...Option) *Runner {
	r := &Runner{
		binary: defaultBinary,
		mode:   PermissionBypass,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.sup == nil {
		r.sup = supervisor.New(supervisor.WithLogger(r.logger))
	}
	return r
}

// Binary returns the CLI binary the Runner invokes.
func (r *Runner) Binary() string { return r.binary }

// Args builds the CLI arguments for prompt:
//
//	-p <prompt> [--add-dir <dir>]... [--permission-mode <mode>] --output-format stream-json [--verbose] [extra...]
func (r *Runner) Args(prompt string) []string {
	args := []string{"-p", prompt}
	for _, d := range r.addDirs {
		args = append(args, "--add-dir", d)
	}
	if r.mode != PermissionDefault {
		args = append(args, "--permission-mode", string(r.mode))
	}
	args = append(args, "--output-format", "stream-json")
	if r.verbose {
		args = append(args, "--verbose")
	}
	return append(args, r.extraArgs...)
}

// Validate reports whether the binary can be found and the configured
// permission mode is known.
func (r *Runner) Validate() error {
	if _, err := ParsePermissionMode(string(r.mode)); err != nil {
		return err
	}
	if _, err := exec.LookPath(r.binary); err != nil {
		return fmt.Errorf("%w: %s: %w", agentprobe.ErrUnavailable, r.binary, err)
	}
	return nil
}

// Run executes prompt in dir and waits for a terminal state. dir must be an
// absolute path to an existing directory. A timeout <= 0 uses
// supervisor.DefaultTimeout.
//
// The returned error follows supervisor.Supervisor.Run: a timed-out run
// returns a Result with TimedOut() true and a nil error. Argument validation
// failures return a nil Result.
func (r *Runner) Run(ctx context.Context, prompt, dir string, timeout time.Duration) (*agentprobe.Result, error) {
	if prompt == "" || textutil.ContainsNull(prompt) {
		return nil, fmt.Errorf("%w: empty or contains null bytes", ErrInvalidPrompt)
	}
	if err := validateDir(dir); err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = supervisor.DefaultTimeout
	}

	r.logger.Info("running claude",
		"binary", r.binary,
		"dir", dir,
		"timeout", timeout,
		"prompt", textutil.Preview(prompt),
	)
	res, err := r.sup.Run(ctx, supervisor.Command{
		Path:    r.binary,
		Args:    r.Args(prompt),
		Dir:     dir,
		Timeout: timeout,
	})
	if r.artifacts != nil && res != nil && res.PID != 0 {
		if paths, werr := r.artifacts.Write(res); werr != nil {
			r.logger.Warn("saving run artifacts failed", "run_id", res.ID, "error", werr)
		} else {
			r.logger.Info("run artifacts saved", "run_id", res.ID, "transcript", paths.Transcript, "summary", paths.Summary)
		}
	}
	return res, err
}

func validateDir(dir string) error {
	if !filepath.IsAbs(dir) {
		return fmt.Errorf("claude: working directory must be absolute: %q", dir)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("claude: working directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("claude: working directory is not a directory: %s", dir)
	}
	return nil
}
