//go:build !windows

// Package command runs build and setup commands (npm, make, go) inside a
// project directory and captures their output separately.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/dmora/agentprobe"
)

// DefaultTimeout applies when Spec.Timeout is zero.
const DefaultTimeout = 300 * time.Second

// Spec describes a command to run.
type Spec struct {
	Name    string
	Args    []string
	Dir     string
	Timeout time.Duration
	Env     []string // appended to the inherited environment
}

// Output is the captured result of a finished command.
type Output struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Success reports whether the command exited with status 0.
func (o Output) Success() bool { return o.ExitCode == 0 }

// Run executes s and waits for it to finish. A non-zero exit is reported in
// Output.ExitCode with a nil error. A missing binary returns an error
// wrapping agentprobe.ErrUnavailable; exceeding the timeout kills the
// command's process group and returns an error wrapping agentprobe.ErrTimeout
// along with the output captured so far.
func Run(ctx context.Context, s Spec) (Output, error) {
	if s.Name == "" {
		return Output{}, errors.New("command: empty command name")
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.Name, s.Args...)
	cmd.Dir = s.Dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if len(s.Env) > 0 {
		cmd.Env = append(os.Environ(), s.Env...)
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		err := unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
		if errors.Is(err, unix.ESRCH) {
			return nil
		}
		return err
	}
	cmd.WaitDelay = time.Second

	err := cmd.Run()
	out := Output{Stdout: stdout.String(), Stderr: stderr.String()}
	if cmd.ProcessState != nil {
		out.ExitCode = cmd.ProcessState.ExitCode()
	}

	var (
		exitErr *exec.ExitError
		execErr *exec.Error
	)
	switch {
	case err == nil:
		return out, nil
	case ctx.Err() != nil && cmd.ProcessState != nil:
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return out, fmt.Errorf("command: %s after %v: %w", s.Name, timeout, agentprobe.ErrTimeout)
		}
		return out, fmt.Errorf("command: %s: %w", s.Name, ctx.Err())
	case errors.As(err, &exitErr):
		return out, nil
	case errors.As(err, &execErr):
		return out, fmt.Errorf("command: %s: %w: %w", s.Name, agentprobe.ErrUnavailable, err)
	default:
		return out, fmt.Errorf("command: %s: %w", s.Name, err)
	}
}

// NPM runs npm in dir. subcommand is split on whitespace, so "run build"
// becomes ["run", "build"].
func NPM(ctx context.Context, dir, subcommand string) (Output, error) {
	return Run(ctx, Spec{Name: "npm", Args: strings.Fields(subcommand), Dir: dir})
}
