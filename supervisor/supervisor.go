//go:build !windows

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/dmora/agentprobe"
	"github.com/dmora/agentprobe/transcript"
)

// ErrEmptyCommand is returned (inside a SpawnError) when Command.Path is empty.
var ErrEmptyCommand = errors.New("supervisor: empty command path")

// Command describes one process to run.
type Command struct {
	// Path is the program to run. A name without a slash is resolved via PATH.
	Path string

	// Args are the arguments after the program name.
	Args []string

	// Dir is the working directory; empty means the caller's.
	Dir string

	// Timeout is the deadline measured from spawn. Values <= 0 use
	// DefaultTimeout.
	Timeout time.Duration

	// Env entries are appended to the inherited environment.
	Env []string
}

// Argv returns Path followed by Args.
func (c Command) Argv() []string {
	return append([]string{c.Path}, c.Args...)
}

// Supervisor runs commands. It holds configuration only; every Run owns its
// process, pipe, transcript and timers, so concurrent Runs are independent.
type Supervisor struct {
	opts Options

	// wrapOutput, if set, wraps the child's output pipe. Tests use it to
	// inject read failures.
	wrapOutput func(io.ReadCloser) io.ReadCloser
}

// New returns a Supervisor configured by opts.
func New(opts ...Option) *Supervisor {
	return &Supervisor{opts: resolveOptions(opts...)}
}

// Options returns the resolved configuration.
func (s *Supervisor) Options() Options { return s.opts }

// Run starts c and supervises it to a terminal state. It always returns a
// non-nil Result.
//
// A process that exits on its own yields StateCompleted and a nil error,
// whatever its exit code. A process that outlives its deadline is stopped
// and yields StateTimedOut, ExitCode agentprobe.ExitTimedOut, Result.Err
// agentprobe.ErrTimeout and a nil error. A spawn failure returns a
// *agentprobe.SpawnError; an output read failure returns a
// *agentprobe.StreamReadError; a canceled ctx stops the process and returns
// an error wrapping ctx.Err(). All three yield StateFailed.
//
// The deadline applies only while the child is running. Once it has exited,
// output from descendants still holding the pipe is bounded by DrainTimeout,
// and the run ends StateCompleted even if the deadline passes meanwhile.
//
// Run returns only after the child has been reaped and its output drained.
func (s *Supervisor) Run(ctx context.Context, c Command) (*agentprobe.Result, error) {
	r := &run{
		id:      uuid.New().String(),
		opts:    s.opts,
		cmd:     c,
		timeout: c.Timeout,
		agg:     transcript.New(),
	}
	if r.timeout <= 0 {
		r.timeout = DefaultTimeout
	}
	r.log = s.opts.Logger.With("run_id", r.id)

	if c.Path == "" {
		return r.failBeforeStart(&agentprobe.SpawnError{Err: ErrEmptyCommand})
	}
	if err := ctx.Err(); err != nil {
		return r.failBeforeStart(fmt.Errorf("supervisor: %w", err))
	}
	if err := checkDir(c.Dir); err != nil {
		return r.failBeforeStart(&agentprobe.SpawnError{Command: c.Path, Err: err})
	}

	if s.opts.SignalCleanup {
		reaper.install(s.opts.Logger)
	}

	r.started = time.Now()
	proc, out, err := spawn(c, s.env(c), s.opts.StopSignal)
	if err != nil {
		return r.failBeforeStart(spawnError(c.Path, err))
	}
	r.proc = proc
	untrack := reaper.track(proc.pgid)
	defer untrack()

	if s.wrapOutput != nil {
		out = s.wrapOutput(out)
	}
	r.stream = newOutputStream(out, s.opts.ReadSize)
	r.log.Debug("process started", "pid", proc.pid(), "command", c.Argv(), "dir", c.Dir, "timeout", r.timeout)

	r.loop(ctx)

	// Anything left in the group outlives the run otherwise.
	_ = proc.ForceKill()
	return r.result()
}

// checkDir reports whether dir is usable as a working directory. A bad
// directory and a missing binary both surface as ENOENT from fork/exec, so
// the directory is checked first.
func checkDir(dir string) error {
	if dir == "" {
		return nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("supervisor: working directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("supervisor: working directory %s: not a directory", dir)
	}
	return nil
}

// env returns the child environment, or nil to inherit the caller's.
func (s *Supervisor) env(c Command) []string {
	if len(s.opts.Env) == 0 && len(c.Env) == 0 {
		return nil
	}
	env := os.Environ()
	env = append(env, s.opts.Env...)
	return append(env, c.Env...)
}

// run is the state of one supervised invocation. Only the loop goroutine
// touches it.
type run struct {
	id      string
	opts    Options
	cmd     Command
	timeout time.Duration
	log     *slog.Logger

	proc    *processHandle
	stream  *outputStream
	agg     *transcript.Aggregator
	started time.Time
	ended   time.Time

	exited      bool
	waitErr     error
	streamEnded bool

	terminating bool
	timedOut    bool
	failure     error

	tools, agents int
}

// loop interleaves output, process exit, the deadline, and the grace and
// drain timers until the child is reaped and its output stream has closed.
func (r *run) loop(ctx context.Context) {
	poll := time.NewTicker(r.opts.PollInterval)
	defer poll.Stop()

	var (
		chunks  = r.stream.chunks
		waitCh  = r.proc.waitCh
		done    = ctx.Done()
		graceC  <-chan time.Time
		drainC  <-chan time.Time
		grace   *time.Timer
		drainer *time.Timer
	)
	defer func() {
		if grace != nil {
			grace.Stop()
		}
		if drainer != nil {
			drainer.Stop()
		}
	}()

	// startGrace begins graceful termination, once.
	startGrace := func() {
		if r.terminating {
			return
		}
		r.terminating = true
		r.requestStop()
		grace = time.NewTimer(r.opts.GracePeriod)
		graceC = grace.C
	}

	for {
		select {
		case f, ok := <-chunks:
			if !ok {
				chunks = nil
				r.streamEnded = true
				r.notify(r.agg.Flush(time.Now()))
				if err := r.stream.err; err != nil && r.failure == nil {
					r.failure = &agentprobe.StreamReadError{Err: err}
					r.log.Warn("output stream failed; terminating", "error", err)
					startGrace()
				}
				if r.exited {
					return
				}
				continue
			}
			r.notify(r.agg.Append(f))

		case err := <-waitCh:
			waitCh = nil
			r.exited = true
			r.waitErr = err
			r.log.Debug("process exited", "error", err, "elapsed", time.Since(r.started))
			if r.streamEnded {
				return
			}
			drainer = time.NewTimer(r.opts.DrainTimeout)
			drainC = drainer.C

		case <-poll.C:
			if !r.exited && !r.terminating && time.Since(r.started) >= r.timeout {
				r.timedOut = true
				r.log.Warn("deadline exceeded; stopping process", "timeout", r.timeout)
				startGrace()
			}

		case <-graceC:
			graceC = nil
			if !r.exited {
				r.log.Warn("grace period elapsed; killing process group", "grace", r.opts.GracePeriod)
				_ = r.proc.ForceKill()
			}

		case <-drainC:
			drainC = nil
			r.log.Warn("output still open after exit; killing process group", "drain_timeout", r.opts.DrainTimeout)
			_ = r.proc.ForceKill()
			r.stream.abandon()

		case <-done:
			done = nil
			if r.failure == nil {
				r.failure = fmt.Errorf("supervisor: %w", ctx.Err())
			}
			r.log.Warn("context canceled; stopping process", "error", ctx.Err())
			startGrace()
		}
	}
}

func (r *run) requestStop() {
	if err := r.proc.RequestGracefulStop(); err != nil {
		r.log.Warn("graceful stop failed; killing process group", "error", err)
		_ = r.proc.ForceKill()
	}
}

// notify updates counters and invokes the observer for each event.
func (r *run) notify(evs []agentprobe.Event) {
	for _, ev := range evs {
		switch ev.Kind {
		case agentprobe.EventToolCall:
			r.tools++
		case agentprobe.EventAgentDelegation:
			r.agents++
		}
		r.log.Debug("event", "kind", ev.Kind, "name", ev.Name, "offset", ev.Offset)
		if r.opts.Observer != nil {
			r.opts.Observer(Progress{
				RunID:      r.id,
				Event:      ev,
				Elapsed:    ev.At.Sub(r.started),
				ToolCount:  r.tools,
				AgentCount: r.agents,
			})
		}
	}
}

// result freezes the run into a Result.
func (r *run) result() (*agentprobe.Result, error) {
	r.ended = time.Now()
	res := r.base()
	res.PID = r.proc.pid()
	res.ExitCode, res.Signal = exitStatus(r.waitErr, r.proc.cmd.ProcessState)

	var err error
	switch {
	case r.failure != nil:
		res.State = agentprobe.StateFailed
		res.Err = r.failure
		err = r.failure
	case r.timedOut:
		res.State = agentprobe.StateTimedOut
		res.ExitCode = agentprobe.ExitTimedOut
		res.Err = agentprobe.ErrTimeout
	default:
		res.State = agentprobe.StateCompleted
	}

	r.log.Info("run finished",
		"state", res.State,
		"exit_code", res.ExitCode,
		"signal", res.Signal,
		"elapsed", res.Elapsed.Round(time.Millisecond),
		"bytes", len(res.Transcript()),
		"tools", r.tools,
		"agents", r.agents,
	)
	return res, err
}

func (r *run) failBeforeStart(err error) (*agentprobe.Result, error) {
	if r.started.IsZero() {
		r.started = time.Now()
	}
	r.ended = time.Now()
	res := r.base()
	res.State = agentprobe.StateFailed
	res.ExitCode = -1
	res.Err = err
	r.log.Warn("run failed to start", "command", r.cmd.Path, "error", err)
	return res, err
}

func (r *run) base() *agentprobe.Result {
	res := agentprobe.NewResult(r.agg.Snapshot())
	res.ID = r.id
	res.Command = r.cmd.Argv()
	res.Dir = r.cmd.Dir
	res.StartedAt = r.started
	res.Elapsed = r.ended.Sub(r.started)
	return res
}
