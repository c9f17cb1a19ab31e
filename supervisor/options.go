package supervisor

import (
	"log/slog"
	"syscall"
	"time"
)

// Default supervisor configuration values.
const (
	// DefaultTimeout is the deadline used when Command.Timeout is not positive.
	DefaultTimeout = 120 * time.Second

	defaultGracePeriod  = 5 * time.Second
	defaultPollInterval = 50 * time.Millisecond
	defaultDrainTimeout = 2 * time.Second
	defaultReadSize     = 32 << 10 // 32 KiB
)

// Options holds resolved configuration for a Supervisor.
// Use New with Option functions to customize these values.
type Options struct {
	// GracePeriod is the time to wait after the stop signal before SIGKILL.
	GracePeriod time.Duration

	// PollInterval is how often the deadline is checked.
	PollInterval time.Duration

	// DrainTimeout bounds how long output is drained after the direct child
	// has exited. Past it, the process group is killed and the pipe closed.
	DrainTimeout time.Duration

	// ReadSize is the maximum size of one output fragment in bytes.
	ReadSize int

	// StopSignal is sent to the process group to request a graceful stop.
	StopSignal syscall.Signal

	// Observer, if set, is called for every recorded event.
	Observer Observer

	// Logger receives lifecycle records. Defaults to a discarding logger.
	Logger *slog.Logger

	// Env entries are appended to the inherited environment of every run.
	Env []string

	// SignalCleanup installs the process-wide signal handler that kills live
	// process groups when the caller receives SIGINT, SIGTERM or SIGHUP.
	SignalCleanup bool
}

// Option configures a Supervisor at construction time.
type Option func(*Options)

// WithGracePeriod sets the time to wait after the stop signal before SIGKILL.
// Values <= 0 are ignored.
func WithGracePeriod(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.GracePeriod = d
		}
	}
}

// WithPollInterval sets how often the deadline is checked.
// Values <= 0 are ignored.
func WithPollInterval(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.PollInterval = d
		}
	}
}

// WithDrainTimeout sets how long output is drained after the child exits.
// Values <= 0 are ignored.
func WithDrainTimeout(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.DrainTimeout = d
		}
	}
}

// WithReadSize sets the maximum fragment size in bytes.
// Values <= 0 are ignored.
func WithReadSize(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.ReadSize = n
		}
	}
}

// WithStopSignal sets the graceful stop signal. Zero is ignored.
func WithStopSignal(sig syscall.Signal) Option {
	return func(o *Options) {
		if sig != 0 {
			o.StopSignal = sig
		}
	}
}

// WithObserver sets the callback invoked for every recorded event.
func WithObserver(obs Observer) Option {
	return func(o *Options) {
		o.Observer = obs
	}
}

// WithLogger sets the logger for lifecycle records. Nil is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

// WithEnv appends KEY=VALUE entries to the environment of every run.
func WithEnv(env ...string) Option {
	return func(o *Options) {
		o.Env = append(o.Env, env...)
	}
}

// WithoutSignalCleanup disables the process-wide signal handler. Callers
// that manage their own signal handling use it; children still run in their
// own process groups.
func WithoutSignalCleanup() Option {
	return func(o *Options) {
		o.SignalCleanup = false
	}
}

func resolveOptions(opts ...Option) Options {
	o := Options{
		GracePeriod:   defaultGracePeriod,
		PollInterval:  defaultPollInterval,
		DrainTimeout:  defaultDrainTimeout,
		ReadSize:      defaultReadSize,
		StopSignal:    syscall.SIGTERM,
		Logger:        slog.New(slog.DiscardHandler),
		SignalCleanup: true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
