// Package supervisor runs an external command to a terminal state while
// capturing its output.
//
// A run moves through Starting, Running and one of Completed, TimedOut or
// Failed. The child's stdout and stderr are merged into a single pipe and read
// in fragments that feed a transcript.Aggregator; decoded events are passed
// to an optional Observer as they are recorded.
//
// Termination is owned by the supervisor: when the deadline elapses (or the
// context is canceled) the child's process group receives the stop signal,
// then SIGKILL after the grace period. Output is drained until the pipe
// closes, bounded by the drain timeout once the direct child has exited, so
// trailing bytes written just before exit are never lost.
//
// Children run in their own process group. A process-wide handler for
// SIGINT, SIGTERM and SIGHUP kills every live group before the signal is
// re-raised, and on Linux the kernel kills the child if the caller dies.
//
// Usage:
//
//	sup := supervisor.New(supervisor.WithObserver(func(p supervisor.Progress) {
//	    fmt.Println(p.Event)
//	}))
//	res, err := sup.Run(ctx, supervisor.Command{
//	    Path:    "claude",
//	    Args:    []string{"-p", prompt, "--output-format", "stream-json"},
//	    Dir:     projectDir,
//	    Timeout: 2 * time.Minute,
//	})
package supervisor
