package agentprobe

import "errors"

// Sentinel errors for harness operations.
var (
	// ErrUnavailable indicates the command could not be found or executed
	// (binary missing from PATH, not executable).
	ErrUnavailable = errors.New("agentprobe: command unavailable")

	// ErrTimeout is recorded in Result.Err when the deadline elapsed and the
	// process was terminated. Run does not return it as an error: a timeout
	// is an outcome callers assert on, not a harness failure.
	ErrTimeout = errors.New("agentprobe: deadline exceeded")

	// ErrStreamRead indicates the output stream failed mid-run.
	ErrStreamRead = errors.New("agentprobe: output stream read failed")
)

// ExitTimedOut is the exit code reported for a run that hit its deadline.
// It follows the coreutils timeout(1) convention. The signal that ended the
// process is reported separately in Result.Signal.
const ExitTimedOut = 124

// SpawnError reports that the child process could not be created.
// Nothing was read and no termination was needed.
type SpawnError struct {
	Command string
	Err     error
}

func (e *SpawnError) Error() string {
	return "agentprobe: spawn " + e.Command + ": " + e.Err.Error()
}

func (e *SpawnError) Unwrap() error { return e.Err }

// StreamReadError reports an I/O failure while reading the child's output.
// The supervisor terminates the child before surfacing it.
type StreamReadError struct {
	Err error
}

func (e *StreamReadError) Error() string {
	return "agentprobe: read output: " + e.Err.Error()
}

// Unwrap exposes both ErrStreamRead and the underlying I/O error.
func (e *StreamReadError) Unwrap() []error { return []error{ErrStreamRead, e.Err} }
