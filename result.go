package agentprobe

import (
	"regexp"
	"strings"
	"time"
)

// State is the terminal state of a run.
type State string

const (
	// StateCompleted means the process exited on its own.
	StateCompleted State = "completed"

	// StateTimedOut means the deadline elapsed and the process was terminated.
	StateTimedOut State = "timed_out"

	// StateFailed means the run could not be carried out: spawn failure,
	// output stream failure, or context cancellation.
	StateFailed State = "failed"
)

// Record is the read-only view of an accumulated transcript that a Result
// queries. transcript.Snapshot implements it.
type Record interface {
	// Transcript returns the full accumulated output.
	Transcript() string

	// Events returns all recorded events in offset order.
	Events() []Event

	// Occurred reports whether at least one event of kind with name exists.
	Occurred(kind EventKind, name string) bool

	// Before reports whether the first occurrence of (kind, first) precedes
	// the first occurrence of (kind, second). False if either is absent.
	Before(kind EventKind, first, second string) bool

	// Order compares first occurrences across kinds: true iff the first
	// (kindA, nameA) event precedes the first (kindB, nameB) event.
	Order(kindA EventKind, nameA string, kindB EventKind, nameB string) bool
}

// Result is the immutable outcome of one supervised run.
//
// The exported fields describe the process; the methods query the transcript
// and the decoded events. A Result is safe for concurrent use.
type Result struct {
	// ID is a unique identifier for the run, used to name artifacts.
	ID string `json:"id" yaml:"id"`

	// Command is the argv the child was started with.
	Command []string `json:"command" yaml:"command"`

	// Dir is the child's working directory.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`

	// PID is the child's process id; 0 if it never started.
	PID int `json:"pid,omitempty" yaml:"pid,omitempty"`

	// State is the terminal state.
	State State `json:"state" yaml:"state"`

	// ExitCode is the child's exit status when it exited normally, -1 when
	// it died from a signal it was not sent by the supervisor, and
	// ExitTimedOut when the deadline elapsed.
	ExitCode int `json:"exit_code" yaml:"exit_code"`

	// Signal names the signal that ended the process (e.g. "SIGTERM").
	// Empty when the process exited normally.
	Signal string `json:"signal,omitempty" yaml:"signal,omitempty"`

	// StartedAt is the instant the process was spawned.
	StartedAt time.Time `json:"started_at" yaml:"started_at"`

	// Elapsed is wall-clock time from spawn to the end of the run.
	Elapsed time.Duration `json:"elapsed" yaml:"elapsed"`

	// Err is the cause of a non-completed state: ErrTimeout, a
	// *StreamReadError, or the context error. Nil on completion.
	Err error `json:"-" yaml:"-"`

	record Record
}

// NewResult returns a Result that queries record. A nil record behaves as an
// empty transcript with no events.
func NewResult(record Record) *Result {
	if record == nil {
		record = emptyRecord{}
	}
	return &Result{record: record}
}

// Transcript returns the full accumulated output.
func (r *Result) Transcript() string { return r.rec().Transcript() }

// Events returns a copy of all decoded events in offset order.
func (r *Result) Events() []Event {
	evs := r.rec().Events()
	out := make([]Event, len(evs))
	copy(out, evs)
	return out
}

// TimedOut reports whether the run hit its deadline.
func (r *Result) TimedOut() bool { return r.State == StateTimedOut }

// ElapsedSeconds returns Elapsed in seconds.
func (r *Result) ElapsedSeconds() float64 { return r.Elapsed.Seconds() }

// ContainsText reports whether the transcript contains text.
func (r *Result) ContainsText(text string) bool {
	return strings.Contains(r.Transcript(), text)
}

// MatchesRegex reports whether the transcript matches pattern.
// It returns an error if pattern does not compile.
func (r *Result) MatchesRegex(pattern string) (bool, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, err
	}
	return re.MatchString(r.Transcript()), nil
}

// Matches reports whether the transcript matches re.
func (r *Result) Matches(re *regexp.Regexp) bool {
	return re.MatchString(r.Transcript())
}

// EventOccurred reports whether an event of kind with name was decoded.
func (r *Result) EventOccurred(kind EventKind, name string) bool {
	return r.rec().Occurred(kind, name)
}

// EventBefore reports whether the first (kind, first) event precedes the
// first (kind, second) event. False if either never occurred.
func (r *Result) EventBefore(kind EventKind, first, second string) bool {
	return r.rec().Before(kind, first, second)
}

// EventOrder reports whether the first (kindA, nameA) event precedes the
// first (kindB, nameB) event, e.g. whether a tool ran before an agent was
// delegated to.
func (r *Result) EventOrder(kindA EventKind, nameA string, kindB EventKind, nameB string) bool {
	return r.rec().Order(kindA, nameA, kindB, nameB)
}

// AgentWasUsed reports whether the agent delegated to the named sub-agent.
func (r *Result) AgentWasUsed(name string) bool {
	return r.EventOccurred(EventAgentDelegation, name)
}

// AgentInvokedBefore reports whether sub-agent first was first delegated to
// before sub-agent second.
func (r *Result) AgentInvokedBefore(first, second string) bool {
	return r.EventBefore(EventAgentDelegation, first, second)
}

// ToolWasUsed reports whether the named tool was called.
func (r *Result) ToolWasUsed(name string) bool {
	return r.EventOccurred(EventToolCall, name)
}

// ToolInvokedBefore reports whether tool first was first called before
// tool second.
func (r *Result) ToolInvokedBefore(first, second string) bool {
	return r.EventBefore(EventToolCall, first, second)
}

// Agents returns sub-agent names in delegation order, one per occurrence.
func (r *Result) Agents() []string { return r.names(EventAgentDelegation) }

// Tools returns tool names in call order with consecutive repeats collapsed.
func (r *Result) Tools() []string { return r.names(EventToolCall) }

func (r *Result) names(kind EventKind) []string {
	var out []string
	for _, ev := range r.rec().Events() {
		if ev.Kind == kind {
			out = append(out, ev.Name)
		}
	}
	return out
}

func (r *Result) rec() Record {
	if r == nil || r.record == nil {
		return emptyRecord{}
	}
	return r.record
}

type emptyRecord struct{}

func (emptyRecord) Transcript() string                    { return "" }
func (emptyRecord) Events() []Event                       { return nil }
func (emptyRecord) Occurred(EventKind, string) bool       { return false }
func (emptyRecord) Before(EventKind, string, string) bool { return false }

func (emptyRecord) Order(EventKind, string, EventKind, string) bool { return false }
