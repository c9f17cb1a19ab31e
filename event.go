package agentprobe

import (
	"strconv"
	"time"
)

// EventKind identifies the family of a decoded event.
type EventKind string

const (
	// EventToolCall is a tool invocation, marked by a "name" key in the
	// stream. Consecutive calls to the same tool collapse into one event.
	EventToolCall EventKind = "tool_call"

	// EventAgentDelegation is a delegation to a named sub-agent, marked by
	// a "subagent_type" key. Every occurrence is recorded.
	EventAgentDelegation EventKind = "agent_delegation"
)

// Event is a structured signal decoded from the agent's output stream.
// Events are values; they are never mutated after they are recorded.
type Event struct {
	// Kind is the event family.
	Kind EventKind `json:"kind"`

	// Name is the tool or sub-agent name.
	Name string `json:"name"`

	// Offset is the byte offset of the marker within the transcript.
	// For two events A and B, A happened before B iff A.Offset < B.Offset.
	Offset int `json:"offset"`

	// At is when the line carrying the marker was read from the stream.
	At time.Time `json:"at"`
}

// String renders the event as kind:name@offset.
func (e Event) String() string {
	return string(e.Kind) + ":" + e.Name + "@" + strconv.Itoa(e.Offset)
}
