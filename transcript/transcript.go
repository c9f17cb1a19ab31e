// Package transcript accumulates an agent's output fragments into an
// order-preserved transcript and records the events decoded from it.
//
// Fragment boundaries carry no meaning. The aggregator decodes complete lines
// only and carries the unterminated tail until a newline arrives or Flush is
// called, so the recorded events are the same however the output was split.
package transcript

import (
	"strings"
	"sync"
	"time"

	"github.com/dmora/agentprobe"
	"github.com/dmora/agentprobe/marker"
)

// Fragment is one chunk of raw text read from a process's output stream.
type Fragment struct {
	Text string
	At   time.Time
}

type eventKey struct {
	kind agentprobe.EventKind
	name string
}

// Aggregator is the single writer of a run's transcript and event log.
// Append and Flush must be called from one goroutine; the read accessors are
// safe to call concurrently with them.
type Aggregator struct {
	mu       sync.RWMutex
	buf      strings.Builder
	decoded  int // transcript prefix already decoded; always just after a newline
	lastTool string
	events   []agentprobe.Event
	first    map[eventKey]int // first occurrence offset per (kind, name)
}

var _ agentprobe.Record = (*Aggregator)(nil)

// New returns an empty Aggregator.
func New() *Aggregator {
	return &Aggregator{first: make(map[eventKey]int)}
}

// Append adds a fragment to the transcript and returns the events that became
// decodable because of it, in offset order. The returned slice is owned by
// the caller.
func (a *Aggregator) Append(f Fragment) []agentprobe.Event {
	if f.Text == "" {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	a.buf.WriteString(f.Text)
	nl := strings.LastIndexByte(f.Text, '\n')
	if nl < 0 {
		return nil
	}
	end := a.buf.Len() - len(f.Text) + nl + 1
	return a.decodeLocked(end, f.At)
}

// Flush decodes the unterminated tail of the transcript, if any. It is
// called once the stream has ended.
func (a *Aggregator) Flush(at time.Time) []agentprobe.Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.decodeLocked(a.buf.Len(), at)
}

func (a *Aggregator) decodeLocked(end int, at time.Time) []agentprobe.Event {
	if end <= a.decoded {
		return nil
	}
	text := a.buf.String()[a.decoded:end]
	evs, last := marker.DecodeAfter(text, a.lastTool)
	for i := range evs {
		evs[i].Offset += a.decoded
		evs[i].At = at
		key := eventKey{evs[i].Kind, evs[i].Name}
		if _, ok := a.first[key]; !ok {
			a.first[key] = evs[i].Offset
		}
	}
	a.lastTool = last
	a.decoded = end
	a.events = append(a.events, evs...)

	out := make([]agentprobe.Event, len(evs))
	copy(out, evs)
	return out
}

// Transcript returns the full accumulated text.
func (a *Aggregator) Transcript() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.buf.String()
}

// Len returns the transcript length in bytes.
func (a *Aggregator) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.buf.Len()
}

// Events returns a copy of the recorded events in offset order.
func (a *Aggregator) Events() []agentprobe.Event {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]agentprobe.Event, len(a.events))
	copy(out, a.events)
	return out
}

// Occurred reports whether at least one (kind, name) event was recorded.
func (a *Aggregator) Occurred(kind agentprobe.EventKind, name string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.first[eventKey{kind, name}]
	return ok
}

// Before reports whether the first (kind, first) event has a strictly
// smaller offset than the first (kind, second) event.
func (a *Aggregator) Before(kind agentprobe.EventKind, first, second string) bool {
	return a.Order(kind, first, kind, second)
}

// Order is Before across event kinds: it compares the first occurrence of
// (kindA, nameA) with the first occurrence of (kindB, nameB). False if either
// is absent.
func (a *Aggregator) Order(kindA agentprobe.EventKind, nameA string, kindB agentprobe.EventKind, nameB string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return order(a.first, eventKey{kindA, nameA}, eventKey{kindB, nameB})
}

// Snapshot returns an immutable copy of the current state. Later appends do
// not affect it.
func (a *Aggregator) Snapshot() *Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	first := make(map[eventKey]int, len(a.first))
	for k, v := range a.first {
		first[k] = v
	}
	events := make([]agentprobe.Event, len(a.events))
	copy(events, a.events)
	return &Snapshot{text: a.buf.String(), events: events, first: first}
}

func order(first map[eventKey]int, a, b eventKey) bool {
	oa, ok := first[a]
	if !ok {
		return false
	}
	ob, ok := first[b]
	if !ok {
		return false
	}
	return oa < ob
}

// Snapshot is a frozen transcript and event log. It needs no locking.
type Snapshot struct {
	text   string
	events []agentprobe.Event
	first  map[eventKey]int
}

var _ agentprobe.Record = (*Snapshot)(nil)

// Transcript returns the captured text.
func (s *Snapshot) Transcript() string { return s.text }

// Events returns the recorded events. Callers must not modify the slice.
func (s *Snapshot) Events() []agentprobe.Event { return s.events }

// Occurred reports whether at least one (kind, name) event was recorded.
func (s *Snapshot) Occurred(kind agentprobe.EventKind, name string) bool {
	_, ok := s.first[eventKey{kind, name}]
	return ok
}

// Before reports whether the first (kind, first) event precedes the first
// (kind, second) event.
func (s *Snapshot) Before(kind agentprobe.EventKind, first, second string) bool {
	return order(s.first, eventKey{kind, first}, eventKey{kind, second})
}

// Order compares first occurrences across event kinds.
func (s *Snapshot) Order(kindA agentprobe.EventKind, nameA string, kindB agentprobe.EventKind, nameB string) bool {
	return order(s.first, eventKey{kindA, nameA}, eventKey{kindB, nameB})
}
