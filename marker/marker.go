// Package marker decodes tool-call and sub-agent delegation events from the
// raw text an agent CLI writes in stream-json mode.
//
// Decoding is a scan over the text, not a JSON parse: the stream may be
// partial, interleaved with stderr, or otherwise malformed, and markers are
// still recognized wherever they occur. A marker never spans a line break.
package marker

import (
	"regexp"
	"sort"

	"github.com/dmora/agentprobe"
)

var (
	toolPattern  = regexp.MustCompile(`"name"[ \t]*:[ \t]*"([^"\r\n]+)"`)
	agentPattern = regexp.MustCompile(`"subagent_type"[ \t]*:[ \t]*"([^"\r\n]+)"`)
)

// Decode returns the events found in text, ordered by offset. Offsets are
// relative to the start of text; At is left zero.
//
// A tool call whose name equals the immediately preceding tool call's name is
// suppressed. Agent delegations are never suppressed.
func Decode(text string) []agentprobe.Event {
	evs, _ := DecodeAfter(text, "")
	return evs
}

// DecodeAfter is Decode for a text that continues an earlier one. lastTool is
// the name of the last tool call decoded before text, or "" if none. It
// returns the events and the last tool call name after text.
func DecodeAfter(text, lastTool string) ([]agentprobe.Event, string) {
	type match struct {
		kind   agentprobe.EventKind
		name   string
		offset int
	}

	var matches []match
	for _, loc := range toolPattern.FindAllStringSubmatchIndex(text, -1) {
		matches = append(matches, match{agentprobe.EventToolCall, text[loc[2]:loc[3]], loc[0]})
	}
	for _, loc := range agentPattern.FindAllStringSubmatchIndex(text, -1) {
		matches = append(matches, match{agentprobe.EventAgentDelegation, text[loc[2]:loc[3]], loc[0]})
	}
	// Tool and agent markers start with different keys, so offsets are unique.
	sort.Slice(matches, func(i, j int) bool { return matches[i].offset < matches[j].offset })

	var evs []agentprobe.Event
	for _, m := range matches {
		if m.kind == agentprobe.EventToolCall {
			if m.name == lastTool {
				continue
			}
			lastTool = m.name
		}
		evs = append(evs, agentprobe.Event{Kind: m.kind, Name: m.name, Offset: m.offset})
	}
	return evs, lastTool
}

// Tools returns the tool names in text, in call order, with consecutive
// repeats collapsed.
func Tools(text string) []string {
	return names(Decode(text), agentprobe.EventToolCall)
}

// Agents returns the sub-agent names in text, one per delegation.
func Agents(text string) []string {
	return names(Decode(text), agentprobe.EventAgentDelegation)
}

func names(evs []agentprobe.Event, kind agentprobe.EventKind) []string {
	var out []string
	for _, ev := range evs {
		if ev.Kind == kind {
			out = append(out, ev.Name)
		}
	}
	return out
}
