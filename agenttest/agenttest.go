package agenttest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// ArgsFile is the file a fake agent writes its argv to, one argument per
// line, in its working directory.
const ArgsFile = "args.txt"

// Stream builds a newline-delimited stream-json transcript.
type Stream struct {
	lines []string
	next  int
}

// NewStream returns an empty Stream.
func NewStream() *Stream { return &Stream{} }

func (s *Stream) add(v any) *Stream {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("agenttest: encoding fixture line: %v", err))
	}
	s.lines = append(s.lines, string(data))
	return s
}

func (s *Stream) id() string {
	s.next++
	return fmt.Sprintf("toolu_%02d", s.next)
}

// Tool appends an assistant message with one tool_use block. A nil input
// encodes as an empty object.
func (s *Stream) Tool(name string, input map[string]any) *Stream {
	if input == nil {
		input = map[string]any{}
	}
	return s.add(map[string]any{
		"type": "assistant",
		"message": map[string]any{
			"content": []any{map[string]any{
				"type":  "tool_use",
				"id":    s.id(),
				"name":  name,
				"input": input,
			}},
		},
	})
}

// Task appends a delegation to agent through the Task tool.
func (s *Stream) Task(agent string) *Stream {
	return s.Tool("Task", map[string]any{"subagent_type": agent, "prompt": "continue"})
}

// Skill appends a Skill tool invocation.
func (s *Stream) Skill(skill string) *Stream {
	return s.Tool("Skill", map[string]any{"skill": skill})
}

// Text appends an assistant text message.
func (s *Stream) Text(text string) *Stream {
	return s.add(map[string]any{
		"type": "assistant",
		"message": map[string]any{
			"content": []any{map[string]any{"type": "text", "text": text}},
		},
	})
}

// Result appends the terminal result message.
func (s *Stream) Result(text string) *Stream {
	return s.add(map[string]any{"type": "result", "subtype": "success", "result": text})
}

// Raw appends line verbatim.
func (s *Stream) Raw(line string) *Stream {
	s.lines = append(s.lines, line)
	return s
}

// String returns the transcript with a trailing newline after every line.
func (s *Stream) String() string {
	if len(s.lines) == 0 {
		return ""
	}
	return strings.Join(s.lines, "\n") + "\n"
}

// Script writes body as an executable /bin/sh script in a temp directory and
// returns its path.
func Script(t testing.TB, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agent")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("agenttest: writing script: %v", err)
	}
	return path
}

// Agent writes a fake agent that records its argv to ArgsFile, prints
// transcript to stdout, and exits with exitCode. A transcript lacking a
// final newline is printed with one.
func Agent(t testing.TB, transcript string, exitCode int) string {
	t.Helper()
	delim := "AGENTTEST_EOF"
	for strings.Contains(transcript, delim) {
		delim += "_"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "printf '%%s\\n' \"$@\" > %s\n", ArgsFile)
	if transcript != "" {
		fmt.Fprintf(&b, "cat <<'%s'\n%s", delim, transcript)
		if !strings.HasSuffix(transcript, "\n") {
			b.WriteString("\n")
		}
		b.WriteString(delim + "\n")
	}
	fmt.Fprintf(&b, "exit %d", exitCode)
	return Script(t, b.String())
}

// RecordedArgs returns the argv a fake agent recorded in dir.
func RecordedArgs(t testing.TB, dir string) []string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, ArgsFile))
	if err != nil {
		t.Fatalf("agenttest: reading recorded args: %v", err)
	}
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}
