package agentprobe_test

import (
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"regexp"
	"testing"
	"time"

	"github.com/dmora/agentprobe"
	"github.com/dmora/agentprobe/transcript"
)

func resultFrom(out string) *agentprobe.Result {
	agg := transcript.New()
	agg.Append(transcript.Fragment{Text: out})
	agg.Flush(time.Now())
	return agentprobe.NewResult(agg.Snapshot())
}

const sample = `{"type":"assistant","message":{"content":[{"type":"tool_use","name":"Task","input":{"subagent_type":"spec-writer"}}]}}
{"type":"assistant","message":{"content":[{"type":"tool_use","name":"Write","input":{"file_path":"specs/SPEC.md"}}]}}
{"type":"assistant","message":{"content":[{"type":"tool_use","name":"Task","input":{"subagent_type":"planner"}}]}}
{"type":"result","subtype":"success","result":"Project initialized"}
`

func TestResult_TextQueries(t *testing.T) {
	res := resultFrom(sample)

	if !res.ContainsText("Project initialized") {
		t.Error("ContainsText: want true")
	}
	if res.ContainsText("not there") {
		t.Error("ContainsText: want false")
	}

	ok, err := res.MatchesRegex(`specs/\w+\.md`)
	if err != nil || !ok {
		t.Errorf("MatchesRegex = %v, %v; want true, nil", ok, err)
	}
	if _, err := res.MatchesRegex(`(`); err == nil {
		t.Error("MatchesRegex: want error for invalid pattern")
	}
	if !res.Matches(regexp.MustCompile(`"subtype":"success"`)) {
		t.Error("Matches: want true")
	}
}

func TestResult_EventQueries(t *testing.T) {
	res := resultFrom(sample)

	if !res.AgentWasUsed("spec-writer") || !res.AgentWasUsed("planner") {
		t.Errorf("agents = %v", res.Agents())
	}
	if res.AgentWasUsed("reviewer") {
		t.Error("reviewer never delegated to")
	}
	if !res.AgentInvokedBefore("spec-writer", "planner") {
		t.Error("spec-writer before planner: want true")
	}
	if res.AgentInvokedBefore("planner", "spec-writer") {
		t.Error("planner before spec-writer: want false")
	}
	if !res.ToolWasUsed("Write") || !res.ToolInvokedBefore("Task", "Write") {
		t.Errorf("tools = %v", res.Tools())
	}
	if !res.EventOrder(agentprobe.EventToolCall, "Write", agentprobe.EventAgentDelegation, "planner") {
		t.Error("Write before planner: want true")
	}
	if got := res.Tools(); len(got) != 3 {
		t.Errorf("Tools = %v, want [Task Write Task]", got)
	}
}

func TestResult_EventsReturnsCopy(t *testing.T) {
	res := resultFrom(sample)
	evs := res.Events()
	evs[0].Name = "mutated"
	if res.Events()[0].Name == "mutated" {
		t.Fatal("Events returned shared slice")
	}
}

func TestResult_NilRecord(t *testing.T) {
	res := agentprobe.NewResult(nil)
	if res.Transcript() != "" || len(res.Events()) != 0 || res.AgentWasUsed("x") {
		t.Fatal("nil record should behave as empty")
	}
	var zero agentprobe.Result
	if zero.ContainsText("x") || zero.ToolWasUsed("x") {
		t.Fatal("zero Result should behave as empty")
	}
}

func TestResult_StateAccessors(t *testing.T) {
	res := agentprobe.NewResult(nil)
	res.State = agentprobe.StateTimedOut
	res.Elapsed = 1500 * time.Millisecond
	if !res.TimedOut() {
		t.Error("TimedOut: want true")
	}
	if res.ElapsedSeconds() != 1.5 {
		t.Errorf("ElapsedSeconds = %v, want 1.5", res.ElapsedSeconds())
	}
}

func TestEvent_String(t *testing.T) {
	ev := agentprobe.Event{Kind: agentprobe.EventAgentDelegation, Name: "planner", Offset: 42}
	if got, want := ev.String(), "agent_delegation:planner@42"; got != want {
		t.Errorf("String = %q, want %q", got, want)
	}
}

func TestErrors(t *testing.T) {
	spawn := &agentprobe.SpawnError{Command: "claude", Err: errors.Join(agentprobe.ErrUnavailable, exec.ErrNotFound)}
	if !errors.Is(spawn, agentprobe.ErrUnavailable) || !errors.Is(spawn, exec.ErrNotFound) {
		t.Errorf("SpawnError does not unwrap: %v", spawn)
	}

	read := &agentprobe.StreamReadError{Err: fs.ErrClosed}
	if !errors.Is(read, agentprobe.ErrStreamRead) || !errors.Is(read, fs.ErrClosed) {
		t.Errorf("StreamReadError does not unwrap: %v", read)
	}
	var target *agentprobe.StreamReadError
	if !errors.As(fmt.Errorf("run: %w", read), &target) {
		t.Error("errors.As failed through wrapping")
	}
}

func ExampleResult_AgentInvokedBefore() {
	agg := transcript.New()
	agg.Append(transcript.Fragment{Text: `{"subagent_type":"spec-writer"}` + "\n"})
	agg.Append(transcript.Fragment{Text: `{"subagent_type":"planner"}` + "\n"})
	res := agentprobe.NewResult(agg.Snapshot())

	fmt.Println(res.AgentWasUsed("spec-writer"))
	fmt.Println(res.AgentInvokedBefore("spec-writer", "planner"))
	fmt.Println(res.AgentInvokedBefore("planner", "spec-writer"))
	// Output:
	// true
	// true
	// false
}

func ExampleResult_Tools() {
	agg := transcript.New()
	agg.Append(transcript.Fragment{Text: `{"name":"Read"}{"name":"Read"}{"name":"Edit"}` + "\n"})
	res := agentprobe.NewResult(agg.Snapshot())
	fmt.Println(res.Tools())
	// Output: [Read Edit]
}
