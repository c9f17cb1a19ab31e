package claude

import (
	"slices"
	"testing"
)

func TestParseOutput(t *testing.T) {
	transcript := `{"type":"system","subtype":"init","tools":["Read"]}
not json at all
{"type":"assistant","message":{"content":[{"type":"text","text":"working"},{"type":"tool_use","id":"t1","name":"Skill","input":{"skill":"sdd-init"}}]}}
{"type":"assistant","message":{"content":[{"type":"tool_use","id":"t2","name":"Task","input":{"subagent_type":"spec-writer"}}]}}
{"type":"user","message":{"content":[{"type":"tool_use","id":"u1","name":"Ignored"}]}}
{"type":"assistant","message":{"content":[{"type":"tool_use","name":"NoID"}]}}
{"type":"assistant","message":{"content":[{"type":"tool_use","id":"t3","name":"Write"}]}}

{"type":"result","subtype":"success"}
`
	got := ParseOutput(transcript)

	if names := got.ToolNames(); !slices.Equal(names, []string{"Skill", "Task", "Write"}) {
		t.Errorf("ToolNames() = %q, want [Skill Task Write]", names)
	}
	if !slices.Equal(got.Skills, []string{"sdd-init"}) {
		t.Errorf("Skills = %q, want [sdd-init]", got.Skills)
	}
	if !slices.Equal(got.Agents, []string{"spec-writer"}) {
		t.Errorf("Agents = %q, want [spec-writer]", got.Agents)
	}
	if got.ToolUses[1].ID != "t2" {
		t.Errorf("ToolUses[1].ID = %q, want t2", got.ToolUses[1].ID)
	}
	if got.ToolUses[2].Input == nil {
		t.Error("missing input should decode as an empty map")
	}
}

func TestParseOutput_Empty(t *testing.T) {
	got := ParseOutput("")
	if len(got.ToolUses) != 0 || len(got.Skills) != 0 || len(got.Agents) != 0 {
		t.Errorf("ParseOutput(\"\") = %+v, want empty", got)
	}
}

func TestParseOutput_TaskWithoutSubagent(t *testing.T) {
	got := ParseOutput(`{"type":"assistant","message":{"content":[{"type":"tool_use","id":"t1","name":"Task","input":{"prompt":"x"}}]}}`)
	if len(got.ToolUses) != 1 {
		t.Fatalf("ToolUses = %d, want 1", len(got.ToolUses))
	}
	if len(got.Agents) != 0 {
		t.Errorf("Agents = %q, want none", got.Agents)
	}
}

func TestParseOutput_LongLine(t *testing.T) {
	big := make([]byte, 200*1024)
	for i := range big {
		big[i] = 'x'
	}
	line := `{"type":"assistant","message":{"content":[{"type":"tool_use","id":"t1","name":"Write","input":{"content":"` + string(big) + `"}}]}}`
	got := ParseOutput(line + "\n")
	if len(got.ToolUses) != 1 {
		t.Fatalf("ToolUses = %d, want 1", len(got.ToolUses))
	}
}

func FuzzParseOutput(f *testing.F) {
	f.Add(`{"type":"assistant","message":{"content":[{"type":"tool_use","id":"t1","name":"Task","input":{"subagent_type":"a"}}]}}`)
	f.Add("garbage\n{\n")
	f.Fuzz(func(t *testing.T, s string) {
		got := ParseOutput(s)
		if len(got.Agents) > len(got.ToolUses) || len(got.Skills) > len(got.ToolUses) {
			t.Fatalf("more invocations than tool uses: %+v", got)
		}
	})
}
