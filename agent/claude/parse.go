package claude

import (
	"bufio"
	"encoding/json"
	"strings"

	"github.com/dmora/agentprobe/internal/jsonutil"
)

// ToolUse is one tool_use block from an assistant message.
type ToolUse struct {
	Name  string         `json:"name"`
	ID    string         `json:"id"`
	Input map[string]any `json:"input"`
}

// ParsedOutput is the structured view of a stream-json transcript.
type ParsedOutput struct {
	ToolUses []ToolUse `json:"tool_uses"`
	Skills   []string  `json:"skills"`
	Agents   []string  `json:"agents"`
}

// ToolNames returns the names of all tool uses in order.
func (p ParsedOutput) ToolNames() []string {
	names := make([]string, 0, len(p.ToolUses))
	for _, tu := range p.ToolUses {
		names = append(names, tu.Name)
	}
	return names
}

// ParseOutput decodes the transcript one line at a time. Lines that are not
// JSON objects are skipped. Only tool_use blocks carrying both a name and an
// id inside assistant messages are collected; Skill inputs contribute to
// Skills and Task inputs to Agents.
func ParseOutput(transcript string) ParsedOutput {
	var out ParsedOutput
	sc := bufio.NewScanner(strings.NewReader(transcript))
	sc.Buffer(make([]byte, 0, 64*1024), len(transcript)+1)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] != '{' {
			continue
		}
		var msg map[string]any
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			continue
		}
		if jsonutil.GetString(msg, "type") != "assistant" {
			continue
		}
		content := jsonutil.GetSlice(jsonutil.GetMap(msg, "message"), "content")
		for _, block := range jsonutil.Objects(content) {
			out.add(block)
		}
	}
	return out
}

func (p *ParsedOutput) add(block map[string]any) {
	if jsonutil.GetString(block, "type") != "tool_use" {
		return
	}
	name := jsonutil.GetString(block, "name")
	id := jsonutil.GetString(block, "id")
	if name == "" || id == "" {
		return
	}
	input := jsonutil.GetMap(block, "input")
	if input == nil {
		input = map[string]any{}
	}
	p.ToolUses = append(p.ToolUses, ToolUse{Name: name, ID: id, Input: input})

	switch name {
	case "Skill":
		if s := jsonutil.GetString(input, "skill"); s != "" {
			p.Skills = append(p.Skills, s)
		}
	case "Task":
		if a := jsonutil.GetString(input, "subagent_type"); a != "" {
			p.Agents = append(p.Agents, a)
		}
	}
}
