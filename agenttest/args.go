package agenttest

import (
	"slices"
	"strings"
	"testing"
)

// RunArgsTests checks the contract every agent argument builder must hold:
// the prompt follows -p exactly once, stream-json output is requested, and
// no argument carries a null byte.
func RunArgsTests(t *testing.T, build func(prompt string) []string) {
	t.Helper()

	t.Run("PromptFollowsPrintFlag", func(t *testing.T) {
		args := build("hello")
		i := slices.Index(args, "-p")
		if i < 0 || i+1 >= len(args) || args[i+1] != "hello" {
			t.Errorf("args = %q, want -p hello", args)
		}
	})

	t.Run("PromptAppearsOnce", func(t *testing.T) {
		args := build("unique-prompt-text")
		n := 0
		for _, a := range args {
			if a == "unique-prompt-text" {
				n++
			}
		}
		if n != 1 {
			t.Errorf("prompt appears %d times in %q", n, args)
		}
	})

	t.Run("PromptWithLeadingDash", func(t *testing.T) {
		args := build("--not-a-flag")
		i := slices.Index(args, "-p")
		if i < 0 || i+1 >= len(args) || args[i+1] != "--not-a-flag" {
			t.Errorf("args = %q, prompt must stay bound to -p", args)
		}
	})

	t.Run("StreamJSONOutput", func(t *testing.T) {
		args := build("hello")
		i := slices.Index(args, "--output-format")
		if i < 0 || i+1 >= len(args) || args[i+1] != "stream-json" {
			t.Errorf("args = %q, want --output-format stream-json", args)
		}
	})

	t.Run("NoNullBytes", func(t *testing.T) {
		for i, a := range build("hello") {
			if strings.Contains(a, "\x00") {
				t.Errorf("args[%d] contains null bytes", i)
			}
		}
	})

	t.Run("NonNil", func(t *testing.T) {
		if build("") == nil {
			t.Error("args must be non-nil")
		}
	})
}
