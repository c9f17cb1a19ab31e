package textutil

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncate_ShortPassthrough(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("Truncate() = %q, want %q", got, "short")
	}
}

func TestTruncate_Long(t *testing.T) {
	got := Truncate(strings.Repeat("x", 50), 10)
	if len(got) != 10 {
		t.Errorf("len = %d, want 10", len(got))
	}
}

func TestTruncate_MultiByteBoundary(t *testing.T) {
	s := "ab" + "€€" // € is 3 bytes
	got := Truncate(s, 4)
	if got != "ab" {
		t.Errorf("Truncate() = %q, want %q", got, "ab")
	}
	if !utf8.ValidString(got) {
		t.Errorf("result is not valid UTF-8: %q", got)
	}
}

func TestTruncate_NegativeLimit(t *testing.T) {
	if got := Truncate("abc", -1); got != "" {
		t.Errorf("Truncate() = %q, want empty", got)
	}
}

func TestPreview(t *testing.T) {
	if got := Preview("line one\nline two"); got != "line one line two" {
		t.Errorf("Preview() = %q", got)
	}
	long := strings.Repeat("p", PreviewLen+10)
	got := Preview(long)
	if !strings.HasSuffix(got, "…") || len(got) != PreviewLen+len("…") {
		t.Errorf("Preview(long) len = %d, %q", len(got), got[len(got)-5:])
	}
}

func TestContainsNull(t *testing.T) {
	if !ContainsNull("a\x00b") {
		t.Error("ContainsNull: want true")
	}
	if ContainsNull("ab") {
		t.Error("ContainsNull: want false")
	}
}
