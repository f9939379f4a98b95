package tui

import (
	"strings"
	"testing"

	"ovpnconsole/internal/console"
)

func TestRenderMarkdown_Basic(t *testing.T) {
	input := "# Hello\n\nThis is **bold** text."
	result := RenderMarkdown(input, 80)
	if result == "" {
		t.Fatal("RenderMarkdown returned empty")
	}
	// Glamour 应该渲染了标题 / Glamour should have rendered the heading
	if !strings.Contains(result, "Hello") {
		t.Fatalf("result should contain 'Hello': %q", result)
	}
}

func TestRenderMarkdown_Empty(t *testing.T) {
	if RenderMarkdown("", 80) != "" {
		t.Fatal("empty input should return empty")
	}
	if RenderMarkdown("  ", 80) != "" {
		t.Fatal("whitespace input should return empty")
	}
}

func TestRenderLine(t *testing.T) {
	theme := DarkTheme()

	tests := []string{
		"> status 3",
		console.LineConnected,
		console.LineReconnecting,
		"Connection failed: timeout",
		">INFO:OpenVPN Management Interface",
		"CLIENT_LIST,alice,10.8.0.2",
	}
	for _, line := range tests {
		got := RenderLine(line, theme)
		if !strings.Contains(got, line) {
			t.Errorf("RenderLine(%q) lost its text: %q", line, got)
		}
	}
	if RenderLine("", theme) != "" {
		t.Error("empty line should stay empty")
	}
}

func TestRenderTranscript(t *testing.T) {
	out := RenderTranscript([]string{"a", "b"}, DarkTheme())
	if out != "a\nb" {
		t.Fatalf("unexpected transcript: %q", out)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1536, "1.5 KiB"},
		{25 * 1024 * 1024, "25.0 MiB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.in); got != tt.want {
			t.Errorf("FormatBytes(%d)=%q, want %q", tt.in, got, tt.want)
		}
	}
}
