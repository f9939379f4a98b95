package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"ovpnconsole/internal/console"
)

// RenderMarkdown 使用 Glamour 渲染 markdown 文本
// RenderMarkdown renders markdown text using Glamour
func RenderMarkdown(content string, width int) string {
	if strings.TrimSpace(content) == "" {
		return ""
	}
	if width <= 0 {
		width = 80
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content
	}

	rendered, err := r.Render(content)
	if err != nil {
		return content
	}

	return strings.TrimRight(rendered, "\n")
}

// RenderLine 按行类型着色：命令回显、状态行、失败行
// RenderLine colors a transcript line by kind: command echo, status line or failure.
func RenderLine(line string, theme Theme) string {
	switch {
	case line == "":
		return line
	case strings.HasPrefix(line, console.EchoPrefix):
		return theme.EchoStyle.Render(line)
	case line == console.LineConnected || line == console.LineReconnected:
		return theme.SuccessStyle.Render(line)
	case line == console.LineReconnecting:
		return theme.WarningStyle.Render(line)
	case line == console.LineClosed || line == console.LineNotConnected,
		strings.HasPrefix(line, console.PrefixConnectFailed),
		strings.HasPrefix(line, console.PrefixSendFailed),
		strings.HasPrefix(line, console.PrefixPersistFailed),
		strings.HasPrefix(line, "ERROR:"):
		return theme.ErrorStyle.Render(line)
	case strings.HasPrefix(line, ">INFO:"), strings.HasPrefix(line, ">LOG:"):
		return theme.MutedStyle.Render(line)
	default:
		return line
	}
}

// RenderTranscript 渲染完整记录
// RenderTranscript renders the whole transcript, one styled line per entry.
func RenderTranscript(lines []string, theme Theme) string {
	rendered := make([]string, 0, len(lines))
	for _, line := range lines {
		rendered = append(rendered, RenderLine(line, theme))
	}
	return strings.Join(rendered, "\n")
}

// FormatBytes renders n as B, KiB or MiB with one decimal.
func FormatBytes(n int) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%d B", n)
	case n < 1024*1024:
		return fmt.Sprintf("%.1f KiB", float64(n)/1024)
	default:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1024*1024))
	}
}
