package repl

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/mattn/go-runewidth"

	"ovpnconsole/internal/console"
)

// ANSI colors for transcript lines
const (
	ansiReset  = "\x1b[0m"
	ansiDim    = "\x1b[90m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiCyan   = "\x1b[36m"
)

// DefaultReplayLines is how much stored scrollback is shown on mount.
const DefaultReplayLines = 200

// PrinterOptions controls how the transcript is written.
type PrinterOptions struct {
	Color bool
	// Width clips replayed history to the terminal; 0 disables clipping.
	Width  int
	Replay int
}

// Printer 将会话记录的变化写到终端
// Printer writes transcript changes to a terminal. It implements
// console.Observer.
type Printer struct {
	mu       sync.Mutex
	out      io.Writer
	opts     PrinterOptions
	replayed bool
}

var _ console.Observer = (*Printer)(nil)

func NewPrinter(out io.Writer, opts PrinterOptions) *Printer {
	if opts.Replay <= 0 {
		opts.Replay = DefaultReplayLines
	}
	return &Printer{out: out, opts: opts}
}

// SetOutput redirects subsequent output.
func (p *Printer) SetOutput(out io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.out = out
}

// LineAppended prints one new transcript line in full.
func (p *Printer) LineAppended(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writeLine(line, false)
}

// TranscriptReplaced prints the tail of the transcript the first time it is
// loaded. Later replacements (reconnect reconciliation, clear) carry lines
// that were already printed and are not repeated.
func (p *Printer) TranscriptReplaced(lines []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.replayed {
		return
	}
	p.replayed = true
	if len(lines) == 0 {
		return
	}

	start := 0
	if len(lines) > p.opts.Replay {
		start = len(lines) - p.opts.Replay
		p.writeDim(fmt.Sprintf("... %d earlier lines not shown", start))
	}
	for _, line := range lines[start:] {
		p.writeLine(line, true)
	}
	p.writeDim(strings.Repeat("─", 24))
}

// Notice prints a message that is not part of the transcript.
func (p *Printer) Notice(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writeDim(msg)
}

func (p *Printer) writeLine(line string, clip bool) {
	if clip && p.opts.Width > 0 && runewidth.StringWidth(line) > p.opts.Width {
		line = runewidth.Truncate(line, p.opts.Width, "…")
	}
	color := lineColor(line)
	if !p.opts.Color || color == "" {
		fmt.Fprintln(p.out, line)
		return
	}
	fmt.Fprintf(p.out, "%s%s%s\n", color, line, ansiReset)
}

func (p *Printer) writeDim(msg string) {
	if p.opts.Color {
		fmt.Fprintf(p.out, "%s%s%s\n", ansiDim, msg, ansiReset)
		return
	}
	fmt.Fprintln(p.out, msg)
}

func lineColor(line string) string {
	switch {
	case strings.HasPrefix(line, console.EchoPrefix):
		return ansiCyan
	case line == console.LineConnected || line == console.LineReconnected:
		return ansiGreen
	case line == console.LineReconnecting:
		return ansiYellow
	case line == console.LineClosed || line == console.LineNotConnected,
		strings.HasPrefix(line, console.PrefixConnectFailed),
		strings.HasPrefix(line, console.PrefixSendFailed),
		strings.HasPrefix(line, console.PrefixPersistFailed):
		return ansiRed
	default:
		return ""
	}
}
