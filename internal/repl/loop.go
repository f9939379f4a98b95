// Package repl is the plain line-mode console, used when stdout is not a
// terminal or when the full-screen view is turned off.
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"ovpnconsole/internal/console"
	"ovpnconsole/internal/i18n"
	"ovpnconsole/internal/tui"
)

// Loop 持有行模式控制台状态：会话、输入与输出
// Loop holds the line-mode console: the session, its input and the printer.
type Loop struct {
	session *console.Session
	input   LineInput
	printer *Printer
	prompt  string
}

type readResult struct {
	text string
	err  error
}

// NewLoop wires a session to input. printer must be the session's Observer.
func NewLoop(session *console.Session, input LineInput, printer *Printer) *Loop {
	printer.SetOutput(input.Output())
	return &Loop{
		session: session,
		input:   input,
		printer: printer,
		prompt:  session.ServerID() + "> ",
	}
}

// Run mounts the session and serves input until /quit, EOF, Ctrl+C or ctx
// cancellation, then unmounts.
func (l *Loop) Run(ctx context.Context) error {
	l.printer.Notice(i18n.T("repl.banner", l.session.ServerID()))
	l.session.Mount(ctx)
	defer l.session.Unmount()

	lines := make(chan readResult)
	done := make(chan struct{})
	defer close(done)
	go l.readLines(lines, done)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-l.session.Events():
			l.session.Handle(ev)
		case r := <-lines:
			if r.err != nil {
				if errors.Is(r.err, io.EOF) || errors.Is(r.err, readline.ErrInterrupt) {
					return nil
				}
				return fmt.Errorf("read input: %w", r.err)
			}
			if l.dispatch(ctx, r.text) {
				return nil
			}
		}
	}
}

func (l *Loop) readLines(out chan<- readResult, done <-chan struct{}) {
	for {
		text, err := l.input.ReadLine(l.prompt)
		select {
		case out <- readResult{text: text, err: err}:
		case <-done:
			return
		}
		if err != nil {
			return
		}
	}
}

// dispatch runs one input line and reports whether the loop should exit.
func (l *Loop) dispatch(ctx context.Context, text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "/quit", "/exit":
		return true
	case "/help":
		l.printer.Notice(i18n.T("repl.help"))
		return false
	case "/status":
		l.printer.Notice(i18n.T("repl.state",
			i18n.T("status.state."+l.session.State().String()),
			tui.FormatBytes(l.session.Size())))
		return false
	case "/clear":
		if err := l.session.Clear(ctx); err != nil {
			l.printer.Notice(i18n.T("error.clear", err.Error()))
			return false
		}
		l.printer.Notice(i18n.T("repl.cleared"))
		return false
	}

	l.session.SetInput(text)
	l.session.Submit()
	return false
}
