// Package console implements the per-server console session: the
// connection state machine, the transcript and its persisted scrollback.
//
// A Session is not safe for concurrent use. One owner goroutine calls
// Mount, Submit, Clear, Unmount and Handle, draining Events() in between.
// Background work (endpoint resolution, the hub handshake, command sends,
// scrollback writes) only ever posts events.
package console

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"ovpnconsole/internal/history"
	"ovpnconsole/internal/hub"
	"ovpnconsole/internal/logging"
)

const defaultEventBuffer = 256

// Resolver looks up the hub URL for a server's console.
type Resolver interface {
	ConsoleEndpoint(ctx context.Context, serverID string) (string, error)
}

// Dialer builds an unstarted hub connection for endpoint.
type Dialer func(endpoint string) hub.Conn

// Observer is told about transcript changes as they happen.
type Observer interface {
	LineAppended(line string)
	TranscriptReplaced(lines []string)
}

// Options wires a Session to its collaborators.
type Options struct {
	Resolver    Resolver
	Dial        Dialer
	History     *history.History
	Logger      zerolog.Logger
	Observer    Observer
	EventBuffer int
}

// Session 单个服务器的控制台会话
// Session is one server's console.
type Session struct {
	serverID string
	resolver Resolver
	dial     Dialer
	history  *history.History
	observer Observer
	logger   zerolog.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	events  chan Event
	stopped chan struct{}

	// live is the connection being established or in use; Unmount stops it
	// even before the owner has seen EventConnected.
	liveMu   sync.Mutex
	live     hub.Conn
	tornDown bool

	// Owner goroutine state.
	state         State
	conn          hub.Conn
	gen           uint64
	lines         []string
	size          int
	input         string
	persistWarned bool
	persister     *persister
	// early holds connection events that raced ahead of EventConnected.
	early []Event
}

// New creates an idle session for serverID.
func New(serverID string, opts Options) *Session {
	buf := opts.EventBuffer
	if buf <= 0 {
		buf = defaultEventBuffer
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		serverID: serverID,
		resolver: opts.Resolver,
		dial:     opts.Dial,
		history:  opts.History,
		observer: opts.Observer,
		logger:   opts.Logger.With().Str("server", serverID).Logger(),
		ctx:      ctx,
		cancel:   cancel,
		events:   make(chan Event, buf),
		stopped:  make(chan struct{}),
		state:    StateIdle,
		lines:    []string{},
	}
	s.persister = newPersister(s.writeScrollback)
	return s
}

// ServerID returns the server this session belongs to.
func (s *Session) ServerID() string { return s.serverID }

// State returns the connection state.
func (s *Session) State() State { return s.state }

// Lines returns a copy of the transcript.
func (s *Session) Lines() []string {
	out := make([]string, len(s.lines))
	copy(out, s.lines)
	return out
}

// Size returns the serialized byte size of the transcript.
func (s *Session) Size() int { return s.size }

// MaxBytes returns the scrollback ceiling.
func (s *Session) MaxBytes() int { return s.history.MaxBytes() }

// Events is the queue the owner drains into Handle.
func (s *Session) Events() <-chan Event { return s.events }

// Input returns the pending command text.
func (s *Session) Input() string { return s.input }

// SetInput replaces the pending command text.
func (s *Session) SetInput(text string) { s.input = text }

// --- Lifecycle ---

// Mount loads the persisted scrollback and starts connecting in the
// background. It only acts from Idle or Closed, so a repeated mount does
// not open a second connection.
func (s *Session) Mount(ctx context.Context) {
	if s.tornDown || (s.state != StateIdle && s.state != StateClosed) {
		return
	}

	s.persister.flush()
	s.replaceLines(s.history.Load(ctx, s.serverID))
	s.state = StateConnecting
	s.early = nil
	s.gen++
	s.logger.Info().Int("lines", len(s.lines)).Msg("console mounted")

	go s.connect(s.gen)
}

// Unmount stops the connection and persists the final transcript. Events
// that arrive afterwards are ignored.
func (s *Session) Unmount() {
	s.liveMu.Lock()
	if s.tornDown {
		s.liveMu.Unlock()
		return
	}
	s.tornDown = true
	live := s.live
	s.live = nil
	s.liveMu.Unlock()

	close(s.stopped)
	s.cancel()
	if live != nil {
		_ = live.Stop()
	}
	if s.conn != nil && s.conn != live {
		_ = s.conn.Stop()
	}
	s.conn = nil
	s.state = StateClosed
	s.persister.close()
	s.logger.Info().Msg("console unmounted")
}

func (s *Session) connect(gen uint64) {
	endpoint, err := s.resolver.ConsoleEndpoint(s.ctx, s.serverID)
	if err != nil {
		s.post(Event{Kind: EventConnectFailed, Err: err, gen: gen})
		return
	}

	conn := s.dial(endpoint)
	onMessage := func(payload string) {
		s.post(Event{Kind: EventMessage, Text: payload, gen: gen})
	}
	conn.On(hub.EventCommandResult, onMessage)
	conn.On(hub.EventMessage, onMessage)
	conn.OnReconnecting(func(err error) {
		s.post(Event{Kind: EventReconnecting, Err: err, gen: gen})
	})
	conn.OnReconnected(func() {
		s.post(Event{Kind: EventReconnected, gen: gen})
	})
	conn.OnClose(func(err error) {
		s.post(Event{Kind: EventClosed, Err: err, gen: gen})
	})

	s.liveMu.Lock()
	if s.tornDown {
		s.liveMu.Unlock()
		return
	}
	s.live = conn
	s.liveMu.Unlock()

	if err := conn.Start(s.ctx); err != nil {
		s.post(Event{Kind: EventConnectFailed, Err: err, gen: gen})
		return
	}
	if !s.post(Event{Kind: EventConnected, conn: conn, gen: gen}) {
		_ = conn.Stop()
	}
}

// post queues ev for the owner. It reports false once the session is torn down.
func (s *Session) post(ev Event) bool {
	select {
	case <-s.stopped:
		return false
	default:
	}
	select {
	case s.events <- ev:
		return true
	case <-s.stopped:
		return false
	}
}

// tryPost is post without blocking, for callers the owner may be waiting on.
func (s *Session) tryPost(ev Event) {
	select {
	case <-s.stopped:
	case s.events <- ev:
	default:
		s.logger.Debug().Stringer("event", ev.Kind).Msg("event queue full, dropped")
	}
}

// --- Event handling ---

// Handle applies one event. Events from a previous connection attempt and
// events after Unmount are dropped. Scrollback write failures are not tied
// to a connection and are always applied.
func (s *Session) Handle(ev Event) {
	stale := ev.Kind != EventPersistFailed && ev.gen != s.gen
	if s.tornDown || stale {
		if ev.conn != nil && ev.conn != s.conn {
			_ = ev.conn.Stop()
		}
		return
	}
	if s.state == StateConnecting && heldUntilConnected(ev.Kind) {
		s.early = append(s.early, ev)
		return
	}

	switch ev.Kind {
	case EventConnected:
		if s.state != StateConnecting {
			_ = ev.conn.Stop()
			return
		}
		s.conn = ev.conn
		s.state = StateConnected
		s.appendLine(LineConnected)
		early := s.early
		s.early = nil
		for _, held := range early {
			s.Handle(held)
		}

	case EventConnectFailed:
		s.logger.Warn().Err(ev.Err).Msg("console connection failed")
		s.early = nil
		s.conn = nil
		s.state = StateClosed
		s.appendLine(PrefixConnectFailed + errText(ev.Err))

	case EventReconnecting:
		if s.state != StateConnected {
			return
		}
		s.state = StateReconnecting
		s.appendLine(LineReconnecting)

	case EventReconnected:
		if s.state != StateReconnecting {
			return
		}
		s.state = StateConnected
		s.appendLine(LineReconnected)
		s.persister.flush()
		s.replaceLines(s.history.Load(s.ctx, s.serverID))

	case EventClosed:
		if s.state == StateClosed {
			return
		}
		if ev.Err != nil {
			s.logger.Warn().Err(ev.Err).Msg("console connection closed")
		}
		s.conn = nil
		s.state = StateClosed
		s.appendLine(LineClosed)

	case EventMessage:
		s.appendLine(ev.Text)

	case EventSendFailed:
		s.appendLine(PrefixSendFailed + errText(ev.Err))

	case EventPersistFailed:
		if s.persistWarned {
			return
		}
		s.persistWarned = true
		s.appendLine(PrefixPersistFailed + errText(ev.Err))
	}
}

// heldUntilConnected reports whether kind can be delivered by the hub while
// Start is still returning.
func heldUntilConnected(kind EventKind) bool {
	switch kind {
	case EventMessage, EventReconnecting, EventReconnected, EventClosed:
		return true
	}
	return false
}

// --- User operations ---

// Submit echoes the pending input and, when connected, sends it in the
// background. Blank input is ignored; otherwise the input is cleared.
func (s *Session) Submit() {
	text := s.input
	if strings.TrimSpace(text) == "" {
		return
	}
	s.input = ""
	s.appendLine(EchoPrefix + text)

	if s.state != StateConnected || s.conn == nil {
		s.appendLine(LineNotConnected)
		return
	}

	conn, gen := s.conn, s.gen
	s.logger.Info().Str("command", logging.SanitizeForLog(text)).Msg("sending command")
	go func() {
		if err := conn.Send(s.ctx, text); err != nil {
			s.post(Event{Kind: EventSendFailed, Err: err, gen: gen})
		}
	}()
}

// Clear deletes the persisted scrollback and empties the transcript.
func (s *Session) Clear(ctx context.Context) error {
	s.persister.discard()
	s.replaceLines([]string{})
	return s.history.Clear(ctx, s.serverID)
}

// --- Transcript ---

// appendLine adds one entry, dropping the oldest entries while the
// transcript is over the ceiling. The observer still sees the new line as an
// append; a trimmed front is visible through Lines.
func (s *Session) appendLine(line string) {
	if len(s.lines) > 0 {
		s.size++
	}
	s.size += len(line)
	s.lines = append(s.lines, line)

	limit := s.history.MaxBytes()
	drop := 0
	for s.size > limit && drop < len(s.lines) {
		s.size -= len(s.lines[drop])
		if drop < len(s.lines)-1 {
			s.size-- // separator after the dropped entry
		}
		drop++
	}
	if drop > 0 {
		s.lines = s.lines[drop:]
	}

	if s.observer != nil {
		if len(s.lines) > 0 {
			s.observer.LineAppended(line)
		} else {
			s.observer.TranscriptReplaced(s.Lines())
		}
	}
	s.schedulePersist()
}

func (s *Session) replaceLines(lines []string) {
	if len(lines) > 0 && history.SerializedSize(lines) > s.history.MaxBytes() {
		lines = history.Trim(lines, s.history.MaxBytes())
	}
	s.lines = lines
	s.size = history.SerializedSize(lines)
	if s.observer != nil {
		s.observer.TranscriptReplaced(s.Lines())
	}
}

// schedulePersist hands the persister a view of the transcript. Entries are
// never modified in place, so the view stays valid after later appends.
func (s *Session) schedulePersist() {
	n := len(s.lines)
	s.persister.schedule(s.lines[:n:n])
}

func (s *Session) writeScrollback(lines []string) {
	if _, err := s.history.Persist(context.Background(), s.serverID, lines); err != nil {
		s.logger.Warn().Err(err).Msg("scrollback write failed")
		s.tryPost(Event{Kind: EventPersistFailed, Err: err})
	}
}

func errText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
