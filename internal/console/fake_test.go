package console

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"ovpnconsole/internal/history"
	"ovpnconsole/internal/hub"
	"ovpnconsole/internal/storage"
)

// fakeConn is a scripted hub.Conn.
type fakeConn struct {
	mu             sync.Mutex
	handlers       map[string][]hub.Handler
	onReconnecting []func(error)
	onReconnected  []func()
	onClose        []func(error)
	state          hub.State

	startErr error
	sendErr  error
	// duringStart runs inside Start, before it returns.
	duringStart func()
	starts   int
	stops    int
	sent     chan string
}

func newFakeConn() *fakeConn {
	return &fakeConn{handlers: make(map[string][]hub.Handler), sent: make(chan string, 16)}
}

func (f *fakeConn) Start(context.Context) error {
	f.mu.Lock()
	f.starts++
	if f.startErr != nil {
		f.mu.Unlock()
		return f.startErr
	}
	f.state = hub.StateConnected
	during := f.duringStart
	f.mu.Unlock()

	if during != nil {
		during()
	}
	return nil
}

func (f *fakeConn) Send(_ context.Context, command string) error {
	f.sent <- command
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sendErr
}

func (f *fakeConn) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	f.state = hub.StateDisconnected
	return nil
}

func (f *fakeConn) On(event string, h hub.Handler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[event] = append(f.handlers[event], h)
}

func (f *fakeConn) OnReconnecting(fn func(error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onReconnecting = append(f.onReconnecting, fn)
}

func (f *fakeConn) OnReconnected(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onReconnected = append(f.onReconnected, fn)
}

func (f *fakeConn) OnClose(fn func(error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onClose = append(f.onClose, fn)
}

func (f *fakeConn) State() hub.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeConn) emit(event, payload string) {
	f.mu.Lock()
	hs := append([]hub.Handler(nil), f.handlers[event]...)
	f.mu.Unlock()
	for _, h := range hs {
		h(payload)
	}
}

func (f *fakeConn) dropped(err error) {
	f.mu.Lock()
	fns := append([]func(error){}, f.onReconnecting...)
	f.mu.Unlock()
	for _, fn := range fns {
		fn(err)
	}
}

func (f *fakeConn) restored() {
	f.mu.Lock()
	fns := append([]func(){}, f.onReconnected...)
	f.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (f *fakeConn) closed(err error) {
	f.mu.Lock()
	fns := append([]func(error){}, f.onClose...)
	f.mu.Unlock()
	for _, fn := range fns {
		fn(err)
	}
}

func (f *fakeConn) counts() (starts, stops int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts, f.stops
}

type fakeResolver struct {
	err   error
	calls atomic.Int32
}

func (r *fakeResolver) ConsoleEndpoint(_ context.Context, serverID string) (string, error) {
	r.calls.Add(1)
	if r.err != nil {
		return "", r.err
	}
	return "ws://hub.test/console/" + serverID, nil
}

type recordingObserver struct {
	appended []string
	replaced int
}

func (o *recordingObserver) LineAppended(line string)    { o.appended = append(o.appended, line) }
func (o *recordingObserver) TranscriptReplaced([]string) { o.replaced++ }

// failingPutStore loads normally and fails every write.
type failingPutStore struct {
	storage.Store
}

func (failingPutStore) Put(context.Context, string, string) error {
	return errors.New("disk full")
}

type harness struct {
	session  *Session
	conn     *fakeConn
	resolver *fakeResolver
	store    storage.Store
	history  *history.History
	observer *recordingObserver
}

func newHarness(t *testing.T, store storage.Store, maxBytes int) *harness {
	t.Helper()
	if store == nil {
		store = storage.NewMemoryStore()
	}
	h := &harness{
		conn:     newFakeConn(),
		resolver: &fakeResolver{},
		store:    store,
		history:  history.New(store, maxBytes, zerolog.Nop()),
		observer: &recordingObserver{},
	}
	h.session = New("srv-1", Options{
		Resolver: h.resolver,
		Dial:     func(string) hub.Conn { return h.conn },
		History:  h.history,
		Logger:   zerolog.Nop(),
		Observer: h.observer,
	})
	t.Cleanup(h.session.Unmount)
	return h
}

// pump feeds queued events to Handle until cond holds.
func pump(t *testing.T, s *Session, cond func() bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for !cond() {
		select {
		case ev := <-s.Events():
			s.Handle(ev)
		case <-deadline:
			t.Fatalf("condition not reached: state=%s lines=%q", s.State(), s.Lines())
		}
	}
}

// settle handles whatever arrives within a short quiet period.
func settle(s *Session) {
	for {
		select {
		case ev := <-s.Events():
			s.Handle(ev)
		case <-time.After(50 * time.Millisecond):
			return
		}
	}
}

func (h *harness) mountConnected(t *testing.T) {
	t.Helper()
	h.session.Mount(context.Background())
	pump(t, h.session, func() bool { return h.session.State() == StateConnected })
}

func waitSent(t *testing.T, c *fakeConn) string {
	t.Helper()
	select {
	case cmd := <-c.sent:
		return cmd
	case <-time.After(2 * time.Second):
		t.Fatal("Send was not called")
		return ""
	}
}

func requireNoSend(t *testing.T, c *fakeConn) {
	t.Helper()
	select {
	case cmd := <-c.sent:
		require.Failf(t, "unexpected Send", "command %q", cmd)
	case <-time.After(50 * time.Millisecond):
	}
}

func lastLine(s *Session) string {
	lines := s.Lines()
	if len(lines) == 0 {
		return ""
	}
	return lines[len(lines)-1]
}
