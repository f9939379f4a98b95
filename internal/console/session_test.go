package console

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ovpnconsole/internal/history"
	"ovpnconsole/internal/hub"
	"ovpnconsole/internal/storage"
)

func TestMount_LoadsScrollbackBeforeConnecting(t *testing.T) {
	store := storage.NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), "srv-1", "a\nb\nc"))
	h := newHarness(t, store, 0)

	h.session.Mount(context.Background())

	assert.Equal(t, []string{"a", "b", "c"}, h.session.Lines())
	assert.Equal(t, StateConnecting, h.session.State())
	assert.Equal(t, 1, h.observer.replaced)

	pump(t, h.session, func() bool { return h.session.State() == StateConnected })
	assert.Equal(t, []string{"a", "b", "c", LineConnected}, h.session.Lines())
}

func TestMount_TwiceStartsOnce(t *testing.T) {
	h := newHarness(t, nil, 0)

	h.session.Mount(context.Background())
	h.session.Mount(context.Background())
	pump(t, h.session, func() bool { return h.session.State() == StateConnected })
	h.session.Mount(context.Background())
	settle(h.session)

	starts, _ := h.conn.counts()
	assert.Equal(t, 1, starts)
	assert.EqualValues(t, 1, h.resolver.calls.Load())
	assert.Equal(t, []string{LineConnected}, h.session.Lines())
}

func TestSubmit_WhileConnecting(t *testing.T) {
	h := newHarness(t, nil, 0)
	h.session.Mount(context.Background())
	require.Equal(t, StateConnecting, h.session.State())

	h.session.SetInput("status")
	h.session.Submit()

	assert.Equal(t, []string{"> status", LineNotConnected}, h.session.Lines())
	assert.Empty(t, h.session.Input())
	requireNoSend(t, h.conn)

	pump(t, h.session, func() bool { return h.session.State() == StateConnected })
	requireNoSend(t, h.conn)
}

func TestSubmit_WhileConnected(t *testing.T) {
	h := newHarness(t, nil, 0)
	h.mountConnected(t)
	before := h.session.Lines()

	h.session.SetInput("kill client-7")
	h.session.Submit()

	assert.Equal(t, append(before, "> kill client-7"), h.session.Lines())
	assert.Empty(t, h.session.Input())
	assert.Equal(t, "kill client-7", waitSent(t, h.conn))
}

func TestSubmit_BlankInputIsIgnored(t *testing.T) {
	h := newHarness(t, nil, 0)
	h.mountConnected(t)

	h.session.SetInput("   ")
	h.session.Submit()

	assert.Equal(t, []string{LineConnected}, h.session.Lines())
	assert.Equal(t, "   ", h.session.Input())
	requireNoSend(t, h.conn)
}

func TestSubmit_SendFailure(t *testing.T) {
	h := newHarness(t, nil, 0)
	h.conn.sendErr = errors.New("hub: connection lost")
	h.mountConnected(t)

	h.session.SetInput("version")
	h.session.Submit()
	waitSent(t, h.conn)

	pump(t, h.session, func() bool { return lastLine(h.session) == "Failed to send command: hub: connection lost" })
	assert.Equal(t, StateConnected, h.session.State())
}

func TestInboundEventsAppendAndPersist(t *testing.T) {
	h := newHarness(t, nil, 0)
	h.mountConnected(t)

	h.conn.emit(hub.EventCommandResult, "SUCCESS: pid=4242")
	h.conn.emit(hub.EventMessage, ">INFO:OpenVPN Management Interface")
	pump(t, h.session, func() bool { return len(h.session.Lines()) == 3 })

	assert.Equal(t, []string{
		LineConnected,
		"SUCCESS: pid=4242",
		">INFO:OpenVPN Management Interface",
	}, h.session.Lines())
	assert.Equal(t, h.session.Lines(), h.observer.appended)

	h.session.Unmount()
	assert.Equal(t, h.session.Lines(), h.history.Load(context.Background(), "srv-1"))
}

func TestReconnect_ReconcilesWithPersistedScrollback(t *testing.T) {
	h := newHarness(t, nil, 0)
	h.mountConnected(t)
	h.conn.emit(hub.EventMessage, "before drop")
	pump(t, h.session, func() bool { return lastLine(h.session) == "before drop" })

	h.conn.dropped(errors.New("read: connection reset"))
	pump(t, h.session, func() bool { return h.session.State() == StateReconnecting })
	assert.Equal(t, LineReconnecting, lastLine(h.session))

	h.session.SetInput("status")
	h.session.Submit()
	assert.Equal(t, LineNotConnected, lastLine(h.session))

	replacedBefore := h.observer.replaced
	h.conn.restored()
	pump(t, h.session, func() bool { return h.session.State() == StateConnected })

	persisted := h.history.Load(context.Background(), "srv-1")
	assert.Equal(t, persisted, h.session.Lines())
	assert.Equal(t, []string{
		LineConnected,
		"before drop",
		LineReconnecting,
		"> status",
		LineNotConnected,
		LineReconnected,
	}, persisted)
	assert.Equal(t, replacedBefore+1, h.observer.replaced)
}

func TestEventsDuringStartApplyAfterConnected(t *testing.T) {
	h := newHarness(t, nil, 0)
	h.conn.duringStart = func() {
		h.conn.emit(hub.EventMessage, ">INFO:greeting")
		h.conn.dropped(errors.New("read: connection reset"))
	}

	h.session.Mount(context.Background())
	pump(t, h.session, func() bool { return h.session.State() == StateReconnecting })
	assert.Equal(t, []string{LineConnected, ">INFO:greeting", LineReconnecting}, h.session.Lines())

	h.conn.restored()
	pump(t, h.session, func() bool { return h.session.State() == StateConnected })
	assert.Equal(t, []string{LineConnected, ">INFO:greeting", LineReconnecting, LineReconnected}, h.session.Lines())
	assert.Equal(t, h.session.Lines(), h.history.Load(context.Background(), "srv-1"))
}

func TestEventsDuringFailedStartAreDropped(t *testing.T) {
	h := newHarness(t, nil, 0)
	h.conn.startErr = errors.New("websocket: bad handshake")
	h.session.Mount(context.Background())
	h.session.Handle(Event{Kind: EventMessage, Text: "stray", gen: h.session.gen})

	pump(t, h.session, func() bool { return h.session.State() == StateClosed })
	settle(h.session)
	assert.Equal(t, []string{"Connection failed: websocket: bad handshake"}, h.session.Lines())
}

func TestConnectionClosed(t *testing.T) {
	h := newHarness(t, nil, 0)
	h.mountConnected(t)

	h.conn.closed(errors.New("reconnect gave up"))
	pump(t, h.session, func() bool { return h.session.State() == StateClosed })
	assert.Equal(t, LineClosed, lastLine(h.session))

	h.session.SetInput("status")
	h.session.Submit()
	assert.Equal(t, LineNotConnected, lastLine(h.session))
	requireNoSend(t, h.conn)
}

func TestConnectFailure_Resolver(t *testing.T) {
	h := newHarness(t, nil, 0)
	h.resolver.err = errors.New("api: http 404: server not found")

	h.session.Mount(context.Background())
	pump(t, h.session, func() bool { return h.session.State() == StateClosed })

	assert.Equal(t, []string{"Connection failed: api: http 404: server not found"}, h.session.Lines())
	starts, _ := h.conn.counts()
	assert.Zero(t, starts)
}

func TestConnectFailure_HandshakeThenRemount(t *testing.T) {
	h := newHarness(t, nil, 0)
	h.conn.startErr = errors.New("websocket: bad handshake")

	h.session.Mount(context.Background())
	pump(t, h.session, func() bool { return h.session.State() == StateClosed })
	assert.Equal(t, "Connection failed: websocket: bad handshake", lastLine(h.session))

	h.conn.mu.Lock()
	h.conn.startErr = nil
	h.conn.mu.Unlock()
	h.session.Mount(context.Background())
	pump(t, h.session, func() bool { return h.session.State() == StateConnected })

	assert.Equal(t, []string{"Connection failed: websocket: bad handshake", LineConnected}, h.session.Lines())
	assert.EqualValues(t, 2, h.resolver.calls.Load())
}

func TestUnmount_StopsConnectionAndDropsLateEvents(t *testing.T) {
	h := newHarness(t, nil, 0)
	h.mountConnected(t)
	gen := h.session.gen

	h.session.Unmount()
	_, stops := h.conn.counts()
	assert.Equal(t, 1, stops)
	assert.Equal(t, StateClosed, h.session.State())
	assert.Equal(t, []string{LineConnected}, h.session.Lines())

	h.session.Handle(Event{Kind: EventMessage, Text: "late", gen: gen})
	h.session.Handle(Event{Kind: EventClosed, gen: gen})
	assert.Equal(t, []string{LineConnected}, h.session.Lines())

	h.session.Mount(context.Background())
	assert.Equal(t, StateClosed, h.session.State())
	h.session.Unmount()
}

func TestUnmount_BeforeConnected(t *testing.T) {
	h := newHarness(t, nil, 0)
	h.session.Mount(context.Background())
	h.session.Unmount()

	settle(h.session)
	assert.Empty(t, h.session.Lines())
	assert.Equal(t, StateClosed, h.session.State())
}

func TestClear_IsIdempotent(t *testing.T) {
	h := newHarness(t, nil, 0)
	h.mountConnected(t)
	h.conn.emit(hub.EventMessage, "line")
	pump(t, h.session, func() bool { return lastLine(h.session) == "line" })

	require.NoError(t, h.session.Clear(context.Background()))
	assert.Empty(t, h.session.Lines())
	require.NoError(t, h.session.Clear(context.Background()))
	assert.Empty(t, h.session.Lines())
	assert.Zero(t, h.session.Size())

	_, ok, err := h.store.Get(context.Background(), "srv-1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, StateConnected, h.session.State())
}

func TestTranscriptRespectsCeiling(t *testing.T) {
	h := newHarness(t, nil, 32)
	h.mountConnected(t)

	for _, msg := range []string{"0123456789", "abcdefghij", "ABCDEFGHIJ", "klmnopqrst"} {
		h.conn.emit(hub.EventMessage, msg)
	}
	pump(t, h.session, func() bool { return lastLine(h.session) == "klmnopqrst" })

	assert.Equal(t, []string{"abcdefghij", "ABCDEFGHIJ", "klmnopqrst"}, h.session.Lines())
	assert.LessOrEqual(t, h.session.Size(), 32)

	h.session.Unmount()
	assert.Equal(t, h.session.Lines(), h.history.Load(context.Background(), "srv-1"))
}

func TestObserverSeesEveryLineAtCeiling(t *testing.T) {
	h := newHarness(t, nil, 64)
	h.mountConnected(t)
	replacedBefore := h.observer.replaced

	for i := 0; i < 10; i++ {
		h.conn.emit(hub.EventMessage, fmt.Sprintf("line-%d-0123456789", i))
	}
	pump(t, h.session, func() bool { return lastLine(h.session) == "line-9-0123456789" })

	want := []string{LineConnected}
	for i := 0; i < 10; i++ {
		want = append(want, fmt.Sprintf("line-%d-0123456789", i))
	}
	assert.Equal(t, want, h.observer.appended)
	assert.Equal(t, replacedBefore, h.observer.replaced, "trimming at the ceiling is not a replacement")

	lines := h.session.Lines()
	assert.Equal(t, []string{"line-7-0123456789", "line-8-0123456789", "line-9-0123456789"}, lines)
	assert.Equal(t, history.SerializedSize(lines), h.session.Size())
	assert.LessOrEqual(t, h.session.Size(), 64)
}

func TestOversizedLineEmptiesTranscript(t *testing.T) {
	h := newHarness(t, nil, 24)
	h.mountConnected(t)
	require.Equal(t, []string{LineConnected}, h.session.Lines())

	h.conn.emit(hub.EventMessage, strings.Repeat("x", 25))
	pump(t, h.session, func() bool { return len(h.session.Lines()) == 0 })

	assert.Equal(t, 0, h.session.Size())
	h.conn.emit(hub.EventMessage, "short")
	pump(t, h.session, func() bool { return lastLine(h.session) == "short" })
	assert.Equal(t, []string{"short"}, h.session.Lines())
	assert.Equal(t, "short", h.observer.appended[len(h.observer.appended)-1])
}

func TestPersistFailure_SurfacedOnce(t *testing.T) {
	h := newHarness(t, failingPutStore{Store: storage.NewMemoryStore()}, 0)
	h.mountConnected(t)

	pump(t, h.session, func() bool {
		return strings.HasPrefix(lastLine(h.session), "Scrollback could not be saved: ")
	})
	h.conn.emit(hub.EventMessage, "one")
	h.conn.emit(hub.EventMessage, "two")
	pump(t, h.session, func() bool { return lastLine(h.session) == "two" })
	settle(h.session)

	warnings := 0
	for _, line := range h.session.Lines() {
		if strings.HasPrefix(line, "Scrollback could not be saved: ") {
			warnings++
			assert.Contains(t, line, "disk full")
		}
	}
	assert.Equal(t, 1, warnings)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "reconnecting", StateReconnecting.String())
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "persist-failed", EventPersistFailed.String())
}
