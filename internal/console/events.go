package console

import "ovpnconsole/internal/hub"

// EventKind identifies what happened off the owner goroutine.
type EventKind int

const (
	EventConnected EventKind = iota
	EventConnectFailed
	EventReconnecting
	EventReconnected
	EventClosed
	EventMessage
	EventSendFailed
	EventPersistFailed
)

func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventConnectFailed:
		return "connect-failed"
	case EventReconnecting:
		return "reconnecting"
	case EventReconnected:
		return "reconnected"
	case EventClosed:
		return "closed"
	case EventMessage:
		return "message"
	case EventSendFailed:
		return "send-failed"
	case EventPersistFailed:
		return "persist-failed"
	default:
		return "unknown"
	}
}

// Event is posted by background work and applied by Session.Handle.
type Event struct {
	Kind EventKind
	Text string
	Err  error

	conn hub.Conn
	gen  uint64
}
