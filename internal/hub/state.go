package hub

import "context"

// State 连接状态
// State is the lifecycle state of a hub connection
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	case StateReconnecting:
		return "Reconnecting"
	default:
		return "Unknown"
	}
}

// Handler receives the text payload of a named hub event.
type Handler func(payload string)

// Conn is a real-time hub connection with automatic reconnection.
// Handlers and lifecycle callbacks run on the connection's own goroutine
// and must not block.
type Conn interface {
	Start(ctx context.Context) error
	Send(ctx context.Context, command string) error
	Stop() error

	On(event string, handler Handler)
	OnReconnecting(fn func(err error))
	OnReconnected(fn func())
	OnClose(fn func(err error))

	State() State
}
