package console

// State 控制台会话状态
// State is the console session's view of its hub connection.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Transcript status lines.
const (
	LineConnected       = "Connected to OpenVPN"
	LineReconnecting    = "Reconnecting to OpenVPN..."
	LineReconnected     = "Reconnected to OpenVPN"
	LineClosed          = "Connection closed."
	LineNotConnected    = "Cannot send command: not connected"
	PrefixConnectFailed = "Connection failed: "
	PrefixSendFailed    = "Failed to send command: "
	PrefixPersistFailed = "Scrollback could not be saved: "
	EchoPrefix          = "> "
)
