package config

const (
	DefaultAPITimeoutMS          = 15000
	DefaultHandshakeTimeoutMS    = 15000
	DefaultScrollbackMaxBytes    = 25 * 1024 * 1024
	DefaultDBName                = "console.db"
	DefaultLogFile               = "console.log"
	DefaultLogLevel              = "info"
	DefaultBaseDir               = "~/.ovpn-console"
	DefaultProjectConfigFileName = "ovpn-console.json"
)

// DefaultReconnectDelaysMS 断线后每次重连前的等待（毫秒）
// DefaultReconnectDelaysMS is the wait before each reconnect attempt, in milliseconds.
var DefaultReconnectDelaysMS = []int{0, 2000, 10000, 30000}
