package hub

import (
	"encoding/json"
	"strings"
)

// Hub method and event names used by the OpenVPN console hub.
const (
	MethodExecuteCommand = "ExecuteCommand"

	EventCommandResult = "ReceiveCommandResult"
	EventMessage       = "ReceiveMessage"
)

// Request is a client-initiated JSON-RPC 2.0 call.
type Request struct {
	JSONRPC string                 `json:"jsonrpc"`
	ID      string                 `json:"id"`
	Method  string                 `json:"method"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

// Response answers a Request with the same ID.
type Response struct {
	JSONRPC string          `json:"jsonrpc,omitempty"`
	ID      string          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *RPCError) Error() string {
	return e.Message
}

// EventFrame is a server-initiated push.
type EventFrame struct {
	Type      string          `json:"type,omitempty"`
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp,omitempty"`
}

// frame is the union of every message the hub can send.
type frame struct {
	Type  string          `json:"type,omitempty"`
	ID    string          `json:"id,omitempty"`
	Event string          `json:"event,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`

	Result json.RawMessage `json:"result,omitempty"`
	Error  *RPCError       `json:"error,omitempty"`
}

func (f frame) isEvent() bool {
	return f.Type == "event" || (f.Event != "" && f.ID == "")
}

// payloadText renders an event payload as transcript text: JSON strings are
// unquoted, arrays of strings are joined by newlines, anything else is kept
// as raw JSON.
func payloadText(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var parts []string
	if err := json.Unmarshal(raw, &parts); err == nil {
		return strings.Join(parts, "\n")
	}
	return trimmed
}
