// Package protocol defines the JSON messages exchanged over the hub's
// WebSocket connections: app registration, heartbeats, correlated
// request/reply pairs and the extension control channel.
package protocol

import (
	"encoding/json"
	"fmt"
)

// DefaultPort is the hub's default listening port.
const DefaultPort = 12300

// MessageType identifies typed control messages. Requests and replies carry
// no type.
type MessageType string

const (
	TypeInit             MessageType = "init"
	TypePing             MessageType = "ping"
	TypePong             MessageType = "pong"
	TypeExtensionInit    MessageType = "extension-init"
	TypeExtensionInitAck MessageType = "extension-init-ack"
)

// Platforms an app instance may register as.
const (
	PlatformIOS     = "ios"
	PlatformAndroid = "android"
)

// ValidPlatform reports whether p is a known platform name.
func ValidPlatform(p string) bool {
	return p == PlatformIOS || p == PlatformAndroid
}

// Message is the single wire envelope. Which fields are set decides its kind:
// Type for control messages, ID+Method for requests, ID without Method for
// replies.
type Message struct {
	Type       MessageType     `json:"type,omitempty"`
	Platform   string          `json:"platform,omitempty"`
	DeviceName string          `json:"deviceName,omitempty"`
	ID         string          `json:"id,omitempty"`
	Method     Method          `json:"method,omitempty"`
	Params     json.RawMessage `json:"params,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// IsRequest reports whether m asks the receiver to run a method.
func (m Message) IsRequest() bool {
	return m.Type == "" && m.Method != ""
}

// IsReply reports whether m answers an earlier request.
func (m Message) IsReply() bool {
	return m.Type == "" && m.Method == "" && m.ID != ""
}

// Decode parses one wire message.
func Decode(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}
	return m, nil
}

// NewRequest builds a request envelope. A nil params omits the field.
func NewRequest(id string, method Method, params any) (Message, error) {
	m := Message{ID: id, Method: method}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return Message{}, fmt.Errorf("encode %s params: %w", method, err)
		}
		m.Params = raw
	}
	return m, nil
}

// NewReply builds a successful reply. A nil result is sent as JSON null.
func NewReply(id string, result any) (Message, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return Message{}, fmt.Errorf("encode result: %w", err)
	}
	return Message{ID: id, Result: raw}, nil
}

// NewErrorReply builds a failed reply.
func NewErrorReply(id, msg string) Message {
	return Message{ID: id, Error: msg}
}

// DeviceInfo describes one registered device in a getDevices reply.
type DeviceInfo struct {
	DeviceID   string  `json:"deviceId"   yaml:"deviceId"`
	Platform   string  `json:"platform"   yaml:"platform"`
	DeviceName *string `json:"deviceName" yaml:"deviceName"`
	Connected  bool    `json:"connected"  yaml:"connected"`
}

// Name returns the display name or "" when the device sent none.
func (d DeviceInfo) Name() string {
	if d.DeviceName == nil {
		return ""
	}
	return *d.DeviceName
}
