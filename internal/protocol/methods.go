package protocol

import (
	"encoding/json"
	"fmt"
)

// Method is a request method name. Apps dispatch it through a fixed handler
// table; there is no code evaluation outside the optional eval handler.
type Method string

const (
	MethodQuery       Method = "query"
	MethodGetTree     Method = "getTree"
	MethodGetViewport Method = "getViewport"
	MethodTap         Method = "tap"
	MethodLongPress   Method = "longPress"
	MethodSwipe       Method = "swipe"
	MethodTypeText    Method = "typeText"
	MethodEval        Method = "eval"

	// MethodGetDevices is answered by the hub itself on the extension
	// channel and is never forwarded to an app.
	MethodGetDevices Method = "getDevices"
)

var deviceMethods = map[Method]bool{
	MethodQuery:       true,
	MethodGetTree:     true,
	MethodGetViewport: true,
	MethodTap:         true,
	MethodLongPress:   true,
	MethodSwipe:       true,
	MethodTypeText:    true,
	MethodEval:        true,
}

// DeviceMethod reports whether m is a method an app can be asked to run.
func (m Method) DeviceMethod() bool {
	return deviceMethods[m]
}

// Target names the device an extension request is for. All fields are
// optional; the hub applies the usual device selection policy and its own
// request timeout unless TimeoutMs overrides it.
type Target struct {
	DeviceID  string `json:"deviceId,omitempty"`
	Platform  string `json:"platform,omitempty"`
	TimeoutMs int    `json:"timeoutMs,omitempty"`
}

// QueryParams runs a selector against the app's live tree. With All the
// result is a list of descriptors, otherwise one descriptor or null.
type QueryParams struct {
	Target
	Selector string `json:"selector"`
	All      bool   `json:"all,omitempty"`
}

// PointParams is a single screen coordinate.
type PointParams struct {
	Target
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// LongPressParams holds a point for DurationMs milliseconds.
type LongPressParams struct {
	Target
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	DurationMs int     `json:"durationMs,omitempty"`
}

// SwipeParams drags from one point to another.
type SwipeParams struct {
	Target
	FromX      float64 `json:"fromX"`
	FromY      float64 `json:"fromY"`
	ToX        float64 `json:"toX"`
	ToY        float64 `json:"toY"`
	DurationMs int     `json:"durationMs,omitempty"`
}

// TypeTextParams types into the focused element.
type TypeTextParams struct {
	Target
	Text string `json:"text"`
}

// EvalParams is handed to an app-registered eval handler.
type EvalParams struct {
	Target
	Code string `json:"code"`
}

// Ack is the result of input methods.
type Ack struct {
	OK bool `json:"ok"`
}

// DecodeParams unmarshals raw params into v. Missing params decode as an
// empty object.
func DecodeParams(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	return nil
}
