package session

import (
	"errors"
	"fmt"

	"github.com/mj1618/mobile-cli/internal/protocol"
)

var (
	// ErrNotConnected means the named device is not registered or has closed.
	ErrNotConnected = errors.New("device not connected")
	// ErrNoDeviceConnected means no device is connected at all.
	ErrNoDeviceConnected = errors.New("no device connected")
	// ErrNoDeviceForPlatform means no device of the requested platform is connected.
	ErrNoDeviceForPlatform = errors.New("no device connected for platform")
	// ErrAmbiguousDevice means more than one device qualifies and the caller
	// must name one.
	ErrAmbiguousDevice = errors.New("multiple devices connected, specify a device id or platform")
	// ErrRequestTimeout means no reply arrived before the deadline.
	ErrRequestTimeout = errors.New("request timed out")
	// ErrConnectionClosed rejects every request still pending when a
	// connection goes away.
	ErrConnectionClosed = errors.New("connection closed")
)

// RemoteError is an error reply sent by the app.
type RemoteError struct {
	Method  protocol.Method
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s", e.Method, e.Message)
}
