package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mj1618/mobile-cli/internal/protocol"
)

// ExtensionClient talks to a running hub over the extension channel. It can
// list devices and forward device methods, but never registers as a device.
type ExtensionClient struct {
	conn *wsConn

	mu      sync.Mutex
	pending map[string]chan protocol.Message
	err     error
	done    chan struct{}
}

// Dial connects to the hub at url (ws://host:port/) and completes the
// extension handshake.
func Dial(ctx context.Context, url string) (*ExtensionClient, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("connect to hub at %s: %w", url, err)
	}

	if err := ws.WriteJSON(protocol.Message{Type: protocol.TypeExtensionInit}); err != nil {
		ws.Close()
		return nil, fmt.Errorf("extension handshake: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		ws.SetReadDeadline(deadline)
	}
	var ack protocol.Message
	if err := ws.ReadJSON(&ack); err != nil {
		ws.Close()
		return nil, fmt.Errorf("extension handshake: %w", err)
	}
	if ack.Type != protocol.TypeExtensionInitAck {
		ws.Close()
		return nil, fmt.Errorf("extension handshake: unexpected %q", ack.Type)
	}
	ws.SetReadDeadline(time.Time{})

	c := &ExtensionClient{
		conn:    &wsConn{conn: ws},
		pending: make(map[string]chan protocol.Message),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func (c *ExtensionClient) readLoop() {
	defer close(c.done)
	for {
		_, data, err := c.conn.conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			c.err = err
			c.mu.Unlock()
			return
		}
		m, err := protocol.Decode(data)
		if err != nil {
			continue
		}
		if m.Type == protocol.TypePing {
			c.conn.WriteJSON(protocol.Message{Type: protocol.TypePong})
			continue
		}
		if !m.IsReply() {
			continue
		}
		c.mu.Lock()
		ch := c.pending[m.ID]
		delete(c.pending, m.ID)
		c.mu.Unlock()
		if ch != nil {
			ch <- m
		}
	}
}

// request sends one extension request and waits for its reply.
func (c *ExtensionClient) request(method protocol.Method, params any, timeout time.Duration) (json.RawMessage, error) {
	id := uuid.NewString()
	msg, err := protocol.NewRequest(id, method, params)
	if err != nil {
		return nil, err
	}

	ch := make(chan protocol.Message, 1)
	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := c.conn.WriteJSON(msg); err != nil {
		return nil, fmt.Errorf("send %s: %w", method, err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case m := <-ch:
		if m.Error != "" {
			return nil, &RemoteError{Method: method, Message: m.Error}
		}
		if len(m.Result) == 0 {
			return json.RawMessage("null"), nil
		}
		return m.Result, nil
	case <-timer.C:
		return nil, fmt.Errorf("%s: %w", method, ErrRequestTimeout)
	case <-c.done:
		return nil, fmt.Errorf("%s: %w", method, ErrConnectionClosed)
	}
}

// ListDevices returns every device registered with the hub.
func (c *ExtensionClient) ListDevices() ([]protocol.DeviceInfo, error) {
	raw, err := c.request(protocol.MethodGetDevices, nil, DefaultRequestTimeout)
	if err != nil {
		return nil, err
	}
	var devices []protocol.DeviceInfo
	if err := json.Unmarshal(raw, &devices); err != nil {
		return nil, fmt.Errorf("decode device list: %w", err)
	}
	return devices, nil
}

// Lookup applies the device selection policy to the hub's device list.
func (c *ExtensionClient) Lookup(deviceID, platform string) (protocol.DeviceInfo, error) {
	devices, err := c.ListDevices()
	if err != nil {
		return protocol.DeviceInfo{}, err
	}
	return SelectDevice(devices, deviceID, platform)
}

// Call forwards method to deviceID through the hub. The hub enforces
// timeout; the client waits a little longer so the hub's answer wins.
func (c *ExtensionClient) Call(deviceID string, method protocol.Method, params any, timeout time.Duration) (json.RawMessage, error) {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	routed, err := withTarget(params, protocol.Target{
		DeviceID:  deviceID,
		TimeoutMs: int(timeout / time.Millisecond),
	})
	if err != nil {
		return nil, err
	}
	return c.request(method, routed, timeout+2*time.Second)
}

// Close closes the connection. Pending calls fail with ErrConnectionClosed.
func (c *ExtensionClient) Close() error {
	c.conn.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	err := c.conn.Close()
	<-c.done
	return err
}

// withTarget merges the routing fields into params' JSON object.
func withTarget(params any, target protocol.Target) (json.RawMessage, error) {
	fields := map[string]json.RawMessage{}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("encode params: %w", err)
		}
		if string(raw) != "null" {
			if err := json.Unmarshal(raw, &fields); err != nil {
				return nil, fmt.Errorf("params must be a JSON object: %w", err)
			}
		}
	}
	routing, err := json.Marshal(target)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(routing, &fields); err != nil {
		return nil, err
	}
	return json.Marshal(fields)
}
