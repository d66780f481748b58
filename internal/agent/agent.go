// Package agent is the app-side runtime. It registers with the hub, keeps
// the connection alive and answers requests through a fixed table of
// method handlers over a platform.Reader and platform.Inputter.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mj1618/mobile-cli/internal/logger"
	"github.com/mj1618/mobile-cli/internal/platform"
	"github.com/mj1618/mobile-cli/internal/protocol"
)

// DefaultPingInterval keeps the hub's liveness clock fresh well inside its
// staleness threshold.
const DefaultPingInterval = 10 * time.Second

// HandlerFunc runs one method. Its result is sent back as JSON.
type HandlerFunc func(params json.RawMessage) (any, error)

// Options configures an Agent.
type Options struct {
	Platform     string
	DeviceName   string
	PingInterval time.Duration
}

// Agent answers hub requests for one app instance.
type Agent struct {
	reader platform.Reader
	input  platform.Inputter
	opts   Options

	mu       sync.RWMutex
	handlers map[protocol.Method]HandlerFunc

	writeMu sync.Mutex
}

// New creates an agent with the built-in handler table.
func New(reader platform.Reader, input platform.Inputter, opts Options) *Agent {
	if opts.PingInterval <= 0 {
		opts.PingInterval = DefaultPingInterval
	}
	a := &Agent{
		reader:   reader,
		input:    input,
		opts:     opts,
		handlers: make(map[protocol.Method]HandlerFunc),
	}
	a.registerBuiltins()
	return a
}

// Handle sets the handler for a method of the closed method set. eval has
// no handler until the app registers one.
func (a *Agent) Handle(method protocol.Method, fn HandlerFunc) error {
	if !method.DeviceMethod() {
		return fmt.Errorf("unknown method: %s", method)
	}
	a.mu.Lock()
	a.handlers[method] = fn
	a.mu.Unlock()
	return nil
}

// Dispatch runs a request and returns the reply to send.
func (a *Agent) Dispatch(m protocol.Message) protocol.Message {
	a.mu.RLock()
	fn := a.handlers[m.Method]
	a.mu.RUnlock()

	if fn == nil {
		if m.Method.DeviceMethod() {
			return protocol.NewErrorReply(m.ID, fmt.Sprintf("%s is not supported by this app", m.Method))
		}
		return protocol.NewErrorReply(m.ID, "unknown method: "+string(m.Method))
	}

	result, err := fn(m.Params)
	if err != nil {
		return protocol.NewErrorReply(m.ID, err.Error())
	}
	reply, err := protocol.NewReply(m.ID, result)
	if err != nil {
		return protocol.NewErrorReply(m.ID, err.Error())
	}
	return reply
}

// Run connects to the hub at url, sends init and serves requests until ctx
// is done or the connection drops.
func (a *Agent) Run(ctx context.Context, url string) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("connect to hub at %s: %w", url, err)
	}
	defer conn.Close()

	if err := a.write(conn, protocol.Message{
		Type:       protocol.TypeInit,
		Platform:   a.opts.Platform,
		DeviceName: a.opts.DeviceName,
	}); err != nil {
		return fmt.Errorf("send init: %w", err)
	}
	logger.Info("agent registered with %s as %s", url, a.opts.Platform)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	go a.keepAlive(ctx, conn)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read from hub: %w", err)
		}
		m, err := protocol.Decode(data)
		if err != nil {
			logger.Debug("agent: dropping malformed message: %v", err)
			continue
		}
		switch {
		case m.Type == protocol.TypePing:
			err = a.write(conn, protocol.Message{Type: protocol.TypePong})
		case m.IsRequest():
			err = a.write(conn, a.Dispatch(m))
		}
		if err != nil {
			return fmt.Errorf("write to hub: %w", err)
		}
	}
}

func (a *Agent) keepAlive(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(a.opts.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.write(conn, protocol.Message{Type: protocol.TypePing}); err != nil {
				return
			}
		}
	}
}

func (a *Agent) write(conn *websocket.Conn, m protocol.Message) error {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	return conn.WriteJSON(m)
}
