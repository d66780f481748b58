package session

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mj1618/mobile-cli/internal/logger"
	"github.com/mj1618/mobile-cli/internal/protocol"
)

// wsConn serializes writes to a gorilla connection, which allows only one
// concurrent writer.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsConn) WriteJSON(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteJSON(v)
}

func (w *wsConn) Close() error {
	return w.conn.Close()
}

// ServerOptions configures the hub.
type ServerOptions struct {
	// RequestTimeout bounds proxied extension requests that carry no
	// timeoutMs of their own.
	RequestTimeout time.Duration
}

// Server is the WebSocket hub apps and extension clients connect to. Each
// connection is read by its own goroutine, so messages from one transport
// are handled in order while transports proceed independently.
type Server struct {
	registry       *Registry
	requestTimeout time.Duration
	upgrader       websocket.Upgrader

	mu       sync.Mutex
	conns    map[*wsConn]struct{}
	http     *http.Server
	listener net.Listener
}

// NewServer creates a hub backed by registry.
func NewServer(registry *Registry, opts ServerOptions) *Server {
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &Server{
		registry:       registry,
		requestTimeout: timeout,
		upgrader: websocket.Upgrader{
			// Apps are not browsers; any origin may connect.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		conns: make(map[*wsConn]struct{}),
	}
}

// Registry returns the registry the hub registers devices in.
func (s *Server) Registry() *Registry { return s.registry }

// Start listens on addr and serves in the background. It returns the bound
// address, which differs from addr when addr uses port 0.
func (s *Server) Start(addr string) (net.Addr, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	srv := &http.Server{Handler: s, ReadHeaderTimeout: 10 * time.Second}

	s.mu.Lock()
	s.http = srv
	s.listener = ln
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("hub stopped: %v", err)
		}
	}()
	logger.Info("hub listening on %s", ln.Addr())
	return ln.Addr(), nil
}

// Shutdown stops accepting connections and closes every open transport.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.http
	conns := make([]*wsConn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	var err error
	if srv != nil {
		err = srv.Shutdown(ctx)
	}
	for _, c := range conns {
		c.Close()
	}
	return err
}

// ServeHTTP upgrades the request and runs the connection's read loop until
// it closes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debug("websocket upgrade failed: %v", err)
		return
	}
	c := &wsConn{conn: ws}

	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.conns, c)
		s.mu.Unlock()
	}()

	s.serveConn(c)
}

func (s *Server) serveConn(c *wsConn) {
	var device *DeviceConnection
	var proxied sync.WaitGroup
	defer func() {
		if device != nil {
			s.registry.Remove(device, ErrConnectionClosed)
		} else {
			c.Close()
		}
		proxied.Wait()
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if device != nil {
				logger.Device(device.ID).Debugf("read: %v", err)
			}
			return
		}
		if device != nil {
			s.registry.Touch(device)
		}

		m, err := protocol.Decode(data)
		if err != nil {
			logger.Debug("dropping malformed message: %v", err)
			continue
		}

		switch {
		case m.Type == protocol.TypePing:
			s.write(c, protocol.Message{Type: protocol.TypePong})
		case m.Type == protocol.TypePong:
		case m.Type == protocol.TypeInit:
			if device != nil {
				logger.Device(device.ID).Warn("duplicate init ignored")
				continue
			}
			if !protocol.ValidPlatform(m.Platform) {
				logger.Warn("init with unknown platform %q ignored", m.Platform)
				continue
			}
			device = s.registry.Register(c, m.Platform, m.DeviceName)
		case m.Type == protocol.TypeExtensionInit:
			s.write(c, protocol.Message{Type: protocol.TypeExtensionInitAck})
		case device != nil && m.IsReply():
			s.registry.Deliver(device, m)
		case device == nil && m.IsRequest():
			s.handleExtension(c, m, &proxied)
		default:
			logger.Debug("ignoring message %s", data)
		}
	}
}

// handleExtension answers one extension request. getDevices is answered
// inline; device methods are forwarded to the resolved device and awaited
// on their own goroutine so the channel keeps reading.
func (s *Server) handleExtension(c *wsConn, m protocol.Message, inflight *sync.WaitGroup) {
	id := m.ID
	if id == "" {
		id = uuid.NewString()
	}

	switch {
	case m.Method == protocol.MethodGetDevices:
		s.reply(c, id, s.registry.Devices())
		return
	case !m.Method.DeviceMethod():
		s.write(c, protocol.NewErrorReply(id, "unknown method: "+string(m.Method)))
		return
	}

	var target protocol.Target
	if err := protocol.DecodeParams(m.Params, &target); err != nil {
		s.write(c, protocol.NewErrorReply(id, err.Error()))
		return
	}
	device, err := s.registry.ResolveDevice(target.DeviceID, target.Platform)
	if err != nil {
		s.write(c, protocol.NewErrorReply(id, err.Error()))
		return
	}

	timeout := s.requestTimeout
	if target.TimeoutMs > 0 {
		timeout = time.Duration(target.TimeoutMs) * time.Millisecond
	}
	var params any
	if len(m.Params) > 0 {
		params = m.Params
	}

	inflight.Add(1)
	go func() {
		defer inflight.Done()
		result, err := s.registry.SendRequest(device, m.Method, params, timeout)
		if err != nil {
			var remote *RemoteError
			if errors.As(err, &remote) {
				s.write(c, protocol.NewErrorReply(id, remote.Message))
				return
			}
			s.write(c, protocol.NewErrorReply(id, err.Error()))
			return
		}
		s.write(c, protocol.Message{ID: id, Result: result})
	}()
}

func (s *Server) reply(c *wsConn, id string, result any) {
	m, err := protocol.NewReply(id, result)
	if err != nil {
		m = protocol.NewErrorReply(id, err.Error())
	}
	s.write(c, m)
}

func (s *Server) write(c *wsConn, m protocol.Message) {
	if err := c.WriteJSON(m); err != nil {
		logger.Debug("write: %v", err)
	}
}
