// Package session owns the connections to running app instances: device
// registration, request/reply correlation, heartbeat reaping and the
// extension control channel.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mj1618/mobile-cli/internal/logger"
	"github.com/mj1618/mobile-cli/internal/protocol"
)

const (
	DefaultHeartbeatInterval = 15 * time.Second
	DefaultStaleAfter        = 60 * time.Second
	DefaultRequestTimeout    = 10 * time.Second
)

// Transport is the send/close half of a connection. WriteJSON may be called
// from several goroutines at once.
type Transport interface {
	WriteJSON(v any) error
	Close() error
}

// DeviceConnection is one registered app instance.
type DeviceConnection struct {
	ID          string
	Platform    string
	DisplayName string

	transport   Transport
	lastMessage time.Time // guarded by Registry.mu

	mu      sync.Mutex
	pending map[string]*pendingRequest
	closed  bool
}

type pendingRequest struct {
	method protocol.Method
	timer  *time.Timer
	done   chan reply // buffered, receives exactly once
}

type reply struct {
	result json.RawMessage
	err    error
}

// Info describes the connection for device listings.
func (c *DeviceConnection) Info() protocol.DeviceInfo {
	info := protocol.DeviceInfo{
		DeviceID:  c.ID,
		Platform:  c.Platform,
		Connected: c.Live(),
	}
	if c.DisplayName != "" {
		name := c.DisplayName
		info.DeviceName = &name
	}
	return info
}

// Live reports whether the transport is still open.
func (c *DeviceConnection) Live() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

// Pending returns the number of outstanding requests.
func (c *DeviceConnection) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// take removes and returns the pending request for id. Whoever gets a
// non-nil result owns its resolution.
func (c *DeviceConnection) take(id string) *pendingRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.pending[id]
	delete(c.pending, id)
	return p
}

// close marks the connection closed, rejects everything pending with cause
// and closes the transport. Later calls are no-ops.
func (c *DeviceConnection) close(cause error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	pending := c.pending
	c.pending = make(map[string]*pendingRequest)
	c.mu.Unlock()

	for _, p := range pending {
		p.timer.Stop()
		p.done <- reply{err: cause}
	}
	c.transport.Close()
}

// Options configures a Registry. Zero values take the defaults.
type Options struct {
	HeartbeatInterval time.Duration
	StaleAfter        time.Duration
	// Now replaces the clock used for liveness, for tests.
	Now func() time.Time
}

// Registry is the table of connected devices. It is created by the process
// entry point and passed to whatever needs it.
type Registry struct {
	mu       sync.Mutex
	conns    map[string]*DeviceConnection
	counters map[string]int
	onRemove []func(deviceID string)

	interval   time.Duration
	staleAfter time.Duration
	now        func() time.Time

	stopOnce sync.Once
	stop     chan struct{}
	stopped  chan struct{}
	started  bool
}

// NewRegistry creates an empty registry. Call Start to run the heartbeat.
func NewRegistry(opts Options) *Registry {
	r := &Registry{
		conns:      make(map[string]*DeviceConnection),
		counters:   make(map[string]int),
		interval:   opts.HeartbeatInterval,
		staleAfter: opts.StaleAfter,
		now:        opts.Now,
		stop:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
	if r.interval <= 0 {
		r.interval = DefaultHeartbeatInterval
	}
	if r.staleAfter <= 0 {
		r.staleAfter = DefaultStaleAfter
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// Register adds a connection for an app that sent init. Its id is
// "<platform>-<n>" where n counts every registration so far for that
// platform, live or not.
func (r *Registry) Register(t Transport, platform, displayName string) *DeviceConnection {
	r.mu.Lock()
	r.counters[platform]++
	c := &DeviceConnection{
		ID:          fmt.Sprintf("%s-%d", platform, r.counters[platform]),
		Platform:    platform,
		DisplayName: displayName,
		transport:   t,
		lastMessage: r.now(),
		pending:     make(map[string]*pendingRequest),
	}
	r.conns[c.ID] = c
	r.mu.Unlock()

	logger.Device(c.ID).WithField("name", displayName).Info("device registered")
	return c
}

// Touch records that a message arrived on c.
func (r *Registry) Touch(c *DeviceConnection) {
	r.mu.Lock()
	c.lastMessage = r.now()
	r.mu.Unlock()
}

// Get returns the connection registered under id, live or not.
func (r *Registry) Get(id string) (*DeviceConnection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[id]
	return c, ok
}

// Devices lists registered connections ordered by id.
func (r *Registry) Devices() []protocol.DeviceInfo {
	r.mu.Lock()
	conns := make([]*DeviceConnection, 0, len(r.conns))
	for _, c := range r.conns {
		conns = append(conns, c)
	}
	r.mu.Unlock()

	out := make([]protocol.DeviceInfo, 0, len(conns))
	for _, c := range conns {
		out = append(out, c.Info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out
}

// ResolveDevice picks a live connection using SelectDevice's policy.
func (r *Registry) ResolveDevice(deviceID, platform string) (*DeviceConnection, error) {
	info, err := SelectDevice(r.Devices(), deviceID, platform)
	if err != nil {
		return nil, err
	}
	c, ok := r.Get(info.DeviceID)
	if !ok || !c.Live() {
		return nil, fmt.Errorf("%w: %s", ErrNotConnected, info.DeviceID)
	}
	return c, nil
}

// SendRequest sends method to c and waits for the reply carrying the same
// id, or until timeout. The pending entry is removed exactly once by
// whichever of reply, timeout or connection close comes first.
func (r *Registry) SendRequest(c *DeviceConnection, method protocol.Method, params any, timeout time.Duration) (json.RawMessage, error) {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	id := uuid.NewString()
	msg, err := protocol.NewRequest(id, method, params)
	if err != nil {
		return nil, err
	}

	p := &pendingRequest{method: method, done: make(chan reply, 1)}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, fmt.Errorf("%s on %s: %w", method, c.ID, ErrConnectionClosed)
	}
	c.pending[id] = p
	p.timer = time.AfterFunc(timeout, func() {
		if c.take(id) != nil {
			p.done <- reply{err: ErrRequestTimeout}
		}
	})
	c.mu.Unlock()

	if err := c.transport.WriteJSON(msg); err != nil {
		if c.take(id) != nil {
			p.timer.Stop()
			return nil, fmt.Errorf("send %s to %s: %w", method, c.ID, err)
		}
	}

	res := <-p.done
	if res.err != nil {
		var remote *RemoteError
		if errors.As(res.err, &remote) {
			return nil, res.err
		}
		return nil, fmt.Errorf("%s on %s: %w", method, c.ID, res.err)
	}
	return res.result, nil
}

// Deliver resolves the pending request a reply answers. Replies with an
// unknown id are ignored and reported as false.
func (r *Registry) Deliver(c *DeviceConnection, m protocol.Message) bool {
	p := c.take(m.ID)
	if p == nil {
		logger.Device(c.ID).WithField("id", m.ID).Debug("reply for unknown request ignored")
		return false
	}
	p.timer.Stop()
	switch {
	case m.Error != "":
		p.done <- reply{err: &RemoteError{Method: p.method, Message: m.Error}}
	case len(m.Result) == 0:
		p.done <- reply{result: json.RawMessage("null")}
	default:
		p.done <- reply{result: m.Result}
	}
	return true
}

// Remove closes c, rejects its pending requests with cause and drops it from
// the table.
func (r *Registry) Remove(c *DeviceConnection, cause error) {
	r.mu.Lock()
	removed := r.conns[c.ID] == c
	if removed {
		delete(r.conns, c.ID)
	}
	hooks := append([]func(string){}, r.onRemove...)
	r.mu.Unlock()

	c.close(cause)
	if removed {
		logger.Device(c.ID).WithField("cause", cause).Info("device removed")
		for _, fn := range hooks {
			fn(c.ID)
		}
	}
}

// OnRemove registers fn to run after a device leaves the table.
func (r *Registry) OnRemove(fn func(deviceID string)) {
	r.mu.Lock()
	r.onRemove = append(r.onRemove, fn)
	r.mu.Unlock()
}

// Sweep closes every connection with no inbound message for longer than the
// staleness threshold and returns their ids. Staleness is decided under the
// same lock Touch takes, so a message that arrives first always wins.
func (r *Registry) Sweep() []string {
	now := r.now()
	var stale []*DeviceConnection
	r.mu.Lock()
	for id, c := range r.conns {
		if now.Sub(c.lastMessage) > r.staleAfter {
			stale = append(stale, c)
			delete(r.conns, id)
		}
	}
	hooks := append([]func(string){}, r.onRemove...)
	r.mu.Unlock()

	ids := make([]string, 0, len(stale))
	for _, c := range stale {
		logger.Device(c.ID).Warn("no message within liveness threshold, closing")
		c.close(ErrConnectionClosed)
		for _, fn := range hooks {
			fn(c.ID)
		}
		ids = append(ids, c.ID)
	}
	sort.Strings(ids)
	return ids
}

// Start runs the heartbeat sweep every interval until Stop.
func (r *Registry) Start() {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return
	}
	r.started = true
	r.mu.Unlock()

	go func() {
		defer close(r.stopped)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.Sweep()
			case <-r.stop:
				return
			}
		}
	}()
}

// Stop ends the heartbeat and closes every connection.
func (r *Registry) Stop() {
	r.stopOnce.Do(func() {
		close(r.stop)
		r.mu.Lock()
		started := r.started
		conns := make([]*DeviceConnection, 0, len(r.conns))
		for _, c := range r.conns {
			conns = append(conns, c)
		}
		r.mu.Unlock()
		if started {
			<-r.stopped
		}
		for _, c := range conns {
			r.Remove(c, ErrConnectionClosed)
		}
	})
}

// ListDevices returns Devices. It lets the registry stand in for a remote
// hub client.
func (r *Registry) ListDevices() ([]protocol.DeviceInfo, error) {
	return r.Devices(), nil
}

// Lookup resolves a device without sending anything.
func (r *Registry) Lookup(deviceID, platform string) (protocol.DeviceInfo, error) {
	c, err := r.ResolveDevice(deviceID, platform)
	if err != nil {
		return protocol.DeviceInfo{}, err
	}
	return c.Info(), nil
}

// Call resolves deviceID and sends method to it.
func (r *Registry) Call(deviceID string, method protocol.Method, params any, timeout time.Duration) (json.RawMessage, error) {
	c, err := r.ResolveDevice(deviceID, "")
	if err != nil {
		return nil, err
	}
	return r.SendRequest(c, method, params, timeout)
}
