// Package automation resolves selectors on a connected app, turns the
// matched element into an on-screen point and issues input there.
package automation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mj1618/mobile-cli/internal/geometry"
	"github.com/mj1618/mobile-cli/internal/logger"
	"github.com/mj1618/mobile-cli/internal/model"
	"github.com/mj1618/mobile-cli/internal/platform"
	"github.com/mj1618/mobile-cli/internal/protocol"
)

var (
	// ErrElementNotFound means the selector matched nothing.
	ErrElementNotFound = errors.New("element not found")
	// ErrNotMeasured means the element has no layout rectangle to act on.
	ErrNotMeasured = errors.New("element has no measurement")
)

// Backend reaches connected devices. session.Registry serves it in-process
// and session.ExtensionClient serves it through a running hub.
type Backend interface {
	ListDevices() ([]protocol.DeviceInfo, error)
	Lookup(deviceID, platform string) (protocol.DeviceInfo, error)
	Call(deviceID string, method protocol.Method, params any, timeout time.Duration) (json.RawMessage, error)
}

// Target picks the device an action runs on. Empty fields let the device
// selection policy decide.
type Target struct {
	DeviceID string
	Platform string
}

// Options configures a Driver.
type Options struct {
	RequestTimeout time.Duration
	ViewportTTL    time.Duration
}

// Driver is the automation façade.
type Driver struct {
	backend   Backend
	timeout   time.Duration
	viewports *ViewportCache
}

// New creates a driver. When the backend reports device removals the
// viewport cache entry of a departed device is dropped.
func New(backend Backend, opts Options) *Driver {
	d := &Driver{
		backend:   backend,
		timeout:   opts.RequestTimeout,
		viewports: NewViewportCache(opts.ViewportTTL),
	}
	if r, ok := backend.(interface{ OnRemove(func(string)) }); ok {
		r.OnRemove(d.viewports.Invalidate)
	}
	return d
}

// ActionResult describes where an action landed.
type ActionResult struct {
	Device  string                   `yaml:"device"            json:"device"`
	Element *model.ElementDescriptor `yaml:"element,omitempty" json:"element,omitempty"`
	X       float64                  `yaml:"x"                 json:"x"`
	Y       float64                  `yaml:"y"                 json:"y"`
	ToX     *float64                 `yaml:"toX,omitempty"     json:"toX,omitempty"`
	ToY     *float64                 `yaml:"toY,omitempty"     json:"toY,omitempty"`
}

// Devices lists devices known to the backend.
func (d *Driver) Devices() ([]protocol.DeviceInfo, error) {
	return d.backend.ListDevices()
}

// Resolve returns the id of the device t selects.
func (d *Driver) Resolve(t Target) (string, error) {
	return d.resolve(t)
}

func (d *Driver) resolve(t Target) (string, error) {
	info, err := d.backend.Lookup(t.DeviceID, t.Platform)
	if err != nil {
		return "", err
	}
	return info.DeviceID, nil
}

func (d *Driver) call(deviceID string, method protocol.Method, params any, out any) error {
	raw, err := d.backend.Call(deviceID, method, params, d.timeout)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}
	return nil
}

// Find returns the first element matching sel, or nil. An empty selector
// matches nothing without asking the device.
func (d *Driver) Find(t Target, sel string) (*model.ElementDescriptor, error) {
	id, err := d.resolve(t)
	if err != nil {
		return nil, err
	}
	return d.find(id, sel)
}

func (d *Driver) find(deviceID, sel string) (*model.ElementDescriptor, error) {
	if strings.TrimSpace(sel) == "" {
		return nil, nil
	}
	var el *model.ElementDescriptor
	if err := d.call(deviceID, protocol.MethodQuery, protocol.QueryParams{Selector: sel}, &el); err != nil {
		return nil, err
	}
	return el, nil
}

// FindAll returns every element matching sel in traversal order.
func (d *Driver) FindAll(t Target, sel string) ([]model.ElementDescriptor, error) {
	id, err := d.resolve(t)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(sel) == "" {
		return []model.ElementDescriptor{}, nil
	}
	var els []model.ElementDescriptor
	if err := d.call(id, protocol.MethodQuery, protocol.QueryParams{Selector: sel, All: true}, &els); err != nil {
		return nil, err
	}
	if els == nil {
		els = []model.ElementDescriptor{}
	}
	return els, nil
}

// Tree returns the device's full UI tree.
func (d *Driver) Tree(t Target) (*model.Node, error) {
	id, err := d.resolve(t)
	if err != nil {
		return nil, err
	}
	var root model.Node
	if err := d.call(id, protocol.MethodGetTree, nil, &root); err != nil {
		return nil, err
	}
	return &root, nil
}

// Viewport returns the device's visible screen size.
func (d *Driver) Viewport(t Target) (geometry.Viewport, error) {
	id, err := d.resolve(t)
	if err != nil {
		return geometry.Viewport{}, err
	}
	return d.viewport(id)
}

func (d *Driver) viewport(deviceID string) (geometry.Viewport, error) {
	return d.viewports.Get(deviceID, func() (geometry.Viewport, error) {
		var vp geometry.Viewport
		err := d.call(deviceID, protocol.MethodGetViewport, nil, &vp)
		return vp, err
	})
}

// locate finds sel on deviceID and clamps its center into the viewport.
func (d *Driver) locate(deviceID, sel string) (*model.ElementDescriptor, geometry.Point, error) {
	el, err := d.find(deviceID, sel)
	if err != nil {
		return nil, geometry.Point{}, err
	}
	if el == nil {
		return nil, geometry.Point{}, fmt.Errorf("%w: %s", ErrElementNotFound, sel)
	}
	center, ok := el.Center()
	if !ok {
		return el, geometry.Point{}, fmt.Errorf("%w: %s", ErrNotMeasured, el.UID)
	}
	vp, err := d.viewport(deviceID)
	if err != nil {
		return el, geometry.Point{}, err
	}
	p, err := geometry.ClampPointToViewport(center.X, center.Y, el.Measure.Screen(), vp)
	if err != nil {
		return el, geometry.Point{}, err
	}
	return el, p, nil
}

// Tap taps the element matching sel.
func (d *Driver) Tap(t Target, sel string) (*ActionResult, error) {
	res, err := d.tap(t, sel)
	if err != nil {
		return nil, fmt.Errorf("tap failed: %w", err)
	}
	return res, nil
}

func (d *Driver) tap(t Target, sel string) (*ActionResult, error) {
	id, err := d.resolve(t)
	if err != nil {
		return nil, err
	}
	el, p, err := d.locate(id, sel)
	if err != nil {
		return nil, err
	}
	if err := d.call(id, protocol.MethodTap, protocol.PointParams{X: p.X, Y: p.Y}, nil); err != nil {
		return nil, err
	}
	logger.Device(id).Debugf("tap %s at (%.0f, %.0f)", sel, p.X, p.Y)
	return &ActionResult{Device: id, Element: el, X: p.X, Y: p.Y}, nil
}

// TapAt taps a raw coordinate, clamped to the screen.
func (d *Driver) TapAt(t Target, x, y float64) (*ActionResult, error) {
	id, err := d.resolve(t)
	if err != nil {
		return nil, fmt.Errorf("tap failed: %w", err)
	}
	vp, err := d.viewport(id)
	if err != nil {
		return nil, fmt.Errorf("tap failed: %w", err)
	}
	p := geometry.ClampCoordToScreen(x, y, vp)
	if err := d.call(id, protocol.MethodTap, protocol.PointParams{X: p.X, Y: p.Y}, nil); err != nil {
		return nil, fmt.Errorf("tap failed: %w", err)
	}
	return &ActionResult{Device: id, X: p.X, Y: p.Y}, nil
}

// LongPress holds the element matching sel for dur. A zero dur uses the
// app's default.
func (d *Driver) LongPress(t Target, sel string, dur time.Duration) (*ActionResult, error) {
	id, err := d.resolve(t)
	if err != nil {
		return nil, fmt.Errorf("long press failed: %w", err)
	}
	el, p, err := d.locate(id, sel)
	if err != nil {
		return nil, fmt.Errorf("long press failed: %w", err)
	}
	params := protocol.LongPressParams{X: p.X, Y: p.Y, DurationMs: int(dur / time.Millisecond)}
	if err := d.call(id, protocol.MethodLongPress, params, nil); err != nil {
		return nil, fmt.Errorf("long press failed: %w", err)
	}
	return &ActionResult{Device: id, Element: el, X: p.X, Y: p.Y}, nil
}

// SwipeOptions describes a swipe gesture.
type SwipeOptions struct {
	// Selector is the element to start on. Empty starts at the viewport
	// center.
	Selector  string
	Direction platform.Direction
	// Distance in screen units. Zero means half the viewport along the
	// swipe axis.
	Distance float64
	Duration time.Duration
}

// Swipe drags from the clamped origin in a direction. The destination is
// clamped to the screen and never fails.
func (d *Driver) Swipe(t Target, opts SwipeOptions) (*ActionResult, error) {
	res, err := d.swipe(t, opts)
	if err != nil {
		return nil, fmt.Errorf("swipe failed: %w", err)
	}
	return res, nil
}

func (d *Driver) swipe(t Target, opts SwipeOptions) (*ActionResult, error) {
	id, err := d.resolve(t)
	if err != nil {
		return nil, err
	}
	vp, err := d.viewport(id)
	if err != nil {
		return nil, err
	}

	origin := vp.Center()
	var el *model.ElementDescriptor
	if strings.TrimSpace(opts.Selector) != "" {
		el, origin, err = d.locate(id, opts.Selector)
		if err != nil {
			return nil, err
		}
	}

	dx, dy := opts.Direction.Vector()
	distance := opts.Distance
	if distance <= 0 {
		if dx != 0 {
			distance = vp.Width / 2
		} else {
			distance = vp.Height / 2
		}
	}
	off := geometry.Offset(origin, dx, dy, distance)
	dest := geometry.ClampCoordToScreen(off.X, off.Y, vp)

	params := protocol.SwipeParams{
		FromX: origin.X, FromY: origin.Y,
		ToX: dest.X, ToY: dest.Y,
		DurationMs: int(opts.Duration / time.Millisecond),
	}
	if err := d.call(id, protocol.MethodSwipe, params, nil); err != nil {
		return nil, err
	}
	return &ActionResult{Device: id, Element: el, X: origin.X, Y: origin.Y, ToX: &dest.X, ToY: &dest.Y}, nil
}

// TypeText types text on the device. With a selector the element is tapped
// first to focus it.
func (d *Driver) TypeText(t Target, sel, text string) (*ActionResult, error) {
	id, err := d.resolve(t)
	if err != nil {
		return nil, fmt.Errorf("type failed: %w", err)
	}
	res := &ActionResult{Device: id}
	if strings.TrimSpace(sel) != "" {
		tapped, err := d.tap(Target{DeviceID: id}, sel)
		if err != nil {
			return nil, fmt.Errorf("type failed: %w", err)
		}
		res = tapped
	}
	if err := d.call(id, protocol.MethodTypeText, protocol.TypeTextParams{Text: text}, nil); err != nil {
		return nil, fmt.Errorf("type failed: %w", err)
	}
	return res, nil
}
