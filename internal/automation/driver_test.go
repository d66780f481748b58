package automation

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mj1618/mobile-cli/internal/agent"
	"github.com/mj1618/mobile-cli/internal/geometry"
	"github.com/mj1618/mobile-cli/internal/model"
	"github.com/mj1618/mobile-cli/internal/platform"
	"github.com/mj1618/mobile-cli/internal/protocol"
	"github.com/mj1618/mobile-cli/internal/session"
)

type screen struct {
	mu   sync.Mutex
	root *model.Node
}

func (s *screen) Snapshot() (*model.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.root, nil
}

func (s *screen) Viewport() (geometry.Viewport, error) {
	return geometry.Viewport{Width: 390, Height: 844}, nil
}

func (s *screen) set(root *model.Node) {
	s.mu.Lock()
	s.root = root
	s.mu.Unlock()
}

func measure(x, y, w, h float64) *model.Measure {
	return &model.Measure{Width: w, Height: h, PageX: x, PageY: y}
}

func appTree() *model.Node {
	return &model.Node{Type: "View", Children: []model.Node{
		{Type: "Pressable", TestID: "submit", Capabilities: model.Capabilities{Press: true}, Measure: measure(95, 600, 200, 44)},
		{Type: "ScrollView", TestID: "sheet", Capabilities: model.Capabilities{Scroll: true}, Measure: measure(0, 700, 390, 360)},
		{Type: "View", TestID: "offscreen", Measure: measure(0, 900, 390, 100)},
		{Type: "TextInput", TestID: "email", Measure: measure(20, 100, 350, 40)},
		{Type: "Text", TestID: "label", Text: "Hello"},
	}}
}

// fakeBackend answers calls by dispatching straight into app agents.
type fakeBackend struct {
	mu       sync.Mutex
	devices  []protocol.DeviceInfo
	agents   map[string]*agent.Agent
	calls    []protocol.Method
	onRemove []func(string)
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{agents: map[string]*agent.Agent{}}
}

func (f *fakeBackend) add(id, platformName string, a *agent.Agent) {
	f.devices = append(f.devices, protocol.DeviceInfo{DeviceID: id, Platform: platformName, Connected: true})
	f.agents[id] = a
}

func (f *fakeBackend) ListDevices() ([]protocol.DeviceInfo, error) { return f.devices, nil }

func (f *fakeBackend) Lookup(deviceID, platformName string) (protocol.DeviceInfo, error) {
	return session.SelectDevice(f.devices, deviceID, platformName)
}

func (f *fakeBackend) Call(deviceID string, method protocol.Method, params any, _ time.Duration) (json.RawMessage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, method)
	a := f.agents[deviceID]
	f.mu.Unlock()
	if a == nil {
		return nil, session.ErrNotConnected
	}
	m, err := protocol.NewRequest("1", method, params)
	if err != nil {
		return nil, err
	}
	reply := a.Dispatch(m)
	if reply.Error != "" {
		return nil, &session.RemoteError{Method: method, Message: reply.Error}
	}
	return reply.Result, nil
}

func (f *fakeBackend) OnRemove(fn func(string)) { f.onRemove = append(f.onRemove, fn) }

func (f *fakeBackend) count(method protocol.Method) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == method {
			n++
		}
	}
	return n
}

func newDriver(t *testing.T) (*Driver, *fakeBackend, *platform.LogInputter, *screen) {
	t.Helper()
	sc := &screen{root: appTree()}
	in := platform.NewLogInputter()
	b := newFakeBackend()
	b.add("ios-1", "ios", agent.New(sc, in, agent.Options{Platform: "ios"}))
	return New(b, Options{ViewportTTL: time.Minute}), b, in, sc
}

func TestTapElementCenter(t *testing.T) {
	d, _, in, _ := newDriver(t)
	res, err := d.Tap(Target{}, "#submit")
	require.NoError(t, err)
	require.Equal(t, "ios-1", res.Device)
	require.Equal(t, "submit", res.Element.UID)
	require.Equal(t, geometry.Point{X: 195, Y: 622}, geometry.Point{X: res.X, Y: res.Y})
	require.Equal(t, []platform.Action{{Kind: "tap", X: 195, Y: 622}}, in.Actions())
}

func TestTapClampsPartlyVisibleElement(t *testing.T) {
	d, _, in, _ := newDriver(t)
	res, err := d.Tap(Target{}, "ScrollView")
	require.NoError(t, err)
	require.Equal(t, 195.0, res.X)
	require.Equal(t, 772.0, res.Y)
	require.Equal(t, 772.0, in.Actions()[0].Y)
}

func TestTapOffScreen(t *testing.T) {
	d, _, in, _ := newDriver(t)
	_, err := d.Tap(Target{}, "#offscreen")
	require.ErrorIs(t, err, geometry.ErrOffScreen)
	require.EqualError(t, err, "tap failed: element off-screen")
	require.Empty(t, in.Actions())
}

func TestTapErrors(t *testing.T) {
	d, _, _, _ := newDriver(t)

	_, err := d.Tap(Target{}, "#missing")
	require.ErrorIs(t, err, ErrElementNotFound)

	_, err = d.Tap(Target{}, "#label")
	require.ErrorIs(t, err, ErrNotMeasured)

	_, err = d.Tap(Target{}, `:text("unterminated`)
	require.ErrorIs(t, err, ErrElementNotFound, "malformed selectors fail closed as no match")

	_, err = d.Tap(Target{Platform: "android"}, "#submit")
	require.ErrorIs(t, err, session.ErrNoDeviceForPlatform)
	require.Contains(t, err.Error(), "tap failed: ")

	empty := New(newFakeBackend(), Options{})
	_, err = empty.Tap(Target{}, "#submit")
	require.ErrorIs(t, err, session.ErrNoDeviceConnected)
}

func TestAmbiguousDevice(t *testing.T) {
	d, b, _, _ := newDriver(t)
	b.add("android-1", "android", agent.New(&screen{root: appTree()}, platform.NewLogInputter(), agent.Options{}))

	_, err := d.Tap(Target{}, "#submit")
	require.ErrorIs(t, err, session.ErrAmbiguousDevice)

	res, err := d.Tap(Target{DeviceID: "android-1"}, "#submit")
	require.NoError(t, err)
	require.Equal(t, "android-1", res.Device)
}

func TestTapAtClampsToScreen(t *testing.T) {
	d, _, in, _ := newDriver(t)
	res, err := d.TapAt(Target{}, 500, -10)
	require.NoError(t, err)
	require.Equal(t, 390.0, res.X)
	require.Equal(t, 0.0, res.Y)
	require.Len(t, in.Actions(), 1)
}

func TestLongPress(t *testing.T) {
	d, _, in, _ := newDriver(t)
	_, err := d.LongPress(Target{}, "#email", 2*time.Second)
	require.NoError(t, err)
	a := in.Actions()[0]
	require.Equal(t, "longPress", a.Kind)
	require.Equal(t, 2*time.Second, a.Duration)
	require.Equal(t, 195.0, a.X)
	require.Equal(t, 120.0, a.Y)

	_, err = d.LongPress(Target{}, "#offscreen", 0)
	require.EqualError(t, err, "long press failed: element off-screen")
}

func TestSwipe(t *testing.T) {
	d, _, in, _ := newDriver(t)

	// From the clamped sheet origin, half a screen up.
	res, err := d.Swipe(Target{}, SwipeOptions{Selector: "#sheet", Direction: platform.DirectionUp})
	require.NoError(t, err)
	require.Equal(t, 772.0, res.Y)
	require.Equal(t, 350.0, *res.ToY)

	// Destination beyond the edge is clamped, never an error.
	res, err = d.Swipe(Target{}, SwipeOptions{Direction: platform.DirectionRight, Distance: 1000})
	require.NoError(t, err)
	require.Equal(t, 195.0, res.X)
	require.Equal(t, 390.0, *res.ToX)
	require.Equal(t, 422.0, *res.ToY)

	actions := in.Actions()
	require.Len(t, actions, 2)
	require.Equal(t, "swipe", actions[1].Kind)

	_, err = d.Swipe(Target{}, SwipeOptions{Selector: "#offscreen", Direction: platform.DirectionDown})
	require.ErrorIs(t, err, geometry.ErrOffScreen)
	require.Contains(t, err.Error(), "swipe failed")
}

func TestTypeTextFocusesFirst(t *testing.T) {
	d, _, in, _ := newDriver(t)
	_, err := d.TypeText(Target{}, "#email", "me@example.com")
	require.NoError(t, err)
	actions := in.Actions()
	require.Len(t, actions, 2)
	require.Equal(t, "tap", actions[0].Kind)
	require.Equal(t, platform.Action{Kind: "typeText", Text: "me@example.com"}, actions[1])

	_, err = d.TypeText(Target{}, "", "more")
	require.NoError(t, err)
	require.Len(t, in.Actions(), 3)

	_, err = d.TypeText(Target{}, "#missing", "x")
	require.ErrorIs(t, err, ErrElementNotFound)
}

func TestFindAndFindAll(t *testing.T) {
	d, b, _, _ := newDriver(t)

	el, err := d.Find(Target{}, "")
	require.NoError(t, err)
	require.Nil(t, el)
	all, err := d.FindAll(Target{}, "  ")
	require.NoError(t, err)
	require.Empty(t, all)
	require.Equal(t, 0, b.count(protocol.MethodQuery), "empty selectors never reach the device")

	el, err = d.Find(Target{}, "Text")
	require.NoError(t, err)
	require.Equal(t, "Hello", el.Text)

	all, err = d.FindAll(Target{}, "View > View, Pressable")
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "submit", all[0].UID)
	require.Equal(t, "offscreen", all[1].UID)
}

func TestTreeAndViewport(t *testing.T) {
	d, _, _, _ := newDriver(t)
	root, err := d.Tree(Target{})
	require.NoError(t, err)
	require.Len(t, root.Children, 5)

	vp, err := d.Viewport(Target{})
	require.NoError(t, err)
	require.Equal(t, geometry.Viewport{Width: 390, Height: 844}, vp)
}

func TestViewportCachedUntilDeviceRemoved(t *testing.T) {
	d, b, _, _ := newDriver(t)
	_, err := d.Tap(Target{}, "#submit")
	require.NoError(t, err)
	_, err = d.Tap(Target{}, "#email")
	require.NoError(t, err)
	require.Equal(t, 1, b.count(protocol.MethodGetViewport))

	for _, fn := range b.onRemove {
		fn("ios-1")
	}
	_, err = d.Tap(Target{}, "#submit")
	require.NoError(t, err)
	require.Equal(t, 2, b.count(protocol.MethodGetViewport))
}

func TestRemoteErrorSurfaces(t *testing.T) {
	d, b, _, _ := newDriver(t)
	b.agents["ios-1"] = agent.New(nil, platform.NewLogInputter(), agent.Options{})
	_, err := d.Tap(Target{}, "#submit")
	var remote *session.RemoteError
	require.True(t, errors.As(err, &remote))
	require.Contains(t, err.Error(), "tap failed: query: no tree reader configured")
}

func TestWaitFor(t *testing.T) {
	d, _, _, sc := newDriver(t)
	ctx := context.Background()

	res, err := d.WaitFor(ctx, Target{}, WaitOptions{Selector: "#submit", Timeout: time.Second, Interval: 5 * time.Millisecond})
	require.NoError(t, err)
	require.True(t, res.OK)
	require.Equal(t, "submit", res.Element.UID)

	res, err = d.WaitFor(ctx, Target{}, WaitOptions{Selector: "#spinner", Gone: true, Timeout: time.Second, Interval: 5 * time.Millisecond})
	require.NoError(t, err)
	require.True(t, res.OK)
	require.Equal(t, "#spinner gone", res.Match)

	go func() {
		time.Sleep(30 * time.Millisecond)
		tree := appTree()
		tree.Children = append(tree.Children, model.Node{Type: "Text", TestID: "toast", Text: "Saved"})
		sc.set(tree)
	}()
	res, err = d.WaitFor(ctx, Target{}, WaitOptions{Selector: `:text("Saved")`, Timeout: 2 * time.Second, Interval: 5 * time.Millisecond})
	require.NoError(t, err)
	require.True(t, res.OK)

	res, err = d.WaitFor(ctx, Target{}, WaitOptions{Selector: "#never", Timeout: 30 * time.Millisecond, Interval: 5 * time.Millisecond})
	require.Error(t, err)
	require.True(t, res.TimedOut)
	require.False(t, res.OK)
}
