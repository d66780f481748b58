package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/mj1618/mobile-cli/internal/agent"
	"github.com/mj1618/mobile-cli/internal/automation"
	"github.com/mj1618/mobile-cli/internal/geometry"
	"github.com/mj1618/mobile-cli/internal/model"
	"github.com/mj1618/mobile-cli/internal/platform"
	"github.com/mj1618/mobile-cli/internal/session"
	"github.com/mj1618/mobile-cli/internal/wireframe"
)

type staticReader struct{ root *model.Node }

func (r staticReader) Snapshot() (*model.Node, error) { return r.root, nil }
func (r staticReader) Viewport() (geometry.Viewport, error) {
	return geometry.Viewport{Width: 390, Height: 844}, nil
}

func loginTree() *model.Node {
	return &model.Node{Type: "View", Children: []model.Node{
		{Type: "View", Children: []model.Node{
			{Type: "TextInput", TestID: "email", Measure: &model.Measure{Width: 350, Height: 40, PageX: 20, PageY: 100}},
			{
				Type:         "Pressable",
				TestID:       "submit",
				Capabilities: model.Capabilities{Press: true},
				Measure:      &model.Measure{Width: 200, Height: 44, PageX: 95, PageY: 600},
				Children:     []model.Node{{Type: "Text", Text: "Sign in"}},
			},
		}},
	}}
}

// newTestServer starts a hub with one simulated iOS app connected and
// returns an MCP server driving it.
func newTestServer(t *testing.T) (*Server, *platform.LogInputter) {
	t.Helper()
	reg := session.NewRegistry(session.Options{})
	hub := httptest.NewServer(session.NewServer(reg, session.ServerOptions{}))
	t.Cleanup(hub.Close)
	t.Cleanup(reg.Stop)

	in := platform.NewLogInputter()
	a := agent.New(staticReader{root: loginTree()}, in, agent.Options{Platform: "ios", DeviceName: "iPhone 15"})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go a.Run(ctx, "ws"+strings.TrimPrefix(hub.URL, "http")+"/")
	require.Eventually(t, func() bool { return len(reg.Devices()) == 1 }, 2*time.Second, 5*time.Millisecond)

	return New(automation.New(reg, automation.Options{RequestTimeout: time.Second}), "test"), in
}

func call(args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return text.Text
}

func TestDevicesTool(t *testing.T) {
	s, _ := newTestServer(t)
	res, err := s.handleDevices(context.Background(), call(nil))
	require.NoError(t, err)
	require.False(t, res.IsError)
	text := resultText(t, res)
	require.Contains(t, text, "deviceId: ios-1")
	require.Contains(t, text, "deviceName: iPhone 15")
}

func TestFindTool(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()

	res, err := s.handleFind(ctx, call(map[string]interface{}{"selector": "Pressable:text(\"Sign\")"}))
	require.NoError(t, err)
	var el model.ElementDescriptor
	require.NoError(t, yaml.Unmarshal([]byte(resultText(t, res)), &el))
	require.Equal(t, "submit", el.UID)

	res, err = s.handleFind(ctx, call(map[string]interface{}{"selector": "View", "all": true}))
	require.NoError(t, err)
	var all []model.ElementDescriptor
	require.NoError(t, yaml.Unmarshal([]byte(resultText(t, res)), &all))
	require.Len(t, all, 2)
	require.Equal(t, "root", all[0].UID)
	require.Equal(t, "0", all[1].UID)

	res, err = s.handleFind(ctx, call(map[string]interface{}{"selector": "#nope"}))
	require.NoError(t, err)
	require.True(t, res.IsError)
	require.Contains(t, resultText(t, res), "element not found")
}

func TestTapTool(t *testing.T) {
	s, in := newTestServer(t)
	res, err := s.handleTap(context.Background(), call(map[string]interface{}{"selector": "#submit"}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))

	var out automation.StepResult
	require.NoError(t, yaml.Unmarshal([]byte(resultText(t, res)), &out))
	require.True(t, out.OK)
	require.Equal(t, "ios-1", out.Device)
	require.Equal(t, geometry.Point{X: 195, Y: 622}, *out.At)
	require.Equal(t, []platform.Action{{Kind: "tap", X: 195, Y: 622}}, in.Actions())
}

func TestActionToolErrors(t *testing.T) {
	s, in := newTestServer(t)
	ctx := context.Background()

	res, err := s.handleTap(ctx, call(map[string]interface{}{"selector": "#submit", "platform": "android"}))
	require.NoError(t, err)
	require.True(t, res.IsError)
	require.Contains(t, resultText(t, res), "no device connected for platform")

	res, err = s.handleSwipe(ctx, call(map[string]interface{}{"direction": "diagonal"}))
	require.NoError(t, err)
	require.True(t, res.IsError)

	require.Empty(t, in.Actions())
}

func TestTypeAndSwipeTools(t *testing.T) {
	s, in := newTestServer(t)
	ctx := context.Background()

	res, err := s.handleType(ctx, call(map[string]interface{}{"selector": "#email", "text": "me@example.com"}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))

	res, err = s.handleSwipe(ctx, call(map[string]interface{}{"direction": "up", "distance": float64(100)}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))

	res, err = s.handleLongPress(ctx, call(map[string]interface{}{"selector": "#submit", "duration": float64(1000)}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))

	actions := in.Actions()
	require.Len(t, actions, 4)
	require.Equal(t, "typeText", actions[1].Kind)
	require.Equal(t, platform.Action{Kind: "swipe", X: 195, Y: 422, ToX: 195, ToY: 322, Duration: 300 * time.Millisecond}, actions[2])
	require.Equal(t, time.Second, actions[3].Duration)
}

func TestTreeAndViewportTools(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()

	res, err := s.handleTree(ctx, call(nil))
	require.NoError(t, err)
	var root model.Node
	require.NoError(t, yaml.Unmarshal([]byte(resultText(t, res)), &root))
	require.Len(t, root.Children, 2, "anonymous wrapper is pruned by default")

	res, err = s.handleTree(ctx, call(map[string]interface{}{"prune": false, "depth": float64(1)}))
	require.NoError(t, err)
	root = model.Node{}
	require.NoError(t, yaml.Unmarshal([]byte(resultText(t, res)), &root))
	require.Len(t, root.Children, 1)
	require.Empty(t, root.Children[0].Children)

	res, err = s.handleViewport(ctx, call(nil))
	require.NoError(t, err)
	require.Contains(t, resultText(t, res), "width: 390")
}

func TestWaitAndAssertTools(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()

	res, err := s.handleWait(ctx, call(map[string]interface{}{"selector": "#submit", "timeout": float64(1)}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))

	res, err = s.handleWait(ctx, call(map[string]interface{}{"selector": "#spinner", "timeout": 0.05, "interval": float64(10)}))
	require.NoError(t, err)
	require.True(t, res.IsError)
	require.Contains(t, resultText(t, res), "timed out waiting for #spinner")

	res, err = s.handleAssert(ctx, call(map[string]interface{}{"selector": "#submit", "pressable": true, "text": "Sign in"}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))

	res, err = s.handleAssert(ctx, call(map[string]interface{}{"selector": "#email", "pressable": true}))
	require.NoError(t, err)
	require.True(t, res.IsError)
	require.Contains(t, resultText(t, res), "pass: false")
}

func TestDoTool(t *testing.T) {
	s, in := newTestServer(t)
	ctx := context.Background()

	res, err := s.handleDo(ctx, call(map[string]interface{}{
		"steps": []interface{}{
			map[string]interface{}{"type": map[string]interface{}{"selector": "#email", "text": "a@b.c"}},
			map[string]interface{}{"tap": map[string]interface{}{"selector": "#submit"}},
		},
	}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))
	var out automation.BatchResult
	require.NoError(t, yaml.Unmarshal([]byte(resultText(t, res)), &out))
	require.True(t, out.OK)
	require.Equal(t, 2, out.Completed)
	require.Len(t, in.Actions(), 3)

	res, err = s.handleDo(ctx, call(map[string]interface{}{"steps": "tap"}))
	require.NoError(t, err)
	require.True(t, res.IsError)

	res, err = s.handleDo(ctx, call(map[string]interface{}{
		"steps": []interface{}{map[string]interface{}{"tap": map[string]interface{}{"selector": "#gone"}}},
	}))
	require.NoError(t, err)
	require.True(t, res.IsError)
	require.Contains(t, resultText(t, res), "element not found")
}

func TestAnnotateTool(t *testing.T) {
	s, _ := newTestServer(t)
	res, err := s.handleAnnotate(context.Background(), call(map[string]interface{}{"selector": ":has-press", "scale": float64(1)}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	img, ok := res.Content[0].(mcp.ImageContent)
	require.True(t, ok, "expected image content")
	require.Equal(t, "image/png", img.MIMEType)

	data, err := base64.StdEncoding.DecodeString(img.Data)
	require.NoError(t, err)
	decoded, err := wireframe.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, 390, decoded.Bounds().Dx())
	require.Equal(t, 844, decoded.Bounds().Dy())

	res, err = s.handleAnnotate(context.Background(), call(map[string]interface{}{"selector": "View", "label": "bogus"}))
	require.NoError(t, err)
	require.True(t, res.IsError)
}

func TestServeRejectsUnknownTransport(t *testing.T) {
	s, _ := newTestServer(t)
	err := s.Serve(Config{Transport: "carrier-pigeon"})
	require.ErrorContains(t, err, "unsupported transport")
}
