// Package server exposes the automation driver as MCP tools.
package server

import (
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/mj1618/mobile-cli/internal/automation"
)

// Transports accepted by Serve.
const (
	TransportStdio          = "stdio"
	TransportStreamableHTTP = "streamable-http"
)

// Config holds MCP server configuration.
type Config struct {
	Transport string
	Port      int
}

// Server wraps the MCP server with the automation driver.
type Server struct {
	driver *automation.Driver
	// actionMu serializes input so gestures from concurrent tool calls do
	// not interleave on a device.
	actionMu sync.Mutex
	mcp      *mcpserver.MCPServer
}

// New creates an MCP server with all mobile-cli tools registered.
func New(driver *automation.Driver, version string) *Server {
	s := &Server{
		driver: driver,
		mcp:    mcpserver.NewMCPServer("mobile-cli", version),
	}
	s.registerTools()
	return s
}

// MCP returns the underlying mcp-go server.
func (s *Server) MCP() *mcpserver.MCPServer { return s.mcp }

// Serve runs the MCP server on the configured transport. It blocks.
func (s *Server) Serve(cfg Config) error {
	switch cfg.Transport {
	case TransportStdio, "":
		return mcpserver.ServeStdio(s.mcp)
	case TransportStreamableHTTP:
		httpServer := mcpserver.NewStreamableHTTPServer(s.mcp)
		return httpServer.Start(fmt.Sprintf(":%d", cfg.Port))
	default:
		return fmt.Errorf("unsupported transport: %s (use stdio or streamable-http)", cfg.Transport)
	}
}

func targetOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("device", mcp.Description("Device id (e.g. 'ios-1'). Optional when one device is connected")),
		mcp.WithString("platform", mcp.Description("Pick the device by platform: ios or android")),
	}
}

func tool(name, description string, opts ...mcp.ToolOption) mcp.Tool {
	all := append([]mcp.ToolOption{mcp.WithDescription(description)}, opts...)
	return mcp.NewTool(name, append(all, targetOptions()...)...)
}

func (s *Server) registerTools() {
	s.mcp.AddTool(
		mcp.NewTool("devices",
			mcp.WithDescription("List app instances connected to the hub"),
		),
		s.handleDevices,
	)

	s.mcp.AddTool(
		tool("find",
			"Find UI elements by selector. Selectors: Type, #testID, [attr=\"v\"], :text(\"sub\"), :displayName(\"Name\"), :has-press, :has-scroll, :nth(n), :first, :last, 'A > B', 'A B', 'A, B'",
			mcp.WithString("selector", mcp.Description("Element selector"), mcp.Required()),
			mcp.WithBoolean("all", mcp.Description("Return every match instead of the first")),
		),
		s.handleFind,
	)

	s.mcp.AddTool(
		tool("tree",
			"Read the app's UI component tree",
			mcp.WithNumber("depth", mcp.Description("Max depth to return (0 = unlimited)")),
			mcp.WithString("text", mcp.Description("Keep only branches containing this text")),
			mcp.WithBoolean("prune", mcp.Description("Collapse anonymous layout containers (default: true)")),
		),
		s.handleTree,
	)

	s.mcp.AddTool(
		tool("viewport", "Get the device's visible screen size"),
		s.handleViewport,
	)

	s.mcp.AddTool(
		tool("tap",
			"Tap the element matching a selector, or a screen coordinate. The tap point is clamped into the visible part of the element",
			mcp.WithString("selector", mcp.Description("Element selector")),
			mcp.WithNumber("x", mcp.Description("Tap at X coordinate")),
			mcp.WithNumber("y", mcp.Description("Tap at Y coordinate")),
		),
		s.handleTap,
	)

	s.mcp.AddTool(
		tool("long_press",
			"Long-press the element matching a selector",
			mcp.WithString("selector", mcp.Description("Element selector"), mcp.Required()),
			mcp.WithNumber("duration", mcp.Description("Hold time in ms (default: 800)")),
		),
		s.handleLongPress,
	)

	s.mcp.AddTool(
		tool("swipe",
			"Swipe from an element (or the screen center) in a direction",
			mcp.WithString("direction", mcp.Description("Swipe direction: up, down, left, right"), mcp.Required()),
			mcp.WithString("selector", mcp.Description("Element to start on (default: screen center)")),
			mcp.WithNumber("distance", mcp.Description("Distance in points (default: half the screen)")),
			mcp.WithNumber("duration", mcp.Description("Gesture duration in ms (default: 300)")),
		),
		s.handleSwipe,
	)

	s.mcp.AddTool(
		tool("type",
			"Type text, optionally tapping an element first to focus it",
			mcp.WithString("text", mcp.Description("Text to type"), mcp.Required()),
			mcp.WithString("selector", mcp.Description("Element to focus before typing")),
		),
		s.handleType,
	)

	s.mcp.AddTool(
		tool("wait",
			"Wait for an element to appear (or disappear)",
			mcp.WithString("selector", mcp.Description("Element selector"), mcp.Required()),
			mcp.WithBoolean("gone", mcp.Description("Wait until the selector no longer matches")),
			mcp.WithNumber("timeout", mcp.Description("Max seconds to wait (default: 30)")),
			mcp.WithNumber("interval", mcp.Description("Polling interval in ms (default: 500)")),
		),
		s.handleWait,
	)

	s.mcp.AddTool(
		tool("assert",
			"Assert an element's state (existence, text, capabilities, match count)",
			mcp.WithString("selector", mcp.Description("Element selector"), mcp.Required()),
			mcp.WithBoolean("gone", mcp.Description("Assert nothing matches")),
			mcp.WithString("text", mcp.Description("Assert the element's text equals this")),
			mcp.WithString("text-contains", mcp.Description("Assert the element's text contains this")),
			mcp.WithBoolean("pressable", mcp.Description("Assert the element has a press handler")),
			mcp.WithBoolean("scrollable", mcp.Description("Assert the element can scroll")),
			mcp.WithNumber("count", mcp.Description("Assert the number of matches")),
			mcp.WithNumber("timeout", mcp.Description("Retry for N seconds")),
			mcp.WithNumber("interval", mcp.Description("Retry interval in ms")),
		),
		s.handleAssert,
	)

	s.mcp.AddTool(
		tool("annotate",
			"Render the elements matching a selector as labelled boxes on a screen-sized PNG. Labels show where a tap would land",
			mcp.WithString("selector", mcp.Description("Element selector (e.g. ':has-press')"), mcp.Required()),
			mcp.WithString("label", mcp.Description("Label mode: coords or uid (default: coords)")),
			mcp.WithNumber("scale", mcp.Description("Scale factor (default: 0.5)")),
		),
		s.handleAnnotate,
	)

	s.mcp.AddTool(
		tool("do",
			"Execute multiple actions in a batch. Steps execute sequentially. Each step is an object with one key: tap, long-press, swipe, type, wait, assert, sleep",
			mcp.WithArray("steps", mcp.Description("Array of step objects, e.g. {\"tap\": {\"selector\": \"#submit\"}}"), mcp.Required()),
			mcp.WithBoolean("stop-on-error", mcp.Description("Stop on first error (default: true)")),
		),
		s.handleDo,
	)
}
