package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"gopkg.in/yaml.v3"

	"github.com/mj1618/mobile-cli/internal/automation"
	"github.com/mj1618/mobile-cli/internal/model"
	"github.com/mj1618/mobile-cli/internal/wireframe"
)

// toolResult serializes v to YAML for an MCP response.
func toolResult(v interface{}) *mcp.CallToolResult {
	b, err := yaml.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err))
	}
	return mcp.NewToolResultText(string(b))
}

// errorResult reports err as a tool error with the same ok/action/error
// shape the CLI prints.
func errorResult(action string, err error) *mcp.CallToolResult {
	b, _ := yaml.Marshal(struct {
		OK     bool   `yaml:"ok"`
		Action string `yaml:"action"`
		Error  string `yaml:"error"`
	}{false, action, err.Error()})
	return mcp.NewToolResultError(string(b))
}

func targetFrom(params map[string]interface{}) automation.Target {
	return automation.Target{
		DeviceID: automation.StringParam(params, "device", ""),
		Platform: automation.StringParam(params, "platform", ""),
	}
}

// actionHandler runs one batch step under the action lock.
func (s *Server) actionHandler(ctx context.Context, request mcp.CallToolRequest, action string) (*mcp.CallToolResult, error) {
	params := request.GetArguments()

	s.actionMu.Lock()
	defer s.actionMu.Unlock()

	result, err := s.driver.ExecuteStep(ctx, targetFrom(params), action, params)
	if err != nil {
		return errorResult(action, err), nil
	}
	result.OK = true
	return toolResult(result), nil
}

func (s *Server) handleDevices(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	devices, err := s.driver.Devices()
	if err != nil {
		return errorResult("devices", err), nil
	}
	return toolResult(devices), nil
}

func (s *Server) handleFind(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	sel := automation.StringParam(params, "selector", "")
	t := targetFrom(params)

	if automation.BoolParam(params, "all", false) {
		els, err := s.driver.FindAll(t, sel)
		if err != nil {
			return errorResult("find", err), nil
		}
		return toolResult(els), nil
	}
	el, err := s.driver.Find(t, sel)
	if err != nil {
		return errorResult("find", err), nil
	}
	if el == nil {
		return errorResult("find", fmt.Errorf("%w: %s", automation.ErrElementNotFound, sel)), nil
	}
	return toolResult(el), nil
}

func (s *Server) handleTree(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	root, err := s.driver.Tree(targetFrom(params))
	if err != nil {
		return errorResult("tree", err), nil
	}
	tree := model.Shape(*root, model.ShapeOptions{
		Depth: automation.IntParam(params, "depth", 0),
		Text:  automation.StringParam(params, "text", ""),
		Prune: automation.BoolParam(params, "prune", true),
	})
	return toolResult(tree), nil
}

func (s *Server) handleViewport(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	vp, err := s.driver.Viewport(targetFrom(request.GetArguments()))
	if err != nil {
		return errorResult("viewport", err), nil
	}
	return toolResult(vp), nil
}

func (s *Server) handleTap(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.actionHandler(ctx, request, "tap")
}

func (s *Server) handleLongPress(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.actionHandler(ctx, request, "long-press")
}

func (s *Server) handleSwipe(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.actionHandler(ctx, request, "swipe")
}

func (s *Server) handleType(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.actionHandler(ctx, request, "type")
}

func (s *Server) handleWait(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	result, err := s.driver.ExecuteStep(ctx, targetFrom(params), "wait", params)
	if err != nil {
		return errorResult("wait", err), nil
	}
	result.OK = true
	return toolResult(result), nil
}

func (s *Server) handleAssert(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	res, err := s.driver.Assert(ctx, targetFrom(params), automation.AssertOptionsFromParams(params))
	if err != nil {
		return errorResult("assert", err), nil
	}
	if !res.Pass {
		b, _ := yaml.Marshal(res)
		return mcp.NewToolResultError(string(b)), nil
	}
	return toolResult(res), nil
}

func (s *Server) handleDo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	stopOnError := automation.BoolParam(params, "stop-on-error", true)

	raw, ok := params["steps"].([]interface{})
	if !ok {
		return mcp.NewToolResultError("steps must be an array"), nil
	}
	steps, err := automation.StepsFromArgs(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	s.actionMu.Lock()
	defer s.actionMu.Unlock()

	res := s.driver.RunSteps(ctx, targetFrom(params), steps, stopOnError)
	if !res.OK {
		b, _ := yaml.Marshal(res)
		return mcp.NewToolResultError(string(b)), nil
	}
	return toolResult(res), nil
}

func (s *Server) handleAnnotate(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	t := targetFrom(params)
	mode, err := wireframe.ParseLabelMode(automation.StringParam(params, "label", ""))
	if err != nil {
		return errorResult("annotate", err), nil
	}

	els, err := s.driver.FindAll(t, automation.StringParam(params, "selector", ""))
	if err != nil {
		return errorResult("annotate", err), nil
	}
	vp, err := s.driver.Viewport(t)
	if err != nil {
		return errorResult("annotate", err), nil
	}

	img := wireframe.Render(els, vp, wireframe.Options{
		Scale: automation.FloatParam(params, "scale", 0.5),
		Label: mode,
	})
	var buf bytes.Buffer
	if err := wireframe.Encode(&buf, img, "png", 0); err != nil {
		return errorResult("annotate", err), nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.ImageContent{
				Type:     "image",
				Data:     base64.StdEncoding.EncodeToString(buf.Bytes()),
				MIMEType: "image/png",
			},
		},
	}, nil
}
