package agent

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/mj1618/mobile-cli/internal/protocol"
	"github.com/mj1618/mobile-cli/internal/selector"
)

const (
	defaultLongPress = 800 * time.Millisecond
	defaultSwipe     = 300 * time.Millisecond
)

var errNoReader = errors.New("no tree reader configured")

func (a *Agent) registerBuiltins() {
	a.handlers[protocol.MethodQuery] = a.query
	a.handlers[protocol.MethodGetTree] = a.getTree
	a.handlers[protocol.MethodGetViewport] = a.getViewport
	a.handlers[protocol.MethodTap] = a.tap
	a.handlers[protocol.MethodLongPress] = a.longPress
	a.handlers[protocol.MethodSwipe] = a.swipe
	a.handlers[protocol.MethodTypeText] = a.typeText
}

// query runs the selector against a fresh snapshot. Malformed selectors
// match nothing.
func (a *Agent) query(raw json.RawMessage) (any, error) {
	var p protocol.QueryParams
	if err := protocol.DecodeParams(raw, &p); err != nil {
		return nil, err
	}
	if a.reader == nil {
		return nil, errNoReader
	}
	root, err := a.reader.Snapshot()
	if err != nil {
		return nil, err
	}
	if p.All {
		return selector.FindAll(p.Selector, root), nil
	}
	return selector.Find(p.Selector, root), nil
}

func (a *Agent) getTree(json.RawMessage) (any, error) {
	if a.reader == nil {
		return nil, errNoReader
	}
	return a.reader.Snapshot()
}

func (a *Agent) getViewport(json.RawMessage) (any, error) {
	if a.reader == nil {
		return nil, errNoReader
	}
	return a.reader.Viewport()
}

func (a *Agent) tap(raw json.RawMessage) (any, error) {
	var p protocol.PointParams
	if err := protocol.DecodeParams(raw, &p); err != nil {
		return nil, err
	}
	if err := a.input.Tap(p.X, p.Y); err != nil {
		return nil, err
	}
	return protocol.Ack{OK: true}, nil
}

func (a *Agent) longPress(raw json.RawMessage) (any, error) {
	var p protocol.LongPressParams
	if err := protocol.DecodeParams(raw, &p); err != nil {
		return nil, err
	}
	if err := a.input.LongPress(p.X, p.Y, durationOr(p.DurationMs, defaultLongPress)); err != nil {
		return nil, err
	}
	return protocol.Ack{OK: true}, nil
}

func (a *Agent) swipe(raw json.RawMessage) (any, error) {
	var p protocol.SwipeParams
	if err := protocol.DecodeParams(raw, &p); err != nil {
		return nil, err
	}
	if err := a.input.Swipe(p.FromX, p.FromY, p.ToX, p.ToY, durationOr(p.DurationMs, defaultSwipe)); err != nil {
		return nil, err
	}
	return protocol.Ack{OK: true}, nil
}

func (a *Agent) typeText(raw json.RawMessage) (any, error) {
	var p protocol.TypeTextParams
	if err := protocol.DecodeParams(raw, &p); err != nil {
		return nil, err
	}
	if err := a.input.TypeText(p.Text); err != nil {
		return nil, err
	}
	return protocol.Ack{OK: true}, nil
}

func durationOr(ms int, def time.Duration) time.Duration {
	if ms <= 0 {
		return def
	}
	return time.Duration(ms) * time.Millisecond
}
