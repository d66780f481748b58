package platform

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mj1618/mobile-cli/internal/geometry"
	"github.com/mj1618/mobile-cli/internal/protocol"
)

// Direction is the way a finger moves during a swipe.
type Direction int

const (
	DirectionUp Direction = iota
	DirectionDown
	DirectionLeft
	DirectionRight
)

// ParseDirection converts a string flag value to Direction.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(s) {
	case "up":
		return DirectionUp, nil
	case "down":
		return DirectionDown, nil
	case "left":
		return DirectionLeft, nil
	case "right":
		return DirectionRight, nil
	default:
		return DirectionUp, fmt.Errorf("unknown direction: %q (expected up, down, left, or right)", s)
	}
}

func (d Direction) String() string {
	switch d {
	case DirectionDown:
		return "down"
	case DirectionLeft:
		return "left"
	case DirectionRight:
		return "right"
	}
	return "up"
}

// Vector returns the unit screen-space movement for d. Screen y grows
// downwards.
func (d Direction) Vector() (dx, dy float64) {
	switch d {
	case DirectionDown:
		return 0, 1
	case DirectionLeft:
		return -1, 0
	case DirectionRight:
		return 1, 0
	}
	return 0, -1
}

// ParsePlatform validates a platform flag value. An empty value means any
// platform.
func ParsePlatform(s string) (string, error) {
	p := strings.ToLower(strings.TrimSpace(s))
	if p == "" || protocol.ValidPlatform(p) {
		return p, nil
	}
	return "", fmt.Errorf("unknown platform: %q (expected ios or android)", s)
}

// ParsePoint parses an "x,y" string.
func ParsePoint(s string) (geometry.Point, error) {
	vals, err := parseFloats(s, 2, "x,y")
	if err != nil {
		return geometry.Point{}, err
	}
	return geometry.Point{X: vals[0], Y: vals[1]}, nil
}

// ParseViewport parses a "WIDTHxHEIGHT" string such as "390x844".
func ParseViewport(s string) (geometry.Viewport, error) {
	parts := strings.Split(strings.ToLower(s), "x")
	if len(parts) != 2 {
		return geometry.Viewport{}, fmt.Errorf("invalid viewport %q: expected WIDTHxHEIGHT", s)
	}
	w, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	h, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil || w <= 0 || h <= 0 {
		return geometry.Viewport{}, fmt.Errorf("invalid viewport %q: expected positive WIDTHxHEIGHT", s)
	}
	return geometry.Viewport{Width: w, Height: h}, nil
}

func parseFloats(s string, n int, shape string) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("invalid value %q: expected %s", s, shape)
	}
	vals := make([]float64, n)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q: %w", s, err)
		}
		vals[i] = v
	}
	return vals, nil
}
