// Package geometry clamps element rectangles and gesture points into the
// visible viewport so synthetic input always lands on screen.
package geometry

import (
	"errors"
	"math"
)

// ErrOffScreen is returned when an element has no visible intersection with
// the viewport and therefore cannot be acted on.
var ErrOffScreen = errors.New("element off-screen")

// Point is a screen-space coordinate.
type Point struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
}

// Rect is an absolute screen-space rectangle.
type Rect struct {
	X      float64 `yaml:"x"      json:"x"`
	Y      float64 `yaml:"y"      json:"y"`
	Width  float64 `yaml:"width"  json:"width"`
	Height float64 `yaml:"height" json:"height"`
}

// Center returns the midpoint of the rectangle.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Right returns the x coordinate of the right edge.
func (r Rect) Right() float64 { return r.X + r.Width }

// Bottom returns the y coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Viewport is the visible screen area, in the same coordinate space as
// element measurements.
type Viewport struct {
	Width  float64 `yaml:"width"  json:"width"`
	Height float64 `yaml:"height" json:"height"`
}

// Contains reports whether (x, y) lies within [0, width] x [0, height].
func (v Viewport) Contains(x, y float64) bool {
	return x >= 0 && x <= v.Width && y >= 0 && y <= v.Height
}

// Center returns the middle of the viewport.
func (v Viewport) Center() Point {
	return Point{X: v.Width / 2, Y: v.Height / 2}
}

// ClampPointToViewport returns a point inside the visible part of rect.
//
// If (centerX, centerY) is already on screen it is returned unchanged.
// Otherwise each axis that is out of bounds is moved to the center of the
// rectangle's visible span on that axis; an axis that was already valid keeps
// its value. A rectangle with no visible span on either axis yields
// ErrOffScreen.
func ClampPointToViewport(centerX, centerY float64, rect Rect, vp Viewport) (Point, error) {
	if vp.Contains(centerX, centerY) {
		return Point{X: centerX, Y: centerY}, nil
	}

	left := math.Max(0, rect.X)
	right := math.Min(vp.Width, rect.Right())
	top := math.Max(0, rect.Y)
	bottom := math.Min(vp.Height, rect.Bottom())
	if right <= left || bottom <= top {
		return Point{}, ErrOffScreen
	}

	p := Point{X: centerX, Y: centerY}
	if centerX < 0 || centerX > vp.Width {
		p.X = (left + right) / 2
	}
	if centerY < 0 || centerY > vp.Height {
		p.Y = (top + bottom) / 2
	}
	return p, nil
}

// ClampCoordToScreen clamps a single point into the viewport. It never fails
// and is used for derived gesture endpoints such as a swipe destination.
func ClampCoordToScreen(x, y float64, vp Viewport) Point {
	return Point{
		X: math.Min(math.Max(x, 0), vp.Width),
		Y: math.Min(math.Max(y, 0), vp.Height),
	}
}

// Offset moves p by distance in the given unit direction (dx, dy).
func Offset(p Point, dx, dy, distance float64) Point {
	return Point{X: p.X + dx*distance, Y: p.Y + dy*distance}
}
