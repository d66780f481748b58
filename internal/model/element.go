package model

import "github.com/mj1618/mobile-cli/internal/geometry"

// Measure is an element's layout rectangle. X/Y are relative to the parent;
// PageX/PageY are absolute screen coordinates.
type Measure struct {
	X      float64 `yaml:"x"      json:"x"`
	Y      float64 `yaml:"y"      json:"y"`
	Width  float64 `yaml:"width"  json:"width"`
	Height float64 `yaml:"height" json:"height"`
	PageX  float64 `yaml:"pageX"  json:"pageX"`
	PageY  float64 `yaml:"pageY"  json:"pageY"`
}

// Screen returns the absolute screen-space rectangle.
func (m Measure) Screen() geometry.Rect {
	return geometry.Rect{X: m.PageX, Y: m.PageY, Width: m.Width, Height: m.Height}
}

// ElementDescriptor is the result of a selector match. Descriptors are built
// fresh for every query and never mutated afterwards.
type ElementDescriptor struct {
	UID                 string   `yaml:"uid"                          json:"uid"`
	Type                string   `yaml:"type"                         json:"type"`
	TestID              string   `yaml:"testID,omitempty"             json:"testID,omitempty"`
	Text                string   `yaml:"text,omitempty"               json:"text,omitempty"`
	AccessibilityLabel  string   `yaml:"accessibilityLabel,omitempty" json:"accessibilityLabel,omitempty"`
	HasPressHandler     bool     `yaml:"hasPressHandler"              json:"hasPressHandler"`
	HasScrollCapability bool     `yaml:"hasScrollCapability"          json:"hasScrollCapability"`
	Measure             *Measure `yaml:"measure,omitempty"            json:"measure,omitempty"`
}

// Center returns the absolute center of the element and whether it has a
// measurement at all.
func (d ElementDescriptor) Center() (geometry.Point, bool) {
	if d.Measure == nil {
		return geometry.Point{}, false
	}
	return d.Measure.Screen().Center(), true
}
