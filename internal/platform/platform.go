package platform

import (
	"time"

	"github.com/mj1618/mobile-cli/internal/geometry"
	"github.com/mj1618/mobile-cli/internal/model"
)

// Reader produces the app's live UI tree. Implementations build a fresh
// model.Node on every call from whatever their UI framework exposes.
type Reader interface {
	// Snapshot returns the current tree root.
	Snapshot() (*model.Node, error)

	// Viewport returns the visible screen size in the same coordinate space
	// as node measurements.
	Viewport() (geometry.Viewport, error)
}

// Inputter injects synthetic touch and keyboard input at screen coordinates.
type Inputter interface {
	Tap(x, y float64) error
	LongPress(x, y float64, d time.Duration) error
	Swipe(fromX, fromY, toX, toY float64, d time.Duration) error
	TypeText(text string) error
}
