// Package wireframe renders matched elements as labelled boxes on a
// viewport-sized image, optionally over a screenshot of the device.
package wireframe

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/mj1618/mobile-cli/internal/geometry"
	"github.com/mj1618/mobile-cli/internal/model"
)

// LabelMode controls what text is drawn on each element.
type LabelMode int

const (
	// LabelCoords draws "(x,y)", the point a tap on the element would land.
	LabelCoords LabelMode = iota
	// LabelUIDs draws "[uid]".
	LabelUIDs
)

// ParseLabelMode converts a flag value to a LabelMode.
func ParseLabelMode(s string) (LabelMode, error) {
	switch s {
	case "", "coords":
		return LabelCoords, nil
	case "uid", "uids":
		return LabelUIDs, nil
	default:
		return LabelCoords, fmt.Errorf("unknown label mode %q (use coords or uid)", s)
	}
}

// Options controls Render.
type Options struct {
	// Scale converts screen points to image pixels. Zero means 1.
	Scale float64
	Label LabelMode
	// Background is drawn scaled to the viewport before the boxes.
	Background image.Image
}

var (
	backgroundColor = color.RGBA{R: 245, G: 245, B: 245, A: 255}
	boxColor        = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	textColor       = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	outlineColor    = color.RGBA{R: 0, G: 0, B: 0, A: 200}
)

// Render draws every measured element onto a canvas the size of vp.
// Elements with no visible part are skipped.
func Render(elements []model.ElementDescriptor, vp geometry.Viewport, opts Options) *image.RGBA {
	scale := opts.Scale
	if scale <= 0 {
		scale = 1
	}
	canvas := image.NewRGBA(image.Rect(0, 0, int(vp.Width*scale), int(vp.Height*scale)))
	if opts.Background != nil {
		xdraw.CatmullRom.Scale(canvas, canvas.Bounds(), opts.Background, opts.Background.Bounds(), draw.Src, nil)
	} else {
		draw.Draw(canvas, canvas.Bounds(), image.NewUniform(backgroundColor), image.Point{}, draw.Src)
	}

	for _, el := range elements {
		drawElement(canvas, el, vp, scale, opts.Label)
	}
	return canvas
}

func drawElement(img *image.RGBA, el model.ElementDescriptor, vp geometry.Viewport, scale float64, mode LabelMode) {
	center, ok := el.Center()
	if !ok {
		return
	}
	r := el.Measure.Screen()

	p, err := geometry.ClampPointToViewport(center.X, center.Y, r, vp)
	if err != nil {
		return
	}
	drawRectangle(img, int(r.X*scale), int(r.Y*scale), int(r.Right()*scale), int(r.Bottom()*scale), boxColor)

	var label string
	switch mode {
	case LabelUIDs:
		label = fmt.Sprintf("[%s]", el.UID)
	default:
		label = fmt.Sprintf("(%.0f,%.0f)", p.X, p.Y)
	}
	drawTextWithOutline(img, label, int(p.X*scale), int(p.Y*scale))
}

// drawRectangle draws a rectangle outline clipped to the image.
func drawRectangle(img *image.RGBA, x1, y1, x2, y2 int, c color.Color) {
	b := img.Bounds()
	x1, y1 = max(x1, b.Min.X), max(y1, b.Min.Y)
	x2, y2 = min(x2, b.Max.X), min(y2, b.Max.Y)
	if x2 <= x1 || y2 <= y1 {
		return
	}
	for x := x1; x < x2; x++ {
		img.Set(x, y1, c)
		img.Set(x, y2-1, c)
	}
	for y := y1; y < y2; y++ {
		img.Set(x1, y, c)
		img.Set(x2-1, y, c)
	}
}

// drawTextWithOutline draws text centered at (x, y) with a dark outline.
func drawTextWithOutline(img *image.RGBA, text string, x, y int) {
	// basicfont.Face7x13 glyphs are 7px wide, 13px tall.
	offsetX := x - len(text)*7/2
	offsetY := y + 13/2

	drawString := func(dx, dy int, c color.Color) {
		d := &font.Drawer{
			Dst:  img,
			Src:  image.NewUniform(c),
			Face: basicfont.Face7x13,
			Dot:  fixed.P(offsetX+dx, offsetY+dy),
		}
		d.DrawString(text)
	}
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			if dx != 0 || dy != 0 {
				drawString(dx, dy, outlineColor)
			}
		}
	}
	drawString(0, 0, textColor)
}

// Encode writes img as png or jpg.
func Encode(w io.Writer, img image.Image, format string, quality int) error {
	switch format {
	case "jpg", "jpeg":
		if quality <= 0 {
			quality = 80
		}
		return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	case "png", "":
		return png.Encode(w, img)
	default:
		return fmt.Errorf("unsupported image format: %s (use png or jpg)", format)
	}
}

// Decode reads a png or jpeg image, for use as a background.
func Decode(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}
