// Package silhouette builds the garment vector image shared by server-side
// previews and the export compositor, and rasterizes it.
package silhouette

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"image"
	"io"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/inkwell/studio/backend-go/internal/garment"
)

const (
	StrokeWidth   = 2.0
	NecklineWidth = 3.0
)

var ErrRasterize = errors.New("rasterize silhouette")

// WriteShapes writes the outline and neckline elements for g, in the logical
// garment box, without a surrounding svg element.
func WriteShapes(w io.Writer, g garment.Geometry, c garment.Color, side garment.Side) {
	p := c.Palette()
	fmt.Fprintf(w, `<path d="%s" fill="%s" stroke="%s" stroke-width="%g" stroke-linejoin="round"/>`,
		html.EscapeString(g.SilhouettePath), p.Fill, p.Stroke, StrokeWidth)
	if neck := g.Neckline(side); neck != "" {
		fmt.Fprintf(w, `<path d="%s" fill="none" stroke="%s" stroke-width="%g" stroke-linecap="round"/>`,
			html.EscapeString(neck), p.Neckline, NecklineWidth)
	}
}

// Markup returns a standalone SVG document of the garment drawn at size x
// size pixels.
func Markup(g garment.Geometry, c garment.Color, side garment.Side, size int) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`,
		size, size, garment.BoxSize, garment.BoxSize)
	WriteShapes(&buf, g, c, side)
	buf.WriteString(`</svg>`)
	return buf.Bytes()
}

// Rasterize draws markup onto a transparent w x h image.
func Rasterize(markup []byte, w, h int) (*image.RGBA, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: invalid size %dx%d", ErrRasterize, w, h)
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRasterize, err)
	}
	icon.SetTarget(0, 0, float64(w), float64(h))

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	scanner := rasterx.NewScannerGV(w, h, img, img.Bounds())
	raster := rasterx.NewDasher(w, h, scanner)
	icon.Draw(raster, 1.0)
	return img, nil
}

// Render rasterizes the garment for color and side at w x h.
func Render(g garment.Geometry, c garment.Color, side garment.Side, w, h int) (*image.RGBA, error) {
	return Rasterize(Markup(g, c, side, max(w, h)), w, h)
}
