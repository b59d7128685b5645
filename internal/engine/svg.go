package engine

import (
	"bytes"
	"fmt"
	"html"

	"github.com/inkwell/studio/backend-go/internal/design"
	"github.com/inkwell/studio/backend-go/internal/garment"
	"github.com/inkwell/studio/backend-go/internal/silhouette"
)

// RenderSVG returns the visible side as a standalone SVG document in the
// logical garment box: the garment, then the decals in stack order clipped
// to the print area. Guides and selection handles are left out.
func (e *Engine) RenderSVG() []byte {
	return ComposeSVG(e.Geometry(), e.state, e.side)
}

// ComposeSVG renders side of state on geometry g.
func ComposeSVG(g garment.Geometry, state *design.ProductState, side garment.Side) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" width="%d" height="%d" viewBox="0 0 %d %d">`,
		garment.BoxSize, garment.BoxSize, garment.BoxSize, garment.BoxSize)

	silhouette.WriteShapes(&buf, g, state.Color, side)

	layout := DefaultLayout()
	pr := layout.PrintRect(g)
	fmt.Fprintf(&buf, `<defs><clipPath id="print-area"><rect x="%g" y="%g" width="%g" height="%g"/></clipPath></defs>`,
		pr.X, pr.Y, pr.Width, pr.Height)
	buf.WriteString(`<g clip-path="url(#print-area)">`)
	for _, d := range state.Layer(side).Decals() {
		f := PlaceDecal(d, pr, layout.Unit())
		m := f.Transform
		fmt.Fprintf(&buf, `<image data-decal="%s" href="%s" xlink:href="%s" width="%g" height="%g" preserveAspectRatio="none" transform="matrix(%g %g %g %g %g %g)"/>`,
			html.EscapeString(d.ID), html.EscapeString(d.SourceURL), html.EscapeString(d.SourceURL),
			f.Width, f.Height, m[0], m[1], m[2], m[3], m[4], m[5])
	}
	buf.WriteString(`</g></svg>`)
	return buf.Bytes()
}
