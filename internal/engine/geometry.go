package engine

import (
	"math"

	"github.com/inkwell/studio/backend-go/internal/design"
	"github.com/inkwell/studio/backend-go/internal/garment"
)

// PathCommand represents a single path segment for rendering.
// Format matches Canvas2D: ["M", x, y], ["L", x, y], ["C", x1, y1, x2, y2, x, y], etc.
type PathCommand []interface{}

// Rect represents an axis-aligned rectangle in screen space.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Point is a screen-space position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width && y >= r.Y && y <= r.Y+r.Height
}

func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Intersect returns the overlap of both rects, or an empty rect.
func (r Rect) Intersect(other Rect) Rect {
	minX := max(r.X, other.X)
	minY := max(r.Y, other.Y)
	maxX := min(r.X+r.Width, other.X+other.Width)
	maxY := min(r.Y+r.Height, other.Y+other.Height)
	if maxX <= minX || maxY <= minY {
		return Rect{}
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

func (r Rect) Center() (float64, float64) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// Layout places the square garment box on the host's screen. Size is the
// edge length in screen pixels.
type Layout struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Size float64 `json:"size"`
}

// DefaultLayout draws the garment box at its logical size.
func DefaultLayout() Layout {
	return Layout{Size: garment.BoxSize}
}

// Unit is the number of screen pixels per logical garment unit.
func (l Layout) Unit() float64 {
	if l.Size <= 0 {
		return 1
	}
	return l.Size / garment.BoxSize
}

// BoxTransform maps logical garment coordinates to screen space.
func (l Layout) BoxTransform() Matrix2D {
	u := l.Unit()
	return Translate(l.X, l.Y).Multiply(Scale(u, u))
}

// PrintRect is the print area of g in screen space.
func (l Layout) PrintRect(g garment.Geometry) Rect {
	x, y, w, h := g.PrintArea.Pixels(l.Size, l.Size)
	return Rect{X: l.X + x, Y: l.Y + y, Width: w, Height: h}
}

// DecalFrame is a decal resolved against a print rect: the unscaled local
// box and the transform that places it on screen.
type DecalFrame struct {
	ID        string
	Width     float64
	Height    float64
	CenterX   float64
	CenterY   float64
	Transform Matrix2D
}

// PlaceDecal resolves d inside printRect. Width is d.Width logical units at
// scale 1, converted to pixels with unit. The rendered height always follows
// from width and aspect ratio.
func PlaceDecal(d design.Decal, printRect Rect, unit float64) DecalFrame {
	w := d.Width * unit
	h := d.DisplayHeight() * unit
	cx := printRect.X + d.X/100*printRect.Width
	cy := printRect.Y + d.Y/100*printRect.Height
	return DecalFrame{
		ID:        d.ID,
		Width:     w,
		Height:    h,
		CenterX:   cx,
		CenterY:   cy,
		Transform: CenteredTransform(cx, cy, w, h, d.Scale, d.Rotation),
	}
}

// Contains reports whether the screen point falls inside the rotated and
// scaled decal box.
func (f DecalFrame) Contains(x, y float64) bool {
	inv, ok := f.Transform.Invert()
	if !ok {
		return false
	}
	lx, ly := inv.TransformPoint(x, y)
	return lx >= 0 && lx <= f.Width && ly >= 0 && ly <= f.Height
}

func (f DecalFrame) Bounds() Rect {
	return f.Transform.TransformRect(Rect{Width: f.Width, Height: f.Height})
}

// segmentsToPath converts parsed garment path data to canvas path commands.
func segmentsToPath(segs []garment.Segment) []PathCommand {
	out := make([]PathCommand, 0, len(segs))
	for _, s := range segs {
		cmd := PathCommand{string(s.Op)}
		for _, p := range s.Points {
			cmd = append(cmd, p.X, p.Y)
		}
		out = append(out, cmd)
	}
	return out
}

func rectPath(r Rect) []PathCommand {
	return []PathCommand{
		{"M", r.X, r.Y},
		{"L", r.X + r.Width, r.Y},
		{"L", r.X + r.Width, r.Y + r.Height},
		{"L", r.X, r.Y + r.Height},
		{"Z"},
	}
}

// circlePath approximates a circle with four cubic beziers.
func circlePath(cx, cy, r float64) []PathCommand {
	// k = 4 * (sqrt(2) - 1) / 3
	k := 0.5522847498 * r
	return []PathCommand{
		{"M", cx + r, cy},
		{"C", cx + r, cy + k, cx + k, cy + r, cx, cy + r},
		{"C", cx - k, cy + r, cx - r, cy + k, cx - r, cy},
		{"C", cx - r, cy - k, cx - k, cy - r, cx, cy - r},
		{"C", cx + k, cy - r, cx + r, cy - k, cx + r, cy},
		{"Z"},
	}
}

func distance(x0, y0, x1, y1 float64) float64 {
	return math.Hypot(x1-x0, y1-y0)
}
