package garment

import (
	"fmt"

	"github.com/srwiley/oksvg"
	"golang.org/x/image/math/fixed"
)

type SegmentOp string

const (
	OpMove  SegmentOp = "M"
	OpLine  SegmentOp = "L"
	OpQuad  SegmentOp = "Q"
	OpCubic SegmentOp = "C"
	OpClose SegmentOp = "Z"
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Segment is one absolute path command. Points holds the control points
// followed by the end point; it is empty for OpClose.
type Segment struct {
	Op     SegmentOp
	Points []Point
}

// ParsePath compiles SVG path data into absolute segments. Relative commands,
// H/V shorthands, smooth curves and arcs are all resolved by the compiler.
func ParsePath(d string) ([]Segment, error) {
	var cursor oksvg.PathCursor
	if err := cursor.CompilePath(d); err != nil {
		return nil, fmt.Errorf("compile path: %w", err)
	}
	var c segmentCollector
	cursor.Path.AddTo(&c)
	if len(c.segments) == 0 {
		return nil, fmt.Errorf("compile path: no segments in %q", d)
	}
	return c.segments, nil
}

// segmentCollector implements rasterx.Adder.
type segmentCollector struct {
	segments []Segment
}

func toPoint(p fixed.Point26_6) Point {
	return Point{X: float64(p.X) / 64, Y: float64(p.Y) / 64}
}

func (c *segmentCollector) Start(a fixed.Point26_6) {
	c.segments = append(c.segments, Segment{Op: OpMove, Points: []Point{toPoint(a)}})
}

func (c *segmentCollector) Line(b fixed.Point26_6) {
	c.segments = append(c.segments, Segment{Op: OpLine, Points: []Point{toPoint(b)}})
}

func (c *segmentCollector) QuadBezier(b, d fixed.Point26_6) {
	c.segments = append(c.segments, Segment{Op: OpQuad, Points: []Point{toPoint(b), toPoint(d)}})
}

func (c *segmentCollector) CubeBezier(b, d, e fixed.Point26_6) {
	c.segments = append(c.segments, Segment{Op: OpCubic, Points: []Point{toPoint(b), toPoint(d), toPoint(e)}})
}

func (c *segmentCollector) Stop(closeLoop bool) {
	if closeLoop && len(c.segments) > 0 && c.segments[len(c.segments)-1].Op != OpClose {
		c.segments = append(c.segments, Segment{Op: OpClose})
	}
}
