package engine

import (
	"math"

	"github.com/inkwell/studio/backend-go/internal/design"
	"github.com/inkwell/studio/backend-go/internal/garment"
)

const (
	// ResizeSensitivity converts horizontal pointer pixels into scale.
	ResizeSensitivity = 0.005

	// RotateHandleOffset aligns atan2's zero axis with the rotate handle,
	// which rests above the decal.
	RotateHandleOffset = 90
)

type GestureKind string

const (
	GestureMove   GestureKind = "move"
	GestureResize GestureKind = "resize"
	GestureRotate GestureKind = "rotate"
)

type InputSource string

const (
	InputMouse InputSource = "mouse"
	InputPen   InputSource = "pen"
	InputTouch InputSource = "touch"
)

// PointerEvent is one pointer or touch sample in screen space.
type PointerEvent struct {
	PointerID int         `json:"pointerId"`
	Source    InputSource `json:"source"`
	X         float64     `json:"x"`
	Y         float64     `json:"y"`
}

// Gesture is the state of one in-flight manipulation. It is created when the
// gesture begins and dropped when it ends; nothing about it outlives that.
type Gesture struct {
	Kind      GestureKind
	Side      garment.Side
	DecalID   string
	PointerID int
	Source    InputSource
	Start     Point

	// Origin is the decal as it was when the gesture began.
	Origin design.Decal

	// Container is the print area's screen rect for moves.
	Container Rect

	// Center is the decal's screen center for rotations.
	Center Point

	released bool
}

// Patch computes the update for the pointer at p. Every gesture type runs
// the same math for mouse, pen and touch input.
func (g *Gesture) Patch(p Point) (design.Patch, bool) {
	switch g.Kind {
	case GestureMove:
		return moveDelta(g.Origin, g.Start, p, g.Container)
	case GestureResize:
		s := resizeScale(g.Origin.Scale, p.X-g.Start.X)
		return design.Patch{Scale: &s}, true
	case GestureRotate:
		r := rotationAt(g.Center, p)
		return design.Patch{Rotation: &r}, true
	}
	return design.Patch{}, false
}

// moveDelta converts a pixel delta into print-area percent. A collapsed
// container yields no update.
func moveDelta(origin design.Decal, start, p Point, container Rect) (design.Patch, bool) {
	if container.IsEmpty() {
		return design.Patch{}, false
	}
	x := origin.X + (p.X-start.X)/container.Width*100
	y := origin.Y + (p.Y-start.Y)/container.Height*100
	return design.Patch{X: &x, Y: &y}, true
}

func resizeScale(startScale, deltaX float64) float64 {
	return design.ClampScale(startScale + deltaX*ResizeSensitivity)
}

func rotationAt(center, p Point) float64 {
	angle := math.Atan2(p.Y-center.Y, p.X-center.X) * 180 / math.Pi
	return angle + RotateHandleOffset
}
