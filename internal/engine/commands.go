package engine

import (
	"encoding/json"
	"math"

	"github.com/inkwell/studio/backend-go/internal/garment"
	"github.com/inkwell/studio/backend-go/internal/silhouette"
)

// DrawCommand represents a single drawing operation for the host to execute.
// The host receives a list of these and executes them on a Canvas2D context.
type DrawCommand struct {
	Op          string        `json:"op"`                    // "path", "image", "save", "restore", "clip"
	Role        string        `json:"role,omitempty"`        // what the command draws, for host styling
	ObjectID    string        `json:"objectId,omitempty"`    // decal id, for hit correlation
	Transform   []float64     `json:"transform,omitempty"`   // [a, b, c, d, e, f] affine matrix
	Path        []PathCommand `json:"path,omitempty"`        // path data for "path" and "clip"
	Fill        string        `json:"fill,omitempty"`        // fill color
	Stroke      string        `json:"stroke,omitempty"`      // stroke color
	StrokeWidth float64       `json:"strokeWidth,omitempty"` // stroke width in local units
	LineDash    []float64     `json:"lineDash,omitempty"`    // stroke dash pattern
	Opacity     float64       `json:"opacity,omitempty"`     // global alpha
	Src         string        `json:"src,omitempty"`         // artwork URL for "image"
	ImageWidth  float64       `json:"imageWidth,omitempty"`  // drawn width in local units
	ImageHeight float64       `json:"imageHeight,omitempty"` // drawn height in local units
}

const (
	RoleSilhouette   = "silhouette"
	RoleNeckline     = "neckline"
	RolePrintGuide   = "print-guide"
	RoleDecal        = "decal"
	RoleSelection    = "selection"
	RoleHandleDelete = "handle-delete"
	RoleHandleResize = "handle-resize"
	RoleHandleRotate = "handle-rotate"
)

const (
	guideColor     = "#9ca3af"
	selectionColor = "#2563eb"
	deleteColor    = "#dc2626"
	handleFill     = "#ffffff"
)

type Handle string

const (
	HandleNone   Handle = ""
	HandleDelete Handle = "delete"
	HandleResize Handle = "resize"
	HandleRotate Handle = "rotate"
)

const (
	HandleRadius = 10.0

	// RotateHandleDistance is how far above the decal's top edge the rotate
	// handle sits, in screen pixels.
	RotateHandleDistance = 24.0
)

type handlePos struct {
	Kind Handle
	X, Y float64
}

// handlesFor places the three handles on the rotated decal box: delete at
// the top-left corner, resize at the bottom-right corner, rotate above the
// top edge.
func handlesFor(f DecalFrame) []handlePos {
	m := f.Transform
	dx, dy := m.TransformPoint(0, 0)
	rx, ry := m.TransformPoint(f.Width, f.Height)
	tx, ty := m.TransformPoint(f.Width/2, 0)

	// Unit "up" vector of the rotated box in screen space.
	ux, uy := m.TransformPoint(f.Width/2, -1)
	n := math.Hypot(ux-tx, uy-ty)
	if n == 0 {
		n = 1
	}
	return []handlePos{
		{Kind: HandleDelete, X: dx, Y: dy},
		{Kind: HandleResize, X: rx, Y: ry},
		{Kind: HandleRotate, X: tx + (ux-tx)/n*RotateHandleDistance, Y: ty + (uy-ty)/n*RotateHandleDistance},
	}
}

var handleRoles = map[Handle]string{
	HandleDelete: RoleHandleDelete,
	HandleResize: RoleHandleResize,
	HandleRotate: RoleHandleRotate,
}

// compile builds the composition back to front: garment, print guide,
// clipped decals in stack order, then the selection overlay.
func (e *Engine) compile() []DrawCommand {
	g := e.Geometry()
	palette := e.state.Color.Palette()
	paths := e.geometryPaths(g)
	box := e.layout.BoxTransform().ToSlice()
	unit := e.layout.Unit()

	commands := []DrawCommand{{
		Op:          "path",
		Role:        RoleSilhouette,
		Transform:   box,
		Path:        paths.silhouette,
		Fill:        palette.Fill,
		Stroke:      palette.Stroke,
		StrokeWidth: silhouette.StrokeWidth,
		Opacity:     1,
	}}

	neck := paths.necklineFront
	if e.side == garment.SideBack {
		neck = paths.necklineBack
	}
	if len(neck) > 0 {
		commands = append(commands, DrawCommand{
			Op:          "path",
			Role:        RoleNeckline,
			Transform:   box,
			Path:        neck,
			Stroke:      palette.Neckline,
			StrokeWidth: silhouette.NecklineWidth,
			Opacity:     1,
		})
	}

	printRect := e.layout.PrintRect(g)
	commands = append(commands,
		DrawCommand{
			Op:          "path",
			Role:        RolePrintGuide,
			Path:        rectPath(printRect),
			Stroke:      guideColor,
			StrokeWidth: 1,
			LineDash:    []float64{6, 4},
			Opacity:     1,
		},
		DrawCommand{Op: "save"},
		DrawCommand{Op: "clip", Path: rectPath(printRect)},
	)

	for _, d := range e.state.Layer(e.side).Decals() {
		f := PlaceDecal(d, printRect, unit)
		transform := f.Transform
		opacity := 1.0
		if s, o := e.anim.factor(d.ID); s != 1 || o != 1 {
			transform = CenteredTransform(f.CenterX, f.CenterY, f.Width, f.Height, d.Scale*s, d.Rotation)
			opacity = o
		}
		commands = append(commands, DrawCommand{
			Op:          "image",
			Role:        RoleDecal,
			ObjectID:    d.ID,
			Transform:   transform.ToSlice(),
			Opacity:     opacity,
			Src:         d.SourceURL,
			ImageWidth:  f.Width,
			ImageHeight: f.Height,
		})
	}
	commands = append(commands, DrawCommand{Op: "restore"})

	if f, ok := e.frame(e.controller.Selected()); ok {
		commands = append(commands, selectionCommands(f)...)
	}
	return commands
}

func selectionCommands(f DecalFrame) []DrawCommand {
	m := f.Transform
	x0, y0 := m.TransformPoint(0, 0)
	x1, y1 := m.TransformPoint(f.Width, 0)
	x2, y2 := m.TransformPoint(f.Width, f.Height)
	x3, y3 := m.TransformPoint(0, f.Height)

	out := []DrawCommand{{
		Op:   "path",
		Role: RoleSelection,
		Path: []PathCommand{
			{"M", x0, y0}, {"L", x1, y1}, {"L", x2, y2}, {"L", x3, y3}, {"Z"},
		},
		ObjectID:    f.ID,
		Stroke:      selectionColor,
		StrokeWidth: 1.5,
		Opacity:     1,
	}}

	for _, h := range handlesFor(f) {
		stroke := selectionColor
		if h.Kind == HandleDelete {
			stroke = deleteColor
		}
		out = append(out, DrawCommand{
			Op:          "path",
			Role:        handleRoles[h.Kind],
			ObjectID:    f.ID,
			Path:        circlePath(h.X, h.Y, HandleRadius),
			Fill:        handleFill,
			Stroke:      stroke,
			StrokeWidth: 1.5,
			Opacity:     1,
		})
	}
	return out
}

// DrawCommandsToJSON serializes draw commands to JSON.
func DrawCommandsToJSON(commands []DrawCommand) (string, error) {
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}
