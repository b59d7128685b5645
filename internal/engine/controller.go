package engine

import (
	"log/slog"

	"github.com/inkwell/studio/backend-go/internal/design"
	"github.com/inkwell/studio/backend-go/internal/garment"
)

// InputCapture is the host's pointer-capture primitive. Capture is called
// when a gesture begins and Release exactly once when it ends.
type InputCapture interface {
	Capture(pointerID int)
	Release(pointerID int)
}

type noCapture struct{}

func (noCapture) Capture(int) {}
func (noCapture) Release(int) {}

// MoveResult reports what a pointer move did. PreventDefault asks the host to
// suppress native scrolling, which touch input needs while a gesture runs.
type MoveResult struct {
	Applied        bool `json:"applied"`
	PreventDefault bool `json:"preventDefault"`
}

// Controller turns pointer streams into decal updates, one gesture at a time.
// It also owns the single selection, which lives outside the layer stacks.
type Controller struct {
	state    *design.ProductState
	capture  InputCapture
	selected string
	active   *Gesture
}

func NewController(state *design.ProductState, capture InputCapture) *Controller {
	if capture == nil {
		capture = noCapture{}
	}
	return &Controller{state: state, capture: capture}
}

// Reset points the controller at a new state, ending any gesture and
// clearing the selection.
func (c *Controller) Reset(state *design.ProductState) {
	c.Cancel()
	c.state = state
	c.selected = ""
}

func (c *Controller) SetCapture(capture InputCapture) {
	if capture == nil {
		capture = noCapture{}
	}
	c.capture = capture
}

func (c *Controller) Selected() string {
	return c.selected
}

// Select makes id the sole selected decal. Unknown ids are ignored.
func (c *Controller) Select(side garment.Side, id string) bool {
	if _, ok := c.state.Layer(side).Find(id); !ok {
		return false
	}
	c.selected = id
	return true
}

func (c *Controller) ClearSelection() {
	c.selected = ""
}

// Active returns the in-flight gesture, or nil.
func (c *Controller) Active() *Gesture {
	return c.active
}

func (c *Controller) BeginMove(side garment.Side, id string, ev PointerEvent, container Rect) *Gesture {
	return c.begin(&Gesture{Kind: GestureMove, Side: side, DecalID: id, Container: container}, ev)
}

func (c *Controller) BeginResize(side garment.Side, id string, ev PointerEvent) *Gesture {
	return c.begin(&Gesture{Kind: GestureResize, Side: side, DecalID: id}, ev)
}

// BeginRotate starts a rotation around center, the decal's current screen
// center.
func (c *Controller) BeginRotate(side garment.Side, id string, ev PointerEvent, center Point) *Gesture {
	return c.begin(&Gesture{Kind: GestureRotate, Side: side, DecalID: id, Center: center}, ev)
}

func (c *Controller) begin(g *Gesture, ev PointerEvent) *Gesture {
	origin, ok := c.state.Layer(g.Side).Find(g.DecalID)
	if !ok {
		return nil
	}
	if c.active != nil {
		c.finish(c.active)
	}

	g.PointerID = ev.PointerID
	g.Source = ev.Source
	g.Start = Point{X: ev.X, Y: ev.Y}
	g.Origin = origin
	c.active = g
	c.selected = g.DecalID
	c.capture.Capture(g.PointerID)
	return g
}

// Move applies the active gesture to a pointer sample. Samples from other
// pointers, moves without a gesture, and updates against a decal that has
// since been removed are all no-ops.
func (c *Controller) Move(ev PointerEvent) (res MoveResult) {
	g := c.active
	if g == nil || g.PointerID != ev.PointerID {
		return MoveResult{}
	}
	res.PreventDefault = g.Source == InputTouch

	defer func() {
		if r := recover(); r != nil {
			slog.Debug("gesture move aborted", "kind", g.Kind, "decal", g.DecalID, "panic", r)
			c.finish(g)
			res.Applied = false
		}
	}()

	patch, ok := g.Patch(Point{X: ev.X, Y: ev.Y})
	if !ok {
		return res
	}
	res.Applied = c.state.Update(g.Side, g.DecalID, patch)
	return res
}

// End finishes the active gesture for the given pointer.
func (c *Controller) End(ev PointerEvent) {
	if c.active == nil || c.active.PointerID != ev.PointerID {
		return
	}
	c.finish(c.active)
}

// Cancel ends the active gesture regardless of pointer. The decal keeps the
// values applied so far.
func (c *Controller) Cancel() {
	if c.active != nil {
		c.finish(c.active)
	}
}

func (c *Controller) finish(g *Gesture) {
	if !g.released {
		g.released = true
		c.capture.Release(g.PointerID)
	}
	if c.active == g {
		c.active = nil
	}
}

// Forget drops the selection and any gesture that targets id. Callers use it
// after removing a decal.
func (c *Controller) Forget(id string) {
	if c.selected == id {
		c.selected = ""
	}
	if c.active != nil && c.active.DecalID == id {
		c.finish(c.active)
	}
}
