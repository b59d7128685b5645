package engine

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/inkwell/studio/backend-go/internal/design"
	"github.com/inkwell/studio/backend-go/internal/garment"
)

// Engine is the design studio's editing core. It owns one ProductState, the
// visible side, the selection and any in-flight gesture, and compiles the
// whole composition into draw commands for the host.
type Engine struct {
	catalog *garment.Catalog
	state   *design.ProductState
	side    garment.Side
	layout  Layout

	controller *Controller
	anim       popIn

	// Parsed path data per geometry, resolved lazily.
	paths map[garment.Type]geometryPaths

	commands []DrawCommand
	dirty    bool
}

type geometryPaths struct {
	silhouette    []PathCommand
	necklineFront []PathCommand
	necklineBack  []PathCommand
}

// NewEngine creates an engine editing an empty white t-shirt. A nil catalog
// selects the built-in one.
func NewEngine(catalog *garment.Catalog) *Engine {
	if catalog == nil {
		catalog = garment.DefaultCatalog()
	}
	state := design.NewProductState(nil)
	return &Engine{
		catalog:    catalog,
		state:      state,
		side:       garment.SideFront,
		layout:     DefaultLayout(),
		controller: NewController(state, nil),
		paths:      make(map[garment.Type]geometryPaths),
		dirty:      true,
	}
}

// --- Commands (host → engine) ---

// LoadState replaces the edited state with a copy of s. The visible side
// returns to front and the selection is cleared.
func (e *Engine) LoadState(s *design.ProductState) error {
	next := design.NewProductState(s)
	if err := next.Validate(e.catalog); err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	e.state = next
	e.side = garment.SideFront
	e.controller.Reset(next)
	e.anim.started = nil
	e.dirty = true
	return nil
}

func (e *Engine) LoadStateJSON(data string) error {
	var s design.ProductState
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return fmt.Errorf("decode state: %w", err)
	}
	return e.LoadState(&s)
}

func (e *Engine) SetCapture(c InputCapture) {
	e.controller.SetCapture(c)
}

func (e *Engine) SetLayout(l Layout) {
	if l.Size <= 0 {
		l.Size = garment.BoxSize
	}
	e.controller.Cancel()
	e.layout = l
	e.dirty = true
}

// SetSide switches the visible side. The selection belongs to the side it
// was made on, so it is cleared.
func (e *Engine) SetSide(side garment.Side) error {
	if !side.Valid() {
		return fmt.Errorf("set side: invalid side %q", side)
	}
	if side == e.side {
		return nil
	}
	e.controller.Cancel()
	e.controller.ClearSelection()
	e.side = side
	e.dirty = true
	return nil
}

func (e *Engine) SetColor(c garment.Color) error {
	if !c.Valid() {
		return fmt.Errorf("set color: invalid color %q", c)
	}
	e.state.Color = c
	e.dirty = true
	return nil
}

// SetType retypes the garment. Decals keep their print-area relative
// positions and follow the new print area.
func (e *Engine) SetType(t garment.Type) error {
	if _, err := e.catalog.Get(t); err != nil {
		return fmt.Errorf("set type: %w", err)
	}
	e.state.Type = t
	e.dirty = true
	return nil
}

// AddDecal places d on top of the visible side and selects it.
func (e *Engine) AddDecal(d design.Decal) string {
	id := e.state.Add(e.side, d)
	e.controller.Select(e.side, id)
	e.anim.start(id)
	e.dirty = true
	return id
}

func (e *Engine) UpdateDecal(id string, p design.Patch) bool {
	if !e.state.Update(e.side, id, p) {
		return false
	}
	e.dirty = true
	return true
}

// RemoveDecal deletes a decal from the visible side. Removing the selected
// decal clears the selection; removing any other leaves it alone.
func (e *Engine) RemoveDecal(id string) bool {
	if !e.state.Remove(e.side, id) {
		return false
	}
	e.controller.Forget(id)
	e.anim.forget(id)
	e.dirty = true
	return true
}

func (e *Engine) MoveUp(id string) bool {
	ok := e.state.MoveUp(e.side, id)
	e.dirty = e.dirty || ok
	return ok
}

func (e *Engine) MoveDown(id string) bool {
	ok := e.state.MoveDown(e.side, id)
	e.dirty = e.dirty || ok
	return ok
}

// ClearSide empties the visible side.
func (e *Engine) ClearSide() {
	for _, id := range e.state.Layer(e.side).IDs() {
		e.controller.Forget(id)
		e.anim.forget(id)
	}
	e.state.Clear(e.side)
	e.dirty = true
}

func (e *Engine) Select(id string) bool {
	if !e.controller.Select(e.side, id) {
		return false
	}
	e.dirty = true
	return true
}

func (e *Engine) ClearSelection() {
	if e.controller.Selected() != "" {
		e.controller.ClearSelection()
		e.dirty = true
	}
}

// PointerAction names what a pointer-down resolved to.
type PointerAction string

const (
	ActionNone   PointerAction = ""
	ActionMove   PointerAction = "move"
	ActionResize PointerAction = "resize"
	ActionRotate PointerAction = "rotate"
	ActionDelete PointerAction = "delete"
	ActionClear  PointerAction = "clear"
)

type PointerResult struct {
	Action         PointerAction `json:"action"`
	DecalID        string        `json:"decalId,omitempty"`
	PreventDefault bool          `json:"preventDefault"`
}

// PointerDown routes a press: the selected decal's handles win, then the
// topmost decal under the pointer, and a background press clears the
// selection.
func (e *Engine) PointerDown(ev PointerEvent) PointerResult {
	e.dirty = true

	if h := e.HitHandle(ev.X, ev.Y); h != HandleNone {
		id := e.controller.Selected()
		switch h {
		case HandleDelete:
			e.RemoveDecal(id)
			return PointerResult{Action: ActionDelete, DecalID: id}
		case HandleResize:
			if e.controller.BeginResize(e.side, id, ev) != nil {
				return PointerResult{Action: ActionResize, DecalID: id, PreventDefault: ev.Source == InputTouch}
			}
		case HandleRotate:
			if f, ok := e.frame(id); ok {
				if e.controller.BeginRotate(e.side, id, ev, Point{X: f.CenterX, Y: f.CenterY}) != nil {
					return PointerResult{Action: ActionRotate, DecalID: id, PreventDefault: ev.Source == InputTouch}
				}
			}
		}
	}

	if id := e.HitTest(ev.X, ev.Y); id != "" {
		if e.controller.BeginMove(e.side, id, ev, e.PrintRect()) != nil {
			return PointerResult{Action: ActionMove, DecalID: id, PreventDefault: ev.Source == InputTouch}
		}
	}

	e.controller.Cancel()
	e.controller.ClearSelection()
	return PointerResult{Action: ActionClear}
}

func (e *Engine) PointerMove(ev PointerEvent) MoveResult {
	res := e.controller.Move(ev)
	if res.Applied {
		e.dirty = true
	}
	return res
}

func (e *Engine) PointerUp(ev PointerEvent) {
	e.controller.End(ev)
	e.dirty = true
}

func (e *Engine) PointerCancel() {
	e.controller.Cancel()
	e.dirty = true
}

// Tick advances render-time animations and reports whether another frame is
// needed. It never changes the edited state.
func (e *Engine) Tick(now time.Time) bool {
	wasAnimating := len(e.anim.started) > 0
	animating := e.anim.tick(now)
	if wasAnimating {
		e.dirty = true
	}
	return animating
}

// --- Queries (host ← engine) ---

// State returns a snapshot of the edited state.
func (e *Engine) State() *design.ProductState {
	return e.state.Snapshot()
}

func (e *Engine) StateJSON() string {
	data, err := json.Marshal(e.state)
	if err != nil {
		slog.Debug("encode state", "error", err)
		return "{}"
	}
	return string(data)
}

func (e *Engine) Side() garment.Side {
	return e.side
}

func (e *Engine) Selection() string {
	return e.controller.Selected()
}

// Inspector is the selected decal as an editing panel shows it. Rotation is
// folded into [0, 360); the stored rotation keeps its full value.
type Inspector struct {
	ID       string  `json:"id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Scale    float64 `json:"scale"`
	Rotation float64 `json:"rotation"`
}

func (e *Engine) Inspect() (Inspector, bool) {
	id := e.controller.Selected()
	if id == "" {
		return Inspector{}, false
	}
	d, ok := e.state.Layer(e.side).Find(id)
	if !ok {
		return Inspector{}, false
	}
	return Inspector{
		ID:       d.ID,
		X:        d.X,
		Y:        d.Y,
		Scale:    d.Scale,
		Rotation: design.NormalizeRotation(d.Rotation),
	}, true
}

func (e *Engine) Layout() Layout {
	return e.layout
}

func (e *Engine) Geometry() garment.Geometry {
	g, ok := e.catalog.Lookup(e.state.Type)
	if !ok {
		g, _ = e.catalog.Lookup(garment.TypeTShirt)
	}
	return g
}

// PrintRect is the print area of the current garment in screen space.
func (e *Engine) PrintRect() Rect {
	return e.layout.PrintRect(e.Geometry())
}

// DrawCommands compiles the composition in painter's order.
func (e *Engine) DrawCommands() []DrawCommand {
	if e.dirty || e.commands == nil {
		e.commands = e.compile()
		e.dirty = false
	}
	return e.commands
}

// Render returns the draw commands as JSON.
func (e *Engine) Render() string {
	result, err := DrawCommandsToJSON(e.DrawCommands())
	if err != nil {
		slog.Debug("encode draw commands", "error", err)
	}
	return result
}

// HitTest returns the topmost decal on the visible side under the point.
// Decals are only hittable inside the print area, where they are visible.
func (e *Engine) HitTest(x, y float64) string {
	if !e.PrintRect().Contains(x, y) {
		return ""
	}
	decals := e.state.Layer(e.side).Decals()
	for i := len(decals) - 1; i >= 0; i-- {
		if e.place(decals[i]).Contains(x, y) {
			return decals[i].ID
		}
	}
	return ""
}

// HitHandle tests the selected decal's manipulation handles.
func (e *Engine) HitHandle(x, y float64) Handle {
	f, ok := e.frame(e.controller.Selected())
	if !ok {
		return HandleNone
	}
	for _, h := range handlesFor(f) {
		if distance(x, y, h.X, h.Y) <= HandleRadius {
			return h.Kind
		}
	}
	return HandleNone
}

// SelectionBounds is the screen-space bounding box of the selected decal.
func (e *Engine) SelectionBounds() Rect {
	f, ok := e.frame(e.controller.Selected())
	if !ok {
		return Rect{}
	}
	return f.Bounds()
}

func (e *Engine) frame(id string) (DecalFrame, bool) {
	if id == "" {
		return DecalFrame{}, false
	}
	d, ok := e.state.Layer(e.side).Find(id)
	if !ok {
		return DecalFrame{}, false
	}
	return e.place(d), true
}

func (e *Engine) place(d design.Decal) DecalFrame {
	return PlaceDecal(d, e.PrintRect(), e.layout.Unit())
}

func (e *Engine) geometryPaths(g garment.Geometry) geometryPaths {
	if p, ok := e.paths[g.Type]; ok {
		return p
	}
	var p geometryPaths
	p.silhouette = parsedPath(g.SilhouettePath)
	p.necklineFront = parsedPath(g.NecklineFront)
	p.necklineBack = parsedPath(g.NecklineBack)
	e.paths[g.Type] = p
	return p
}

func parsedPath(d string) []PathCommand {
	if d == "" {
		return nil
	}
	segs, err := garment.ParsePath(d)
	if err != nil {
		slog.Debug("skip unparsable path", "error", err)
		return nil
	}
	return segmentsToPath(segs)
}
