//go:build js && wasm

package main

import (
	"encoding/json"
	"syscall/js"
	"time"

	"github.com/inkwell/studio/backend-go/internal/design"
	"github.com/inkwell/studio/backend-go/internal/engine"
	"github.com/inkwell/studio/backend-go/internal/garment"
)

var eng *engine.Engine

// jsCapture forwards pointer capture to the host's studioHost object when it
// provides capturePointer/releasePointer.
type jsCapture struct{}

func (jsCapture) Capture(pointerID int) { callHost("capturePointer", pointerID) }
func (jsCapture) Release(pointerID int) { callHost("releasePointer", pointerID) }

func callHost(method string, args ...interface{}) {
	host := js.Global().Get("studioHost")
	if host.IsUndefined() || host.IsNull() {
		return
	}
	if fn := host.Get(method); fn.Type() == js.TypeFunction {
		fn.Invoke(args...)
	}
}

func main() {
	eng = engine.NewEngine(nil)
	eng.SetCapture(jsCapture{})

	studioEngine := js.Global().Get("Object").New()

	// --- Commands (frontend → backend) ---
	studioEngine.Set("loadState", js.FuncOf(loadState))
	studioEngine.Set("setLayout", js.FuncOf(setLayout))
	studioEngine.Set("setSide", js.FuncOf(setSide))
	studioEngine.Set("setColor", js.FuncOf(setColor))
	studioEngine.Set("setType", js.FuncOf(setType))
	studioEngine.Set("addDecal", js.FuncOf(addDecal))
	studioEngine.Set("updateDecal", js.FuncOf(updateDecal))
	studioEngine.Set("removeDecal", js.FuncOf(removeDecal))
	studioEngine.Set("moveUp", js.FuncOf(moveUp))
	studioEngine.Set("moveDown", js.FuncOf(moveDown))
	studioEngine.Set("clearSide", js.FuncOf(clearSide))
	studioEngine.Set("select", js.FuncOf(selectDecal))
	studioEngine.Set("pointerDown", js.FuncOf(pointerDown))
	studioEngine.Set("pointerMove", js.FuncOf(pointerMove))
	studioEngine.Set("pointerUp", js.FuncOf(pointerUp))
	studioEngine.Set("pointerCancel", js.FuncOf(pointerCancel))
	studioEngine.Set("tick", js.FuncOf(tick))

	// --- Queries (frontend ← backend) ---
	studioEngine.Set("render", js.FuncOf(render))
	studioEngine.Set("renderSVG", js.FuncOf(renderSVG))
	studioEngine.Set("hitTest", js.FuncOf(hitTest))
	studioEngine.Set("getSelection", js.FuncOf(getSelection))
	studioEngine.Set("getSelectionBounds", js.FuncOf(getSelectionBounds))
	studioEngine.Set("getInspector", js.FuncOf(getInspector))
	studioEngine.Set("getState", js.FuncOf(getState))
	studioEngine.Set("getSide", js.FuncOf(getSide))

	js.Global().Set("studioEngine", studioEngine)
	js.Global().Set("studioWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func ok() interface{} {
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func fail(msg string) interface{} {
	return js.ValueOf(map[string]interface{}{"error": msg})
}

func toJSON(v interface{}) interface{} {
	data, err := json.Marshal(v)
	if err != nil {
		return js.ValueOf("{}")
	}
	return js.ValueOf(string(data))
}

// --- Command Handlers ---

func loadState(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return fail("missing state JSON")
	}
	if err := eng.LoadStateJSON(args[0].String()); err != nil {
		return fail(err.Error())
	}
	return ok()
}

func setLayout(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return fail("expected x, y, size")
	}
	eng.SetLayout(engine.Layout{X: args[0].Float(), Y: args[1].Float(), Size: args[2].Float()})
	return ok()
}

func setSide(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return fail("missing side")
	}
	if err := eng.SetSide(garment.Side(args[0].String())); err != nil {
		return fail(err.Error())
	}
	return ok()
}

func setColor(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return fail("missing color")
	}
	c, err := garment.ParseColor(args[0].String())
	if err != nil {
		return fail(err.Error())
	}
	if err := eng.SetColor(c); err != nil {
		return fail(err.Error())
	}
	return ok()
}

func setType(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return fail("missing garment type")
	}
	if err := eng.SetType(garment.Type(args[0].String())); err != nil {
		return fail(err.Error())
	}
	return ok()
}

// addDecal(sourceUrl, naturalWidth, naturalHeight) returns the new decal id.
func addDecal(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || args[0].String() == "" {
		return js.ValueOf("")
	}
	var w, h float64
	if len(args) >= 3 {
		w, h = args[1].Float(), args[2].Float()
	}
	return js.ValueOf(eng.AddDecal(design.NewDecal(args[0].String(), w, h)))
}

func updateDecal(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf(false)
	}
	var p design.Patch
	if err := json.Unmarshal([]byte(args[1].String()), &p); err != nil {
		return js.ValueOf(false)
	}
	return js.ValueOf(eng.UpdateDecal(args[0].String(), p))
}

func removeDecal(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(false)
	}
	return js.ValueOf(eng.RemoveDecal(args[0].String()))
}

func moveUp(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(false)
	}
	return js.ValueOf(eng.MoveUp(args[0].String()))
}

func moveDown(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(false)
	}
	return js.ValueOf(eng.MoveDown(args[0].String()))
}

func clearSide(this js.Value, args []js.Value) interface{} {
	eng.ClearSide()
	return nil
}

func selectDecal(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || args[0].IsNull() || args[0].String() == "" {
		eng.ClearSelection()
		return js.ValueOf(true)
	}
	return js.ValueOf(eng.Select(args[0].String()))
}

// pointerEvent reads (pointerId, pointerType, x, y) as sent by a DOM
// PointerEvent handler.
func pointerEvent(args []js.Value) (engine.PointerEvent, bool) {
	if len(args) < 4 {
		return engine.PointerEvent{}, false
	}
	return engine.PointerEvent{
		PointerID: args[0].Int(),
		Source:    engine.InputSource(args[1].String()),
		X:         args[2].Float(),
		Y:         args[3].Float(),
	}, true
}

func pointerDown(this js.Value, args []js.Value) interface{} {
	ev, valid := pointerEvent(args)
	if !valid {
		return toJSON(engine.PointerResult{})
	}
	return toJSON(eng.PointerDown(ev))
}

func pointerMove(this js.Value, args []js.Value) interface{} {
	ev, valid := pointerEvent(args)
	if !valid {
		return toJSON(engine.MoveResult{})
	}
	return toJSON(eng.PointerMove(ev))
}

func pointerUp(this js.Value, args []js.Value) interface{} {
	if ev, valid := pointerEvent(args); valid {
		eng.PointerUp(ev)
	}
	return nil
}

func pointerCancel(this js.Value, args []js.Value) interface{} {
	eng.PointerCancel()
	return nil
}

// tick takes the rAF timestamp in milliseconds and reports whether another
// frame is needed.
func tick(this js.Value, args []js.Value) interface{} {
	now := time.Now()
	if len(args) > 0 && args[0].Type() == js.TypeNumber {
		now = time.UnixMilli(int64(args[0].Float()))
	}
	return js.ValueOf(eng.Tick(now))
}

// --- Query Handlers ---

func render(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.Render())
}

func renderSVG(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(string(eng.RenderSVG()))
}

func hitTest(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf("")
	}
	return js.ValueOf(eng.HitTest(args[0].Float(), args[1].Float()))
}

func getSelection(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.Selection())
}

func getSelectionBounds(this js.Value, args []js.Value) interface{} {
	return toJSON(eng.SelectionBounds())
}

// getInspector returns the selected decal's panel values as JSON, or null.
func getInspector(this js.Value, args []js.Value) interface{} {
	insp, found := eng.Inspect()
	if !found {
		return js.Null()
	}
	return toJSON(insp)
}

func getState(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.StateJSON())
}

func getSide(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(string(eng.Side()))
}
