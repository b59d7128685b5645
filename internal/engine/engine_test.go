package engine

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell/studio/backend-go/internal/design"
	"github.com/inkwell/studio/backend-go/internal/garment"
)

// With the default layout the t-shirt print area is x=140 y=110 w=220 h=275,
// so a centered decal sits at (250, 247.5).
const (
	centerX = 250.0
	centerY = 247.5
)

func newDecal(id string) design.Decal {
	return design.Decal{ID: id, SourceURL: "/assets/" + id + ".png", X: 50, Y: 50, Scale: 1, Width: 150, Height: 150, AspectRatio: 1}
}

func roles(cmds []DrawCommand) []string {
	var out []string
	for _, c := range cmds {
		if c.Role != "" {
			out = append(out, c.Role)
		} else {
			out = append(out, c.Op)
		}
	}
	return out
}

func TestEngine_PrintRect(t *testing.T) {
	e := NewEngine(nil)
	assert.Equal(t, Rect{X: 140, Y: 110, Width: 220, Height: 275}, e.PrintRect())

	e.SetLayout(Layout{X: 100, Y: 50, Size: 1000})
	assert.Equal(t, Rect{X: 380, Y: 270, Width: 440, Height: 550}, e.PrintRect())
}

func TestPlaceDecal_ExportScaleScenario(t *testing.T) {
	g, _ := garment.DefaultCatalog().Lookup(garment.TypeTShirt)
	layout := Layout{Size: 1000}

	f := PlaceDecal(newDecal("a"), layout.PrintRect(g), layout.Unit())

	assert.InDelta(t, 500, f.CenterX, 1e-9)
	assert.InDelta(t, 495, f.CenterY, 1e-9)
	assert.InDelta(t, 300, f.Width, 1e-9)
	assert.InDelta(t, 300, f.Height, 1e-9)
}

func TestEngine_AddSelectsNewDecal(t *testing.T) {
	e := NewEngine(nil)
	id := e.AddDecal(newDecal("a"))

	assert.Equal(t, "a", id)
	assert.Equal(t, "a", e.Selection())
}

func TestEngine_RemoveSelection(t *testing.T) {
	e := NewEngine(nil)
	e.AddDecal(newDecal("a"))
	e.AddDecal(newDecal("b"))
	require.True(t, e.Select("a"))

	require.True(t, e.RemoveDecal("b"))
	assert.Equal(t, "a", e.Selection())

	require.True(t, e.RemoveDecal("a"))
	assert.Empty(t, e.Selection())
	assert.False(t, e.RemoveDecal("a"))
}

func TestEngine_SetSideClearsSelection(t *testing.T) {
	e := NewEngine(nil)
	e.AddDecal(newDecal("a"))
	require.NoError(t, e.SetSide(garment.SideBack))

	assert.Empty(t, e.Selection())
	assert.Equal(t, garment.SideBack, e.Side())
	assert.False(t, e.Select("a"))

	e.AddDecal(newDecal("b"))
	st := e.State()
	assert.Equal(t, []string{"a"}, st.Front.IDs())
	assert.Equal(t, []string{"b"}, st.Back.IDs())

	require.Error(t, e.SetSide("left"))
}

func TestEngine_SetColorAndType(t *testing.T) {
	e := NewEngine(nil)

	require.NoError(t, e.SetColor(garment.ColorNavy))
	require.Error(t, e.SetColor("plaid"))
	require.NoError(t, e.SetType(garment.TypeHoodie))
	require.ErrorIs(t, e.SetType("kimono"), garment.ErrUnknownType)

	st := e.State()
	assert.Equal(t, garment.ColorNavy, st.Color)
	assert.Equal(t, garment.TypeHoodie, st.Type)
	assert.Equal(t, garment.ColorNavy.Palette().Fill, e.DrawCommands()[0].Fill)
}

func TestEngine_LoadStateJSON(t *testing.T) {
	e := NewEngine(nil)
	e.AddDecal(newDecal("old"))

	err := e.LoadStateJSON(`{"front":[{"id":"x","sourceUrl":"/assets/x.png","x":10,"y":20,"scale":1,"width":150,"height":75}],"back":[],"color":"black","type":"tank"}`)
	require.NoError(t, err)

	st := e.State()
	assert.Equal(t, []string{"x"}, st.Front.IDs())
	assert.Equal(t, garment.TypeTank, st.Type)
	assert.Empty(t, e.Selection())

	require.Error(t, e.LoadStateJSON(`{"color":"plaid"}`))
	require.Error(t, e.LoadStateJSON(`not json`))
	assert.Equal(t, garment.TypeTank, e.State().Type)
}

func TestEngine_StateIsSnapshot(t *testing.T) {
	e := NewEngine(nil)
	e.AddDecal(newDecal("a"))
	st := e.State()

	e.UpdateDecal("a", design.Patch{X: design.Float(5)})

	d, _ := st.Front.Find("a")
	assert.Equal(t, 50.0, d.X)
}

func TestEngine_InspectNormalizesRotationForDisplay(t *testing.T) {
	e := NewEngine(nil)
	_, ok := e.Inspect()
	assert.False(t, ok)

	e.AddDecal(newDecal("a"))
	e.UpdateDecal("a", design.Patch{Rotation: design.Float(-450)})

	insp, ok := e.Inspect()
	require.True(t, ok)
	assert.Equal(t, "a", insp.ID)
	assert.Equal(t, 270.0, insp.Rotation)
	assert.Equal(t, 1.0, insp.Scale)

	d, _ := e.State().Front.Find("a")
	assert.Equal(t, -450.0, d.Rotation)

	e.ClearSelection()
	_, ok = e.Inspect()
	assert.False(t, ok)
}

func TestEngine_RenderOrder(t *testing.T) {
	e := NewEngine(nil)
	e.AddDecal(newDecal("a"))
	e.AddDecal(newDecal("b"))

	cmds := e.DrawCommands()
	assert.Equal(t, []string{
		RoleSilhouette, RoleNeckline, RolePrintGuide, "save", "clip",
		RoleDecal, RoleDecal, "restore",
		RoleSelection, RoleHandleDelete, RoleHandleResize, RoleHandleRotate,
	}, roles(cmds))

	assert.Equal(t, "a", cmds[5].ObjectID)
	assert.Equal(t, "b", cmds[6].ObjectID)
	assert.Equal(t, PathCommand{"M", 140.0, 110.0}, cmds[4].Path[0])
	assert.Equal(t, "b", cmds[8].ObjectID)
}

func TestEngine_RenderDecalTransform(t *testing.T) {
	e := NewEngine(nil)
	e.AddDecal(newDecal("a"))
	e.ClearSelection()

	var img DrawCommand
	for _, c := range e.DrawCommands() {
		if c.Op == "image" {
			img = c
		}
	}
	require.Equal(t, "/assets/a.png", img.Src)
	assert.Equal(t, 150.0, img.ImageWidth)
	assert.Equal(t, 1.0, img.Opacity)

	m := Matrix2D(img.Transform)
	x, y := m.TransformPoint(75, 75)
	assert.InDelta(t, centerX, x, 1e-9)
	assert.InDelta(t, centerY, y, 1e-9)
}

func TestEngine_RenderUsesSideNeckline(t *testing.T) {
	e := NewEngine(nil)
	front := e.DrawCommands()[1].Path

	require.NoError(t, e.SetSide(garment.SideBack))
	back := e.DrawCommands()[1].Path

	assert.NotEqual(t, front, back)
}

func TestEngine_RenderJSON(t *testing.T) {
	e := NewEngine(nil)
	e.AddDecal(newDecal("a"))

	var cmds []map[string]any
	require.NoError(t, json.Unmarshal([]byte(e.Render()), &cmds))
	assert.Equal(t, "path", cmds[0]["op"])
}

func TestEngine_HitTestTopmostFirst(t *testing.T) {
	e := NewEngine(nil)
	e.AddDecal(newDecal("a"))
	e.AddDecal(newDecal("b"))

	assert.Equal(t, "b", e.HitTest(centerX, centerY))

	e.MoveDown("b")
	assert.Equal(t, "a", e.HitTest(centerX, centerY))

	assert.Empty(t, e.HitTest(centerX, 100))
}

func TestEngine_HitTestClippedToPrintArea(t *testing.T) {
	e := NewEngine(nil)
	d := newDecal("edge")
	d.X = 0
	e.AddDecal(d)

	// The decal straddles the left print edge at x=140.
	assert.Equal(t, "edge", e.HitTest(150, centerY))
	assert.Empty(t, e.HitTest(130, centerY))
}

func TestEngine_HitTestRotated(t *testing.T) {
	e := NewEngine(nil)
	d := newDecal("r")
	d.Width = 200
	d.Height = 20
	d.AspectRatio = 10
	d.Rotation = 90
	e.AddDecal(d)

	assert.Equal(t, "r", e.HitTest(centerX, centerY+80))
	assert.Empty(t, e.HitTest(centerX+80, centerY))
}

func TestEngine_HitHandle(t *testing.T) {
	e := NewEngine(nil)
	e.AddDecal(newDecal("a"))

	assert.Equal(t, HandleDelete, e.HitHandle(175, 172.5))
	assert.Equal(t, HandleResize, e.HitHandle(325, 322.5))
	assert.Equal(t, HandleRotate, e.HitHandle(250, 148.5))
	assert.Equal(t, HandleNone, e.HitHandle(centerX, centerY))

	e.ClearSelection()
	assert.Equal(t, HandleNone, e.HitHandle(325, 322.5))
}

func TestEngine_PointerResizeFlow(t *testing.T) {
	e := NewEngine(nil)
	e.AddDecal(newDecal("a"))

	res := e.PointerDown(mouse(325, 322.5))
	require.Equal(t, ActionResize, res.Action)
	e.PointerMove(mouse(425, 322.5))
	e.PointerUp(mouse(425, 322.5))

	d, _ := e.State().Front.Find("a")
	assert.InDelta(t, 1.5, d.Scale, 1e-9)
}

func TestEngine_PointerMoveFlow(t *testing.T) {
	e := NewEngine(nil)
	e.AddDecal(newDecal("a"))
	e.ClearSelection()

	touch := PointerEvent{PointerID: 3, Source: InputTouch, X: centerX, Y: centerY}
	res := e.PointerDown(touch)
	require.Equal(t, ActionMove, res.Action)
	assert.True(t, res.PreventDefault)
	assert.Equal(t, "a", e.Selection())

	touch.X += 22
	mv := e.PointerMove(touch)
	assert.True(t, mv.PreventDefault)
	e.PointerUp(touch)

	d, _ := e.State().Front.Find("a")
	assert.InDelta(t, 60, d.X, 1e-9)
	assert.InDelta(t, 50, d.Y, 1e-9)
}

func TestEngine_PointerRotateFlow(t *testing.T) {
	e := NewEngine(nil)
	e.AddDecal(newDecal("a"))

	res := e.PointerDown(mouse(250, 148.5))
	require.Equal(t, ActionRotate, res.Action)
	e.PointerMove(mouse(centerX+100, centerY))
	e.PointerUp(mouse(centerX+100, centerY))

	d, _ := e.State().Front.Find("a")
	assert.InDelta(t, 90, d.Rotation, 1e-9)
}

func TestEngine_PointerDeleteHandle(t *testing.T) {
	e := NewEngine(nil)
	e.AddDecal(newDecal("a"))

	res := e.PointerDown(mouse(175, 172.5))
	assert.Equal(t, ActionDelete, res.Action)
	assert.Zero(t, e.State().Front.Len())
	assert.Empty(t, e.Selection())
}

func TestEngine_BackgroundClickClearsSelection(t *testing.T) {
	e := NewEngine(nil)
	e.AddDecal(newDecal("a"))

	res := e.PointerDown(mouse(10, 10))
	assert.Equal(t, ActionClear, res.Action)
	assert.Empty(t, e.Selection())
}

func TestEngine_ClearSide(t *testing.T) {
	e := NewEngine(nil)
	e.AddDecal(newDecal("a"))
	e.AddDecal(newDecal("b"))

	e.ClearSide()
	assert.Zero(t, e.State().Front.Len())
	assert.Empty(t, e.Selection())
}

func TestEngine_PopInIsRenderOnly(t *testing.T) {
	e := NewEngine(nil)
	t0 := time.Unix(1700000000, 0)
	e.Tick(t0)

	e.AddDecal(newDecal("a"))
	img := e.DrawCommands()[5]
	require.Equal(t, "image", img.Op)
	assert.Less(t, img.Opacity, 1.0)

	assert.True(t, e.Tick(t0.Add(100*time.Millisecond)))
	assert.False(t, e.Tick(t0.Add(time.Second)))

	img = e.DrawCommands()[5]
	assert.Equal(t, 1.0, img.Opacity)
	d, _ := e.State().Front.Find("a")
	assert.Equal(t, 1.0, d.Scale)
}

func TestRenderSVG(t *testing.T) {
	e := NewEngine(nil)
	e.AddDecal(newDecal("a"))
	e.AddDecal(newDecal("b"))

	svg := string(e.RenderSVG())
	assert.Contains(t, svg, `<clipPath id="print-area"><rect x="140" y="110" width="220" height="275"/>`)
	assert.Less(t, strings.Index(svg, `data-decal="a"`), strings.Index(svg, `data-decal="b"`))
	assert.NotContains(t, svg, guideColor)
}

func TestEase(t *testing.T) {
	for _, k := range []EaseKind{EaseLinear, EaseIn, EaseOut, EaseInOut, EaseBackOut, EaseCubicOut} {
		assert.InDelta(t, 0, Ease(k, 0), 1e-9, "kind %s", k)
		assert.InDelta(t, 1, Ease(k, 1), 1e-9, "kind %s", k)
		assert.InDelta(t, 1, Ease(k, 5), 1e-9, "kind %s", k)
	}
	assert.InDelta(t, 0.25, Ease(EaseIn, 0.5), 1e-9)
	assert.Greater(t, Ease(EaseBackOut, 0.7), 1.0)
}

func TestMatrix_CenteredTransformAndInvert(t *testing.T) {
	m := CenteredTransform(100, 50, 40, 20, 2, 30)

	x, y := m.TransformPoint(20, 10)
	assert.InDelta(t, 100, x, 1e-9)
	assert.InDelta(t, 50, y, 1e-9)

	inv, ok := m.Invert()
	require.True(t, ok)
	assert.InDeltaSlice(t, Identity().ToSlice(), m.Multiply(inv).ToSlice(), 1e-9)

	_, ok = Scale(0, 1).Invert()
	assert.False(t, ok)
}
