package garment

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()

	assert.Equal(t, []Type{TypeTShirt, TypeHoodie, TypeLongSleeve, TypePolo, TypeTank}, c.Types())
	for _, g := range c.All() {
		require.NoError(t, g.PrintArea.Validate(), "type %s", g.Type)
		assert.NotEmpty(t, g.Label)
		assert.NotEmpty(t, g.NecklineFront)
		assert.NotEmpty(t, g.NecklineBack)
	}
}

func TestDefaultCatalog_TShirtPrintArea(t *testing.T) {
	g, ok := DefaultCatalog().Lookup(TypeTShirt)
	require.True(t, ok)
	assert.Equal(t, PrintArea{Top: 22, Left: 28, Width: 44, Height: 55}, g.PrintArea)

	x, y, w, h := g.PrintArea.Pixels(1000, 1000)
	assert.InDelta(t, 280, x, 1e-9)
	assert.InDelta(t, 220, y, 1e-9)
	assert.InDelta(t, 440, w, 1e-9)
	assert.InDelta(t, 550, h, 1e-9)
}

func TestPrintArea_Validate(t *testing.T) {
	tests := []struct {
		name    string
		area    PrintArea
		wantErr bool
	}{
		{"valid", PrintArea{Top: 10, Left: 10, Width: 80, Height: 80}, false},
		{"full box", PrintArea{Top: 0, Left: 0, Width: 100, Height: 100}, false},
		{"negative top", PrintArea{Top: -1, Left: 10, Width: 10, Height: 10}, true},
		{"width over 100", PrintArea{Top: 0, Left: 0, Width: 101, Height: 10}, true},
		{"left plus width overflow", PrintArea{Top: 0, Left: 60, Width: 50, Height: 10}, true},
		{"top plus height overflow", PrintArea{Top: 60, Left: 0, Width: 10, Height: 50}, true},
		{"zero width", PrintArea{Top: 0, Left: 0, Width: 0, Height: 10}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.area.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidPrintArea))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestNewCatalog_RejectsDuplicates(t *testing.T) {
	g := defaultGeometries[0]
	_, err := NewCatalog(g, g)
	require.Error(t, err)
}

func TestNewCatalog_RejectsBadPrintArea(t *testing.T) {
	g := defaultGeometries[0]
	g.PrintArea.Left = 90
	_, err := NewCatalog(g)
	require.ErrorIs(t, err, ErrInvalidPrintArea)
}

func TestCatalog_Get(t *testing.T) {
	c := DefaultCatalog()

	_, err := c.Get("kimono")
	require.ErrorIs(t, err, ErrUnknownType)

	g, err := c.Get(TypeHoodie)
	require.NoError(t, err)
	assert.Equal(t, TypeHoodie, g.Type)
}

func TestGeometry_Neckline(t *testing.T) {
	g, _ := DefaultCatalog().Lookup(TypeTShirt)
	assert.Equal(t, g.NecklineFront, g.Neckline(SideFront))
	assert.Equal(t, g.NecklineBack, g.Neckline(SideBack))
}

func TestParseSide(t *testing.T) {
	s, err := ParseSide("")
	require.NoError(t, err)
	assert.Equal(t, SideFront, s)

	s, err = ParseSide("back")
	require.NoError(t, err)
	assert.Equal(t, SideBack, s)

	_, err = ParseSide("left")
	require.Error(t, err)
}

func TestColor_Palette(t *testing.T) {
	assert.Equal(t, "#ffffff", ColorWhite.Palette().Fill)
	assert.Equal(t, ColorWhite.Palette(), Color("plaid").Palette())
	assert.False(t, Color("plaid").Valid())
	assert.Len(t, Colors(), 8)

	_, err := ParseColor("plaid")
	require.Error(t, err)
}

func TestParsePath(t *testing.T) {
	segs, err := ParsePath("M 10 20 L 30 40 Q 50 60 70 80 C 1 2 3 4 5 6 Z")
	require.NoError(t, err)
	require.Len(t, segs, 5)

	assert.Equal(t, OpMove, segs[0].Op)
	assert.Equal(t, []Point{{10, 20}}, segs[0].Points)
	assert.Equal(t, OpLine, segs[1].Op)
	assert.Equal(t, []Point{{30, 40}}, segs[1].Points)
	assert.Equal(t, OpQuad, segs[2].Op)
	assert.Equal(t, []Point{{50, 60}, {70, 80}}, segs[2].Points)
	assert.Equal(t, OpCubic, segs[3].Op)
	assert.Equal(t, []Point{{1, 2}, {3, 4}, {5, 6}}, segs[3].Points)
	assert.Equal(t, OpClose, segs[4].Op)
}

func TestParsePath_Relative(t *testing.T) {
	segs, err := ParsePath("m 10 10 l 5 0")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(segs), 2)
	assert.Equal(t, Point{15, 10}, segs[1].Points[0])
}
