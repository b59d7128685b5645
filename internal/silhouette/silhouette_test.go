package silhouette

import (
	"image/color"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell/studio/backend-go/internal/garment"
)

func tshirt(t *testing.T) garment.Geometry {
	t.Helper()
	g, ok := garment.DefaultCatalog().Lookup(garment.TypeTShirt)
	require.True(t, ok)
	return g
}

func TestMarkup(t *testing.T) {
	g := tshirt(t)
	m := string(Markup(g, garment.ColorNavy, garment.SideBack, 1000))

	assert.True(t, strings.HasPrefix(m, "<svg"))
	assert.Contains(t, m, `viewBox="0 0 500 500"`)
	assert.Contains(t, m, `width="1000"`)
	assert.Contains(t, m, garment.ColorNavy.Palette().Fill)
	assert.Contains(t, m, g.NecklineBack)
	assert.NotContains(t, m, g.NecklineFront)
}

func TestRender_FillsBodyAndLeavesCornersTransparent(t *testing.T) {
	img, err := Render(tshirt(t), garment.ColorBlack, garment.SideFront, 500, 500)
	require.NoError(t, err)
	require.Equal(t, 500, img.Bounds().Dx())

	// Print area center sits well inside the body.
	r, g, b, a := img.At(250, 300).RGBA()
	assert.Equal(t, uint32(0xffff), a)
	assert.InDelta(t, 0x1f, r>>8, 2)
	assert.InDelta(t, 0x1f, g>>8, 2)
	assert.InDelta(t, 0x1f, b>>8, 2)

	assert.Equal(t, color.RGBA{}, img.RGBAAt(2, 2))
	assert.Equal(t, color.RGBA{}, img.RGBAAt(497, 497))
}

func TestRender_ScalesToTarget(t *testing.T) {
	img, err := Render(tshirt(t), garment.ColorWhite, garment.SideFront, 1000, 1000)
	require.NoError(t, err)

	_, _, _, a := img.At(500, 600).RGBA()
	assert.Equal(t, uint32(0xffff), a)
	_, _, _, a = img.At(20, 980).RGBA()
	assert.Zero(t, a)
}

func TestRasterize_InvalidSize(t *testing.T) {
	_, err := Rasterize(Markup(tshirt(t), garment.ColorWhite, garment.SideFront, 10), 0, 10)
	require.ErrorIs(t, err, ErrRasterize)
}
