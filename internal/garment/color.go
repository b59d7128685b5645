package garment

import "fmt"

type Color string

const (
	ColorWhite   Color = "white"
	ColorBlack   Color = "black"
	ColorNavy    Color = "navy"
	ColorHeather Color = "heather"
	ColorRed     Color = "red"
	ColorForest  Color = "forest"
	ColorRoyal   Color = "royal"
	ColorSand    Color = "sand"
)

// Palette is the set of hex colors used to paint one garment color.
type Palette struct {
	Fill     string `json:"fill"`
	Stroke   string `json:"stroke"`
	Neckline string `json:"neckline"`
}

var palettes = map[Color]Palette{
	ColorWhite:   {Fill: "#ffffff", Stroke: "#d4d4d4", Neckline: "#c8c8c8"},
	ColorBlack:   {Fill: "#1f1f1f", Stroke: "#0a0a0a", Neckline: "#3a3a3a"},
	ColorNavy:    {Fill: "#1e2a4a", Stroke: "#121a30", Neckline: "#34426a"},
	ColorHeather: {Fill: "#9ea3a8", Stroke: "#7d8287", Neckline: "#8a8f94"},
	ColorRed:     {Fill: "#c0392b", Stroke: "#8e2a20", Neckline: "#a83226"},
	ColorForest:  {Fill: "#1f4d3a", Stroke: "#143326", Neckline: "#2c6650"},
	ColorRoyal:   {Fill: "#2a4fa8", Stroke: "#1c377a", Neckline: "#3c63c2"},
	ColorSand:    {Fill: "#d8c7a3", Stroke: "#b3a27f", Neckline: "#c4b38f"},
}

var colorOrder = []Color{ColorWhite, ColorBlack, ColorNavy, ColorHeather, ColorRed, ColorForest, ColorRoyal, ColorSand}

func (c Color) Valid() bool {
	_, ok := palettes[c]
	return ok
}

// Palette returns the color mapping for c, falling back to white for unknown
// values so rendering never fails on a stale color name.
func (c Color) Palette() Palette {
	if p, ok := palettes[c]; ok {
		return p
	}
	return palettes[ColorWhite]
}

func ParseColor(s string) (Color, error) {
	c := Color(s)
	if !c.Valid() {
		return "", fmt.Errorf("invalid garment color %q", s)
	}
	return c, nil
}

// Colors lists the supported colors in display order.
func Colors() []Color {
	out := make([]Color, len(colorOrder))
	copy(out, colorOrder)
	return out
}
