// Package garment holds the static per-garment geometry the design studio is
// built on: silhouette outlines, neckline variants, print areas and the color
// palette shared by the live renderer and the export compositor.
package garment

import (
	"errors"
	"fmt"
)

// BoxSize is the edge length of the square logical box that all path data is
// authored in.
const BoxSize = 500

type Type string

const (
	TypeTShirt     Type = "tshirt"
	TypeHoodie     Type = "hoodie"
	TypeLongSleeve Type = "longsleeve"
	TypePolo       Type = "polo"
	TypeTank       Type = "tank"
)

type Side string

const (
	SideFront Side = "front"
	SideBack  Side = "back"
)

// Valid reports whether s is front or back.
func (s Side) Valid() bool {
	return s == SideFront || s == SideBack
}

// ParseSide maps an empty string to the front side.
func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case "", SideFront:
		return SideFront, nil
	case SideBack:
		return SideBack, nil
	}
	return "", fmt.Errorf("invalid side %q", s)
}

var ErrInvalidPrintArea = errors.New("invalid print area")

// PrintArea is the decal-confining rectangle, in percent of the garment box.
type PrintArea struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (p PrintArea) Validate() error {
	for name, v := range map[string]float64{"top": p.Top, "left": p.Left, "width": p.Width, "height": p.Height} {
		if v < 0 || v > 100 {
			return fmt.Errorf("%w: %s=%g outside [0,100]", ErrInvalidPrintArea, name, v)
		}
	}
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("%w: empty area", ErrInvalidPrintArea)
	}
	if p.Left+p.Width > 100 {
		return fmt.Errorf("%w: left+width=%g exceeds 100", ErrInvalidPrintArea, p.Left+p.Width)
	}
	if p.Top+p.Height > 100 {
		return fmt.Errorf("%w: top+height=%g exceeds 100", ErrInvalidPrintArea, p.Top+p.Height)
	}
	return nil
}

// Pixels applies the percentages to a box of the given size and returns the
// origin and extent of the print area in that box's units.
func (p PrintArea) Pixels(boxW, boxH float64) (x, y, w, h float64) {
	return p.Left / 100 * boxW, p.Top / 100 * boxH, p.Width / 100 * boxW, p.Height / 100 * boxH
}

// Geometry is the immutable configuration of one garment type.
type Geometry struct {
	Type           Type      `json:"type"`
	Label          string    `json:"label"`
	PrintArea      PrintArea `json:"printArea"`
	SilhouettePath string    `json:"silhouettePath"`
	NecklineFront  string    `json:"necklineFront"`
	NecklineBack   string    `json:"necklineBack"`
}

// Neckline returns the neckline path for the given side.
func (g Geometry) Neckline(side Side) string {
	if side == SideBack {
		return g.NecklineBack
	}
	return g.NecklineFront
}

func (g Geometry) Validate() error {
	if g.Type == "" {
		return errors.New("geometry type is required")
	}
	if g.SilhouettePath == "" {
		return fmt.Errorf("geometry %s: silhouette path is required", g.Type)
	}
	if err := g.PrintArea.Validate(); err != nil {
		return fmt.Errorf("geometry %s: %w", g.Type, err)
	}
	for _, d := range []string{g.SilhouettePath, g.NecklineFront, g.NecklineBack} {
		if d == "" {
			continue
		}
		if _, err := ParsePath(d); err != nil {
			return fmt.Errorf("geometry %s: %w", g.Type, err)
		}
	}
	return nil
}
