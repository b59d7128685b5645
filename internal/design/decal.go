// Package design holds the editable state of the design studio: decals, the
// per-side layer stacks that order them, and the product they are placed on.
package design

import (
	"math"

	"github.com/inkwell/studio/backend-go/internal/typeid"
)

const (
	MinScale = 0.1
	MaxScale = 3.0

	// DefaultDecalWidth is the display width, in garment box units, of a
	// newly placed decal at scale 1.
	DefaultDecalWidth = 150
)

// Decal is one placed artwork instance. X and Y locate the artwork's center
// as a percentage of the print area, never of the garment or the viewport.
type Decal struct {
	ID          string  `json:"id"`
	SourceURL   string  `json:"sourceUrl"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Scale       float64 `json:"scale"`
	Rotation    float64 `json:"rotation"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	AspectRatio float64 `json:"aspectRatio"`
}

// NewDecal centers a new decal in the print area. The natural size only
// contributes its aspect ratio; the display width starts at DefaultDecalWidth.
func NewDecal(sourceURL string, naturalWidth, naturalHeight float64) Decal {
	aspect := 1.0
	if naturalWidth > 0 && naturalHeight > 0 {
		aspect = naturalWidth / naturalHeight
	}
	return Decal{
		ID:          typeid.NewDecalID(),
		SourceURL:   sourceURL,
		X:           50,
		Y:           50,
		Scale:       1,
		Rotation:    0,
		Width:       DefaultDecalWidth,
		Height:      DefaultDecalWidth / aspect,
		AspectRatio: aspect,
	}
}

// ClampScale bounds s to [MinScale, MaxScale]. NaN collapses to 1.
func ClampScale(s float64) float64 {
	if math.IsNaN(s) {
		return 1
	}
	return math.Max(MinScale, math.Min(MaxScale, s))
}

// NormalizeRotation maps degrees into [0, 360) for display. Stored rotations
// are left unrestricted.
func NormalizeRotation(deg float64) float64 {
	r := math.Mod(deg, 360)
	if r < 0 {
		r += 360
	}
	return r
}

// DisplayHeight derives the rendered height from width and aspect ratio.
func (d Decal) DisplayHeight() float64 {
	if d.AspectRatio > 0 {
		return d.Width / d.AspectRatio
	}
	return d.Height
}

// normalize applies the write-time invariants every stored decal must hold.
func (d Decal) normalize() Decal {
	if d.Scale == 0 {
		d.Scale = 1
	}
	d.Scale = ClampScale(d.Scale)
	if d.AspectRatio <= 0 && d.Width > 0 && d.Height > 0 {
		d.AspectRatio = d.Width / d.Height
	}
	return d
}

// Patch is a partial decal update; nil fields are left unchanged. The ID is
// never patchable.
type Patch struct {
	SourceURL   *string  `json:"sourceUrl,omitempty"`
	X           *float64 `json:"x,omitempty"`
	Y           *float64 `json:"y,omitempty"`
	Scale       *float64 `json:"scale,omitempty"`
	Rotation    *float64 `json:"rotation,omitempty"`
	Width       *float64 `json:"width,omitempty"`
	Height      *float64 `json:"height,omitempty"`
	AspectRatio *float64 `json:"aspectRatio,omitempty"`
}

func (p Patch) IsEmpty() bool {
	return p == Patch{}
}

// Apply merges p into d and re-establishes the decal invariants.
func (p Patch) Apply(d Decal) Decal {
	if p.SourceURL != nil {
		d.SourceURL = *p.SourceURL
	}
	if p.X != nil {
		d.X = *p.X
	}
	if p.Y != nil {
		d.Y = *p.Y
	}
	if p.Scale != nil {
		d.Scale = ClampScale(*p.Scale)
	}
	if p.Rotation != nil {
		d.Rotation = *p.Rotation
	}
	if p.Width != nil {
		d.Width = *p.Width
	}
	if p.Height != nil {
		d.Height = *p.Height
	}
	if p.AspectRatio != nil {
		d.AspectRatio = *p.AspectRatio
	}
	return d.normalize()
}

// Float is a convenience for building patches.
func Float(v float64) *float64 { return &v }
