package design

import (
	"errors"
	"fmt"

	"github.com/inkwell/studio/backend-go/internal/garment"
)

var ErrInvalidState = errors.New("invalid product state")

// ProductState is the aggregate a designer edits: two independently ordered
// layer stacks plus the garment color and type.
type ProductState struct {
	Front LayerStack    `json:"front"`
	Back  LayerStack    `json:"back"`
	Color garment.Color `json:"color"`
	Type  garment.Type  `json:"type"`
}

// NewProductState returns a white t-shirt with empty stacks, or a deep copy
// of initial when one is supplied. Missing color or type fall back to the
// defaults.
func NewProductState(initial *ProductState) *ProductState {
	if initial == nil {
		return &ProductState{Color: garment.ColorWhite, Type: garment.TypeTShirt}
	}
	s := initial.Snapshot()
	if s.Color == "" {
		s.Color = garment.ColorWhite
	}
	if s.Type == "" {
		s.Type = garment.TypeTShirt
	}
	return s
}

// Layer returns the mutable stack for side. Unknown sides resolve to front.
func (s *ProductState) Layer(side garment.Side) *LayerStack {
	if side == garment.SideBack {
		return &s.Back
	}
	return &s.Front
}

func (s *ProductState) Add(side garment.Side, d Decal) string {
	return s.Layer(side).Add(d)
}

func (s *ProductState) Update(side garment.Side, id string, p Patch) bool {
	return s.Layer(side).Update(id, p)
}

// Remove deletes the decal from side. Clearing a matching selection is the
// caller's job.
func (s *ProductState) Remove(side garment.Side, id string) bool {
	return s.Layer(side).Remove(id)
}

func (s *ProductState) MoveUp(side garment.Side, id string) bool {
	return s.Layer(side).MoveUp(id)
}

func (s *ProductState) MoveDown(side garment.Side, id string) bool {
	return s.Layer(side).MoveDown(id)
}

func (s *ProductState) Clear(side garment.Side) {
	s.Layer(side).Clear()
}

// Snapshot returns a deep copy that shares nothing with s.
func (s *ProductState) Snapshot() *ProductState {
	return &ProductState{
		Front: s.Front.clone(),
		Back:  s.Back.clone(),
		Color: s.Color,
		Type:  s.Type,
	}
}

// Validate checks the color and type against the catalog and that every
// decal has an id, a source and a usable size.
func (s *ProductState) Validate(catalog *garment.Catalog) error {
	if !s.Color.Valid() {
		return fmt.Errorf("%w: unknown color %q", ErrInvalidState, s.Color)
	}
	if _, ok := catalog.Lookup(s.Type); !ok {
		return fmt.Errorf("%w: unknown garment type %q", ErrInvalidState, s.Type)
	}
	for _, side := range []garment.Side{garment.SideFront, garment.SideBack} {
		seen := make(map[string]bool)
		for _, d := range s.Layer(side).decals {
			if d.ID == "" {
				return fmt.Errorf("%w: %s decal without id", ErrInvalidState, side)
			}
			if seen[d.ID] {
				return fmt.Errorf("%w: duplicate decal %s on %s", ErrInvalidState, d.ID, side)
			}
			seen[d.ID] = true
			if d.SourceURL == "" {
				return fmt.Errorf("%w: decal %s has no source", ErrInvalidState, d.ID)
			}
			if d.Width <= 0 {
				return fmt.Errorf("%w: decal %s has width %g", ErrInvalidState, d.ID, d.Width)
			}
		}
	}
	return nil
}
