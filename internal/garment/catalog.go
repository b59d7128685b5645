package garment

import (
	"errors"
	"fmt"
)

var ErrUnknownType = errors.New("unknown garment type")

// Catalog maps garment types to their geometry. It is never mutated after
// construction and is safe for concurrent readers.
type Catalog struct {
	byType map[Type]Geometry
	order  []Type
}

// NewCatalog validates every geometry and rejects duplicate types.
func NewCatalog(geoms ...Geometry) (*Catalog, error) {
	c := &Catalog{byType: make(map[Type]Geometry, len(geoms))}
	for _, g := range geoms {
		if err := g.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.byType[g.Type]; dup {
			return nil, fmt.Errorf("duplicate geometry for %s", g.Type)
		}
		c.byType[g.Type] = g
		c.order = append(c.order, g.Type)
	}
	return c, nil
}

func (c *Catalog) Lookup(t Type) (Geometry, bool) {
	g, ok := c.byType[t]
	return g, ok
}

// Get is Lookup with an ErrUnknownType error for missing types.
func (c *Catalog) Get(t Type) (Geometry, error) {
	g, ok := c.byType[t]
	if !ok {
		return Geometry{}, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	return g, nil
}

// Types returns the garment types in catalog order.
func (c *Catalog) Types() []Type {
	out := make([]Type, len(c.order))
	copy(out, c.order)
	return out
}

func (c *Catalog) All() []Geometry {
	out := make([]Geometry, 0, len(c.order))
	for _, t := range c.order {
		out = append(out, c.byType[t])
	}
	return out
}

var defaultGeometries = []Geometry{
	{
		Type:      TypeTShirt,
		Label:     "Classic T-Shirt",
		PrintArea: PrintArea{Top: 22, Left: 28, Width: 44, Height: 55},
		SilhouettePath: "M 200 60 C 220 85 280 85 300 60 L 370 75 L 460 150 L 415 215 L 375 185 " +
			"L 380 470 L 120 470 L 125 185 L 85 215 L 40 150 L 130 75 Z",
		NecklineFront: "M 200 60 C 220 95 280 95 300 60",
		NecklineBack:  "M 200 60 C 220 72 280 72 300 60",
	},
	{
		Type:      TypeHoodie,
		Label:     "Pullover Hoodie",
		PrintArea: PrintArea{Top: 28, Left: 30, Width: 40, Height: 40},
		SilhouettePath: "M 195 60 C 205 25 295 25 305 60 L 375 85 L 450 260 L 460 400 L 420 405 " +
			"L 380 250 L 385 475 L 115 475 L 120 250 L 80 405 L 40 400 L 50 260 L 125 85 Z",
		NecklineFront: "M 205 62 C 225 110 275 110 295 62",
		NecklineBack:  "M 200 58 C 220 40 280 40 300 58",
	},
	{
		Type:      TypeLongSleeve,
		Label:     "Long Sleeve Tee",
		PrintArea: PrintArea{Top: 22, Left: 30, Width: 40, Height: 52},
		SilhouettePath: "M 200 60 C 220 85 280 85 300 60 L 370 75 L 445 250 L 470 420 L 430 428 " +
			"L 385 260 L 380 470 L 120 470 L 115 260 L 70 428 L 30 420 L 55 250 L 130 75 Z",
		NecklineFront: "M 200 60 C 220 95 280 95 300 60",
		NecklineBack:  "M 200 60 C 220 72 280 72 300 60",
	},
	{
		Type:      TypePolo,
		Label:     "Pique Polo",
		PrintArea: PrintArea{Top: 26, Left: 30, Width: 40, Height: 48},
		SilhouettePath: "M 200 60 C 220 80 280 80 300 60 L 370 75 L 460 150 L 415 215 L 375 185 " +
			"L 380 470 L 120 470 L 125 185 L 85 215 L 40 150 L 130 75 Z",
		NecklineFront: "M 200 60 L 235 100 L 250 80 L 265 100 L 300 60 M 250 80 L 250 150",
		NecklineBack:  "M 200 60 C 220 70 280 70 300 60",
	},
	{
		Type:      TypeTank,
		Label:     "Tank Top",
		PrintArea: PrintArea{Top: 25, Left: 32, Width: 36, Height: 55},
		SilhouettePath: "M 185 50 C 205 120 295 120 315 50 L 345 50 C 345 120 360 170 385 190 " +
			"L 380 470 L 120 470 L 115 190 C 140 170 155 120 155 50 Z",
		NecklineFront: "M 185 50 C 205 120 295 120 315 50",
		NecklineBack:  "M 185 50 C 205 85 295 85 315 50",
	},
}

// DefaultCatalog returns the built-in garment catalog. It panics only if the
// built-in data is malformed.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(defaultGeometries...)
	if err != nil {
		panic(fmt.Sprintf("garment: invalid default catalog: %v", err))
	}
	return c
}
