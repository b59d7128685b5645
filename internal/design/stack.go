package design

import "encoding/json"

// LayerStack is the ordered decal collection of one garment side. Array order
// is the z-order: later entries draw on top of earlier ones. No operation
// reorders decals implicitly.
type LayerStack struct {
	decals []Decal
}

func NewLayerStack(decals ...Decal) LayerStack {
	var s LayerStack
	for _, d := range decals {
		s.decals = append(s.decals, d.normalize())
	}
	return s
}

// Add appends d on top of the stack and returns its id.
func (s *LayerStack) Add(d Decal) string {
	s.decals = append(s.decals, d.normalize())
	return d.ID
}

// Update merges p into the decal with the given id. It reports whether a
// decal was found; a missing id is a no-op.
func (s *LayerStack) Update(id string, p Patch) bool {
	i := s.Index(id)
	if i < 0 {
		return false
	}
	s.decals[i] = p.Apply(s.decals[i])
	return true
}

// Remove deletes the decal with the given id, preserving the relative order
// of the rest.
func (s *LayerStack) Remove(id string) bool {
	i := s.Index(id)
	if i < 0 {
		return false
	}
	s.decals = append(s.decals[:i:i], s.decals[i+1:]...)
	return true
}

// MoveUp swaps the decal with its next neighbor, bringing it one step toward
// the top. It is a no-op for the topmost decal or an unknown id.
func (s *LayerStack) MoveUp(id string) bool {
	i := s.Index(id)
	if i < 0 || i == len(s.decals)-1 {
		return false
	}
	s.decals[i], s.decals[i+1] = s.decals[i+1], s.decals[i]
	return true
}

// MoveDown swaps the decal with its previous neighbor. It is a no-op for the
// bottom decal or an unknown id.
func (s *LayerStack) MoveDown(id string) bool {
	i := s.Index(id)
	if i <= 0 {
		return false
	}
	s.decals[i], s.decals[i-1] = s.decals[i-1], s.decals[i]
	return true
}

func (s *LayerStack) Clear() {
	s.decals = nil
}

func (s *LayerStack) Index(id string) int {
	for i := range s.decals {
		if s.decals[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *LayerStack) Find(id string) (Decal, bool) {
	if i := s.Index(id); i >= 0 {
		return s.decals[i], true
	}
	return Decal{}, false
}

func (s *LayerStack) Len() int {
	return len(s.decals)
}

// Decals returns a copy of the stack, bottom first.
func (s *LayerStack) Decals() []Decal {
	out := make([]Decal, len(s.decals))
	copy(out, s.decals)
	return out
}

// IDs returns the decal ids bottom first.
func (s *LayerStack) IDs() []string {
	out := make([]string, len(s.decals))
	for i, d := range s.decals {
		out[i] = d.ID
	}
	return out
}

func (s LayerStack) clone() LayerStack {
	if s.decals == nil {
		return LayerStack{}
	}
	return LayerStack{decals: s.Decals()}
}

func (s LayerStack) MarshalJSON() ([]byte, error) {
	if s.decals == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.decals)
}

func (s *LayerStack) UnmarshalJSON(data []byte) error {
	var decals []Decal
	if err := json.Unmarshal(data, &decals); err != nil {
		return err
	}
	*s = NewLayerStack(decals...)
	return nil
}
