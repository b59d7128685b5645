// Package quote hands a finished design over for an order quote. A request
// carries the product state, the wanted sizes and a contact; the design is
// stored together with rendered previews. Pricing happens elsewhere.
package quote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/inkwell/studio/backend-go/internal/design"
	"github.com/inkwell/studio/backend-go/internal/export"
	"github.com/inkwell/studio/backend-go/internal/garment"
	"github.com/inkwell/studio/backend-go/internal/typeid"
)

var (
	ErrNotFound       = errors.New("quote not found")
	ErrInvalidRequest = errors.New("invalid quote request")
	ErrNoPreview      = errors.New("preview not available")
)

// Sizes is the set of garment sizes a quote may ask for, in display order.
var Sizes = []string{"XS", "S", "M", "L", "XL", "2XL", "3XL"}

type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Notes string `json:"notes,omitempty"`
}

type Request struct {
	State   *design.ProductState `json:"state"`
	Sizes   map[string]int       `json:"sizes"`
	Contact Contact              `json:"contact"`
}

// Quote is a stored request. Preview images are kept out of the JSON form;
// PreviewSides lists which ones exist.
type Quote struct {
	ID           string                  `json:"id"`
	State        *design.ProductState    `json:"state"`
	Sizes        map[string]int          `json:"sizes"`
	Contact      Contact                 `json:"contact"`
	PreviewSides []garment.Side          `json:"previews"`
	CreatedAt    time.Time               `json:"createdAt"`
	Previews     map[garment.Side][]byte `json:"-"`
}

// TotalQuantity sums all requested sizes.
func (q *Quote) TotalQuantity() int {
	n := 0
	for _, v := range q.Sizes {
		n += v
	}
	return n
}

type Repository interface {
	Create(ctx context.Context, q *Quote) error
	Get(ctx context.Context, id string) (*Quote, error)
	Preview(ctx context.Context, id string, side garment.Side) ([]byte, error)
}

type Service struct {
	repo     Repository
	exporter export.Exporter
	catalog  *garment.Catalog
}

func NewService(repo Repository, exporter export.Exporter, catalog *garment.Catalog) *Service {
	if catalog == nil {
		catalog = garment.DefaultCatalog()
	}
	return &Service{repo: repo, exporter: exporter, catalog: catalog}
}

// Submit validates req, renders a PNG preview of every side that carries
// decals, and stores the quote.
func (s *Service) Submit(ctx context.Context, req Request) (*Quote, error) {
	if err := s.validate(&req); err != nil {
		return nil, err
	}

	state := design.NewProductState(req.State)
	q := &Quote{
		ID:        typeid.NewQuoteID(),
		State:     state,
		Sizes:     req.Sizes,
		Contact:   req.Contact,
		CreatedAt: time.Now().UTC(),
		Previews:  make(map[garment.Side][]byte),
	}

	for _, side := range []garment.Side{garment.SideFront, garment.SideBack} {
		if state.Layer(side).Len() == 0 {
			continue
		}
		res, err := s.exporter.Export(ctx, state, side, export.FormatPNG)
		if err != nil {
			return nil, fmt.Errorf("render %s preview: %w", side, err)
		}
		if len(res.Skipped) > 0 {
			slog.Warn("quote preview missing artwork", "quote", q.ID, "side", side, "skipped", res.Skipped)
		}
		q.Previews[side] = res.Data
		q.PreviewSides = append(q.PreviewSides, side)
	}

	if err := s.repo.Create(ctx, q); err != nil {
		return nil, fmt.Errorf("store quote: %w", err)
	}
	slog.Info("quote submitted", "quote", q.ID, "type", state.Type, "quantity", q.TotalQuantity(), "previews", len(q.PreviewSides))
	return q, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Quote, error) {
	if err := typeid.Validate(id, typeid.PrefixQuote); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Preview(ctx context.Context, id string, side garment.Side) ([]byte, error) {
	if err := typeid.Validate(id, typeid.PrefixQuote); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	if !side.Valid() {
		return nil, fmt.Errorf("%w: invalid side %q", ErrInvalidRequest, side)
	}
	return s.repo.Preview(ctx, id, side)
}

func (s *Service) validate(req *Request) error {
	if req.State == nil {
		return fmt.Errorf("%w: state is required", ErrInvalidRequest)
	}
	if err := design.NewProductState(req.State).Validate(s.catalog); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if req.State.Front.Len() == 0 && req.State.Back.Len() == 0 {
		return fmt.Errorf("%w: design has no decals", ErrInvalidRequest)
	}

	total := 0
	for size, qty := range req.Sizes {
		if !validSize(size) {
			return fmt.Errorf("%w: unknown size %q", ErrInvalidRequest, size)
		}
		if qty < 0 {
			return fmt.Errorf("%w: negative quantity for %s", ErrInvalidRequest, size)
		}
		total += qty
	}
	if total == 0 {
		return fmt.Errorf("%w: at least one quantity must be positive", ErrInvalidRequest)
	}

	req.Contact.Name = strings.TrimSpace(req.Contact.Name)
	if req.Contact.Name == "" {
		return fmt.Errorf("%w: contact name is required", ErrInvalidRequest)
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(req.Contact.Email))
	if err != nil {
		return fmt.Errorf("%w: invalid contact email", ErrInvalidRequest)
	}
	req.Contact.Email = addr.Address
	return nil
}

func validSize(size string) bool {
	for _, s := range Sizes {
		if s == size {
			return true
		}
	}
	return false
}
