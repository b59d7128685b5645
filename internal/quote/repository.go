package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkwell/studio/backend-go/internal/design"
	"github.com/inkwell/studio/backend-go/internal/garment"
)

// PgRepository stores quotes in the quote_requests table.
type PgRepository struct {
	pool *pgxpool.Pool
}

var _ Repository = (*PgRepository)(nil)

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) Create(ctx context.Context, q *Quote) error {
	front, err := json.Marshal(q.State.Front)
	if err != nil {
		return fmt.Errorf("marshal front decals: %w", err)
	}
	back, err := json.Marshal(q.State.Back)
	if err != nil {
		return fmt.Errorf("marshal back decals: %w", err)
	}
	sizes, err := json.Marshal(q.Sizes)
	if err != nil {
		return fmt.Errorf("marshal sizes: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO quote_requests
			(id, garment_type, garment_color, front_decals, back_decals, sizes,
			 contact_name, contact_email, notes, front_preview, back_preview, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		q.ID, string(q.State.Type), string(q.State.Color), front, back, sizes,
		q.Contact.Name, q.Contact.Email, q.Contact.Notes,
		q.Previews[garment.SideFront], q.Previews[garment.SideBack], q.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert quote: %w", err)
	}
	return nil
}

func (r *PgRepository) Get(ctx context.Context, id string) (*Quote, error) {
	var (
		q                  Quote
		garmentType, color string
		front, back, sizes []byte
		hasFront, hasBack  bool
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, garment_type, garment_color, front_decals, back_decals, sizes,
		       contact_name, contact_email, notes,
		       front_preview IS NOT NULL, back_preview IS NOT NULL, created_at
		FROM quote_requests WHERE id = $1`, id,
	).Scan(
		&q.ID, &garmentType, &color, &front, &back, &sizes,
		&q.Contact.Name, &q.Contact.Email, &q.Contact.Notes,
		&hasFront, &hasBack, &q.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get quote: %w", err)
	}

	q.State = &design.ProductState{Type: garment.Type(garmentType), Color: garment.Color(color)}
	if err := json.Unmarshal(front, &q.State.Front); err != nil {
		return nil, fmt.Errorf("decode front decals: %w", err)
	}
	if err := json.Unmarshal(back, &q.State.Back); err != nil {
		return nil, fmt.Errorf("decode back decals: %w", err)
	}
	if err := json.Unmarshal(sizes, &q.Sizes); err != nil {
		return nil, fmt.Errorf("decode sizes: %w", err)
	}
	if hasFront {
		q.PreviewSides = append(q.PreviewSides, garment.SideFront)
	}
	if hasBack {
		q.PreviewSides = append(q.PreviewSides, garment.SideBack)
	}
	return &q, nil
}

func (r *PgRepository) Preview(ctx context.Context, id string, side garment.Side) ([]byte, error) {
	column := "front_preview"
	if side == garment.SideBack {
		column = "back_preview"
	}

	var data []byte
	err := r.pool.QueryRow(ctx, "SELECT "+column+" FROM quote_requests WHERE id = $1", id).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get preview: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrNoPreview
	}
	return data, nil
}
