package export

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/inkwell/studio/backend-go/internal/design"
	"github.com/inkwell/studio/backend-go/internal/garment"
)

// DefaultRenderTimeout bounds a shared render once it is detached from the
// callers that requested it.
const DefaultRenderTimeout = 2 * time.Minute

// Service fronts the compositor for concurrent callers. It snapshots the
// state at call time, collapses identical in-flight exports, and consults
// an optional cache.
type Service struct {
	compositor    *Compositor
	cache         Cache
	group         singleflight.Group
	renderTimeout time.Duration
}

// NewService returns a service; cache may be nil.
func NewService(compositor *Compositor, cache Cache) *Service {
	return &Service{compositor: compositor, cache: cache, renderTimeout: DefaultRenderTimeout}
}

func (s *Service) Export(ctx context.Context, state *design.ProductState, side garment.Side, format Format) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("export %s: %w", side, err)
	}
	snap := state.Snapshot()

	key, err := s.key(snap, side, format)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		res, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			slog.Warn("export cache read failed", "error", err)
		} else if ok {
			slog.Debug("export cache hit", "key", key)
			return res, nil
		}
	}

	// The render belongs to every caller waiting on key, so it runs on a
	// context none of them can cancel. Each caller still stops waiting when
	// its own ctx ends.
	ch := s.group.DoChan(key, func() (interface{}, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.renderTimeout)
		defer cancel()

		res, err := s.compositor.Export(rctx, snap, side, format)
		if err != nil {
			return nil, err
		}
		// Partial results are not cached; the missing artwork may load next time.
		if s.cache != nil && len(res.Skipped) == 0 {
			if err := s.cache.Set(rctx, key, res); err != nil {
				slog.Warn("export cache write failed", "error", err)
			}
		}
		return res, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("export %s: %w", side, ctx.Err())
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		if r.Shared {
			slog.Debug("export shared with concurrent caller", "key", key)
		}
		return r.Val.(*Result), nil
	}
}

// key hashes everything that influences the output pixels.
func (s *Service) key(state *design.ProductState, side garment.Side, format Format) (string, error) {
	opts := s.compositor.Options()
	r, g, b, a := opts.background().RGBA()
	payload := struct {
		State      *design.ProductState `json:"state"`
		Side       garment.Side         `json:"side"`
		Format     Format               `json:"format"`
		Size       int                  `json:"size"`
		Scale      int                  `json:"scale"`
		Quality    int                  `json:"quality"`
		Background [4]uint32            `json:"background"`
	}{state, side, format, opts.BaseSize, opts.ScaleFactor, opts.JPEGQuality, [4]uint32{r, g, b, a}}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("hash export request: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
