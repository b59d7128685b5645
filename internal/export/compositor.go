package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"github.com/inkwell/studio/backend-go/internal/config"
	"github.com/inkwell/studio/backend-go/internal/design"
	"github.com/inkwell/studio/backend-go/internal/garment"
	"github.com/inkwell/studio/backend-go/internal/silhouette"
)

// Loader fetches and decodes one artwork image.
type Loader interface {
	Load(ctx context.Context, url string) (image.Image, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, url string) (image.Image, error)

func (f LoaderFunc) Load(ctx context.Context, url string) (image.Image, error) {
	return f(ctx, url)
}

// Options size and style the output. The surface is BaseSize*ScaleFactor
// pixels square.
type Options struct {
	BaseSize       int
	ScaleFactor    int
	ImageTimeout   time.Duration
	JPEGQuality    int
	JPEGBackground color.Color
}

func DefaultOptions() Options {
	return Options{
		BaseSize:       garment.BoxSize,
		ScaleFactor:    2,
		ImageTimeout:   10 * time.Second,
		JPEGQuality:    92,
		JPEGBackground: color.White,
	}
}

// OptionsFromConfig validates the export settings of cfg on top of
// DefaultOptions. An empty JPEG background keeps the default white.
func OptionsFromConfig(cfg config.Export) (Options, error) {
	opts := DefaultOptions()
	if cfg.JPEGBackground != "" {
		bg, err := ParseHexColor(cfg.JPEGBackground)
		if err != nil {
			return Options{}, fmt.Errorf("jpeg background: %w", err)
		}
		opts.JPEGBackground = bg
	}
	if cfg.BaseSize <= 0 || cfg.ScaleFactor <= 0 {
		return Options{}, fmt.Errorf("export size %d x %d must be positive", cfg.BaseSize, cfg.ScaleFactor)
	}
	if cfg.JPEGQuality < 1 || cfg.JPEGQuality > 100 {
		return Options{}, fmt.Errorf("jpeg quality %d outside 1-100", cfg.JPEGQuality)
	}
	opts.BaseSize = cfg.BaseSize
	opts.ScaleFactor = cfg.ScaleFactor
	opts.ImageTimeout = cfg.ImageTimeout
	opts.JPEGQuality = cfg.JPEGQuality
	return opts, nil
}

// Size is the output edge length in pixels.
func (o Options) Size() int {
	return o.BaseSize * o.ScaleFactor
}

func (o Options) background() color.Color {
	if o.JPEGBackground == nil {
		return color.White
	}
	return o.JPEGBackground
}

// ParseHexColor parses #rgb or #rrggbb into an opaque color.
func ParseHexColor(s string) (color.NRGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

// Compositor renders one side of a ProductState into an encoded image. It
// never mutates the state it is given.
type Compositor struct {
	catalog    *garment.Catalog
	loader     Loader
	newSurface SurfaceFactory
	opts       Options
}

type Option func(*Compositor)

// WithSurfaceFactory replaces the gg-backed surface.
func WithSurfaceFactory(f SurfaceFactory) Option {
	return func(c *Compositor) { c.newSurface = f }
}

func NewCompositor(catalog *garment.Catalog, loader Loader, opts Options, options ...Option) *Compositor {
	c := &Compositor{
		catalog:    catalog,
		loader:     loader,
		newSurface: NewSurface,
		opts:       opts,
	}
	for _, o := range options {
		o(c)
	}
	return c
}

func (c *Compositor) Options() Options {
	return c.opts
}

// Export composites side of state. Decals whose artwork cannot be loaded in
// time are skipped and listed in Result.Skipped; only a missing surface, a
// failed garment layer, or a cancelled ctx fail the whole export.
func (c *Compositor) Export(ctx context.Context, state *design.ProductState, side garment.Side, format Format) (*Result, error) {
	if format != FormatPNG && format != FormatJPEG {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, format)
	}
	g, ok := c.catalog.Lookup(state.Type)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGarment, state.Type)
	}

	size := c.opts.Size()
	surface, err := c.newSurface(size, size)
	if err != nil {
		if !errors.Is(err, ErrSurface) {
			err = fmt.Errorf("%w: %w", ErrSurface, err)
		}
		return nil, err
	}
	defer surface.Close()

	if format.Opaque() {
		surface.Fill(c.opts.background())
	}

	base, err := silhouette.Render(g, state.Color, side, size, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBaseLayer, err)
	}
	surface.DrawImage(base, image.Point{})

	px, py, pw, ph := g.PrintArea.Pixels(float64(size), float64(size))
	clip := image.Rect(
		int(math.Round(px)), int(math.Round(py)),
		int(math.Round(px+pw)), int(math.Round(py+ph)),
	)

	var skipped []string
	for _, d := range state.Layer(side).Decals() {
		img, err := c.load(ctx, d.SourceURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("export %s: %w", side, ctx.Err())
			}
			slog.Warn("skipping decal", "decal", d.ID, "url", d.SourceURL, "error", err)
			skipped = append(skipped, d.ID)
			continue
		}

		cx := px + d.X/100*pw
		cy := py + d.Y/100*ph
		placed, at, ok := c.placeDecal(img, d, cx, cy, clip)
		if !ok {
			continue
		}
		surface.DrawImage(placed, at)
	}

	var buf bytes.Buffer
	if err := surface.Encode(&buf, format, c.opts.JPEGQuality); err != nil {
		return nil, fmt.Errorf("encode %s: %w", format, err)
	}

	slog.Info("export complete", "type", state.Type, "side", side, "format", format, "bytes", buf.Len(), "skipped", len(skipped))
	return &Result{
		Data:    buf.Bytes(),
		Format:  format,
		Width:   size,
		Height:  size,
		Skipped: skipped,
	}, nil
}

// load fetches one image under the per-image timeout. Loads are awaited one
// at a time so draw order always equals stack order.
func (c *Compositor) load(ctx context.Context, url string) (image.Image, error) {
	if url == "" {
		return nil, errors.New("decal has no source")
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("load %s: %w", url, err)
	}
	if c.opts.ImageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.ImageTimeout)
		defer cancel()
	}

	type loaded struct {
		img image.Image
		err error
	}
	done := make(chan loaded, 1)
	go func() {
		img, err := c.loader.Load(ctx, url)
		done <- loaded{img, err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load %s: %w", url, ctx.Err())
	case l := <-done:
		if l.err != nil {
			return nil, fmt.Errorf("load %s: %w", url, l.err)
		}
		if l.img == nil || l.img.Bounds().Empty() {
			return nil, fmt.Errorf("load %s: empty image", url)
		}
		return l.img, nil
	}
}

// placeDecal sizes, rotates and clips one artwork centered on (cx, cy). The
// height comes from the loaded image so stale aspect metadata cannot skew
// the artwork.
func (c *Compositor) placeDecal(img image.Image, d design.Decal, cx, cy float64, clip image.Rectangle) (image.Image, image.Point, bool) {
	b := img.Bounds()
	w := d.Width * d.Scale * float64(c.opts.ScaleFactor)
	h := w * float64(b.Dy()) / float64(b.Dx())
	tw, th := int(math.Round(w)), int(math.Round(h))
	if tw < 1 || th < 1 {
		return nil, image.Point{}, false
	}

	var out image.Image = imaging.Resize(img, tw, th, imaging.Lanczos)
	if r := math.Mod(d.Rotation, 360); r != 0 {
		// imaging turns counter-clockwise; decal rotation is clockwise.
		out = imaging.Rotate(out, -d.Rotation, color.Transparent)
	}

	ob := out.Bounds()
	at := image.Pt(
		int(math.Round(cx-float64(ob.Dx())/2)),
		int(math.Round(cy-float64(ob.Dy())/2)),
	)
	dst := image.Rectangle{Min: at, Max: at.Add(ob.Size())}
	visible := dst.Intersect(clip)
	if visible.Empty() {
		return nil, image.Point{}, false
	}
	if visible != dst {
		out = imaging.Crop(out, visible.Sub(at))
	}
	return out, visible.Min, true
}
