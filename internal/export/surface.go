package export

import (
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/disintegration/imaging"
	"github.com/gogpu/gg"
)

// MaxSurfaceDimension bounds the edge length of an export surface.
const MaxSurfaceDimension = 8192

// Surface is the 2D drawing target the compositor renders onto.
type Surface interface {
	Bounds() image.Rectangle
	// Fill covers the whole surface with c, replacing what was there.
	Fill(c color.Color)
	// DrawImage composites img source-over with its top-left corner at at.
	DrawImage(img image.Image, at image.Point)
	Encode(w io.Writer, f Format, quality int) error
	Close() error
}

// SurfaceFactory allocates a width x height surface.
type SurfaceFactory func(width, height int) (Surface, error)

// NewSurface allocates a software surface backed by gg.
func NewSurface(width, height int) (s Surface, err error) {
	if width <= 0 || height <= 0 || width > MaxSurfaceDimension || height > MaxSurfaceDimension {
		return nil, fmt.Errorf("%w: invalid size %dx%d", ErrSurface, width, height)
	}
	defer func() {
		if r := recover(); r != nil {
			s, err = nil, fmt.Errorf("%w: %v", ErrSurface, r)
		}
	}()
	return &ggSurface{dc: gg.NewContext(width, height), width: width, height: height}, nil
}

type ggSurface struct {
	dc     *gg.Context
	width  int
	height int
}

func (s *ggSurface) Bounds() image.Rectangle {
	return image.Rect(0, 0, s.width, s.height)
}

func (s *ggSurface) Fill(c color.Color) {
	s.dc.ClearWithColor(gg.FromColor(c))
}

func (s *ggSurface) DrawImage(img image.Image, at image.Point) {
	b := img.Bounds()
	if b.Empty() {
		return
	}
	// gg copies NRGBA pixels verbatim, so normalize before handing over.
	src := gg.ImageBufFromImage(imaging.Clone(img))
	s.dc.DrawImageEx(src, gg.DrawImageOptions{
		X:             float64(at.X),
		Y:             float64(at.Y),
		DstWidth:      float64(b.Dx()),
		DstHeight:     float64(b.Dy()),
		Interpolation: gg.InterpBilinear,
		Opacity:       1,
		BlendMode:     gg.BlendNormal,
	})
}

func (s *ggSurface) Encode(w io.Writer, f Format, quality int) error {
	switch f {
	case FormatJPEG:
		return s.dc.EncodeJPEG(w, quality)
	case FormatPNG:
		return s.dc.EncodePNG(w)
	}
	return fmt.Errorf("%w: %q", ErrInvalidFormat, f)
}

func (s *ggSurface) Close() error {
	return s.dc.Close()
}
