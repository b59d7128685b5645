// Package export rasterizes a design into a flat PNG or JPEG image that
// reproduces the live studio composition.
package export

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSurface means no drawable surface could be allocated. It is the one
	// fatal condition of an export.
	ErrSurface = errors.New("export surface unavailable")

	// ErrBaseLayer means the garment silhouette could not be rendered.
	ErrBaseLayer = errors.New("garment base layer failed")

	ErrUnknownGarment = errors.New("unknown garment type")
	ErrInvalidFormat  = errors.New("invalid export format")
)

type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpg"
)

// ParseFormat accepts png, jpg and jpeg in any case. Empty means png.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "png":
		return FormatPNG, nil
	case "jpg", "jpeg":
		return FormatJPEG, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidFormat, s)
}

func (f Format) ContentType() string {
	if f == FormatJPEG {
		return "image/jpeg"
	}
	return "image/png"
}

// Opaque reports whether the format has no alpha channel.
func (f Format) Opaque() bool {
	return f == FormatJPEG
}

// Result is one encoded export.
type Result struct {
	Data    []byte   `json:"data"`
	Format  Format   `json:"format"`
	Width   int      `json:"width"`
	Height  int      `json:"height"`
	Skipped []string `json:"skipped,omitempty"`
}

func (r *Result) ContentType() string {
	return r.Format.ContentType()
}

// DataURL encodes the image as a base64 data URL.
func (r *Result) DataURL() string {
	return "data:" + r.ContentType() + ";base64," + base64.StdEncoding.EncodeToString(r.Data)
}

func (r *Result) Filename(name string) string {
	if name == "" {
		name = "design"
	}
	return name + "." + string(r.Format)
}
