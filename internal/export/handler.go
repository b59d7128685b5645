package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/inkwell/studio/backend-go/internal/design"
	"github.com/inkwell/studio/backend-go/internal/garment"
	"github.com/inkwell/studio/backend-go/internal/typeid"
)

const maxRequestSize = 1 << 20 // 1MB of design JSON

// Exporter is the export service as seen by HTTP handlers.
type Exporter interface {
	Export(ctx context.Context, state *design.ProductState, side garment.Side, format Format) (*Result, error)
}

type Handler struct {
	exporter Exporter
	catalog  *garment.Catalog
}

func NewHandler(exporter Exporter, catalog *garment.Catalog) *Handler {
	return &Handler{exporter: exporter, catalog: catalog}
}

type exportRequest struct {
	State    *design.ProductState `json:"state"`
	Side     string               `json:"side"`
	Format   string               `json:"format"`
	Encoding string               `json:"encoding"`
	Name     string               `json:"name"`
}

type dataURLResponse struct {
	DataURL string   `json:"dataUrl"`
	Format  Format   `json:"format"`
	Width   int      `json:"width"`
	Height  int      `json:"height"`
	Skipped []string `json:"skipped"`
}

// ExportDesign handles POST /export/design. With encoding "dataurl" the image
// comes back inside JSON; otherwise the raw bytes are streamed as a download.
func (h *Handler) ExportDesign(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestSize)

	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.State == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "state is required"})
		return
	}

	state := design.NewProductState(req.State)
	if err := state.Validate(h.catalog); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	side, err := garment.ParseSide(req.Side)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	format, err := ParseFormat(req.Format)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	exportID := typeid.NewExportID()
	w.Header().Set("X-Export-ID", exportID)

	res, err := h.exporter.Export(r.Context(), state, side, format)
	if err != nil {
		slog.Error("export failed", "export_id", exportID, "side", side, "format", format, "error", err)
		writeFailure(w, err)
		return
	}

	if len(res.Skipped) > 0 {
		slog.Warn("export incomplete", "export_id", exportID, "skipped", res.Skipped)
	}

	if strings.EqualFold(req.Encoding, "dataurl") {
		skipped := res.Skipped
		if skipped == nil {
			skipped = []string{}
		}
		writeJSON(w, http.StatusOK, dataURLResponse{
			DataURL: res.DataURL(),
			Format:  res.Format,
			Width:   res.Width,
			Height:  res.Height,
			Skipped: skipped,
		})
		return
	}

	w.Header().Set("Content-Type", res.ContentType())
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Data)))
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, res.Filename(sanitizeName(req.Name))))
	if len(res.Skipped) > 0 {
		w.Header().Set("X-Skipped-Decals", strings.Join(res.Skipped, ","))
	}
	w.WriteHeader(http.StatusOK)
	w.Write(res.Data)
}

// writeFailure reports an export failure once, with a retry hint. Request
// errors that retrying cannot fix are flagged as such.
func writeFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnknownGarment), errors.Is(err, ErrInvalidFormat):
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "export failed", "retryable": false})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": "export failed", "retryable": true})
	}
}

// sanitizeName keeps download names to a safe character set.
func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, name)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
