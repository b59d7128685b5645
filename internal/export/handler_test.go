package export

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell/studio/backend-go/internal/design"
	"github.com/inkwell/studio/backend-go/internal/garment"
	"github.com/inkwell/studio/backend-go/internal/typeid"
)

type stubExporter struct {
	res  *Result
	err  error
	side garment.Side
	fmt  Format
}

func (s *stubExporter) Export(_ context.Context, _ *design.ProductState, side garment.Side, format Format) (*Result, error) {
	s.side, s.fmt = side, format
	return s.res, s.err
}

const validBody = `{
	"state": {"type": "tshirt", "color": "navy", "front": [
		{"id": "decal_1", "sourceUrl": "/assets/a.png", "x": 50, "y": 50, "scale": 1, "width": 150, "height": 150}
	], "back": []},
	"side": "back",
	"format": "jpg"
}`

func postExport(h *Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/export/design", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ExportDesign(rec, req)
	return rec
}

func TestExportDesign_RawDownload(t *testing.T) {
	stub := &stubExporter{res: &Result{Data: []byte("jpegdata"), Format: FormatJPEG, Width: 1000, Height: 1000}}
	h := NewHandler(stub, garment.DefaultCatalog())

	body := strings.Replace(validBody, `"format": "jpg"`, `"format": "jpg", "name": "my shirt"`, 1)
	rec := postExport(h, body)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="my-shirt.jpg"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "jpegdata", rec.Body.String())
	assert.Equal(t, garment.SideBack, stub.side)
	assert.Equal(t, FormatJPEG, stub.fmt)
	assert.NoError(t, typeid.Validate(rec.Header().Get("X-Export-ID"), typeid.PrefixExport))
}

func TestExportDesign_DataURL(t *testing.T) {
	stub := &stubExporter{res: &Result{Data: []byte{1, 2, 3}, Format: FormatPNG, Width: 1000, Height: 1000}}
	h := NewHandler(stub, garment.DefaultCatalog())

	body := strings.Replace(validBody, `"format": "jpg"`, `"format": "png", "encoding": "dataurl"`, 1)
	rec := postExport(h, body)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		DataURL string   `json:"dataUrl"`
		Width   int      `json:"width"`
		Height  int      `json:"height"`
		Skipped []string `json:"skipped"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "data:image/png;base64,AQID", resp.DataURL)
	assert.Equal(t, 1000, resp.Width)
	assert.NotNil(t, resp.Skipped)
}

func TestExportDesign_FailureIsRetryable(t *testing.T) {
	h := NewHandler(&stubExporter{err: ErrSurface}, garment.DefaultCatalog())
	rec := postExport(h, validBody)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "export failed", resp["error"])
	assert.Equal(t, true, resp["retryable"])
}

func TestExportDesign_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "{"},
		{"missing state", `{"side": "front"}`},
		{"bad side", strings.Replace(validBody, `"side": "back"`, `"side": "left"`, 1)},
		{"bad format", strings.Replace(validBody, `"format": "jpg"`, `"format": "bmp"`, 1)},
		{"bad color", strings.Replace(validBody, `"color": "navy"`, `"color": "plaid"`, 1)},
		{"unknown garment", strings.Replace(validBody, `"type": "tshirt"`, `"type": "cape"`, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubExporter{err: errors.New("should not be called")}
			rec := postExport(NewHandler(stub, garment.DefaultCatalog()), tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, stub.side)
		})
	}
}
