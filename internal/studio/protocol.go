// Package studio drives a live design session over a websocket. Each
// connection owns one engine; the browser forwards edits and pointer input
// and receives draw commands to paint.
package studio

import (
	"encoding/json"

	"github.com/inkwell/studio/backend-go/internal/design"
	"github.com/inkwell/studio/backend-go/internal/engine"
	"github.com/inkwell/studio/backend-go/internal/garment"
)

type Message struct {
	Type    string          `json:"type"`
	Seq     int64           `json:"seq,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

const (
	// Client → server
	TypeStateLoad     = "state.load"
	TypeDecalAdd      = "decal.add"
	TypeDecalUpdate   = "decal.update"
	TypeDecalRemove   = "decal.remove"
	TypeDecalMoveUp   = "decal.moveUp"
	TypeDecalMoveDown = "decal.moveDown"
	TypeSideClear     = "side.clear"
	TypeSideSet       = "side.set"
	TypeGarmentColor  = "garment.color"
	TypeGarmentType   = "garment.type"
	TypeLayoutSet     = "layout.set"
	TypeSelect        = "select"
	TypePointerDown   = "pointer.down"
	TypePointerMove   = "pointer.move"
	TypePointerUp     = "pointer.up"
	TypePointerCancel = "pointer.cancel"
	TypeExportRequest = "export.request"

	// Server → client
	TypeWelcome      = "welcome"
	TypeRender       = "render"
	TypeState        = "state"
	TypeExportResult = "export.result"
	TypeExportFailed = "export.failed"
	TypeError        = "error"
)

type StateLoadPayload struct {
	State *design.ProductState `json:"state"`
}

// DecalAddPayload places new artwork on the active side. The natural size
// only seeds the aspect ratio.
type DecalAddPayload struct {
	SourceURL     string  `json:"sourceUrl"`
	NaturalWidth  float64 `json:"naturalWidth"`
	NaturalHeight float64 `json:"naturalHeight"`
}

type DecalUpdatePayload struct {
	ID    string       `json:"id"`
	Patch design.Patch `json:"patch"`
}

type DecalIDPayload struct {
	ID string `json:"id"`
}

type SideSetPayload struct {
	Side garment.Side `json:"side"`
}

type ColorPayload struct {
	Color garment.Color `json:"color"`
}

type TypePayload struct {
	Type garment.Type `json:"type"`
}

type ExportRequestPayload struct {
	RequestID string       `json:"requestId"`
	Side      garment.Side `json:"side"`
	Format    string       `json:"format"`
}

type WelcomePayload struct {
	SessionID string          `json:"sessionId"`
	ClientID  string          `json:"clientId"`
	Garments  []garment.Type  `json:"garments"`
	Colors    []garment.Color `json:"colors"`
}

// RenderPayload is a full frame. Pointer fields are set only in replies to
// pointer input.
type RenderPayload struct {
	Commands       []engine.DrawCommand `json:"commands"`
	Side           garment.Side         `json:"side"`
	Selection      string               `json:"selection,omitempty"`
	Inspector      *engine.Inspector    `json:"inspector,omitempty"`
	Action         engine.PointerAction `json:"action,omitempty"`
	PreventDefault bool                 `json:"preventDefault,omitempty"`
}

type StatePayload struct {
	State *design.ProductState `json:"state"`
}

type ExportResultPayload struct {
	RequestID string   `json:"requestId"`
	DataURL   string   `json:"dataUrl"`
	Width     int      `json:"width"`
	Height    int      `json:"height"`
	Skipped   []string `json:"skipped"`
}

type ExportFailedPayload struct {
	RequestID string `json:"requestId"`
	Error     string `json:"error"`
	Retryable bool   `json:"retryable"`
}

type ErrorPayload struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
}
