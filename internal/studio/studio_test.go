package studio

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell/studio/backend-go/internal/design"
	"github.com/inkwell/studio/backend-go/internal/engine"
	"github.com/inkwell/studio/backend-go/internal/export"
	"github.com/inkwell/studio/backend-go/internal/garment"
)

type stubExporter struct {
	res   *export.Result
	err   error
	calls chan *design.ProductState
}

func (s *stubExporter) Export(_ context.Context, state *design.ProductState, _ garment.Side, _ export.Format) (*export.Result, error) {
	if s.calls != nil {
		s.calls <- state
	}
	return s.res, s.err
}

func testSession(exporter export.Exporter) *Session {
	hub := NewHub(nil, exporter, nil)
	return newSession(hub, nil, "sess_test", "client-1")
}

func send(t *testing.T, s *Session, msgType string, payload interface{}) {
	t.Helper()
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		raw = data
	}
	s.handle(context.Background(), &Message{Type: msgType, Payload: raw})
}

// drain returns every queued outbound message.
func drain(t *testing.T, s *Session) []Message {
	t.Helper()
	var out []Message
	for {
		select {
		case data := <-s.send:
			var m Message
			require.NoError(t, json.Unmarshal(data, &m))
			out = append(out, m)
		default:
			return out
		}
	}
}

func next(t *testing.T, s *Session) Message {
	t.Helper()
	select {
	case data := <-s.send:
		var m Message
		require.NoError(t, json.Unmarshal(data, &m))
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("no message")
		return Message{}
	}
}

func types(msgs []Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Type
	}
	return out
}

func lastState(t *testing.T, msgs []Message) *design.ProductState {
	t.Helper()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Type == TypeState {
			var p StatePayload
			require.NoError(t, json.Unmarshal(msgs[i].Payload, &p))
			return p.State
		}
	}
	t.Fatal("no state message")
	return nil
}

func lastRender(t *testing.T, msgs []Message) RenderPayload {
	t.Helper()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Type == TypeRender {
			var p RenderPayload
			require.NoError(t, json.Unmarshal(msgs[i].Payload, &p))
			return p
		}
	}
	t.Fatal("no render message")
	return RenderPayload{}
}

func TestSession_AddDecalRendersAndSelects(t *testing.T) {
	s := testSession(nil)
	send(t, s, TypeDecalAdd, DecalAddPayload{SourceURL: "/assets/a.png", NaturalWidth: 200, NaturalHeight: 100})

	msgs := drain(t, s)
	assert.Equal(t, []string{TypeRender, TypeState}, types(msgs))

	state := lastState(t, msgs)
	decals := state.Front.Decals()
	require.Len(t, decals, 1)
	assert.Equal(t, 75.0, decals[0].Height)

	frame := lastRender(t, msgs)
	assert.Equal(t, decals[0].ID, frame.Selection)
	assert.Equal(t, garment.SideFront, frame.Side)
	assert.NotEmpty(t, frame.Commands)
	require.NotNil(t, frame.Inspector)
	assert.Equal(t, decals[0].ID, frame.Inspector.ID)

	send(t, s, TypeDecalUpdate, DecalUpdatePayload{ID: decals[0].ID, Patch: design.Patch{Rotation: design.Float(-30)}})
	msgs = drain(t, s)
	assert.Equal(t, 330.0, lastRender(t, msgs).Inspector.Rotation)
	updated, _ := lastState(t, msgs).Front.Find(decals[0].ID)
	assert.Equal(t, -30.0, updated.Rotation)
}

func TestSession_PointerDragCommitsOnRelease(t *testing.T) {
	s := testSession(nil)
	send(t, s, TypeDecalAdd, DecalAddPayload{SourceURL: "/assets/a.png"})
	drain(t, s)

	send(t, s, TypePointerDown, engine.PointerEvent{PointerID: 1, Source: engine.InputTouch, X: 250, Y: 247.5})
	msgs := drain(t, s)
	frame := lastRender(t, msgs)
	assert.Equal(t, engine.ActionMove, frame.Action)
	assert.True(t, frame.PreventDefault)

	send(t, s, TypePointerMove, engine.PointerEvent{PointerID: 1, Source: engine.InputTouch, X: 272, Y: 247.5})
	msgs = drain(t, s)
	assert.Equal(t, []string{TypeRender}, types(msgs))

	send(t, s, TypePointerUp, engine.PointerEvent{PointerID: 1, Source: engine.InputTouch, X: 272, Y: 247.5})
	state := lastState(t, drain(t, s))
	assert.InDelta(t, 60, state.Front.Decals()[0].X, 1e-9)
	assert.InDelta(t, 50, state.Front.Decals()[0].Y, 1e-9)
}

func TestSession_OtherPointerDoesNotRender(t *testing.T) {
	s := testSession(nil)
	send(t, s, TypeDecalAdd, DecalAddPayload{SourceURL: "/assets/a.png"})
	send(t, s, TypePointerDown, engine.PointerEvent{PointerID: 1, X: 250, Y: 247.5})
	drain(t, s)

	send(t, s, TypePointerMove, engine.PointerEvent{PointerID: 2, X: 300, Y: 300})
	assert.Empty(t, drain(t, s))
}

func TestSession_UnknownTargetsAreSilent(t *testing.T) {
	s := testSession(nil)
	for _, msgType := range []string{TypeDecalRemove, TypeDecalMoveUp, TypeDecalMoveDown, TypeSelect} {
		send(t, s, msgType, DecalIDPayload{ID: "decal_missing"})
	}
	send(t, s, TypeDecalUpdate, DecalUpdatePayload{ID: "decal_missing", Patch: design.Patch{X: design.Float(10)}})
	assert.Empty(t, drain(t, s))
}

func TestSession_Errors(t *testing.T) {
	tests := []struct {
		name    string
		msgType string
		payload interface{}
	}{
		{"unknown type", "decal.explode", map[string]string{}},
		{"bad side", TypeSideSet, SideSetPayload{Side: "left"}},
		{"bad color", TypeGarmentColor, ColorPayload{Color: "plaid"}},
		{"bad type", TypeGarmentType, TypePayload{Type: "cape"}},
		{"missing source", TypeDecalAdd, DecalAddPayload{}},
		{"missing payload", TypeDecalUpdate, nil},
		{"bad layout", TypeLayoutSet, engine.Layout{Size: -1}},
		{"invalid state", TypeStateLoad, StateLoadPayload{State: &design.ProductState{Color: "plaid"}}},
		{"export unavailable", TypeExportRequest, ExportRequestPayload{RequestID: "r1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testSession(nil)
			send(t, s, tt.msgType, tt.payload)
			msgs := drain(t, s)
			require.Equal(t, []string{TypeError}, types(msgs))

			var p ErrorPayload
			require.NoError(t, json.Unmarshal(msgs[0].Payload, &p))
			assert.Equal(t, tt.msgType, p.Type)
			assert.NotEmpty(t, p.Message)
		})
	}
}

func TestSession_SideAndGarment(t *testing.T) {
	s := testSession(nil)
	send(t, s, TypeDecalAdd, DecalAddPayload{SourceURL: "/assets/a.png"})
	drain(t, s)

	send(t, s, TypeSideSet, SideSetPayload{Side: garment.SideBack})
	frame := lastRender(t, drain(t, s))
	assert.Equal(t, garment.SideBack, frame.Side)
	assert.Empty(t, frame.Selection)

	send(t, s, TypeDecalAdd, DecalAddPayload{SourceURL: "/assets/b.png"})
	send(t, s, TypeGarmentColor, ColorPayload{Color: garment.ColorNavy})
	send(t, s, TypeGarmentType, TypePayload{Type: garment.TypeHoodie})
	state := lastState(t, drain(t, s))
	assert.Equal(t, 1, state.Front.Len())
	assert.Equal(t, 1, state.Back.Len())
	assert.Equal(t, garment.ColorNavy, state.Color)
	assert.Equal(t, garment.TypeHoodie, state.Type)

	send(t, s, TypeSideClear, nil)
	state = lastState(t, drain(t, s))
	assert.Equal(t, 0, state.Back.Len())
	assert.Equal(t, 1, state.Front.Len())
}

func TestSession_LoadState(t *testing.T) {
	s := testSession(nil)
	d := design.NewDecal("/assets/a.png", 1, 1)
	initial := design.NewProductState(nil)
	initial.Add(garment.SideBack, d)

	send(t, s, TypeStateLoad, StateLoadPayload{State: initial})
	state := lastState(t, drain(t, s))
	assert.Equal(t, []string{d.ID}, state.Back.IDs())
}

func TestSession_ExportRunsOnSnapshot(t *testing.T) {
	stub := &stubExporter{
		res:   &export.Result{Data: []byte{1}, Format: export.FormatPNG, Width: 1000, Height: 1000},
		calls: make(chan *design.ProductState, 1),
	}
	s := testSession(stub)
	send(t, s, TypeDecalAdd, DecalAddPayload{SourceURL: "/assets/a.png"})
	drain(t, s)

	send(t, s, TypeExportRequest, ExportRequestPayload{RequestID: "r1", Format: "png"})
	exported := <-stub.calls
	assert.Equal(t, 1, exported.Front.Len())

	msg := next(t, s)
	require.Equal(t, TypeExportResult, msg.Type)
	var p ExportResultPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &p))
	assert.Equal(t, "r1", p.RequestID)
	assert.Equal(t, "data:image/png;base64,AQ==", p.DataURL)
	assert.NotNil(t, p.Skipped)
	s.exports.Wait()
}

func TestSession_ExportFailure(t *testing.T) {
	s := testSession(&stubExporter{err: export.ErrSurface})
	send(t, s, TypeExportRequest, ExportRequestPayload{RequestID: "r2", Format: "jpg"})

	msg := next(t, s)
	require.Equal(t, TypeExportFailed, msg.Type)
	var p ExportFailedPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &p))
	assert.Equal(t, "r2", p.RequestID)
	assert.Equal(t, "export failed", p.Error)
	assert.True(t, p.Retryable)
	s.exports.Wait()
}

func TestSession_SendAfterCloseIsDropped(t *testing.T) {
	s := testSession(nil)
	s.close()
	s.close()
	s.Send(TypeError, ErrorPayload{Message: "late"})
	assert.Empty(t, drain(t, s))
}

func TestOriginPatterns(t *testing.T) {
	got := originPatterns([]string{"http://localhost:5173", "https://studio.example.com", "*.example.org"})
	assert.Equal(t, []string{"localhost:5173", "studio.example.com", "*.example.org"}, got)
}

func TestHub_WebSocketSession(t *testing.T) {
	hub := NewHub(nil, nil, nil)
	go hub.Run()
	defer hub.Stop()

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	read := func() Message {
		_, data, err := conn.Read(ctx)
		require.NoError(t, err)
		var m Message
		require.NoError(t, json.Unmarshal(data, &m))
		return m
	}

	welcome := read()
	require.Equal(t, TypeWelcome, welcome.Type)
	var w WelcomePayload
	require.NoError(t, json.Unmarshal(welcome.Payload, &w))
	assert.True(t, strings.HasPrefix(w.SessionID, "sess_"))
	assert.Contains(t, w.Garments, garment.TypeTShirt)
	assert.Equal(t, TypeRender, read().Type)
	assert.Equal(t, TypeState, read().Type)
	assert.Equal(t, 1, hub.Count())

	payload, _ := json.Marshal(DecalAddPayload{SourceURL: "/assets/a.png"})
	data, _ := json.Marshal(Message{Type: TypeDecalAdd, Payload: payload})
	require.NoError(t, conn.Write(ctx, websocket.MessageText, data))
	assert.Equal(t, TypeRender, read().Type)
	assert.Equal(t, TypeState, read().Type)

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte("not json")))
	assert.Equal(t, TypeError, read().Type)
}

func TestHub_StopWithoutSessions(t *testing.T) {
	hub := NewHub(nil, nil, nil)
	go hub.Run()
	hub.Stop()
	hub.Stop()

	// Registration after shutdown closes the session instead of blocking.
	s := newSession(hub, nil, "sess_late", "c")
	hub.Register(s)
	select {
	case <-s.done:
	default:
		t.Fatal("late session left open")
	}
	assert.Zero(t, hub.Count())
}
