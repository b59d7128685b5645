package studio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/inkwell/studio/backend-go/internal/design"
	"github.com/inkwell/studio/backend-go/internal/engine"
	"github.com/inkwell/studio/backend-go/internal/export"
	"github.com/inkwell/studio/backend-go/internal/garment"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	maxMsgSize = 256 * 1024
)

var (
	ErrUnknownMessage    = errors.New("unknown message type")
	ErrExportUnavailable = errors.New("export unavailable")
)

// Session is one connected designer. The engine is touched only from the
// read loop, so messages apply strictly in arrival order.
type Session struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	done     chan struct{}
	doneOnce sync.Once
	exports  sync.WaitGroup

	ID       string
	ClientID string

	engine   *engine.Engine
	exporter export.Exporter
}

func newSession(hub *Hub, conn *websocket.Conn, id, clientID string) *Session {
	return &Session{
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, 256),
		done:     make(chan struct{}),
		ID:       id,
		ClientID: clientID,
		engine:   engine.NewEngine(hub.catalog),
		exporter: hub.exporter,
	}
}

func (s *Session) ReadPump(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		s.exports.Wait()
		s.hub.Unregister(s)
		s.conn.Close(websocket.StatusNormalClosure, "")
	}()

	s.conn.SetReadLimit(maxMsgSize)

	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
				websocket.CloseStatus(err) == websocket.StatusGoingAway {
				return
			}
			slog.Debug("read error", "error", err, "session", s.ID)
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("invalid message", "error", err, "session", s.ID)
			s.sendError("", errors.New("invalid message"))
			continue
		}
		s.handle(ctx, &msg)
	}
}

func (s *Session) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case message := <-s.send:
			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := s.conn.Write(writeCtx, websocket.MessageText, message)
			cancel()
			if err != nil {
				slog.Debug("write error", "error", err, "session", s.ID)
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := s.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}

		case <-s.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Send queues msg for the write loop. Messages to a closed session, or past
// a full buffer, are dropped.
func (s *Session) Send(msgType string, payload interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal payload", "error", err, "type", msgType)
		return
	}
	data, err := json.Marshal(Message{Type: msgType, Payload: raw})
	if err != nil {
		slog.Error("marshal message", "error", err)
		return
	}

	select {
	case <-s.done:
		return
	default:
	}
	select {
	case s.send <- data:
	default:
		slog.Warn("session send buffer full, dropping message", "session", s.ID, "type", msgType)
	}
}

func (s *Session) close() {
	s.doneOnce.Do(func() { close(s.done) })
}

// handle applies one client message and answers with a fresh frame when
// anything visible changed.
func (s *Session) handle(ctx context.Context, msg *Message) {
	var (
		frame   = RenderPayload{}
		changed bool
		commit  bool
		err     error
	)

	switch msg.Type {
	case TypeStateLoad:
		var p StateLoadPayload
		if err = decode(msg.Payload, &p); err == nil {
			err = s.engine.LoadState(p.State)
			changed, commit = err == nil, err == nil
		}

	case TypeDecalAdd:
		var p DecalAddPayload
		if err = decode(msg.Payload, &p); err == nil {
			if p.SourceURL == "" {
				err = errors.New("sourceUrl is required")
				break
			}
			s.engine.AddDecal(design.NewDecal(p.SourceURL, p.NaturalWidth, p.NaturalHeight))
			changed, commit = true, true
		}

	case TypeDecalUpdate:
		var p DecalUpdatePayload
		if err = decode(msg.Payload, &p); err == nil {
			changed = s.engine.UpdateDecal(p.ID, p.Patch)
			commit = changed
		}

	case TypeDecalRemove, TypeDecalMoveUp, TypeDecalMoveDown:
		var p DecalIDPayload
		if err = decode(msg.Payload, &p); err == nil {
			switch msg.Type {
			case TypeDecalRemove:
				changed = s.engine.RemoveDecal(p.ID)
			case TypeDecalMoveUp:
				changed = s.engine.MoveUp(p.ID)
			default:
				changed = s.engine.MoveDown(p.ID)
			}
			commit = changed
		}

	case TypeSideClear:
		s.engine.ClearSide()
		changed, commit = true, true

	case TypeSideSet:
		var p SideSetPayload
		if err = decode(msg.Payload, &p); err == nil {
			err = s.engine.SetSide(p.Side)
			changed = err == nil
		}

	case TypeGarmentColor:
		var p ColorPayload
		if err = decode(msg.Payload, &p); err == nil {
			err = s.engine.SetColor(p.Color)
			changed, commit = err == nil, err == nil
		}

	case TypeGarmentType:
		var p TypePayload
		if err = decode(msg.Payload, &p); err == nil {
			err = s.engine.SetType(p.Type)
			changed, commit = err == nil, err == nil
		}

	case TypeLayoutSet:
		var l engine.Layout
		if err = decode(msg.Payload, &l); err == nil {
			if l.Size <= 0 {
				err = fmt.Errorf("layout size %g must be positive", l.Size)
				break
			}
			s.engine.SetLayout(l)
			changed = true
		}

	case TypeSelect:
		var p DecalIDPayload
		if err = decode(msg.Payload, &p); err == nil {
			if p.ID == "" {
				s.engine.ClearSelection()
				changed = true
			} else {
				changed = s.engine.Select(p.ID)
			}
		}

	case TypePointerDown:
		var ev engine.PointerEvent
		if err = decode(msg.Payload, &ev); err == nil {
			res := s.engine.PointerDown(ev)
			frame.Action, frame.PreventDefault = res.Action, res.PreventDefault
			changed = true
			commit = res.Action == engine.ActionDelete
		}

	case TypePointerMove:
		var ev engine.PointerEvent
		if err = decode(msg.Payload, &ev); err == nil {
			res := s.engine.PointerMove(ev)
			frame.PreventDefault = res.PreventDefault
			changed = res.Applied
		}

	case TypePointerUp:
		var ev engine.PointerEvent
		if err = decode(msg.Payload, &ev); err == nil {
			s.engine.PointerUp(ev)
			changed, commit = true, true
		}

	case TypePointerCancel:
		s.engine.PointerCancel()
		changed = true

	case TypeExportRequest:
		var p ExportRequestPayload
		if err = decode(msg.Payload, &p); err == nil {
			err = s.requestExport(ctx, p)
		}

	default:
		err = fmt.Errorf("%w: %q", ErrUnknownMessage, msg.Type)
	}

	if err != nil {
		s.sendError(msg.Type, err)
		return
	}
	if changed {
		s.sendRender(frame)
	}
	if commit {
		s.Send(TypeState, StatePayload{State: s.engine.State()})
	}
}

func (s *Session) sendRender(frame RenderPayload) {
	frame.Commands = s.engine.DrawCommands()
	frame.Side = s.engine.Side()
	frame.Selection = s.engine.Selection()
	if insp, ok := s.engine.Inspect(); ok {
		frame.Inspector = &insp
	}
	s.Send(TypeRender, frame)
}

func (s *Session) sendError(msgType string, err error) {
	slog.Debug("studio message rejected", "session", s.ID, "type", msgType, "error", err)
	s.Send(TypeError, ErrorPayload{Message: err.Error(), Type: msgType})
}

// requestExport snapshots the state now and renders it in the background;
// the designer may keep editing meanwhile.
func (s *Session) requestExport(ctx context.Context, p ExportRequestPayload) error {
	side := p.Side
	if side == "" {
		side = s.engine.Side()
	}
	if !side.Valid() {
		return fmt.Errorf("invalid side %q", side)
	}
	format, err := export.ParseFormat(p.Format)
	if err != nil {
		return err
	}
	if s.exporter == nil {
		return ErrExportUnavailable
	}

	snap := s.engine.State()
	s.exports.Add(1)
	go func() {
		defer s.exports.Done()
		s.runExport(ctx, p.RequestID, snap, side, format)
	}()
	return nil
}

func (s *Session) runExport(ctx context.Context, requestID string, state *design.ProductState, side garment.Side, format export.Format) {
	res, err := s.exporter.Export(ctx, state, side, format)
	if err != nil {
		slog.Error("studio export failed", "session", s.ID, "request", requestID, "error", err)
		s.Send(TypeExportFailed, ExportFailedPayload{
			RequestID: requestID,
			Error:     "export failed",
			Retryable: !errors.Is(err, export.ErrUnknownGarment) && !errors.Is(err, context.Canceled),
		})
		return
	}

	skipped := res.Skipped
	if skipped == nil {
		skipped = []string{}
	}
	s.Send(TypeExportResult, ExportResultPayload{
		RequestID: requestID,
		DataURL:   res.DataURL(),
		Width:     res.Width,
		Height:    res.Height,
		Skipped:   skipped,
	})
}

func decode(payload json.RawMessage, v interface{}) error {
	if len(payload) == 0 {
		return errors.New("missing payload")
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
