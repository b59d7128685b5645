package studio

import (
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/inkwell/studio/backend-go/internal/export"
	"github.com/inkwell/studio/backend-go/internal/garment"
	"github.com/inkwell/studio/backend-go/internal/typeid"
)

// Hub tracks the live sessions so they can be closed on shutdown. Sessions
// never share state with each other.
type Hub struct {
	mu         sync.RWMutex
	sessions   map[string]*Session // session id -> session
	register   chan *Session
	unregister chan *Session
	stop       chan struct{}
	done       chan struct{}
	stopOnce   sync.Once

	catalog  *garment.Catalog
	exporter export.Exporter
	origins  []string
}

// NewHub builds a hub whose sessions edit garments from catalog and export
// through exporter, which may be nil. Origins are the allowed browser
// origins for the websocket handshake.
func NewHub(catalog *garment.Catalog, exporter export.Exporter, origins []string) *Hub {
	if catalog == nil {
		catalog = garment.DefaultCatalog()
	}
	return &Hub{
		sessions:   make(map[string]*Session),
		register:   make(chan *Session),
		unregister: make(chan *Session),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		catalog:    catalog,
		exporter:   exporter,
		origins:    originPatterns(origins),
	}
}

func (h *Hub) Run() {
	defer close(h.done)
	for {
		select {
		case s := <-h.register:
			h.addSession(s)
		case s := <-h.unregister:
			h.removeSession(s)
		case <-h.stop:
			h.closeAll()
			return
		}
	}
}

// Stop closes every session and waits for Run to return.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
	<-h.done
}

func (h *Hub) Register(s *Session) {
	select {
	case h.register <- s:
	case <-h.done:
		s.close()
	}
}

func (h *Hub) Unregister(s *Session) {
	select {
	case h.unregister <- s:
	case <-h.done:
	}
}

// Count is the number of connected sessions.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

func (h *Hub) addSession(s *Session) {
	h.mu.Lock()
	h.sessions[s.ID] = s
	h.mu.Unlock()

	s.Send(TypeWelcome, WelcomePayload{
		SessionID: s.ID,
		ClientID:  s.ClientID,
		Garments:  h.catalog.Types(),
		Colors:    garment.Colors(),
	})
	s.sendRender(RenderPayload{})
	s.Send(TypeState, StatePayload{State: s.engine.State()})

	slog.Info("session opened", "session", s.ID, "client", s.ClientID)
}

func (h *Hub) removeSession(s *Session) {
	h.mu.Lock()
	if _, ok := h.sessions[s.ID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.sessions, s.ID)
	h.mu.Unlock()

	s.close()
	slog.Info("session closed", "session", s.ID)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	sessions := make([]*Session, 0, len(h.sessions))
	for id, s := range h.sessions {
		sessions = append(sessions, s)
		delete(h.sessions, id)
	}
	h.mu.Unlock()

	for _, s := range sessions {
		s.close()
		if s.conn != nil {
			s.conn.Close(websocket.StatusGoingAway, "server shutting down")
		}
	}
	slog.Info("studio sessions closed", "count", len(sessions))
}

// HandleWebSocket upgrades GET /ws/studio and runs the session until the
// connection ends.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.origins,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	s := newSession(h, conn, typeid.NewSessionID(), uuid.New().String())
	h.Register(s)

	ctx := r.Context()
	go s.WritePump(ctx)
	s.ReadPump(ctx)
}

// originPatterns reduces configured origins to the host[:port] patterns the
// websocket handshake matches against.
func originPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			out = append(out, u.Host)
			continue
		}
		out = append(out, o)
	}
	return out
}
