// Package webchat pushes server-side notices to connected browsers, most
// importantly favorability recalibrations that finish after the HTTP turn
// response has already been sent.
package webchat

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"github.com/moyuchat/persona-ai-platform/pkg/logging"
)

// Handler manages notice connections. Each browser tab subscribes to one
// persona; a persona can have any number of watchers.
type Handler struct {
	logger *logging.Logger

	mu       sync.RWMutex
	watchers map[string]map[*wsConn]struct{} // personaID -> connections
}

type wsConn struct {
	conn *websocket.Conn
	done chan struct{}
}

// InboundMessage is what the client sends. Only pings are expected.
type InboundMessage struct {
	Type string `json:"type"` // "ping"
}

// OutboundMessage is what we push to the client.
type OutboundMessage struct {
	Type         string `json:"type"` // "favorability_update", "pong", "error"
	PersonaID    string `json:"personaId,omitempty"`
	Favorability int    `json:"favorability,omitempty"`
	Text         string `json:"text,omitempty"`
	Timestamp    string `json:"timestamp,omitempty"`
}

// NewHandler creates a notice handler.
func NewHandler(logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		logger:   logger,
		watchers: make(map[string]map[*wsConn]struct{}),
	}
}

// HandleWebSocket upgrades to WebSocket and keeps the subscription open
// until the client disconnects.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	personaID := r.URL.Query().Get("persona")
	if personaID == "" {
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Text: "missing persona parameter"})
		return
	}

	wsc := &wsConn{conn: conn, done: make(chan struct{})}
	h.mu.Lock()
	if h.watchers[personaID] == nil {
		h.watchers[personaID] = make(map[*wsConn]struct{})
	}
	h.watchers[personaID][wsc] = struct{}{}
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.watchers[personaID], wsc)
		if len(h.watchers[personaID]) == 0 {
			delete(h.watchers, personaID)
		}
		h.mu.Unlock()
		close(wsc.done)
	}()

	h.logger.Info("webchat: connection opened", "persona_id", personaID)

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("webchat: connection closed", "persona_id", personaID, "error", err)
			return
		}
		if msg.Type == "ping" {
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "pong"})
		}
	}
}

// NotifyFavorability pushes a recalibrated favorability value to every
// watcher of the persona.
func (h *Handler) NotifyFavorability(personaID string, favorability int) {
	h.broadcast(personaID, OutboundMessage{
		Type:         "favorability_update",
		PersonaID:    personaID,
		Favorability: favorability,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) broadcast(personaID string, msg OutboundMessage) {
	h.mu.RLock()
	conns := make([]*wsConn, 0, len(h.watchers[personaID]))
	for wsc := range h.watchers[personaID] {
		conns = append(conns, wsc)
	}
	h.mu.RUnlock()

	for _, wsc := range conns {
		if err := websocket.JSON.Send(wsc.conn, msg); err != nil {
			h.logger.Debug("webchat: failed to push notice", "persona_id", personaID, "error", err)
		}
	}
}

// WatcherCount reports how many connections watch a persona.
func (h *Handler) WatcherCount(personaID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.watchers[personaID])
}
