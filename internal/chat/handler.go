package chat

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/moyuchat/persona-ai-platform/internal/persona"
	"github.com/moyuchat/persona-ai-platform/pkg/logging"
)

// Handler serves the chat turn endpoint and conversation history.
type Handler struct {
	personas *persona.Store
	history  HistoryStore
	turns    *TurnProcessor
	sessions *SessionManager
	logger   *logging.Logger
}

// NewHandler creates a chat HTTP handler.
func NewHandler(personas *persona.Store, history HistoryStore, turns *TurnProcessor, sessions *SessionManager, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		personas: personas,
		history:  history,
		turns:    turns,
		sessions: sessions,
		logger:   logger,
	}
}

// Routes mounts the chat endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Route("/{personaID}", func(r chi.Router) {
		r.Post("/turns", h.Turn)
		r.Get("/history", h.History)
		r.Delete("/history", h.ClearHistory)
	})
	return r
}

// turnRequest is the payload for POST /api/chat/{personaID}/turns.
type turnRequest struct {
	Message  string            `json:"message"`
	ImageURL string            `json:"imageUrl,omitempty"`
	UserName string            `json:"userName,omitempty"`
	Settings *Settings         `json:"settings,omitempty"`
	RolePlay *RolePlaySettings `json:"rolePlay,omitempty"`
	Keywords []MemoryKeyword   `json:"keywords,omitempty"`
}

// turnResponse pairs the turn outcome with the two messages appended to the
// conversation, so clients can render without re-fetching history.
type turnResponse struct {
	TurnResult
	UserMessage Message `json:"userMessage"`
	AIMessage   Message `json:"aiMessage"`
}

// Turn handles POST /api/chat/{personaID}/turns
func (h *Handler) Turn(w http.ResponseWriter, r *http.Request) {
	personaID := chi.URLParam(r, "personaID")

	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if trimmed(req.Message) == "" && req.ImageURL == "" {
		http.Error(w, "message or image is required", http.StatusBadRequest)
		return
	}

	p, err := h.personas.Get(r.Context(), personaID)
	if err != nil {
		if errors.Is(err, persona.ErrNotFound) {
			http.Error(w, "persona not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load persona", "error", err)
		http.Error(w, "failed to load persona", http.StatusInternalServerError)
		return
	}

	history, err := h.history.Load(r.Context(), personaID)
	if err != nil {
		h.logger.Error("failed to load history", "persona_id", personaID, "error", err)
		http.Error(w, "failed to load history", http.StatusInternalServerError)
		return
	}

	userMsg := Message{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Content:   req.Message,
		ImageURL:  req.ImageURL,
		Timestamp: time.Now().UTC(),
		PersonaID: personaID,
	}

	result := h.turns.ProcessTurn(r.Context(), TurnInput{
		Persona:        p,
		History:        history,
		UserMessage:    req.Message,
		UserImage:      req.ImageURL,
		Settings:       req.Settings,
		ActiveKeywords: ActiveKeywords(req.Keywords, history, userMsg),
		UserName:       req.UserName,
		RolePlay:       req.RolePlay,
	})

	if result.UpdateSucceeded && result.Favorability != p.Favorability {
		if err := h.personas.SetFavorability(r.Context(), personaID, result.Favorability); err != nil {
			h.logger.Error("failed to persist favorability", "persona_id", personaID, "error", err)
		}
	}

	aiMsg := Message{
		ID:        uuid.NewString(),
		Role:      RoleModel,
		Content:   result.AIResponse,
		Timestamp: time.Now().UTC(),
		PersonaID: personaID,
	}
	updated, err := h.history.Append(r.Context(), personaID, userMsg, aiMsg)
	if err != nil {
		h.logger.Error("failed to persist history", "persona_id", personaID, "error", err)
		updated = append(append(history, userMsg), aiMsg)
	}

	h.sessions.RecordTurn(TurnOutcome{
		Persona:         p,
		History:         updated,
		Favorability:    result.Favorability,
		Applied:         result.UpdateSucceeded,
		UserName:        req.UserName,
		LastUserMessage: req.Message,
	})

	writeJSON(w, http.StatusOK, turnResponse{
		TurnResult:  result,
		UserMessage: userMsg,
		AIMessage:   aiMsg,
	})
}

// History handles GET /api/chat/{personaID}/history
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	personaID := chi.URLParam(r, "personaID")
	history, err := h.history.Load(r.Context(), personaID)
	if err != nil {
		h.logger.Error("failed to load history", "persona_id", personaID, "error", err)
		http.Error(w, "failed to load history", http.StatusInternalServerError)
		return
	}
	if history == nil {
		history = []Message{}
	}
	writeJSON(w, http.StatusOK, history)
}

// ClearHistory handles DELETE /api/chat/{personaID}/history
func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	personaID := chi.URLParam(r, "personaID")
	if err := h.history.Clear(r.Context(), personaID); err != nil {
		h.logger.Error("failed to clear history", "persona_id", personaID, "error", err)
		http.Error(w, "failed to clear history", http.StatusInternalServerError)
		return
	}
	h.sessions.Forget(personaID)
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
