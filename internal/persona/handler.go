package persona

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/moyuchat/persona-ai-platform/pkg/logging"
)

// AvatarSaver externalizes inline base64 avatar images to disk.
type AvatarSaver interface {
	Save(data, subfolder string) (string, error)
}

// Handler serves persona CRUD plus the AI generate/refine flows.
type Handler struct {
	store     *Store
	generator *Generator
	avatars   AvatarSaver
	logger    *logging.Logger
}

// NewHandler creates a persona HTTP handler.
func NewHandler(store *Store, generator *Generator, avatars AvatarSaver, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, generator: generator, avatars: avatars, logger: logger}
}

// Routes mounts the persona endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Post("/generate", h.Generate)
	r.Route("/{personaID}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Update)
		r.Delete("/", h.Delete)
		r.Post("/refine", h.Refine)
	})
	return r
}

// List handles GET /api/personas
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	personas, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list personas", "error", err)
		http.Error(w, "failed to list personas", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, personas)
}

// Get handles GET /api/personas/{personaID}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.Get(r.Context(), chi.URLParam(r, "personaID"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "persona not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load persona", "error", err)
		http.Error(w, "failed to load persona", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Create handles POST /api/personas
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var p Persona
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if p.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	if err := h.saveAvatar(&p); err != nil {
		h.logger.Error("failed to save avatar", "error", err)
		http.Error(w, "failed to save avatar", http.StatusInternalServerError)
		return
	}

	created, err := h.store.Create(r.Context(), &p)
	if err != nil {
		h.logger.Error("failed to create persona", "error", err)
		http.Error(w, "failed to create persona", http.StatusInternalServerError)
		return
	}
	h.logger.Info("persona created", "id", created.ID, "name", created.Name)
	writeJSON(w, http.StatusCreated, created)
}

// Update handles PUT /api/personas/{personaID}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var p Persona
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	p.ID = chi.URLParam(r, "personaID")
	if !ValidFavorability(p.Favorability) {
		http.Error(w, "favorability out of range", http.StatusBadRequest)
		return
	}
	if err := h.saveAvatar(&p); err != nil {
		h.logger.Error("failed to save avatar", "error", err)
		http.Error(w, "failed to save avatar", http.StatusInternalServerError)
		return
	}

	if err := h.store.Update(r.Context(), &p); err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "persona not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to update persona", "error", err)
		http.Error(w, "failed to update persona", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, &p)
}

// Delete handles DELETE /api/personas/{personaID}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(r.Context(), chi.URLParam(r, "personaID")); err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "persona not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to delete persona", "error", err)
		http.Error(w, "failed to delete persona", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Generate handles POST /api/personas/generate
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	if h.generator == nil {
		http.Error(w, "persona generation is not configured", http.StatusServiceUnavailable)
		return
	}
	var req struct {
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	generated, err := h.generator.Generate(r.Context(), req.Description)
	if err != nil {
		h.logger.Error("persona generation failed", "error", err)
		http.Error(w, "persona generation failed", http.StatusBadGateway)
		return
	}
	created, err := h.store.Create(r.Context(), generated)
	if err != nil {
		h.logger.Error("failed to store generated persona", "error", err)
		http.Error(w, "failed to store persona", http.StatusInternalServerError)
		return
	}
	h.logger.Info("persona generated", "id", created.ID, "name", created.Name)
	writeJSON(w, http.StatusCreated, created)
}

// Refine handles POST /api/personas/{personaID}/refine
func (h *Handler) Refine(w http.ResponseWriter, r *http.Request) {
	if h.generator == nil {
		http.Error(w, "persona refinement is not configured", http.StatusServiceUnavailable)
		return
	}
	var req struct {
		Instructions string `json:"instructions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	current, err := h.store.Get(r.Context(), chi.URLParam(r, "personaID"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "persona not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load persona", "error", err)
		http.Error(w, "failed to load persona", http.StatusInternalServerError)
		return
	}

	refined, err := h.generator.Refine(r.Context(), current, req.Instructions)
	if err != nil {
		h.logger.Error("persona refinement failed", "error", err, "persona_id", current.ID)
		http.Error(w, "persona refinement failed", http.StatusBadGateway)
		return
	}
	if err := h.store.Update(r.Context(), refined); err != nil {
		h.logger.Error("failed to store refined persona", "error", err)
		http.Error(w, "failed to store persona", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, refined)
}

func (h *Handler) saveAvatar(p *Persona) error {
	if h.avatars == nil || p.AvatarImage == "" {
		return nil
	}
	path, err := h.avatars.Save(p.AvatarImage, "avatars")
	if err != nil {
		return err
	}
	p.AvatarImage = path
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
