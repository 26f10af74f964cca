package community

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/moyuchat/persona-ai-platform/internal/uploads"
	"github.com/moyuchat/persona-ai-platform/pkg/logging"
)

// ImageStore externalizes inline avatars and removes them when their post
// goes away.
type ImageStore interface {
	Save(data, subfolder string) (string, error)
	Remove(webPath string) error
}

// Handler serves the community feed endpoints.
type Handler struct {
	store       *Store
	images      ImageStore
	quota       *postQuota
	adminUserID string
	logger      *logging.Logger
}

// NewHandler creates a community HTTP handler. maxPostsPerDay bounds how
// many posts one user may create per UTC day.
func NewHandler(store *Store, images ImageStore, adminUserID string, maxPostsPerDay int, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		store:       store,
		images:      images,
		quota:       newPostQuota(maxPostsPerDay),
		adminUserID: adminUserID,
		logger:      logger,
	}
}

// Routes mounts the community endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Route("/{postID}", func(r chi.Router) {
		r.Delete("/", h.Delete)
		r.Put("/like", h.Like)
		r.Post("/comments", h.AddComment)
		r.Put("/recommend", h.Recommend)
		r.Put("/set-hot", h.SetHot)
	})
	return r
}

// List handles GET /api/posts
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	posts, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list posts", "error", err)
		http.Error(w, "failed to list posts", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

// Create handles POST /api/posts
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var post Post
	if err := json.NewDecoder(r.Body).Decode(&post); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if post.UserID == "" {
		http.Error(w, "userId is required for posting", http.StatusBadRequest)
		return
	}
	if !h.quota.allow(post.UserID) {
		h.logger.Warn("daily post quota exceeded", "user_id", post.UserID)
		http.Error(w, "daily post limit reached", http.StatusTooManyRequests)
		return
	}

	h.externalizeImages(&post)

	created, err := h.store.Create(r.Context(), &post)
	if err != nil {
		h.logger.Error("failed to create post", "error", err)
		http.Error(w, "failed to create post", http.StatusInternalServerError)
		return
	}
	h.quota.record(post.UserID)
	h.logger.Info("post created", "id", created.ID, "user_id", created.UserID)
	writeJSON(w, http.StatusCreated, created)
}

// externalizeImages moves inline base64 avatars out of the post body: the
// poster's avatar into user_avatars and the shared persona's avatar into
// avatars. The persona snapshot never stores image bytes.
func (h *Handler) externalizeImages(post *Post) {
	if strings.HasPrefix(post.UserAvatarURL, "data:image") {
		if path, err := h.images.Save(post.UserAvatarURL, uploads.UserAvatarsSubfolder); err == nil {
			post.UserAvatarURL = path
		} else {
			h.logger.Error("failed to save user avatar", "error", err)
		}
	}

	if post.AssociatedPersonaData == nil {
		return
	}
	avatar, _ := post.AssociatedPersonaData["avatarImage"].(string)
	if avatar == "" {
		return
	}
	if strings.HasPrefix(avatar, "data:image") {
		if path, err := h.images.Save(avatar, uploads.AvatarsSubfolder); err == nil {
			post.AssociatedPersonaAvatarURL = path
		} else {
			h.logger.Error("failed to save persona avatar", "error", err)
		}
	} else {
		post.AssociatedPersonaAvatarURL = avatar
	}
	delete(post.AssociatedPersonaData, "avatarImage")
}

// Delete handles DELETE /api/posts/{postID}?userId=...
// Only the post's author or the admin may delete it.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "postID")
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return
	}

	post, err := h.store.Get(r.Context(), postID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "post not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load post", "error", err)
		http.Error(w, "failed to load post", http.StatusInternalServerError)
		return
	}
	if userID != post.UserID && userID != h.adminUserID {
		http.Error(w, "only the author or an admin can delete a post", http.StatusForbidden)
		return
	}

	deleted, err := h.store.Delete(r.Context(), postID)
	if err != nil {
		h.logger.Error("failed to delete post", "error", err)
		http.Error(w, "failed to delete post", http.StatusInternalServerError)
		return
	}
	for _, img := range []string{deleted.UserAvatarURL, deleted.AssociatedPersonaAvatarURL} {
		if err := h.images.Remove(img); err != nil {
			h.logger.Error("failed to remove post image", "path", img, "error", err)
		}
	}
	h.logger.Info("post deleted", "id", postID, "user_id", userID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "post deleted"})
}

// Like handles PUT /api/posts/{postID}/like
func (h *Handler) Like(w http.ResponseWriter, r *http.Request) {
	post, err := h.store.Like(r.Context(), chi.URLParam(r, "postID"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "post not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to like post", "error", err)
		http.Error(w, "failed to like post", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// AddComment handles POST /api/posts/{postID}/comments
func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	var c Comment
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if c.UserID == "" || c.UserName == "" || c.Text == "" {
		http.Error(w, "userId, userName and text are required", http.StatusBadRequest)
		return
	}

	post, err := h.store.AddComment(r.Context(), chi.URLParam(r, "postID"), c)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "post not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to add comment", "error", err)
		http.Error(w, "failed to add comment", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

// Recommend handles PUT /api/posts/{postID}/recommend
func (h *Handler) Recommend(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Recommend *bool  `json:"recommend"`
		UserID    string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Recommend == nil {
		http.Error(w, "recommend must be a boolean", http.StatusBadRequest)
		return
	}
	if !h.requireAdmin(w, req.UserID) {
		return
	}

	post, err := h.store.SetRecommended(r.Context(), chi.URLParam(r, "postID"), *req.Recommend)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "post not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to update recommendation", "error", err)
		http.Error(w, "failed to update recommendation", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// SetHot handles PUT /api/posts/{postID}/set-hot
func (h *Handler) SetHot(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IsHot  *bool  `json:"isHot"`
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.IsHot == nil {
		http.Error(w, "isHot must be a boolean", http.StatusBadRequest)
		return
	}
	if !h.requireAdmin(w, req.UserID) {
		return
	}

	post, err := h.store.SetHot(r.Context(), chi.URLParam(r, "postID"), *req.IsHot)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "post not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to update hot status", "error", err)
		http.Error(w, "failed to update hot status", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *Handler) requireAdmin(w http.ResponseWriter, userID string) bool {
	if userID == "" {
		http.Error(w, "userId is required for this action", http.StatusBadRequest)
		return false
	}
	if userID != h.adminUserID {
		http.Error(w, "only admins can perform this action", http.StatusForbidden)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
