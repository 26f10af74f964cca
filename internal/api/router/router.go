package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/moyuchat/persona-ai-platform/internal/chat"
	"github.com/moyuchat/persona-ai-platform/internal/community"
	httpmiddleware "github.com/moyuchat/persona-ai-platform/internal/http/middleware"
	"github.com/moyuchat/persona-ai-platform/internal/persona"
	"github.com/moyuchat/persona-ai-platform/internal/webchat"
	"github.com/moyuchat/persona-ai-platform/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger           *logging.Logger
	PersonaHandler   *persona.Handler
	ChatHandler      *chat.Handler
	CommunityHandler *community.Handler
	WebchatHandler   *webchat.Handler
	MetricsHandler   http.Handler

	// UploadsDir, when set, is served as static files under /uploads.
	UploadsDir string

	CORSAllowedOrigins []string

	// WriteRateLimit caps mutating requests per second per IP. Zero
	// disables the limiter.
	WriteRateLimit float64
	WriteBurst     int
}

// New creates a Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api", func(api chi.Router) {
		if cfg.WriteRateLimit > 0 {
			api.Use(httpmiddleware.RateLimit(cfg.WriteRateLimit, cfg.WriteBurst))
		}
		if cfg.PersonaHandler != nil {
			api.Mount("/personas", cfg.PersonaHandler.Routes())
		}
		if cfg.ChatHandler != nil {
			api.Mount("/chat", cfg.ChatHandler.Routes())
		}
		if cfg.CommunityHandler != nil {
			api.Mount("/posts", cfg.CommunityHandler.Routes())
			// Kept for clients still using the old prefix.
			api.Mount("/community/posts", cfg.CommunityHandler.Routes())
		}
	})

	if cfg.WebchatHandler != nil {
		r.Get("/ws/notices", cfg.WebchatHandler.HandleWebSocket)
	}

	if cfg.UploadsDir != "" {
		fileServer := http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadsDir)))
		r.Get("/uploads/*", fileServer.ServeHTTP)
	}

	return r
}
