package main

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/moyuchat/persona-ai-platform/internal/api/router"
	"github.com/moyuchat/persona-ai-platform/internal/chat"
	"github.com/moyuchat/persona-ai-platform/internal/community"
	appconfig "github.com/moyuchat/persona-ai-platform/internal/config"
	"github.com/moyuchat/persona-ai-platform/internal/llm"
	"github.com/moyuchat/persona-ai-platform/internal/observability/metrics"
	"github.com/moyuchat/persona-ai-platform/internal/persona"
	"github.com/moyuchat/persona-ai-platform/internal/uploads"
	"github.com/moyuchat/persona-ai-platform/internal/webchat"
	"github.com/moyuchat/persona-ai-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting persona-ai-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"llm_provider", cfg.LLMProvider,
	)

	ctx := context.Background()

	client, err := llm.NewClient(ctx, llm.Options{
		Provider:      cfg.LLMProvider,
		GeminiAPIKey:  cfg.GeminiAPIKey,
		GeminiModelID: cfg.GeminiModelID,
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
		OpenAIModelID: cfg.OpenAIModelID,
	})
	if err != nil {
		logger.Error("failed to initialize LLM client", "error", err)
		os.Exit(1)
	}
	if closer, ok := client.(io.Closer); ok {
		defer closer.Close()
	}

	chatMetrics := metrics.NewChatMetrics(prometheus.DefaultRegisterer)

	personaStore := persona.NewStore(cfg.DataDir)
	communityStore := community.NewStore(cfg.DataDir)
	saver := uploads.NewSaver(cfg.UploadsDir, logger.WithComponent("uploads"))

	historyStore := newHistoryStore(cfg, logger)

	turns := chat.NewTurnProcessor(client, cfg.GenerationTimeout, logger.WithComponent("chat"), chatMetrics)
	calibrator := chat.NewCalibrator(client, cfg.GenerationTimeout, logger.WithComponent("calibration"), chatMetrics)
	notices := webchat.NewHandler(logger.WithComponent("webchat"))
	sessions := chat.NewSessionManager(calibrator, personaStore, notices,
		logger.WithComponent("drift"), cfg.CalibrationCheckTurns, cfg.MinHistoryForCalibration)

	generator := persona.NewGenerator(client)

	r := router.New(&router.Config{
		Logger:             logger,
		PersonaHandler:     persona.NewHandler(personaStore, generator, saver, logger.WithComponent("personas")),
		ChatHandler:        chat.NewHandler(personaStore, historyStore, turns, sessions, logger.WithComponent("chat")),
		CommunityHandler:   community.NewHandler(communityStore, saver, cfg.AdminUserID, cfg.MaxPostsPerDay, logger.WithComponent("community")),
		WebchatHandler:     notices,
		MetricsHandler:     promhttp.Handler(),
		UploadsDir:         cfg.UploadsDir,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		WriteRateLimit:     5,
		WriteBurst:         20,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// newHistoryStore picks Redis-backed history when configured, in-memory
// otherwise.
func newHistoryStore(cfg *appconfig.Config, logger *logging.Logger) chat.HistoryStore {
	if cfg.RedisAddr == "" {
		logger.Info("chat history: using in-memory store")
		return chat.NewMemoryHistoryStore()
	}

	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	logger.Info("chat history: using redis store", "addr", cfg.RedisAddr)
	return chat.NewRedisHistoryStore(redis.NewClient(opts), nil)
}
