// MathMate - AI math co-student/tutor server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/mathmate-ai/mathmate/internal/api"
	"github.com/mathmate-ai/mathmate/internal/config"
	"github.com/mathmate-ai/mathmate/internal/gemini"
	"github.com/mathmate-ai/mathmate/internal/middleware"
	"github.com/mathmate-ai/mathmate/internal/speech"
	"github.com/mathmate-ai/mathmate/internal/store"
	"github.com/mathmate-ai/mathmate/internal/tutor"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	llm := gemini.NewClient(cfg.Gemini)
	tts := speech.NewClient(cfg.ElevenLabs)

	// Probe Gemini once on startup. A failed probe is not fatal; requests
	// will surface provider errors individually.
	if !llm.Configured() {
		slog.Warn("GEMINI_API_KEY not set, recognition and chat will fail")
	} else {
		probeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := llm.Ping(probeCtx); err != nil {
			slog.Warn("Gemini connection check failed", "error", err)
		} else {
			slog.Info("Gemini connection verified")
		}
		cancel()
	}
	if !tts.Configured() {
		slog.Warn("ELEVENLABS_API_KEY not set, speech synthesis will fail")
	}

	svc := tutor.NewService(repo, llm)
	handler := api.NewHandler(cfg, repo, svc, tts, llm)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))

	handler.RegisterRoutes(r)

	// Create server. Write timeout stays generous: synthesis responses
	// carry whole MP3 payloads.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
