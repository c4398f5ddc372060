// Package api provides HTTP handlers for the MathMate API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mathmate-ai/mathmate/internal/config"
	"github.com/mathmate-ai/mathmate/internal/gemini"
	"github.com/mathmate-ai/mathmate/internal/speech"
	"github.com/mathmate-ai/mathmate/internal/store"
	"github.com/mathmate-ai/mathmate/internal/tutor"
)

// Synthesizer renders text to audio. Satisfied by *speech.Client.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
	Configured() bool
}

// Handler holds the dependencies shared by all endpoints.
type Handler struct {
	cfg    *config.Config
	repo   store.Repository
	tutor  *tutor.Service
	tts    Synthesizer
	llm    *gemini.Client
	voices speech.Voices
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(cfg *config.Config, repo store.Repository, svc *tutor.Service, tts Synthesizer, llm *gemini.Client) *Handler {
	return &Handler{
		cfg:   cfg,
		repo:  repo,
		tutor: svc,
		tts:   tts,
		llm:   llm,
		voices: speech.Voices{
			Tutor:     cfg.Voices.Tutor,
			CoStudent: cfg.Voices.CoStudent,
		},
	}
}

// RegisterRoutes registers all API routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/recognize", h.Recognize)
		r.Post("/speak", h.Speak)
		r.Post("/recognize-and-speak", h.RecognizeAndSpeak)
		r.Post("/chat", h.Chat)
		r.Post("/monitor-work", h.MonitorWork)
		r.Post("/continuous-monitor", h.ContinuousMonitor)
		r.Post("/screen-share-init", h.ScreenShareInit)
		r.Post("/upload-document", h.UploadDocument)
		r.Get("/user-profile", h.GetUserProfile)
		r.Post("/user-profile/update", h.UpdateUserProfile)
		r.Get("/health", h.Health)
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// decodeJSON reads a size-capped JSON request body into v.
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

// providerError maps upstream provider failures to an HTTP status and a
// client-facing message. Provider errors become 502 with the upstream
// status; everything else is an internal error.
func providerError(err error) (int, string) {
	var geminiErr *gemini.APIError
	if errors.As(err, &geminiErr) {
		return http.StatusBadGateway, fmt.Sprintf("Gemini API error: %d", geminiErr.StatusCode)
	}
	var ttsErr *speech.APIError
	if errors.As(err, &ttsErr) {
		return http.StatusBadGateway, fmt.Sprintf("ElevenLabs API error: %d", ttsErr.StatusCode)
	}
	if errors.Is(err, gemini.ErrNoCandidates) {
		return http.StatusBadGateway, "Failed to get AI response"
	}
	return http.StatusInternalServerError, err.Error()
}

// writeAudio sends MP3 audio as a file attachment.
func writeAudio(w http.ResponseWriter, audio []byte, filename string) {
	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(audio); err != nil {
		// Too late for an error response; the client sees a short body.
		return
	}
}
