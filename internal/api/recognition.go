package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mathmate-ai/mathmate/internal/speech"
)

type recognizeRequest struct {
	Image string `json:"image"`
}

type speakRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voice_id,omitempty"`
}

// recognitionMethod labels which provider produced an expression.
const recognitionMethod = "Google AI Studio (Gemini)"

// Recognize extracts a mathematical expression from a whiteboard image.
func (h *Handler) Recognize(w http.ResponseWriter, r *http.Request) {
	var req recognizeRequest
	if err := h.decodeJSON(w, r, &req); err != nil || strings.TrimSpace(req.Image) == "" {
		Error(w, http.StatusBadRequest, "No image data provided")
		return
	}

	expression, err := h.tutor.Recognize(r.Context(), req.Image)
	if err != nil {
		slog.Error("recognition failed", "error", err)
		status, msg := providerError(err)
		JSON(w, status, map[string]interface{}{
			"success": false,
			"error":   msg,
			"method":  recognitionMethod,
		})
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"expression": expression,
		"confidence": 0.95,
		"method":     recognitionMethod,
	})
}

// Speak converts text to speech, cleaning it for natural math reading.
func (h *Handler) Speak(w http.ResponseWriter, r *http.Request) {
	var req speakRequest
	if err := h.decodeJSON(w, r, &req); err != nil || req.Text == "" {
		Error(w, http.StatusBadRequest, "No text provided")
		return
	}

	audio, err := h.synthesizeMath(r.Context(), req.Text, req.VoiceID)
	if err != nil {
		slog.Error("speech synthesis failed", "error", err)
		status, msg := providerError(err)
		Error(w, status, msg)
		return
	}

	writeAudio(w, audio, "speech.mp3")
}

// RecognizeAndSpeak runs recognition and synthesis in one call. A TTS
// failure after successful recognition is reported as a partial success
// carrying the expression.
func (h *Handler) RecognizeAndSpeak(w http.ResponseWriter, r *http.Request) {
	var req recognizeRequest
	if err := h.decodeJSON(w, r, &req); err != nil || strings.TrimSpace(req.Image) == "" {
		Error(w, http.StatusBadRequest, "No image data provided")
		return
	}

	expression, err := h.tutor.Recognize(r.Context(), req.Image)
	if err != nil {
		slog.Error("recognition failed", "error", err)
		status, msg := providerError(err)
		JSON(w, status, map[string]interface{}{"success": false, "error": msg})
		return
	}

	audio, err := h.synthesizeMath(r.Context(), expression, "")
	if err != nil {
		slog.Warn("speech generation failed after recognition", "error", err)
		JSON(w, http.StatusOK, map[string]interface{}{
			"success":      true,
			"expression":   expression,
			"speech_error": "Failed to generate speech",
		})
		return
	}

	writeAudio(w, audio, "math_speech.mp3")
}

// synthesizeMath cleans text for math-aware speech and synthesizes it.
// Voice selection is content-based unless an explicit override is given.
func (h *Handler) synthesizeMath(ctx context.Context, text, voiceOverride string) ([]byte, error) {
	voiceID := voiceOverride
	if voiceID == "" {
		voiceID = h.voices.Select(text)
	}
	return h.tts.Synthesize(ctx, speech.CleanMathExpression(text), voiceID)
}
