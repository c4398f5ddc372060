package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mathmate-ai/mathmate/internal/tutor"
)

type chatRequest struct {
	Message      string `json:"message"`
	UserID       string `json:"user_id,omitempty"`
	IncludeVoice bool   `json:"include_voice,omitempty"`
	ScreenImage  string `json:"screen_image,omitempty"`
}

// Chat handles one conversational turn, optionally returning the reply as
// audio instead of text.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := h.decodeJSON(w, r, &req); err != nil || req.Message == "" {
		Error(w, http.StatusBadRequest, "No message provided")
		return
	}

	result, err := h.tutor.Chat(r.Context(), tutor.ChatRequest{
		UserID:      req.UserID,
		Message:     req.Message,
		ScreenImage: req.ScreenImage,
	})
	if err != nil {
		slog.Error("chat failed", "user_id", tutor.NormalizeUserID(req.UserID), "error", err)
		status, msg := providerError(err)
		Error(w, status, msg)
		return
	}

	if req.IncludeVoice {
		audio, err := h.synthesizeMath(r.Context(), result.Reply, "")
		if err != nil {
			slog.Warn("voice generation failed, returning text reply", "error", err)
		} else {
			writeAudio(w, audio, "ai_response.mp3")
			return
		}
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"response":     result.Reply,
		"context_used": result.ContextUsed,
	})
}

type monitorRequest struct {
	WorkImage    string `json:"work_image"`
	UserID       string `json:"user_id,omitempty"`
	PreviousWork string `json:"previous_work,omitempty"`
	IncludeVoice *bool  `json:"include_voice,omitempty"`
	VoiceID      string `json:"voice_id,omitempty"`
}

// MonitorWork analyzes a snapshot of the user's written work for errors.
func (h *Handler) MonitorWork(w http.ResponseWriter, r *http.Request) {
	var req monitorRequest
	if err := h.decodeJSON(w, r, &req); err != nil || strings.TrimSpace(req.WorkImage) == "" {
		Error(w, http.StatusBadRequest, "No work image provided")
		return
	}

	analysis, err := h.tutor.AnalyzeWork(r.Context(), req.UserID, req.WorkImage)
	if err != nil {
		slog.Error("work monitoring failed", "user_id", tutor.NormalizeUserID(req.UserID), "error", err)
		status, msg := providerError(err)
		Error(w, status, msg)
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"success":         true,
		"analysis":        analysis,
		"suggestions":     analysis.Suggestions,
		"errors_detected": analysis.Errors,
	})
}

// ContinuousMonitor is the real-time classmate loop: it reviews the
// current work, decides whether to interject, and speaks when asked to.
func (h *Handler) ContinuousMonitor(w http.ResponseWriter, r *http.Request) {
	var req monitorRequest
	if err := h.decodeJSON(w, r, &req); err != nil || strings.TrimSpace(req.WorkImage) == "" {
		Error(w, http.StatusBadRequest, "No work image provided")
		return
	}

	// Voice defaults to on for the monitoring loop.
	includeVoice := true
	if req.IncludeVoice != nil {
		includeVoice = *req.IncludeVoice
	}

	result, err := h.tutor.ClassmateReview(r.Context(), tutor.ReviewRequest{
		UserID:       req.UserID,
		WorkImage:    req.WorkImage,
		PreviousWork: req.PreviousWork,
	})
	if err != nil {
		slog.Error("continuous monitoring failed", "user_id", tutor.NormalizeUserID(req.UserID), "error", err)
		status, msg := providerError(err)
		Error(w, status, msg)
		return
	}

	if result.ShouldSpeak && includeVoice {
		audio, err := h.synthesizeMath(r.Context(), result.Message, req.VoiceID)
		if err != nil {
			slog.Warn("classmate voice generation failed", "error", err)
		} else {
			writeAudio(w, audio, "ai_classmate.mp3")
			return
		}
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"should_speak": result.ShouldSpeak,
		"message":      result.Message,
		"expression":   result.Expression,
		"timestamp":    uuid.NewString(),
	})
}

type screenShareRequest struct {
	Image  string `json:"image"`
	UserID string `json:"user_id,omitempty"`
}

// ScreenShareInit accepts a one-time screenshot of the question the user
// is working on and stores a model-generated summary as their context.
func (h *Handler) ScreenShareInit(w http.ResponseWriter, r *http.Request) {
	var req screenShareRequest
	if err := h.decodeJSON(w, r, &req); err != nil || strings.TrimSpace(req.Image) == "" {
		Error(w, http.StatusBadRequest, "No image provided")
		return
	}

	start := time.Now()
	summary, err := h.tutor.SummarizeScreen(r.Context(), req.UserID, req.Image)
	if err != nil {
		slog.Error("screen share init failed", "user_id", tutor.NormalizeUserID(req.UserID), "error", err)
		status, msg := providerError(err)
		JSON(w, status, map[string]interface{}{"success": false, "error": msg})
		return
	}

	slog.Info("screen share summarized",
		"user_id", tutor.NormalizeUserID(req.UserID),
		"duration", time.Since(start))

	JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"summary": summary,
	})
}
