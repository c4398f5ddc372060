package tutor

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/mathmate-ai/mathmate/internal/domain"
	"github.com/mathmate-ai/mathmate/internal/gemini"
	"github.com/mathmate-ai/mathmate/internal/speech"
	"github.com/mathmate-ai/mathmate/internal/vision"
)

// contextPreview caps the context echo returned to chat clients.
const contextPreview = 200

// ChatRequest is one conversational turn from a user.
type ChatRequest struct {
	UserID      string
	Message     string
	ScreenImage string // optional data-URI screenshot attached to the prompt
}

// ChatResult is the tutor's reply plus a preview of the context it saw.
type ChatResult struct {
	Reply       string
	ContextUsed string
}

// Chat runs one conversational turn: assemble context, call the model,
// normalize the reply for speech, and append the turn to history.
func (s *Service) Chat(ctx context.Context, req ChatRequest) (*ChatResult, error) {
	userID := NormalizeUserID(req.UserID)
	unlock := s.lockUser(userID)
	defer unlock()

	assembled, err := s.contextWithScreen(ctx, userID)
	if err != nil {
		return nil, err
	}

	turns, err := s.repo.RecentTurns(ctx, userID, historyWindow)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	parts := []gemini.Part{gemini.Text(buildChatPrompt(assembled, turns, req.Message))}
	if strings.TrimSpace(req.ScreenImage) != "" {
		parts = append(parts, gemini.InlineImage("image/png", vision.StripDataURI(req.ScreenImage)))
	}

	raw, err := s.llm.GenerateContent(ctx, parts, gemini.GenerationConfig{
		Temperature:     0.7,
		MaxOutputTokens: 1024,
	})
	if err != nil {
		return nil, fmt.Errorf("chat generation: %w", err)
	}

	reply := speech.NormalizeReply(raw)

	turn := &domain.Turn{
		UserID:    userID,
		User:      req.Message,
		Assistant: reply,
		Token:     uuid.NewString(),
		CreatedAt: time.Now(),
	}
	if err := s.repo.AppendTurn(ctx, turn); err != nil {
		return nil, fmt.Errorf("append turn: %w", err)
	}

	// Truncate on a rune boundary; document text is not ASCII-filtered.
	preview := assembled
	if len(preview) > contextPreview {
		cut := contextPreview
		for cut > 0 && !utf8.RuneStart(preview[cut]) {
			cut--
		}
		preview = preview[:cut] + "..."
	}

	return &ChatResult{Reply: reply, ContextUsed: preview}, nil
}
