package tutor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mathmate-ai/mathmate/internal/domain"
	"github.com/mathmate-ai/mathmate/internal/gemini"
	"github.com/mathmate-ai/mathmate/internal/vision"
)

// screenSummaryFallback is stored when the model returns an empty summary.
const screenSummaryFallback = "Question captured, but summary unavailable."

const screenSummaryInstruction = `You are an expert math tutor. Read the screenshot of the problem set/question and summarize:
- The main problem(s) being asked (short)
- Key given information
- What the student likely needs to compute or prove
Return a concise, plain-English summary with no extra commentary.`

// SummarizeScreen analyzes a one-shot screenshot of the problem the user is
// working on and stores the summary as their screen-share context. The
// previous summary, if any, is overwritten.
func (s *Service) SummarizeScreen(ctx context.Context, userID, imagePayload string) (string, error) {
	userID = NormalizeUserID(userID)
	unlock := s.lockUser(userID)
	defer unlock()

	prepared, err := vision.PrepareForModel(imagePayload)
	if err != nil {
		return "", fmt.Errorf("prepare image: %w", err)
	}

	raw, err := s.llm.GenerateContent(ctx,
		[]gemini.Part{
			gemini.Text(screenSummaryInstruction),
			gemini.InlineImage("image/png", prepared),
		},
		gemini.GenerationConfig{
			Temperature:     0.2,
			MaxOutputTokens: 512,
		},
	)
	if err != nil {
		return "", fmt.Errorf("summarize screen: %w", err)
	}

	summary := strings.TrimSpace(raw)
	if summary == "" {
		summary = screenSummaryFallback
	}

	sc := &domain.ScreenContext{
		UserID:    userID,
		Summary:   summary,
		UpdatedAt: time.Now(),
	}
	if err := s.repo.PutScreenContext(ctx, sc); err != nil {
		return "", fmt.Errorf("store screen context: %w", err)
	}

	return summary, nil
}
