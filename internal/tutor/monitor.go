package tutor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mathmate-ai/mathmate/internal/domain"
	"github.com/mathmate-ai/mathmate/internal/gemini"
	"github.com/mathmate-ai/mathmate/internal/speech"
)

// stayQuietToken is the literal the model emits when it decides not to
// interrupt the student. Checked before speech normalization, which would
// split the underscore.
const stayQuietToken = "STAY_QUIET"

// AnalyzeWork recognizes a user's written work and asks the model to check
// it against the knowledge base. A model reply that is not valid JSON
// degrades to a best-effort text analysis instead of failing the request.
func (s *Service) AnalyzeWork(ctx context.Context, userID, workImage string) (*domain.WorkAnalysis, error) {
	userID = NormalizeUserID(userID)
	unlock := s.lockUser(userID)
	defer unlock()

	expression, err := s.Recognize(ctx, workImage)
	if err != nil {
		return nil, err
	}

	assembled, err := s.BuildContext(ctx, userID)
	if err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf(`You are an expert math tutor monitoring a student's work.

Knowledge base context:
%s

Student's current work: %s

Analyze this work and provide:
1. Is the work correct?
2. What errors (if any) do you see?
3. What suggestions do you have?
4. What concepts should the student focus on?

Be encouraging but precise. Format as JSON with fields: correct, errors, suggestions, concepts.`, assembled, expression)

	raw, err := s.llm.GenerateContent(ctx, []gemini.Part{gemini.Text(prompt)}, gemini.GenerationConfig{
		Temperature:     0.3,
		MaxOutputTokens: 1024,
	})
	if err != nil {
		return nil, fmt.Errorf("analyze work: %w", err)
	}

	analysis := parseWorkAnalysis(raw)

	if err := s.storeSnapshot(ctx, userID, workImage, analysis, expression); err != nil {
		return nil, err
	}

	return &analysis, nil
}

// parseWorkAnalysis decodes the model's JSON analysis, falling back to a
// degraded variant carrying the raw text when the shape is unexpected.
func parseWorkAnalysis(raw string) domain.WorkAnalysis {
	var analysis domain.WorkAnalysis
	if err := json.Unmarshal([]byte(raw), &analysis); err != nil {
		return domain.FallbackAnalysis(raw)
	}
	if analysis.Correct == "" {
		analysis.Correct = "Unknown"
	}
	return analysis
}

func (s *Service) storeSnapshot(ctx context.Context, userID, workImage string, analysis domain.WorkAnalysis, summary string) error {
	snapshot := &domain.WorkSnapshot{
		UserID:    userID,
		Image:     workImage,
		Analysis:  analysis,
		Summary:   summary,
		Token:     uuid.NewString(),
		UpdatedAt: time.Now(),
	}
	if err := s.repo.PutWorkSnapshot(ctx, snapshot); err != nil {
		return fmt.Errorf("store work snapshot: %w", err)
	}
	return nil
}

// ReviewRequest is one continuous-monitoring tick.
type ReviewRequest struct {
	UserID       string
	WorkImage    string
	PreviousWork string
}

// ReviewResult is the classmate's decision for one monitoring tick.
type ReviewResult struct {
	ShouldSpeak bool
	Message     string
	Expression  string
}

// ClassmateReview looks at the student's current work as a curious
// classmate and decides whether to say something. Provider failures after
// recognition degrade to a silent tick rather than an error: a missed
// interjection is acceptable, a failed monitoring loop is not.
func (s *Service) ClassmateReview(ctx context.Context, req ReviewRequest) (*ReviewResult, error) {
	userID := NormalizeUserID(req.UserID)
	unlock := s.lockUser(userID)
	defer unlock()

	expression, err := s.Recognize(ctx, req.WorkImage)
	if err != nil {
		return nil, err
	}

	// Narrow hardcoded shortcut from the reference deployment; not a
	// general arithmetic checker.
	if strings.Contains(expression, "4+6=11") || strings.Contains(expression, "4 + 6 = 11") {
		result := &ReviewResult{
			ShouldSpeak: true,
			Message:     "Wait, I think there might be a mistake here. What do you think 4 + 6 equals?",
			Expression:  expression,
		}
		if err := s.storeReview(ctx, userID, req.WorkImage, result); err != nil {
			return nil, err
		}
		return result, nil
	}

	assembled, err := s.contextWithScreen(ctx, userID)
	if err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf(`%s

Current work: %s
Previous work: %s
Knowledge context: %s

Respond with ONLY your response as either a curious co-student or expert tutor. Keep it natural and conversational. If you should stay quiet, respond with "STAY_QUIET".`,
		personaInstructions, expression, req.PreviousWork, assembled)

	raw, err := s.llm.GenerateContent(ctx, []gemini.Part{gemini.Text(prompt)}, gemini.GenerationConfig{
		Temperature:     0.7,
		MaxOutputTokens: 100,
	})

	result := &ReviewResult{Expression: expression}
	if err != nil {
		slog.Warn("classmate review generation failed", "user_id", userID, "error", err)
	} else if trimmed := strings.TrimSpace(raw); trimmed != stayQuietToken {
		result.ShouldSpeak = true
		result.Message = speech.NormalizeReply(trimmed)
	}

	if err := s.storeReview(ctx, userID, req.WorkImage, result); err != nil {
		return nil, err
	}

	return result, nil
}

func (s *Service) storeReview(ctx context.Context, userID, workImage string, result *ReviewResult) error {
	analysis := domain.WorkAnalysis{Correct: "Unknown", Errors: []string{}, Suggestions: []string{}, Concepts: []string{}}
	if result.ShouldSpeak {
		analysis.Suggestions = []string{result.Message}
	}
	return s.storeSnapshot(ctx, userID, workImage, analysis, result.Expression)
}
