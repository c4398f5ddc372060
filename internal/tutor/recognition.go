package tutor

import (
	"context"
	"fmt"
	"strings"

	"github.com/mathmate-ai/mathmate/internal/gemini"
	"github.com/mathmate-ai/mathmate/internal/vision"
)

// UnparsedExpression is returned when the model replied but no line of its
// response qualified as an expression.
const UnparsedExpression = "Mathematical expression detected but could not be parsed"

const recognitionInstruction = "Look at this image and identify the mathematical expression. " +
	"Return ONLY the expression in clean LaTeX or plain math text. " +
	"Use normal English naming where needed (e.g., squared, cubed) and DO NOT write phrases " +
	"like 'open parenthesis' or 'close parenthesis'. Do not include explanations or any extra text."

// Recognize extracts the mathematical expression written in an image. The
// image arrives as a data-URI or bare base64 payload.
func (s *Service) Recognize(ctx context.Context, imagePayload string) (string, error) {
	prepared, err := vision.PrepareForModel(imagePayload)
	if err != nil {
		return "", fmt.Errorf("prepare image: %w", err)
	}

	response, err := s.llm.GenerateContent(ctx,
		[]gemini.Part{
			gemini.Text(recognitionInstruction),
			gemini.InlineImage("image/png", prepared),
		},
		gemini.GenerationConfig{
			Temperature:     0.1,
			TopK:            1,
			TopP:            0.8,
			MaxOutputTokens: 1024,
		},
	)
	if err != nil {
		return "", fmt.Errorf("recognize expression: %w", err)
	}

	return extractExpression(response), nil
}

// extractExpression picks "the expression" out of a multi-line model
// response: the first non-empty line that is not boilerplate, with any
// "LaTeX:"/"Expression:" label stripped. Failing that, the first line
// longer than 3 characters that is not an instruction echo. Failing that,
// a fixed sentinel.
func extractExpression(response string) string {
	lines := strings.Split(response, "\n")

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "No mathematical") || len(line) <= 2 {
			continue
		}
		if strings.Contains(line, "LaTeX:") {
			return strings.TrimSpace(strings.ReplaceAll(line, "LaTeX:", ""))
		}
		if strings.Contains(line, "Expression:") {
			return strings.TrimSpace(strings.ReplaceAll(line, "Expression:", ""))
		}
		if !strings.HasPrefix(line, "1.") && !strings.HasPrefix(line, "2.") && !strings.HasPrefix(line, "3.") {
			return line
		}
	}

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if len(line) > 3 && !strings.HasPrefix(line, "Please") && !strings.HasPrefix(line, "Focus") {
			return line
		}
	}

	return UnparsedExpression
}
