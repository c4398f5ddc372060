package tutor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mathmate-ai/mathmate/internal/domain"
	"github.com/mathmate-ai/mathmate/internal/gemini"
)

// analysisExcerpt caps how much document text is sent for analysis.
const analysisExcerpt = 2000

// IngestDocument analyzes extracted document text and stores it in the
// shared knowledge base. Documents are never updated or deleted.
func (s *Service) IngestDocument(ctx context.Context, filename, content string) (*domain.Document, error) {
	excerpt := content
	if len(excerpt) > analysisExcerpt {
		excerpt = excerpt[:analysisExcerpt]
	}

	prompt := fmt.Sprintf(`Analyze this mathematical document and create a structured knowledge base entry.

Document: %s
Content: %s...

Please provide:
1. Key mathematical concepts covered
2. Important formulas and equations
3. Problem-solving methods
4. Common mistakes to watch for
5. Learning objectives

Format as structured JSON for an AI tutor.`, filename, excerpt)

	analysis, err := s.llm.GenerateContent(ctx, []gemini.Part{gemini.Text(prompt)}, gemini.GenerationConfig{
		Temperature:     0.3,
		MaxOutputTokens: 2048,
	})
	if err != nil {
		return nil, fmt.Errorf("analyze document: %w", err)
	}

	doc := &domain.Document{
		ID:         uuid.NewString(),
		Filename:   filename,
		Content:    content,
		Analysis:   analysis,
		Token:      uuid.NewString(),
		UploadedAt: time.Now(),
	}
	if err := s.repo.PutDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("store document: %w", err)
	}

	return doc, nil
}
