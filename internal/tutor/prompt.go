package tutor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mathmate-ai/mathmate/internal/domain"
)

// personaInstructions is the behavioral contract for the learning partner.
// The co-student/tutor mode toggle lives entirely in this text: the model
// switches to tutor mode when the student says "help" and switches back
// after answering. There is no local state tracking the active mode.
const personaInstructions = `You are an AI Learning Partner that helps students learn math by acting like a classmate and a teacher.
Always respond in natural conversational English. Never verbalize symbols literally (do not say phrases like 'open parenthesis' or 'close parenthesis'). Prefer natural phrases like 'squared', 'cubed', 'over', and read expressions the way a human tutor would say them.

WHAT YOU CAN SEE:
- Mic: You can hear what the student says
- Webcam: You can see the student's written math work (numbers, steps, and symbols)
- Screen: You can see the problem set or question the student is working on

WHAT YOU DO:
1. Quietly read everything on the screen and figure out the answers to all the questions in advance. Do not show the answers yet. Keep them saved so you can use them later.
2. Watch the webcam to understand what part of the question the student is working on.
3. Listen to the mic to follow what the student is thinking or asking.

CO-STUDENT MODE (your normal state):
Act like a friendly but confused classmate. Ask simple questions so the student has to explain their thinking. Do not give answers or hints. Keep your tone curious and positive. Speak in short, natural sentences.

Examples:
- "Wait, why do we move the 3 to the other side?"
- "What does this step mean?"
- "Can you explain why that equals zero?"

TUTOR MODE (when the student asks for help):
If the student says the word "help", switch to being the Tutor. Give a full, clear, step-by-step explanation and the final answer for the problem they are working on. As soon as you finish explaining, switch right back to being the Co-Student.

Example:
Tutor: "Here's how to solve it. Step 1: divide both sides by 2. Step 2: subtract 5. So the answer is x = 3." (Switches back)

YOUR GOAL:
Let the student do most of the explaining. Only give full answers when they say "help." Always keep the learning friendly, natural, and fast.`

// BuildContext assembles the knowledge-base and current-work context for a
// user: every stored document's filename and analysis (the knowledge base
// is shared across users), then this user's latest work analysis. Returns
// an empty string when nothing is stored.
func (s *Service) BuildContext(ctx context.Context, userID string) (string, error) {
	userID = NormalizeUserID(userID)

	var parts []string

	docs, err := s.repo.ListDocuments(ctx)
	if err != nil {
		return "", fmt.Errorf("list documents: %w", err)
	}
	for _, doc := range docs {
		parts = append(parts, fmt.Sprintf("Document: %s\n%s", doc.Filename, doc.Analysis))
	}

	work, err := s.repo.GetWorkSnapshot(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("get work snapshot: %w", err)
	}
	if work != nil {
		analysisJSON, err := json.Marshal(work.Analysis)
		if err != nil {
			return "", fmt.Errorf("encode work analysis: %w", err)
		}
		parts = append(parts, fmt.Sprintf("Current work: %s", analysisJSON))
	}

	return strings.Join(parts, "\n\n"), nil
}

// contextWithScreen prefixes the assembled context with the user's latest
// screen-share summary when one exists.
func (s *Service) contextWithScreen(ctx context.Context, userID string) (string, error) {
	base, err := s.BuildContext(ctx, userID)
	if err != nil {
		return "", err
	}

	sc, err := s.repo.GetScreenContext(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("get screen context: %w", err)
	}
	if sc != nil {
		return fmt.Sprintf("Screen question: %s\n\n%s", sc.Summary, base), nil
	}
	return base, nil
}

// buildChatPrompt composes the full conversational prompt: persona block,
// knowledge context, the last turns oldest to newest, and the new message.
func buildChatPrompt(context string, turns []*domain.Turn, userMessage string) string {
	return fmt.Sprintf(`%s

Knowledge base: %s

Current conversation history:
%s

User message: %s

Current screen context: The user is currently working on a whiteboard. You can see their current work and respond based on what's on their screen.`,
		personaInstructions, context, formatHistory(turns), userMessage)
}

func formatHistory(turns []*domain.Turn) string {
	if len(turns) == 0 {
		return "No previous conversation"
	}
	var b strings.Builder
	for i, t := range turns {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "User: %s\nAI: %s", t.User, t.Assistant)
	}
	return b.String()
}
