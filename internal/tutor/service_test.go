package tutor

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/png"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/mathmate-ai/mathmate/internal/domain"
	"github.com/mathmate-ai/mathmate/internal/gemini"
	"github.com/mathmate-ai/mathmate/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGenerator returns queued replies in order and records the prompts it
// received. A non-nil err takes precedence over replies.
type fakeGenerator struct {
	mu      sync.Mutex
	replies []string
	err     error
	prompts []string
}

func (f *fakeGenerator) GenerateContent(_ context.Context, parts []gemini.Part, _ gemini.GenerationConfig) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(parts) > 0 {
		f.prompts = append(f.prompts, parts[0].Text)
	}
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "", gemini.ErrNoCandidates
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply, nil
}

func newTestService(t *testing.T, gen *fakeGenerator) (*Service, store.Repository) {
	t.Helper()
	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "tutor.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := repo.Close(); err != nil {
			t.Errorf("Failed to close store: %v", err)
		}
	})
	return NewService(repo, gen), repo
}

func testImagePayload(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestNormalizeUserID(t *testing.T) {
	assert.Equal(t, DefaultUserID, NormalizeUserID(""))
	assert.Equal(t, "alice", NormalizeUserID("alice"))
}

func TestProfileCreatedOnFirstAccess(t *testing.T) {
	svc, repo := newTestService(t, &fakeGenerator{})
	ctx := context.Background()

	p, err := svc.Profile(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, DefaultUserID, p.UserID)

	stored, err := repo.GetProfile(ctx, DefaultUserID)
	require.NoError(t, err)
	require.NotNil(t, stored, "first access should persist the profile")
}

func TestUpdateProfileConcurrent(t *testing.T) {
	svc, _ := newTestService(t, &fakeGenerator{})
	ctx := context.Background()

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.UpdateProfile(ctx, "alice", domain.ProfileUpdate{Hint: true})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	p, err := svc.Profile(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, workers, p.CorrectiveHints, "no concurrent update should be lost")
}

func TestBuildContext(t *testing.T) {
	svc, repo := newTestService(t, &fakeGenerator{})
	ctx := context.Background()

	got, err := svc.BuildContext(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "", got, "empty store should yield empty context")

	require.NoError(t, repo.PutDocument(ctx, &domain.Document{
		ID: "d1", Filename: "algebra.pdf", Content: "c", Analysis: "Covers factoring", Token: "t",
	}))
	require.NoError(t, repo.PutWorkSnapshot(ctx, &domain.WorkSnapshot{
		UserID: "alice", Image: "img", Summary: "x + 1 = 2", Token: "t",
		Analysis: domain.WorkAnalysis{
			Correct:     "Yes",
			Errors:      []string{},
			Suggestions: []string{"keep going"},
			Concepts:    []string{"algebra"},
		},
	}))

	got, err = svc.BuildContext(ctx, "alice")
	require.NoError(t, err)
	assert.Contains(t, got, "Document: algebra.pdf\nCovers factoring")
	assert.Contains(t, got, `Current work: {"correct":"Yes"`, "prompts should carry the stored analysis, not the raw expression")
	assert.Contains(t, got, `"keep going"`)

	// The work snapshot belongs to alice only; documents are shared.
	got, err = svc.BuildContext(ctx, "bob")
	require.NoError(t, err)
	assert.Contains(t, got, "Document: algebra.pdf")
	assert.NotContains(t, got, "Current work:")
}

func TestFormatHistory(t *testing.T) {
	assert.Equal(t, "No previous conversation", formatHistory(nil))

	turns := []*domain.Turn{
		{User: "what is 2+2", Assistant: "What do you think it is?"},
		{User: "4", Assistant: "Sounds right to me!"},
	}
	want := "User: what is 2+2\nAI: What do you think it is?\nUser: 4\nAI: Sounds right to me!"
	assert.Equal(t, want, formatHistory(turns))
}

func TestChat(t *testing.T) {
	gen := &fakeGenerator{replies: []string{"So x = 3, right?"}}
	svc, repo := newTestService(t, gen)
	ctx := context.Background()

	result, err := svc.Chat(ctx, ChatRequest{UserID: "alice", Message: "I solved it"})
	require.NoError(t, err)
	assert.Equal(t, "So x equals 3, right?", result.Reply, "reply should be speech-normalized")

	turns, err := repo.RecentTurns(ctx, "alice", 5)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "I solved it", turns[0].User)
	assert.Equal(t, result.Reply, turns[0].Assistant)
	assert.NotEmpty(t, turns[0].Token)

	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "User message: I solved it")
	assert.Contains(t, gen.prompts[0], "No previous conversation")
}

func TestChatIncludesHistoryAndScreenContext(t *testing.T) {
	gen := &fakeGenerator{replies: []string{"first", "second"}}
	svc, repo := newTestService(t, gen)
	ctx := context.Background()

	require.NoError(t, repo.PutScreenContext(ctx, &domain.ScreenContext{
		UserID: "alice", Summary: "Solve 2x = 6",
	}))

	_, err := svc.Chat(ctx, ChatRequest{UserID: "alice", Message: "turn one"})
	require.NoError(t, err)
	_, err = svc.Chat(ctx, ChatRequest{UserID: "alice", Message: "turn two"})
	require.NoError(t, err)

	require.Len(t, gen.prompts, 2)
	assert.Contains(t, gen.prompts[1], "Screen question: Solve 2x = 6")
	assert.Contains(t, gen.prompts[1], "User: turn one")
}

func TestChatContextPreviewTruncated(t *testing.T) {
	gen := &fakeGenerator{replies: []string{"ok"}}
	svc, repo := newTestService(t, gen)
	ctx := context.Background()

	long := make([]byte, 500)
	for i := range long {
		long[i] = 'a'
	}
	require.NoError(t, repo.PutDocument(ctx, &domain.Document{
		ID: "d1", Filename: "big.txt", Content: "c", Analysis: string(long), Token: "t",
	}))

	result, err := svc.Chat(ctx, ChatRequest{UserID: "alice", Message: "hi"})
	require.NoError(t, err)
	assert.Len(t, result.ContextUsed, contextPreview+3)
	assert.True(t, len(result.ContextUsed) < 500)
}

func TestChatContextPreviewRuneBoundary(t *testing.T) {
	gen := &fakeGenerator{replies: []string{"ok"}}
	svc, repo := newTestService(t, gen)
	ctx := context.Background()

	// Three-byte runes positioned so a byte-indexed cut would land mid-rune.
	require.NoError(t, repo.PutDocument(ctx, &domain.Document{
		ID: "d1", Filename: "notes1.txt", Content: "c",
		Analysis: strings.Repeat("→", 120), Token: "t",
	}))

	result, err := svc.Chat(ctx, ChatRequest{UserID: "alice", Message: "hi"})
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(result.ContextUsed), "preview must stay valid UTF-8")
	assert.True(t, strings.HasSuffix(result.ContextUsed, "..."))
	assert.True(t, len(result.ContextUsed) <= contextPreview+3)
}

func TestAnalyzeWork(t *testing.T) {
	gen := &fakeGenerator{replies: []string{
		"2x + 3 = 11",
		`{"correct":"Yes","errors":[],"suggestions":["Keep going"],"concepts":["linear equations"]}`,
	}}
	svc, repo := newTestService(t, gen)
	ctx := context.Background()

	analysis, err := svc.AnalyzeWork(ctx, "alice", testImagePayload(t))
	require.NoError(t, err)
	assert.Equal(t, "Yes", analysis.Correct)
	assert.Equal(t, []string{"Keep going"}, analysis.Suggestions)
	assert.False(t, analysis.Degraded)

	ws, err := repo.GetWorkSnapshot(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, ws)
	assert.Equal(t, "2x + 3 = 11", ws.Summary)
}

func TestAnalyzeWorkDegradesOnBadJSON(t *testing.T) {
	gen := &fakeGenerator{replies: []string{
		"x = 5",
		"The work looks fine to me.",
	}}
	svc, _ := newTestService(t, gen)

	analysis, err := svc.AnalyzeWork(context.Background(), "alice", testImagePayload(t))
	require.NoError(t, err)
	assert.True(t, analysis.Degraded)
	assert.Equal(t, "Unknown", analysis.Correct)
	assert.Equal(t, []string{"The work looks fine to me."}, analysis.Suggestions)
}

func TestParseWorkAnalysisDefaultsCorrect(t *testing.T) {
	analysis := parseWorkAnalysis(`{"errors":["off by one"]}`)
	assert.Equal(t, "Unknown", analysis.Correct)
	assert.False(t, analysis.Degraded)
}

func TestParseWorkAnalysisBooleanCorrect(t *testing.T) {
	analysis := parseWorkAnalysis(`{"correct": true, "errors": [], "suggestions": ["nice work"], "concepts": ["addition"]}`)
	assert.False(t, analysis.Degraded, "a structured reply must not hit the degraded fallback")
	assert.Equal(t, "Yes", analysis.Correct)
	assert.Equal(t, []string{"nice work"}, analysis.Suggestions)

	analysis = parseWorkAnalysis(`{"correct": false, "errors": ["4+6 is 10"]}`)
	assert.False(t, analysis.Degraded)
	assert.Equal(t, "No", analysis.Correct)
}

func TestClassmateReviewShortcut(t *testing.T) {
	gen := &fakeGenerator{replies: []string{"4+6=11"}}
	svc, repo := newTestService(t, gen)
	ctx := context.Background()

	result, err := svc.ClassmateReview(ctx, ReviewRequest{UserID: "alice", WorkImage: testImagePayload(t)})
	require.NoError(t, err)
	assert.True(t, result.ShouldSpeak)
	assert.Contains(t, result.Message, "What do you think 4 + 6 equals?")
	assert.Equal(t, "4+6=11", result.Expression)

	// The shortcut must not consume a second model call.
	assert.Len(t, gen.prompts, 1)

	ws, err := repo.GetWorkSnapshot(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, ws)
	assert.Equal(t, "4+6=11", ws.Summary)
}

func TestClassmateReviewStayQuiet(t *testing.T) {
	gen := &fakeGenerator{replies: []string{"x^2 = 16", "  STAY_QUIET  "}}
	svc, _ := newTestService(t, gen)

	result, err := svc.ClassmateReview(context.Background(), ReviewRequest{UserID: "alice", WorkImage: testImagePayload(t)})
	require.NoError(t, err)
	assert.False(t, result.ShouldSpeak)
	assert.Empty(t, result.Message)
	assert.Equal(t, "x^2 = 16", result.Expression)
}

func TestClassmateReviewSpeaks(t *testing.T) {
	gen := &fakeGenerator{replies: []string{"x^2 = 16", "Wait, how did you get that?"}}
	svc, _ := newTestService(t, gen)

	result, err := svc.ClassmateReview(context.Background(), ReviewRequest{UserID: "alice", WorkImage: testImagePayload(t)})
	require.NoError(t, err)
	assert.True(t, result.ShouldSpeak)
	assert.Equal(t, "Wait, how did you get that?", result.Message)
}

func TestClassmateReviewDegradesOnGenerationFailure(t *testing.T) {
	gen := &fakeGenerator{replies: []string{"x^2 = 16"}}
	svc, _ := newTestService(t, gen)

	// The queue is empty for the review call, so generation fails after
	// recognition succeeded. The tick stays silent instead of erroring.
	result, err := svc.ClassmateReview(context.Background(), ReviewRequest{UserID: "alice", WorkImage: testImagePayload(t)})
	require.NoError(t, err)
	assert.False(t, result.ShouldSpeak)
	assert.Equal(t, "x^2 = 16", result.Expression)
}

func TestClassmateReviewRecognitionFailureIsAnError(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("provider down")}
	svc, _ := newTestService(t, gen)

	_, err := svc.ClassmateReview(context.Background(), ReviewRequest{UserID: "alice", WorkImage: testImagePayload(t)})
	assert.Error(t, err)
}

func TestSummarizeScreen(t *testing.T) {
	gen := &fakeGenerator{replies: []string{"  Solve for x in 2x + 3 = 11  "}}
	svc, repo := newTestService(t, gen)
	ctx := context.Background()

	summary, err := svc.SummarizeScreen(ctx, "alice", testImagePayload(t))
	require.NoError(t, err)
	assert.Equal(t, "Solve for x in 2x + 3 = 11", summary)

	sc, err := repo.GetScreenContext(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, sc)
	assert.Equal(t, summary, sc.Summary)
}

func TestSummarizeScreenEmptyFallback(t *testing.T) {
	gen := &fakeGenerator{replies: []string{"   "}}
	svc, _ := newTestService(t, gen)

	summary, err := svc.SummarizeScreen(context.Background(), "alice", testImagePayload(t))
	require.NoError(t, err)
	assert.Equal(t, screenSummaryFallback, summary)
}

func TestIngestDocument(t *testing.T) {
	gen := &fakeGenerator{replies: []string{`{"concepts":["fractions"]}`}}
	svc, repo := newTestService(t, gen)
	ctx := context.Background()

	doc, err := svc.IngestDocument(ctx, "fractions.pdf", "How to add fractions")
	require.NoError(t, err)
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, "fractions.pdf", doc.Filename)
	assert.Equal(t, "How to add fractions", doc.Content)
	assert.Equal(t, `{"concepts":["fractions"]}`, doc.Analysis)

	docs, err := repo.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "Document: fractions.pdf")
}
