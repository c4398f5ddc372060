// Package tutor assembles per-user context, talks to the language model,
// and maintains learning profiles.
package tutor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mathmate-ai/mathmate/internal/domain"
	"github.com/mathmate-ai/mathmate/internal/gemini"
	"github.com/mathmate-ai/mathmate/internal/store"
)

// DefaultUserID is the sentinel applied when a request names no user.
const DefaultUserID = "default"

// historyWindow is how many recent turns are injected into prompts.
const historyWindow = 5

// Generator is the language-model dependency. Satisfied by *gemini.Client.
type Generator interface {
	GenerateContent(ctx context.Context, parts []gemini.Part, cfg gemini.GenerationConfig) (string, error)
}

// Service coordinates context assembly, model calls and profile updates.
type Service struct {
	repo store.Repository
	llm  Generator

	// userLocks serializes operations per user so concurrent requests for
	// the same user cannot interleave read-modify-write sequences.
	// Operations on different users do not block each other.
	userLocks sync.Map // userID -> *sync.Mutex
}

// NewService creates a tutor service.
func NewService(repo store.Repository, llm Generator) *Service {
	return &Service{repo: repo, llm: llm}
}

// NormalizeUserID substitutes the default sentinel for an empty user ID.
func NormalizeUserID(userID string) string {
	if userID == "" {
		return DefaultUserID
	}
	return userID
}

func (s *Service) lockUser(userID string) func() {
	lock, _ := s.userLocks.LoadOrStore(userID, &sync.Mutex{})
	mu := lock.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Profile returns the user's learning profile, creating a zeroed one on
// first access. The created profile is persisted immediately so it is
// visible to subsequent reads.
func (s *Service) Profile(ctx context.Context, userID string) (*domain.Profile, error) {
	userID = NormalizeUserID(userID)
	unlock := s.lockUser(userID)
	defer unlock()
	return s.profileLocked(ctx, userID)
}

func (s *Service) profileLocked(ctx context.Context, userID string) (*domain.Profile, error) {
	profile, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if profile != nil {
		return profile, nil
	}

	profile = domain.NewProfile(userID, time.Now())
	if err := s.repo.PutProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return profile, nil
}

// UpdateProfile applies one incremental update to the user's profile and
// persists the result. The whole read-modify-write runs under the user's
// lock, so no acknowledged update is lost.
func (s *Service) UpdateProfile(ctx context.Context, userID string, update domain.ProfileUpdate) (*domain.Profile, error) {
	userID = NormalizeUserID(userID)
	unlock := s.lockUser(userID)
	defer unlock()

	profile, err := s.profileLocked(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile.Apply(update, time.Now())

	if err := s.repo.PutProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	return profile, nil
}
