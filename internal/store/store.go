// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"

	"github.com/mathmate-ai/mathmate/internal/domain"
)

// Repository defines the interface for persisting tutoring state. Records
// are keyed by user or document identifier; writes are durable by the time
// a call returns.
type Repository interface {
	// GetProfile retrieves a profile by user ID. Returns (nil, nil) when
	// the user has no profile yet.
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)

	// PutProfile creates or replaces a user profile.
	PutProfile(ctx context.Context, profile *domain.Profile) error

	// PutDocument stores a knowledge-base document.
	PutDocument(ctx context.Context, doc *domain.Document) error

	// ListDocuments returns all knowledge-base documents in upload order.
	ListDocuments(ctx context.Context) ([]*domain.Document, error)

	// CountDocuments returns the number of stored documents.
	CountDocuments(ctx context.Context) (int, error)

	// AppendTurn appends a conversation turn for a user.
	AppendTurn(ctx context.Context, turn *domain.Turn) error

	// RecentTurns returns up to n most recent turns for a user, ordered
	// oldest to newest.
	RecentTurns(ctx context.Context, userID string, n int) ([]*domain.Turn, error)

	// CountConversations returns the number of users with at least one turn.
	CountConversations(ctx context.Context) (int, error)

	// GetScreenContext returns the latest screen-share summary for a user,
	// or (nil, nil) when none exists.
	GetScreenContext(ctx context.Context, userID string) (*domain.ScreenContext, error)

	// PutScreenContext overwrites the screen-share summary for a user.
	PutScreenContext(ctx context.Context, sc *domain.ScreenContext) error

	// GetWorkSnapshot returns the latest monitored work for a user, or
	// (nil, nil) when none exists.
	GetWorkSnapshot(ctx context.Context, userID string) (*domain.WorkSnapshot, error)

	// PutWorkSnapshot overwrites the monitored work for a user.
	PutWorkSnapshot(ctx context.Context, ws *domain.WorkSnapshot) error

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
