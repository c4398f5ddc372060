package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mathmate-ai/mathmate/internal/domain"
	"github.com/mathmate-ai/mathmate/internal/shared"
	_ "modernc.org/sqlite"
)

const writeRetries = 3

// execWithRetry runs a write statement, retrying briefly on SQLite
// concurrency conflicts. WAL mode keeps these rare but the monitoring
// loop and chat can hit the same user row at once.
func (s *SQLiteStore) execWithRetry(ctx context.Context, query string, args ...interface{}) error {
	var err error
	for attempt := 0; attempt < writeRetries; attempt++ {
		_, err = s.db.ExecContext(ctx, query, args...)
		if err == nil || !shared.IsSQLiteConflictError(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 50 * time.Millisecond):
		}
	}
	return err
}

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS profiles (
		user_id TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL,
		last_seen INTEGER NOT NULL,
		sessions INTEGER NOT NULL DEFAULT 0,
		total_time_s INTEGER NOT NULL DEFAULT 0,
		topics_json TEXT NOT NULL DEFAULT '{}',
		corrective_hints INTEGER NOT NULL DEFAULT 0,
		avg_response_latency_s REAL NOT NULL DEFAULT 0,
		engagement_score INTEGER NOT NULL DEFAULT 0,
		mistakes_json TEXT NOT NULL DEFAULT '{}'
	);

	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		content TEXT NOT NULL,
		analysis TEXT NOT NULL,
		token TEXT NOT NULL,
		uploaded_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS turns (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		user_text TEXT NOT NULL,
		assistant_text TEXT NOT NULL,
		token TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_turns_user ON turns(user_id, id);

	CREATE TABLE IF NOT EXISTS screen_contexts (
		user_id TEXT PRIMARY KEY,
		summary TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS work_snapshots (
		user_id TEXT PRIMARY KEY,
		image TEXT NOT NULL,
		analysis_json TEXT NOT NULL,
		summary TEXT NOT NULL,
		token TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetProfile retrieves a profile by user ID.
func (s *SQLiteStore) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	query := `
		SELECT user_id, created_at, last_seen, sessions, total_time_s,
		       topics_json, corrective_hints, avg_response_latency_s,
		       engagement_score, mistakes_json
		FROM profiles WHERE user_id = ?`

	row := s.db.QueryRowContext(ctx, query, userID)

	var p domain.Profile
	var createdAt, lastSeen int64
	var topicsJSON, mistakesJSON string

	err := row.Scan(
		&p.UserID, &createdAt, &lastSeen, &p.Sessions, &p.TotalTimeS,
		&topicsJSON, &p.CorrectiveHints, &p.AvgResponseSec,
		&p.EngagementScore, &mistakesJSON,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan profile row: %w", err)
	}

	p.CreatedAt = time.Unix(createdAt, 0)
	p.LastSeen = time.Unix(lastSeen, 0)

	if err := json.Unmarshal([]byte(topicsJSON), &p.TopicsCovered); err != nil {
		return nil, fmt.Errorf("decode topics: %w", err)
	}
	if err := json.Unmarshal([]byte(mistakesJSON), &p.Mistakes); err != nil {
		return nil, fmt.Errorf("decode mistakes: %w", err)
	}

	return &p, nil
}

// PutProfile creates or replaces a user profile.
func (s *SQLiteStore) PutProfile(ctx context.Context, profile *domain.Profile) error {
	topicsJSON, err := json.Marshal(profile.TopicsCovered)
	if err != nil {
		return fmt.Errorf("encode topics: %w", err)
	}
	mistakesJSON, err := json.Marshal(profile.Mistakes)
	if err != nil {
		return fmt.Errorf("encode mistakes: %w", err)
	}

	query := `
	INSERT INTO profiles (
		user_id, created_at, last_seen, sessions, total_time_s,
		topics_json, corrective_hints, avg_response_latency_s,
		engagement_score, mistakes_json
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		last_seen = excluded.last_seen,
		sessions = excluded.sessions,
		total_time_s = excluded.total_time_s,
		topics_json = excluded.topics_json,
		corrective_hints = excluded.corrective_hints,
		avg_response_latency_s = excluded.avg_response_latency_s,
		engagement_score = excluded.engagement_score,
		mistakes_json = excluded.mistakes_json`

	err = s.execWithRetry(ctx, query,
		profile.UserID, profile.CreatedAt.Unix(), profile.LastSeen.Unix(),
		profile.Sessions, profile.TotalTimeS,
		string(topicsJSON), profile.CorrectiveHints, profile.AvgResponseSec,
		profile.EngagementScore, string(mistakesJSON),
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// PutDocument stores a knowledge-base document.
func (s *SQLiteStore) PutDocument(ctx context.Context, doc *domain.Document) error {
	query := `
	INSERT INTO documents (id, filename, content, analysis, token, uploaded_at)
	VALUES (?, ?, ?, ?, ?, ?)`

	err := s.execWithRetry(ctx, query,
		doc.ID, doc.Filename, doc.Content, doc.Analysis, doc.Token, doc.UploadedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// ListDocuments returns all knowledge-base documents in upload order.
func (s *SQLiteStore) ListDocuments(ctx context.Context) ([]*domain.Document, error) {
	query := `
		SELECT id, filename, content, analysis, token, uploaded_at
		FROM documents ORDER BY rowid`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close document rows", "error", closeErr)
		}
	}()

	var docs []*domain.Document
	for rows.Next() {
		var doc domain.Document
		var uploadedAt int64
		if err := rows.Scan(&doc.ID, &doc.Filename, &doc.Content, &doc.Analysis, &doc.Token, &uploadedAt); err != nil {
			return nil, fmt.Errorf("scan document row: %w", err)
		}
		doc.UploadedAt = time.Unix(uploadedAt, 0)
		docs = append(docs, &doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}

	return docs, nil
}

// CountDocuments returns the number of stored documents.
func (s *SQLiteStore) CountDocuments(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

// AppendTurn appends a conversation turn for a user.
func (s *SQLiteStore) AppendTurn(ctx context.Context, turn *domain.Turn) error {
	query := `
	INSERT INTO turns (user_id, user_text, assistant_text, token, created_at)
	VALUES (?, ?, ?, ?, ?)`

	err := s.execWithRetry(ctx, query,
		turn.UserID, turn.User, turn.Assistant, turn.Token, turn.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}
	return nil
}

// RecentTurns returns up to n most recent turns for a user, oldest first.
func (s *SQLiteStore) RecentTurns(ctx context.Context, userID string, n int) ([]*domain.Turn, error) {
	query := `
		SELECT user_id, user_text, assistant_text, token, created_at FROM (
			SELECT id, user_id, user_text, assistant_text, token, created_at
			FROM turns WHERE user_id = ? ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`

	rows, err := s.db.QueryContext(ctx, query, userID, n)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close turn rows", "error", closeErr)
		}
	}()

	var turns []*domain.Turn
	for rows.Next() {
		var t domain.Turn
		var createdAt int64
		if err := rows.Scan(&t.UserID, &t.User, &t.Assistant, &t.Token, &createdAt); err != nil {
			return nil, fmt.Errorf("scan turn row: %w", err)
		}
		t.CreatedAt = time.Unix(createdAt, 0)
		turns = append(turns, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}

	return turns, nil
}

// CountConversations returns the number of users with at least one turn.
func (s *SQLiteStore) CountConversations(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT user_id) FROM turns`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count conversations: %w", err)
	}
	return n, nil
}

// GetScreenContext returns the latest screen-share summary for a user.
func (s *SQLiteStore) GetScreenContext(ctx context.Context, userID string) (*domain.ScreenContext, error) {
	query := `SELECT user_id, summary, updated_at FROM screen_contexts WHERE user_id = ?`

	row := s.db.QueryRowContext(ctx, query, userID)

	var sc domain.ScreenContext
	var updatedAt int64
	err := row.Scan(&sc.UserID, &sc.Summary, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan screen context row: %w", err)
	}

	sc.UpdatedAt = time.Unix(updatedAt, 0)
	return &sc, nil
}

// PutScreenContext overwrites the screen-share summary for a user.
func (s *SQLiteStore) PutScreenContext(ctx context.Context, sc *domain.ScreenContext) error {
	query := `
	INSERT INTO screen_contexts (user_id, summary, updated_at)
	VALUES (?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		summary = excluded.summary,
		updated_at = excluded.updated_at`

	err := s.execWithRetry(ctx, query, sc.UserID, sc.Summary, sc.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("upsert screen context: %w", err)
	}
	return nil
}

// GetWorkSnapshot returns the latest monitored work for a user.
func (s *SQLiteStore) GetWorkSnapshot(ctx context.Context, userID string) (*domain.WorkSnapshot, error) {
	query := `
		SELECT user_id, image, analysis_json, summary, token, updated_at
		FROM work_snapshots WHERE user_id = ?`

	row := s.db.QueryRowContext(ctx, query, userID)

	var ws domain.WorkSnapshot
	var analysisJSON string
	var updatedAt int64
	err := row.Scan(&ws.UserID, &ws.Image, &analysisJSON, &ws.Summary, &ws.Token, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan work snapshot row: %w", err)
	}

	if err := json.Unmarshal([]byte(analysisJSON), &ws.Analysis); err != nil {
		return nil, fmt.Errorf("decode work analysis: %w", err)
	}
	ws.UpdatedAt = time.Unix(updatedAt, 0)
	return &ws, nil
}

// PutWorkSnapshot overwrites the monitored work for a user.
func (s *SQLiteStore) PutWorkSnapshot(ctx context.Context, ws *domain.WorkSnapshot) error {
	analysisJSON, err := json.Marshal(ws.Analysis)
	if err != nil {
		return fmt.Errorf("encode work analysis: %w", err)
	}

	query := `
	INSERT INTO work_snapshots (user_id, image, analysis_json, summary, token, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		image = excluded.image,
		analysis_json = excluded.analysis_json,
		summary = excluded.summary,
		token = excluded.token,
		updated_at = excluded.updated_at`

	err = s.execWithRetry(ctx, query,
		ws.UserID, ws.Image, string(analysisJSON), ws.Summary, ws.Token, ws.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert work snapshot: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
