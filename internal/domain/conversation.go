package domain

import "time"

// Turn is one user/assistant exchange in a conversation. Turns are
// append-only; only the most recent few are fed back into prompts.
type Turn struct {
	UserID    string    `json:"user_id"`
	User      string    `json:"user"`
	Assistant string    `json:"ai"`
	Token     string    `json:"timestamp"`
	CreatedAt time.Time `json:"created_at"`
}

// ScreenContext is the latest one-line summary of the problem a user shared
// from their screen. It is overwritten on every new screen-share event.
type ScreenContext struct {
	UserID    string    `json:"user_id"`
	Summary   string    `json:"summary"`
	UpdatedAt time.Time `json:"updated_at"`
}
