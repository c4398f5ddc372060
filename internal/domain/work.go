package domain

import (
	"encoding/json"
	"time"
)

// WorkAnalysis is the model's judgement of a student's current work.
// Degraded marks the best-effort fallback used when the model did not
// return the requested JSON shape; Suggestions then carries the raw text.
type WorkAnalysis struct {
	Correct     string   `json:"correct"`
	Errors      []string `json:"errors"`
	Suggestions []string `json:"suggestions"`
	Concepts    []string `json:"concepts"`
	Degraded    bool     `json:"-"`
}

// UnmarshalJSON tolerates the model's loose typing of "correct": the prompt
// asks a yes/no question, so replies carry a bare boolean about as often as
// a string.
func (a *WorkAnalysis) UnmarshalJSON(data []byte) error {
	var raw struct {
		Correct     json.RawMessage `json:"correct"`
		Errors      []string        `json:"errors"`
		Suggestions []string        `json:"suggestions"`
		Concepts    []string        `json:"concepts"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*a = WorkAnalysis{
		Correct:     correctLabel(raw.Correct),
		Errors:      raw.Errors,
		Suggestions: raw.Suggestions,
		Concepts:    raw.Concepts,
	}
	return nil
}

func correctLabel(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		if b {
			return "Yes"
		}
		return "No"
	}
	return string(raw)
}

// FallbackAnalysis wraps raw model output in the degraded analysis shape.
func FallbackAnalysis(raw string) WorkAnalysis {
	return WorkAnalysis{
		Correct:     "Unknown",
		Errors:      []string{},
		Suggestions: []string{raw},
		Concepts:    []string{},
		Degraded:    true,
	}
}

// WorkSnapshot is the latest monitored work for a user, overwritten on
// every monitoring call.
type WorkSnapshot struct {
	UserID    string       `json:"user_id"`
	Image     string       `json:"image"`
	Analysis  WorkAnalysis `json:"analysis"`
	Summary   string       `json:"summary"`
	Token     string       `json:"timestamp"`
	UpdatedAt time.Time    `json:"updated_at"`
}
