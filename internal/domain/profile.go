// Package domain contains core domain types for the MathMate application.
package domain

import (
	"math"
	"time"
)

// Mistake bucket names tracked per profile. Updates naming any other
// bucket are ignored.
const (
	MistakeCalculation  = "calculation"
	MistakeSkippedSteps = "skipped_steps"
	MistakeNotation     = "notation"
)

// latencySmoothing is the weight kept from the previous average when a new
// response latency sample arrives.
const latencySmoothing = 0.8

// Profile is the per-user learning record. It only ever grows; there is no
// deletion path.
type Profile struct {
	UserID            string         `json:"user_id"`
	CreatedAt         time.Time      `json:"created_at"`
	LastSeen          time.Time      `json:"last_seen"`
	Sessions          int            `json:"sessions"`
	TotalTimeS        int64          `json:"total_time_s"`
	TopicsCovered     map[string]int `json:"topics_covered"`
	CorrectiveHints   int            `json:"corrective_hints"`
	AvgResponseSec    float64        `json:"avg_response_latency_s"`
	EngagementScore   int            `json:"engagement_score"`
	Mistakes          map[string]int `json:"mistakes"`
}

// NewProfile returns a zeroed profile for the given user.
func NewProfile(userID string, now time.Time) *Profile {
	return &Profile{
		UserID:        userID,
		CreatedAt:     now,
		LastSeen:      now,
		TopicsCovered: map[string]int{},
		Mistakes: map[string]int{
			MistakeCalculation:  0,
			MistakeSkippedSteps: 0,
			MistakeNotation:     0,
		},
	}
}

// ProfileUpdate describes one incremental change to a profile. Zero-valued
// fields are no-ops.
type ProfileUpdate struct {
	Topic            string   `json:"topic,omitempty"`
	Hint             bool     `json:"hint,omitempty"`
	LatencySec       *float64 `json:"latency_s,omitempty"`
	EngagementDelta  *int     `json:"engagement_delta,omitempty"`
	MistakeBucket    string   `json:"mistake_bucket,omitempty"`
	SessionIncrement bool     `json:"session_increment,omitempty"`
}

// Apply mutates the profile in place according to the update. The last-seen
// timestamp is always refreshed, even for an otherwise empty update.
func (p *Profile) Apply(u ProfileUpdate, now time.Time) {
	p.LastSeen = now
	if u.SessionIncrement {
		p.Sessions++
	}
	if u.Topic != "" {
		if p.TopicsCovered == nil {
			p.TopicsCovered = map[string]int{}
		}
		p.TopicsCovered[u.Topic]++
	}
	if u.Hint {
		p.CorrectiveHints++
	}
	if u.LatencySec != nil {
		avg := p.AvgResponseSec*latencySmoothing + *u.LatencySec*(1-latencySmoothing)
		p.AvgResponseSec = math.Round(avg*100) / 100
	}
	if u.EngagementDelta != nil {
		score := p.EngagementScore + *u.EngagementDelta
		if score < 0 {
			score = 0
		}
		if score > 100 {
			score = 100
		}
		p.EngagementScore = score
	}
	if u.MistakeBucket != "" {
		if _, known := p.Mistakes[u.MistakeBucket]; known {
			p.Mistakes[u.MistakeBucket]++
		}
	}
}
