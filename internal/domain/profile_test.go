package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }

func TestNewProfile(t *testing.T) {
	now := time.Now()
	p := NewProfile("alice", now)

	assert.Equal(t, "alice", p.UserID)
	assert.Equal(t, now, p.CreatedAt)
	assert.Equal(t, now, p.LastSeen)
	assert.Equal(t, 0, p.Sessions)
	assert.Equal(t, 0, p.EngagementScore)
	assert.Empty(t, p.TopicsCovered)

	require.Len(t, p.Mistakes, 3)
	assert.Equal(t, 0, p.Mistakes[MistakeCalculation])
	assert.Equal(t, 0, p.Mistakes[MistakeSkippedSteps])
	assert.Equal(t, 0, p.Mistakes[MistakeNotation])
}

func TestApplyRefreshesLastSeen(t *testing.T) {
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	later := created.Add(time.Hour)

	p := NewProfile("u", created)
	p.Apply(ProfileUpdate{}, later)

	assert.Equal(t, later, p.LastSeen)
	assert.Equal(t, created, p.CreatedAt)
}

func TestApplyLatencyEMA(t *testing.T) {
	p := NewProfile("u", time.Now())

	p.Apply(ProfileUpdate{LatencySec: floatPtr(1.0)}, time.Now())
	assert.InDelta(t, 0.2, p.AvgResponseSec, 1e-9)

	p.Apply(ProfileUpdate{LatencySec: floatPtr(1.0)}, time.Now())
	assert.InDelta(t, 0.36, p.AvgResponseSec, 1e-9)
}

func TestApplyLatencyRounding(t *testing.T) {
	p := NewProfile("u", time.Now())
	p.AvgResponseSec = 1.234

	p.Apply(ProfileUpdate{LatencySec: floatPtr(2.567)}, time.Now())
	// 1.234*0.8 + 2.567*0.2 = 1.5006 -> rounds to 1.5
	assert.Equal(t, 1.5, p.AvgResponseSec)
}

func TestApplyEngagementClamp(t *testing.T) {
	p := NewProfile("u", time.Now())

	p.EngagementScore = 95
	p.Apply(ProfileUpdate{EngagementDelta: intPtr(20)}, time.Now())
	assert.Equal(t, 100, p.EngagementScore)

	p.EngagementScore = 5
	p.Apply(ProfileUpdate{EngagementDelta: intPtr(-20)}, time.Now())
	assert.Equal(t, 0, p.EngagementScore)

	p.Apply(ProfileUpdate{EngagementDelta: intPtr(7)}, time.Now())
	assert.Equal(t, 7, p.EngagementScore)
}

func TestApplyMistakeBuckets(t *testing.T) {
	p := NewProfile("u", time.Now())

	p.Apply(ProfileUpdate{MistakeBucket: MistakeCalculation}, time.Now())
	p.Apply(ProfileUpdate{MistakeBucket: MistakeCalculation}, time.Now())
	p.Apply(ProfileUpdate{MistakeBucket: "made_up_bucket"}, time.Now())

	assert.Equal(t, 2, p.Mistakes[MistakeCalculation])
	assert.NotContains(t, p.Mistakes, "made_up_bucket")
}

func TestApplyTopicsAndHints(t *testing.T) {
	p := NewProfile("u", time.Now())

	p.Apply(ProfileUpdate{Topic: "algebra", Hint: true}, time.Now())
	p.Apply(ProfileUpdate{Topic: "algebra"}, time.Now())
	p.Apply(ProfileUpdate{Topic: "geometry", SessionIncrement: true}, time.Now())

	assert.Equal(t, 2, p.TopicsCovered["algebra"])
	assert.Equal(t, 1, p.TopicsCovered["geometry"])
	assert.Equal(t, 1, p.CorrectiveHints)
	assert.Equal(t, 1, p.Sessions)
}
