package services

import (
	"testing"
	"time"

	"goalquest-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func TestApplyActivityConsecutiveDays(t *testing.T) {
	tracker := NewStreakTracker(time.UTC)
	u := &models.User{}
	d := day(2024, time.March, 4)

	var streaks []int
	for i := 0; i < 3; i++ {
		tracker.ApplyActivity(u, d.AddDate(0, 0, i))
		streaks = append(streaks, u.CurrentStreak)
	}
	assert.Equal(t, []int{1, 2, 3}, streaks)
	assert.Equal(t, 3, u.LongestStreak)
}

func TestApplyActivitySameDayIsIdempotent(t *testing.T) {
	tracker := NewStreakTracker(time.UTC)
	u := &models.User{}
	d := day(2024, time.March, 4)

	tracker.ApplyActivity(u, d)
	tracker.ApplyActivity(u, d.AddDate(0, 0, 1))
	change := tracker.ApplyActivity(u, d.AddDate(0, 0, 1).Add(3*time.Hour))

	assert.True(t, change.SameDay)
	assert.Equal(t, 2, u.CurrentStreak)
}

func TestApplyActivityGapResetsStreak(t *testing.T) {
	tracker := NewStreakTracker(time.UTC)
	u := &models.User{}
	d := day(2024, time.March, 4)

	tracker.ApplyActivity(u, d)
	tracker.ApplyActivity(u, d.AddDate(0, 0, 1))
	change := tracker.ApplyActivity(u, d.AddDate(0, 0, 4))

	assert.True(t, change.Broken)
	assert.Equal(t, 1, u.CurrentStreak)
	assert.Equal(t, 2, u.LongestStreak)
	require.NotNil(t, u.LastActivityDate)
	assert.Equal(t, CalendarDay(d.AddDate(0, 0, 4), time.UTC), *u.LastActivityDate)
}

func TestApplyActivityBackfillKeepsStreak(t *testing.T) {
	tracker := NewStreakTracker(time.UTC)
	u := &models.User{}
	d := day(2024, time.March, 10)

	tracker.ApplyActivity(u, d)
	tracker.ApplyActivity(u, d.AddDate(0, 0, 1))
	change := tracker.ApplyActivity(u, d.AddDate(0, 0, -3))

	assert.True(t, change.Backfill)
	assert.Equal(t, 2, u.CurrentStreak)
	assert.Equal(t, CalendarDay(d.AddDate(0, 0, 1), time.UTC), *u.LastActivityDate)
}

func TestApplyActivityUsesConfiguredTimezone(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	tracker := NewStreakTracker(loc)
	u := &models.User{}

	// 20:00 UTC 4 марта это уже 5 марта в UTC+5
	tracker.ApplyActivity(u, time.Date(2024, time.March, 4, 10, 0, 0, 0, time.UTC))
	change := tracker.ApplyActivity(u, time.Date(2024, time.March, 4, 20, 0, 0, 0, time.UTC))

	assert.True(t, change.Extended)
	assert.Equal(t, 2, u.CurrentStreak)
}

func TestEffectiveStreak(t *testing.T) {
	tracker := NewStreakTracker(time.UTC)
	last := CalendarDay(day(2024, time.March, 4), time.UTC)
	u := &models.User{CurrentStreak: 5, LastActivityDate: &last}

	assert.Equal(t, 5, tracker.EffectiveStreak(u, day(2024, time.March, 4)))
	assert.Equal(t, 5, tracker.EffectiveStreak(u, day(2024, time.March, 5)))
	assert.Equal(t, 0, tracker.EffectiveStreak(u, day(2024, time.March, 6)))
	assert.Equal(t, 0, tracker.EffectiveStreak(&models.User{}, day(2024, time.March, 6)))
}

func TestWeekStartIsMonday(t *testing.T) {
	// 10 марта 2024 воскресенье
	assert.Equal(t, CalendarDay(day(2024, time.March, 4), time.UTC), WeekStart(day(2024, time.March, 10), time.UTC))
	assert.Equal(t, CalendarDay(day(2024, time.March, 4), time.UTC), WeekStart(day(2024, time.March, 4), time.UTC))
}
