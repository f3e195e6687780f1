package services

import (
	"context"
	"testing"
	"time"

	"goalquest-backend/logger"
	"goalquest-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRecommendations(store *memStore, now time.Time) *RecommendationService {
	clock := &testClock{now: now}
	opts := testOptions(clock)
	achievements := NewAchievementService(store, nil, logger.NewNop(), opts)
	return NewRecommendationService(store, store, achievements, NewStreakTracker(time.UTC), logger.NewNop(), opts)
}

func recommendationTypes(recs []Recommendation) []RecommendationType {
	out := make([]RecommendationType, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Type)
	}
	return out
}

func TestWeeklyRecommendationsAllKinds(t *testing.T) {
	now := time.Date(2024, time.March, 20, 12, 0, 0, 0, time.UTC)
	yesterday := CalendarDay(now.AddDate(0, 0, -1), time.UTC)

	store := newMemStore()
	u := store.addUser(models.User{Name: "Юля", CurrentStreak: 3, LastActivityDate: &yesterday})

	idle := store.addGoal(models.Goal{UserID: u.ID, Title: "Гитара", StartDate: now.AddDate(0, 0, -19)})
	falling := store.addGoal(models.Goal{
		UserID:    u.ID,
		Title:     "Отжимания",
		StartDate: now.AddDate(0, 0, -10),
		Metrics: []models.Metric{
			{Name: "раз", TargetValue: 100, EvolutionType: models.EvolutionIncrease, IsPrimary: true},
		},
	})
	for i, v := range []float64{50, 40, 30} {
		store.addProgress(models.Progress{
			UserID:   u.ID,
			GoalID:   falling.ID,
			MetricID: falling.Metrics[0].ID,
			Date:     now.AddDate(0, 0, i-3),
			Value:    v,
		})
	}
	store.addAchievement("streak_4", 20, models.LevelBronze, `{"type":"streak","days":4}`)

	recs, err := newTestRecommendations(store, now).WeeklyRecommendations(context.Background(), u.ID)
	require.NoError(t, err)

	assert.Equal(t, []RecommendationType{
		RecommendStreakAtRisk,
		RecommendDecliningTrend,
		RecommendInactiveGoal,
		RecommendNearAchievement,
		RecommendConsistency,
	}, recommendationTypes(recs))

	require.NotNil(t, recs[1].GoalID)
	assert.Equal(t, falling.ID, *recs[1].GoalID)
	require.NotNil(t, recs[2].GoalID)
	assert.Equal(t, idle.ID, *recs[2].GoalID)
	assert.Equal(t, "streak_4", recs[3].AchievementCode)

	for i := 1; i < len(recs); i++ {
		assert.LessOrEqual(t, recs[i-1].Priority, recs[i].Priority)
	}
}

func TestWeeklyRecommendationsNewUser(t *testing.T) {
	now := time.Date(2024, time.March, 20, 12, 0, 0, 0, time.UTC)
	store := newMemStore()
	u := store.addUser(models.User{Name: "Яна"})

	recs, err := newTestRecommendations(store, now).WeeklyRecommendations(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestWeeklyRecommendationsStreakAlreadyExtendedToday(t *testing.T) {
	now := time.Date(2024, time.March, 20, 12, 0, 0, 0, time.UTC)
	today := CalendarDay(now, time.UTC)
	store := newMemStore()
	u := store.addUser(models.User{Name: "Артем", CurrentStreak: 5, LastActivityDate: &today})

	recs, err := newTestRecommendations(store, now).WeeklyRecommendations(context.Background(), u.ID)
	require.NoError(t, err)
	assert.NotContains(t, recommendationTypes(recs), RecommendStreakAtRisk)
}

func TestWeeklyRecommendationsMasksSecretAchievement(t *testing.T) {
	now := time.Date(2024, time.March, 20, 12, 0, 0, 0, time.UTC)
	store := newMemStore()
	u := store.addUser(models.User{Name: "Белла", CurrentStreak: 9})
	store.addAchievement("hidden_streak", 20, models.LevelBronze, `{"type":"streak","days":10}`)
	store.mu.Lock()
	store.achievements[0].IsSecret = true
	store.mu.Unlock()

	recs, err := newTestRecommendations(store, now).WeeklyRecommendations(context.Background(), u.ID)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, RecommendNearAchievement, recs[0].Type)
	assert.Contains(t, recs[0].Message, "???")
	assert.NotContains(t, recs[0].Message, "hidden_streak")
}

func TestWeeklyRecommendationsUnknownUser(t *testing.T) {
	store := newMemStore()
	_, err := newTestRecommendations(store, time.Now()).WeeklyRecommendations(context.Background(), 42)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
