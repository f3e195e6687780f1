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

func newTestGoalService(store *memStore, clock *testClock) *GoalService {
	opts := testOptions(clock)
	achievements := NewAchievementService(store, nil, logger.NewNop(), opts)
	return NewGoalService(store, store, achievements, logger.NewNop(), opts)
}

func TestCreateGoalUnlocksFirstGoal(t *testing.T) {
	store := newMemStore()
	clock := &testClock{now: time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)}
	u := store.addUser(models.User{Name: "Алиса"})
	first := store.addAchievement("first_goal", 10, models.LevelBronze, `{"type":"goal_created"}`)
	svc := newTestGoalService(store, clock)

	res, err := svc.CreateGoal(context.Background(), u.ID, GoalInput{
		Title: "  Марафон  ",
		Metrics: []MetricInput{
			{Name: "км", TargetValue: 42},
			{Name: "пульс", TargetValue: 140, EvolutionType: models.EvolutionMaintain},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "Марафон", res.Goal.Title)
	assert.Equal(t, models.GoalActive, res.Goal.Status)
	assert.Equal(t, clock.Now(), res.Goal.StartDate)
	require.Len(t, res.Goal.Metrics, 2)
	assert.True(t, res.Goal.Metrics[0].IsPrimary)
	assert.False(t, res.Goal.Metrics[1].IsPrimary)
	assert.Equal(t, models.EvolutionIncrease, res.Goal.Metrics[0].EvolutionType)

	require.Len(t, res.Unlocked, 1)
	assert.Equal(t, first.ID, res.Unlocked[0].AchievementID)
	assert.Equal(t, 10, store.user(u.ID).TotalPoints)
}

func TestCreateGoalValidation(t *testing.T) {
	store := newMemStore()
	clock := &testClock{now: time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)}
	u := store.addUser(models.User{Name: "Богдан"})
	svc := newTestGoalService(store, clock)
	past := clock.Now().AddDate(0, 0, -1)

	for name, in := range map[string]GoalInput{
		"empty title":       {Title: " "},
		"end before start":  {Title: "x", EndDate: &past},
		"unnamed metric":    {Title: "x", Metrics: []MetricInput{{TargetValue: 1}}},
		"unknown evolution": {Title: "x", Metrics: []MetricInput{{Name: "m", EvolutionType: "sideways"}}},
		"two primaries":     {Title: "x", Metrics: []MetricInput{{Name: "a", IsPrimary: true}, {Name: "b", IsPrimary: true}}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreateGoal(context.Background(), u.ID, in)
			assert.ErrorIs(t, err, models.ErrInvalidArgument)
		})
	}
}

func TestUpdateStatusCompletesGoal(t *testing.T) {
	store := newMemStore()
	clock := &testClock{now: time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)}
	u := store.addUser(models.User{Name: "Вика"})
	done := store.addAchievement("goal_done", 25, models.LevelBronze, `{"type":"goals_completed"}`)
	svc := newTestGoalService(store, clock)

	created, err := svc.CreateGoal(context.Background(), u.ID, GoalInput{Title: "Выучить испанский"})
	require.NoError(t, err)
	goalID := created.Goal.ID

	paused, err := svc.UpdateStatus(context.Background(), u.ID, goalID, models.GoalPaused)
	require.NoError(t, err)
	assert.Equal(t, models.GoalPaused, paused.Goal.Status)
	assert.Empty(t, paused.Unlocked)

	completed, err := svc.UpdateStatus(context.Background(), u.ID, goalID, models.GoalCompleted)
	require.NoError(t, err)
	require.NotNil(t, completed.Goal.CompletedAt)
	require.Len(t, completed.Unlocked, 1)
	assert.Equal(t, done.ID, completed.Unlocked[0].AchievementID)

	_, err = svc.UpdateStatus(context.Background(), u.ID, goalID, models.GoalActive)
	assert.ErrorIs(t, err, models.ErrInvalidArgument)

	archived, err := svc.UpdateStatus(context.Background(), u.ID, goalID, models.GoalArchived)
	require.NoError(t, err)
	assert.Equal(t, models.GoalArchived, archived.Goal.Status)
	assert.NotNil(t, archived.Goal.CompletedAt)

	_, err = svc.UpdateStatus(context.Background(), u.ID, goalID, "lost")
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
}

func TestGoalOwnership(t *testing.T) {
	store := newMemStore()
	clock := &testClock{now: time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)}
	owner := store.addUser(models.User{Name: "Гена"})
	other := store.addUser(models.User{Name: "Даша"})
	svc := newTestGoalService(store, clock)

	created, err := svc.CreateGoal(context.Background(), owner.ID, GoalInput{Title: "Сон"})
	require.NoError(t, err)

	_, err = svc.GetGoal(context.Background(), other.ID, created.Goal.ID)
	assert.ErrorIs(t, err, models.ErrForbidden)
	_, err = svc.UpdateStatus(context.Background(), other.ID, created.Goal.ID, models.GoalPaused)
	assert.ErrorIs(t, err, models.ErrForbidden)

	mine, err := svc.ListGoals(context.Background(), owner.ID, "")
	require.NoError(t, err)
	assert.Len(t, mine, 1)
	theirs, err := svc.ListGoals(context.Background(), other.ID, "")
	require.NoError(t, err)
	assert.Empty(t, theirs)

	_, err = svc.ListGoals(context.Background(), owner.ID, "unknown")
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
}
