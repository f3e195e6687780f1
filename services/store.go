package services

import (
	"context"
	"fmt"
	"time"

	"goalquest-backend/models"
)

// AchievementStore хранилище достижений и игрового состояния пользователя
type AchievementStore interface {
	SignalsFor(ctx context.Context, userID uint, now time.Time, lookbackDays int) (*models.SignalBundle, error)
	LockedAchievementsFor(ctx context.Context, userID uint) ([]models.Achievement, error)
	ActiveAchievements(ctx context.Context) ([]models.Achievement, error)
	GetAchievement(ctx context.Context, achievementID uint) (*models.Achievement, error)
	GrantsFor(ctx context.Context, userID uint) ([]models.UserAchievement, error)
	HasGrant(ctx context.Context, userID, achievementID uint) (bool, error)
	GetUser(ctx context.Context, userID uint) (*models.User, error)

	// Unlock в одной транзакции: блокирует строку пользователя, проверяет отсутствие выдачи,
	// вызывает apply (начисление очков, сборка записи), сохраняет пользователя и выдачу.
	// Возвращает models.ErrAlreadyUnlocked, если пара уже существует.
	Unlock(ctx context.Context, userID, achievementID uint, apply func(u *models.User) (*models.UserAchievement, error)) (*models.UserAchievement, error)

	// UpdateUser сохраняет пользователя под блокировкой строки после вызова apply
	UpdateUser(ctx context.Context, userID uint, apply func(u *models.User) error) (*models.User, error)

	MarkNotified(ctx context.Context, userID uint, grantIDs []uint) (int64, error)
	Leaderboard(ctx context.Context, limit, offset int) ([]models.User, int64, error)
}

// GoalStore источник целей, метрик и записей прогресса (только чтение для аналитики)
type GoalStore interface {
	GetGoal(ctx context.Context, goalID uint) (*models.Goal, error)
	GetMetric(ctx context.Context, metricID uint) (*models.Metric, error)
	ActiveGoals(ctx context.Context, userID uint) ([]models.Goal, error)
	// ListGoals цели пользователя; пустой status означает все
	ListGoals(ctx context.Context, userID uint, status models.GoalStatus) ([]models.Goal, error)
	TimeSeries(ctx context.Context, metricID uint, from, to time.Time) ([]models.SeriesPoint, error)
	ProgressBetween(ctx context.Context, goalID uint, from, to time.Time) ([]models.Progress, error)
	LastProgressAt(ctx context.Context, goalID uint) (*time.Time, error)
}

// ActivityStore запись активности пользователя
type ActivityStore interface {
	// RecordProgress сохраняет запись и обновляет пользователя в одной транзакции
	RecordProgress(ctx context.Context, p *models.Progress, apply func(u *models.User) error) (*models.User, error)
	CreateSession(ctx context.Context, s *models.TrainingSession) error
	// CompleteGoal переводит активную цель в статус completed
	CompleteGoal(ctx context.Context, goalID uint, at time.Time) error
	// CreateGoal сохраняет цель вместе с метриками
	CreateGoal(ctx context.Context, g *models.Goal) error
	UpdateGoalStatus(ctx context.Context, goalID uint, status models.GoalStatus, completedAt *time.Time) error
}

// loadOwnedGoal возвращает цель, если она принадлежит пользователю
func loadOwnedGoal(ctx context.Context, goals GoalStore, userID, goalID uint) (*models.Goal, error) {
	goal, err := goals.GetGoal(ctx, goalID)
	if err != nil {
		return nil, err
	}
	if goal.UserID != userID {
		return nil, fmt.Errorf("goal %d: %w", goalID, models.ErrForbidden)
	}
	return goal, nil
}
