package services

import (
	"context"
	"fmt"

	"goalquest-backend/logger"
	"goalquest-backend/models"
)

// UserLevelInfo уровень, очки и серия пользователя
type UserLevelInfo struct {
	UserID          uint          `json:"user_id"`
	Progress        LevelProgress `json:"progress"`
	CurrentStreak   int           `json:"current_streak"`
	EffectiveStreak int           `json:"effective_streak"`
	LongestStreak   int           `json:"longest_streak"`
}

// LeaderboardEntry строка таблицы лидеров
type LeaderboardEntry struct {
	Rank   int    `json:"rank"`
	UserID uint   `json:"user_id"`
	Name   string `json:"name"`
	Level  int    `json:"level"`
	Points int    `json:"points"`
}

// LevelService уровни и очки пользователей
type LevelService struct {
	store        AchievementStore
	achievements *AchievementService
	tracker      *StreakTracker
	log          *logger.Logger
	opts         EngineOptions
}

// NewLevelService создает сервис уровней
func NewLevelService(store AchievementStore, achievements *AchievementService, tracker *StreakTracker, baseLog *logger.Logger, opts EngineOptions) *LevelService {
	return &LevelService{
		store:        store,
		achievements: achievements,
		tracker:      tracker,
		log:          baseLog.With("service", "LevelService"),
		opts:         opts.withDefaults(),
	}
}

// GetUserLevel возвращает уровень и прогресс до следующего
func (s *LevelService) GetUserLevel(ctx context.Context, userID uint) (*UserLevelInfo, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &UserLevelInfo{
		UserID:          u.ID,
		Progress:        ComputeLevelProgress(u.TotalPoints),
		CurrentStreak:   u.CurrentStreak,
		EffectiveStreak: s.tracker.EffectiveStreak(u, s.opts.Now()),
		LongestStreak:   u.LongestStreak,
	}, nil
}

// AwardPoints начисляет очки и перепроверяет достижения
func (s *LevelService) AwardPoints(ctx context.Context, userID uint, points int, reason string) (*models.User, []models.UserAchievement, error) {
	if points <= 0 {
		return nil, nil, fmt.Errorf("%w: points must be positive", models.ErrInvalidArgument)
	}

	unlock, err := s.achievements.locker.Lock(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	user, err := s.store.UpdateUser(ctx, userID, func(u *models.User) error {
		AddPoints(u, points)
		return nil
	})
	unlock()
	if err != nil {
		return nil, nil, err
	}
	s.log.Info("Начислены очки", "user_id", userID, "points", points, "reason", reason, "total_points", user.TotalPoints)

	unlocked, err := s.achievements.CheckAndUnlock(ctx, userID)
	if err != nil {
		return user, nil, err
	}
	if len(unlocked) > 0 {
		if user, err = s.store.GetUser(ctx, userID); err != nil {
			return nil, unlocked, err
		}
	}
	return user, unlocked, nil
}

// Leaderboard таблица лидеров по очкам
func (s *LevelService) Leaderboard(ctx context.Context, page, limit int) ([]LeaderboardEntry, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	offset := (page - 1) * limit

	users, total, err := s.store.Leaderboard(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	out := make([]LeaderboardEntry, 0, len(users))
	for i, u := range users {
		out = append(out, LeaderboardEntry{
			Rank:   offset + i + 1,
			UserID: u.ID,
			Name:   u.Name,
			Level:  u.Level,
			Points: u.TotalPoints,
		})
	}
	return out, total, nil
}
