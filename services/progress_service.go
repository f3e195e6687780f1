package services

import (
	"context"
	"fmt"
	"time"

	"goalquest-backend/logger"
	"goalquest-backend/models"
)

// ProgressInput новая запись прогресса
type ProgressInput struct {
	GoalID       uint      `json:"goal_id"`
	MetricID     uint      `json:"metric_id"`
	Date         time.Time `json:"date"`
	Value        float64   `json:"value"`
	Satisfaction *int      `json:"satisfaction"`
	Note         string    `json:"note"`
}

// ProgressResult результат записи прогресса
type ProgressResult struct {
	Progress      models.Progress          `json:"progress"`
	Streak        StreakChange             `json:"streak"`
	User          *models.User             `json:"user"`
	GoalCompleted bool                     `json:"goal_completed"`
	Unlocked      []models.UserAchievement `json:"unlocked"`
}

// SessionInput новая тренировочная сессия
type SessionInput struct {
	GoalID          *uint     `json:"goal_id"`
	StartedAt       time.Time `json:"started_at"`
	DurationSeconds int64     `json:"duration_seconds"`
	Satisfaction    *int      `json:"satisfaction"`
	Note            string    `json:"note"`
}

// SessionResult результат записи сессии
type SessionResult struct {
	Session  models.TrainingSession   `json:"session"`
	Unlocked []models.UserAchievement `json:"unlocked"`
}

// ProgressService записывает активность и запускает проверку достижений
type ProgressService struct {
	goals        GoalStore
	activity     ActivityStore
	achievements *AchievementService
	tracker      *StreakTracker
	log          *logger.Logger
	opts         EngineOptions
}

// NewProgressService создает сервис записи прогресса
func NewProgressService(goals GoalStore, activity ActivityStore, achievements *AchievementService, tracker *StreakTracker, baseLog *logger.Logger, opts EngineOptions) *ProgressService {
	return &ProgressService{
		goals:        goals,
		activity:     activity,
		achievements: achievements,
		tracker:      tracker,
		log:          baseLog.With("service", "ProgressService"),
		opts:         opts.withDefaults(),
	}
}

// RecordProgress сохраняет значение метрики, продлевает серию и проверяет достижения
func (s *ProgressService) RecordProgress(ctx context.Context, userID uint, in ProgressInput) (*ProgressResult, error) {
	goal, err := loadOwnedGoal(ctx, s.goals, userID, in.GoalID)
	if err != nil {
		return nil, err
	}

	var metric *models.Metric
	for i := range goal.Metrics {
		if goal.Metrics[i].ID == in.MetricID {
			metric = &goal.Metrics[i]
			break
		}
	}
	if metric == nil {
		return nil, fmt.Errorf("metric %d of goal %d: %w", in.MetricID, in.GoalID, models.ErrNotFound)
	}
	if err := validateSatisfaction(in.Satisfaction); err != nil {
		return nil, err
	}

	now := s.opts.Now().In(s.opts.Location)
	date := in.Date
	if date.IsZero() {
		date = now
	}
	if s.tracker.Day(date).After(s.tracker.Day(now)) {
		return nil, fmt.Errorf("%w: progress date is in the future", models.ErrInvalidArgument)
	}

	p := &models.Progress{
		UserID:       userID,
		GoalID:       goal.ID,
		MetricID:     metric.ID,
		Date:         date,
		Value:        in.Value,
		Satisfaction: in.Satisfaction,
		Note:         in.Note,
	}

	unlock, err := s.achievements.locker.Lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	var change StreakChange
	user, err := s.activity.RecordProgress(ctx, p, func(u *models.User) error {
		change = s.tracker.ApplyActivity(u, date)
		return nil
	})
	unlock()
	if err != nil {
		return nil, fmt.Errorf("record progress: %w", err)
	}

	result := &ProgressResult{Progress: *p, Streak: change, User: user}

	if metric.IsPrimary && goal.Status == models.GoalActive && MetricCompletion(metric, in.Value) >= 100 {
		if err := s.activity.CompleteGoal(ctx, goal.ID, now); err != nil {
			return nil, fmt.Errorf("complete goal: %w", err)
		}
		result.GoalCompleted = true
		s.log.Info("Цель выполнена", "user_id", userID, "goal_id", goal.ID)
	}

	unlocked, err := s.achievements.CheckAndUnlock(ctx, userID)
	if err != nil {
		return nil, err
	}
	result.Unlocked = unlocked
	if len(unlocked) > 0 {
		if result.User, err = s.achievements.store.GetUser(ctx, userID); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// RecordSession сохраняет тренировочную сессию и проверяет достижения
func (s *ProgressService) RecordSession(ctx context.Context, userID uint, in SessionInput) (*SessionResult, error) {
	if in.DurationSeconds <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive", models.ErrInvalidArgument)
	}
	if err := validateSatisfaction(in.Satisfaction); err != nil {
		return nil, err
	}
	if in.GoalID != nil {
		if _, err := loadOwnedGoal(ctx, s.goals, userID, *in.GoalID); err != nil {
			return nil, err
		}
	}
	startedAt := in.StartedAt
	if startedAt.IsZero() {
		startedAt = s.opts.Now()
	}

	session := models.TrainingSession{
		UserID:          userID,
		GoalID:          in.GoalID,
		StartedAt:       startedAt,
		DurationSeconds: in.DurationSeconds,
		Satisfaction:    in.Satisfaction,
		Note:            in.Note,
	}
	if err := s.activity.CreateSession(ctx, &session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	unlocked, err := s.achievements.CheckAndUnlock(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &SessionResult{Session: session, Unlocked: unlocked}, nil
}

func validateSatisfaction(v *int) error {
	if v != nil && (*v < 1 || *v > 5) {
		return fmt.Errorf("%w: satisfaction must be between 1 and 5", models.ErrInvalidArgument)
	}
	return nil
}
