package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"goalquest-backend/logger"
	"goalquest-backend/models"
)

// MetricInput метрика новой цели
type MetricInput struct {
	Name          string               `json:"name"`
	Unit          string               `json:"unit"`
	InitialValue  float64              `json:"initial_value"`
	TargetValue   float64              `json:"target_value"`
	EvolutionType models.EvolutionType `json:"evolution_type"`
	IsPrimary     bool                 `json:"is_primary"`
}

// GoalInput новая цель
type GoalInput struct {
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	CategoryCode *string       `json:"category_code"`
	StartDate    time.Time     `json:"start_date"`
	EndDate      *time.Time    `json:"end_date"`
	Metrics      []MetricInput `json:"metrics"`
}

// GoalResult цель и достижения, полученные после изменения
type GoalResult struct {
	Goal     models.Goal              `json:"goal"`
	Unlocked []models.UserAchievement `json:"unlocked"`
}

// GoalService создание целей и смена их статуса
type GoalService struct {
	goals        GoalStore
	activity     ActivityStore
	achievements *AchievementService
	log          *logger.Logger
	opts         EngineOptions
}

// NewGoalService создает сервис целей
func NewGoalService(goals GoalStore, activity ActivityStore, achievements *AchievementService, baseLog *logger.Logger, opts EngineOptions) *GoalService {
	return &GoalService{
		goals:        goals,
		activity:     activity,
		achievements: achievements,
		log:          baseLog.With("service", "GoalService"),
		opts:         opts.withDefaults(),
	}
}

// CreateGoal сохраняет цель и проверяет достижения за создание целей.
// Если ни одна метрика не отмечена основной, основной становится первая.
func (s *GoalService) CreateGoal(ctx context.Context, userID uint, in GoalInput) (*GoalResult, error) {
	goal, err := s.buildGoal(userID, in)
	if err != nil {
		return nil, err
	}
	if err := s.activity.CreateGoal(ctx, goal); err != nil {
		return nil, fmt.Errorf("create goal: %w", err)
	}
	s.log.Info("Цель создана", "user_id", userID, "goal_id", goal.ID, "metrics", len(goal.Metrics))

	unlocked, err := s.achievements.CheckAndUnlock(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &GoalResult{Goal: *goal, Unlocked: unlocked}, nil
}

func (s *GoalService) buildGoal(userID uint, in GoalInput) (*models.Goal, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title required", models.ErrInvalidArgument)
	}
	start := in.StartDate
	if start.IsZero() {
		start = s.opts.Now()
	}
	if in.EndDate != nil && in.EndDate.Before(start) {
		return nil, fmt.Errorf("%w: end date before start date", models.ErrInvalidArgument)
	}
	if in.CategoryCode != nil && strings.TrimSpace(*in.CategoryCode) == "" {
		in.CategoryCode = nil
	}

	goal := &models.Goal{
		UserID:       userID,
		Title:        title,
		Description:  in.Description,
		CategoryCode: in.CategoryCode,
		Status:       models.GoalActive,
		StartDate:    start,
		EndDate:      in.EndDate,
	}

	primaries := 0
	for i, m := range in.Metrics {
		name := strings.TrimSpace(m.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: metric #%d without name", models.ErrInvalidArgument, i)
		}
		evolution := m.EvolutionType
		switch evolution {
		case "":
			evolution = models.EvolutionIncrease
		case models.EvolutionIncrease, models.EvolutionDecrease, models.EvolutionMaintain:
		default:
			return nil, fmt.Errorf("%w: unknown evolution type %q", models.ErrInvalidArgument, evolution)
		}
		if m.IsPrimary {
			primaries++
		}
		goal.Metrics = append(goal.Metrics, models.Metric{
			Name:          name,
			Unit:          m.Unit,
			InitialValue:  m.InitialValue,
			TargetValue:   m.TargetValue,
			EvolutionType: evolution,
			IsPrimary:     m.IsPrimary,
		})
	}
	if primaries > 1 {
		return nil, fmt.Errorf("%w: only one primary metric allowed", models.ErrInvalidArgument)
	}
	if primaries == 0 && len(goal.Metrics) > 0 {
		goal.Metrics[0].IsPrimary = true
	}
	return goal, nil
}

// ListGoals цели пользователя; пустой status означает все
func (s *GoalService) ListGoals(ctx context.Context, userID uint, status models.GoalStatus) ([]models.Goal, error) {
	if status != "" && !validGoalStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", models.ErrInvalidArgument, status)
	}
	return s.goals.ListGoals(ctx, userID, status)
}

// GetGoal цель пользователя с метриками
func (s *GoalService) GetGoal(ctx context.Context, userID, goalID uint) (*models.Goal, error) {
	return loadOwnedGoal(ctx, s.goals, userID, goalID)
}

// UpdateStatus меняет статус цели. Выполненные и архивные цели не возвращаются в работу.
// Перевод в completed запускает проверку достижений.
func (s *GoalService) UpdateStatus(ctx context.Context, userID, goalID uint, status models.GoalStatus) (*GoalResult, error) {
	if !validGoalStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", models.ErrInvalidArgument, status)
	}
	goal, err := loadOwnedGoal(ctx, s.goals, userID, goalID)
	if err != nil {
		return nil, err
	}
	if goal.Status == status {
		return &GoalResult{Goal: *goal, Unlocked: []models.UserAchievement{}}, nil
	}
	switch goal.Status {
	case models.GoalCompleted, models.GoalArchived:
		if status != models.GoalArchived {
			return nil, fmt.Errorf("%w: goal is %s", models.ErrInvalidArgument, goal.Status)
		}
	}

	var completedAt *time.Time
	if status == models.GoalCompleted {
		now := s.opts.Now()
		completedAt = &now
	} else if status == models.GoalArchived {
		completedAt = goal.CompletedAt
	}
	if err := s.activity.UpdateGoalStatus(ctx, goalID, status, completedAt); err != nil {
		return nil, fmt.Errorf("update goal status: %w", err)
	}
	goal.Status = status
	goal.CompletedAt = completedAt
	s.log.Info("Статус цели изменен", "user_id", userID, "goal_id", goalID, "status", status)

	unlocked := []models.UserAchievement{}
	if status == models.GoalCompleted {
		if unlocked, err = s.achievements.CheckAndUnlock(ctx, userID); err != nil {
			return nil, err
		}
	}
	return &GoalResult{Goal: *goal, Unlocked: unlocked}, nil
}

func validGoalStatus(status models.GoalStatus) bool {
	switch status {
	case models.GoalActive, models.GoalCompleted, models.GoalPaused, models.GoalArchived:
		return true
	}
	return false
}
