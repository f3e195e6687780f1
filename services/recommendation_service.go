package services

import (
	"context"
	"fmt"
	"sort"

	"goalquest-backend/logger"
	"goalquest-backend/models"
)

// RecommendationType вид недельной рекомендации
type RecommendationType string

const (
	RecommendStreakAtRisk    RecommendationType = "streak_at_risk"
	RecommendInactiveGoal    RecommendationType = "inactive_goal"
	RecommendDecliningTrend  RecommendationType = "declining_trend"
	RecommendConsistency     RecommendationType = "consistency"
	RecommendNearAchievement RecommendationType = "near_achievement"
)

// Приоритет: меньше значит важнее
const (
	PriorityHigh   = 1
	PriorityMedium = 2
	PriorityLow    = 3
)

const (
	inactiveGoalDays       = 7
	consistencyWindowDays  = 30
	consistencyMinRatio    = 0.5
	nearAchievementPercent = 75
	trendWindowDays        = 30
)

// Recommendation совет пользователю на неделю
type Recommendation struct {
	Type            RecommendationType `json:"type"`
	Priority        int                `json:"priority"`
	Message         string             `json:"message"`
	GoalID          *uint              `json:"goal_id,omitempty"`
	AchievementCode string             `json:"achievement_code,omitempty"`
}

// RecommendationService собирает недельные рекомендации. Состояние не меняет.
type RecommendationService struct {
	store        AchievementStore
	goals        GoalStore
	achievements *AchievementService
	tracker      *StreakTracker
	log          *logger.Logger
	opts         EngineOptions
}

// NewRecommendationService создает сервис рекомендаций
func NewRecommendationService(store AchievementStore, goals GoalStore, achievements *AchievementService, tracker *StreakTracker, baseLog *logger.Logger, opts EngineOptions) *RecommendationService {
	return &RecommendationService{
		store:        store,
		goals:        goals,
		achievements: achievements,
		tracker:      tracker,
		log:          baseLog.With("service", "RecommendationService"),
		opts:         opts.withDefaults(),
	}
}

// WeeklyRecommendations рекомендации, отсортированные по приоритету
func (s *RecommendationService) WeeklyRecommendations(ctx context.Context, userID uint) ([]Recommendation, error) {
	now := s.opts.Now().In(s.opts.Location)
	today := s.tracker.Day(now)

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := []Recommendation{}

	if user.LastActivityDate != nil && user.CurrentStreak > 0 &&
		DaysBetween(*user.LastActivityDate, today, s.opts.Location) == 1 {
		out = append(out, Recommendation{
			Type:     RecommendStreakAtRisk,
			Priority: PriorityHigh,
			Message:  fmt.Sprintf("Отметьте прогресс сегодня, чтобы сохранить серию из %d дн.", user.CurrentStreak),
		})
	}

	goals, err := s.goals.ActiveGoals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load active goals: %w", err)
	}
	for i := range goals {
		goal := &goals[i]
		goalID := goal.ID

		last, err := s.goals.LastProgressAt(ctx, goal.ID)
		if err != nil {
			return nil, fmt.Errorf("last progress of goal %d: %w", goal.ID, err)
		}
		since := goal.StartDate
		if last != nil {
			since = *last
		}
		if DaysBetween(since, today, s.opts.Location) >= inactiveGoalDays {
			out = append(out, Recommendation{
				Type:     RecommendInactiveGoal,
				Priority: PriorityMedium,
				Message:  fmt.Sprintf("Цель «%s» без прогресса больше недели", goal.Title),
				GoalID:   &goalID,
			})
		}

		metric := goal.PrimaryMetric()
		if metric == nil {
			continue
		}
		series, err := s.goals.TimeSeries(ctx, metric.ID, now.AddDate(0, 0, -trendWindowDays), now)
		if err != nil {
			return nil, fmt.Errorf("load time series: %w", err)
		}
		if AnalyzeTrend(completionSeries(metric, series)).Direction == TrendDecreasing {
			out = append(out, Recommendation{
				Type:     RecommendDecliningTrend,
				Priority: PriorityHigh,
				Message:  fmt.Sprintf("Прогресс по цели «%s» снижается", goal.Title),
				GoalID:   &goalID,
			})
		}
	}

	signals, err := s.store.SignalsFor(ctx, userID, now, s.opts.LookbackDays)
	if err != nil {
		return nil, fmt.Errorf("load signals: %w", err)
	}
	active := activeDaysInWindow(signals, consistencyWindowDays)
	if len(goals) > 0 && float64(active) < consistencyMinRatio*consistencyWindowDays {
		out = append(out, Recommendation{
			Type:     RecommendConsistency,
			Priority: PriorityLow,
			Message:  fmt.Sprintf("Активных дней за последние %d: %d. Попробуйте заниматься регулярнее", consistencyWindowDays, active),
		})
	}

	recommended, err := s.achievements.GetRecommended(ctx, userID, 1)
	if err != nil {
		return nil, err
	}
	if len(recommended) > 0 && recommended[0].Progress.Percentage >= nearAchievementPercent {
		a := recommended[0].Achievement
		out = append(out, Recommendation{
			Type:            RecommendNearAchievement,
			Priority:        PriorityMedium,
			Message:         fmt.Sprintf("До достижения «%s» осталось совсем немного", displayName(a)),
			AchievementCode: a.Code,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority < out[j].Priority
	})
	s.log.Debug("Рекомендации собраны", "user_id", userID, "count", len(out))
	return out, nil
}

func displayName(a models.Achievement) string {
	if a.IsSecret {
		return MaskSecret(a).Name
	}
	return a.Name
}
