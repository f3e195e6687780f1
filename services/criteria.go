package services

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"goalquest-backend/models"
)

// CriteriaType дискриминатор критерия
type CriteriaType string

const (
	CriteriaGoalCreated           CriteriaType = "goal_created"
	CriteriaProgressRecorded      CriteriaType = "progress_recorded"
	CriteriaStreak                CriteriaType = "streak"
	CriteriaGoalsCompleted        CriteriaType = "goals_completed"
	CriteriaCategoryGoalCompleted CriteriaType = "category_goal_completed"
	CriteriaPerfectWeek           CriteriaType = "perfect_week"
	CriteriaTotalPoints           CriteriaType = "total_points"
	CriteriaSessionDuration       CriteriaType = "session_duration"
	CriteriaConsistency           CriteriaType = "consistency"
)

// Criteria условие получения достижения. Набор вариантов закрыт: реализации только в этом пакете.
type Criteria interface {
	Type() CriteriaType
	isCriteria()
}

// GoalCreatedCriteria создано не меньше Count целей
type GoalCreatedCriteria struct{ Count int }

// ProgressRecordedCriteria записано не меньше Count значений прогресса
type ProgressRecordedCriteria struct{ Count int }

// StreakCriteria серия не короче Days дней
type StreakCriteria struct{ Days int }

// GoalsCompletedCriteria выполнено не меньше Count целей
type GoalsCompletedCriteria struct{ Count int }

// CategoryGoalCompletedCriteria выполнено не меньше Count целей категории Category
type CategoryGoalCompletedCriteria struct {
	Category string
	Count    int
}

// PerfectWeekCriteria активность в каждый день текущей недели при активной цели
type PerfectWeekCriteria struct{}

// TotalPointsCriteria набрано не меньше Points очков
type TotalPointsCriteria struct{ Points int }

// SessionDurationCriteria суммарная длительность сессий не меньше Duration
type SessionDurationCriteria struct{ Duration int64 } // секунды

// ConsistencyCriteria не меньше RequiredDays активных дней за последние Days дней
type ConsistencyCriteria struct {
	Days         int
	RequiredDays int
}

func (GoalCreatedCriteria) Type() CriteriaType           { return CriteriaGoalCreated }
func (ProgressRecordedCriteria) Type() CriteriaType      { return CriteriaProgressRecorded }
func (StreakCriteria) Type() CriteriaType                { return CriteriaStreak }
func (GoalsCompletedCriteria) Type() CriteriaType        { return CriteriaGoalsCompleted }
func (CategoryGoalCompletedCriteria) Type() CriteriaType { return CriteriaCategoryGoalCompleted }
func (PerfectWeekCriteria) Type() CriteriaType           { return CriteriaPerfectWeek }
func (TotalPointsCriteria) Type() CriteriaType           { return CriteriaTotalPoints }
func (SessionDurationCriteria) Type() CriteriaType       { return CriteriaSessionDuration }
func (ConsistencyCriteria) Type() CriteriaType           { return CriteriaConsistency }

func (GoalCreatedCriteria) isCriteria()           {}
func (ProgressRecordedCriteria) isCriteria()      {}
func (StreakCriteria) isCriteria()                {}
func (GoalsCompletedCriteria) isCriteria()        {}
func (CategoryGoalCompletedCriteria) isCriteria() {}
func (PerfectWeekCriteria) isCriteria()           {}
func (TotalPointsCriteria) isCriteria()           {}
func (SessionDurationCriteria) isCriteria()       {}
func (ConsistencyCriteria) isCriteria()           {}

// rawCriteria формат хранения: {"type": "...", ...параметры}
type rawCriteria struct {
	Type         string   `json:"type"`
	Count        *int     `json:"count"`
	Days         *int     `json:"days"`
	Category     *string  `json:"category"`
	Points       *int     `json:"points"`
	Duration     *float64 `json:"duration"`
	RequiredDays *int     `json:"required_days"`
}

// ParseCriteria разбирает сохраненный критерий и подставляет значения по умолчанию
func ParseCriteria(data []byte) (Criteria, error) {
	var raw rawCriteria
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidCriteria, err)
	}

	switch CriteriaType(strings.TrimSpace(raw.Type)) {
	case CriteriaGoalCreated:
		n, err := positive(raw.Count, 1, "count")
		if err != nil {
			return nil, err
		}
		return GoalCreatedCriteria{Count: n}, nil
	case CriteriaProgressRecorded:
		n, err := positive(raw.Count, 1, "count")
		if err != nil {
			return nil, err
		}
		return ProgressRecordedCriteria{Count: n}, nil
	case CriteriaStreak:
		n, err := positive(raw.Days, 7, "days")
		if err != nil {
			return nil, err
		}
		return StreakCriteria{Days: n}, nil
	case CriteriaGoalsCompleted:
		n, err := positive(raw.Count, 1, "count")
		if err != nil {
			return nil, err
		}
		return GoalsCompletedCriteria{Count: n}, nil
	case CriteriaCategoryGoalCompleted:
		if raw.Category == nil || strings.TrimSpace(*raw.Category) == "" {
			return nil, fmt.Errorf("%w: category required", models.ErrInvalidCriteria)
		}
		n, err := positive(raw.Count, 1, "count")
		if err != nil {
			return nil, err
		}
		return CategoryGoalCompletedCriteria{Category: strings.TrimSpace(*raw.Category), Count: n}, nil
	case CriteriaPerfectWeek:
		return PerfectWeekCriteria{}, nil
	case CriteriaTotalPoints:
		n, err := positive(raw.Points, 100, "points")
		if err != nil {
			return nil, err
		}
		return TotalPointsCriteria{Points: n}, nil
	case CriteriaSessionDuration:
		d := int64(3600)
		if raw.Duration != nil {
			if *raw.Duration <= 0 {
				return nil, fmt.Errorf("%w: duration must be positive", models.ErrInvalidCriteria)
			}
			d = int64(math.Ceil(*raw.Duration))
		}
		return SessionDurationCriteria{Duration: d}, nil
	case CriteriaConsistency:
		days, err := positive(raw.Days, 30, "days")
		if err != nil {
			return nil, err
		}
		required, err := positive(raw.RequiredDays, 20, "required_days")
		if err != nil {
			return nil, err
		}
		if required > days {
			return nil, fmt.Errorf("%w: required_days %d exceeds window %d", models.ErrInvalidCriteria, required, days)
		}
		return ConsistencyCriteria{Days: days, RequiredDays: required}, nil
	default:
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownCriteriaType, raw.Type)
	}
}

// ValidateCriteria проверка для загрузки каталога
func ValidateCriteria(data []byte) error {
	_, err := ParseCriteria(data)
	return err
}

func positive(v *int, def int, name string) (int, error) {
	if v == nil {
		return def, nil
	}
	if *v <= 0 {
		return 0, fmt.Errorf("%w: %s must be positive", models.ErrInvalidCriteria, name)
	}
	return *v, nil
}

// EvaluateCriteria проверяет, выполнен ли критерий для набора сигналов
func EvaluateCriteria(c Criteria, s *models.SignalBundle) bool {
	if c == nil || s == nil {
		return false
	}
	switch cr := c.(type) {
	case GoalCreatedCriteria:
		return s.GoalCount >= cr.Count
	case ProgressRecordedCriteria:
		return s.ProgressCount >= cr.Count
	case StreakCriteria:
		return s.CurrentStreak >= cr.Days
	case GoalsCompletedCriteria:
		return s.CompletedGoalCount >= cr.Count
	case CategoryGoalCompletedCriteria:
		if cr.Category == "" {
			return false
		}
		return s.CategoryCompletions[cr.Category] >= cr.Count
	case PerfectWeekCriteria:
		return s.ActiveGoalCount >= 1 && activeDaysInWeek(s) == 7
	case TotalPointsCriteria:
		return s.TotalPoints >= cr.Points
	case SessionDurationCriteria:
		return s.SessionDurationSeconds >= cr.Duration
	case ConsistencyCriteria:
		return activeDaysInWindow(s, cr.Days) >= cr.RequiredDays
	default:
		return false
	}
}

// CriteriaProgress прогресс пользователя к выполнению критерия
type CriteriaProgress struct {
	Current    float64 `json:"current"`
	Target     float64 `json:"target"`
	Percentage float64 `json:"percentage"`
}

// CriteriaProgressFor вычисляет прогресс для ранжирования рекомендаций
func CriteriaProgressFor(c Criteria, s *models.SignalBundle) CriteriaProgress {
	if c == nil || s == nil {
		return CriteriaProgress{}
	}
	switch cr := c.(type) {
	case GoalCreatedCriteria:
		return progressOf(float64(s.GoalCount), float64(cr.Count))
	case ProgressRecordedCriteria:
		return progressOf(float64(s.ProgressCount), float64(cr.Count))
	case StreakCriteria:
		return progressOf(float64(s.CurrentStreak), float64(cr.Days))
	case GoalsCompletedCriteria:
		return progressOf(float64(s.CompletedGoalCount), float64(cr.Count))
	case CategoryGoalCompletedCriteria:
		if cr.Category == "" {
			return CriteriaProgress{}
		}
		return progressOf(float64(s.CategoryCompletions[cr.Category]), float64(cr.Count))
	case PerfectWeekCriteria:
		if s.ActiveGoalCount < 1 {
			return CriteriaProgress{}
		}
		return progressOf(float64(activeDaysInWeek(s)), 7)
	case TotalPointsCriteria:
		return progressOf(float64(s.TotalPoints), float64(cr.Points))
	case SessionDurationCriteria:
		return progressOf(float64(s.SessionDurationSeconds), float64(cr.Duration))
	case ConsistencyCriteria:
		return progressOf(float64(activeDaysInWindow(s, cr.Days)), float64(cr.RequiredDays))
	default:
		return CriteriaProgress{}
	}
}

func progressOf(current, target float64) CriteriaProgress {
	if target <= 0 {
		return CriteriaProgress{}
	}
	return CriteriaProgress{
		Current:    current,
		Target:     target,
		Percentage: math.Min(100, current/target*100),
	}
}

// activeDaysInWeek количество дней текущей недели (с понедельника) с записями
func activeDaysInWeek(s *models.SignalBundle) int {
	loc := s.Now.Location()
	start := WeekStart(s.Now, loc)
	end := start.AddDate(0, 0, 7)
	return countDays(s.ActiveDays, start, end, loc)
}

// activeDaysInWindow количество активных дней за последние days дней, включая сегодня
func activeDaysInWindow(s *models.SignalBundle, days int) int {
	loc := s.Now.Location()
	today := CalendarDay(s.Now, loc)
	start := today.AddDate(0, 0, -(days - 1))
	return countDays(s.ActiveDays, start, today.AddDate(0, 0, 1), loc)
}

func countDays(days []time.Time, from, to time.Time, loc *time.Location) int {
	seen := make(map[time.Time]struct{}, len(days))
	for _, d := range days {
		day := CalendarDay(d, loc)
		if day.Before(from) || !day.Before(to) {
			continue
		}
		seen[day] = struct{}{}
	}
	return len(seen)
}
